package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onepuzle/puzle-ai/internal/chat"
	"github.com/onepuzle/puzle-ai/internal/common"
)

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Register(c *gin.Context) {
	if h.AuthSvc == nil {
		common.Fail(c, http.StatusServiceUnavailable, chat.MsgNoDatabase)
		return
	}

	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "Geçersiz istek.")
		return
	}

	user, err := h.AuthSvc.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if common.Status(common.KindOf(err)) >= http.StatusInternalServerError {
			h.Log.Error().Err(err).Msg("register")
		}
		common.FailErr(c, err, chat.MsgServerError)
		return
	}

	if _, err := h.Sessions.Mint(c.Writer, c.Request, user.ID, user.Username); err != nil {
		h.Log.Error().Err(err).Msg("mint session")
		common.Fail(c, http.StatusInternalServerError, chat.MsgServerError)
		return
	}
	common.OK(c, gin.H{"message": "Kayıt başarılı.", "username": user.Username})
}

func (h *Handler) Login(c *gin.Context) {
	if h.AuthSvc == nil {
		common.Fail(c, http.StatusServiceUnavailable, chat.MsgNoDatabase)
		return
	}

	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "Geçersiz istek.")
		return
	}

	user, err := h.AuthSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if common.Status(common.KindOf(err)) >= http.StatusInternalServerError {
			h.Log.Error().Err(err).Msg("login")
		}
		common.FailErr(c, err, chat.MsgServerError)
		return
	}

	if _, err := h.Sessions.Mint(c.Writer, c.Request, user.ID, user.Username); err != nil {
		h.Log.Error().Err(err).Msg("mint session")
		common.Fail(c, http.StatusInternalServerError, chat.MsgServerError)
		return
	}
	common.OK(c, gin.H{"message": "Giriş başarılı.", "username": user.Username})
}

func (h *Handler) Logout(c *gin.Context) {
	h.Sessions.Clear(c.Writer, c.Request)
	common.OK(c, gin.H{"message": "Çıkış yapıldı."})
}

// Me never fails: a missing or stale session is reported as logged out.
func (h *Handler) Me(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok || h.AuthSvc == nil {
		common.OK(c, gin.H{"logged_in": false})
		return
	}

	user, err := h.AuthSvc.User(c.Request.Context(), uid)
	if err != nil {
		common.OK(c, gin.H{"logged_in": false})
		return
	}
	common.OK(c, gin.H{"logged_in": true, "username": user.Username})
}
