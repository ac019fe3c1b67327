package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onepuzle/puzle-ai/internal/chat"
	"github.com/onepuzle/puzle-ai/internal/common"
	"github.com/onepuzle/puzle-ai/internal/identity"
)

type sendMessageReq struct {
	Message string `json:"message"`
	ChatID  string `json:"chat_id"`
}

// maxBodyBytes bounds the JSON body for a message of maxChars runes. A rune
// escaped as a surrogate pair takes 12 bytes.
func maxBodyBytes(maxChars int) int64 {
	if maxChars <= 0 {
		maxChars = chat.DefaultMaxMessageChars
	}
	return int64(maxChars)*12 + 4096
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes(h.Cfg.MaxMessageChars))

	var req sendMessageReq
	// a malformed body is treated like an empty message
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.Fail(c, http.StatusBadRequest, chat.MsgTooLong)
			return
		}
	}

	uid, _ := userIDFromContext(c)
	reply, err := h.ChatSvc.Send(c.Request.Context(), chat.Turn{
		ClientKey: identity.Resolve(c.Request, h.Cfg.TrustForwarded),
		UserID:    uid,
		ChatID:    req.ChatID,
		Message:   req.Message,
	})
	if err != nil {
		common.FailErr(c, err, chat.MsgServerError)
		return
	}

	out := gin.H{"message": reply.Message}
	if reply.ChatID != "" {
		out["chat_id"] = reply.ChatID
	}
	common.OK(c, out)
}

func (h *Handler) CreateChat(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, chat.MsgLoginNeeded)
		return
	}

	ch, err := h.ChatSvc.NewChat(c.Request.Context(), uid)
	if err != nil {
		h.Log.Error().Err(err).Uint64("user_id", uid).Msg("create chat")
		common.FailErr(c, err, chat.MsgServerError)
		return
	}
	common.OK(c, gin.H{"chat_id": ch.ID})
}

func (h *Handler) ListChats(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, chat.MsgLoginNeeded)
		return
	}

	chats, err := h.ChatSvc.Chats(c.Request.Context(), uid)
	if err != nil {
		common.FailErr(c, err, chat.MsgServerError)
		return
	}
	common.OK(c, gin.H{"chats": chats})
}

func (h *Handler) ListChatMessages(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, chat.MsgLoginNeeded)
		return
	}

	chatID := c.Param("chat_id")
	msgs, err := h.ChatSvc.History(c.Request.Context(), uid, chatID)
	if err != nil {
		common.FailErr(c, err, chat.MsgServerError)
		return
	}
	common.OK(c, gin.H{"chat_id": chatID, "messages": msgs})
}

func (h *Handler) DeleteChat(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, chat.MsgLoginNeeded)
		return
	}

	if err := h.ChatSvc.DeleteChat(c.Request.Context(), uid, c.Param("chat_id")); err != nil {
		common.FailErr(c, err, chat.MsgServerError)
		return
	}
	common.OK(c, gin.H{"message": "Sohbet silindi."})
}
