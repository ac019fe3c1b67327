package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/onepuzle/puzle-ai/internal/auth"
	"github.com/onepuzle/puzle-ai/internal/chat"
	"github.com/onepuzle/puzle-ai/internal/config"
	"github.com/onepuzle/puzle-ai/internal/httpapi/middleware"
)

type Handler struct {
	Cfg      config.Config
	ChatSvc  *chat.Service
	AuthSvc  *auth.Service // nil without a database
	Sessions *auth.Sessions
	Log      zerolog.Logger
}

func NewHandler(cfg config.Config, chatSvc *chat.Service, authSvc *auth.Service, sessions *auth.Sessions, log zerolog.Logger) *Handler {
	return &Handler{Cfg: cfg, ChatSvc: chatSvc, AuthSvc: authSvc, Sessions: sessions, Log: log}
}

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
