package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/onepuzle/puzle-ai/internal/common"
	"github.com/onepuzle/puzle-ai/internal/httpapi/handlers"
	"github.com/onepuzle/puzle-ai/internal/httpapi/middleware"
	"github.com/onepuzle/puzle-ai/internal/metrics"
)

func NewRouter(h *handlers.Handler, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, "Sayfa bulunamadı.")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, "Yöntem desteklenmiyor.")
	})

	r.GET("/", h.Index)
	r.GET("/health", h.Health)
	metrics.MustRegister()
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/")
	api.Use(middleware.Session(h.Sessions))

	api.POST("/chat", h.SendChatMessage)

	// auth
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/me", h.Me)

	// chats (session required)
	authGroup := api.Group("/")
	authGroup.Use(middleware.AuthRequired())
	authGroup.POST("/chat/new", h.CreateChat)
	authGroup.GET("/chats", h.ListChats)
	authGroup.GET("/chats/:chat_id/messages", h.ListChatMessages)
	authGroup.DELETE("/chats/:chat_id", h.DeleteChat)
	return r
}
