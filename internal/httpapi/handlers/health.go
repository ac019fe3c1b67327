package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/onepuzle/puzle-ai/internal/common"
)

func (h *Handler) Health(c *gin.Context) {
	common.OK(c, gin.H{
		"ok":          true,
		"has_api_key": h.ChatSvc.HasAPIKey(),
		"model":       h.ChatSvc.Model(),
		"db_ready":    h.ChatSvc.DBReady(),
	})
}

// Index serves the single-page client.
func (h *Handler) Index(c *gin.Context) {
	page := filepath.Join(h.Cfg.StaticDir, "index.html")
	if _, err := os.Stat(page); err != nil {
		common.Fail(c, http.StatusNotFound, "Sayfa bulunamadı.")
		return
	}
	c.File(page)
}
