package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/onepuzle/puzle-ai/internal/auth"
)

func init() { gin.SetMode(gin.TestMode) }

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if id := w.Header().Get(RequestIDHeader); len(id) != 36 || w.Body.String() != id {
		t.Fatalf("generated id: header=%q body=%q", id, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) != "abc" {
		t.Fatalf("inbound id not kept")
	}
}

func TestRecoveryAndLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	r := gin.New()
	r.Use(Logger(log), Recovery(log))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "kaboom") || !strings.Contains(w.Body.String(), "message") {
		t.Fatalf("panic detail leaked: %s", w.Body.String())
	}
	if !strings.Contains(buf.String(), "panic recovered") || !strings.Contains(buf.String(), `"status":500`) {
		t.Fatalf("log: %s", buf.String())
	}
}

func TestSessionAndAuthRequired(t *testing.T) {
	sessions := auth.NewSessions("s3cret", time.Hour)

	r := gin.New()
	r.Use(Session(sessions))
	r.GET("/open", func(c *gin.Context) {
		_, ok := c.Get(UserIDKey)
		c.JSON(http.StatusOK, gin.H{"logged_in": ok})
	})
	r.GET("/closed", AuthRequired(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UsernameKey))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/closed", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "false") {
		t.Fatalf("open: %d %s", w.Code, w.Body.String())
	}

	tok, _ := auth.SignJWT(9, "deniz", "s3cret", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/closed", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "deniz" {
		t.Fatalf("authenticated: %d %s", w.Code, w.Body.String())
	}
}
