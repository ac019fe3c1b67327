package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/onepuzle/puzle-ai/internal/ai"
	"github.com/onepuzle/puzle-ai/internal/auth"
	"github.com/onepuzle/puzle-ai/internal/chat"
	"github.com/onepuzle/puzle-ai/internal/config"
	"github.com/onepuzle/puzle-ai/internal/conversation"
	"github.com/onepuzle/puzle-ai/internal/db"
	"github.com/onepuzle/puzle-ai/internal/httpapi/handlers"
	"github.com/onepuzle/puzle-ai/internal/ratelimit"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeGateway struct {
	mu    sync.Mutex
	calls [][]ai.Message
	err   error
}

func (g *fakeGateway) Complete(_ context.Context, messages []ai.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, append([]ai.Message(nil), messages...))
	if g.err != nil {
		return "", g.err
	}
	return fmt.Sprintf("cevap %d", len(g.calls)), nil
}

func (g *fakeGateway) Name() string  { return "groq" }
func (g *fakeGateway) Model() string { return "llama-3.1-8b-instant" }

type testServer struct {
	r  *gin.Engine
	gw *fakeGateway
}

func newTestServer(t *testing.T, gdb *gorm.DB, hasKey bool, dailyLimit int) *testServer {
	t.Helper()
	log := zerolog.New(io.Discard)
	gw := &fakeGateway{}

	cfg := config.Config{StaticDir: t.TempDir(), TrustForwarded: true}
	opts := chat.Options{
		Gateway:   gw,
		HasAPIKey: hasKey,
		Limiter:   ratelimit.NewMemory(dailyLimit),
		Memory:    conversation.NewMemory(4),
		Log:       log,
	}
	var authSvc *auth.Service
	if gdb != nil {
		repo := chat.NewRepo(gdb)
		opts.Repo = repo
		authSvc = auth.NewService(repo)
	}

	h := handlers.NewHandler(cfg, chat.NewService(opts), authSvc, auth.NewSessions("test-secret", time.Hour), log)
	return &testServer{r: NewRouter(h, log), gw: gw}
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(gormsqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies []*http.Cookie, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)

	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, true, 120)
	w, out := s.do(t, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if out["ok"] != true || out["has_api_key"] != true || out["db_ready"] != false || out["model"] != "llama-3.1-8b-instant" {
		t.Fatalf("health: %v", out)
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	s := newTestServer(t, nil, true, 120)
	for _, body := range []any{map[string]string{"message": "   "}, nil} {
		w, out := s.do(t, http.MethodPost, "/chat", body, nil)
		if w.Code != http.StatusBadRequest || out["message"] != chat.MsgEmpty {
			t.Fatalf("empty: %d %v", w.Code, out)
		}
	}
	if len(s.gw.calls) != 0 {
		t.Fatalf("gateway must not be called")
	}
}

func TestChat_AnonymousFlowByForwardedAddress(t *testing.T) {
	s := newTestServer(t, nil, true, 120)

	w, out := s.do(t, http.MethodPost, "/chat", map[string]string{"message": "selam"}, nil, "X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	if w.Code != http.StatusOK || out["message"] != "cevap 1" {
		t.Fatalf("chat: %d %v", w.Code, out)
	}

	_, _ = s.do(t, http.MethodPost, "/chat", map[string]string{"message": "/reset"}, nil, "X-Forwarded-For", "9.9.9.9")
	_, _ = s.do(t, http.MethodPost, "/chat", map[string]string{"message": "tekrar"}, nil, "X-Forwarded-For", "9.9.9.9")

	if got := len(s.gw.calls[len(s.gw.calls)-1]); got != 2 {
		t.Fatalf("history after /reset should be empty, composed %d messages", got)
	}
}

func TestChat_ErrorStatuses(t *testing.T) {
	s := newTestServer(t, nil, false, 1)
	w, out := s.do(t, http.MethodPost, "/chat", map[string]string{"message": "hi"}, nil)
	if w.Code != http.StatusInternalServerError || out["message"] != chat.MsgNoAPIKey {
		t.Fatalf("no key: %d %v", w.Code, out)
	}
	w, _ = s.do(t, http.MethodPost, "/chat", map[string]string{"message": "hi"}, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("rate limit: %d", w.Code)
	}

	s = newTestServer(t, nil, true, 120)
	s.gw.err = &ai.GatewayError{Provider: "groq", Status: 401, Payload: "Invalid API Key groq"}
	w, out = s.do(t, http.MethodPost, "/chat", map[string]string{"message": "hi"}, nil)
	if w.Code != http.StatusInternalServerError || out["message"] != chat.MsgServerError {
		t.Fatalf("gateway: %d %v", w.Code, out)
	}
	if strings.Contains(w.Body.String(), "groq") {
		t.Fatalf("vendor leaked: %s", w.Body.String())
	}
}

func TestDurable_WithoutDatabase(t *testing.T) {
	s := newTestServer(t, nil, true, 120)

	w, _ := s.do(t, http.MethodPost, "/auth/register", map[string]string{"username": "ayse", "password": "gizli123"}, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("register without db: %d", w.Code)
	}
	w, out := s.do(t, http.MethodGet, "/auth/me", nil, nil)
	if w.Code != http.StatusOK || out["logged_in"] != false {
		t.Fatalf("me: %d %v", w.Code, out)
	}
	w, _ = s.do(t, http.MethodPost, "/chat/new", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("chat/new anonymous: %d", w.Code)
	}
}

func TestDurable_EndToEnd(t *testing.T) {
	s := newTestServer(t, openDB(t), true, 120)

	w, _ := s.do(t, http.MethodPost, "/chat/new", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("chat/new without session: %d", w.Code)
	}
	w, _ = s.do(t, http.MethodPost, "/chat", map[string]string{"message": "hi"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("chat without session: %d", w.Code)
	}

	w, out := s.do(t, http.MethodPost, "/auth/register", map[string]string{"username": "x", "password": "gizli123"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad username: %d %v", w.Code, out)
	}

	w, out = s.do(t, http.MethodPost, "/auth/register", map[string]string{"username": "Ayse", "password": "gizli123"}, nil)
	if w.Code != http.StatusOK || out["username"] != "ayse" {
		t.Fatalf("register: %d %v", w.Code, out)
	}
	session := w.Result().Cookies()

	w, _ = s.do(t, http.MethodPost, "/auth/register", map[string]string{"username": "ayse", "password": "baska123"}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: %d", w.Code)
	}
	w, _ = s.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "ayse", "password": "yanlis1"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", w.Code)
	}
	w, _ = s.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "ayse", "password": "gizli123"}, nil)
	if w.Code != http.StatusOK || len(w.Result().Cookies()) != 1 {
		t.Fatalf("login: %d", w.Code)
	}

	_, out = s.do(t, http.MethodGet, "/auth/me", nil, session)
	if out["logged_in"] != true || out["username"] != "ayse" {
		t.Fatalf("me: %v", out)
	}

	w, _ = s.do(t, http.MethodPost, "/chat", map[string]string{"message": "hi"}, session)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing chat_id: %d", w.Code)
	}

	w, out = s.do(t, http.MethodPost, "/chat/new", nil, session)
	chatID, _ := out["chat_id"].(string)
	if w.Code != http.StatusOK || len(chatID) != 26 {
		t.Fatalf("chat/new: %d %v", w.Code, out)
	}

	for _, m := range []string{"ilk", "ikinci"} {
		w, out = s.do(t, http.MethodPost, "/chat", map[string]string{"message": m, "chat_id": chatID}, session)
		if w.Code != http.StatusOK {
			t.Fatalf("chat %q: %d %v", m, w.Code, out)
		}
	}

	w, out = s.do(t, http.MethodGet, "/chats/"+chatID+"/messages", nil, session)
	if w.Code != http.StatusOK {
		t.Fatalf("messages: %d", w.Code)
	}
	msgs, _ := out["messages"].([]any)
	want := []string{"ilk", "cevap 1", "ikinci", "cevap 2"}
	if len(msgs) != len(want) {
		t.Fatalf("messages: %v", out)
	}
	for i, m := range msgs {
		if m.(map[string]any)["content"] != want[i] {
			t.Fatalf("message %d: %v", i, m)
		}
	}

	_, out = s.do(t, http.MethodGet, "/chats", nil, session)
	chats, _ := out["chats"].([]any)
	if len(chats) != 1 || chats[0].(map[string]any)["title"] != "ilk" {
		t.Fatalf("chats: %v", out)
	}

	w, _ = s.do(t, http.MethodDelete, "/chats/"+chatID, nil, session)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	w, _ = s.do(t, http.MethodGet, "/chats/"+chatID+"/messages", nil, session)
	if w.Code != http.StatusNotFound {
		t.Fatalf("deleted chat: %d", w.Code)
	}

	w, _ = s.do(t, http.MethodPost, "/auth/logout", nil, session)
	if c := w.Result().Cookies(); w.Code != http.StatusOK || len(c) != 1 || c[0].MaxAge >= 0 {
		t.Fatalf("logout: %d %v", w.Code, c)
	}
}

func TestIndexAndNotFound(t *testing.T) {
	s := newTestServer(t, nil, true, 120)

	w, _ := s.do(t, http.MethodGet, "/", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing page: %d", w.Code)
	}

	w, _ = s.do(t, http.MethodGet, "/nope", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("no route: %d", w.Code)
	}
}

func TestIndexServesPage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>1Puzle AI</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	log := zerolog.New(io.Discard)
	svc := chat.NewService(chat.Options{Limiter: ratelimit.NewMemory(1), Log: log})
	h := handlers.NewHandler(config.Config{StaticDir: dir}, svc, nil, auth.NewSessions("x", time.Hour), log)
	r := NewRouter(h, log)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "1Puzle AI") {
		t.Fatalf("index: %d %s", w.Code, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil, true, 120)
	s.do(t, http.MethodPost, "/chat", map[string]string{"message": "/help"}, nil)

	w, _ := s.do(t, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
	for _, want := range []string{"puzle_rate_limited_total", `puzle_commands_total{command="/help"}`} {
		if !strings.Contains(w.Body.String(), want) {
			t.Fatalf("metrics output missing %s", want)
		}
	}
}

func TestChat_OversizedMessage(t *testing.T) {
	s := newTestServer(t, nil, true, 120)

	w, out := s.do(t, http.MethodPost, "/chat", map[string]string{"message": strings.Repeat("a", chat.DefaultMaxMessageChars+1)}, nil)
	if w.Code != http.StatusBadRequest || out["message"] != chat.MsgTooLong {
		t.Fatalf("oversized message: %d %v", w.Code, out)
	}

	w, out = s.do(t, http.MethodPost, "/chat", map[string]string{"message": strings.Repeat("a", 1<<20)}, nil)
	if w.Code != http.StatusBadRequest || out["message"] != chat.MsgTooLong {
		t.Fatalf("oversized body: %d %v", w.Code, out)
	}

	if len(s.gw.calls) != 0 {
		t.Fatalf("oversized input must not reach the gateway, got %d calls", len(s.gw.calls))
	}
}
