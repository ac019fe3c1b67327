package auth

import (
	"net/http"
	"strings"
	"time"
)

const (
	CookieName = "puzle_session"
	SessionTTL = 7 * 24 * time.Hour
)

// Sessions mints and reads the signed session carried in an HttpOnly cookie
// or an Authorization: Bearer header.
type Sessions struct {
	secret string
	ttl    time.Duration
}

func NewSessions(secret string, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = SessionTTL
	}
	return &Sessions{secret: secret, ttl: ttl}
}

func (s *Sessions) Mint(w http.ResponseWriter, r *http.Request, userID uint64, username string) (string, error) {
	signed, err := SignJWT(userID, username, s.secret, s.ttl)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   isTLS(r),
		SameSite: http.SameSiteLaxMode,
	})
	return signed, nil
}

func (s *Sessions) Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isTLS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest prefers the Authorization header over the cookie.
func (s *Sessions) FromRequest(r *http.Request) (*Claims, error) {
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
			return ParseJWT(strings.TrimSpace(hdr[7:]), s.secret)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return ParseJWT(c.Value, s.secret)
	}
	return nil, ErrInvalidToken
}

func isTLS(r *http.Request) bool {
	if r == nil {
		return false
	}
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
