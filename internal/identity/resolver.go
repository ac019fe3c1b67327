// Package identity derives the per-caller key that scopes rate limits,
// profiles and in-memory history.
//
// The forwarded-for header is trusted as sent. Behind anything other than a
// reverse proxy that overwrites it, callers can pick their own key; set
// TRUST_FORWARDED=false in that deployment.
package identity

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

const Anonymous = "anon"

func Resolve(r *http.Request, trustForwarded bool) string {
	if r == nil {
		return Anonymous
	}
	if trustForwarded {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return Anonymous
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		if host == "" {
			return Anonymous
		}
		return host
	}
	return addr
}

// UserKey is the key for a logged-in caller; it replaces the address key.
func UserKey(userID uint64) string {
	return "user:" + strconv.FormatUint(userID, 10)
}
