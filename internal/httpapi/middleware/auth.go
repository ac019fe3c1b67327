package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onepuzle/puzle-ai/internal/auth"
	"github.com/onepuzle/puzle-ai/internal/common"
)

const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
)

// Session attaches the caller's user id when a valid session is present.
// Anonymous requests pass through untouched.
func Session(sessions *auth.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := sessions.FromRequest(c.Request); err == nil {
			c.Set(UserIDKey, claims.UserID)
			c.Set(UsernameKey, claims.Username)
		}
		c.Next()
	}
}

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(UserIDKey); !ok {
			common.Fail(c, http.StatusUnauthorized, "Önce giriş yapmalısın.")
			return
		}
		c.Next()
	}
}
