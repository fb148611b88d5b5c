package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"whisperbox/pkg/helpers"
	"whisperbox/pkg/response"
)

const (
	CtxUserIDKey   = "userID"
	CtxUsernameKey = "username"
)

// Auth reads the access_token cookie, validates the signature, and injects
// the decoded session projection into the Gin context. Sessions are
// stateless: the token is the only source, nothing is looked up server
// side. Handlers that need current field values re-read the store.
func Auth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("access_token")
		if err != nil || token == "" {
			response.Error[any](c, http.StatusUnauthorized, "not authenticated", nil)
			c.Abort()
			return
		}
		claims, err := jwt.ResolveAccessToken(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", nil)
			c.Abort()
			return
		}
		c.Set(CtxUserIDKey, claims.Subject)
		c.Set(CtxUsernameKey, claims.Username)
		c.Next()
	}
}
