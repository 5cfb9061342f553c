package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/auth"
)

// BasicAuth validates HTTP Basic credentials against the credential
// verifier and stores the resolved user id in the request context. The
// REST surface reuses the same verifier as the connection handshake.
func BasicAuth(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="chat-relay"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}

		user, err := verifier.Verify(c.Request.Context(), username, password)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}
