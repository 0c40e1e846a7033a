package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragdesk/internal/transport/http/response"
)

const APIKeyHeader = "X-API-Key"

// APIKey rejects requests whose X-API-Key differs from expected.
// An empty expected key disables the check.
func APIKey(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			c.Next()
			return
		}

		got := c.GetHeader(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			response.Abort(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Next()
	}
}
