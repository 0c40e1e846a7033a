package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ragdesk/internal/transport/http/response"
)

// Recovery turns a panic into a 500 with the usual detail body.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"),
		)
		response.Abort(c, http.StatusInternalServerError, fmt.Sprint(recovered))
	})
}
