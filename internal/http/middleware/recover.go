package middleware

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studentrisk-backend/internal/http/response"
	"github.com/yungbote/studentrisk-backend/internal/platform/ctxutil"
	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
)

// Recover turns a handler panic into a 500 error envelope.
func Recover(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		if log != nil {
			fields := append([]interface{}{"panic", fmt.Sprint(recovered), "path", c.Request.URL.Path}, ctxutil.LogFields(c.Request.Context())...)
			log.Error("handler panic", fields...)
		}
		response.RespondError(c, http.StatusInternalServerError, "internal_error", fmt.Errorf("internal server error"))
		c.Abort()
	})
}
