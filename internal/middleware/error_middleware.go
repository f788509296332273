package middleware

import (
	"neuroscan/internal/transport/httpdto"
	"neuroscan/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler converts errors attached to the gin context into a JSON
// error body. Handlers that already wrote a response are left alone.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Errorf("request error: %s", err.Error())
		}
		if c.Writer.Written() {
			return
		}
		c.JSON(c.Writer.Status(), httpdto.NewErrorResponse(err.Error()))
	}
}
