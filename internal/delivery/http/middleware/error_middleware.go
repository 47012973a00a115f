package middleware

import (
	"errors"
	"net/http"

	"github.com/pauldariye/greenhouse-proxy-server/internal/delivery/http/response"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/apperror"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/logger"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/reporter"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error attached with c.Error as the JSON
// envelope. Errors carrying an underlying cause are also sent to the
// reporter; that never changes the response.
func ErrorHandler(rep reporter.Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		reqID := c.GetString(response.RequestIDKey)

		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			appErr = apperror.Internal(err)
			// Never expose internal error details to clients
			appErr.Message = "An unexpected error occurred. Please try again later."
		}

		attrs := []any{
			"code", appErr.Code,
			"status", appErr.Status,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", reqID,
		}
		if appErr.Err != nil {
			attrs = append(attrs, "error", appErr.Err.Error())
		}
		if appErr.Status >= http.StatusInternalServerError {
			logger.Log.Error(appErr.Message, attrs...)
		} else {
			logger.Log.Warn(appErr.Message, attrs...)
		}

		if appErr.Err != nil && rep != nil {
			rep.Report(c.Request.Context(), appErr.Err, map[string]string{
				"code":       appErr.Code,
				"route":      c.FullPath(),
				"request_id": reqID,
			})
		}

		if c.Writer.Written() {
			return
		}
		response.Error(c, appErr.Status, appErr.Code, appErr.Message)
	}
}
