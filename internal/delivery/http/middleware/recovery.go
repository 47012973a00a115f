package middleware

import (
	"fmt"
	"net/http"

	"github.com/pauldariye/greenhouse-proxy-server/internal/delivery/http/response"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/apperror"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery turns panics into the JSON error envelope instead of gin's empty 500.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Log.Error("Panic recovered",
			"panic", fmt.Sprint(recovered),
			"path", c.Request.URL.Path,
			"request_id", c.GetString(response.RequestIDKey),
		)
		response.AbortWithError(c, http.StatusInternalServerError, apperror.CodeInternal, "An unexpected error occurred. Please try again later.")
	})
}
