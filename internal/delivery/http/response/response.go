package response

import (
	"github.com/gin-gonic/gin"
)

// ErrorBody is the failure envelope: {"ok": false, "error": <code>, "message": <text>}
type ErrorBody struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Success sends a success payload as-is
func Success(c *gin.Context, code int, payload interface{}) {
	c.JSON(code, payload)
}

// Error sends an error envelope
func Error(c *gin.Context, code int, errCode, message string) {
	c.JSON(code, ErrorBody{
		OK:        false,
		Error:     errCode,
		Message:   message,
		RequestID: c.GetString(RequestIDKey),
	})
}

// AbortWithError sends an error envelope and stops the handler chain
func AbortWithError(c *gin.Context, code int, errCode, message string) {
	Error(c, code, errCode, message)
	c.Abort()
}

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "RequestID"
