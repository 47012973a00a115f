package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/pauldariye/greenhouse-proxy-server/internal/delivery/http/response"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/apperror"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/security"

	"github.com/gin-gonic/gin"
)

const (
	// CSRFTokenCookieName is the name of the cookie that stores the CSRF token
	CSRFTokenCookieName = "csrf_token"
	// CSRFTokenHeaderName is the header that may carry the CSRF token
	CSRFTokenHeaderName = "X-CSRF-Token"
	// CSRFTokenFormField is the form field that may carry the CSRF token
	CSRFTokenFormField = "_csrf"
	// CSRFTokenLength is the length of the generated token in bytes (32 bytes = 64 hex chars)
	CSRFTokenLength = 32
	// CSRFTokenExpiry is how long the token is valid
	CSRFTokenExpiry = 24 * time.Hour
)

// generateCSRFToken creates a cryptographically secure random token
func generateCSRFToken() (string, error) {
	bytes := make([]byte, CSRFTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// CSRFMiddleware implements the double-submit cookie pattern.
//
// Any request without a csrf_token cookie gets one. The token is also echoed
// in the X-CSRF-Token response header so cross-origin clients can read it.
// State-changing requests must send the cookie value back in the
// X-CSRF-Token header or the _csrf form field.
func CSRFMiddleware(secure bool, secLogger *security.SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		csrfCookie, err := c.Cookie(CSRFTokenCookieName)

		// Generate new token if none exists
		if err != nil || csrfCookie == "" {
			newToken, err := generateCSRFToken()
			if err != nil {
				response.AbortWithError(c, http.StatusInternalServerError, apperror.CodeInternal, "Failed to generate security token")
				return
			}

			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(
				CSRFTokenCookieName,
				newToken,
				int(CSRFTokenExpiry.Seconds()),
				"/",
				"",     // Domain (empty = current domain)
				secure, // Secure (HTTPS only in production)
				false,  // HttpOnly = false so JS can read it
			)
			csrfCookie = newToken
		}
		c.Header(CSRFTokenHeaderName, csrfCookie)

		// For safe methods, no validation needed
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		token := c.GetHeader(CSRFTokenHeaderName)
		if token == "" {
			token = c.PostForm(CSRFTokenFormField)
		}

		if token == "" {
			rejectCSRF(c, secLogger, "missing token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(csrfCookie)) != 1 {
			rejectCSRF(c, secLogger, "token mismatch")
			return
		}

		c.Next()
	}
}

func rejectCSRF(c *gin.Context, secLogger *security.SecurityLogger, reason string) {
	if secLogger != nil {
		secLogger.LogCSRFRejected(c.Request.Context(), c.ClientIP(), c.GetHeader("User-Agent"),
			c.GetString(response.RequestIDKey), reason)
	}
	response.AbortWithError(c, http.StatusForbidden, apperror.CodeInvalidCSRF, "Invalid CSRF token")
}
