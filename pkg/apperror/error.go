package apperror

import "net/http"

// Wire codes returned in the "error" field of failure envelopes.
const (
	CodeNoJobs            = "no_gh_jobs"
	CodeJobNotFound       = "job_not_found"
	CodeInvalidRequest    = "invalid_request"
	CodeMissingFields     = "missing_fields"
	CodeInvalidAttachment = "invalid_attachment"
	CodeInternal          = "internal_error"
	CodeNotFound          = "not_found"
	CodeRateLimited       = "rate_limited"
	CodeInvalidCSRF       = "invalid_csrf_token"
)

type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func BadRequest(code, message string) *AppError {
	return New(http.StatusBadRequest, code, message, nil)
}

// MissingField builds the "missing_<field>" error for a required submission field.
func MissingField(field string) *AppError {
	return BadRequest("missing_"+field, "Missing required field: "+field)
}

func NotFound(code, message string) *AppError {
	return New(http.StatusNotFound, code, message, nil)
}

func Forbidden(code, message string) *AppError {
	return New(http.StatusForbidden, code, message, nil)
}

func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, CodeInternal, "Internal Server Error", err)
}
