package v1

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"

	"github.com/pauldariye/greenhouse-proxy-server/internal/delivery/http/middleware"
	"github.com/pauldariye/greenhouse-proxy-server/internal/delivery/http/response"
	"github.com/pauldariye/greenhouse-proxy-server/internal/domain"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// multipartMemory is how much of a multipart body is held in memory before
// file parts spill to temporary files.
const multipartMemory = 8 << 20

type ApplicationHandler struct {
	applicationUC domain.ApplicationUsecase
}

func NewApplicationHandler(jobs *gin.RouterGroup, applicationUC domain.ApplicationUsecase) {
	handler := &ApplicationHandler{applicationUC: applicationUC}

	jobs.POST("/:id", handler.Apply)
}

// Apply godoc
// @Summary      Submit a job application
// @Description  Relays the form, including resume and cover_letter files, to the job board.
// @Description  The job is chosen by the "id" form field.
// @Tags         applications
// @Accept       multipart/form-data
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        id            path      string  true   "Job ID"
// @Param        X-CSRF-Token  header    string  false  "CSRF token from the csrf_token cookie"
// @Param        first_name    formData  string  true   "First name"
// @Param        last_name     formData  string  true   "Last name"
// @Param        email         formData  string  true   "Email"
// @Param        resume        formData  file    false  "Resume"
// @Param        cover_letter  formData  file    false  "Cover letter"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  response.ErrorBody
// @Failure      403  {object}  response.ErrorBody
// @Router       /job/{id} [post]
func (h *ApplicationHandler) Apply(c *gin.Context) {
	sub, err := parseSubmission(c.Request)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.Error(apperror.BadRequest(apperror.CodeInvalidRequest, "Request body too large"))
			return
		}
		c.Error(apperror.BadRequest(apperror.CodeInvalidRequest, "Request body could not be parsed"))
		return
	}
	defer func() {
		if c.Request.MultipartForm != nil {
			c.Request.MultipartForm.RemoveAll()
		}
	}()

	if err := h.applicationUC.Submit(c.Request.Context(), sub); err != nil {
		c.Error(err)
		return
	}

	body := sub.Echo()
	body["ok"] = true
	response.Success(c, http.StatusOK, body)
}

// parseSubmission reads the request body as a multipart or urlencoded form.
// Query parameters are ignored and the CSRF field is dropped.
func parseSubmission(r *http.Request) (*domain.Submission, error) {
	sub := &domain.Submission{}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, err
		}
		sub.Fields = formFields(r.MultipartForm.Value)
		sub.Attachments = attachments(r.MultipartForm.File)
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		sub.Fields = formFields(r.PostForm)
	case "":
		// No body
	default:
		return nil, errors.New("unsupported content type: " + mediaType)
	}

	return sub, nil
}

func formFields(values url.Values) []domain.FormField {
	names := make([]string, 0, len(values))
	for name := range values {
		if name == middleware.CSRFTokenFormField {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]domain.FormField, 0, len(names))
	for _, name := range names {
		fields = append(fields, domain.FormField{Name: name, Values: values[name]})
	}
	return fields
}

func attachments(files map[string][]*multipart.FileHeader) []domain.Attachment {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []domain.Attachment
	for _, name := range names {
		for _, fh := range files[name] {
			out = append(out, domain.NewAttachment(name, fh))
		}
	}
	return out
}
