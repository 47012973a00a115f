package domain

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
)

var ErrSubmissionFailed = errors.New("application submission failed")

// Attachment field names accepted on submissions; each is single-valued.
const (
	AttachmentResume      = "resume"
	AttachmentCoverLetter = "cover_letter"
)

// AllowedAttachments lists the multipart file fields relayed upstream.
var AllowedAttachments = []string{AttachmentResume, AttachmentCoverLetter}

// FormField is one submitted text field. Order follows the inbound form.
type FormField struct {
	Name   string
	Values []string
}

// Attachment is an uploaded file still held by the multipart reader
// (in memory or in a temporary file).
type Attachment struct {
	Field    string
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// NewAttachment wraps a multipart file header.
func NewAttachment(field string, fh *multipart.FileHeader) Attachment {
	return Attachment{
		Field:    field,
		Filename: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// Submission is a request-scoped job application. It is relayed once and discarded.
type Submission struct {
	Fields      []FormField
	Attachments []Attachment
}

// Value returns the first value of a form field.
func (s *Submission) Value(name string) string {
	for _, f := range s.Fields {
		if f.Name == name && len(f.Values) > 0 {
			return f.Values[0]
		}
	}
	return ""
}

// JobID is the id from the submitted form, which scopes the upstream call.
func (s *Submission) JobID() JobID {
	return ParseJobID(s.Value("id"))
}

// Echo renders the submitted fields for the success response. Single-valued
// fields become strings, repeated fields become lists.
func (s *Submission) Echo() map[string]any {
	out := make(map[string]any, len(s.Fields)+1)
	for _, f := range s.Fields {
		if len(f.Values) == 1 {
			out[f.Name] = f.Values[0]
		} else {
			out[f.Name] = f.Values
		}
	}
	return out
}

// SubmissionError carries the upstream outcome of a failed relay.
type SubmissionError struct {
	JobID      JobID
	StatusCode int    // 0 when the request never got a response
	Body       string // truncated upstream response body
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode == 0 {
		return "application for job '" + e.JobID.String() + "' failed to submit: " + errString(e.Err)
	}
	return "application for job '" + e.JobID.String() + "' failed to submit: upstream responded " + statusText(e.StatusCode)
}

func (e *SubmissionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSubmissionFailed}
	}
	return []error{ErrSubmissionFailed, e.Err}
}

type ApplicationUsecase interface {
	Submit(ctx context.Context, sub *Submission) error
}
