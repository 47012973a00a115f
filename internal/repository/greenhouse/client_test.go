package greenhouse

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pauldariye/greenhouse-proxy-server/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) domain.JobBoardRepository {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BoardURL: srv.URL + "/jobs/", APIKey: "secret-key"}, srv.Client())
}

func TestFetchListingsSummary(t *testing.T) {
	t.Run("Decodes job ids", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/jobs", r.URL.Path)
			_, _ = io.WriteString(w, `{"jobs":[{"id":1,"title":"a"},{"id":"2"}],"meta":{"total":2}}`)
		}))

		jobs, err := c.FetchListingsSummary(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []domain.JobSummary{{ID: "1"}, {ID: "2"}}, jobs)
	})

	t.Run("Missing jobs key is no data", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"status":404}`)
		}))

		_, err := c.FetchListingsSummary(context.Background())
		assert.ErrorIs(t, err, domain.ErrNoData)
	})

	t.Run("Invalid JSON is upstream unavailable", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `<html>`)
		}))

		_, err := c.FetchListingsSummary(context.Background())
		assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	})

	t.Run("Non 2xx is upstream unavailable", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		_, err := c.FetchListingsSummary(context.Background())
		assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	})

	t.Run("Network failure is upstream unavailable", func(t *testing.T) {
		c := NewClient(Config{BoardURL: "http://127.0.0.1:1/jobs"}, nil)
		_, err := c.FetchListingsSummary(context.Background())
		assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	})
}

func TestFetchListingDetail(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/42", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("questions"))
		_, _ = io.WriteString(w, `{
			"id": 42, "title": "Engineer", "content": "<p>hi</p>",
			"offices": [{"name":"Remote"}], "departments": [],
			"questions": [{"label":"Resume","required":true,"fields":[{"name":"resume","type":"input_file"}]}]
		}`)
	}))

	job, err := c.FetchListingDetail(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, domain.JobID("42"), job.ID)
	assert.Equal(t, "Engineer", job.Title)
	assert.JSONEq(t, `[{"name":"Remote"}]`, string(job.Offices))
	require.Len(t, job.Questions, 1)
	assert.Equal(t, "resume", job.Questions[0].Fields[0]["name"])
}

func TestSubmitApplication(t *testing.T) {
	t.Run("Relays fields and files with basic auth", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/jobs/42", r.URL.Path)
			assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("secret-key")), r.Header.Get("Authorization"))

			if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			assert.Equal(t, "42", r.FormValue("id"))
			assert.Equal(t, "Ada", r.FormValue("first_name"))
			assert.Equal(t, []string{"x", "y"}, r.MultipartForm.Value["tags"])

			fh := r.MultipartForm.File["resume"]
			if assert.Len(t, fh, 1) {
				assert.Equal(t, "cv.pdf", fh[0].Filename)
				assert.Equal(t, "application/pdf", fh[0].Header.Get("Content-Type"))
				f, err := fh[0].Open()
				if assert.NoError(t, err) {
					data, _ := io.ReadAll(f)
					assert.Equal(t, "%PDF-1.4 body", string(data))
				}
			}

			w.WriteHeader(http.StatusOK)
		}))

		sub := &domain.Submission{
			Fields: []domain.FormField{
				{Name: "id", Values: []string{"42"}},
				{Name: "first_name", Values: []string{"Ada"}},
				{Name: "tags", Values: []string{"x", "y"}},
			},
			Attachments: []domain.Attachment{stringAttachment("resume", "cv.pdf", "%PDF-1.4 body")},
		}

		require.NoError(t, c.SubmitApplication(context.Background(), sub))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("Non 200 is a submission failure", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"status":"queued"}`)
		}))

		err := c.SubmitApplication(context.Background(), &domain.Submission{
			Fields: []domain.FormField{{Name: "id", Values: []string{"42"}}},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSubmissionFailed)

		var subErr *domain.SubmissionError
		require.True(t, errors.As(err, &subErr))
		assert.Equal(t, http.StatusCreated, subErr.StatusCode)
		assert.Contains(t, subErr.Body, "queued")
	})

	t.Run("Unreadable attachment is a submission failure", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		}))

		broken := domain.Attachment{
			Field:    "resume",
			Filename: "cv.pdf",
			Open:     func() (io.ReadCloser, error) { return nil, errors.New("temp file gone") },
		}
		err := c.SubmitApplication(context.Background(), &domain.Submission{
			Fields:      []domain.FormField{{Name: "id", Values: []string{"42"}}},
			Attachments: []domain.Attachment{broken},
		})
		assert.ErrorIs(t, err, domain.ErrSubmissionFailed)
	})
}

func stringAttachment(field, name, body string) domain.Attachment {
	return domain.Attachment{
		Field:    field,
		Filename: name,
		Size:     int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}
