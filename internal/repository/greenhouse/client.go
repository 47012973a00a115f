package greenhouse

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/pauldariye/greenhouse-proxy-server/internal/domain"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/logger"

	"golang.org/x/time/rate"
)

// maxErrorBody caps how much of a failed upstream response is kept for errors.
const maxErrorBody = 2048

// Config holds the upstream job board settings.
type Config struct {
	BoardURL string // e.g. https://boards-api.greenhouse.io/v1/boards/{board}/jobs
	APIKey   string
	Timeout  time.Duration // 0 = no client timeout
	MaxRPS   int           // 0 = unlimited
}

type client struct {
	boardURL string
	authz    string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient builds a Greenhouse job board client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) domain.JobBoardRepository {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	var limiter *rate.Limiter
	if cfg.MaxRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), cfg.MaxRPS)
	}

	return &client{
		boardURL: strings.TrimRight(cfg.BoardURL, "/"),
		// The API key is the whole Basic credential, no user:password split
		authz:   "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.APIKey)),
		http:    httpClient,
		limiter: limiter,
	}
}

type summaryResponse struct {
	Jobs *[]domain.JobSummary `json:"jobs"`
}

func (c *client) FetchListingsSummary(ctx context.Context) ([]domain.JobSummary, error) {
	var body summaryResponse
	if err := c.getJSON(ctx, c.boardURL, &body); err != nil {
		return nil, err
	}
	if body.Jobs == nil {
		return nil, fmt.Errorf("%w: response has no jobs", domain.ErrNoData)
	}
	return *body.Jobs, nil
}

func (c *client) FetchListingDetail(ctx context.Context, id domain.JobID) (*domain.RawJob, error) {
	var job domain.RawJob
	if err := c.getJSON(ctx, c.jobURL(id)+"?questions=true", &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// SubmitApplication streams the submission as multipart/form-data to
// "{board}/{id}". Only an exact 200 counts as success.
func (c *client) SubmitApplication(ctx context.Context, sub *domain.Submission) error {
	id := sub.JobID()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, sub))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.jobURL(id), pr)
	if err != nil {
		pr.Close()
		return &domain.SubmissionError{JobID: id, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", c.authz)

	if err := c.wait(ctx); err != nil {
		pr.Close()
		return &domain.SubmissionError{JobID: id, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.SubmissionError{JobID: id, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.Log.Warn("Upstream rejected application",
			"job_id", id.String(), "status", resp.StatusCode)
		return &domain.SubmissionError{
			JobID:      id,
			StatusCode: resp.StatusCode,
			Body:       string(excerpt),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *client) jobURL(id domain.JobID) string {
	return c.boardURL + "/" + url.PathEscape(id.String())
}

func (c *client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *client) getJSON(ctx context.Context, target string, dst any) error {
	if err := c.wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", domain.ErrUpstreamUnavailable, target, err)
	}
	defer resp.Body.Close()

	logger.Log.Debug("Upstream request",
		"url", target, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: GET %s: status %d", domain.ErrUpstreamUnavailable, target, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s: %w", domain.ErrUpstreamUnavailable, target, err)
	}
	return nil
}

func writeMultipart(mw *multipart.Writer, sub *domain.Submission) error {
	for _, f := range sub.Fields {
		for _, v := range f.Values {
			if err := mw.WriteField(f.Name, v); err != nil {
				return err
			}
		}
	}
	for _, a := range sub.Attachments {
		if err := writeFilePart(mw, a); err != nil {
			return fmt.Errorf("attachment %s: %w", a.Field, err)
		}
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(mw *multipart.Writer, a domain.Attachment) error {
	src, err := a.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(a.Filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(a.Field), quoteEscaper.Replace(filepath.Base(a.Filename))))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}
