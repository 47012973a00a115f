package v1_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/pauldariye/greenhouse-proxy-server/config"
	"github.com/pauldariye/greenhouse-proxy-server/internal/delivery/http/middleware"
	v1 "github.com/pauldariye/greenhouse-proxy-server/internal/delivery/http/v1"
	"github.com/pauldariye/greenhouse-proxy-server/internal/repository/greenhouse"
	"github.com/pauldariye/greenhouse-proxy-server/internal/repository/memory"
	"github.com/pauldariye/greenhouse-proxy-server/internal/usecase"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/cache"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBoard is an in-process Greenhouse job board.
type fakeBoard struct {
	mu          sync.Mutex
	down        bool
	rejectPosts bool
	summaryHits int
	posts       []*multipart.Form
	postPaths   []string
}

func (b *fakeBoard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.down {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/board":
		b.summaryHits++
		_, _ = io.WriteString(w, `{"jobs":[{"id":1},{"id":2}]}`)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/board/"):
		id := strings.TrimPrefix(r.URL.Path, "/board/")
		_, _ = io.WriteString(w, `{"id":`+id+`,"title":"Job `+id+`","content":"<p>`+id+`</p>",
			"offices":[{"name":"Remote"}],"departments":[{"name":"Eng"}],
			"questions":[{"label":"First Name","required":true,"fields":[{"name":"first_name","type":"input_text"}]}]}`)
	case r.Method == http.MethodPost:
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.posts = append(b.posts, r.MultipartForm)
		b.postPaths = append(b.postPaths, r.URL.Path)
		if b.rejectPosts {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"error":"invalid"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":"Candidate saved successfully"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *fakeBoard) summaryCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.summaryHits
}

func (b *fakeBoard) postCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.posts)
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:            "development",
		PaginationLimit:        4,
		RateLimitWindowSeconds: 900,
		RateLimitMax:           1000,
		CORSAllowedOrigins:     []string{"*"},
		CSRFEnabled:            false,
		MaxUploadBytes:         1 << 20,
	}
}

func newTestRouter(t *testing.T, board *fakeBoard, cfg *config.Config) *gin.Engine {
	t.Helper()
	srv := httptest.NewServer(board)
	t.Cleanup(srv.Close)

	listingCache := memory.NewListingCache(cache.New())
	repo := greenhouse.NewClient(greenhouse.Config{BoardURL: srv.URL + "/board", APIKey: "key"}, srv.Client())

	return v1.NewRouter(v1.RouterDeps{
		ListingUC:     usecase.NewListingUsecase(repo, listingCache, cfg.PaginationLimit),
		ApplicationUC: usecase.NewApplicationUsecase(repo, validation.New(), nil, true),
		HealthUC:      usecase.NewHealthUsecase(listingCache, nil),
		Config:        cfg,
	})
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

type filePart struct {
	field, filename, content string
}

func multipartRequest(t *testing.T, path string, fields [][2]string, files ...filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		require.NoError(t, mw.WriteField(f[0], f[1]))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = io.WriteString(part, f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func validFields() [][2]string {
	return [][2]string{
		{"id", "42"},
		{"first_name", "Ada"},
		{"last_name", "Lovelace"},
		{"email", "ada@example.com"},
	}
}

func TestListListingsEndpoint(t *testing.T) {
	t.Run("Cold cache fetches and transforms", func(t *testing.T) {
		board := &fakeBoard{}
		r := newTestRouter(t, board, testConfig())

		w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)

		body := decode(t, w)
		listings := body["listings"].([]any)
		require.Len(t, listings, 2)

		first := listings[0].(map[string]any)
		assert.Equal(t, float64(1), first["id"])
		assert.Equal(t, "Job 1", first["title"])
		questions := first["questions"].([]any)
		require.Len(t, questions, 1)
		q := questions[0].(map[string]any)
		assert.Equal(t, "", q["value"])
		assert.Equal(t, "first_name", q["name"])
		assert.Equal(t, "First Name", q["label"])
	})

	t.Run("Warm cache skips upstream", func(t *testing.T) {
		board := &fakeBoard{}
		r := newTestRouter(t, board, testConfig())

		do(r, httptest.NewRequest(http.MethodGet, "/", nil))
		w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, board.summaryCount())
	})

	t.Run("Upstream down is no_gh_jobs", func(t *testing.T) {
		r := newTestRouter(t, &fakeBoard{down: true}, testConfig())

		w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "no_gh_jobs", body["error"])
	})
}

func TestGetJobEndpoint(t *testing.T) {
	r := newTestRouter(t, &fakeBoard{}, testConfig())

	t.Run("Known id", func(t *testing.T) {
		w := do(r, httptest.NewRequest(http.MethodGet, "/job/2", nil))
		require.Equal(t, http.StatusOK, w.Code)

		job := decode(t, w)["job"].(map[string]any)
		assert.Equal(t, float64(2), job["id"])
		assert.Equal(t, "Job 2", job["title"])
	})

	t.Run("Unknown id", func(t *testing.T) {
		w := do(r, httptest.NewRequest(http.MethodGet, "/job/999", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		body := decode(t, w)
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "job_not_found", body["error"])
	})

	t.Run("Upstream failure is not found", func(t *testing.T) {
		r := newTestRouter(t, &fakeBoard{down: true}, testConfig())
		w := do(r, httptest.NewRequest(http.MethodGet, "/job/1", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "job_not_found", decode(t, w)["error"])
	})
}

func TestApplyEndpoint(t *testing.T) {
	t.Run("Valid submission is relayed", func(t *testing.T) {
		board := &fakeBoard{}
		r := newTestRouter(t, board, testConfig())

		req := multipartRequest(t, "/job/42", validFields(),
			filePart{"resume", "cv.pdf", "%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"})
		w := do(r, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, "Ada", body["first_name"])
		assert.Equal(t, "ada@example.com", body["email"])

		require.Equal(t, 1, board.postCount())
		assert.Equal(t, "/board/42", board.postPaths[0])
		form := board.posts[0]
		assert.Equal(t, []string{"Lovelace"}, form.Value["last_name"])
		require.Len(t, form.File["resume"], 1)
		assert.Equal(t, "cv.pdf", form.File["resume"][0].Filename)
	})

	t.Run("Urlencoded submission is relayed", func(t *testing.T) {
		board := &fakeBoard{}
		r := newTestRouter(t, board, testConfig())

		form := url.Values{}
		for _, f := range validFields() {
			form.Set(f[0], f[1])
		}
		req := httptest.NewRequest(http.MethodPost, "/job/42", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := do(r, req)

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, 1, board.postCount())
	})

	t.Run("Missing email never reaches upstream", func(t *testing.T) {
		board := &fakeBoard{}
		r := newTestRouter(t, board, testConfig())

		fields := validFields()[:3]
		w := do(r, multipartRequest(t, "/job/42", fields))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "missing_email", decode(t, w)["error"])
		assert.Equal(t, 0, board.postCount())
	})

	t.Run("Empty body", func(t *testing.T) {
		board := &fakeBoard{}
		r := newTestRouter(t, board, testConfig())

		w := do(r, httptest.NewRequest(http.MethodPost, "/job/42", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_request", decode(t, w)["error"])
		assert.Equal(t, 0, board.postCount())
	})

	t.Run("Unsupported content type", func(t *testing.T) {
		r := newTestRouter(t, &fakeBoard{}, testConfig())

		req := httptest.NewRequest(http.MethodPost, "/job/42", strings.NewReader(`{"id":42}`))
		req.Header.Set("Content-Type", "application/json")
		w := do(r, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_request", decode(t, w)["error"])
	})

	t.Run("Disallowed attachment", func(t *testing.T) {
		board := &fakeBoard{}
		r := newTestRouter(t, board, testConfig())

		req := multipartRequest(t, "/job/42", validFields(), filePart{"resume", "cv.exe", "MZ\x90\x00"})
		w := do(r, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_attachment", decode(t, w)["error"])
		assert.Equal(t, 0, board.postCount())
	})

	t.Run("Upstream rejection is missing_fields", func(t *testing.T) {
		board := &fakeBoard{rejectPosts: true}
		r := newTestRouter(t, board, testConfig())

		w := do(r, multipartRequest(t, "/job/42", validFields()))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Equal(t, "missing_fields", body["error"])
		assert.Contains(t, body["message"], "42")
		assert.Equal(t, 1, board.postCount())
	})

	t.Run("Oversized body", func(t *testing.T) {
		board := &fakeBoard{}
		cfg := testConfig()
		cfg.MaxUploadBytes = 512
		r := newTestRouter(t, board, cfg)

		req := multipartRequest(t, "/job/42", validFields(),
			filePart{"resume", "cv.txt", strings.Repeat("a", 4096)})
		w := do(r, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_request", decode(t, w)["error"])
		assert.Equal(t, 0, board.postCount())
	})
}

func TestCSRF(t *testing.T) {
	cfg := testConfig()
	cfg.CSRFEnabled = true

	t.Run("Post without token is rejected", func(t *testing.T) {
		board := &fakeBoard{}
		r := newTestRouter(t, board, cfg)

		w := do(r, multipartRequest(t, "/job/42", validFields()))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "invalid_csrf_token", decode(t, w)["error"])
		assert.Equal(t, 0, board.postCount())
	})

	t.Run("Token from cookie in header", func(t *testing.T) {
		board := &fakeBoard{}
		r := newTestRouter(t, board, cfg)

		get := do(r, httptest.NewRequest(http.MethodGet, "/job/1", nil))
		cookies := get.Result().Cookies()
		require.NotEmpty(t, cookies)
		token := cookies[0].Value
		assert.Equal(t, middleware.CSRFTokenCookieName, cookies[0].Name)
		assert.Equal(t, token, get.Header().Get(middleware.CSRFTokenHeaderName))

		req := multipartRequest(t, "/job/42", validFields())
		req.AddCookie(cookies[0])
		req.Header.Set(middleware.CSRFTokenHeaderName, token)
		w := do(r, req)

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, 1, board.postCount())
	})

	t.Run("Token in form field is not relayed", func(t *testing.T) {
		board := &fakeBoard{}
		r := newTestRouter(t, board, cfg)

		cookie := &http.Cookie{Name: middleware.CSRFTokenCookieName, Value: "tok"}
		fields := append(validFields(), [2]string{middleware.CSRFTokenFormField, "tok"})
		req := multipartRequest(t, "/job/42", fields)
		req.AddCookie(cookie)
		w := do(r, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		assert.NotContains(t, body, middleware.CSRFTokenFormField)
		require.Equal(t, 1, board.postCount())
		assert.NotContains(t, board.posts[0].Value, middleware.CSRFTokenFormField)
	})

	t.Run("Mismatched token", func(t *testing.T) {
		r := newTestRouter(t, &fakeBoard{}, cfg)

		req := multipartRequest(t, "/job/42", validFields())
		req.AddCookie(&http.Cookie{Name: middleware.CSRFTokenCookieName, Value: "tok"})
		req.Header.Set(middleware.CSRFTokenHeaderName, "other")
		w := do(r, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitMax = 2
	r := newTestRouter(t, &fakeBoard{}, cfg)

	for i := 0; i < 2; i++ {
		w := do(r, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := do(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", decode(t, w)["error"])
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestBoundary(t *testing.T) {
	r := newTestRouter(t, &fakeBoard{}, testConfig())

	t.Run("Unknown route", func(t *testing.T) {
		w := do(r, httptest.NewRequest(http.MethodGet, "/nope", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", decode(t, w)["error"])
	})

	t.Run("Health", func(t *testing.T) {
		w := do(r, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, "disabled", body["redis"])
	})

	t.Run("Response headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://careers.example.com")
		w := do(r, req)

		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}
