package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixfetch/pixfetch/internal/broadcast"
	"github.com/pixfetch/pixfetch/internal/domain"
	"github.com/pixfetch/pixfetch/internal/scheduler"
	"github.com/pixfetch/pixfetch/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubJobService implements JobService with per-test function hooks.
type stubJobService struct {
	submitFn       func(ctx context.Context, rawURL, keyword string) (*domain.Job, error)
	getFn          func(id string) (*domain.Job, error)
	listFn         func() []*domain.Job
	abortFn        func(id string) (*domain.Job, error)
	deleteFn       func(ctx context.Context, id string) error
	subscribeFn    func(id string) (*broadcast.Subscription, error)
	historyFn      func(ctx context.Context) ([]domain.HistoryEntry, error)
	clearHistoryFn func(ctx context.Context) error
}

func (s *stubJobService) Submit(ctx context.Context, rawURL, keyword string) (*domain.Job, error) {
	return s.submitFn(ctx, rawURL, keyword)
}

func (s *stubJobService) Get(id string) (*domain.Job, error) { return s.getFn(id) }

func (s *stubJobService) List() []*domain.Job { return s.listFn() }

func (s *stubJobService) Abort(id string) (*domain.Job, error) { return s.abortFn(id) }

func (s *stubJobService) Delete(ctx context.Context, id string) error { return s.deleteFn(ctx, id) }

func (s *stubJobService) Subscribe(id string) (*broadcast.Subscription, error) {
	return s.subscribeFn(id)
}

func (s *stubJobService) History(ctx context.Context) ([]domain.HistoryEntry, error) {
	return s.historyFn(ctx)
}

func (s *stubJobService) ClearHistory(ctx context.Context) error { return s.clearHistoryFn(ctx) }

func testRouter(jobs JobService) http.Handler {
	h := NewJobHandler(jobs, testLogger())
	r := chi.NewRouter()
	r.Post("/api/scrape", h.Submit)
	r.Get("/api/jobs", h.List)
	r.Get("/api/jobs/{jobID}", h.Get)
	r.Post("/api/abort/{jobID}", h.Abort)
	r.Delete("/api/jobs/{jobID}", h.Delete)
	r.Get("/api/history", h.History)
	r.Delete("/api/history", h.ClearHistory)
	return r
}

func testJob(id string, status domain.Status) *domain.Job {
	return &domain.Job{
		ID:        id,
		URL:       "https://example.com",
		Keyword:   "cats",
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}

func TestSubmitAccepted(t *testing.T) {
	jobs := &stubJobService{
		submitFn: func(ctx context.Context, rawURL, keyword string) (*domain.Job, error) {
			assert.Equal(t, "https://example.com", rawURL)
			assert.Equal(t, "cats", keyword)
			return testJob("job-1", domain.StatusRunning), nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/scrape",
		strings.NewReader(`{"url":"https://example.com","keyword":"cats"}`))
	rec := httptest.NewRecorder()
	testRouter(jobs).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, "running", resp.Status)
}

func TestSubmitInvalidBody(t *testing.T) {
	jobs := &stubJobService{}

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	testRouter(jobs).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitMissingURL(t *testing.T) {
	jobs := &stubJobService{}

	req := httptest.NewRequest(http.MethodPost, "/api/scrape",
		strings.NewReader(`{"keyword":"cats"}`))
	rec := httptest.NewRecorder()
	testRouter(jobs).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitInvalidURL(t *testing.T) {
	jobs := &stubJobService{
		submitFn: func(ctx context.Context, rawURL, keyword string) (*domain.Job, error) {
			return nil, domain.ErrInvalidURL
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/scrape",
		strings.NewReader(`{"url":"not-a-url"}`))
	rec := httptest.NewRecorder()
	testRouter(jobs).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitDuplicateConflict(t *testing.T) {
	jobs := &stubJobService{
		submitFn: func(ctx context.Context, rawURL, keyword string) (*domain.Job, error) {
			return nil, &scheduler.DuplicateError{ExistingID: "job-0"}
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/scrape",
		strings.NewReader(`{"url":"https://example.com"}`))
	rec := httptest.NewRecorder()
	testRouter(jobs).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp DuplicateJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "duplicate", resp.Error)
	assert.Equal(t, "job-0", resp.ExistingJobID)
}

func TestGetJob(t *testing.T) {
	jobs := &stubJobService{
		getFn: func(id string) (*domain.Job, error) {
			require.Equal(t, "job-1", id)
			return testJob("job-1", domain.StatusQueued), nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil)
	rec := httptest.NewRecorder()
	testRouter(jobs).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var job domain.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, domain.StatusQueued, job.Status)
}

func TestGetJobNotFound(t *testing.T) {
	jobs := &stubJobService{
		getFn: func(id string) (*domain.Job, error) {
			return nil, scheduler.ErrJobNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil)
	rec := httptest.NewRecorder()
	testRouter(jobs).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobs(t *testing.T) {
	jobs := &stubJobService{
		listFn: func() []*domain.Job {
			return []*domain.Job{testJob("job-2", domain.StatusRunning), testJob("job-1", domain.StatusCompleted)}
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()
	testRouter(jobs).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "job-2", list[0].ID)
}

func TestAbortJob(t *testing.T) {
	jobs := &stubJobService{
		abortFn: func(id string) (*domain.Job, error) {
			require.Equal(t, "job-1", id)
			return testJob("job-1", domain.StatusAborted), nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/abort/job-1", nil)
	rec := httptest.NewRecorder()
	testRouter(jobs).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "aborted", resp.Status)
}

func TestDeleteJob(t *testing.T) {
	deleted := ""
	jobs := &stubJobService{
		deleteFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/jobs/job-1", nil)
	rec := httptest.NewRecorder()
	testRouter(jobs).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "job-1", deleted)
	var resp DeleteJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestDeleteJobNotFound(t *testing.T) {
	jobs := &stubJobService{
		deleteFn: func(ctx context.Context, id string) error {
			return scheduler.ErrJobNotFound
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/jobs/nope", nil)
	rec := httptest.NewRecorder()
	testRouter(jobs).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistory(t *testing.T) {
	jobs := &stubJobService{
		historyFn: func(ctx context.Context) ([]domain.HistoryEntry, error) {
			return []domain.HistoryEntry{{ID: "job-1", Status: domain.StatusCompleted}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	testRouter(jobs).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var entries []domain.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "job-1", entries[0].ID)
}

func TestHistoryEmptyIsArray(t *testing.T) {
	jobs := &stubJobService{
		historyFn: func(ctx context.Context) ([]domain.HistoryEntry, error) {
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	testRouter(jobs).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestHistoryStoreUnavailable(t *testing.T) {
	jobs := &stubJobService{
		historyFn: func(ctx context.Context) ([]domain.HistoryEntry, error) {
			return nil, store.ErrUnavailable
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	testRouter(jobs).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClearHistory(t *testing.T) {
	cleared := false
	jobs := &stubJobService{
		clearHistoryFn: func(ctx context.Context) error {
			cleared = true
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/history", nil)
	rec := httptest.NewRecorder()
	testRouter(jobs).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, cleared)
}
