package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/zcheck/blogpipe/internal/kv"
	"github.com/zcheck/blogpipe/internal/pipeline"
	"github.com/zcheck/blogpipe/internal/runs"
	"github.com/zcheck/blogpipe/pkg/middleware"
)

type fakeJobs struct {
	genErr   error
	genCalls int
	today    *pipeline.TodayData
	runs     []*runs.Run
	limit    int
}

func (f *fakeJobs) AutoGenerate(context.Context) (*pipeline.GenerateResult, error) {
	f.genCalls++
	if f.genErr != nil {
		return &pipeline.GenerateResult{RunID: "r1", Status: pipeline.StatusFailed, Error: f.genErr.Error()}, f.genErr
	}
	return &pipeline.GenerateResult{RunID: "r1", Status: pipeline.StatusOK, Slug: "kitchen"}, nil
}

func (f *fakeJobs) PublishSocial(context.Context) (*pipeline.SocialResult, error) {
	return &pipeline.SocialResult{RunID: "r2", Status: pipeline.StatusAlreadyPublished}, nil
}

func (f *fakeJobs) Today(context.Context) (*pipeline.TodayData, error) {
	if f.today == nil {
		return nil, kv.ErrNotFound
	}
	return f.today, nil
}

func (f *fakeJobs) Run(_ context.Context, id string) (*runs.Run, error) {
	for _, r := range f.runs {
		if r.RunID == id {
			return r, nil
		}
	}
	return nil, runs.ErrNotFound
}

func (f *fakeJobs) RecentRuns(_ context.Context, limit int) ([]*runs.Run, error) {
	f.limit = limit
	return f.runs, nil
}

func cronRouter(jobs Jobs) *gin.Engine {
	g := gin.New()
	RegisterCronRoutes(g, jobs, middleware.SecretAuth(middleware.Secret{Name: "cron", Value: "s3cret"}))
	return g
}

func do(g *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestCron_RequiresSecret(t *testing.T) {
	jobs := &fakeJobs{}
	g := cronRouter(jobs)

	w := do(g, http.MethodPost, "/api/cron/auto-generate", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = do(g, http.MethodPost, "/api/cron/auto-generate", "wrong")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Zero(t, jobs.genCalls)
}

func TestCron_AutoGenerateAcceptsGetAndPost(t *testing.T) {
	jobs := &fakeJobs{}
	g := cronRouter(jobs)

	for _, m := range []string{http.MethodGet, http.MethodPost} {
		w := do(g, m, "/api/cron/auto-generate", "s3cret")
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Success bool                    `json:"success"`
			Result  pipeline.GenerateResult `json:"result"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.True(t, body.Success)
		require.Equal(t, "kitchen", body.Result.Slug)
	}
	require.Equal(t, 2, jobs.genCalls)
}

func TestCron_FailedRunIs500(t *testing.T) {
	g := cronRouter(&fakeJobs{genErr: errors.New("generate content: boom")})

	w := do(g, http.MethodPost, "/api/cron/auto-generate", "s3cret")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "boom")
	require.Contains(t, w.Body.String(), `"status":"failed"`)
}

func TestCron_PublishSocial(t *testing.T) {
	g := cronRouter(&fakeJobs{})
	w := do(g, http.MethodPost, "/api/cron/publish-social", "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), pipeline.StatusAlreadyPublished)
}

func TestCron_Today(t *testing.T) {
	jobs := &fakeJobs{}
	g := cronRouter(jobs)

	w := do(g, http.MethodGet, "/api/cron/today", "s3cret")
	require.Equal(t, http.StatusNotFound, w.Code)

	jobs.today = &pipeline.TodayData{Slug: "kitchen", PublishedDate: "2025-07-01"}
	w = do(g, http.MethodGet, "/api/cron/today", "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"published_date":"2025-07-01"`)
}

func TestCron_Runs(t *testing.T) {
	jobs := &fakeJobs{runs: []*runs.Run{{RunID: "r1", Job: pipeline.JobAutoGenerate, Status: pipeline.StatusOK}}}
	g := cronRouter(jobs)

	w := do(g, http.MethodGet, "/api/cron/runs", "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, defaultRunsLimit, jobs.limit)

	w = do(g, http.MethodGet, "/api/cron/runs?limit=5", "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 5, jobs.limit)

	w = do(g, http.MethodGet, "/api/cron/runs?limit=zero", "s3cret")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, http.MethodGet, "/api/cron/runs/r1", "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), pipeline.JobAutoGenerate)

	w = do(g, http.MethodGet, "/api/cron/runs/missing", "s3cret")
	require.Equal(t, http.StatusNotFound, w.Code)
}
