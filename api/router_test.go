package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/webagent/cache"
	"github.com/use-agent/webagent/config"
	"github.com/use-agent/webagent/models"
	"github.com/use-agent/webagent/promptlog"
)

type fakeAgent struct {
	mu    sync.Mutex
	runs  int
	err   error
	tasks []string
}

func (a *fakeAgent) Run(_ context.Context, task string) (*models.AggregateResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs++
	a.tasks = append(a.tasks, task)
	if a.err != nil {
		return nil, a.err
	}
	return &models.AggregateResult{
		ID:          "run-1",
		Task:        task,
		Analysis:    "1. fact",
		Sources:     []string{"https://a.example"},
		Screenshots: []models.Screenshot{},
	}, nil
}

func (a *fakeAgent) AnalyzeURL(_ context.Context, u, task string) (*models.AggregateResult, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &models.AggregateResult{Task: task, Analysis: "page facts", Sources: []string{u}}, nil
}

type fakePool struct{ stats models.PoolStats }

func (p fakePool) Stats() models.PoolStats { return p.stats }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Mode = gin.TestMode
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"secret"}
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000}
	return cfg
}

func newTestRouter(t *testing.T, cfg *config.Config, d Deps) *gin.Engine {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if d.StartTime.IsZero() {
		d.StartTime = time.Now()
	}
	return NewRouter(ctx, cfg, d)
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthNoAuth(t *testing.T) {
	r := newTestRouter(t, testConfig(), Deps{Agent: &fakeAgent{}, Pool: fakePool{models.PoolStats{MaxPages: 5, ActivePages: 5}}, Version: "1.2.3"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	require.NotNil(t, resp.PoolStats)
	assert.Equal(t, 5, resp.PoolStats.ActivePages)
}

func TestHealthWithoutBrowser(t *testing.T) {
	r := newTestRouter(t, testConfig(), Deps{Agent: &fakeAgent{}})
	w := do(r, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "pool_stats")
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestAuth(t *testing.T) {
	r := newTestRouter(t, testConfig(), Deps{Agent: &fakeAgent{}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/task", strings.NewReader(`{"task":"abc"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeUnauthorized)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/task", strings.NewReader(`{"task":"abc"}`))
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/task", strings.NewReader(`{"task":"abc"}`))
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTaskSuccessAndCache(t *testing.T) {
	ag := &fakeAgent{}
	cc := cache.New(10, time.Minute)
	defer cc.Close()
	store := promptlog.NewMemory()
	r := newTestRouter(t, testConfig(), Deps{Agent: ag, Cache: cc, Prompts: store})

	w := do(r, http.MethodPost, "/api/v1/task", `{"task":"  best pizza in Naples  "}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "miss", w.Header().Get("X-Cache"))

	var resp models.TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "best pizza in Naples", resp.Data.Task)
	assert.Equal(t, []string{"https://a.example"}, resp.Data.Sources)

	w = do(r, http.MethodPost, "/api/v1/task", `{"task":"Best pizza in naples"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hit", w.Header().Get("X-Cache"))
	assert.Equal(t, 1, ag.runs)

	w = do(r, http.MethodPost, "/api/v1/task", `{"task":"best pizza in naples","max_age":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, ag.runs, "max_age 0 bypasses the cache")

	logged, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, logged, 3)
}

func TestTaskValidation(t *testing.T) {
	ag := &fakeAgent{}
	r := newTestRouter(t, testConfig(), Deps{Agent: ag})

	for _, body := range []string{`{}`, `{"task":"  a  "}`, `not json`, `{"task":"` + strings.Repeat("x", 501) + `"}`} {
		w := do(r, http.MethodPost, "/api/v1/task", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), models.ErrCodeInvalidInput)
	}
	assert.Equal(t, 0, ag.runs)
}

func TestTaskErrorStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{models.ErrCodeNoInformation, http.StatusNotFound},
		{models.ErrCodeSummarizationFailure, http.StatusBadGateway},
		{models.ErrCodeConfigMissing, http.StatusServiceUnavailable},
		{models.ErrCodeRateLimited, http.StatusTooManyRequests},
		{models.ErrCodeTimeout, http.StatusGatewayTimeout},
		{models.ErrCodeLLMFailure, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			ag := &fakeAgent{err: models.NewAgentError(tt.code, "boom", nil)}
			r := newTestRouter(t, testConfig(), Deps{Agent: ag})

			w := do(r, http.MethodPost, "/api/v1/task", `{"task":"some task"}`)
			assert.Equal(t, tt.status, w.Code)

			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, "boom", resp.Error)
		})
	}
}

func TestAnalyze(t *testing.T) {
	r := newTestRouter(t, testConfig(), Deps{Agent: &fakeAgent{}})

	w := do(r, http.MethodPost, "/api/v1/analyze", `{"url":"https://a.example/x","task":"what is here"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "page facts")

	w = do(r, http.MethodPost, "/api/v1/analyze", `{"task":"what is here"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPrompts(t *testing.T) {
	store := promptlog.NewMemory()
	r := newTestRouter(t, testConfig(), Deps{Agent: &fakeAgent{}, Prompts: store})

	for _, p := range []string{"one", "two", "three"} {
		w := do(r, http.MethodPost, "/api/v1/prompts", `{"prompt":"`+p+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())
	}

	w := do(r, http.MethodGet, "/api/v1/prompts?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.PromptsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Prompts, 2)
	assert.Equal(t, "three", resp.Prompts[0].Prompt)
	assert.NotEmpty(t, resp.Prompts[0].ClientIP)

	for _, q := range []string{"0", "101", "abc"} {
		w = do(r, http.MethodGet, "/api/v1/prompts?limit="+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestPromptsDisabled(t *testing.T) {
	r := newTestRouter(t, testConfig(), Deps{Agent: &fakeAgent{}})
	w := do(r, http.MethodGet, "/api/v1/prompts", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeConfigMissing)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}
	r := newTestRouter(t, cfg, Deps{Agent: &fakeAgent{}})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(r, http.MethodPost, "/api/v1/task", `{"task":"some task"}`).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
