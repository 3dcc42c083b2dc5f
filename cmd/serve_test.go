package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/craftline/outreach-cli/internal/config"
	"github.com/craftline/outreach-cli/internal/dedup"
	"github.com/craftline/outreach-cli/internal/gate"
	"github.com/craftline/outreach-cli/internal/jobs"
	"github.com/craftline/outreach-cli/internal/model"
	"github.com/craftline/outreach-cli/internal/pipeline"
	"github.com/craftline/outreach-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestEnv(t *testing.T) *appEnv {
	t.Helper()

	cfg = &config.Config{
		Server: config.ServerConfig{Port: 8080, AllowedOrigins: []string{"*"}},
		Jobs:   config.JobsConfig{MaxConcurrentItems: 2, MaxClaimPerRun: 50},
	}

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	return &appEnv{
		Store:      st,
		Resolver:   dedup.NewResolver(st),
		Gate:       gate.New(st),
		Dispatcher: jobs.NewDispatcher(st, cfg.Jobs),
		Aggregator: pipeline.NewAggregator(st),
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	router := newRouter(newTestEnv(t))

	rr := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestPipelineStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	router := newRouter(env)

	rr := doJSON(t, router, http.MethodGet, "/api/pipeline/status", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Stages []model.StageSnapshot `json:"stages"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Stages, len(model.StageOrder))
	assert.Equal(t, model.StageActive, body.Stages[0].State)
}

func TestPipelineStatusEndpoint_Unprovisioned(t *testing.T) {
	env := newTestEnv(t)
	// A bare store without schema behaves like a fresh install.
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "bare.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	env.Aggregator = pipeline.NewAggregator(st)

	rr := doJSON(t, newRouter(env), http.MethodGet, "/api/pipeline/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestJobSubmitEndpoint_ValidationError(t *testing.T) {
	router := newRouter(newTestEnv(t))

	rr := doJSON(t, router, http.MethodPost, "/api/jobs", map[string]any{"type": "nonsense"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unknown job type")
}

func TestJobSubmitEndpoint_AutomationPaused(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.Store.SetAutomation(context.Background(), false))

	rr := doJSON(t, newRouter(env), http.MethodPost, "/api/jobs", map[string]any{"type": "scrape"})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestJobGetEndpoint_NotFound(t *testing.T) {
	router := newRouter(newTestEnv(t))

	rr := doJSON(t, router, http.MethodGet, "/api/jobs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLeadsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	router := newRouter(env)
	ctx := context.Background()

	lead := &model.Lead{SourceType: model.SourceWebsite, NaturalKey: "acme.com"}
	require.NoError(t, env.Store.CreateLead(ctx, lead))

	rr := doJSON(t, router, http.MethodGet, "/api/leads", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var listBody struct {
		Leads []model.Lead `json:"leads"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listBody))
	require.Len(t, listBody.Leads, 1)

	rr = doJSON(t, router, http.MethodPost, "/api/leads/approve", map[string]any{"ids": []string{lead.ID}})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"affected":1`)

	got, err := env.Store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, got.ApprovalStatus)
}

func TestGateEndpoint_RequiresIDs(t *testing.T) {
	router := newRouter(newTestEnv(t))

	rr := doJSON(t, router, http.MethodPost, "/api/leads/approve", map[string]any{"ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	router := newRouter(env)

	rr := doJSON(t, router, http.MethodPut, "/api/settings/automation", map[string]any{"enabled": false})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/settings", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var settings model.Settings
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &settings))
	assert.False(t, settings.AutomationEnabled)
}
