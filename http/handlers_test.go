package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adsales/db"
	"adsales/ml"
	"adsales/monitoring"
	"adsales/pipeline"
)

type testEnv struct {
	handler http.Handler
	api     *API
}

type envConfig struct {
	api    APIConfig
	server ServerConfig
	reg    *prometheus.Registry
}

type envOption func(*envConfig)

func withHistory(t *testing.T) envOption {
	return func(c *envConfig) {
		history, err := db.OpenHistory(filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		t.Cleanup(func() { history.Close() })
		c.api.History = history
	}
}

func withMetrics() envOption {
	return func(c *envConfig) {
		c.api.Metrics = promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
	}
}

func withMaxUpload(n int64) envOption {
	return func(c *envConfig) {
		c.api.MaxUploadBytes = n
		c.server.MaxUploadBytes = n
	}
}

func withCacheSize(n int) envOption {
	return func(c *envConfig) {
		c.api.DownloadCacheSize = n
	}
}

// newTestEnv 使用线性模型 2 + 0.5·TV + 1·Radio - 1·Newspaper
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	schema, err := ml.NewFeatureSchema([]string{"TV", "Radio", "Newspaper"})
	require.NoError(t, err)
	artifacts := &ml.Artifacts{
		Predictor: &ml.LinearRegression{Intercept: 2, Coefficients: []float64{0.5, 1, -1}},
		Schema:    schema,
	}

	cfg := &envConfig{server: DefaultServerConfig(), reg: prometheus.NewRegistry()}
	cfg.api = APIConfig{
		Service: pipeline.NewService(artifacts, zap.NewNop(), monitoring.NewMetrics(cfg.reg)),
		Logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	api, err := NewAPI(cfg.api)
	require.NoError(t, err)
	return &testEnv{
		handler: NewHandler(cfg.server, api, zap.NewNop()),
		api:     api,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func multipartUpload(t *testing.T, target, csvBody string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "advertising.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csvBody))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload), "body: %s", w.Body.String())
	return payload
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSchemaHandler(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/schema", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"features":["TV","Radio","Newspaper"],"model_kind":"linear"}`, w.Body.String())
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "<title>Advertising Sales Prediction</title>")
	assert.Contains(t, body, "1) Batch prediction (CSV upload)")
	assert.Contains(t, body, "2) Single prediction (manual input)")
	assert.Contains(t, body, "(TV, Radio, Newspaper)")
	for _, name := range []string{"TV", "Radio", "Newspaper"} {
		assert.Contains(t, body, `name="`+name+`" value="0.0"`)
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryHandler(t *testing.T) {
	env := newTestEnv(t, withHistory(t))

	w := env.do(multipartUpload(t, "/api/predict/batch", "TV,Radio,Newspaper\n100,20,5\n10,0,0\n"))
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(multipartUpload(t, "/api/predict/batch", "TV\n1\n"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	req := httptest.NewRequest(http.MethodPost, "/api/predict/single", strings.NewReader(`{"TV":100}`))
	w = env.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/history?limit=10", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Runs  []db.Run `json:"runs"`
		Count int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, 3, payload.Count)

	single := payload.Runs[0]
	assert.Equal(t, pipeline.ModeSingle, single.Mode)
	assert.Equal(t, pipeline.StatusOK, single.Status)
	require.NotNil(t, single.Prediction)
	assert.InDelta(t, 52.0, *single.Prediction, 1e-9)

	missing := payload.Runs[1]
	assert.Equal(t, pipeline.StatusMissingColumns, missing.Status)
	assert.Equal(t, []string{"Radio", "Newspaper"}, missing.Missing)

	batch := payload.Runs[2]
	assert.Equal(t, pipeline.ModeBatch, batch.Mode)
	assert.Equal(t, 2, batch.Rows)
	assert.Nil(t, batch.Prediction)
}

func TestHistoryHandlerLimit(t *testing.T) {
	env := newTestEnv(t, withHistory(t))

	for _, limit := range []string{"0", "-1", "abc", "1001"} {
		w := env.do(httptest.NewRequest(http.MethodGet, "/api/history?limit="+limit, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

func TestHistoryDisabled(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/history", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, withMetrics())

	w := env.do(multipartUpload(t, "/api/predict/batch", "TV,Radio,Newspaper\n1,2,3\n"))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `adsales_predictions_total{mode="batch",status="ok"} 1`)
	assert.Contains(t, body, `adsales_predicted_rows_total{mode="batch"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
