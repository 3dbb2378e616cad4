package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioperiant/bp12-tools/internal/adapter/store/csv"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/model"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/reference"
	"github.com/bioperiant/bp12-tools/internal/metrics"
	"github.com/bioperiant/bp12-tools/internal/synth"
	"github.com/bioperiant/bp12-tools/internal/usecase"
)

func newTestRouter(t *testing.T) (*gin.Engine, *metrics.Collector) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	modelDir, dataDir := filepath.Join(dir, "model"), filepath.Join(dir, "data")
	gen := synth.New(synth.RegionalGrid{LatMin: -76, LatMax: -40, LonStart: 73, Resolution: 4, Depths: []float64{5, 50}}, nil)
	_, err := gen.WriteModel(modelDir, "y2003m02", "y2004m02")
	require.NoError(t, err)
	require.NoError(t, gen.WriteReference(dataDir))

	m := metrics.NewCollector("bp12")
	loader := model.NewLoader(modelDir, model.WithObserver(m))
	uc := usecase.NewSeriesUseCase(loader, reference.NewLocalStore(dataDir, nil), csv.NewSeriesStore(dataDir), nil)
	return SetupRouter(NewHandler(uc, loader, m, nil), RouterConfig{}), m
}

func get(t *testing.T, r http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func post(t *testing.T, r http.Handler, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthCheck(t *testing.T) {
	r, _ := newTestRouter(t)
	w := get(t, r, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestCatalogEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w := get(t, r, "/v1/variables/votemper")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Temperature", body["long_name"])
	assert.Equal(t, "gridT", body["category"])

	assert.Equal(t, http.StatusNotFound, get(t, r, "/v1/variables/unknown_var").Code)

	w = get(t, r, "/v1/dates?spec=y2003m02")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["tags"], 5)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/v1/dates?spec=q2003").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/v1/dates").Code)

	w = get(t, r, "/v1/files?var=votemper&dates=y2003m02")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["files"], 5)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/v1/files?var=eke&dates=y2003").Code)

	w = get(t, r, "/v1/observations")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, decode(t, w)["count"])
}

func TestGetSeries(t *testing.T) {
	r, _ := newTestRouter(t)

	w := get(t, r, "/v1/series?var=votemper&dates=y2003m02,y2004m02&biome=16&test=original")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "biome 16", body["region"])
	assert.Len(t, body["points"], 10)
	trend, ok := body["trend"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "original", trend["test"])

	w = get(t, r, "/v1/series?var=votemper&dates=y2003m02&lat=-50&lon=10")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["points"], 5)

	tests := map[string]struct {
		url    string
		status int
	}{
		"missing variable": {"/v1/series?dates=y2003", http.StatusBadRequest},
		"bad zlev":         {"/v1/series?var=votemper&dates=y2003&zlev=top", http.StatusBadRequest},
		"bad biome":        {"/v1/series?var=votemper&dates=y2003&biome=x", http.StatusBadRequest},
		"unknown test":     {"/v1/series?var=votemper&dates=y2003&test=sens", http.StatusBadRequest},
		"unknown variable": {"/v1/series?var=nonsense&dates=y2003m02", http.StatusNotFound},
		"no files":         {"/v1/series?var=votemper&dates=y2001", http.StatusNotFound},
		"missing obs":      {"/v1/series?var=votemper&dates=y2003m02&obs=nothing", http.StatusNotFound},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.status, get(t, r, tt.url).Code)
		})
	}
}

func TestGetDepth(t *testing.T) {
	r, _ := newTestRouter(t)
	w := get(t, r, "/v1/depth?lat=-50&lon=30")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, decode(t, w)["depth_m"], 3000.0)

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/v1/depth?lat=-50").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/v1/depth?lat=-99&lon=0").Code)
}

func TestPostTrend(t *testing.T) {
	r, _ := newTestRouter(t)

	w := post(t, r, "/v1/trend", map[string]any{"values": []any{1, 2, nil, 3, 4, 5, 6}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "increasing", body["trend"])
	assert.Equal(t, 6.0, body["n"])

	assert.Equal(t, http.StatusUnprocessableEntity, post(t, r, "/v1/trend", map[string]any{"values": []any{1}}).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, r, "/v1/trend", map[string]any{"values": []any{1, 2, 3}, "test": "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, r, "/v1/trend", map[string]any{}).Code)
}

func TestPostPDF(t *testing.T) {
	r, _ := newTestRouter(t)

	w := post(t, r, "/v1/pdf", map[string]any{"values": []any{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}, "outliers": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Len(t, body["values"], 9)
	assert.Equal(t, 10.0, body["upper_percent"])

	w = post(t, r, "/v1/pdf", map[string]any{"var": "votemper", "dates": []string{"y2003m02d04"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["values"])

	assert.Equal(t, http.StatusBadRequest, post(t, r, "/v1/pdf", map[string]any{}).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, r, "/v1/pdf", map[string]any{"values": []any{1}, "var": "votemper"}).Code)
}

func TestFigureEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w := get(t, r, "/v1/figures/map?var=votemper&dates=y2003m02&fronts=true&month=2&biomes=true&format=svg&dpi=20")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(w.Body.String(), "<svg"))

	w = get(t, r, "/v1/figures/timeseries?vars=votemper,somxl010&dates=y2003m02&biome=15&seasons=true&dpi=20")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	tests := map[string]string{
		"bad format":    "/v1/figures/map?var=votemper&dates=y2003m02&format=gif",
		"bad dpi":       "/v1/figures/map?var=votemper&dates=y2003m02&dpi=5000",
		"partial limit": "/v1/figures/map?var=votemper&dates=y2003m02&min=0",
		"bad source":    "/v1/figures/map?var=votemper&dates=y2003m02&source=argo",
		"limits on two": "/v1/figures/timeseries?vars=votemper,somxl010&dates=y2003m02&min=0&max=1&tick=0.5",
		"no variables":  "/v1/figures/timeseries?dates=y2003m02",
	}
	for name, url := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, get(t, r, url).Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, get(t, r, "/v1/files?var=votemper&dates=y2003m02").Code)
	require.Equal(t, http.StatusNotFound, get(t, r, "/v1/variables/unknown_var").Code)

	w := get(t, r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	text := w.Body.String()
	assert.Contains(t, text, `bp12_model_files_total{category="gridT",found="true"} 5`)
	assert.Contains(t, text, `bp12_api_errors_total{endpoint="/v1/variables/:name",error_type="not_found"} 1`)
	assert.Contains(t, text, "bp12_api_request_duration_seconds")
}

func TestCORSRestricted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	uc := usecase.NewSeriesUseCase(nil, nil, nil, nil)
	r := SetupRouter(NewHandler(uc, nil, nil, nil), RouterConfig{AllowedOrigins: []string{"https://ok.example"}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://ok.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://ok.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, http.StatusNotFound, get(t, r, "/metrics").Code)
}
