package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveFile(t *testing.T) {
	c := NewCollector("bp12")
	c.ObserveFile("gridT", true)
	c.ObserveFile("gridT", true)
	c.ObserveFile("ptrcT", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.FilesTotal.WithLabelValues("gridT", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FilesTotal.WithLabelValues("ptrcT", "false")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewCollector("bp12")
	r := gin.New()
	r.Use(c.Middleware())
	r.GET("/v1/variables/:name", func(ctx *gin.Context) { ctx.Status(http.StatusNotFound) })
	r.GET("/metrics", c.Handler())

	for _, name := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/variables/"+name, nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(c.APIRequestsTotal.WithLabelValues("/v1/variables/:name", "GET", "404")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bp12_api_requests_total")
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := NewCollector("bp12"), NewCollector("bp12")
	a.RecordAPIError("not_found", "/v1/series")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.APIErrorsTotal.WithLabelValues("not_found", "/v1/series")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.APIErrorsTotal.WithLabelValues("not_found", "/v1/series")))
}
