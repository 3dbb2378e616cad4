package http

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/bioperiant/bp12-tools/internal/adapter/store"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/model"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/reference"
	"github.com/bioperiant/bp12-tools/internal/analysis"
	"github.com/bioperiant/bp12-tools/internal/domain"
	"github.com/bioperiant/bp12-tools/internal/metrics"
	"github.com/bioperiant/bp12-tools/internal/plot"
	"github.com/bioperiant/bp12-tools/internal/usecase"
)

// Handler handles HTTP requests for model series, statistics and figures.
type Handler struct {
	seriesUC *usecase.SeriesUseCase
	loader   store.VariableLoader
	metrics  *metrics.Collector
	log      logrus.FieldLogger
}

// NewHandler creates a new HTTP handler. m and log may be nil.
func NewHandler(seriesUC *usecase.SeriesUseCase, loader store.VariableLoader, m *metrics.Collector, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		seriesUC: seriesUC,
		loader:   loader,
		metrics:  m,
		log:      log,
	}
}

// statusOf maps use case errors to HTTP status codes.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidDateSpec),
		errors.Is(err, reference.ErrUnknownSource):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, usecase.ErrNotFound), errors.Is(err, model.ErrNoFiles), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, analysis.ErrInsufficientData):
		return http.StatusUnprocessableEntity, "insufficient_data"
	}
	return http.StatusInternalServerError, "internal"
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, kind := statusOf(err)
	if h.metrics != nil {
		h.metrics.RecordAPIError(kind, c.FullPath())
	}
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, format string, args ...any) {
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(format, args...)})
}

// queryList splits a comma-separated query parameter, also accepting the
// parameter repeated.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryFloat(c *gin.Context, key string) (*float64, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &v, nil
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	s := c.Query(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func queryBool(c *gin.Context, key string) (bool, error) {
	s := c.Query(key)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// region parses the biome or lat/lon selection shared by the series and
// figure endpoints.
func region(c *gin.Context) (biome *int, lat, lon *float64, err error) {
	if s := c.Query("biome"); s != "" {
		b, err := strconv.Atoi(s)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid biome: %w", err)
		}
		biome = &b
	}
	if lat, err = queryFloat(c, "lat"); err != nil {
		return nil, nil, nil, err
	}
	if lon, err = queryFloat(c, "lon"); err != nil {
		return nil, nil, nil, err
	}
	return biome, lat, lon, nil
}

// GetVariable handles GET /v1/variables/:name.
func (h *Handler) GetVariable(c *gin.Context) {
	resp, err := usecase.DescribeVariable(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetDates handles GET /v1/dates.
func (h *Handler) GetDates(c *gin.Context) {
	spec := c.Query("spec")
	if spec == "" {
		badRequest(c, "spec parameter is required")
		return
	}
	resp, err := usecase.ExpandDates(spec)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetFiles handles GET /v1/files.
func (h *Handler) GetFiles(c *gin.Context) {
	name, dates := c.Query("var"), c.Query("dates")
	if name == "" || dates == "" {
		badRequest(c, "var and dates parameters are required")
		return
	}
	resp, err := usecase.ListFiles(h.loader, name, dates)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetSeries handles GET /v1/series.
func (h *Handler) GetSeries(c *gin.Context) {
	req := usecase.SeriesRequest{
		Variable: c.Query("var"),
		Dates:    queryList(c, "dates"),
		Test:     c.Query("test"),
		Obs:      c.Query("obs"),
	}
	var err error
	if req.ZLev, err = queryInt(c, "zlev", 0); err != nil {
		badRequest(c, "%v", err)
		return
	}
	if req.Biome, req.Lat, req.Lon, err = region(c); err != nil {
		badRequest(c, "%v", err)
		return
	}

	start := time.Now()
	resp, err := h.seriesUC.Execute(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.WithFields(logrus.Fields{
		"variable": req.Variable,
		"region":   req.Region(),
		"points":   len(resp.Points),
		"elapsed":  time.Since(start).String(),
	}).Debug("series computed")
	c.JSON(http.StatusOK, resp)
}

// GetDepth handles GET /v1/depth.
func (h *Handler) GetDepth(c *gin.Context) {
	lat, err := queryFloat(c, "lat")
	if err != nil {
		badRequest(c, "%v", err)
		return
	}
	lon, err := queryFloat(c, "lon")
	if err != nil {
		badRequest(c, "%v", err)
		return
	}
	if lat == nil || lon == nil {
		badRequest(c, "lat and lon parameters are required")
		return
	}
	resp, err := h.seriesUC.Depth(*lat, *lon)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetObservations handles GET /v1/observations.
func (h *Handler) GetObservations(c *gin.Context) {
	names, err := h.seriesUC.Observations()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"observations": names,
		"count":        len(names),
	})
}

// TrendRequest is the body of POST /v1/trend.
type TrendRequest struct {
	Values []*float64 `json:"values" binding:"required"`
	Test   string     `json:"test"`
}

// PostTrend handles POST /v1/trend. Null values are treated as missing.
func (h *Handler) PostTrend(c *gin.Context) {
	var body TrendRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}
	test, err := analysis.ParseTest(body.Test)
	if err != nil {
		badRequest(c, "%v", err)
		return
	}
	resp, err := usecase.Trend(nullable(body.Values), test)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PDFRequest is the body of POST /v1/pdf: either literal values or a model
// variable over date specifications.
type PDFRequest struct {
	Values   []*float64 `json:"values"`
	Variable string     `json:"var"`
	Dates    []string   `json:"dates"`
	ZLev     int        `json:"zlev"`
	Outliers bool       `json:"outliers"`
}

// PostPDF handles POST /v1/pdf.
func (h *Handler) PostPDF(c *gin.Context) {
	var body PDFRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}
	var (
		resp *usecase.PDFResponse
		err  error
	)
	switch {
	case body.Variable != "" && len(body.Values) != 0:
		badRequest(c, "values and var are mutually exclusive")
		return
	case body.Variable != "":
		resp, err = h.seriesUC.FieldPDF(body.Variable, body.Dates, body.ZLev, body.Outliers)
	default:
		resp, err = usecase.PDF(nullable(body.Values), body.Outliers)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func nullable(in []*float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out
}

var figureTypes = map[string]string{
	"png": "image/png",
	"jpg": "image/jpeg",
	"svg": "image/svg+xml",
	"pdf": "application/pdf",
}

// queryLimits parses min, max and tick, which must be given together.
func queryLimits(c *gin.Context) (*plot.Limits, error) {
	if c.Query("min") == "" && c.Query("max") == "" && c.Query("tick") == "" {
		return nil, nil
	}
	var vals [3]float64
	for i, key := range []string{"min", "max", "tick"} {
		v, err := queryFloat(c, key)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, fmt.Errorf("min, max and tick must be given together")
		}
		vals[i] = *v
	}
	if vals[1] <= vals[0] || vals[2] <= 0 {
		return nil, fmt.Errorf("limits need min < max and tick > 0")
	}
	return &plot.Limits{Min: vals[0], Max: vals[1], Tick: vals[2]}, nil
}

func (h *Handler) writeFigure(c *gin.Context, fig *plot.Figure) {
	format := c.DefaultQuery("format", "png")
	contentType, ok := figureTypes[format]
	if !ok {
		badRequest(c, "unsupported format %q", format)
		return
	}
	dpi, err := queryInt(c, "dpi", 100)
	if err != nil || dpi < 10 || dpi > plot.DefaultDPI {
		badRequest(c, "dpi must be an integer between 10 and %d", plot.DefaultDPI)
		return
	}
	fig.DPI = dpi
	var buf bytes.Buffer
	if _, err := fig.WriteTo(&buf, format); err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// GetMapFigure handles GET /v1/figures/map.
func (h *Handler) GetMapFigure(c *gin.Context) {
	req := usecase.MapRequest{
		Variable:    c.Query("var"),
		Dates:       queryList(c, "dates"),
		Title:       c.Query("title"),
		FrontSource: reference.Source(c.Query("source")),
	}
	var err error
	if req.ZLev, err = queryInt(c, "zlev", 0); err == nil {
		req.Month, err = queryInt(c, "month", 0)
	}
	if err == nil {
		req.Fronts, err = queryBool(c, "fronts")
	}
	if err == nil {
		req.Biomes, err = queryBool(c, "biomes")
	}
	if err == nil {
		req.FM2014, err = queryBool(c, "fm2014")
	}
	if err == nil {
		req.Limits, err = queryLimits(c)
	}
	if err != nil {
		badRequest(c, "%v", err)
		return
	}
	switch req.FrontSource {
	case "", reference.SourceModel, reference.SourceObs:
	default:
		badRequest(c, "source must be %q or %q", reference.SourceModel, reference.SourceObs)
		return
	}

	fig, err := h.seriesUC.MapFigure(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.writeFigure(c, fig)
}

// GetTimeseriesFigure handles GET /v1/figures/timeseries.
func (h *Handler) GetTimeseriesFigure(c *gin.Context) {
	req := usecase.TimeseriesRequest{
		Variables: queryList(c, "vars"),
		Dates:     queryList(c, "dates"),
		Obs:       c.Query("obs"),
		Colors:    queryList(c, "colors"),
		Title:     c.Query("title"),
	}
	var err error
	if req.ZLev, err = queryInt(c, "zlev", 0); err == nil {
		req.Biome, req.Lat, req.Lon, err = region(c)
	}
	if err == nil {
		req.Trend, err = queryBool(c, "trend")
	}
	if err == nil {
		req.Seasons, err = queryBool(c, "seasons")
	}
	if err != nil {
		badRequest(c, "%v", err)
		return
	}
	lim, err := queryLimits(c)
	if err != nil {
		badRequest(c, "%v", err)
		return
	}
	if lim != nil {
		if len(req.Variables) != 1 {
			badRequest(c, "limits apply to a single variable")
			return
		}
		req.Limits = []plot.Limits{*lim}
	}

	fig, err := h.seriesUC.TimeseriesFigure(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.writeFigure(c, fig)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
