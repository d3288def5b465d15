package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type captureCounter struct {
	records [][]Label
}

func (c *captureCounter) Inc(_ context.Context, labels ...Label) {
	copied := make([]Label, len(labels))
	copy(copied, labels)
	c.records = append(c.records, copied)
}

func (c *captureCounter) Add(_ context.Context, _ float64, labels ...Label) {
	c.Inc(context.Background(), labels...)
}

type captureHistogram struct {
	records [][]Label
}

func (h *captureHistogram) Record(_ context.Context, _ float64, labels ...Label) {
	copied := make([]Label, len(labels))
	copy(copied, labels)
	h.records = append(h.records, copied)
}

func labelValue(labels []Label, key string) (string, bool) {
	for _, label := range labels {
		if label.Key == key {
			return label.Value, true
		}
	}
	return "", false
}

func TestGinHTTPMiddleware_UnknownRoute_Unit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	counter := &captureCounter{}
	histogram := &captureHistogram{}
	httpMetrics := &HTTPServerMetrics{
		service:      "idserver",
		requestTotal: counter,
		duration:     histogram,
	}

	router := gin.New()
	router.Use(GinHTTPMiddleware(httpMetrics))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/ids/1234567890123/unknown", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if len(counter.records) != 1 {
		t.Fatalf("counter records = %d, want 1", len(counter.records))
	}

	route, ok := labelValue(counter.records[0], LabelRoute)
	if !ok {
		t.Fatalf("missing %q label", LabelRoute)
	}
	if route != UnknownRoute {
		t.Fatalf("route label = %q, want %q", route, UnknownRoute)
	}
}

func TestGinHTTPMiddleware_RouteTemplate_Unit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	counter := &captureCounter{}
	histogram := &captureHistogram{}
	httpMetrics := &HTTPServerMetrics{
		service:      "idserver",
		requestTotal: counter,
		duration:     histogram,
	}

	router := gin.New()
	router.Use(GinHTTPMiddleware(httpMetrics))
	router.GET("/v1/ids/:id/decode", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/ids/1234567890123/decode", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if len(counter.records) != 1 {
		t.Fatalf("counter records = %d, want 1", len(counter.records))
	}

	route, ok := labelValue(counter.records[0], LabelRoute)
	if !ok {
		t.Fatalf("missing %q label", LabelRoute)
	}
	if route != "/v1/ids/:id/decode" {
		t.Fatalf("route label = %q, want %q", route, "/v1/ids/:id/decode")
	}
	if outcome, _ := labelValue(histogram.records[0], LabelOutcome); outcome != OutcomeSuccess {
		t.Fatalf("outcome label = %q, want %q", outcome, OutcomeSuccess)
	}
}

func TestGinHTTPMiddleware_NilMetrics_Unit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(GinHTTPMiddleware(nil))
	router.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

type captureGauge struct {
	value float64
}

func (g *captureGauge) Set(_ context.Context, v float64, _ ...Label) { g.value = v }
func (g *captureGauge) Inc(_ context.Context, _ ...Label)            { g.value++ }
func (g *captureGauge) Dec(_ context.Context, _ ...Label)            { g.value-- }

func TestGinHTTPMiddleware_InFlight_Unit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	gauge := &captureGauge{}
	httpMetrics := &HTTPServerMetrics{
		service:      "idserver",
		requestTotal: &captureCounter{},
		duration:     &captureHistogram{},
		inFlight:     gauge,
	}

	var during float64
	router := gin.New()
	router.Use(GinHTTPMiddleware(httpMetrics))
	router.GET("/v1/ids", func(c *gin.Context) {
		during = gauge.value
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/ids", nil))
	if during != 1 {
		t.Fatalf("in-flight during request = %v, want 1", during)
	}
	if gauge.value != 0 {
		t.Fatalf("in-flight after request = %v, want 0", gauge.value)
	}
}
