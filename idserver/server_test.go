package idserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ceyewan/shorturl/idgen"
	"github.com/ceyewan/shorturl/ratelimit"
	"github.com/ceyewan/shorturl/testkit"
	"github.com/ceyewan/shorturl/trace"
)

// stubGenerator 固定返回给定的错误，用于验证错误映射
type stubGenerator struct {
	idgen.Generator
	err error
}

func (g *stubGenerator) NextID(ctx context.Context) (uint64, error) {
	return 0, g.err
}

func newTestServer(t *testing.T, cfg *Config, gen idgen.Generator, opts ...Option) *Server {
	t.Helper()
	if gen == nil {
		var err error
		gen, err = idgen.New(&idgen.Config{WorkerID: 3, DatacenterID: 2})
		require.NoError(t, err)
		t.Cleanup(func() { _ = gen.Close() })
	}
	s, err := New(cfg, gen, opts...)
	require.NoError(t, err)
	return s
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "10.1.1.1:5555"
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNew_Unit(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrGeneratorNil)

	gen := idgen.Must(nil)
	defer gen.Close()

	_, err = New(&Config{MetricsPath: "metrics"}, gen)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(&Config{RateLimit: ratelimit.Config{Mode: ratelimit.ModeDistributed, Rate: 10}}, gen)
	assert.ErrorIs(t, err, ratelimit.ErrConnectorNil)
}

func TestNextID_Unit(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := get(t, s.Handler(), "/v1/ids")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeJSON[idResponse](t, rec)
	assert.Equal(t, strconv.FormatUint(body.Value, 10), body.ID)
	p := s.gen.Layout().Decode(body.Value)
	assert.Equal(t, uint64(3), p.WorkerID)
	assert.Equal(t, uint64(2), p.DatacenterID)
}

func TestNextIDs_Batch_Unit(t *testing.T) {
	s := newTestServer(t, nil, nil)

	tests := []struct {
		query      string
		wantStatus int
		wantCount  int
	}{
		{query: "count=1", wantStatus: http.StatusOK, wantCount: 1},
		{query: "count=1000", wantStatus: http.StatusOK, wantCount: 1000},
		{query: "count=0", wantStatus: http.StatusBadRequest},
		{query: "count=1001", wantStatus: http.StatusBadRequest},
		{query: "count=abc", wantStatus: http.StatusBadRequest},
		{query: "count=", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := get(t, s.Handler(), "/v1/ids?"+tt.query)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, "invalid_input", decodeJSON[errorBody](t, rec).Code)
				return
			}

			body := decodeJSON[batchResponse](t, rec)
			require.Len(t, body.IDs, tt.wantCount)
			seen := make(map[string]bool, len(body.IDs))
			for _, id := range body.IDs {
				assert.False(t, seen[id], "duplicate id %s", id)
				seen[id] = true
			}
		})
	}
}

func TestDecode_Unit(t *testing.T) {
	s := newTestServer(t, nil, nil)

	id := s.gen.Layout().Pack(1000, 2, 3, 0, 7)
	rec := get(t, s.Handler(), fmt.Sprintf("/v1/ids/%d/decode", id))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeJSON[decodeResponse](t, rec)
	assert.Equal(t, id, body.Value)
	assert.Equal(t, idgen.Parts{Timestamp: 1000, DatacenterID: 2, WorkerID: 3, Sequence: 7}, body.Parts)
	assert.Equal(t, idgen.DefaultEpochMS+1000, body.TimestampMS)
	assert.Equal(t, "2014-12-31T16:00:01Z", body.Time)

	for _, bad := range []string{"abc", "-1", "18446744073709551616"} {
		rec := get(t, s.Handler(), "/v1/ids/"+bad+"/decode")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestDecode_Hex_Unit(t *testing.T) {
	gen, err := idgen.New(&idgen.Config{WorkerID: 1, DatacenterID: 1, Codec: idgen.CodecHex})
	require.NoError(t, err)
	defer gen.Close()
	s := newTestServer(t, nil, gen)

	rec := get(t, s.Handler(), "/v1/ids")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON[idResponse](t, rec)
	assert.Equal(t, strconv.FormatUint(body.Value, 16), body.ID)

	rec = get(t, s.Handler(), "/v1/ids/"+body.ID+"/decode")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body.Value, decodeJSON[decodeResponse](t, rec).Value)
}

func TestIdentity_Unit(t *testing.T) {
	gen, err := idgen.New(&idgen.Config{Mode: idgen.ModeSharded, WorkerID: 4, DatacenterID: 5})
	require.NoError(t, err)
	defer gen.Close()
	s := newTestServer(t, nil, gen)

	rec := get(t, s.Handler(), "/v1/identity")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeJSON[identityResponse](t, rec)
	assert.Equal(t, idgen.ModeSharded, body.Mode)
	assert.Equal(t, uint64(4), body.WorkerID)
	assert.Equal(t, uint64(5), body.DatacenterID)
	assert.Equal(t, idgen.CodecDecimal, body.Codec)
	assert.Equal(t, layoutResponse{
		EpochMS:        idgen.DefaultShardedEpochMS,
		TimestampBits:  38,
		DatacenterBits: 5,
		WorkerBits:     5,
		ShardBits:      3,
		SequenceBits:   12,
	}, body.Layout)
}

func TestErrorMapping_Unit(t *testing.T) {
	base := idgen.Must(nil)
	defer base.Close()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantRetry  string
	}{
		{name: "clock regressed", err: &idgen.ClockRegressedError{Last: 10, Now: 5, BehindBy: 5 * time.Millisecond},
			wantStatus: http.StatusServiceUnavailable, wantCode: "clock_regressed"},
		{name: "timeout", err: fmt.Errorf("%w: %w", idgen.ErrTimeout, context.DeadlineExceeded),
			wantStatus: http.StatusServiceUnavailable, wantCode: "timeout", wantRetry: "1"},
		{name: "pool saturated", err: idgen.ErrPoolSaturated,
			wantStatus: http.StatusServiceUnavailable, wantCode: "pool_saturated", wantRetry: "1"},
		{name: "lease expired", err: idgen.ErrLeaseExpired,
			wantStatus: http.StatusServiceUnavailable, wantCode: "lease_expired"},
		{name: "closed", err: idgen.ErrClosed,
			wantStatus: http.StatusServiceUnavailable, wantCode: "closed"},
		{name: "overflow", err: idgen.ErrTimestampOverflow,
			wantStatus: http.StatusInternalServerError, wantCode: "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil, &stubGenerator{Generator: base, err: tt.err})

			rec := get(t, s.Handler(), "/v1/ids", HeaderRequestID, "req-1")
			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantRetry, rec.Header().Get("Retry-After"))

			body := decodeJSON[errorBody](t, rec)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, "req-1", body.RequestID)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestRequestID_Unit(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := get(t, s.Handler(), "/healthz", HeaderRequestID, "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))

	rec = get(t, s.Handler(), "/healthz")
	assert.Len(t, rec.Header().Get(HeaderRequestID), 36)
}

func TestRateLimit_Unit(t *testing.T) {
	s := newTestServer(t, &Config{RateLimit: ratelimit.Config{Rate: 0.1, Burst: 2}}, nil)

	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/v1/ids").Code)
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/v1/identity").Code)

	rec := get(t, s.Handler(), "/v1/ids")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// 健康检查不限流
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/healthz").Code)
	require.NoError(t, s.limiter.Close())
}

func TestMetricsRoute_Unit(t *testing.T) {
	kit := testkit.NewKit(t)
	s := newTestServer(t, nil, nil, WithMeter(kit.Meter), WithLogger(kit.Logger))

	require.Equal(t, http.StatusOK, get(t, s.Handler(), "/v1/ids").Code)
	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/v1/ids"`)

	off := newTestServer(t, &Config{MetricsPath: "-"}, nil, WithMeter(kit.Meter))
	assert.Equal(t, http.StatusNotFound, get(t, off.Handler(), "/metrics").Code)
}

func TestRecovery_Unit(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.engine.GET("/panic", func(c *gin.Context) { panic("boom") })

	rec := get(t, s.Handler(), "/panic")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal", decodeJSON[errorBody](t, rec).Code)
}

func TestServe_GracefulShutdown_Unit(t *testing.T) {
	s := newTestServer(t, &Config{ShutdownTimeout: time.Second}, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestTracing_Unit(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	s := newTestServer(t, &Config{Tracing: true}, nil)
	require.Equal(t, http.StatusOK, get(t, s.Handler(), "/v1/ids?count=5").Code)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, trace.SpanNameNextID, spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Int(trace.AttrIDGenCount, 5))
	assert.Contains(t, spans[0].Attributes(), attribute.String(trace.AttrIDGenMode, idgen.ModeSerialized))
	assert.Contains(t, spans[0].Attributes(), attribute.Int64(trace.AttrIDGenWorkerID, 3))
	// 发号 Span 挂在 HTTP Span 之下
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}
