package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// adminRouter mounts Middleware on a router shaped like the admin API.
func adminRouter(t *testing.T) (http.Handler, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	exp := useTestTracer(t)

	r := chi.NewRouter()
	r.Use(Middleware(m))
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	r.Get("/v1/session", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/v1/sessions/{id}/end", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/v1/usage", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
	})
	return r, reader, exp
}

func serve(h http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_CorrelationIDHeader(t *testing.T) {
	h, _, exp := adminRouter(t)

	rec := serve(h, http.MethodGet, "/v1/session", nil)

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	want := spans[0].SpanContext.TraceID().String()
	if got := rec.Header().Get("X-Correlation-ID"); got != want {
		t.Errorf("X-Correlation-ID = %q, want span trace ID %q", got, want)
	}
	if spans[0].Name != "HTTP GET /v1/session" {
		t.Errorf("span name = %q", spans[0].Name)
	}
}

func TestMiddleware_ContinuesIncomingTrace(t *testing.T) {
	h, _, _ := adminRouter(t)
	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"

	rec := serve(h, http.MethodGet, "/v1/session", http.Header{
		"Traceparent": {"00-" + traceID + "-00f067aa0ba902b7-01"},
	})

	if got := rec.Header().Get("X-Correlation-ID"); got != traceID {
		t.Errorf("X-Correlation-ID = %q, want %q", got, traceID)
	}
}

func TestMiddleware_RoutePatternBoundsCardinality(t *testing.T) {
	h, reader, exp := adminRouter(t)

	for _, id := range []string{"a1", "b2", "c3"} {
		if rec := serve(h, http.MethodPost, "/v1/sessions/"+id+"/end", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	met := findMetric(rm, "friday.http.request.duration")
	if met == nil {
		t.Fatal("friday.http.request.duration not recorded")
	}
	hist := met.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) != 1 {
		t.Fatalf("data points = %d, want 1 per route pattern", len(hist.DataPoints))
	}
	dp := hist.DataPoints[0]
	if dp.Count != 3 {
		t.Errorf("count = %d, want 3", dp.Count)
	}
	if v, ok := dp.Attributes.Value("path"); !ok || v.AsString() != "/v1/sessions/{id}/end" {
		t.Errorf("path attribute = %v, want route pattern", v.AsString())
	}
	if v, ok := dp.Attributes.Value("method"); !ok || v.AsString() != http.MethodPost {
		t.Errorf("method attribute = %v, want POST", v.AsString())
	}

	for _, s := range exp.GetSpans() {
		if s.Name != "HTTP POST /v1/sessions/{id}/end" {
			t.Errorf("span name = %q, want route pattern", s.Name)
		}
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	tests := []struct {
		path      string
		wantCode  int
		wantError bool
	}{
		{"/v1/session", http.StatusOK, false},
		{"/v1/usage", http.StatusNotImplemented, true},
		{"/readyz", http.StatusServiceUnavailable, true},
		{"/v1/missing", http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			h, _, exp := adminRouter(t)

			rec := serve(h, http.MethodGet, tt.path, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}

			spans := exp.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("spans = %d, want 1", len(spans))
			}
			var code int64
			for _, a := range spans[0].Attributes {
				if a.Key == "http.response.status_code" {
					code = a.Value.AsInt64()
				}
			}
			if code != int64(tt.wantCode) {
				t.Errorf("http.response.status_code = %d, want %d", code, tt.wantCode)
			}
			if got := spans[0].Status.Code == codes.Error; got != tt.wantError {
				t.Errorf("span error = %v, want %v", got, tt.wantError)
			}
		})
	}
}
