package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRequestLogger_Levels(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		level  string
	}{
		{"успех", "/upload", http.StatusOK, "level=INFO"},
		{"ошибка клиента", "/upload", http.StatusUnprocessableEntity, "level=WARN"},
		{"ошибка сервера", "/upload", http.StatusBadGateway, "level=ERROR"},
		{"проба", "/health/live", http.StatusOK, "level=DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			out := buf.String()
			if !strings.Contains(out, tt.level) {
				t.Errorf("лог %q не содержит %s", out, tt.level)
			}
			if !strings.Contains(out, "bytes=4") {
				t.Errorf("лог %q не содержит размер ответа", out)
			}
		})
	}
}

// counterValue читает текущее значение счётчика.
func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestMetricsMiddleware_RoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware())
	r.Get("/{owner}/{name}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	before := counterValue(t, httpRequestsTotal.WithLabelValues(http.MethodGet, "/{owner}/{name}", "200"))
	for _, p := range []string{"/alice/a", "/bob/b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	after := counterValue(t, httpRequestsTotal.WithLabelValues(http.MethodGet, "/{owner}/{name}", "200"))

	if after-before != 2 {
		t.Errorf("прирост счётчика = %v, ожидается 2", after-before)
	}
}

func TestMetricsMiddleware_Unmatched(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware())
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {})

	before := counterValue(t, httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedPath, "404"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/no/such/page", nil))
	after := counterValue(t, httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedPath, "404"))

	if after-before != 1 {
		t.Errorf("прирост счётчика = %v, ожидается 1", after-before)
	}
}
