// metrics.go: Prometheus-метрики клиента Content API.
package contentapi

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// apiRequestsTotal: количество запросов к Content API по операции и статусу.
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cm_content_api_requests_total",
			Help: "Общее количество запросов к Content API",
		},
		[]string{"operation", "status"},
	)

	// apiRequestDuration: длительность запросов к Content API.
	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cm_content_api_request_duration_seconds",
			Help:    "Длительность запросов к Content API в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	nameCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_name_check_cache_hits_total",
		Help: "Общее количество попаданий в кэш проверки имени.",
	})
	nameCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_name_check_cache_misses_total",
		Help: "Общее количество промахов кэша проверки имени.",
	})
)

func observeRequest(op, status string, d time.Duration) {
	apiRequestsTotal.WithLabelValues(op, status).Inc()
	apiRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}
