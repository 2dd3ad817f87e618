package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 以下按缓存名（content / points）区分
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_cache_hits_total",
			Help: "Cache reads served from a stored generation",
		},
		[]string{"cache"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_cache_misses_total",
			Help: "Cache reads that had to generate",
		},
		[]string{"cache"},
	)

	CacheRegenerations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_cache_regenerations_total",
			Help: "Stored generations discarded as stale or dirty",
		},
		[]string{"cache"},
	)

	CacheConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_cache_conflicts_total",
			Help: "Generations dropped because an invalidation happened while building",
		},
		[]string{"cache"},
	)

	CacheInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_cache_invalidations_total",
			Help: "Invalidation signals received",
		},
		[]string{"cache"},
	)

	DirtyGenerations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_cache_dirty_generations_total",
			Help: "Generations built from inconsistent source data",
		},
		[]string{"cache"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "course_cache_generation_duration_seconds",
			Help:    "Time spent building one generation",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"cache"},
	)
)

func Init() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDuration,
		CacheHits,
		CacheMisses,
		CacheRegenerations,
		CacheConflicts,
		CacheInvalidations,
		DirtyGenerations,
		GenerationDuration,
	)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
