package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "countdownsync"

type Metrics struct {
	Registry *prometheus.Registry

	Pushes        *prometheus.CounterVec
	UsageSamples  prometheus.Counter
	MappingLoads  prometheus.Counter
	RequestLength *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_pushes_total",
			Help:      "Record writes by kind and merge outcome.",
		}, []string{"kind", "outcome"}),
		UsageSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_samples_total",
			Help:      "Usage samples stored.",
		}),
		MappingLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_mapping_loads_total",
			Help:      "Administrative identity mapping imports.",
		}),
		RequestLength: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		m.Pushes,
		m.UsageSamples,
		m.MappingLoads,
		m.RequestLength,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordPush counts one push of kind ("todo", "countdown") with outcome.
func (m *Metrics) RecordPush(kind, outcome string) {
	if m == nil {
		return
	}
	m.Pushes.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordUsageSamples(n int) {
	if m == nil {
		return
	}
	m.UsageSamples.Add(float64(n))
}

func (m *Metrics) RecordMappingLoad() {
	if m == nil {
		return
	}
	m.MappingLoads.Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestLength.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}
