// Package metrics exposes session, entitlement and guard counters for Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"evolutech-console/internal/modules"
	"evolutech-console/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements session.Observer, modules.Observer and rbac.DecisionObserver.
type Collector struct {
	sessionEvents  *prometheus.CounterVec
	moduleFetches  *prometheus.CounterVec
	modulesGranted prometheus.Histogram
	guardDecisions *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

// NewCollector registers every metric on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evolutech_session_events_total",
			Help: "Session lifecycle transitions by kind.",
		}, []string{"kind"}),
		moduleFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evolutech_module_fetches_total",
			Help: "Module entitlement fetches by outcome.",
		}, []string{"outcome"}),
		modulesGranted: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "evolutech_modules_granted",
			Help:    "Size of the resolved entitlement set per successful fetch.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
		}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evolutech_guard_decisions_total",
			Help: "Access and module guard outcomes.",
		}, []string{"guard", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evolutech_http_requests_total",
			Help: "HTTP responses by route and status code.",
		}, []string{"route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evolutech_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.sessionEvents,
		c.moduleFetches,
		c.modulesGranted,
		c.guardDecisions,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) SessionEvent(_ context.Context, ev session.Event) {
	c.sessionEvents.WithLabelValues(string(ev.Kind)).Inc()
}

func (c *Collector) ModulesFetched(_ context.Context, outcome modules.FetchOutcome, count int) {
	c.moduleFetches.WithLabelValues(string(outcome)).Inc()
	if outcome == modules.FetchOK {
		c.modulesGranted.Observe(float64(count))
	}
}

func (c *Collector) GuardDecision(_ *gin.Context, guard, outcome string) {
	c.guardDecisions.WithLabelValues(guard, outcome).Inc()
}

// Middleware records one sample per request, labelled by the route template.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(g *gin.Context) {
		start := time.Now()
		g.Next()

		route := g.FullPath()
		if route == "" {
			route = "unmatched"
		}
		c.httpRequests.WithLabelValues(route, strconv.Itoa(g.Writer.Status())).Inc()
		c.httpLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
