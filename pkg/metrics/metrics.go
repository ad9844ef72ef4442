// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// CacheLookups counts company cache reads by result (hit, miss, error).
	CacheLookups *prometheus.CounterVec

	ModerationDecisions *prometheus.CounterVec
	AutomatedChecks     *prometheus.CounterVec

	// LimitChecks counts subscription limit decisions by action and outcome.
	LimitChecks *prometheus.CounterVec

	DBOperationDuration *prometheus.HistogramVec

	EmailsSent *prometheus.CounterVec

	once sync.Once
)

// Init registers all collectors under prefix on the default registry. Later calls are no-ops.
func Init(prefix string) {
	once.Do(func() {
		register(prefix, prometheus.DefaultRegisterer)
	})
}

func register(prefix string, reg prometheus.Registerer) {
	f := promauto.With(reg)

	HTTPRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prefix + "_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	CacheLookups = f.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_company_cache_lookups_total",
		Help: "Company cache lookups by result",
	}, []string{"result"})

	ModerationDecisions = f.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_moderation_decisions_total",
		Help: "Moderation transitions by listing kind and action",
	}, []string{"kind", "action"})

	AutomatedChecks = f.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_moderation_automated_checks_total",
		Help: "Automated moderation check runs by outcome",
	}, []string{"passed"})

	LimitChecks = f.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_subscription_limit_checks_total",
		Help: "Subscription limit checks by action and outcome",
	}, []string{"action", "allowed"})

	DBOperationDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prefix + "_db_operation_duration_seconds",
		Help:    "Duration of database operations in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	EmailsSent = f.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_emails_total",
		Help: "Automation emails by type and status",
	}, []string{"type", "status"})
}

// TrackDBOperation returns a function that records the duration of a database operation:
//
//	defer metrics.TrackDBOperation("company_insert")(time.Now())
func TrackDBOperation(operation string) func(start time.Time) {
	return func(start time.Time) {
		if DBOperationDuration == nil {
			return
		}
		DBOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// Inc increments c with labels when metrics are initialised. Services call this so that tests run without Init.
func Inc(c *prometheus.CounterVec, labels ...string) {
	if c == nil {
		return
	}
	c.WithLabelValues(labels...).Inc()
}
