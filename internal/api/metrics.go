package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts handled requests.
	// Labels: route (the gin route pattern), method, code
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasks",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by route, method and status code",
	}, []string{"route", "method", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tasks",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// conflictsTotal counts mutations rejected for overlapping an existing booking.
	// Labels: kind
	conflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasks",
		Subsystem: "schedule",
		Name:      "conflicts_total",
		Help:      "Total mutations rejected by the overlap check",
	}, []string{"kind"})
)
