package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// ScheduleRuns counts engine invocations by operation and result (ok, input_error, error)
	ScheduleRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "schedule_runs_total", Help: "Scheduling engine invocations by operation and result."},
		[]string{"op", "result"},
	)
	// ScheduleDuration records engine invocation durations in seconds
	ScheduleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "schedule_run_duration_seconds", Help: "Scheduling engine invocation duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"op"},
	)
	// TripsWritten counts trips persisted by the engine by operation and kind (insert, update)
	TripsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "schedule_trips_written_total", Help: "Trips persisted by the scheduling engine."},
		[]string{"op", "kind"},
	)
	// SlotOutcomes counts skips, conflicts and failed assignments by reason
	SlotOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "schedule_slot_outcomes_total", Help: "Skipped, conflicting and failed slots by operation and reason."},
		[]string{"op", "reason"},
	)
	// RouteProposals counts optimizer results by method
	RouteProposals = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_proposals_total", Help: "Route optimization proposals by method."},
		[]string{"method"},
	)
	// DistanceRequests counts calls to the precise distance source by outcome (ok, error, cache_hit)
	DistanceRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "distance_requests_total", Help: "Distance matrix lookups by source and outcome."},
		[]string{"source", "outcome"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(ScheduleRuns)
		Registry.MustRegister(ScheduleDuration)
		Registry.MustRegister(TripsWritten)
		Registry.MustRegister(SlotOutcomes)
		Registry.MustRegister(RouteProposals)
		Registry.MustRegister(DistanceRequests)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
