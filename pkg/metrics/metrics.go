// Package metrics exposes Prometheus collectors for the search pipeline and
// its remote dependencies.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineBuckets covers a discovery run, from a cached-empty search to a
// fan-out over many SharePoint sites with OCR.
var PipelineBuckets = []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90, 120}

var (
	// DiscoveryRunsTotal counts discovery runs by outcome
	// (ranked, empty, recent_fallback, failed).
	DiscoveryRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_discovery_runs_total",
			Help: "Discovery runs",
		},
		[]string{"outcome"},
	)

	// DiscoveryDuration records end-to-end discovery latency in seconds.
	DiscoveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "echo_discovery_duration_seconds",
			Help:    "Discovery duration",
			Buckets: PipelineBuckets,
		},
	)

	// CandidatesDiscovered observes how many candidates a run ranked.
	CandidatesDiscovered = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "echo_discovery_candidates",
			Help:    "Candidates per discovery run",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	// ExtractionsTotal counts text extractions by kind (image, pdf, scanned_pdf,
	// skipped) and status (ok, empty, error).
	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_extractions_total",
			Help: "Text extractions",
		},
		[]string{"kind", "status"},
	)

	// GraphRetriesTotal counts retried Graph calls by reason.
	GraphRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_graph_retries_total",
			Help: "Graph request retries",
		},
		[]string{"reason"},
	)

	// DeliveriesTotal counts file deliveries by transport and status.
	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_deliveries_total",
			Help: "File deliveries",
		},
		[]string{"transport", "status"},
	)

	// ChatTurnsTotal counts answered chat turns by resulting intent.
	ChatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_chat_turns_total",
			Help: "Chat turns",
		},
		[]string{"intent"},
	)
)

func init() {
	prometheus.MustRegister(
		DiscoveryRunsTotal,
		DiscoveryDuration,
		CandidatesDiscovered,
		ExtractionsTotal,
		GraphRetriesTotal,
		DeliveriesTotal,
		ChatTurnsTotal,
	)
}
