package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfp_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"},
	)

	PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rfp_pipeline_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	ScopeItemsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rfp_scope_items_processed_total",
			Help: "Total scope items carried through a pipeline run",
		},
	)

	TopMatchScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rfp_top_match_score",
			Help:    "Spec match score of the top-ranked candidate per scope item",
			Buckets: []float64{0, 20, 40, 60, 80, 100},
		},
	)

	QuoteTotalCost = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rfp_quote_total_cost",
			Help:    "Grand total of quotes produced by pipeline runs",
			Buckets: prometheus.ExponentialBuckets(100, 10, 7),
		},
	)

	UnmatchedTests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rfp_unmatched_tests_total",
			Help: "Requested tests with no entry in the test price table",
		},
	)

	DiscoveryRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfp_discovery_records_total",
			Help: "Discovery records by outcome",
		},
		[]string{"outcome"},
	)

	RemoteFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rfp_remote_fetch_duration_seconds",
			Help:    "Remote RFP fetch duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfp_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfp_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(PipelineRuns)
		prometheus.MustRegister(PipelineDuration)
		prometheus.MustRegister(ScopeItemsProcessed)
		prometheus.MustRegister(TopMatchScore)
		prometheus.MustRegister(QuoteTotalCost)
		prometheus.MustRegister(UnmatchedTests)
		prometheus.MustRegister(DiscoveryRecords)
		prometheus.MustRegister(RemoteFetchDuration)
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
