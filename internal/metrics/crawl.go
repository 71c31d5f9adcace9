package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Crawl Prometheus metrics.
var (
	CrawlsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawls_total",
			Help:      "Total number of crawl invocations by outcome",
		},
		[]string{"outcome"}, // "ok" / "no_candidates" / "failed" / "cancelled"
	)

	CrawlDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_duration_seconds",
			Help:      "Crawl duration from category fetch to ranked output",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	FetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Total page fetches by page kind and result",
		},
		[]string{"kind", "result"}, // kind: "category" / "recipe"; result: "ok" / "fetch_error" / "extract_error"
	)

	CandidatesScored = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_candidates_scored",
			Help:      "Number of candidates scoring above zero per crawl",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	SavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saved_marks_total",
			Help:      "Save and unsave operations by result",
		},
		[]string{"op", "result"}, // op: "save" / "unsave"; result: "created" / "noop" / "deleted" / "error"
	)
)

var registerCrawlOnce sync.Once

// RegisterCrawlMetrics registers the crawl and save collectors with the default registry.
// Safe to call more than once.
func RegisterCrawlMetrics() {
	registerCrawlOnce.Do(func() {
		prometheus.MustRegister(CrawlsTotal)
		prometheus.MustRegister(CrawlDuration)
		prometheus.MustRegister(FetchesTotal)
		prometheus.MustRegister(CandidatesScored)
		prometheus.MustRegister(SavesTotal)
	})
}
