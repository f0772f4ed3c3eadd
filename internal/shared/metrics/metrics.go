// Package metrics provides Prometheus metrics for the magazine pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rssmag"

var (
	// FetchTotal counts HTTP fetches by target (feed, image) and outcome.
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Total number of fetch operations after retries",
		},
		[]string{"target", "status"},
	)

	// FetchDuration measures fetch duration including retry waits.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of fetch operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"target"},
	)

	ArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Articles built or dropped",
		},
		[]string{"status"},
	)

	ImagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_total",
			Help:      "Images normalized or replaced by the sentinel",
		},
		[]string{"status"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Publish runs by outcome",
		},
		[]string{"status"},
	)
)

// RecordFetch records a finished fetch.
func RecordFetch(target, status string, seconds float64) {
	FetchTotal.WithLabelValues(target, status).Inc()
	FetchDuration.WithLabelValues(target).Observe(seconds)
}

func RecordArticle(status string) {
	ArticlesTotal.WithLabelValues(status).Inc()
}

func RecordImage(status string) {
	ImagesTotal.WithLabelValues(status).Inc()
}

func RecordRun(status string) {
	RunsTotal.WithLabelValues(status).Inc()
}
