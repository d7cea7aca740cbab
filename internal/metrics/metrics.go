// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "webrag"

var (
	// HTTPRequests counts handled requests by route and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests handled, by route and status code.",
	}, []string{"route", "code"})

	// HTTPDuration observes request latency by route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by route.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
	}, []string{"route"})

	// ResetDuration observes full index rebuilds.
	ResetDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "index_reset_duration_seconds",
		Help:      "Time taken to rebuild the index from the corpus.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	// IndexedChunks is the chunk count written by the last successful reset.
	IndexedChunks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "indexed_chunks",
		Help:      "Chunks inserted by the most recent successful reset.",
	})

	// StatePolls counts index state observations by the state seen.
	StatePolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "index_state_polls_total",
		Help:      "Index state observations made while waiting for a transition.",
	}, []string{"state"})

	// UpstreamErrors counts failed collaborator calls by operation.
	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_errors_total",
		Help:      "Failed calls to the embedder, vector store or model.",
	}, []string{"op"})
)
