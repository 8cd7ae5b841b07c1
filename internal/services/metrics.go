package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shoprec_recommendation_generations_total",
		Help: "Recommendation sets generated, by strategy",
	}, []string{"method"})

	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shoprec_recommendation_generation_seconds",
		Help:    "Time spent generating one recommendation set",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	strategyFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shoprec_strategy_fallbacks_total",
		Help: "Times a strategy delegated to a simpler one",
	}, []string{"from", "to"})

	similarityRecomputes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shoprec_similarity_recomputes_total",
		Help: "Catalog-wide content similarity recomputation runs",
	})

	staleSimilarityRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shoprec_stale_similarity_records_total",
		Help: "Persisted similarity vectors rejected for catalog size mismatch",
	})
)
