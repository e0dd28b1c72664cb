package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks serialized item cache hits by layer (redis, local).
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanban_item_cache_hits_total",
			Help: "Total number of kanban item cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks serialized item cache misses by layer.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanban_item_cache_misses_total",
			Help: "Total number of kanban item cache misses",
		},
		[]string{"layer"},
	)

	// CacheErrors tracks cache operation errors. They never fail a request.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanban_item_cache_errors_total",
			Help: "Total number of kanban item cache operation errors",
		},
		[]string{"operation"}, // "get", "set"
	)
)
