// Package metrics exposes Prometheus instrumentation for the versioned
// store. Collectors are registered on the default registry; embedders
// expose them via promhttp or scrape the registry directly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RevisionRowsWritten counts revision rows materialized at flush,
	// labeled by entity.
	RevisionRowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vdm",
		Name:      "revision_rows_written_total",
		Help:      "Revision rows materialized at unit-of-work flush.",
	}, []string{"entity"})

	// FlushesTotal counts committed unit-of-work flushes.
	FlushesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vdm",
		Name:      "flushes_total",
		Help:      "Unit-of-work flushes that materialized a revision.",
	})

	// AsOfQueriesTotal counts historical (as-of) reads, as opposed to
	// reads of the current cache.
	AsOfQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vdm",
		Name:      "asof_queries_total",
		Help:      "Point-in-time revision row lookups.",
	})

	// PurgesTotal counts purged revisions.
	PurgesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vdm",
		Name:      "purges_total",
		Help:      "Revisions whose rows were purged from history.",
	})

	// PurgedRowsTotal counts revision rows deleted by purge, labeled by
	// entity.
	PurgedRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vdm",
		Name:      "purged_rows_total",
		Help:      "Revision rows deleted by revision purge.",
	}, []string{"entity"})
)
