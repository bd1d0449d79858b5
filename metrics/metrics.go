// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the service records into. Handlers and
// services receive it by injection; tests pass a fresh registry.
type Metrics struct {
	BillsCreated          prometheus.Counter
	BillsDeleted          prometheus.Counter
	SettlementTransitions *prometheus.CounterVec
	SummaryCacheHits      prometheus.Counter
	SummaryCacheMisses    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BillsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "billsplit_bills_created_total",
			Help: "Bills created successfully.",
		}),
		BillsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "billsplit_bills_deleted_total",
			Help: "Bills deleted by their creators.",
		}),
		SettlementTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billsplit_settlement_transitions_total",
			Help: "Settlement state transitions applied, by action.",
		}, []string{"action"}),
		SummaryCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "billsplit_summary_cache_hits_total",
			Help: "Summary reads served from redis.",
		}),
		SummaryCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "billsplit_summary_cache_misses_total",
			Help: "Summary reads recomputed from the database.",
		}),
	}
}
