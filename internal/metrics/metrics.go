// Package metrics holds the Prometheus collectors of the transaction engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sales_committed_total",
		Help: "Sales persisted, by store and whether they completed a reservation.",
	}, []string{"store", "from_reserve"})

	ReservesCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_reserves_committed_total",
		Help: "Reservations persisted, by store.",
	}, []string{"store"})

	CASConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_cas_conflicts_total",
		Help: "Compare-and-swap writes retried after a concurrent modification.",
	}, []string{"record"})

	StockCompensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_stock_compensations_total",
		Help: "Stock lines reverted after a failed transaction, by outcome.",
	}, []string{"outcome"})

	ReceiptMintFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_receipt_mint_failures_total",
		Help: "Receipt numbers that could not be committed, by series.",
	}, []string{"series"})

	TransfersCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_transfers_total",
		Help: "Inter-store transfers, by strategy (merge, move, split).",
	}, []string{"strategy"})
)
