package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AddressesCollected counts addresses returned by each directory per collection pass
	AddressesCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_addresses_collected_total",
			Help: "Total number of addresses returned by address sources",
		},
		[]string{"source"},
	)

	// AddressesNew counts addresses stored for the first time
	AddressesNew = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_addresses_new_total",
			Help: "Total number of newly discovered addresses",
		},
	)

	// SourceFailures counts address source fetches that failed or panicked
	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_source_failures_total",
			Help: "Total number of failed address source fetches",
		},
		[]string{"source"},
	)

	// TransactionsIndexed counts normalized transactions written per chain
	TransactionsIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_transactions_indexed_total",
			Help: "Total number of transactions fetched and stored",
		},
		[]string{"chain"},
	)

	// AddressIndexFailures counts addresses whose index pass failed
	AddressIndexFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_address_failures_total",
			Help: "Total number of failed per-address index passes",
		},
	)

	// IndexRunDuration tracks full index pass duration
	IndexRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "indexer_run_duration_seconds",
			Help:    "Duration of full index passes in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// ProviderRequests counts transfer-history provider requests by chain and outcome
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_provider_requests_total",
			Help: "Total number of transfer-history provider requests",
		},
		[]string{"chain", "status"},
	)

	// FeedCacheHits counts static feed reads served without a network round trip
	FeedCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_feed_cache_total",
			Help: "Static feed reads by outcome (hit, miss, not_modified)",
		},
		[]string{"outcome"},
	)
)
