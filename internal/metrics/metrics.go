// Package metrics exposes Prometheus instrumentation for a tinypg
// Connection: query and authentication duration, reconnect attempts, and
// errors broken down by SQLSTATE class.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus metrics for one or more tinypg
// connections sharing a registry.
type Collector struct {
	Registry *prometheus.Registry

	queryDuration   *prometheus.HistogramVec
	authDuration    *prometheus.HistogramVec
	connectionsOpen *prometheus.GaugeVec
	reconnectsTotal *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	txStatus        *prometheus.GaugeVec
}

// New creates and registers tinypg's metrics using a fresh registry. Safe
// to call multiple times — each call is independent and does not conflict
// with the default registry or with other Collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tinypg_query_duration_seconds",
				Help:    "Duration of a simple-query round trip, from Query send to ReadyForQuery",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
			},
			[]string{"database"},
		),
		authDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tinypg_auth_duration_seconds",
				Help:    "Duration of the authentication exchange during connect",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"database", "method"},
		),
		connectionsOpen: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tinypg_connections_open",
				Help: "Number of currently open connections",
			},
			[]string{"database"},
		),
		reconnectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinypg_reconnects_total",
				Help: "Total number of successful reopen() calls",
			},
			[]string{"database"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinypg_errors_total",
				Help: "Server-reported errors by SQLSTATE class",
			},
			[]string{"database", "class"},
		),
		txStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tinypg_transaction_status",
				Help: "Last ReadyForQuery status: 0=idle, 1=in transaction, 2=failed transaction",
			},
			[]string{"database"},
		),
	}

	reg.MustRegister(
		c.queryDuration,
		c.authDuration,
		c.connectionsOpen,
		c.reconnectsTotal,
		c.errorsTotal,
		c.txStatus,
	)

	return c
}

// QueryDuration observes one query's round-trip time.
func (c *Collector) QueryDuration(database string, d time.Duration) {
	c.queryDuration.WithLabelValues(database).Observe(d.Seconds())
}

// AuthDuration observes one authentication exchange's duration, tagged by
// the method label the caller passes. tinypg's Connection passes "startup"
// for its whole startup exchange; it does not distinguish trust, md5 and
// scram-sha-256.
func (c *Collector) AuthDuration(database, method string, d time.Duration) {
	c.authDuration.WithLabelValues(database, method).Observe(d.Seconds())
}

// ConnectionOpened increments the open-connections gauge.
func (c *Collector) ConnectionOpened(database string) {
	c.connectionsOpen.WithLabelValues(database).Inc()
}

// ConnectionClosed decrements the open-connections gauge.
func (c *Collector) ConnectionClosed(database string) {
	c.connectionsOpen.WithLabelValues(database).Dec()
}

// Reconnected increments the reopen() counter.
func (c *Collector) Reconnected(database string) {
	c.reconnectsTotal.WithLabelValues(database).Inc()
}

// ServerError records a server-reported error by its SQLSTATE class (the
// first two characters of the code, e.g. "42" for syntax errors).
func (c *Collector) ServerError(database, sqlStateClass string) {
	c.errorsTotal.WithLabelValues(database, sqlStateClass).Inc()
}

// SetTransactionStatus records the transaction-state byte from the most
// recent ReadyForQuery.
func (c *Collector) SetTransactionStatus(database string, status byte) {
	var v float64
	switch status {
	case 'T':
		v = 1
	case 'E':
		v = 2
	}
	c.txStatus.WithLabelValues(database).Set(v)
}
