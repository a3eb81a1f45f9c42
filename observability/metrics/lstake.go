package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LstakeMetrics tracks liquid-stake transaction outcomes.
type LstakeMetrics struct {
	initiated prometheus.Counter
	minted    prometheus.Counter
	forwarded prometheus.Counter
	refunded  prometheus.Counter
	stranded  prometheus.Counter
	claimed   prometheus.Counter
}

var (
	lstakeOnce     sync.Once
	lstakeRegistry *LstakeMetrics
)

func Lstake() *LstakeMetrics {
	lstakeOnce.Do(func() {
		lstakeRegistry = &LstakeMetrics{
			initiated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lstake_initiated_total",
				Help: "Count of accepted liquid-stake deposits.",
			}),
			minted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lstake_minted_total",
				Help: "Count of settled staking calls with a measured mint.",
			}),
			forwarded: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lstake_forwarded_total",
				Help: "Count of second-hop transfers that completed.",
			}),
			refunded: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lstake_refunded_total",
				Help: "Count of failed forwards compensated to a recovery account.",
			}),
			stranded: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lstake_stranded_total",
				Help: "Count of failed forwards with no recovery account.",
			}),
			claimed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lstake_claimed_total",
				Help: "Count of pull-based claims paid out.",
			}),
		}
		prometheus.MustRegister(
			lstakeRegistry.initiated,
			lstakeRegistry.minted,
			lstakeRegistry.forwarded,
			lstakeRegistry.refunded,
			lstakeRegistry.stranded,
			lstakeRegistry.claimed,
		)
	})
	return lstakeRegistry
}

func (m *LstakeMetrics) ObserveInitiated() {
	if m == nil {
		return
	}
	m.initiated.Inc()
}

func (m *LstakeMetrics) ObserveMinted() {
	if m == nil {
		return
	}
	m.minted.Inc()
}

func (m *LstakeMetrics) ObserveForwarded() {
	if m == nil {
		return
	}
	m.forwarded.Inc()
}

func (m *LstakeMetrics) ObserveRefunded() {
	if m == nil {
		return
	}
	m.refunded.Inc()
}

func (m *LstakeMetrics) ObserveStranded() {
	if m == nil {
		return
	}
	m.stranded.Inc()
}

func (m *LstakeMetrics) ObserveClaimed() {
	if m == nil {
		return
	}
	m.claimed.Inc()
}
