package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type ZapMetrics struct {
	swapsCompleted   *prometheus.CounterVec
	liquidityAdded   prometheus.Counter
	flowsFailed      *prometheus.CounterVec
	tokensRefunded   prometheus.Counter
	custodyDeposits  prometheus.Counter
	custodyWithdraws prometheus.Counter
}

var (
	zapOnce     sync.Once
	zapRegistry *ZapMetrics
)

func Zap() *ZapMetrics {
	zapOnce.Do(func() {
		zapRegistry = &ZapMetrics{
			swapsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "zap_swaps_completed_total",
				Help: "Count of completed swap legs by flow kind.",
			}, []string{"flow"}),
			liquidityAdded: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "zap_liquidity_added_total",
				Help: "Count of successful liquidity provisioning calls.",
			}),
			flowsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "zap_flows_failed_total",
				Help: "Count of failed flows by failing leg.",
			}, []string{"leg"}),
			tokensRefunded: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "zap_token_refunds_total",
				Help: "Count of flows that refunded unused tokens to the caller.",
			}),
			custodyDeposits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "zap_custody_deposits_total",
				Help: "Count of custody deposits.",
			}),
			custodyWithdraws: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "zap_custody_withdrawals_total",
				Help: "Count of custody withdrawals.",
			}),
		}
		prometheus.MustRegister(
			zapRegistry.swapsCompleted,
			zapRegistry.liquidityAdded,
			zapRegistry.flowsFailed,
			zapRegistry.tokensRefunded,
			zapRegistry.custodyDeposits,
			zapRegistry.custodyWithdraws,
		)
	})
	return zapRegistry
}

func (m *ZapMetrics) ObserveSwapCompleted(flow string) {
	if m == nil {
		return
	}
	m.swapsCompleted.WithLabelValues(flow).Inc()
}

func (m *ZapMetrics) ObserveLiquidityAdded() {
	if m == nil {
		return
	}
	m.liquidityAdded.Inc()
}

func (m *ZapMetrics) ObserveFlowFailed(leg string) {
	if m == nil {
		return
	}
	m.flowsFailed.WithLabelValues(leg).Inc()
}

func (m *ZapMetrics) ObserveTokensRefunded() {
	if m == nil {
		return
	}
	m.tokensRefunded.Inc()
}

func (m *ZapMetrics) ObserveCustodyDeposit() {
	if m == nil {
		return
	}
	m.custodyDeposits.Inc()
}

func (m *ZapMetrics) ObserveCustodyWithdrawal() {
	if m == nil {
		return
	}
	m.custodyWithdraws.Inc()
}
