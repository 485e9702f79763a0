package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ClearingCore Metrics Collector
// Provides comprehensive metrics for monitoring

var (
	// Singleton collector
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds all ClearingCore metrics
type Collector struct {
	// Collateral ledger metrics
	DepositsTotal    *prometheus.CounterVec
	WithdrawalsTotal *prometheus.CounterVec
	TransferVolume   *prometheus.CounterVec
	AccountsActive   *prometheus.GaugeVec

	// Margin engine metrics
	MarginComputeLatency *prometheus.HistogramVec
	MarginDelta          *prometheus.GaugeVec

	// Liquidation bid metrics
	BidsSubmitted *prometheus.CounterVec
	BidsExecuted  *prometheus.CounterVec
	BidsFailed    *prometheus.CounterVec
	BidQueueDepth *prometheus.GaugeVec
	BidRank       *prometheus.HistogramVec

	// Dutch liquidation metrics
	DutchLiquidationsTotal *prometheus.CounterVec
	DutchPenaltyParameter  *prometheus.HistogramVec

	// Penalty distribution metrics
	PenaltyDistributed *prometheus.CounterVec

	// Insurance fund metrics
	InsuranceFundBalance *prometheus.GaugeVec
	InsuranceFundInflow  *prometheus.CounterVec
	InsuranceFundOutflow *prometheus.CounterVec

	// Backstop and ADL metrics
	BackstopLiquidationsTotal *prometheus.CounterVec
	ADLEventsTotal            *prometheus.CounterVec
	ADLPositionsAffected      *prometheus.CounterVec
	BackstopPoolShares        *prometheus.GaugeVec
	BackstopPoolNAV           *prometheus.GaugeVec

	// Auto-exchange metrics
	AutoExchangesTotal *prometheus.CounterVec
	AutoExchangeVolume *prometheus.CounterVec

	// WebSocket metrics
	WSConnectionsActive *prometheus.GaugeVec
	WSMessagesTotal     *prometheus.CounterVec
	WSMessageLatency    *prometheus.HistogramVec
	WSSubscriptions     *prometheus.GaugeVec

	// API metrics
	APIRequestsTotal  *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec
	APIErrorsTotal    *prometheus.CounterVec
	RateLimitHits     *prometheus.CounterVec

	// System metrics
	BlockHeight prometheus.Gauge
	BlockTime   *prometheus.HistogramVec
	TxPoolSize  prometheus.Gauge
	PeerCount   prometheus.Gauge
}

// GetCollector returns the singleton metrics collector
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

// newCollector creates a new metrics collector
func newCollector() *Collector {
	c := &Collector{}

	// Collateral ledger metrics
	c.DepositsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "collateral",
			Name:      "deposits_total",
			Help:      "Total number of collateral deposits",
		},
		[]string{"pool_id", "token"},
	)

	c.WithdrawalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "collateral",
			Name:      "withdrawals_total",
			Help:      "Total number of collateral withdrawals",
		},
		[]string{"pool_id", "token"},
	)

	c.TransferVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "collateral",
			Name:      "transfer_volume",
			Help:      "Total transfer volume in token units",
		},
		[]string{"pool_id", "token"},
	)

	c.AccountsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "clearingcore",
			Subsystem: "collateral",
			Name:      "accounts_active",
			Help:      "Number of accounts with non-zero balances",
		},
		[]string{"pool_id"},
	)

	// Margin engine metrics
	c.MarginComputeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clearingcore",
			Subsystem: "margin",
			Name:      "compute_latency_ms",
			Help:      "Margin requirement computation latency in milliseconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50},
		},
		[]string{"requirement"},
	)

	c.MarginDelta = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "clearingcore",
			Subsystem: "margin",
			Name:      "delta",
			Help:      "Last observed margin requirement delta in quote units",
		},
		[]string{"requirement", "token"},
	)

	// Liquidation bid metrics
	c.BidsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "liquidation",
			Name:      "bids_submitted_total",
			Help:      "Total liquidation bids submitted",
		},
		[]string{"token"},
	)

	c.BidsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "liquidation",
			Name:      "bids_executed_total",
			Help:      "Total liquidation bids executed successfully",
		},
		[]string{"token"},
	)

	c.BidsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "liquidation",
			Name:      "bids_failed_total",
			Help:      "Total liquidation bids that failed on execution",
		},
		[]string{"token", "reason"},
	)

	c.BidQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "clearingcore",
			Subsystem: "liquidation",
			Name:      "bid_queue_depth",
			Help:      "Number of bids in the live queue",
		},
		[]string{"token"},
	)

	c.BidRank = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clearingcore",
			Subsystem: "liquidation",
			Name:      "bid_rank",
			Help:      "Rank distribution of submitted bids",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 8),
		},
		[]string{"token"},
	)

	// Dutch liquidation metrics
	c.DutchLiquidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "liquidation",
			Name:      "dutch_total",
			Help:      "Total dutch liquidations executed",
		},
		[]string{"token"},
	)

	c.DutchPenaltyParameter = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clearingcore",
			Subsystem: "liquidation",
			Name:      "dutch_penalty_parameter",
			Help:      "Health-scaled dutch penalty parameter distribution",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.75, 1.0},
		},
		[]string{"token"},
	)

	// Penalty distribution metrics
	c.PenaltyDistributed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "liquidation",
			Name:      "penalty_distributed",
			Help:      "Total penalty distributed in quote units, by recipient class",
		},
		[]string{"token", "recipient"},
	)

	// Insurance fund metrics
	c.InsuranceFundBalance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "clearingcore",
			Subsystem: "insurance_fund",
			Name:      "balance",
			Help:      "Insurance fund balance in quote units",
		},
		[]string{"pool_id", "token"},
	)

	c.InsuranceFundInflow = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "insurance_fund",
			Name:      "inflow",
			Help:      "Total inflow to the insurance fund in quote units",
		},
		[]string{"pool_id", "token", "source"},
	)

	c.InsuranceFundOutflow = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "insurance_fund",
			Name:      "outflow",
			Help:      "Total outflow from the insurance fund in quote units",
		},
		[]string{"pool_id", "token", "reason"},
	)

	// Backstop and ADL metrics
	c.BackstopLiquidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "backstop",
			Name:      "liquidations_total",
			Help:      "Total backstop liquidations, by solvency path",
		},
		[]string{"token", "path"},
	)

	c.ADLEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "adl",
			Name:      "events_total",
			Help:      "Total auto-deleveraging events",
		},
		[]string{"market_id", "reason"},
	)

	c.ADLPositionsAffected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "adl",
			Name:      "positions_affected",
			Help:      "Total positions unwound by auto-deleveraging",
		},
		[]string{"market_id"},
	)

	c.BackstopPoolShares = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "clearingcore",
			Subsystem: "backstop",
			Name:      "pool_shares",
			Help:      "Total outstanding backstop pool shares",
		},
		[]string{"pool_id"},
	)

	c.BackstopPoolNAV = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "clearingcore",
			Subsystem: "backstop",
			Name:      "pool_nav",
			Help:      "Backstop pool net asset value per share",
		},
		[]string{"pool_id"},
	)

	// Auto-exchange metrics
	c.AutoExchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "auto_exchange",
			Name:      "total",
			Help:      "Total auto-exchange executions",
		},
		[]string{"covering_token", "exchanged_token"},
	)

	c.AutoExchangeVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "auto_exchange",
			Name:      "volume",
			Help:      "Total auto-exchanged amount in deficit-token units",
		},
		[]string{"exchanged_token"},
	)

	// WebSocket metrics
	c.WSConnectionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "clearingcore",
			Subsystem: "websocket",
			Name:      "connections_active",
			Help:      "Number of active WebSocket connections",
		},
		[]string{},
	)

	c.WSMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "websocket",
			Name:      "messages_total",
			Help:      "Total WebSocket messages sent",
		},
		[]string{"channel"},
	)

	c.WSMessageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clearingcore",
			Subsystem: "websocket",
			Name:      "message_latency_ms",
			Help:      "WebSocket message latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100},
		},
		[]string{"channel"},
	)

	c.WSSubscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "clearingcore",
			Subsystem: "websocket",
			Name:      "subscriptions",
			Help:      "Number of active subscriptions per channel",
		},
		[]string{"channel"},
	)

	// API metrics
	c.APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests",
		},
		[]string{"method", "path", "status"},
	)

	c.APIRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clearingcore",
			Subsystem: "api",
			Name:      "request_latency_ms",
			Help:      "API request latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"method", "path"},
	)

	c.APIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Total API errors",
		},
		[]string{"method", "path", "error_type"},
	)

	c.RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clearingcore",
			Subsystem: "api",
			Name:      "rate_limit_hits",
			Help:      "Total rate limit hits",
		},
		[]string{"limit_type"},
	)

	// System metrics
	c.BlockHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clearingcore",
			Subsystem: "system",
			Name:      "block_height",
			Help:      "Current block height",
		},
	)

	c.BlockTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clearingcore",
			Subsystem: "system",
			Name:      "block_time_ms",
			Help:      "Block time in milliseconds",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 5000},
		},
		[]string{},
	)

	c.TxPoolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clearingcore",
			Subsystem: "system",
			Name:      "tx_pool_size",
			Help:      "Transaction pool size",
		},
	)

	c.PeerCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clearingcore",
			Subsystem: "system",
			Name:      "peer_count",
			Help:      "Number of connected peers",
		},
	)

	// Register all metrics
	c.registerAll()

	return c
}

// registerAll registers all metrics with Prometheus
func (c *Collector) registerAll() {
	// Collateral ledger metrics
	prometheus.MustRegister(c.DepositsTotal)
	prometheus.MustRegister(c.WithdrawalsTotal)
	prometheus.MustRegister(c.TransferVolume)
	prometheus.MustRegister(c.AccountsActive)

	// Margin engine metrics
	prometheus.MustRegister(c.MarginComputeLatency)
	prometheus.MustRegister(c.MarginDelta)

	// Liquidation bid metrics
	prometheus.MustRegister(c.BidsSubmitted)
	prometheus.MustRegister(c.BidsExecuted)
	prometheus.MustRegister(c.BidsFailed)
	prometheus.MustRegister(c.BidQueueDepth)
	prometheus.MustRegister(c.BidRank)

	// Dutch liquidation metrics
	prometheus.MustRegister(c.DutchLiquidationsTotal)
	prometheus.MustRegister(c.DutchPenaltyParameter)

	// Penalty distribution metrics
	prometheus.MustRegister(c.PenaltyDistributed)

	// Insurance fund metrics
	prometheus.MustRegister(c.InsuranceFundBalance)
	prometheus.MustRegister(c.InsuranceFundInflow)
	prometheus.MustRegister(c.InsuranceFundOutflow)

	// Backstop and ADL metrics
	prometheus.MustRegister(c.BackstopLiquidationsTotal)
	prometheus.MustRegister(c.ADLEventsTotal)
	prometheus.MustRegister(c.ADLPositionsAffected)
	prometheus.MustRegister(c.BackstopPoolShares)
	prometheus.MustRegister(c.BackstopPoolNAV)

	// Auto-exchange metrics
	prometheus.MustRegister(c.AutoExchangesTotal)
	prometheus.MustRegister(c.AutoExchangeVolume)

	// WebSocket metrics
	prometheus.MustRegister(c.WSConnectionsActive)
	prometheus.MustRegister(c.WSMessagesTotal)
	prometheus.MustRegister(c.WSMessageLatency)
	prometheus.MustRegister(c.WSSubscriptions)

	// API metrics
	prometheus.MustRegister(c.APIRequestsTotal)
	prometheus.MustRegister(c.APIRequestLatency)
	prometheus.MustRegister(c.APIErrorsTotal)
	prometheus.MustRegister(c.RateLimitHits)

	// System metrics
	prometheus.MustRegister(c.BlockHeight)
	prometheus.MustRegister(c.BlockTime)
	prometheus.MustRegister(c.TxPoolSize)
	prometheus.MustRegister(c.PeerCount)
}

// ============ Recording Helpers ============

// RecordDeposit records a collateral deposit
func (c *Collector) RecordDeposit(poolID, token string, amount float64) {
	c.DepositsTotal.WithLabelValues(poolID, token).Inc()
	c.TransferVolume.WithLabelValues(poolID, token).Add(amount)
}

// RecordWithdrawal records a collateral withdrawal
func (c *Collector) RecordWithdrawal(poolID, token string, amount float64) {
	c.WithdrawalsTotal.WithLabelValues(poolID, token).Inc()
	c.TransferVolume.WithLabelValues(poolID, token).Add(amount)
}

// RecordMarginCompute records a margin requirement computation
func (c *Collector) RecordMarginCompute(requirement string, latencyMs float64) {
	c.MarginComputeLatency.WithLabelValues(requirement).Observe(latencyMs)
}

// RecordBidSubmitted records a submitted liquidation bid
func (c *Collector) RecordBidSubmitted(token string, rank float64, queueDepth int) {
	c.BidsSubmitted.WithLabelValues(token).Inc()
	c.BidRank.WithLabelValues(token).Observe(rank)
	c.BidQueueDepth.WithLabelValues(token).Set(float64(queueDepth))
}

// RecordBidExecuted records a liquidation bid execution attempt
func (c *Collector) RecordBidExecuted(token string, executed bool, reason string) {
	if executed {
		c.BidsExecuted.WithLabelValues(token).Inc()
		return
	}
	c.BidsFailed.WithLabelValues(token, reason).Inc()
}

// RecordDutchLiquidation records a dutch liquidation
func (c *Collector) RecordDutchLiquidation(token string, penaltyParameter float64) {
	c.DutchLiquidationsTotal.WithLabelValues(token).Inc()
	c.DutchPenaltyParameter.WithLabelValues(token).Observe(penaltyParameter)
}

// RecordPenaltyShare records one recipient's share of a distributed penalty
func (c *Collector) RecordPenaltyShare(token, recipient string, amount float64) {
	c.PenaltyDistributed.WithLabelValues(token, recipient).Add(amount)
}

// RecordInsuranceFund records the insurance fund balance
func (c *Collector) RecordInsuranceFund(poolID, token string, balance float64) {
	c.InsuranceFundBalance.WithLabelValues(poolID, token).Set(balance)
}

// RecordBackstopLiquidation records a backstop liquidation by solvency path
func (c *Collector) RecordBackstopLiquidation(token, path string) {
	c.BackstopLiquidationsTotal.WithLabelValues(token, path).Inc()
}

// RecordADL records an auto-deleveraging event
func (c *Collector) RecordADL(marketID, reason string, positionsAffected int) {
	c.ADLEventsTotal.WithLabelValues(marketID, reason).Inc()
	c.ADLPositionsAffected.WithLabelValues(marketID).Add(float64(positionsAffected))
}

// RecordBackstopPool records backstop pool share state
func (c *Collector) RecordBackstopPool(poolID string, shares, nav float64) {
	c.BackstopPoolShares.WithLabelValues(poolID).Set(shares)
	c.BackstopPoolNAV.WithLabelValues(poolID).Set(nav)
}

// RecordAutoExchange records an auto-exchange execution
func (c *Collector) RecordAutoExchange(coveringToken, exchangedToken string, amount float64) {
	c.AutoExchangesTotal.WithLabelValues(coveringToken, exchangedToken).Inc()
	c.AutoExchangeVolume.WithLabelValues(exchangedToken).Add(amount)
}

// RecordAPIRequest records an API request
func (c *Collector) RecordAPIRequest(method, path, status string, latencyMs float64) {
	c.APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.APIRequestLatency.WithLabelValues(method, path).Observe(latencyMs)
}

// RecordWSConnection records WebSocket connection changes
func (c *Collector) RecordWSConnection(delta int) {
	c.WSConnectionsActive.WithLabelValues().Add(float64(delta))
}

// RecordWSMessage records a WebSocket message
func (c *Collector) RecordWSMessage(channel string, latencyMs float64) {
	c.WSMessagesTotal.WithLabelValues(channel).Inc()
	c.WSMessageLatency.WithLabelValues(channel).Observe(latencyMs)
}

// UpdateSystemMetrics updates system-level metrics
func (c *Collector) UpdateSystemMetrics(blockHeight int64, txPoolSize int, peerCount int) {
	c.BlockHeight.Set(float64(blockHeight))
	c.TxPoolSize.Set(float64(txPoolSize))
	c.PeerCount.Set(float64(peerCount))
}

// ============ HTTP Handler ============

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for measuring latency
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ElapsedMs returns the elapsed time in milliseconds
func (t *Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}
