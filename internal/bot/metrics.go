package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"arbengine/internal/models"
)

// DecisionsTotal counts every non-NONE Decision Logic output, labeled by
// pair, reason, and direction.
var DecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbengine",
		Subsystem: "aee",
		Name:      "decisions_total",
		Help:      "Decision Logic firings by reason and direction",
	},
	[]string{"bot_id", "reason", "direction"},
)

// TradesTotal counts dispatched legs by venue and send outcome.
var TradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbengine",
		Subsystem: "aee",
		Name:      "trades_total",
		Help:      "Dispatched legs by venue and send_market status",
	},
	[]string{"bot_id", "venue", "status"},
)

// FillsTotal counts reconciled fill events by venue.
var FillsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbengine",
		Subsystem: "aee",
		Name:      "fills_total",
		Help:      "Account-stream fill events applied to VenueState",
	},
	[]string{"bot_id", "venue"},
)

// FillClampsTotal counts the oversized-fill defensive clamp firing.
var FillClampsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbengine",
		Subsystem: "aee",
		Name:      "fill_clamps_total",
		Help:      "Times an account fill delta was clamped against pending_legs",
	},
	[]string{"bot_id", "venue"},
)

// TickToDispatchLatency is the time from OB tick to both legs sent.
var TickToDispatchLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "arbengine",
		Subsystem: "aee",
		Name:      "tick_to_dispatch_latency_ms",
		Help:      "Latency from qualifying OB tick to both legs dispatched",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250},
	},
	[]string{"bot_id"},
)

// FillReconcileLatency is the time from dispatch to full reconciliation.
var FillReconcileLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "arbengine",
		Subsystem: "aee",
		Name:      "fill_reconcile_latency_ms",
		Help:      "Latency from dispatch to pending_legs reconciled",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 5000},
	},
	[]string{"bot_id"},
)

// SpreadObserved records every computed TT spread value, signed.
var SpreadObserved = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "arbengine",
		Subsystem: "aee",
		Name:      "spread_observed_percent",
		Help:      "Observed TT spread values in percent",
		Buckets:   []float64{-1, -0.5, 0, 0.1, 0.2, 0.3, 0.5, 1, 2, 5},
	},
	[]string{"bot_id", "reason"},
)

// PairState reports the current TradeState as a gauge (1 for the active
// state, 0 otherwise) so Grafana can stack pair states over time.
var PairState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "arbengine",
		Subsystem: "aee",
		Name:      "pair_state",
		Help:      "Current TradeState per pair (1=active state, 0=otherwise)",
	},
	[]string{"bot_id", "state"},
)

// BusOverflows counts events dropped because an AEE's event bus was full.
var BusOverflows = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbengine",
		Subsystem: "aee",
		Name:      "bus_overflows_total",
		Help:      "Events dropped because the per-pair event bus was full",
	},
	[]string{"venue", "kind"},
)

// SupervisorRestarts counts Pair Supervisor restarts after an engine run
// ends in an error, a recovered panic included.
var SupervisorRestarts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbengine",
		Subsystem: "supervisor",
		Name:      "restarts_total",
		Help:      "Number of times the supervisor restarted a crashed AEE",
	},
	[]string{"bot_id"},
)

// RecordBusOverflow records a dropped event on a full event bus.
func RecordBusOverflow(venue models.Venue, kind string) {
	BusOverflows.WithLabelValues(string(venue), kind).Inc()
}

// RecordDecision records a firing Decision Logic output.
func RecordDecision(botID string, reason models.ReasonTag, direction models.Direction) {
	DecisionsTotal.WithLabelValues(botID, string(reason), string(direction)).Inc()
}

// RecordTrade records one dispatched leg's send outcome.
func RecordTrade(botID string, venue models.Venue, status string) {
	TradesTotal.WithLabelValues(botID, string(venue), status).Inc()
}

// RecordFill records one applied account fill.
func RecordFill(botID string, venue models.Venue) {
	FillsTotal.WithLabelValues(botID, string(venue)).Inc()
}

// RecordFillClamp records the defensive oversized-fill clamp firing.
func RecordFillClamp(botID string, venue models.Venue) {
	FillClampsTotal.WithLabelValues(botID, string(venue)).Inc()
}

// RecordSpread records one computed spread observation.
func RecordSpread(botID string, reason models.ReasonTag, value float64) {
	SpreadObserved.WithLabelValues(botID, string(reason)).Observe(value)
}

// SetPairState flips the gauge for the newly entered state to 1 and the
// previous state to 0.
func SetPairState(botID string, previous, current models.TradeState) {
	if previous != "" {
		PairState.WithLabelValues(botID, string(previous)).Set(0)
	}
	PairState.WithLabelValues(botID, string(current)).Set(1)
}

// RecordDispatchLatency observes the time from a qualifying tick to both
// legs dispatched.
func RecordDispatchLatency(botID string, ms float64) {
	TickToDispatchLatency.WithLabelValues(botID).Observe(ms)
}

// RecordReconcileLatency observes the time from dispatch to a trade's
// pending_legs fully reconciling.
func RecordReconcileLatency(botID string, ms float64) {
	FillReconcileLatency.WithLabelValues(botID).Observe(ms)
}
