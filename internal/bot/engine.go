package bot

import (
	"context"
	"fmt"
	"math"
	"time"

	jsoniter "github.com/json-iterator/go"

	"arbengine/internal/exchange"
	"arbengine/internal/models"
	"arbengine/internal/repository"
	"arbengine/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PositionSyncGate, when true, holds the next decision after a trade
// finalizes until a fresh position snapshot has been seen on both
// venues — the optional guard against deciding on stale account state
// described in the concurrency model.
type EngineConfig struct {
	TickInterval     time.Duration
	PositionSyncGate bool
}

// Engine is one Arbitrage Execution Engine instance: the Trade
// Coordinator driving a single pair's loop. Exactly one Engine exists
// per configured pair, owned by a Supervisor.
type Engine struct {
	pair models.PairConfig
	ec   EngineConfig

	v1, v2 exchange.VenueAdapter

	state *AEEState
	trace *repository.TraceRepository

	bus eventBus
	log *utils.Logger

	obV1, obV2         models.OrderBookTop
	obV1Seen, obV2Seen bool
	lastPublishedV1    models.OrderBookTop
	lastPublishedV2    models.OrderBookTop

	positionSeqSeenV1 uint64
	positionSeqSeenV2 uint64
	awaitingSync      bool
}

// NewEngine wires a fresh Engine for one pair. v1/v2 must already
// implement VenueAdapter for models.VenueV1/VenueV2 respectively.
func NewEngine(pair models.PairConfig, v1, v2 exchange.VenueAdapter, trace *repository.TraceRepository, ec EngineConfig) *Engine {
	if ec.TickInterval <= 0 {
		ec.TickInterval = 250 * time.Millisecond
	}
	return &Engine{
		pair:  pair,
		ec:    ec,
		v1:    v1,
		v2:    v2,
		state: NewAEEState(pair),
		trace: trace,
		bus:   newEventBus(),
		log:   utils.L().WithComponent("aee").WithPairID(pair.ID),
	}
}

// Run blocks until ctx is canceled. It subscribes both venue adapters,
// seeds initial positions, and drives the single-task event loop. A
// clean context cancellation returns nil; any other return represents
// an unexpected failure the Supervisor should restart from.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.v1.SubscribeOB(pushOB(e.bus, models.VenueV1)); err != nil {
		return fmt.Errorf("subscribe ob v1: %w", err)
	}
	if err := e.v2.SubscribeOB(pushOB(e.bus, models.VenueV2)); err != nil {
		return fmt.Errorf("subscribe ob v2: %w", err)
	}
	if err := e.v1.SubscribeAccount(pushFill(e.bus, models.VenueV1), pushPosition(e.bus, models.VenueV1)); err != nil {
		return fmt.Errorf("subscribe account v1: %w", err)
	}
	if err := e.v2.SubscribeAccount(pushFill(e.bus, models.VenueV2), pushPosition(e.bus, models.VenueV2)); err != nil {
		return fmt.Errorf("subscribe account v2: %w", err)
	}

	qty1, entry1, err := e.v1.LoadInitialPosition(ctx)
	if err != nil {
		return fmt.Errorf("load initial position v1: %w", err)
	}
	qty2, entry2, err := e.v2.LoadInitialPosition(ctx)
	if err != nil {
		return fmt.Errorf("load initial position v2: %w", err)
	}
	e.state.V1.InvQty, e.state.V1.EntryPrice = qty1, entry1
	e.state.V2.InvQty, e.state.V2.EntryPrice = qty2, entry2
	e.state.PositionSeeded = true

	if !e.pair.WarmUpOrders {
		e.state.HedgeSeeded = true
	}

	e.log.Info("aee started", utils.String("bot_id", e.pair.BotID()),
		utils.Float64("inv_v1", qty1), utils.Float64("inv_v2", qty2))

	ticker := time.NewTicker(e.ec.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("aee stopping", utils.String("bot_id", e.pair.BotID()))
			return nil
		case ev := <-e.bus:
			e.handleEvent(ev)
		case <-ticker.C:
			e.handleWatchdogTick()
		}
	}
}

func (e *Engine) handleEvent(ev Event) {
	switch ev.Kind {
	case EventOB:
		e.handleOB(ev)
	case EventFill:
		e.handleFill(ev)
	case EventPosition:
		e.handlePosition(ev)
	}
}

// handleOB applies the Market Snapshot rules (sanitize + optional dedup)
// and re-evaluates the trading tick.
func (e *Engine) handleOB(ev Event) {
	ob := ev.OB.Sanitize()
	if ob.Bid <= 0 || ob.Ask <= 0 {
		return
	}

	switch ev.Venue {
	case models.VenueV1:
		if e.pair.DedupOB && ob == e.lastPublishedV1 {
			return
		}
		e.obV1, e.lastPublishedV1 = ob, ob
		e.obV1Seen = true
	case models.VenueV2:
		if e.pair.DedupOB && ob == e.lastPublishedV2 {
			return
		}
		e.obV2, e.lastPublishedV2 = ob, ob
		e.obV2Seen = true
	}

	if e.obV1Seen && e.obV2Seen {
		e.state.StreamsReady = true
	}

	e.evaluateTick()
}

// handleFill applies one account-stream fill: the oversized-fill
// defensive clamp, VenueState.ApplyFill, and pending-legs reconciliation.
func (e *Engine) handleFill(ev Event) {
	e.markAccountStreamReady(ev.Venue)

	vs := e.venueState(ev.Venue)
	delta := ev.FillDelta

	if e.state.Pending != nil {
		remaining := e.state.Pending.Remaining(ev.Venue)
		if bound := math.Abs(remaining) * 1.1; math.Abs(delta) > bound && bound > 0 {
			clamped := math.Copysign(math.Abs(remaining), delta)
			e.log.Warn("oversized fill clamped",
				utils.String("venue", string(ev.Venue)), utils.Float64("delta", delta), utils.Float64("clamped", clamped))
			RecordFillClamp(e.pair.BotID(), ev.Venue)
			delta = clamped
		}
		e.state.Pending.Reduce(ev.Venue, delta)
	}

	price := 0.0
	if ev.FillPrice != nil {
		price = *ev.FillPrice
	}
	vs.ApplyFill(delta, price)
	vs.LastFillLatencyMs = ev.FillLatencyMs
	RecordFill(e.pair.BotID(), ev.Venue)

	e.tryFinalize()
}

// handlePosition applies a position snapshot: venue-of-record truth
// always wins over locally accumulated inventory. If a trade is
// pending, the implied delta feeds the same reconciliation path fills
// use, which lets a post-reconnect snapshot unstick a stalled trade.
func (e *Engine) handlePosition(ev Event) {
	e.markAccountStreamReady(ev.Venue)

	vs := e.venueState(ev.Venue)
	delta := ev.PositionQty - vs.InvQty
	vs.InvQty = ev.PositionQty
	vs.EntryPrice = ev.PositionEntry
	vs.PositionSequence++

	switch ev.Venue {
	case models.VenueV1:
		e.positionSeqSeenV1++
	case models.VenueV2:
		e.positionSeqSeenV2++
	}
	if e.awaitingSync && e.positionSeqSeenV1 > 0 && e.positionSeqSeenV2 > 0 {
		e.awaitingSync = false
	}

	if e.state.Pending != nil && delta != 0 {
		e.state.Pending.Reduce(ev.Venue, delta)
		e.tryFinalize()
	}
}

// handleWatchdogTick is the periodic non-decision-driving tick. It only
// logs a stall warning; it never mutates trading state.
func (e *Engine) handleWatchdogTick() {
	if e.state.TradeState == models.TradePendingFills && e.state.Trade != nil {
		age := time.Since(utils.FromUnixMillis(e.state.Trade.SignalTSWall))
		if age > 30*time.Second {
			e.log.Warn("trade stuck in PENDING_FILLS",
				utils.String("trace", e.state.Trade.Trace.String()), utils.Latency(float64(age.Milliseconds())))
		}
	}
}

// evaluateTick runs the readiness gate, an opportunistic finalize check,
// and the Decision Logic, in that order, once per incoming market tick.
func (e *Engine) evaluateTick() {
	if !e.state.Ready() || e.awaitingSync {
		return
	}
	if !e.obV1.Valid() || !e.obV2.Valid() {
		return
	}

	e.tryFinalize()
	if e.state.TradeState != models.TradeIdle {
		return
	}

	spreads := calcSpreads(e.obV1, e.obV2, e.state.V1, e.state.V2)
	if spreads.TT12 != nil {
		RecordSpread(e.pair.BotID(), models.ReasonTT12, *spreads.TT12)
	}
	if spreads.TT21 != nil {
		RecordSpread(e.pair.BotID(), models.ReasonTT21, *spreads.TT21)
	}

	size12 := ComputeSharedSize(e.obV1, e.obV2, e.v1.Metadata(), e.v2.Metadata(), e.pair)
	size21 := ComputeSharedSize(e.obV2, e.obV1, e.v2.Metadata(), e.v1.Metadata(), e.pair)

	d1, d2 := EvaluateDecision(e.state, spreads, e.obV1, e.obV2, e.pair, size12, size21)
	if d1.ActionType == models.ActionNone {
		return
	}

	RecordDecision(e.pair.BotID(), d1.Reason, d1.Direction)
	e.commitAndDispatch(d1, d2, spreads)
}

// commitAndDispatch implements steps 5-11: build the TradeContext,
// advance warmup/budget bookkeeping, and dispatch both legs.
func (e *Engine) commitAndDispatch(d1, d2 models.Decision, spreads models.SpreadSet) {
	tc := models.NewTradeContext()
	tc.Reason = d1.Reason
	tc.Direction = d1.Direction
	tc.SpreadSignal = signalValue(spreads, d1.Reason)
	tc.OBPriceV1 = legFor(d1, d2, models.VenueV1).Price
	tc.OBPriceV2 = legFor(d1, d2, models.VenueV2).Price
	tc.ExpectedQty = d1.Size
	tc.InvBeforeV1 = e.state.V1.InvQty
	tc.InvBeforeV2 = e.state.V2.InvQty
	tc.SignalTSWall = utils.UnixMillis()
	tc.SignalTSMono = time.Now().UnixNano()

	e.state.Trade = &tc
	e.state.Pending = &models.PendingLegs{
		V1Remaining: signedDelta(legFor(d1, d2, models.VenueV1)),
		V2Remaining: signedDelta(legFor(d1, d2, models.VenueV2)),
	}

	switch d1.Reason {
	case models.ReasonWarmup12:
		e.state.WarmupStage = models.WarmupV12Inflight
	case models.ReasonWarmup21:
		e.state.WarmupStage = models.WarmupV21Inflight
	}
	if !d1.Reason.IsWarmup() {
		e.state.ConsumeSignal()
	}

	e.transition(models.TradeDispatching)
	e.dispatchLegs(&tc, d1, d2)
}

// dispatchLegs sends both legs concurrently (step 8), writes the
// initial decision row concurrently with the sends (step 9), then
// writes a trade_v<n> row per leg regardless of outcome (step 10).
// No engine-level timeout or rollback — a send error leaves pending
// state untouched and the operator observes the ERROR trade row.
func (e *Engine) dispatchLegs(tc *models.TradeContext, d1, d2 models.Decision) {
	type legResult struct {
		decision  models.Decision
		result    *exchange.SendResult
		err       error
		latencyMs float64
	}

	results := make(chan legResult, 2)
	send := func(d models.Decision) {
		adapter := e.adapterFor(d.Venue)
		refPrice := aggressivePrice(d.Side, d.Price, e.pair.Slippage)
		start := time.Now()
		res, err := adapter.SendMarket(context.Background(), d.Side, d.Size, refPrice)
		results <- legResult{decision: d, result: res, err: err, latencyMs: float64(time.Since(start).Milliseconds())}
	}
	go send(d1)
	go send(d2)
	go e.writeInitialDecision(tc, d1, d2)

	for i := 0; i < 2; i++ {
		r := <-results
		e.recordTradeLeg(tc, r.decision, r.result, r.err, r.latencyMs)
	}

	RecordDispatchLatency(e.pair.BotID(), float64(time.Since(utils.FromUnixMillis(tc.SignalTSWall)).Milliseconds()))
	e.transition(models.TradePendingFills)
}

func (e *Engine) recordTradeLeg(tc *models.TradeContext, d models.Decision, res *exchange.SendResult, sendErr error, latencyMs float64) {
	vs := e.venueState(d.Venue)
	vs.LastOrderLatencyMs = &latencyMs

	status, payload, resp := "ERROR", "", ""
	if sendErr != nil {
		resp = sendErr.Error()
		RecordTrade(e.pair.BotID(), d.Venue, "ERROR")
	} else if res != nil {
		status, payload, resp = res.Status, res.Payload, res.Resp
		RecordTrade(e.pair.BotID(), d.Venue, res.Status)
	}

	row := models.TradeRow{
		Trace: tc.Trace.String(), TS: time.Now(), BotName: e.pair.BotID(), Venue: string(d.Venue),
		Size: d.Size, OBPrice: d.Price, ExecPrice: aggressivePrice(d.Side, d.Price, e.pair.Slippage),
		LatOrder: latencyMs, Reason: string(d.Reason), Direction: string(d.Direction),
		Status: status, Payload: payload, Resp: resp,
	}
	if err := e.trace.InsertTradeRow(row); err != nil {
		e.log.Error("insert trade row failed", utils.Err(err))
	}

	body, _ := json.Marshal(row)
	if err := e.trace.UpsertTradeLeg(e.pair.BotID(), tc.Trace.String(), d.Venue, body); err != nil {
		e.log.Error("upsert trade leg failed", utils.Err(err))
	}

	if d.Venue == models.VenueV1 {
		tc.ExecPriceV1 = row.ExecPrice
	} else {
		tc.ExecPriceV2 = row.ExecPrice
	}
}

func (e *Engine) writeInitialDecision(tc *models.TradeContext, d1, d2 models.Decision) {
	decisionData, _ := json.Marshal(map[string]interface{}{
		"reason": tc.Reason, "direction": tc.Direction, "spread_signal": tc.SpreadSignal,
		"expected_qty": tc.ExpectedQty, "inv_before_v1": tc.InvBeforeV1, "inv_before_v2": tc.InvBeforeV2,
		"signal_ts_wall": tc.SignalTSWall,
	})
	obV1, _ := json.Marshal(e.obV1)
	obV2, _ := json.Marshal(e.obV2)

	if err := e.trace.UpsertDecision(e.pair.BotID(), tc.Trace.String(), decisionData, obV1, obV2); err != nil {
		e.log.Error("upsert initial decision failed", utils.Err(err))
	}

	decisionRow := models.DecisionRow{
		Trace: tc.Trace.String(), TS: time.Now(), BotName: e.pair.BotID(),
		OBV1: string(obV1), OBV2: string(obV2), Reason: string(tc.Reason), Direction: string(tc.Direction),
		SpreadSignal: tc.SpreadSignal,
	}
	if err := e.trace.InsertDecisionRow(decisionRow); err != nil {
		e.log.Error("insert decision row failed", utils.Err(err))
	}
}

// tryFinalize is the idempotent PENDING_FILLS → FINALIZING → IDLE
// transition. Safe to call from any event path; it is a no-op unless a
// trade is actually reconciled.
func (e *Engine) tryFinalize() {
	if e.state.TradeState != models.TradePendingFills || e.state.Pending == nil || e.state.Trade == nil {
		return
	}
	tol := pendingTolerance(e.state.Trade.ExpectedQty)
	if !e.state.Pending.ReconciledWithin(tol) {
		return
	}

	e.transition(models.TradeFinalizing)

	tc := e.state.Trade
	fillV1, fillV2 := 0.0, 0.0
	if e.state.V1.LastFillPrice != nil {
		fillV1 = *e.state.V1.LastFillPrice
	}
	if e.state.V2.LastFillPrice != nil {
		fillV2 = *e.state.V2.LastFillPrice
	}

	audit := BuildAudit(*tc, fillV1, fillV2, e.state.V1.LastFillLatencyMs, e.state.V2.LastFillLatencyMs, e.state.V1.InvQty, e.state.V2.InvQty)
	e.log.Info("trade finalized", utils.String("audit", audit.String()))

	e.writeFillRows(tc, fillV1, fillV2)
	e.writeFinalDecision(tc, audit)

	switch e.state.WarmupStage {
	case models.WarmupV12Inflight:
		e.state.WarmupStage = models.WarmupV21Pending
	case models.WarmupV21Inflight:
		e.state.WarmupStage = models.WarmupDone
		e.state.HedgeSeeded = true
	}

	e.state.Trade = nil
	e.state.Pending = nil

	if e.ec.PositionSyncGate {
		e.awaitingSync = true
		e.positionSeqSeenV1, e.positionSeqSeenV2 = 0, 0
	}

	e.transition(models.TradeIdle)
}

func (e *Engine) writeFillRows(tc *models.TradeContext, fillV1, fillV2 float64) {
	rows := []models.FillRow{
		{Trace: tc.Trace.String(), TS: time.Now(), BotName: e.pair.BotID(), Venue: string(models.VenueV1),
			BaseAmount: tc.ExpectedQty, FillPrice: fillV1, Latency: derefOr(e.state.V1.LastFillLatencyMs, 0)},
		{Trace: tc.Trace.String(), TS: time.Now(), BotName: e.pair.BotID(), Venue: string(models.VenueV2),
			BaseAmount: tc.ExpectedQty, FillPrice: fillV2, Latency: derefOr(e.state.V2.LastFillLatencyMs, 0)},
	}
	for _, row := range rows {
		if err := e.trace.InsertFillRow(row); err != nil {
			e.log.Error("insert fill row failed", utils.Err(err))
		}
		body, _ := json.Marshal(row)
		venue := models.Venue(row.Venue)
		if err := e.trace.UpsertFillLeg(e.pair.BotID(), tc.Trace.String(), venue, body); err != nil {
			e.log.Error("upsert fill leg failed", utils.Err(err))
		}
	}
	RecordReconcileLatency(e.pair.BotID(), float64(time.Since(utils.FromUnixMillis(tc.SignalTSWall)).Milliseconds()))
}

func (e *Engine) writeFinalDecision(tc *models.TradeContext, audit AuditLine) {
	decisionData, _ := json.Marshal(map[string]interface{}{
		"reason": tc.Reason, "direction": tc.Direction, "spread_signal": tc.SpreadSignal,
		"filled_spread": audit.FilledSpread, "inv_before_v1": tc.InvBeforeV1, "inv_before_v2": tc.InvBeforeV2,
		"inv_after_v1": audit.InvAfterV1, "inv_after_v2": audit.InvAfterV2,
	})
	obV1, _ := json.Marshal(e.obV1)
	obV2, _ := json.Marshal(e.obV2)
	if err := e.trace.UpsertDecision(e.pair.BotID(), tc.Trace.String(), decisionData, obV1, obV2); err != nil {
		e.log.Error("upsert final decision failed", utils.Err(err))
	}
}

// markAccountStreamReady latches the per-venue "account stream has
// spoken" readiness flag on the first fill or position message seen
// from that venue.
func (e *Engine) markAccountStreamReady(venue models.Venue) {
	if venue == models.VenueV1 {
		e.state.AccountStreamV1Ready = true
	} else {
		e.state.AccountStreamV2Ready = true
	}
}

func (e *Engine) venueState(venue models.Venue) *models.VenueState {
	if venue == models.VenueV1 {
		return &e.state.V1
	}
	return &e.state.V2
}

func (e *Engine) adapterFor(venue models.Venue) exchange.VenueAdapter {
	if venue == models.VenueV1 {
		return e.v1
	}
	return e.v2
}

func (e *Engine) transition(to models.TradeState) {
	from := e.state.TradeState
	if !CanTransition(from, to) {
		e.log.Error("invalid state transition", utils.String("from", string(from)), utils.String("to", string(to)))
		return
	}
	e.state.TradeState = to
	SetPairState(e.pair.BotID(), from, to)
}

// legFor returns whichever of d1/d2 belongs to venue.
func legFor(d1, d2 models.Decision, venue models.Venue) models.Decision {
	if d1.Venue == venue {
		return d1
	}
	return d2
}

// signedDelta is the fill delta a pending leg expects: positive for a
// long (buy) leg, negative for a short (sell) leg.
func signedDelta(d models.Decision) float64 {
	if d.Side == models.SideLong {
		return d.Size
	}
	return -d.Size
}

// aggressivePrice applies the slippage margin away from the reference
// OB price: up for a buy, down for a sell.
func aggressivePrice(side models.Side, refPrice, slippage float64) float64 {
	if side == models.SideLong {
		return refPrice * (1 + slippage)
	}
	return refPrice * (1 - slippage)
}

// signalValue picks the spread value a firing reason was computed from.
func signalValue(spreads models.SpreadSet, reason models.ReasonTag) float64 {
	switch reason {
	case models.ReasonTT12, models.ReasonWarmup12:
		if spreads.TT12 != nil {
			return *spreads.TT12
		}
	case models.ReasonTT21, models.ReasonWarmup21:
		if spreads.TT21 != nil {
			return *spreads.TT21
		}
	}
	return 0
}

// pendingTolerance is the absolute quantity under which a leg is
// considered filled: max(FillTolerance, expected_qty * 1e-4).
func pendingTolerance(expectedQty float64) float64 {
	return math.Max(models.FillTolerance, expectedQty*1e-4)
}

func derefOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
