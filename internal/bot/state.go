package bot

import (
	"time"

	"arbengine/internal/models"
)

// AEEState is the in-process mutable record one Arbitrage Execution
// Engine instance owns for a single pair. Field-level mutation is
// serialized by the engine's single-task cooperative loop — nothing in
// this package takes a lock.
type AEEState struct {
	V1 models.VenueState
	V2 models.VenueState

	HedgeSeeded    bool
	StreamsReady   bool
	PositionSeeded bool

	// AccountStreamV1Ready/AccountStreamV2Ready latch true the first time
	// either venue's account stream delivers a fill or position message.
	// Distinct from PositionSeeded, which only reflects the one-shot REST
	// snapshot taken before streaming begins.
	AccountStreamV1Ready bool
	AccountStreamV2Ready bool

	EntryHits12 *models.HitHistory
	EntryHits21 *models.HitHistory
	ExitHits12  *models.HitHistory
	ExitHits21  *models.HitHistory

	// SignalsRemaining is nil when the pair has no trade-count cap.
	SignalsRemaining *int

	Trade   *models.TradeContext
	Pending *models.PendingLegs

	WarmupStage models.WarmupStage
	TradeState  models.TradeState

	LastOBTimestampV1 int64
	LastOBTimestampV2 int64
}

// NewAEEState builds the starting state for a freshly supervised pair.
// Warmup begins at V12_PENDING when enabled, DONE otherwise.
func NewAEEState(cfg models.PairConfig) *AEEState {
	stage := models.WarmupDone
	if cfg.WarmUpOrders {
		stage = models.WarmupV12Pending
	}

	var remaining *int
	if cfg.MaxTrades != nil {
		v := *cfg.MaxTrades
		remaining = &v
	}

	return &AEEState{
		EntryHits12:      models.NewHitHistory(cfg.MinHits),
		EntryHits21:      models.NewHitHistory(cfg.MinHits),
		ExitHits12:       models.NewHitHistory(cfg.MinHits),
		ExitHits21:       models.NewHitHistory(cfg.MinHits),
		SignalsRemaining: remaining,
		WarmupStage:      stage,
		TradeState:       models.TradeIdle,
	}
}

// ResetEntryHistories clears both entry-side hit deques, called whenever
// a firing entry decision is emitted.
func (s *AEEState) ResetEntryHistories() {
	s.EntryHits12.Reset()
	s.EntryHits21.Reset()
}

// ConsumeSignal decrements the trade budget, a no-op when the pair has
// no configured cap.
func (s *AEEState) ConsumeSignal() {
	if s.SignalsRemaining == nil {
		return
	}
	*s.SignalsRemaining--
}

// Ready reports whether the readiness gate has opened: both OB streams,
// both account streams' first message, both initial position snapshots,
// and the optional seed step have all arrived.
func (s *AEEState) Ready() bool {
	return s.HedgeSeeded && s.StreamsReady && s.PositionSeeded &&
		s.AccountStreamV1Ready && s.AccountStreamV2Ready
}

// IsLongV1ShortV2 reports the inventory shape TT_21 would unwind.
func (s *AEEState) IsLongV1ShortV2() bool {
	return s.V1.InvQty > 0 && s.V2.InvQty < 0
}

// IsLongV2ShortV1 reports the inventory shape TT_12 would unwind.
func (s *AEEState) IsLongV2ShortV1() bool {
	return s.V1.InvQty < 0 && s.V2.InvQty > 0
}

// ToRuntime produces a read-only snapshot of the State Store. The
// /healthz handler does not call it.
func (s *AEEState) ToRuntime(cfg models.PairConfig) models.PairRuntime {
	var left *int
	if s.SignalsRemaining != nil {
		v := *s.SignalsRemaining
		left = &v
	}
	return models.PairRuntime{
		PairID:       cfg.ID,
		BotID:        cfg.BotID(),
		State:        s.TradeState,
		InvV1:        s.V1.InvQty,
		InvV2:        s.V2.InvQty,
		EntryV1:      s.V1.EntryPrice,
		EntryV2:      s.V2.EntryPrice,
		SignalsLeft:  left,
		HedgeSeeded:  s.HedgeSeeded,
		StreamsReady: s.StreamsReady,
		LastUpdate:   time.Now(),
	}
}
