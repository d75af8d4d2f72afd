package bot

import (
	"testing"

	"arbengine/internal/models"
)

func baseCfg() models.PairConfig {
	return models.PairConfig{
		MinSpread: 0.40,
		SpreadTP:  0.20,
		MinHits:   3,
		MaxOfOB:   0.30,
	}
}

// S1 — entry fires after three consecutive hits above min_spread.
func TestEvaluateDecisionEntryFiresAfterThreeHits(t *testing.T) {
	cfg := baseCfg()
	state := NewAEEState(cfg)
	state.HedgeSeeded, state.StreamsReady, state.PositionSeeded = true, true, true
	state.WarmupStage = models.WarmupDone

	obV1 := models.OrderBookTop{Bid: 100.0, Ask: 100.1, AskSize: 0.5, BidSize: 0.5}

	ticks := []models.OrderBookTop{
		{Bid: 100.6, Ask: 100.7, BidSize: 0.4, AskSize: 0.4},
		{Bid: 100.55, Ask: 100.65, BidSize: 0.4, AskSize: 0.4},
		{Bid: 100.6, Ask: 100.7, BidSize: 0.4, AskSize: 0.4},
	}

	var d1, d2 models.Decision
	for _, obV2 := range ticks {
		spreads := calcSpreads(obV1, obV2, state.V1, state.V2)
		d1, d2 = EvaluateDecision(state, spreads, obV1, obV2, cfg, 0.120, 0)
	}

	if d1.ActionType != models.ActionTake {
		t.Fatalf("expected a firing decision at t=3, got %v / %v", d1, d2)
	}
	if d1.Reason != models.ReasonTT12 || d1.Direction != models.DirectionEntry {
		t.Fatalf("expected TT_12 ENTRY, got reason=%v dir=%v", d1.Reason, d1.Direction)
	}
	if d1.Venue != models.VenueV1 || d1.Side != models.SideLong {
		t.Fatalf("expected V1 LONG leg, got %v %v", d1.Venue, d1.Side)
	}
	if d2.Venue != models.VenueV2 || d2.Side != models.SideShort {
		t.Fatalf("expected V2 SHORT leg, got %v %v", d2.Venue, d2.Side)
	}
}

// S2 — a reset at t=2 means only one consecutive hit by t=3: blocked.
func TestEvaluateDecisionBlockedByResetHitCounter(t *testing.T) {
	cfg := baseCfg()
	state := NewAEEState(cfg)
	state.HedgeSeeded, state.StreamsReady, state.PositionSeeded = true, true, true
	state.WarmupStage = models.WarmupDone

	obV1 := models.OrderBookTop{Bid: 100.0, Ask: 100.1, AskSize: 0.5, BidSize: 0.5}
	ticks := []models.OrderBookTop{
		{Bid: 100.6, Ask: 100.7, BidSize: 0.4, AskSize: 0.4},  // hit 1: 0.4995%
		{Bid: 100.2, Ask: 100.3, BidSize: 0.4, AskSize: 0.4},  // drop below min_spread: reset
		{Bid: 100.6, Ask: 100.7, BidSize: 0.4, AskSize: 0.4},  // hit 1 again
	}

	var d1 models.Decision
	for _, obV2 := range ticks {
		spreads := calcSpreads(obV1, obV2, state.V1, state.V2)
		d1, _ = EvaluateDecision(state, spreads, obV1, obV2, cfg, 0.120, 0)
	}

	if d1.ActionType != models.ActionNone {
		t.Fatalf("expected NONE after reset broke the consecutive streak, got %v", d1)
	}
	if state.EntryHits12.Len() != 1 {
		t.Fatalf("expected hit counter at 1, got %d", state.EntryHits12.Len())
	}
}

// S3 — exit fires from a long-V1/short-V2 position once tt_21 clears
// spread_tp for min_hits consecutive ticks.
func TestEvaluateDecisionExitFiresFromLongV1ShortV2(t *testing.T) {
	cfg := baseCfg()
	state := NewAEEState(cfg)
	state.HedgeSeeded, state.StreamsReady, state.PositionSeeded = true, true, true
	state.WarmupStage = models.WarmupDone
	state.V1 = models.VenueState{InvQty: 0.120, EntryPrice: 100.1}
	state.V2 = models.VenueState{InvQty: -0.120, EntryPrice: 100.6}

	obV1 := models.OrderBookTop{Bid: 100.9, Ask: 101.0, AskSize: 0.5, BidSize: 0.5}
	obV2 := models.OrderBookTop{Bid: 100.0, Ask: 100.1, AskSize: 0.4, BidSize: 0.4}

	var d1, d2 models.Decision
	for i := 0; i < 3; i++ {
		spreads := calcSpreads(obV1, obV2, state.V1, state.V2)
		d1, d2 = EvaluateDecision(state, spreads, obV1, obV2, cfg, 0, 0.120)
	}

	if d1.ActionType != models.ActionTake {
		t.Fatalf("expected exit to fire, got %v / %v", d1, d2)
	}
	if d1.Reason != models.ReasonTT21 || d1.Direction != models.DirectionExit {
		t.Fatalf("expected TT_21 EXIT, got reason=%v dir=%v", d1.Reason, d1.Direction)
	}
	if d1.Venue != models.VenueV2 || d1.Side != models.SideLong {
		t.Fatalf("expected V2 LONG leg, got %v %v", d1.Venue, d1.Side)
	}
}

// S4 — the exposure cap blocks a fresh entry but never blocks an exit.
func TestEvaluateDecisionCapBlocksEntryPermitsExit(t *testing.T) {
	cfg := baseCfg()
	cfg.MaxPositionValue = 10

	state := NewAEEState(cfg)
	state.HedgeSeeded, state.StreamsReady, state.PositionSeeded = true, true, true
	state.WarmupStage = models.WarmupDone
	state.V1 = models.VenueState{InvQty: 0.12, EntryPrice: 100}
	state.V2 = models.VenueState{InvQty: -0.12, EntryPrice: 100}

	obV1 := models.OrderBookTop{Bid: 100.0, Ask: 100.1, AskSize: 0.5, BidSize: 0.5}
	obV2Entry := models.OrderBookTop{Bid: 100.6, Ask: 100.7, AskSize: 0.4, BidSize: 0.4}

	var entryDecision models.Decision
	for i := 0; i < cfg.MinHits; i++ {
		spreads := calcSpreads(obV1, obV2Entry, state.V1, state.V2)
		entryDecision, _ = EvaluateDecision(state, spreads, obV1, obV2Entry, cfg, 0.120, 0)
	}
	if entryDecision.ActionType != models.ActionNone {
		t.Fatalf("expected cap to block entry, got %v", entryDecision)
	}

	obV1Exit := models.OrderBookTop{Bid: 100.9, Ask: 101.0, AskSize: 0.5, BidSize: 0.5}
	obV2Exit := models.OrderBookTop{Bid: 100.3, Ask: 100.4, AskSize: 0.4, BidSize: 0.4}

	var exitDecision models.Decision
	for i := 0; i < cfg.MinHits; i++ {
		spreads := calcSpreads(obV1Exit, obV2Exit, state.V1, state.V2)
		exitDecision, _ = EvaluateDecision(state, spreads, obV1Exit, obV2Exit, cfg, 0, 0.120)
	}
	if exitDecision.ActionType != models.ActionTake || exitDecision.Direction != models.DirectionExit {
		t.Fatalf("expected cap to still permit the exit, got %v", exitDecision)
	}
}

// Testable property 8: exposure exactly at max_position_value must
// still block an entry — the cap is inclusive (>=), not exclusive (>).
func TestEvaluateDecisionCapBlocksEntryAtExactBoundary(t *testing.T) {
	cfg := baseCfg()
	cfg.MaxPositionValue = 10

	state := NewAEEState(cfg)
	state.HedgeSeeded, state.StreamsReady, state.PositionSeeded = true, true, true
	state.WarmupStage = models.WarmupDone
	state.V1 = models.VenueState{InvQty: 0.1, EntryPrice: 100}
	state.V2 = models.VenueState{InvQty: -0.1, EntryPrice: 100}

	obV1 := models.OrderBookTop{Bid: 100.0, Ask: 100.1, AskSize: 0.5, BidSize: 0.5}
	obV2Entry := models.OrderBookTop{Bid: 100.6, Ask: 100.7, AskSize: 0.4, BidSize: 0.4}

	var entryDecision models.Decision
	for i := 0; i < cfg.MinHits; i++ {
		spreads := calcSpreads(obV1, obV2Entry, state.V1, state.V2)
		entryDecision, _ = EvaluateDecision(state, spreads, obV1, obV2Entry, cfg, 0.120, 0)
	}
	if entryDecision.ActionType != models.ActionNone {
		t.Fatalf("expected exposure exactly at the cap to block entry, got %v", entryDecision)
	}
}

// Trade budget gate: with signals_remaining at 0, evaluation
// short-circuits to NONE regardless of spread state.
func TestEvaluateDecisionBudgetGateBlocksEverything(t *testing.T) {
	cfg := baseCfg()
	state := NewAEEState(cfg)
	zero := 0
	state.SignalsRemaining = &zero
	state.HedgeSeeded, state.StreamsReady, state.PositionSeeded = true, true, true

	obV1 := models.OrderBookTop{Bid: 100.0, Ask: 100.1, AskSize: 0.5, BidSize: 0.5}
	obV2 := models.OrderBookTop{Bid: 100.6, Ask: 100.7, AskSize: 0.4, BidSize: 0.4}
	spreads := calcSpreads(obV1, obV2, state.V1, state.V2)

	d1, d2 := EvaluateDecision(state, spreads, obV1, obV2, cfg, 0.120, 0.120)
	if d1.ActionType != models.ActionNone || d2.ActionType != models.ActionNone {
		t.Fatalf("expected NONE when trade budget exhausted, got %v / %v", d1, d2)
	}
}

// Testable property 8 applies only for a positive cap: a cap of 0
// disables the exposure check, so a large existing position still
// allows the entry.
func TestEvaluateDecisionCapDisabledWhenZero(t *testing.T) {
	cfg := baseCfg()
	cfg.MaxPositionValue = 0
	state := NewAEEState(cfg)
	state.HedgeSeeded, state.StreamsReady, state.PositionSeeded = true, true, true
	state.V1 = models.VenueState{InvQty: 100, EntryPrice: 100}

	obV1 := models.OrderBookTop{Bid: 100.0, Ask: 100.1, AskSize: 0.5, BidSize: 0.5}
	obV2 := models.OrderBookTop{Bid: 100.6, Ask: 100.7, AskSize: 0.4, BidSize: 0.4}

	var d1 models.Decision
	for i := 0; i < cfg.MinHits; i++ {
		spreads := calcSpreads(obV1, obV2, state.V1, state.V2)
		d1, _ = EvaluateDecision(state, spreads, obV1, obV2, cfg, 0.120, 0)
	}
	if d1.ActionType != models.ActionTake {
		t.Fatalf("expected cap disabled at 0 to allow the entry, got %v", d1)
	}
}

func TestEvaluateDecisionSameDirectionNotMasked(t *testing.T) {
	cfg := baseCfg()
	state := NewAEEState(cfg)
	state.HedgeSeeded, state.StreamsReady, state.PositionSeeded = true, true, true
	// Already long V1 / short V2: a fresh TT_12 candidate (same direction
	// as the held position) must NOT be masked, only the opposite TT_21
	// candidate would be.
	state.V1 = models.VenueState{InvQty: 0.12, EntryPrice: 100}
	state.V2 = models.VenueState{InvQty: -0.12, EntryPrice: 100.6}

	obV1 := models.OrderBookTop{Bid: 100.0, Ask: 100.1, AskSize: 0.5, BidSize: 0.5}
	obV2 := models.OrderBookTop{Bid: 100.6, Ask: 100.7, AskSize: 0.4, BidSize: 0.4}

	var d1 models.Decision
	for i := 0; i < cfg.MinHits; i++ {
		spreads := calcSpreads(obV1, obV2, state.V1, state.V2)
		d1, _ = EvaluateDecision(state, spreads, obV1, obV2, cfg, 0.120, 0)
	}
	if d1.ActionType != models.ActionTake || d1.Reason != models.ReasonTT12 {
		t.Fatalf("expected same-direction TT_12 scale-in to fire, got %v", d1)
	}
}
