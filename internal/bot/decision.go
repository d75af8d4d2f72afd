package bot

import (
	"math"
	"time"

	"arbengine/internal/models"
)

// EvaluateDecision is the pure Decision Logic: (state, spreads, both
// order books, thresholds, size hints) → a paired Decision or the NONE
// pair. state is mutated only for hit-counter bookkeeping; all other
// gating is read-only.
//
// sizeHint12/sizeHint21 are the Sizing Engine's shared-leg estimate for
// each direction this tick, 0 meaning "do not trade that direction".
func EvaluateDecision(
	state *AEEState,
	spreads models.SpreadSet,
	obV1, obV2 models.OrderBookTop,
	cfg models.PairConfig,
	sizeHint12, sizeHint21 float64,
) (models.Decision, models.Decision) {
	none := func() (models.Decision, models.Decision) {
		return models.NoneDecision(), models.NoneDecision()
	}

	// 1. Trade budget gate.
	if state.SignalsRemaining != nil && *state.SignalsRemaining <= 0 {
		return none()
	}

	// 2. Warmup gate.
	if cfg.WarmUpOrders {
		switch state.WarmupStage {
		case models.WarmupV12Pending:
			if sizeHint12 <= 0 {
				return none()
			}
			return pairedDecisions(models.ReasonWarmup12, models.DirectionEntry, obV1, obV2, sizeHint12)
		case models.WarmupV21Pending:
			if sizeHint21 <= 0 {
				return none()
			}
			return pairedDecisions(models.ReasonWarmup21, models.DirectionEntry, obV1, obV2, sizeHint21)
		case models.WarmupV12Inflight, models.WarmupV21Inflight:
			return none()
		case models.WarmupDone:
			// fall through to the normal TT evaluation.
		}
	}

	longV1ShortV2 := state.IsLongV1ShortV2()
	longV2ShortV1 := state.IsLongV2ShortV1()

	// 3. Exit evaluation.
	if longV1ShortV2 {
		if spreads.TT21 != nil {
			state.ExitHits21.Push(snapshot(*spreads.TT21, obV1, obV2))
			if state.ExitHits21.Full() && state.ExitHits21.AllExceed(cfg.SpreadTP) {
				state.ExitHits21.Reset()
				return pairedDecisions(models.ReasonTT21, models.DirectionExit, obV1, obV2, sizeHint21)
			}
		} else {
			state.ExitHits21.Reset()
		}
	}
	if longV2ShortV1 {
		if spreads.TT12 != nil {
			state.ExitHits12.Push(snapshot(*spreads.TT12, obV1, obV2))
			if state.ExitHits12.Full() && state.ExitHits12.AllExceed(cfg.SpreadTP) {
				state.ExitHits12.Reset()
				return pairedDecisions(models.ReasonTT12, models.DirectionExit, obV1, obV2, sizeHint12)
			}
		} else {
			state.ExitHits12.Reset()
		}
	}

	// 4. Entry evaluation — update hit counters.
	hit12 := spreads.TT12 != nil && *spreads.TT12 > cfg.MinSpread
	if hit12 {
		state.EntryHits12.Push(snapshot(*spreads.TT12, obV1, obV2))
	} else {
		state.EntryHits12.Reset()
	}

	hit21 := spreads.TT21 != nil && *spreads.TT21 > cfg.MinSpread
	if hit21 {
		state.EntryHits21.Push(snapshot(*spreads.TT21, obV1, obV2))
	} else {
		state.EntryHits21.Reset()
	}

	// Holding a position masks the opposite-direction candidate — only
	// scale-ins in the same direction are allowed.
	mask12 := longV2ShortV1
	mask21 := longV1ShortV2

	eligible12 := hit12 && !mask12 && state.EntryHits12.Full()
	eligible21 := hit21 && !mask21 && state.EntryHits21.Full()

	// 5. Choose the best candidate.
	if !eligible12 && !eligible21 {
		return none()
	}

	var reason models.ReasonTag
	switch {
	case eligible12 && eligible21:
		if *spreads.TT12 >= *spreads.TT21 {
			reason = models.ReasonTT12
		} else {
			reason = models.ReasonTT21
		}
	case eligible12:
		reason = models.ReasonTT12
	default:
		reason = models.ReasonTT21
	}

	// 6. Exposure cap.
	if cfg.MaxPositionValue > 0 {
		exposure := math.Max(
			math.Abs(state.V1.InvQty*state.V1.EntryPrice),
			math.Abs(state.V2.InvQty*state.V2.EntryPrice),
		)
		if exposure >= cfg.MaxPositionValue {
			return none()
		}
	}

	// 7. Size sanity.
	sizeHint := sizeHint12
	if reason == models.ReasonTT21 {
		sizeHint = sizeHint21
	}
	if sizeHint <= 0 {
		return none()
	}

	// 8. Emit.
	state.ResetEntryHistories()
	return pairedDecisions(reason, models.DirectionEntry, obV1, obV2, sizeHint)
}

// pairedDecisions builds the two legs sharing one reason, direction,
// and size. TT_12/WARMUP_12 go long V1 / short V2; TT_21/WARMUP_21 the
// mirror — matching the suffix convention long-venue/short-venue.
func pairedDecisions(reason models.ReasonTag, direction models.Direction, obV1, obV2 models.OrderBookTop, size float64) (models.Decision, models.Decision) {
	if reason == models.ReasonTT12 || reason == models.ReasonWarmup12 {
		return models.Decision{
				ActionType: models.ActionTake, Venue: models.VenueV1, Side: models.SideLong,
				Price: obV1.Ask, Reason: reason, Direction: direction, Size: size,
			}, models.Decision{
				ActionType: models.ActionTake, Venue: models.VenueV2, Side: models.SideShort,
				Price: obV2.Bid, Reason: reason, Direction: direction, Size: size,
			}
	}
	return models.Decision{
			ActionType: models.ActionTake, Venue: models.VenueV2, Side: models.SideLong,
			Price: obV2.Ask, Reason: reason, Direction: direction, Size: size,
		}, models.Decision{
			ActionType: models.ActionTake, Venue: models.VenueV1, Side: models.SideShort,
			Price: obV1.Bid, Reason: reason, Direction: direction, Size: size,
		}
}

func snapshot(spreadPercent float64, obV1, obV2 models.OrderBookTop) models.HitSnapshot {
	return models.HitSnapshot{
		TS:            time.Now().UnixMilli(),
		SpreadPercent: spreadPercent,
		OBV1:          obV1,
		OBV2:          obV2,
	}
}
