package bot

import "arbengine/internal/models"

// ValidTransitions enumerates the allowed TradeState transitions.
// Exactly one trade may occupy a non-IDLE state at a time.
var ValidTransitions = map[models.TradeState][]models.TradeState{
	models.TradeIdle:         {models.TradeDispatching},
	models.TradeDispatching:  {models.TradePendingFills},
	models.TradePendingFills: {models.TradeFinalizing},
	models.TradeFinalizing:   {models.TradeIdle},
}

// CanTransition reports whether the state machine permits from → to.
func CanTransition(from, to models.TradeState) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StateInfo returns a short human description of a TradeState. Neither
// the engine's logs nor /healthz call it.
func StateInfo(s models.TradeState) string {
	switch s {
	case models.TradeIdle:
		return "no trade in flight"
	case models.TradeDispatching:
		return "sending both legs"
	case models.TradePendingFills:
		return "awaiting fill reconciliation"
	case models.TradeFinalizing:
		return "writing trace, releasing state machine"
	default:
		return "unknown state"
	}
}

// IsOpen reports whether a trade currently occupies the state machine —
// new OB-driven decisions are short-circuited to NONE while this holds.
func IsOpen(s models.TradeState) bool {
	return s != models.TradeIdle
}
