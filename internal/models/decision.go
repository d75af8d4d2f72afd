package models

import "fmt"

// Decision is the output of the Decision Logic for a single leg. The
// Trade Coordinator always receives a pair of Decisions (one per venue)
// for a TAKE action; a lone ActionNone Decision means "do nothing this
// tick".
type Decision struct {
	ActionType ActionType
	Venue      Venue
	Side       Side
	Price      float64
	Reason     ReasonTag
	Direction  Direction

	// Size is populated by the Sizing Engine after the Decision Logic
	// selects a candidate; it is zero until sized.
	Size float64
}

func (d Decision) String() string {
	if d.ActionType == ActionNone {
		return "Decision(NONE)"
	}
	return fmt.Sprintf("Decision(%s %s %s price=%.8f size=%.8f reason=%s dir=%s)",
		d.ActionType, d.Venue, d.Side, d.Price, d.Size, d.Reason, d.Direction)
}

// NoneDecision is the canonical no-op decision emitted when no gate passes.
func NoneDecision() Decision {
	return Decision{ActionType: ActionNone}
}
