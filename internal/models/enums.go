package models

// Venue identifies one of the two perpetual-futures venues an AEE
// instance trades against. Roles are symmetric: the core never branches
// on venue identity, only on which one is cheaper/richer at a given tick.
type Venue string

const (
	VenueV1 Venue = "V1"
	VenueV2 Venue = "V2"
)

// Side is the direction of a leg.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// ActionType is what a Decision asks the engine to do. MAKE/CANCEL existed
// in the historical maker-mode source and are out of scope for this core.
type ActionType string

const (
	ActionNone ActionType = "NONE"
	ActionTake ActionType = "TAKE"
)

// Direction tags a Decision as opening or unwinding inventory. It is
// informational — the coordinator dispatches TAKE decisions identically
// regardless of Direction.
type Direction string

const (
	DirectionEntry Direction = "ENTRY"
	DirectionExit  Direction = "EXIT"
)

// ReasonTag names which leg goes long and which goes short. The suffix
// order is long-venue/short-venue: TT_12 means long V1, short V2.
type ReasonTag string

const (
	ReasonTT12     ReasonTag = "TT_12"
	ReasonTT21     ReasonTag = "TT_21"
	ReasonWarmup12 ReasonTag = "WARMUP_12"
	ReasonWarmup21 ReasonTag = "WARMUP_21"
)

// IsWarmup reports whether a reason belongs to the startup warmup sequence.
func (r ReasonTag) IsWarmup() bool {
	return r == ReasonWarmup12 || r == ReasonWarmup21
}

// WarmupStage tracks progress through the forced opening sequence that
// validates plumbing before the engine trusts its spread filters.
type WarmupStage string

const (
	WarmupV12Pending  WarmupStage = "V12_PENDING"
	WarmupV12Inflight WarmupStage = "V12_INFLIGHT"
	WarmupV21Pending  WarmupStage = "V21_PENDING"
	WarmupV21Inflight WarmupStage = "V21_INFLIGHT"
	WarmupDone        WarmupStage = "DONE"
)

// TradeState is the per-trade state machine driven by the Trade
// Coordinator. Exactly one trade may occupy a non-IDLE state at a time
// for a given AEE instance.
type TradeState string

const (
	TradeIdle         TradeState = "IDLE"
	TradeDispatching  TradeState = "DISPATCHING"
	TradePendingFills TradeState = "PENDING_FILLS"
	TradeFinalizing   TradeState = "FINALIZING"
)
