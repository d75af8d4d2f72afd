package models

import "github.com/google/uuid"

// TradeContext is the single in-flight trade record an AEE instance may
// hold. It is created at decision commit, just before the two legs are
// dispatched, and cleared only once both fills are reconciled, the trace
// store write for finalization has completed, and any position-sync gate
// has released.
type TradeContext struct {
	Trace uuid.UUID

	Reason       ReasonTag
	Direction    Direction
	SpreadSignal float64

	OBPriceV1   float64
	OBPriceV2   float64
	ExecPriceV1 float64
	ExecPriceV2 float64
	ExpectedQty float64

	InvBeforeV1 float64
	InvBeforeV2 float64

	SignalTSWall int64 // unix millis
	SignalTSMono int64 // monotonic nanos, for latency measurement only
}

// NewTradeContext stamps a fresh trace id for a newly committed decision.
func NewTradeContext() TradeContext {
	return TradeContext{Trace: uuid.New()}
}
