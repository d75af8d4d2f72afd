package models

import "time"

// TraceRecord mirrors the trace_records table: one row per (bot_id,
// trace), with each JSON section written independently and idempotently
// as the corresponding phase of a trade completes. A nil section means
// "not yet written", not "empty".
type TraceRecord struct {
	BotID string
	Trace string

	BotConfigs    []byte // jsonb
	DecisionData  []byte // jsonb
	DecisionOBV1  []byte // jsonb
	DecisionOBV2  []byte // jsonb
	TradeV1       []byte // jsonb
	TradeV2       []byte // jsonb
	FillV1        []byte // jsonb
	FillV2        []byte // jsonb
	UpdatedAt     time.Time
}

// DecisionRow mirrors the flat decisions table kept for backward-compatible
// reads alongside the JSONB trace_records shape.
type DecisionRow struct {
	Trace        string
	TS           time.Time
	BotName      string
	OBV1         string
	OBV2         string
	InvBefore    string
	InvAfter     string
	Reason       string
	Direction    string
	SpreadSignal float64
}

// TradeRow mirrors the flat trades table, one row per dispatched leg.
type TradeRow struct {
	Trace     string
	TS        time.Time
	BotName   string
	Venue     string
	Size      float64
	OBPrice   float64
	ExecPrice float64
	LatOrder  float64
	Reason    string
	Direction string
	Status    string
	Payload   string
	Resp      string
}

// FillRow mirrors the flat fills table, one row per reconciled leg fill.
type FillRow struct {
	Trace      string
	TS         time.Time
	BotName    string
	Venue      string
	BaseAmount float64
	FillPrice  float64
	Latency    float64
}
