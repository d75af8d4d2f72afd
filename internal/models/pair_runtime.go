package models

import "time"

// PairRuntime is a read-only snapshot of one AEE instance's live state.
// It is derived from the State Store on request (AEEState.ToRuntime) and
// never drives engine behavior itself; /healthz does not publish it.
type PairRuntime struct {
	PairID        int        `json:"pair_id"`
	BotID         string     `json:"bot_id"`
	State         TradeState `json:"state"`
	InvV1         float64    `json:"inv_v1"`
	InvV2         float64    `json:"inv_v2"`
	EntryV1       float64    `json:"entry_v1"`
	EntryV2       float64    `json:"entry_v2"`
	CurrentTT12   *float64   `json:"current_tt12,omitempty"`
	CurrentTT21   *float64   `json:"current_tt21,omitempty"`
	SignalsLeft   *int       `json:"signals_remaining,omitempty"`
	HedgeSeeded   bool       `json:"hedge_seeded"`
	StreamsReady  bool       `json:"streams_ready"`
	LastUpdate    time.Time  `json:"last_update"`
}

// IsOpen reports whether either venue currently carries inventory.
func (pr *PairRuntime) IsOpen() bool {
	return pr.InvV1 != 0 || pr.InvV2 != 0
}
