package models

import "time"

// PairConfig describes one configured V1/V2 arbitrage pair. Loaded from
// the startup JSON document (§6); there is no runtime control surface to
// mutate it.
type PairConfig struct {
	ID     int    `json:"id" db:"id"`
	SymV1  string `json:"sym_v1" db:"sym_v1"`
	SymV2  string `json:"sym_v2" db:"sym_v2"`
	Venue1 Venue  `json:"venue1" db:"venue1"`
	Venue2 Venue  `json:"venue2" db:"venue2"`

	MinSpread        float64  `json:"min_spread" db:"min_spread"`
	SpreadTP         float64  `json:"spread_tp" db:"spread_tp"`
	MinHits          int      `json:"min_hits" db:"min_hits"`
	MaxPositionValue float64  `json:"max_position_value" db:"max_position_value"`
	MaxTradeValue    *float64 `json:"max_trade_value" db:"max_trade_value"`
	MaxOfOB          float64  `json:"max_of_ob" db:"max_of_ob"`
	MaxTrades        *int     `json:"max_trades" db:"max_trades"`
	DedupOB          bool     `json:"dedup_ob" db:"dedup_ob"`
	WarmUpOrders     bool     `json:"warm_up_orders" db:"warm_up_orders"`
	Slippage         float64  `json:"slippage" db:"slippage"`

	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// BotID is the identity this pair's trace rows are written under —
// one AEE instance per pair, named by its two symbols and venues.
func (p PairConfig) BotID() string {
	return p.SymV1 + "_" + string(p.Venue1) + "_" + p.SymV2 + "_" + string(p.Venue2)
}

const (
	PairStatusPaused = "paused"
	PairStatusActive = "active"
)

// PairDocument is the top-level shape of the startup pair-config JSON file.
type PairDocument struct {
	Pairs []PairConfig `json:"pairs"`
}
