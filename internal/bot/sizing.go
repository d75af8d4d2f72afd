package bot

import (
	"math"

	"arbengine/internal/exchange"
	"arbengine/internal/models"
	"arbengine/pkg/utils"
)

// ComputeSharedSize is the Sizing Engine: one shared size for both legs
// of a TT/WARMUP pair, honoring both venues' min-size, min-notional,
// step, slippage, depth-fraction, and dollar caps. Returns 0 to mean
// "do not trade" — the caller must never clamp a below-minimum size
// upward, since that would size the two legs asymmetrically.
//
// buyOB/sellOB and buyMeta/sellMeta are oriented to the direction being
// priced: for TT_12 the buyer is V1 and the seller is V2, for TT_21 the
// reverse.
func ComputeSharedSize(buyOB, sellOB models.OrderBookTop, buyMeta, sellMeta exchange.VenueMetadata, cfg models.PairConfig) float64 {
	// 1. Depth cap.
	if cfg.MaxOfOB <= 0 || buyOB.AskSize <= 0 || sellOB.BidSize <= 0 {
		return 0
	}
	shared := cfg.MaxOfOB * math.Min(buyOB.AskSize, sellOB.BidSize)

	// 2. Notional floor check, using the slippage-adjusted execution price.
	execBuy := buyOB.Ask * (1 + cfg.Slippage)
	execSell := sellOB.Bid * (1 - cfg.Slippage)
	if shared*execBuy < buyMeta.MinNotional || shared*execSell < sellMeta.MinNotional {
		return 0
	}

	// 3. Dollar cap.
	if cfg.MaxTradeValue != nil {
		shared = math.Min(shared, *cfg.MaxTradeValue/execBuy)
		shared = math.Min(shared, *cfg.MaxTradeValue/execSell)
	}

	// 4. Step snap — round up to the coarser of the two size increments.
	step := math.Max(buyMeta.SizeStep, sellMeta.SizeStep)
	shared = utils.RoundToLotSizeUp(shared, step)

	// 5. Min-size floor check.
	if shared < buyMeta.MinSize || shared < sellMeta.MinSize {
		return 0
	}

	return shared
}
