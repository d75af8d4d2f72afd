package bot

import "arbengine/internal/models"

// calcSpreads is the pure Spread Calculator: (obV1, obV2, invState) →
// SpreadSet. Always state-aware — book-only and state-aware spread
// variants are unified into this one form. Percentages, not fractions.
func calcSpreads(obV1, obV2 models.OrderBookTop, v1, v2 models.VenueState) models.SpreadSet {
	var set models.SpreadSet

	if obV1.Valid() && obV2.Valid() {
		set.TT12 = pct(obV2.Bid - obV1.Ask, obV1.Ask)
		set.TT21 = pct(obV1.Bid - obV2.Ask, obV2.Ask)

		// MT/TM retained for parity with the source data model; the core
		// never branches on them.
		set.MT12 = pct(obV2.Bid-obV1.Bid, obV1.Bid)
		set.MT21 = pct(obV1.Bid-obV2.Bid, obV2.Bid)
		set.TM12 = pct(obV2.Ask-obV1.Ask, obV1.Ask)
		set.TM21 = pct(obV1.Ask-obV2.Ask, obV2.Ask)
	}

	set.INV = inventorySpread(v1, v2)
	return set
}

// pct returns numerator/denominator × 100, or nil when the denominator
// can't support a meaningful ratio.
func pct(numerator, denominator float64) *float64 {
	if denominator <= 0 {
		return nil
	}
	v := numerator / denominator * 100
	return &v
}

// inventorySpread reflects the unrealized spread locked into current
// inventory using entry prices, not marked-to-market prices. Zero when
// flat or hedged in the non-matching direction.
func inventorySpread(v1, v2 models.VenueState) *float64 {
	switch {
	case v1.InvQty > 0 && v2.InvQty < 0 && v1.EntryPrice > 0:
		// long V1 / short V2: unrealized spread if closed at entry prices now.
		v := (v2.EntryPrice - v1.EntryPrice) / v1.EntryPrice * 100
		return &v
	case v1.InvQty < 0 && v2.InvQty > 0 && v2.EntryPrice > 0:
		v := (v1.EntryPrice - v2.EntryPrice) / v2.EntryPrice * 100
		return &v
	default:
		zero := 0.0
		return &zero
	}
}
