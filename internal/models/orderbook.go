package models

// OrderBookTop is the top-of-book snapshot tracked per venue. Only best
// bid/ask and their resting depth matter to this core — full-depth books
// are never retained.
type OrderBookTop struct {
	Bid      float64
	Ask      float64
	BidSize  float64
	AskSize  float64
	UpdateTS int64 // unix millis, venue-reported where available
}

// Sanitize swaps bid/ask if they are crossed, matching the defensive
// handling every downstream spread calculation assumes. A crossed book
// is rare (venue glitch, stale partial update) but must never be allowed
// to propagate a negative spread.
func (ob OrderBookTop) Sanitize() OrderBookTop {
	if ob.Bid > 0 && ob.Ask > 0 && ob.Bid > ob.Ask {
		ob.Bid, ob.Ask = ob.Ask, ob.Bid
		ob.BidSize, ob.AskSize = ob.AskSize, ob.BidSize
	}
	return ob
}

// Valid reports whether both sides of the book are populated and not
// crossed. A zero-value OrderBookTop (pre-first-update) is invalid.
func (ob OrderBookTop) Valid() bool {
	return ob.Bid > 0 && ob.Ask > 0 && ob.Bid <= ob.Ask
}

// Mid returns the midpoint price, or 0 if the book is invalid.
func (ob OrderBookTop) Mid() float64 {
	if !ob.Valid() {
		return 0
	}
	return (ob.Bid + ob.Ask) / 2
}
