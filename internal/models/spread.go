package models

// SpreadSet holds every spread flavour the Spread Calculator derives from
// a pair of order books in one tick. Fields are pointers because a
// spread is undefined (nil) whenever either leg's book is not yet valid
// — callers must never treat a missing spread as zero.
//
// Naming mirrors the historical L/E convention: "12" reads venue-1-long/
// venue-2-short, "21" the mirror. TT is taker/taker (both legs market
// orders, the only mode this core dispatches); MT/TM/INV are carried for
// parity with the source data model though this core never decides on
// them.
type SpreadSet struct {
	TT12 *float64
	TT21 *float64
	MT12 *float64
	MT21 *float64
	TM12 *float64
	TM21 *float64
	INV  *float64
}

func f64ptr(v float64) *float64 { return &v }
