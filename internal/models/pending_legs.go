package models

// FillTolerance is the absolute quantity below which a remaining leg is
// considered fully reconciled, matching the source's 1e-6 dust guard.
const FillTolerance = 1e-6

// PendingLegs tracks unreconciled quantity on a dispatched paired trade.
// It exists from the moment both legs are sent until both remainders
// collapse to zero within tolerance.
type PendingLegs struct {
	V1Remaining float64
	V2Remaining float64
}

// ReduceV1 applies a fill amount to the V1 leg.
func (p *PendingLegs) ReduceV1(filled float64) {
	p.V1Remaining -= filled
}

// ReduceV2 applies a fill amount to the V2 leg.
func (p *PendingLegs) ReduceV2(filled float64) {
	p.V2Remaining -= filled
}

// Remaining returns the unreconciled quantity for one venue's leg.
func (p *PendingLegs) Remaining(venue Venue) float64 {
	if venue == VenueV1 {
		return p.V1Remaining
	}
	return p.V2Remaining
}

// Reduce applies a fill or implied-position delta to the named venue's
// leg via ReduceV1/ReduceV2.
func (p *PendingLegs) Reduce(venue Venue, delta float64) {
	if venue == VenueV1 {
		p.ReduceV1(delta)
	} else {
		p.ReduceV2(delta)
	}
}

// Reconciled reports whether both legs are within FillTolerance of zero.
func (p *PendingLegs) Reconciled() bool {
	return abs(p.V1Remaining) < FillTolerance && abs(p.V2Remaining) < FillTolerance
}

// ReconciledWithin reports whether both legs are within tol of zero. The
// AEE uses this with the per-trade tolerance tol = max(FillTolerance,
// expected_qty*1e-4) rather than the fixed FillTolerance, since a fixed
// dust guard is too tight for larger trade sizes.
func (p *PendingLegs) ReconciledWithin(tol float64) bool {
	if tol < FillTolerance {
		tol = FillTolerance
	}
	return abs(p.V1Remaining) < tol && abs(p.V2Remaining) < tol
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
