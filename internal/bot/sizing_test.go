package bot

import (
	"testing"

	"arbengine/internal/exchange"
	"arbengine/internal/models"
)

func sizingCfg() models.PairConfig {
	return models.PairConfig{MaxOfOB: 0.30, Slippage: 0.04}
}

func venueMeta(minSize, minNotional, step float64) exchange.VenueMetadata {
	return exchange.VenueMetadata{MinSize: minSize, MinNotional: minNotional, SizeStep: step}
}

// S1's sizing step: depth cap 0.30 * min(0.5, 0.4) = 0.12, already a
// multiple of the 0.001 step.
func TestComputeSharedSizeDepthCapAndStepSnap(t *testing.T) {
	cfg := sizingCfg()
	buyOB := models.OrderBookTop{Ask: 100.1, AskSize: 0.5}
	sellOB := models.OrderBookTop{Bid: 100.7, BidSize: 0.4}
	meta := venueMeta(0.001, 0, 0.001)

	got := ComputeSharedSize(buyOB, sellOB, meta, meta, cfg)
	if got != 0.12 {
		t.Fatalf("expected 0.12, got %v", got)
	}
}

func TestComputeSharedSizeZeroWhenDepthMissing(t *testing.T) {
	cfg := sizingCfg()
	buyOB := models.OrderBookTop{Ask: 100.1, AskSize: 0}
	sellOB := models.OrderBookTop{Bid: 100.7, BidSize: 0.4}
	meta := venueMeta(0.001, 0, 0.001)

	if got := ComputeSharedSize(buyOB, sellOB, meta, meta, cfg); got != 0 {
		t.Fatalf("expected 0 when a depth side is empty, got %v", got)
	}
}

func TestComputeSharedSizeNotionalFloorRejectsTooSmall(t *testing.T) {
	cfg := sizingCfg()
	cfg.MaxOfOB = 0.001
	buyOB := models.OrderBookTop{Ask: 100, AskSize: 0.01}
	sellOB := models.OrderBookTop{Bid: 100, BidSize: 0.01}
	meta := venueMeta(0.00001, 50, 0.00001) // min_notional requires >= $50

	if got := ComputeSharedSize(buyOB, sellOB, meta, meta, cfg); got != 0 {
		t.Fatalf("expected 0 below min_notional, got %v", got)
	}
}

func TestComputeSharedSizeDollarCapBinds(t *testing.T) {
	cfg := sizingCfg()
	maxTradeValue := 12.0
	cfg.MaxTradeValue = &maxTradeValue
	buyOB := models.OrderBookTop{Ask: 100, AskSize: 1}
	sellOB := models.OrderBookTop{Bid: 100, BidSize: 1}
	meta := venueMeta(0.001, 0, 0.001)

	got := ComputeSharedSize(buyOB, sellOB, meta, meta, cfg)
	if got <= 0 || got > 0.13 {
		t.Fatalf("expected dollar cap to bind near 0.12, got %v", got)
	}
}

func TestComputeSharedSizeMinSizeFloorRejects(t *testing.T) {
	cfg := sizingCfg()
	cfg.MaxOfOB = 0.30
	buyOB := models.OrderBookTop{Ask: 100, AskSize: 0.001}
	sellOB := models.OrderBookTop{Bid: 100, BidSize: 0.001}
	meta := venueMeta(1.0, 0, 0.001) // min_size far above what depth allows

	if got := ComputeSharedSize(buyOB, sellOB, meta, meta, cfg); got != 0 {
		t.Fatalf("expected 0 below min_size, got %v", got)
	}
}

// Testable property 7: the result is always a whole multiple of the
// coarser of the two size steps.
func TestComputeSharedSizeStepMultiple(t *testing.T) {
	cfg := sizingCfg()
	buyOB := models.OrderBookTop{Ask: 100.1, AskSize: 0.537}
	sellOB := models.OrderBookTop{Bid: 100.7, BidSize: 0.418}
	meta1 := venueMeta(0.001, 0, 0.01)
	meta2 := venueMeta(0.001, 0, 0.001)

	got := ComputeSharedSize(buyOB, sellOB, meta1, meta2, cfg)
	steps := got / 0.01
	if diff := steps - float64(int64(steps+0.5)); diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("expected a whole multiple of the coarser step 0.01, got %v (steps=%v)", got, steps)
	}
}

func TestComputeSharedSizeZeroWhenMaxOfOBDisabled(t *testing.T) {
	cfg := sizingCfg()
	cfg.MaxOfOB = 0
	buyOB := models.OrderBookTop{Ask: 100, AskSize: 1}
	sellOB := models.OrderBookTop{Bid: 100, BidSize: 1}
	meta := venueMeta(0.001, 0, 0.001)

	if got := ComputeSharedSize(buyOB, sellOB, meta, meta, cfg); got != 0 {
		t.Fatalf("expected 0 when max_of_ob is disabled, got %v", got)
	}
}
