package utils

import "math"

// RoundToLotSize truncates value down to the nearest multiple of lotSize
// (the Sizing Engine's "step snap", applied downward so the result never
// exceeds an already-capped size). lotSize <= 0 is treated as "no
// rounding" since a venue that reports no step should not reject orders.
func RoundToLotSize(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	steps := math.Floor(value / lotSize)
	return roundFloat(steps * lotSize)
}

// RoundToLotSizeUp rounds value up to the nearest multiple of lotSize.
func RoundToLotSizeUp(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	steps := math.Ceil(value / lotSize)
	return roundFloat(steps * lotSize)
}

// RoundToLotSizeNearest rounds value to the nearest multiple of lotSize.
func RoundToLotSizeNearest(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	steps := math.Round(value / lotSize)
	return roundFloat(steps * lotSize)
}

// roundFloat trims floating-point noise introduced by the division/
// multiplication pair above (e.g. 0.1234/0.001*0.001 landing on
// 0.12299999999999999 instead of 0.123).
func roundFloat(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}

// CalculateSpread returns the percentage gap of priceHigh over priceLow:
// (priceHigh - priceLow) / priceLow * 100. Returns 0 if priceLow is not
// strictly positive.
func CalculateSpread(priceHigh, priceLow float64) float64 {
	if priceLow <= 0 {
		return 0
	}
	return (priceHigh - priceLow) / priceLow * 100
}

// CalculateSpreadFromPrices returns the spread between two prices
// regardless of which is higher.
func CalculateSpreadFromPrices(priceA, priceB float64) float64 {
	if priceA <= 0 || priceB <= 0 {
		return 0
	}
	if priceA >= priceB {
		return CalculateSpread(priceA, priceB)
	}
	return CalculateSpread(priceB, priceA)
}

// CalculateNetSpread subtracts round-trip taker fees (each leg opened and
// closed once, hence the factor of 2) from a gross spread percentage.
// feeA/feeB are fractional (0.0004 = 0.04%).
func CalculateNetSpread(spreadPct, feeA, feeB float64) float64 {
	return spreadPct - 2*(feeA+feeB)*100
}

// CalculateNetSpreadDirect computes the gross spread from raw prices and
// then nets out fees in one call.
func CalculateNetSpreadDirect(priceHigh, priceLow, feeA, feeB float64) float64 {
	return CalculateNetSpread(CalculateSpread(priceHigh, priceLow), feeA, feeB)
}

// CalculateWeightedAverage computes a weighted mean of values, ignoring
// entries with non-positive weight. Returns 0 on length mismatch, empty
// input, or when no weight is positive.
func CalculateWeightedAverage(values, weights []float64) float64 {
	if len(values) == 0 || len(values) != len(weights) {
		return 0
	}
	var sumWeighted, sumWeights float64
	for i, v := range values {
		w := weights[i]
		if w <= 0 {
			continue
		}
		sumWeighted += v * w
		sumWeights += w
	}
	if sumWeights == 0 {
		return 0
	}
	return sumWeighted / sumWeights
}

// OrderBookLevel is one price/volume rung used by the market-order
// simulators below.
type OrderBookLevel struct {
	Price  float64
	Volume float64
}

// SimulateMarketBuy walks asks from best to worst, filling up to
// targetVolume, and returns the resulting average fill price, filled
// quantity, and slippage percentage versus the best ask.
func SimulateMarketBuy(asks []OrderBookLevel, targetVolume float64) (avgPrice, filled, slippagePct float64) {
	return simulateMarketOrder(asks, targetVolume)
}

// SimulateMarketSell walks bids from best to worst, filling up to
// targetVolume, and returns the resulting average fill price, filled
// quantity, and slippage percentage versus the best bid.
func SimulateMarketSell(bids []OrderBookLevel, targetVolume float64) (avgPrice, filled, slippagePct float64) {
	return simulateMarketOrder(bids, targetVolume)
}

func simulateMarketOrder(levels []OrderBookLevel, targetVolume float64) (avgPrice, filled, slippagePct float64) {
	if len(levels) == 0 || targetVolume <= 0 {
		return 0, 0, 0
	}
	best := levels[0].Price
	var notional float64
	remaining := targetVolume
	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		take := math.Min(remaining, lvl.Volume)
		notional += take * lvl.Price
		filled += take
		remaining -= take
	}
	if filled == 0 {
		return 0, 0, 0
	}
	avgPrice = notional / filled
	slippagePct = (avgPrice - best) / best * 100
	return roundFloat(avgPrice), roundFloat(filled), roundFloat(slippagePct)
}

// CalculatePNL computes unrealized PNL for a single leg. side must be
// "long" or "short"; anything else returns 0.
func CalculatePNL(side string, entryPrice, currentPrice, quantity float64) float64 {
	switch side {
	case "long":
		return (currentPrice - entryPrice) * quantity
	case "short":
		return (entryPrice - currentPrice) * quantity
	default:
		return 0
	}
}

// CalculateTotalPNL sums the long and short legs of a paired arbitrage
// position.
func CalculateTotalPNL(entryLong, currentLong, entryShort, currentShort, quantity float64) float64 {
	return CalculatePNL("long", entryLong, currentLong, quantity) +
		CalculatePNL("short", entryShort, currentShort, quantity)
}

// SplitVolume divides totalVolume into nParts roughly equal, lotSize-
// rounded clips. Returns nil for non-positive inputs.
func SplitVolume(totalVolume float64, nParts int, lotSize float64) []float64 {
	if totalVolume <= 0 || nParts <= 0 {
		return nil
	}
	part := RoundToLotSizeNearest(totalVolume/float64(nParts), lotSize)
	parts := make([]float64, nParts)
	for i := range parts {
		parts[i] = part
	}
	return parts
}

// IsSpreadSufficient reports whether spread meets or exceeds threshold.
func IsSpreadSufficient(spread, threshold float64) bool {
	return spread >= threshold
}

// ShouldExit reports whether spread has compressed to or below the exit
// threshold.
func ShouldExit(spread, exitThreshold float64) bool {
	return spread <= exitThreshold
}

// IsStopLossHit reports whether pnl has breached a negative stopLoss
// bound. stopLoss <= 0 means the stop-loss is disabled.
func IsStopLossHit(pnl, stopLoss float64) bool {
	if stopLoss <= 0 {
		return false
	}
	return pnl <= -stopLoss
}

// Clamp restricts value to the closed interval [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
