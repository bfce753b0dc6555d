package dex

import (
	"strings"

	MapSet "github.com/deckarep/golang-set/v2"
	"github.com/shopspring/decimal"

	"dexwatch/types"
)

// IsSameDirection reports whether two swaps trade the same token pair in the
// same direction. Addresses are compared case-insensitively.
func IsSameDirection(a, b *types.SwapEvent) bool {
	return strings.EqualFold(a.TokenIn.Address, b.TokenIn.Address) &&
		strings.EqualFold(a.TokenOut.Address, b.TokenOut.Address)
}

// IsOppositeDirection reports whether two swaps trade the same token pair in
// opposite directions, e.g. A->B then B->A.
func IsOppositeDirection(a, b *types.SwapEvent) bool {
	return strings.EqualFold(a.TokenIn.Address, b.TokenOut.Address) &&
		strings.EqualFold(a.TokenOut.Address, b.TokenIn.Address)
}

// EstimateSandwichProfit estimates the attacker's profit across the two
// legs, measured in the intermediate token: what the frontrun bought minus
// what the backrun spent. Returns zero unless the legs run in opposite
// directions and the intermediate token matches by address. Gas is handled
// separately by the detector.
func EstimateSandwichProfit(frontrun, backrun *types.SwapEvent) decimal.Decimal {
	if !IsOppositeDirection(frontrun, backrun) {
		return decimal.Zero
	}
	if !strings.EqualFold(frontrun.TokenOut.Address, backrun.TokenIn.Address) {
		return decimal.Zero
	}
	return frontrun.AmountOut.Sub(backrun.AmountIn)
}

// CalculatePriceImpact estimates the percentage price impact of a swap on a
// constant-product pool, given the pool reserves before the swap.
func CalculatePriceImpact(swap *types.SwapEvent, reserveIn, reserveOut decimal.Decimal) decimal.Decimal {
	if swap.AmountIn.IsZero() || swap.AmountOut.IsZero() {
		return decimal.Zero
	}
	if !reserveIn.IsPositive() {
		return decimal.Zero
	}

	priceBefore := reserveOut.Div(reserveIn)

	newReserveIn := reserveIn.Add(swap.AmountIn)
	newReserveOut := reserveOut.Sub(swap.AmountOut)
	if !newReserveIn.IsPositive() {
		return decimal.Zero
	}
	priceAfter := newReserveOut.Div(newReserveIn)

	if !priceBefore.IsPositive() {
		return decimal.Zero
	}
	return priceAfter.Sub(priceBefore).Div(priceBefore).Abs().Mul(decimal.NewFromInt(100))
}

// PriceMovements computes the percentage change of the execution price
// (amountOut/amountIn) across a sequence of swaps in the same pool. Swaps
// with zero amountIn are skipped. Fewer than two priced swaps yield an
// empty result.
func PriceMovements(swaps types.SwapEvents) []decimal.Decimal {
	if len(swaps) < 2 {
		return nil
	}

	prices := make([]decimal.Decimal, 0, len(swaps))
	for _, s := range swaps {
		if s.AmountIn.IsPositive() {
			prices = append(prices, s.AmountOut.Div(s.AmountIn))
		}
	}

	movements := make([]decimal.Decimal, 0, len(prices))
	for i := 1; i < len(prices); i++ {
		if prices[i-1].IsPositive() {
			movement := prices[i].Sub(prices[i-1]).Div(prices[i-1]).Mul(decimal.NewFromInt(100))
			movements = append(movements, movement)
		}
	}
	return movements
}

// FrequentTraders returns the set of lowercased trader addresses that appear
// in at least minFrequency swaps. Frequent traders are likely MEV bots.
func FrequentTraders(swaps types.SwapEvents, minFrequency int) MapSet.Set[string] {
	counts := make(map[string]int)
	for _, s := range swaps {
		counts[strings.ToLower(s.Trader)]++
	}

	frequent := MapSet.NewSet[string]()
	for addr, count := range counts {
		if count >= minFrequency {
			frequent.Add(addr)
		}
	}
	return frequent
}
