package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TokenInfo describes one side of a swap.
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// SwapEvent is a decoded DEX swap, as produced by the protocol decoders.
// (BlockNumber, LogIndex) uniquely orders swaps within a block; swaps emitted
// by the same transaction share BlockNumber but differ in LogIndex.
type SwapEvent struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
	LogIndex    uint32 `json:"logIndex"`
	DexProtocol string `json:"dexProtocol"`
	PoolAddress string `json:"poolAddress"`
	Trader      string `json:"trader"`

	TokenIn  TokenInfo `json:"tokenIn"`
	TokenOut TokenInfo `json:"tokenOut"`

	AmountIn  decimal.Decimal `json:"amountIn"`
	AmountOut decimal.Decimal `json:"amountOut"`

	// PriceImpact is a best-effort percentage supplied by the decoder,
	// zero when unknown.
	PriceImpact decimal.Decimal `json:"priceImpact"`
	// GasUsed is zero when the decoder did not attach receipt data.
	GasUsed   uint64    `json:"gasUsed"`
	Timestamp time.Time `json:"timestamp"`
}

type SwapEvents []*SwapEvent

// SameTrader reports whether both swaps were sent by the same trader,
// compared case-insensitively. Addresses are trusted to be well-formed hex;
// only the casing is normalized.
func (s *SwapEvent) SameTrader(other *SwapEvent) bool {
	return strings.EqualFold(s.Trader, other.Trader)
}

// TokenPair is an order-normalized token pair: TokenA < TokenB
// lexicographically, both lowercased. Either trade direction on the same
// market yields the same pair.
type TokenPair struct {
	TokenA string `json:"tokenA"`
	TokenB string `json:"tokenB"`
}

// Pair returns the normalized token pair of the swap.
func (s *SwapEvent) Pair() TokenPair {
	in := strings.ToLower(s.TokenIn.Address)
	out := strings.ToLower(s.TokenOut.Address)
	if in < out {
		return TokenPair{TokenA: in, TokenB: out}
	}
	return TokenPair{TokenA: out, TokenB: in}
}
