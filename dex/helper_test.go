package dex

import (
	"fmt"

	"github.com/shopspring/decimal"

	"dexwatch/types"
)

// Mainnet addresses reused across fixtures, deliberately mixed-case to
// exercise the case-insensitive comparisons.
const (
	wethAddr = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	usdcAddr = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	daiAddr  = "0x6B175474E89094C44Da98b954EedeAC495271d0F"

	poolWethUsdc = "0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"
	poolDaiWeth  = "0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11"

	attackerAddr = "0x000000000000000000000000000000000000AaAa"
	victimAddr   = "0x000000000000000000000000000000000000BbBb"
	victim2Addr  = "0x000000000000000000000000000000000000CcCc"
)

var (
	weth = types.TokenInfo{Address: wethAddr, Symbol: "WETH", Decimals: 18}
	usdc = types.TokenInfo{Address: usdcAddr, Symbol: "USDC", Decimals: 6}
	dai  = types.TokenInfo{Address: daiAddr, Symbol: "DAI", Decimals: 18}
)

func mkSwap(block uint64, logIndex uint32, pool, trader string, tokenIn, tokenOut types.TokenInfo, amountIn, amountOut string) *types.SwapEvent {
	return &types.SwapEvent{
		TxHash:      fmt.Sprintf("0xtx%d-%d", block, logIndex),
		BlockNumber: block,
		LogIndex:    logIndex,
		DexProtocol: "uniswap_v2",
		PoolAddress: pool,
		Trader:      trader,
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		AmountIn:    decimal.RequireFromString(amountIn),
		AmountOut:   decimal.RequireFromString(amountOut),
	}
}

func mkSwapGas(block uint64, logIndex uint32, pool, trader string, tokenIn, tokenOut types.TokenInfo, amountIn, amountOut string, gasUsed uint64) *types.SwapEvent {
	s := mkSwap(block, logIndex, pool, trader, tokenIn, tokenOut, amountIn, amountOut)
	s.GasUsed = gasUsed
	return s
}
