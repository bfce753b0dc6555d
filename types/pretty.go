package types

import (
	"fmt"
)

// PPSandwichAttack pretty-prints one detected attack to stdout.
func PPSandwichAttack(i int, a *SandwichAttack) {
	fmt.Printf("#%d sandwich %s\n", i, a.AttackID)
	fmt.Printf("  type=%s block=%d pool=%s pair=%s/%s\n",
		a.SandwichType, a.BlockNumber, a.PoolAddress, a.TokenPair.TokenA, a.TokenPair.TokenB)
	fmt.Printf("  attacker=%s profit=%s %s gas=%s net=%s confidence=%s\n",
		a.Attacker, a.ProfitAmount, a.ProfitToken, a.GasCost, a.NetProfit, a.DetectionConfidence)
	for _, tx := range a.FrontRun {
		ppLeg(tx)
	}
	for _, tx := range a.Victims {
		ppLeg(tx)
	}
	for _, tx := range a.BackRun {
		ppLeg(tx)
	}
	fmt.Println()
}

func ppLeg(tx *SandwichTx) {
	fmt.Printf("  [%s] tx=%s trader=%s %s->%s in=%s out=%s\n",
		tx.Role, tx.Swap.TxHash, tx.Swap.Trader,
		tx.Swap.TokenIn.Symbol, tx.Swap.TokenOut.Symbol,
		tx.Swap.AmountIn, tx.Swap.AmountOut)
}

// PPStatistics pretty-prints aggregate statistics to stdout.
func PPStatistics(s *SandwichStatistics) {
	fmt.Printf("blocks %d-%d: %d attacks, profit=%s, victim loss=%s, avg profit=%s\n",
		s.FromBlock, s.ToBlock, s.TotalAttacks, s.TotalProfit, s.TotalVictimLoss, s.AverageProfit)
	if s.MostProfitable != nil {
		fmt.Printf("most profitable: %s (block %d, profit=%s)\n",
			s.MostProfitable.AttackID, s.MostProfitable.BlockNumber, s.MostProfitable.ProfitAmount)
	}
	if len(s.TopAttackers) > 0 {
		fmt.Println("top attackers:")
		for i, att := range s.TopAttackers {
			fmt.Printf("  %2d. %s profit=%s\n", i+1, att.Address, att.Profit)
		}
	}
	if len(s.MostTargetedPools) > 0 {
		fmt.Println("most targeted pools:")
		for i, p := range s.MostTargetedPools {
			fmt.Printf("  %2d. %s attacks=%d\n", i+1, p.PoolAddress, p.Count)
		}
	}
}
