package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"dexwatch/config"
	"dexwatch/db"
	"dexwatch/dex"
	"dexwatch/logger"
	"dexwatch/types"
)

var (
	analyzeFrom uint64
	analyzeTo   uint64
)

var analyzeCmd = cobra.Command{
	Use:   "analyze",
	Short: "Analyze stored sandwich attacks in a block range",
	Run: func(cmd *cobra.Command, args []string) {
		logger.InitLogs("analyze")

		if analyzeTo > 0 && analyzeFrom > analyzeTo {
			logger.DexLogger.Error(fmt.Sprintf("from block (%d) cannot be greater than to block (%d)", analyzeFrom, analyzeTo))
			return
		}

		ch := db.NewClickhouse()
		defer ch.Close()

		to := analyzeTo
		if to == 0 {
			last, err := ch.QueryLastAttackBlock()
			if err != nil {
				logger.DexLogger.Error("Failed to query last attack block", "err", err)
				return
			}
			to = last
		}

		logger.DexLogger.Info("Running cmd analyze", "from", analyzeFrom, "to", to)
		attacks, err := ch.QueryAttackRange(analyzeFrom, to)
		if err != nil {
			logger.DexLogger.Error("Failed to query attacks", "err", err)
			return
		}
		logger.DexLogger.Info("Loaded attacks", "num_attacks", len(attacks))

		analyzer := dex.NewAnalyzer()

		types.PPStatistics(analyzer.AnalyzeAttacks(attacks))

		report := analyzer.AnalyzeAttackPatterns(attacks)
		fmt.Printf("\nattack types: %v\n", report.AttackTypes)
		fmt.Printf("blocks: unique=%d max/block=%d avg/block=%s\n",
			report.UniqueBlocks, report.MaxAttacksPerBlock, report.AvgAttacksPerBlock)
		fmt.Printf("profit: min=%s max=%s avg=%s median=%s\n",
			report.MinProfit, report.MaxProfit, report.AvgProfit, report.MedianProfit)
		fmt.Printf("gas: avg=%s total=%s\n", report.AvgGasCost, report.TotalGasSpent)
		fmt.Printf("token pairs: %v\n", report.TokenPairs)
		fmt.Printf("victims per attack: %v\n", report.VictimCounts)

		sophisticated := analyzer.IdentifySophisticatedAttackers(attacks,
			config.SOPHISTICATED_MIN_ATTACKS,
			decimal.RequireFromString(config.SOPHISTICATED_MIN_TOTAL_PROFIT))
		fmt.Printf("\n%d sophisticated attackers\n", len(sophisticated))
		for i, p := range sophisticated {
			fmt.Printf("  %2d. %s attacks=%d profit=%s pools=%d victims=%d\n",
				i+1, p.Address, p.AttackCount, p.TotalProfit, p.PoolsTargeted, p.TotalVictims)
		}

		clusters := analyzer.DetectAttackClusters(attacks, config.CLUSTER_BLOCK_WINDOW)
		fmt.Printf("\n%d attack clusters (window=%d blocks)\n", len(clusters), config.CLUSTER_BLOCK_WINDOW)
		for i, c := range clusters {
			fmt.Printf("  %2d. blocks %d-%d attacks=%d attackers=%d pools=%d density=%s profit=%s\n",
				i+1, c.FromBlock, c.ToBlock, c.AttackCount, c.UniqueAttackers, c.UniquePools, c.AttackDensity, c.TotalProfit)
		}
	},
}

func init() {
	analyzeCmd.Flags().Uint64VarP(&analyzeFrom, "from", "f", 0, "(Optional) first block to analyze")
	analyzeCmd.Flags().Uint64VarP(&analyzeTo, "to", "t", 0, "(Optional) last block to analyze, defaults to the last stored attack block")
	RootCmd.AddCommand(&analyzeCmd)
}
