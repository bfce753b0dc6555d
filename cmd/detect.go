package cmd

import (
	"dexwatch/config"
	"dexwatch/db"
	"dexwatch/dex"
	"dexwatch/logger"
	"dexwatch/types"

	"github.com/spf13/cobra"
)

var (
	detectInput string
	detectFrom  uint64
	detectTo    uint64
)

var detectCmd = cobra.Command{
	Use:   "detect",
	Short: "Detect sandwich attacks in a decoded swap feed and store them",
	Run: func(cmd *cobra.Command, args []string) {
		logger.InitLogs("detect")

		if detectInput == "" {
			logger.DexLogger.Error("No swap feed file given, use --input")
			return
		}

		swaps, err := dex.ReadSwapFile(detectInput)
		if err != nil {
			logger.DexLogger.Error("Failed to read swap feed", "file", detectInput, "err", err)
			return
		}
		if len(swaps) == 0 {
			logger.DexLogger.Warn("Swap feed is empty, nothing to do", "file", detectInput)
			return
		}

		from, to := detectFrom, detectTo
		if to == 0 {
			from, to = swapBlockRange(swaps)
			if detectFrom > 0 {
				from = detectFrom
			}
		}
		logger.DexLogger.Info("Running cmd detect", "file", detectInput, "num_swaps", len(swaps), "from", from, "to", to)

		bots := dex.FrequentTraders(swaps, config.MEV_BOT_MIN_SWAP_FREQUENCY)
		if bots.Cardinality() > 0 {
			logger.DexLogger.Info("Likely MEV bots in feed", "num_bots", bots.Cardinality(), "bots", bots.ToSlice())
		}

		detector := dex.NewDetector()
		attacks := detector.DetectInRangeParallel(from, to, swaps, config.DETECT_BLOCK_PARALLEL_NUM)
		logger.DexLogger.Info("Detection done", "num_attacks", len(attacks))

		for i, a := range attacks {
			types.PPSandwichAttack(i+1, a)
		}

		ch := db.NewClickhouse()
		defer ch.Close()
		if err := ch.InsertSandwichAttacks(attacks); err != nil {
			logger.DexLogger.Error("Failed to insert sandwich attacks into DB", "err", err)
			return
		}
		logger.DexLogger.Info("Inserted sandwich attacks into DB", "num_attacks", len(attacks))
	},
}

func swapBlockRange(swaps types.SwapEvents) (uint64, uint64) {
	from, to := swaps[0].BlockNumber, swaps[0].BlockNumber
	for _, s := range swaps {
		if s.BlockNumber < from {
			from = s.BlockNumber
		}
		if s.BlockNumber > to {
			to = s.BlockNumber
		}
	}
	return from, to
}

func init() {
	detectCmd.Flags().StringVarP(&detectInput, "input", "i", "", "JSON swap feed file produced by the DEX decoders")
	detectCmd.Flags().Uint64VarP(&detectFrom, "from", "f", 0, "(Optional) first block to scan, defaults to the feed's first block")
	detectCmd.Flags().Uint64VarP(&detectTo, "to", "t", 0, "(Optional) last block to scan, defaults to the feed's last block")
	RootCmd.AddCommand(&detectCmd)
}
