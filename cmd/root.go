package cmd

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "dexwatch",
	Short: "A tool for detecting and analyzing DEX sandwich attacks",
}
