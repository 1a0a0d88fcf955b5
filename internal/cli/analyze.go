package cli

import (
	"github.com/spf13/cobra"

	"alpha-radar/internal/app"
)

var (
	analyzeWallets []string
	analyzeCSVPath string
	analyzePNGPath string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [wallet...]",
	Short: "Profile wallets and rank them by win rate",
	RunE: func(cmd *cobra.Command, args []string) error {
		wallets := append(append([]string{}, analyzeWallets...), args...)
		if len(wallets) == 0 {
			wallets = getApp().Config.Tracker.Wallets
		}

		opts := app.AnalyzeOptions{
			Wallets: wallets,
			CSVPath: analyzeCSVPath,
			PNGPath: analyzePNGPath,
			Out:     cmd.OutOrStdout(),
		}
		return getApp().Analyze(cmd.Context(), opts)
	},
}

func init() {
	analyzeCmd.Flags().StringSliceVar(&analyzeWallets, "wallets", nil, "Comma separated wallet addresses (defaults to tracker.wallets)")
	analyzeCmd.Flags().StringVar(&analyzeCSVPath, "csv", "", "Path to write CSV results")
	analyzeCmd.Flags().StringVar(&analyzePNGPath, "png", "", "Path to write PNG win-rate chart")
}
