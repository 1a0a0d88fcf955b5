package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var holdersLimit int

var marketCmd = &cobra.Command{
	Use:   "market <mint> [mint...]",
	Short: "Show the market snapshot of one or more tokens",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Market(cmd.Context(), args, cmd.OutOrStdout())
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search trading pairs by name, symbol or address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Search(cmd.Context(), args[0], cmd.OutOrStdout())
	},
}

var holdersCmd = &cobra.Command{
	Use:   "holders <mint>",
	Short: "List the largest holders of a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if holdersLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}
		return getApp().Holders(cmd.Context(), args[0], holdersLimit, cmd.OutOrStdout())
	},
}

func init() {
	holdersCmd.Flags().IntVar(&holdersLimit, "limit", 10, "Number of holders to display")
}
