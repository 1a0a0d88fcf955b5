package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"alpha-radar/internal/app"
	"alpha-radar/internal/model"
)

var (
	simulateAddress   string
	simulateSymbol    string
	simulateLiquidity float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次新币上线并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := model.ValidateAddress(simulateAddress); err != nil {
			return err
		}
		if simulateLiquidity < 0 {
			return errors.New("--liquidity 不能为负数")
		}

		opts := app.SimulateOptions{
			Address:   simulateAddress,
			Symbol:    simulateSymbol,
			Liquidity: decimal.NewFromFloat(simulateLiquidity),
		}
		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateAddress, "address", "So11111111111111111111111111111111111111112", "模拟代币的 mint 地址")
	simulateCmd.Flags().StringVar(&simulateSymbol, "symbol", "SIM", "模拟代币符号")
	simulateCmd.Flags().Float64Var(&simulateLiquidity, "liquidity", 0, "初始流动性 (USD)")
}
