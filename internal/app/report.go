package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"alpha-radar/internal/logging"
	"alpha-radar/internal/model"
	"alpha-radar/internal/tracker"
)

// AnalyzeOptions configure the analyze command.
type AnalyzeOptions struct {
	Wallets []string
	CSVPath string
	PNGPath string
	Out     io.Writer
}

// Analyze profiles the given wallets, prints a ranked table and optionally
// writes the results as CSV and/or a PNG win-rate chart.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	wallets, err := model.NormalizeAddresses(opts.Wallets)
	if err != nil {
		return err
	}
	if len(wallets) == 0 {
		return tracker.ErrNoWallets
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	engine, closer := a.newEngine()
	defer closer()

	profiles, err := engine.AnalyzeMany(ctx, wallets)
	if err != nil && len(profiles) == 0 {
		return err
	}
	if err != nil {
		a.Logger.Warn().Err(err).Int("analyzed", len(profiles)).Msg("analysis interrupted")
	}
	tracker.SortByWinRate(profiles)

	if err := writeProfilesTable(opts.Out, profiles); err != nil {
		return err
	}
	if opts.CSVPath != "" {
		if err := writeProfilesCSV(opts.CSVPath, profiles); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := writeProfilesPNG(opts.PNGPath, profiles); err != nil {
			return err
		}
	}
	return nil
}

func writeProfilesTable(out io.Writer, profiles []model.WalletProfile) error {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Wallet\tWin rate\tTrades\tAvg profit%\tTotal profit USD\tLast active (UTC)\tSmart")
	for _, p := range profiles {
		fmt.Fprintf(
			writer,
			"%s\t%.1f%%\t%d\t%s\t%s\t%s\t%t\n",
			p.Address,
			p.WinRate*100,
			p.TotalTrades,
			p.AvgProfitPct.StringFixed(2),
			p.TotalProfitUSD.StringFixed(2),
			p.LastActive.UTC().Format(time.RFC3339),
			p.IsSmartMoney,
		)
	}
	return writer.Flush()
}

func writeProfilesCSV(path string, profiles []model.WalletProfile) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"wallet", "win_rate", "total_trades", "avg_profit_pct", "total_profit_usd", "last_active", "smart_money"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, p := range profiles {
		record := []string{
			p.Address,
			strconv.FormatFloat(p.WinRate, 'f', 4, 64),
			strconv.Itoa(p.TotalTrades),
			p.AvgProfitPct.String(),
			p.TotalProfitUSD.String(),
			p.LastActive.UTC().Format(time.RFC3339),
			strconv.FormatBool(p.IsSmartMoney),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeProfilesPNG(path string, profiles []model.WalletProfile) error {
	if len(profiles) == 0 {
		return errors.New("no profiles to chart")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	bars := make([]chart.Value, 0, len(profiles))
	for _, p := range profiles {
		bars = append(bars, chart.Value{
			Label: logging.ShortAddr(p.Address),
			Value: p.WinRate * 100,
		})
	}

	percentFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f%%")
	}
	graph := chart.BarChart{
		Title:    "Wallet win rate",
		Width:    1280,
		Height:   720,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: 100},
			ValueFormatter: percentFormatter,
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
