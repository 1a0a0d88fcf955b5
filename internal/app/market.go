package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"alpha-radar/internal/model"
)

// Market prints the market snapshot of one token, or a summary table when
// several mints are given.
func (a *App) Market(ctx context.Context, mints []string, out io.Writer) error {
	mints, err := model.NormalizeAddresses(mints)
	if err != nil {
		return err
	}
	if len(mints) == 0 {
		return errors.New("at least one mint is required")
	}
	if out == nil {
		out = os.Stdout
	}
	engine, closer := a.newEngine()
	defer closer()

	if len(mints) == 1 {
		snap := engine.Snapshot(ctx, mints[0])
		if snap == nil {
			fmt.Fprintln(out, "no market data found")
			return nil
		}
		return writeSnapshot(out, *snap)
	}

	snaps := engine.Market().Many(ctx, mints)
	if len(snaps) == 0 {
		fmt.Fprintln(out, "no market data found")
		return nil
	}
	return writeSnapshotTable(out, snaps)
}

// Search prints the pairs matching query.
func (a *App) Search(ctx context.Context, query string, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}
	engine, closer := a.newEngine()
	defer closer()

	snaps, err := engine.Market().Search(ctx, query)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintln(out, "no pairs found")
		return nil
	}
	return writeSnapshotTable(out, snaps)
}

func writeSnapshotTable(out io.Writer, snaps []model.MarketSnapshot) error {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Symbol\tName\tAddress\tDEX\tPrice USD\tLiquidity USD\t24h Vol")
	for _, s := range snaps {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			sanitizeInline(s.Symbol),
			sanitizeInline(s.Name),
			s.Address,
			s.DexID,
			s.PriceUSD.String(),
			s.LiquidityUSD.StringFixed(0),
			s.Volume24h.StringFixed(0),
		)
	}
	return writer.Flush()
}

// Holders prints the largest holders of a token.
func (a *App) Holders(ctx context.Context, mint string, limit int, out io.Writer) error {
	if err := model.ValidateAddress(mint); err != nil {
		return err
	}
	if out == nil {
		out = os.Stdout
	}
	engine, closer := a.newEngine()
	defer closer()

	holders, err := engine.Market().Holders(ctx, mint, limit)
	if err != nil {
		return err
	}
	if len(holders) == 0 {
		fmt.Fprintln(out, "no holder data found")
		return nil
	}
	return writeHolders(out, holders)
}

func writeSnapshot(out io.Writer, s model.MarketSnapshot) error {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Token\t%s (%s)\n", sanitizeInline(s.Name), sanitizeInline(s.Symbol))
	fmt.Fprintf(writer, "Address\t%s\n", s.Address)
	fmt.Fprintf(writer, "Pair\t%s on %s\n", s.PairAddress, s.DexID)
	fmt.Fprintf(writer, "Price USD\t%s\n", s.PriceUSD.String())
	fmt.Fprintf(writer, "24h change\t%s%%\n", s.PriceChange24h.StringFixed(2))
	fmt.Fprintf(writer, "Market cap USD\t%s\n", s.MarketCapUSD.StringFixed(0))
	fmt.Fprintf(writer, "Liquidity USD\t%s\n", s.LiquidityUSD.StringFixed(0))
	fmt.Fprintf(writer, "24h volume USD\t%s\n", s.Volume24h.StringFixed(0))
	if err := writer.Flush(); err != nil {
		return err
	}
	if len(s.TopHolders) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	return writeHolders(out, s.TopHolders)
}

func writeHolders(out io.Writer, holders []model.HolderShare) error {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "#\tHolder\tShare%")
	for i, h := range holders {
		fmt.Fprintf(writer, "%d\t%s\t%s\n", i+1, h.Address, h.Percentage.StringFixed(2))
	}
	return writer.Flush()
}

func sanitizeInline(v string) string {
	v = strings.ReplaceAll(v, "\n", " ")
	v = strings.ReplaceAll(v, "\t", " ")
	return strings.TrimSpace(v)
}
