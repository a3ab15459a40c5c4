package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
)

// Show prints recently archived daily rates.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show rates")
	}
	if closeStore != nil {
		defer closeStore()
	}

	rates, err := store.ListRecentRates(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(rates) == 0 {
		fmt.Fprintln(os.Stdout, "no rates found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tUSD buy\tUSD sale\tGBP buy\tGBP sale\tEUR buy\tEUR sale\tZAR buy\tZAR sale\tNormalized")

	for _, rate := range rates {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			rate.Date.Format("2006-01-02"),
			formatQuote(rate.USDBuy),
			formatQuote(rate.USDSale),
			formatQuote(rate.GBPBuy),
			formatQuote(rate.GBPSale),
			formatQuote(rate.EURBuy),
			formatQuote(rate.EURSale),
			formatQuote(rate.ZARBuy),
			formatQuote(rate.ZARSale),
			rate.Normalized,
		)
	}

	writer.Flush()
	return nil
}

func formatQuote(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(3)
}
