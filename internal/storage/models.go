package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"zedfx/internal/fx"
)

// DailyRate is one archived day of cleaned quotes. Nil sides mirror the
// processor's missing values.
type DailyRate struct {
	Date       time.Time
	USDBuy     *decimal.Decimal
	USDSale    *decimal.Decimal
	GBPBuy     *decimal.Decimal
	GBPSale    *decimal.Decimal
	EURBuy     *decimal.Decimal
	EURSale    *decimal.Decimal
	ZARBuy     *decimal.Decimal
	ZARSale    *decimal.Decimal
	Normalized bool
	CreatedAt  time.Time
}

// DailyRateFromRow maps a processed row onto the archive model.
func DailyRateFromRow(row fx.Row) DailyRate {
	return DailyRate{
		Date:       row.Date,
		USDBuy:     row.USD.Buy,
		USDSale:    row.USD.Sale,
		GBPBuy:     row.GBP.Buy,
		GBPSale:    row.GBP.Sale,
		EURBuy:     row.EUR.Buy,
		EURSale:    row.EUR.Sale,
		ZARBuy:     row.ZAR.Buy,
		ZARSale:    row.ZAR.Sale,
		Normalized: row.Normalized,
	}
}
