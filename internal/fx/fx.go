package fx

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency identifies one of the quoted foreign currencies.
type Currency string

const (
	USD Currency = "USD"
	GBP Currency = "GBP"
	EUR Currency = "EUR"
	ZAR Currency = "ZAR"
)

// Currencies lists the supported currencies in publication order.
var Currencies = []Currency{USD, GBP, EUR, ZAR}

// RebaseDate is the day the Kwacha was rebased by a factor of 1000.
// Quotes dated before it are expressed in the old unit.
var RebaseDate = time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC)

// Pair holds the two quoted sides of a rate. A nil side is missing.
type Pair struct {
	Buy  *decimal.Decimal
	Sale *decimal.Decimal
}

// Mid returns the buy/sale average, or nil when either side is missing.
func (p Pair) Mid() *decimal.Decimal {
	if p.Buy == nil || p.Sale == nil {
		return nil
	}
	mid := p.Buy.Add(*p.Sale).Div(decimal.NewFromInt(2))
	return &mid
}

// Row is a single cleaned observation: one calendar day of quotes.
type Row struct {
	Date       time.Time
	USD        Pair
	GBP        Pair
	EUR        Pair
	ZAR        Pair
	Normalized bool
}

// Quote returns the pair for the given currency.
func (r *Row) Quote(c Currency) *Pair {
	switch c {
	case USD:
		return &r.USD
	case GBP:
		return &r.GBP
	case EUR:
		return &r.EUR
	case ZAR:
		return &r.ZAR
	}
	return nil
}
