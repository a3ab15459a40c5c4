package fx

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	maxQuote     = decimal.NewFromInt(50000)
	usdSaleFloor = decimal.NewFromInt(1)
	spreadBound  = decimal.NewFromInt(2)
)

// validPair applies the plausibility heuristics to a buy/sale pair: both
// sides present and positive, buy below the serial-number noise ceiling,
// and the spread ratio under the bound in both directions. saleFloor is
// only set for USD, where near-zero sale values are a known corruption.
func validPair(p Pair, saleFloor *decimal.Decimal) bool {
	if p.Buy == nil || p.Sale == nil {
		return false
	}
	if !p.Buy.IsPositive() || !p.Sale.IsPositive() {
		return false
	}
	if p.Buy.GreaterThanOrEqual(maxQuote) {
		return false
	}
	if saleFloor != nil && p.Sale.LessThanOrEqual(*saleFloor) {
		return false
	}
	if p.Sale.Div(*p.Buy).GreaterThanOrEqual(spreadBound) {
		return false
	}
	if p.Buy.Div(*p.Sale).GreaterThanOrEqual(spreadBound) {
		return false
	}
	return true
}

// cleanRows filters corrupted observations. USD anchors row validity: a
// row with an implausible USD pair is dropped outright. The other
// currencies are optional display fields, so a bad pair only nulls that
// currency, and a row that never quoted a currency (nil buy) passes
// untouched.
func cleanRows(rows []Row, logger zerolog.Logger) []Row {
	cleaned := make([]Row, 0, len(rows))
	dropped := 0
	nulled := map[Currency]int{}

	for _, row := range rows {
		if !validPair(row.USD, &usdSaleFloor) {
			dropped++
			continue
		}

		for _, c := range []Currency{GBP, EUR, ZAR} {
			q := row.Quote(c)
			if q.Buy == nil {
				continue
			}
			if !validPair(*q, nil) {
				q.Buy, q.Sale = nil, nil
				nulled[c]++
			}
		}

		cleaned = append(cleaned, row)
	}

	if dropped > 0 {
		logger.Info().Int("rows", dropped).Msg("dropped rows with corrupted USD quotes")
	}
	for c, n := range nulled {
		logger.Info().Str("currency", string(c)).Int("rows", n).Msg("nulled corrupted quotes")
	}
	return cleaned
}
