package fx

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var rebaseDivisor = decimal.NewFromInt(1000)

// applyRebase expresses every quote in the post-2013 Kwacha unit. Rows
// dated before the rebase are divided by 1000 and flagged, so downstream
// consumers see a continuous series across the redenomination boundary.
func applyRebase(rows []Row, logger zerolog.Logger) []Row {
	rebased := 0
	for i := range rows {
		row := &rows[i]
		if !row.Date.Before(RebaseDate) {
			continue
		}

		for _, c := range Currencies {
			q := row.Quote(c)
			if q.Buy != nil {
				v := q.Buy.Div(rebaseDivisor)
				q.Buy = &v
			}
			if q.Sale != nil {
				v := q.Sale.Div(rebaseDivisor)
				q.Sale = &v
			}
		}
		row.Normalized = true
		rebased++
	}

	logger.Info().Int("rows", rebased).Msg("normalized pre-rebase quotes")
	return rows
}
