package fx

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// leadingRowSkip is the number of rows discarded from the top of the
// source workbook: four header rows followed by seven rows of known-bad
// data. Tied to the published Bank of Zambia sheet layout.
const leadingRowSkip = 11

// quoteColumns names the eight currency columns in sheet order,
// immediately following the date column.
var quoteColumns = []string{
	"usd_buy", "usd_sale",
	"gbp_buy", "gbp_sale",
	"eur_buy", "eur_sale",
	"zar_buy", "zar_sale",
}

// rawRow is one sheet row after positional column mapping, before any
// date or numeric interpretation.
type rawRow struct {
	date   string
	quotes map[string]string
}

// parseSheet reads the first worksheet of the workbook, skips the fixed
// leading rows, drops the spacer column, and maps the remaining cells
// onto the semantic columns. Rows narrower than the full layout simply
// expose fewer columns; width mismatches are never an error.
func parseSheet(content []byte) ([]rawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	if len(rows) <= leadingRowSkip {
		return nil, nil
	}

	parsed := make([]rawRow, 0, len(rows)-leadingRowSkip)
	for _, cells := range rows[leadingRowSkip:] {
		if len(cells) == 0 {
			continue
		}

		// Column A is a known-empty spacer.
		cells = cells[1:]
		if len(cells) == 0 {
			continue
		}

		row := rawRow{date: strings.TrimSpace(cells[0]), quotes: make(map[string]string, len(quoteColumns))}
		for i, name := range quoteColumns {
			if i+1 >= len(cells) {
				break
			}
			row.quotes[name] = strings.TrimSpace(cells[i+1])
		}
		parsed = append(parsed, row)
	}

	return parsed, nil
}

// parseQuote interprets a raw cell as a decimal quote. Unparseable or
// empty cells become missing values rather than errors.
func parseQuote(raw string) *decimal.Decimal {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &d
}
