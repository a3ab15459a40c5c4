package fx

import (
	"strconv"
	"strings"
	"time"
)

// serialEpoch is the spreadsheet serial-date epoch (the 1900 date system
// with its leap-year quirk folded in).
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Serial day-counts are only trusted inside this window (roughly
// 2009-2037). Numbers outside it are corrupted quote values that leaked
// into the date column.
const (
	serialMin = 40000
	serialMax = 50000
)

// dateLayouts covers the formats the source workbook has used over the
// years for string-typed date cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01-02-06",
	"1/2/06",
	"1/2/2006",
	"01/02/2006",
	"2-Jan-06",
	"2-Jan-2006",
	"Jan 2, 2006",
	time.RFC3339,
}

// coerceDate normalizes a raw date cell to a calendar day. The second
// return is false when the cell is missing or unparseable; such rows are
// silently dropped by the caller.
func coerceDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64); err == nil {
		if v < serialMin || v > serialMax {
			return time.Time{}, false
		}
		t := serialEpoch.Add(time.Duration(v * 24 * float64(time.Hour)))
		return dateOnly(t), true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return dateOnly(t), true
		}
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// coerceRows converts raw sheet rows into typed rows, discarding any
// whose date cannot be interpreted.
func coerceRows(raw []rawRow) []Row {
	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		date, ok := coerceDate(r.date)
		if !ok {
			continue
		}

		row := Row{Date: date}
		row.USD = Pair{Buy: parseQuote(r.quotes["usd_buy"]), Sale: parseQuote(r.quotes["usd_sale"])}
		row.GBP = Pair{Buy: parseQuote(r.quotes["gbp_buy"]), Sale: parseQuote(r.quotes["gbp_sale"])}
		row.EUR = Pair{Buy: parseQuote(r.quotes["eur_buy"]), Sale: parseQuote(r.quotes["eur_sale"])}
		row.ZAR = Pair{Buy: parseQuote(r.quotes["zar_buy"]), Sale: parseQuote(r.quotes["zar_sale"])}
		rows = append(rows, row)
	}
	return rows
}
