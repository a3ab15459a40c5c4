package fx

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const dateFormat = "2006-01-02"

const (
	// dailyWindowMonths is how far back full daily resolution is kept.
	dailyWindowMonths = 12

	periodDaily   = "daily"
	periodMonthly = "monthly"
)

// WebData is the document published for the website: a latest-day
// snapshot, the hybrid-resolution history, and derived trends.
type WebData struct {
	LastUpdated    string             `json:"last_updated"`
	CurrentRates   CurrentRates       `json:"current_rates"`
	HistoricalData []HistoricalPoint  `json:"historical_data"`
	Trends         map[Currency]Trend `json:"trends"`
	Metadata       Metadata           `json:"metadata"`
}

// CurrentDocument is the compact homepage payload.
type CurrentDocument struct {
	LastUpdated  string             `json:"last_updated"`
	CurrentRates CurrentRates       `json:"current_rates"`
	Trends       map[Currency]Trend `json:"trends"`
}

// CurrentRates carries the latest observed day of quotes.
type CurrentRates struct {
	Date  string                 `json:"date"`
	Rates map[Currency]RateQuote `json:"rates"`
}

// RateQuote is one currency's published rate triple.
type RateQuote struct {
	Buy  float64 `json:"buy"`
	Sell float64 `json:"sell"`
	Mid  float64 `json:"mid"`
}

// HistoricalPoint is one entry of the hybrid series: a single day inside
// the daily window, or a monthly average before it. A nil currency value
// means the quote was missing or cleaned away for that period.
type HistoricalPoint struct {
	Date       string   `json:"date"`
	USD        *float64 `json:"USD"`
	GBP        *float64 `json:"GBP"`
	EUR        *float64 `json:"EUR"`
	ZAR        *float64 `json:"ZAR"`
	Normalized bool     `json:"normalized"`
	PeriodType string   `json:"period_type"`
}

// Value returns the point's mid rate for the given currency.
func (p HistoricalPoint) Value(c Currency) *float64 {
	switch c {
	case USD:
		return p.USD
	case GBP:
		return p.GBP
	case EUR:
		return p.EUR
	case ZAR:
		return p.ZAR
	}
	return nil
}

func (p *HistoricalPoint) setValue(c Currency, v *float64) {
	switch c {
	case USD:
		p.USD = v
	case GBP:
		p.GBP = v
	case EUR:
		p.EUR = v
	case ZAR:
		p.ZAR = v
	}
}

// Trend describes the move between the two most recent historical
// points. Exchange rates quote Kwacha per foreign unit, so the reported
// direction and percentage are inverted: a falling rate is a
// strengthening Kwacha.
type Trend struct {
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Direction     string  `json:"direction"`
}

// Metadata summarizes the generated dataset.
type Metadata struct {
	TotalRecords            int        `json:"total_records"`
	HistoricalDataPoints    int        `json:"historical_data_points"`
	DailyDataPoints         int        `json:"daily_data_points"`
	MonthlyDataPoints       int        `json:"monthly_data_points"`
	DateRange               DateRange  `json:"date_range"`
	DailyDataCutoff         string     `json:"daily_data_cutoff"`
	Currencies              []Currency `json:"currencies"`
	RebaseDate              string     `json:"rebase_date"`
	DataStrategy            string     `json:"data_strategy"`
	DataStrategyDescription string     `json:"data_strategy_description"`
}

// DateRange bounds the cleaned dataset.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GenerateWebData assembles the published document from cleaned,
// rebased rows. It errors on an empty dataset and on a latest row with
// an incomplete set of quotes; both indicate an upstream problem that
// must not produce a silently degraded site.
func GenerateWebData(rows []Row, now time.Time) (*WebData, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows after cleaning")
	}

	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	latest := sorted[len(sorted)-1].Date
	current, err := currentRates(sorted, latest)
	if err != nil {
		return nil, err
	}

	cutoff := latest.AddDate(0, -dailyWindowMonths, 0)

	var daily, older []Row
	for _, row := range sorted {
		if row.Date.Before(cutoff) {
			older = append(older, row)
		} else {
			daily = append(daily, row)
		}
	}

	historical := monthlyPoints(older)
	monthlyCount := len(historical)
	for _, row := range daily {
		historical = append(historical, dailyPoint(row))
	}
	sort.SliceStable(historical, func(i, j int) bool { return historical[i].Date < historical[j].Date })

	return &WebData{
		LastUpdated:    now.Format(time.RFC3339),
		CurrentRates:   current,
		HistoricalData: historical,
		Trends:         computeTrends(historical),
		Metadata: Metadata{
			TotalRecords:         len(sorted),
			HistoricalDataPoints: len(historical),
			DailyDataPoints:      len(daily),
			MonthlyDataPoints:    monthlyCount,
			DateRange: DateRange{
				From: sorted[0].Date.Format(dateFormat),
				To:   latest.Format(dateFormat),
			},
			DailyDataCutoff:         cutoff.Format(dateFormat),
			Currencies:              Currencies,
			RebaseDate:              RebaseDate.Format(dateFormat),
			DataStrategy:            "hybrid",
			DataStrategyDescription: "Daily values for past 12 months, monthly averages for older data",
		},
	}, nil
}

// currentRates builds the snapshot from the first row carrying the
// latest date. Every currency must be fully quoted on that day.
func currentRates(sorted []Row, latest time.Time) (CurrentRates, error) {
	idx := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Date.Before(latest) })
	row := sorted[idx]

	rates := make(map[Currency]RateQuote, len(Currencies))
	for _, c := range Currencies {
		q := row.Quote(c)
		if q.Buy == nil || q.Sale == nil {
			return CurrentRates{}, fmt.Errorf("latest row %s is missing a %s quote", latest.Format(dateFormat), c)
		}
		mid := q.Buy.Add(*q.Sale).Div(decimal.NewFromInt(2))
		rates[c] = RateQuote{
			Buy:  q.Buy.InexactFloat64(),
			Sell: q.Sale.InexactFloat64(),
			Mid:  mid.InexactFloat64(),
		}
	}

	return CurrentRates{Date: latest.Format(dateFormat), Rates: rates}, nil
}

func dailyPoint(row Row) HistoricalPoint {
	point := HistoricalPoint{
		Date:       row.Date.Format(dateFormat),
		Normalized: row.Normalized,
		PeriodType: periodDaily,
	}
	for _, c := range Currencies {
		if mid := row.Quote(c).Mid(); mid != nil {
			v := mid.Round(3).InexactFloat64()
			point.setValue(c, &v)
		}
	}
	return point
}

// monthlyPoints reduces each calendar month to one averaged entry. The
// entry is labelled with the last observed date of the month and keeps
// the first row's normalized flag; months never straddle the rebase
// boundary in practice.
func monthlyPoints(rows []Row) []HistoricalPoint {
	type monthKey struct {
		year  int
		month time.Month
	}

	var order []monthKey
	groups := make(map[monthKey][]Row)
	for _, row := range rows {
		key := monthKey{row.Date.Year(), row.Date.Month()}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	points := make([]HistoricalPoint, 0, len(order))
	for _, key := range order {
		group := groups[key]
		point := HistoricalPoint{
			Date:       group[len(group)-1].Date.Format(dateFormat),
			Normalized: group[0].Normalized,
			PeriodType: periodMonthly,
		}
		for _, c := range Currencies {
			point.setValue(c, monthlyMid(group, c))
		}
		points = append(points, point)
	}
	return points
}

// monthlyMid averages each quoted side independently over the rows that
// carry it, then takes the mid of the two averages. Nil when either side
// was never quoted in the month.
func monthlyMid(group []Row, c Currency) *float64 {
	var buySum, saleSum decimal.Decimal
	var buyN, saleN int64

	for _, row := range group {
		q := row.Quote(c)
		if q.Buy != nil {
			buySum = buySum.Add(*q.Buy)
			buyN++
		}
		if q.Sale != nil {
			saleSum = saleSum.Add(*q.Sale)
			saleN++
		}
	}
	if buyN == 0 || saleN == 0 {
		return nil
	}

	buyMean := buySum.Div(decimal.NewFromInt(buyN))
	saleMean := saleSum.Div(decimal.NewFromInt(saleN))
	v := buyMean.Add(saleMean).Div(decimal.NewFromInt(2)).Round(3).InexactFloat64()
	return &v
}

// computeTrends compares the last two historical entries positionally,
// whatever their period types. Empty when fewer than two entries exist
// or a currency is unquoted at either end.
func computeTrends(historical []HistoricalPoint) map[Currency]Trend {
	trends := make(map[Currency]Trend)
	if len(historical) < 2 {
		return trends
	}

	current := historical[len(historical)-1]
	previous := historical[len(historical)-2]

	for _, c := range Currencies {
		cur, prev := current.Value(c), previous.Value(c)
		if cur == nil || prev == nil {
			continue
		}

		change := *cur - *prev
		changePercent := 0.0
		if *prev != 0 {
			changePercent = change / *prev * 100
		}

		direction := "stable"
		switch {
		case change > 0:
			direction = "down"
		case change < 0:
			direction = "up"
		}

		trends[c] = Trend{
			Change: roundTo(change, 3),
			// Inverted sign: a falling Kwacha-per-unit rate is a
			// strengthening Kwacha, reported as a positive move.
			ChangePercent: roundTo(-changePercent, 2),
			Direction:     direction,
		}
	}
	return trends
}

func roundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
