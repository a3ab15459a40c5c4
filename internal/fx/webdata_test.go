package fx

import (
	"math"
	"sort"
	"testing"
	"time"
)

func fullRow(date, mid string) Row {
	r := Row{Date: day(date)}
	for _, c := range Currencies {
		q := r.Quote(c)
		q.Buy = dec(mid)
		q.Sale = dec(mid)
	}
	return r
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

var generatedAt = time.Date(2024, time.June, 16, 8, 0, 0, 0, time.UTC)

func TestGenerateWebDataEmptyDataset(t *testing.T) {
	if _, err := GenerateWebData(nil, generatedAt); err == nil {
		t.Fatal("an empty dataset must not produce a document")
	}
}

func TestCurrentRatesMidPrice(t *testing.T) {
	row := Row{Date: day("2024-06-15")}
	row.USD = Pair{Buy: dec("17.5"), Sale: dec("17.55")}
	row.GBP = Pair{Buy: dec("22.1"), Sale: dec("22.2")}
	row.EUR = Pair{Buy: dec("19.8"), Sale: dec("19.9")}
	row.ZAR = Pair{Buy: dec("0.95"), Sale: dec("0.98")}

	data, err := GenerateWebData([]Row{row}, generatedAt)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if data.CurrentRates.Date != "2024-06-15" {
		t.Fatalf("wrong snapshot date %s", data.CurrentRates.Date)
	}
	for _, c := range Currencies {
		quote := data.CurrentRates.Rates[c]
		if !approx(quote.Mid, (quote.Buy+quote.Sell)/2) {
			t.Fatalf("%s mid %v is not the buy/sell average", c, quote.Mid)
		}
	}
	if !approx(data.CurrentRates.Rates[USD].Mid, 17.525) {
		t.Fatalf("USD mid should be 17.525, got %v", data.CurrentRates.Rates[USD].Mid)
	}
}

func TestCurrentRatesIncompleteLatestRow(t *testing.T) {
	row := fullRow("2024-06-15", "17.5")
	row.GBP = Pair{}

	if _, err := GenerateWebData([]Row{row}, generatedAt); err == nil {
		t.Fatal("a latest row missing a currency must raise")
	}
}

func TestHybridSplit(t *testing.T) {
	rows := []Row{
		fullRow("2022-03-10", "16"),
		fullRow("2022-03-20", "16.2"),
		fullRow("2023-06-14", "17"),
		fullRow("2023-06-15", "17.1"),
		fullRow("2024-06-15", "18"),
	}

	data, err := GenerateWebData(rows, generatedAt)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// Latest date 2024-06-15 puts the cutoff at 2023-06-15.
	wantTypes := map[string]string{
		"2022-03-20": periodMonthly,
		"2023-06-14": periodMonthly,
		"2023-06-15": periodDaily,
		"2024-06-15": periodDaily,
	}

	if len(data.HistoricalData) != len(wantTypes) {
		t.Fatalf("expected %d points, got %d", len(wantTypes), len(data.HistoricalData))
	}
	for _, point := range data.HistoricalData {
		want, ok := wantTypes[point.Date]
		if !ok {
			t.Fatalf("unexpected point date %s", point.Date)
		}
		if point.PeriodType != want {
			t.Fatalf("point %s should be %s, got %s", point.Date, want, point.PeriodType)
		}
	}

	meta := data.Metadata
	if meta.DailyDataPoints != 2 || meta.MonthlyDataPoints != 2 {
		t.Fatalf("wrong split counts: daily=%d monthly=%d", meta.DailyDataPoints, meta.MonthlyDataPoints)
	}
	if meta.DailyDataCutoff != "2023-06-15" {
		t.Fatalf("wrong cutoff %s", meta.DailyDataCutoff)
	}
	if meta.TotalRecords != 5 || meta.HistoricalDataPoints != 4 {
		t.Fatalf("wrong record counts: %+v", meta)
	}
	if meta.DateRange.From != "2022-03-10" || meta.DateRange.To != "2024-06-15" {
		t.Fatalf("wrong date range: %+v", meta.DateRange)
	}
}

func TestHistoricalOrderedByDate(t *testing.T) {
	rows := []Row{
		fullRow("2024-06-15", "18"),
		fullRow("2021-02-10", "15"),
		fullRow("2022-08-01", "16"),
		fullRow("2024-06-14", "17.9"),
	}

	data, err := GenerateWebData(rows, generatedAt)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	ordered := sort.SliceIsSorted(data.HistoricalData, func(i, j int) bool {
		return data.HistoricalData[i].Date < data.HistoricalData[j].Date
	})
	if !ordered {
		t.Fatal("historical data must be sorted ascending by date string")
	}
}

func TestMonthlyAggregation(t *testing.T) {
	first := Row{Date: day("2020-01-10"), Normalized: true}
	first.USD = Pair{Buy: dec("10"), Sale: dec("12")}
	second := Row{Date: day("2020-01-20")}
	second.USD = Pair{Buy: dec("20"), Sale: dec("22")}
	rows := []Row{first, second, fullRow("2024-06-15", "18")}

	data, err := GenerateWebData(rows, generatedAt)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var monthly *HistoricalPoint
	for i := range data.HistoricalData {
		if data.HistoricalData[i].PeriodType == periodMonthly {
			monthly = &data.HistoricalData[i]
			break
		}
	}
	if monthly == nil {
		t.Fatal("expected a monthly point")
	}

	// Labelled with the last date of the month, valued with the mean of
	// each side, flagged with the first row's normalized state.
	if monthly.Date != "2020-01-20" {
		t.Fatalf("monthly point should carry the last date, got %s", monthly.Date)
	}
	if monthly.USD == nil || !approx(*monthly.USD, 16) {
		t.Fatalf("monthly USD should be 16, got %v", monthly.USD)
	}
	if !monthly.Normalized {
		t.Fatal("monthly point should carry the first row's normalized flag")
	}
	if monthly.GBP != nil {
		t.Fatal("an unquoted currency aggregates to null")
	}
}

func TestTrendsInvertedSemantics(t *testing.T) {
	rows := []Row{
		fullRow("2024-06-14", "17"),
		fullRow("2024-06-15", "18"),
	}

	data, err := GenerateWebData(rows, generatedAt)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	trend, ok := data.Trends[USD]
	if !ok {
		t.Fatal("expected a USD trend")
	}
	if !approx(trend.Change, 1.0) {
		t.Fatalf("change should be 1.0, got %v", trend.Change)
	}
	if !approx(trend.ChangePercent, -5.88) {
		t.Fatalf("change_percent should be -5.88, got %v", trend.ChangePercent)
	}
	if trend.Direction != "down" {
		t.Fatalf("a rising rate weakens the Kwacha: want down, got %s", trend.Direction)
	}
}

func TestTrendsDirections(t *testing.T) {
	falling := []Row{fullRow("2024-06-14", "18"), fullRow("2024-06-15", "17")}
	data, err := GenerateWebData(falling, generatedAt)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if data.Trends[USD].Direction != "up" {
		t.Fatalf("a falling rate strengthens the Kwacha: want up, got %s", data.Trends[USD].Direction)
	}

	flat := []Row{fullRow("2024-06-14", "18"), fullRow("2024-06-15", "18")}
	data, err = GenerateWebData(flat, generatedAt)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if data.Trends[USD].Direction != "stable" {
		t.Fatalf("want stable, got %s", data.Trends[USD].Direction)
	}
}

func TestTrendsRequireTwoPoints(t *testing.T) {
	data, err := GenerateWebData([]Row{fullRow("2024-06-15", "18")}, generatedAt)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(data.Trends) != 0 {
		t.Fatalf("a single point has no trend, got %+v", data.Trends)
	}
}

func TestTrendsSkipUnquotedCurrency(t *testing.T) {
	prev := fullRow("2024-06-14", "17")
	cur := fullRow("2024-06-15", "18")
	prev.ZAR = Pair{}
	// ZAR missing on the previous day only; USD must keep its trend and
	// the current snapshot stays complete.
	rows := []Row{prev, cur}

	data, err := GenerateWebData(rows, generatedAt)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, ok := data.Trends[ZAR]; ok {
		t.Fatal("no trend can be computed without a previous ZAR value")
	}
	if _, ok := data.Trends[USD]; !ok {
		t.Fatal("USD trend should still be present")
	}
}

func TestMetadataFixedFields(t *testing.T) {
	data, err := GenerateWebData([]Row{fullRow("2024-06-15", "18")}, generatedAt)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	meta := data.Metadata
	if meta.DataStrategy != "hybrid" {
		t.Fatalf("wrong strategy label %q", meta.DataStrategy)
	}
	if meta.RebaseDate != "2013-01-01" {
		t.Fatalf("wrong rebase date %q", meta.RebaseDate)
	}
	if len(meta.Currencies) != 4 || meta.Currencies[0] != USD {
		t.Fatalf("wrong currency list %v", meta.Currencies)
	}
	if data.LastUpdated != generatedAt.Format(time.RFC3339) {
		t.Fatalf("wrong last_updated %q", data.LastUpdated)
	}
}
