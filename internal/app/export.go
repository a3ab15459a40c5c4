package app

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"zedfx/internal/fx"
)

// Export renders the generated historical series as CSV and/or PNG. It
// reads the fx_data.json produced by the last successful update.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	data, err := a.loadWebData()
	if err != nil {
		return err
	}
	if len(data.HistoricalData) == 0 {
		a.Logger.Info().Msg("no historical points to export")
		return nil
	}

	points := downsamplePoints(data.HistoricalData, opts.MaxPoints)
	a.Logger.Info().Int("total", len(data.HistoricalData)).Int("exported", len(points)).Msg("exporting historical series")

	if opts.CSVPath != "" {
		if err := writePointsCSV(opts.CSVPath, points); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writePointsPNG(opts.PNGPath, points); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) loadWebData() (*fx.WebData, error) {
	path := filepath.Join(a.Config.FX.WebDataDir, "fx_data.json")
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s (run update first): %w", path, err)
	}

	var data fx.WebData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &data, nil
}

func downsamplePoints(points []fx.HistoricalPoint, max int) []fx.HistoricalPoint {
	if max <= 0 || len(points) <= max {
		return points
	}

	result := make([]fx.HistoricalPoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writePointsCSV(path string, points []fx.HistoricalPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"date", "usd", "gbp", "eur", "zar", "normalized", "period_type"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, point := range points {
		record := []string{
			point.Date,
			formatValue(point.USD),
			formatValue(point.GBP),
			formatValue(point.EUR),
			formatValue(point.ZAR),
			strconv.FormatBool(point.Normalized),
			point.PeriodType,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writePointsPNG(path string, points []fx.HistoricalPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	series := make([]chart.Series, 0, len(fx.Currencies))
	for _, c := range fx.Currencies {
		x := make([]time.Time, 0, len(points))
		y := make([]float64, 0, len(points))
		for _, point := range points {
			v := point.Value(c)
			if v == nil {
				continue
			}
			date, err := time.Parse("2006-01-02", point.Date)
			if err != nil {
				continue
			}
			x = append(x, date)
			y = append(y, *v)
		}
		if len(x) < 2 {
			continue
		}
		series = append(series, chart.TimeSeries{
			Name:    string(c),
			XValues: x,
			YValues: y,
		})
	}
	if len(series) == 0 {
		return errors.New("no plottable series")
	}

	rateFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.3f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Rate (ZMW)",
			ValueFormatter: rateFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func formatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
