package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"zedfx/internal/fetcher"
)

// Options locate the processor's file sinks.
type Options struct {
	// DataDir receives the dated historical snapshots.
	DataDir string
	// WebDataDir receives the site-facing fx_current.json and fx_data.json.
	WebDataDir string
}

// Result carries one successful pipeline run.
type Result struct {
	Data *WebData
	Rows []Row
}

// Processor runs the fetch-clean-rebase-generate-save pipeline.
type Processor struct {
	opts   Options
	sheets fetcher.SheetFetcher
	logger zerolog.Logger
	now    func() time.Time
}

// NewProcessor wires a processor over the given sheet source.
func NewProcessor(opts Options, sheets fetcher.SheetFetcher, logger zerolog.Logger) *Processor {
	return &Processor{
		opts:   opts,
		sheets: sheets,
		logger: logger.With().Str("component", "fx_processor").Logger(),
		now:    time.Now,
	}
}

// ProcessAndSave runs the full pipeline once and returns the generated
// document. Any stage failure aborts the run with a wrapped error; data
// quality issues inside the sheet are resolved by the cleaning stages
// and never surface here.
func (p *Processor) ProcessAndSave(ctx context.Context) (*WebData, error) {
	res, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// Run is ProcessAndSave exposing the cleaned rows alongside the document,
// for callers that archive or inspect the series.
func (p *Processor) Run(ctx context.Context) (*Result, error) {
	content, err := p.sheets.FetchSheet(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch rate sheet: %w", err)
	}

	rows, err := p.Process(content)
	if err != nil {
		return nil, fmt.Errorf("process rate sheet: %w", err)
	}

	data, err := GenerateWebData(rows, p.now())
	if err != nil {
		return nil, fmt.Errorf("generate web data: %w", err)
	}

	if err := p.SaveWebData(data); err != nil {
		return nil, fmt.Errorf("save web data: %w", err)
	}

	p.logger.Info().
		Int("rows", len(rows)).
		Int("historical_points", len(data.HistoricalData)).
		Str("latest", data.CurrentRates.Date).
		Msg("fx data processed")

	return &Result{Data: data, Rows: rows}, nil
}

// Process turns raw workbook bytes into cleaned, rebased rows.
func (p *Processor) Process(content []byte) ([]Row, error) {
	raw, err := parseSheet(content)
	if err != nil {
		return nil, err
	}

	rows := coerceRows(raw)
	rows = cleanRows(rows, p.logger)
	rows = applyRebase(rows, p.logger)

	if len(rows) > 0 {
		p.logger.Info().
			Int("rows", len(rows)).
			Str("from", rows[0].Date.Format(dateFormat)).
			Str("to", rows[len(rows)-1].Date.Format(dateFormat)).
			Msg("sheet processed")
	}
	return rows, nil
}

// SaveWebData writes the three JSON outputs: the compact current-rates
// file and the complete document for the site, and a dated historical
// snapshot for archival.
func (p *Processor) SaveWebData(data *WebData) error {
	current := CurrentDocument{
		LastUpdated:  data.LastUpdated,
		CurrentRates: data.CurrentRates,
		Trends:       data.Trends,
	}
	if err := writeJSON(filepath.Join(p.opts.WebDataDir, "fx_current.json"), current); err != nil {
		return err
	}

	if err := writeJSON(filepath.Join(p.opts.WebDataDir, "fx_data.json"), data); err != nil {
		return err
	}

	stamp := p.now().Format("20060102")
	name := fmt.Sprintf("fx_historical_%s.json", stamp)
	if err := writeJSON(filepath.Join(p.opts.DataDir, name), data.HistoricalData); err != nil {
		return err
	}

	p.logger.Info().Str("dir", p.opts.WebDataDir).Msg("web data saved")
	return nil
}

func writeJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
