package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultSourceURL = "https://www.boz.zm/AVERAGE_FXRATES.xlsx"

// SheetOptions parameterise the Bank of Zambia fetcher.
type SheetOptions struct {
	URL       string
	BackupDir string
	Timeout   time.Duration
	UserAgent string
}

// Sheet downloads the published average-rates workbook over HTTP.
type Sheet struct {
	opts   SheetOptions
	logger zerolog.Logger
	client *http.Client
	now    func() time.Time
}

// NewSheet constructs a sheet fetcher.
func NewSheet(opts SheetOptions, logger zerolog.Logger) *Sheet {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if opts.URL == "" {
		opts.URL = defaultSourceURL
	}

	return &Sheet{
		opts:   opts,
		logger: logger.With().Str("component", "sheet_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// FetchSheet performs a timed-out GET and returns the raw workbook
// bytes, writing a dated backup copy first. Network failures and non-2xx
// responses propagate to the caller; no retry is attempted.
func (s *Sheet) FetchSheet(ctx context.Context) ([]byte, error) {
	if s.opts.BackupDir == "" {
		return nil, errors.New("backup directory not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if ua := strings.TrimSpace(s.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	s.logger.Info().Str("url", s.opts.URL).Msg("fetching fx data")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.opts.URL, err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", s.opts.URL, resp.StatusCode)
	}

	if err := s.writeBackup(content); err != nil {
		return nil, err
	}

	return content, nil
}

func (s *Sheet) writeBackup(content []byte) error {
	if err := os.MkdirAll(s.opts.BackupDir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("raw_fx_data_%s.xlsx", s.now().Format("20060102"))
	path := filepath.Join(s.opts.BackupDir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}

	s.logger.Info().Str("path", path).Msg("raw data saved")
	return nil
}

var _ SheetFetcher = (*Sheet)(nil)
