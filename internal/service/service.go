package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"zedfx/internal/alerting"
	"zedfx/internal/config"
	"zedfx/internal/fx"
	"zedfx/internal/scheduler"
	"zedfx/internal/storage"
)

// Processor is the slice of the fx pipeline the service drives.
type Processor interface {
	Run(ctx context.Context) (*fx.Result, error)
}

// Service orchestrates scheduled refreshes, archiving, and alerting.
type Service struct {
	scheduler *scheduler.Scheduler
	processor Processor
	store     storage.RateStore
	notifier  alerting.Notifier
	logger    zerolog.Logger

	threshold float64
	channels  []string
	alertsOn  bool
	locker    storage.AdvisoryLocker
	lockKey   int64
}

// New constructs the refresh service.
func New(cfg *config.Config, sched *scheduler.Scheduler, processor Processor, store storage.RateStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	threshold := 0.0
	if cfg.Alerting.Enabled && cfg.Alerting.ThresholdPct > 0 {
		threshold = cfg.Alerting.ThresholdPct
	}

	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler: sched,
		processor: processor,
		store:     store,
		notifier:  notifier,
		logger:    logger.With().Str("component", "service").Logger(),
		threshold: threshold,
		channels:  cfg.Alerting.Channels,
		alertsOn:  cfg.Alerting.Enabled,
		locker:    locker,
		lockKey:   cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the aligned refresh loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick executes one scheduled refresh, guarded by the advisory
// lock so concurrent deployments do not write the same outputs.
func (s *Service) ProcessTick(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip refresh because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	_, err = s.Refresh(ctx)
	return err
}

// Refresh runs the pipeline once, archives the daily-window rows, and
// dispatches move alerts. Archive and alert failures are logged rather
// than failing a refresh that already published its files.
func (s *Service) Refresh(ctx context.Context) (*fx.Result, error) {
	res, err := s.processor.Run(ctx)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		s.archiveRows(ctx, res.Rows)
	}

	if s.alertsOn && s.notifier != nil && s.threshold > 0 {
		s.maybeAlert(ctx, res.Data)
	}

	return res, nil
}

// archiveRows upserts the rows inside the daily resolution window; the
// older history only changes when the source restates it, and monthly
// aggregates are derivable from the archive anyway.
func (s *Service) archiveRows(ctx context.Context, rows []fx.Row) {
	if len(rows) == 0 {
		return
	}

	latest := rows[0].Date
	for _, row := range rows {
		if row.Date.After(latest) {
			latest = row.Date
		}
	}
	cutoff := latest.AddDate(0, -12, 0)

	archived := 0
	for _, row := range rows {
		if row.Date.Before(cutoff) {
			continue
		}
		if err := s.store.UpsertDailyRate(ctx, storage.DailyRateFromRow(row)); err != nil {
			s.logger.Error().Err(err).Str("date", row.Date.Format("2006-01-02")).Msg("failed to archive rate")
			continue
		}
		archived++
	}

	s.logger.Info().Int("rows", archived).Msg("rates archived")
}

func (s *Service) maybeAlert(ctx context.Context, data *fx.WebData) {
	triggered := false
	for _, trend := range data.Trends {
		if trend.ChangePercent >= s.threshold || -trend.ChangePercent >= s.threshold {
			triggered = true
			break
		}
	}
	if !triggered {
		return
	}

	note := alerting.Notification{
		Date:         data.CurrentRates.Date,
		Rates:        data.CurrentRates.Rates,
		Trends:       data.Trends,
		ThresholdPct: s.threshold,
		Channels:     s.channels,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("date", note.Date).Msg("failed to dispatch alert")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
