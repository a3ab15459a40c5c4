package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"zedfx/internal/alerting"
	"zedfx/internal/config"
	"zedfx/internal/fetcher"
	"zedfx/internal/fx"
	"zedfx/internal/scheduler"
	"zedfx/internal/service"
	"zedfx/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newProcessor() *fx.Processor {
	return a.newProcessorWithDirs(a.Config.FX.DataDir, a.Config.FX.WebDataDir)
}

func (a *App) newProcessorWithDirs(dataDir, webDataDir string) *fx.Processor {
	sheets := fetcher.NewSheet(fetcher.SheetOptions{
		URL:       a.Config.FX.SourceURL,
		BackupDir: dataDir,
		Timeout:   a.Config.FX.RequestTimeout,
		UserAgent: a.Config.FX.UserAgent,
	}, a.Logger)

	return fx.NewProcessor(fx.Options{
		DataDir:    dataDir,
		WebDataDir: webDataDir,
	}, sheets, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running refresh service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; rate archive disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	var rateStore storage.RateStore
	if store != nil {
		rateStore = store
	}

	svc := service.New(a.Config, sched, a.newProcessor(), rateStore, a.newNotifier(), a.Logger)

	a.Logger.Info().Msg("starting fx refresh service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("fx refresh service stopped")
	return nil
}

// UpdateOptions override the configured output directories for a
// one-shot update.
type UpdateOptions struct {
	DataDir    string
	WebDataDir string
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting the historical series.
type ExportOptions struct {
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
