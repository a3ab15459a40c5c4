package app

import (
	"context"
	"fmt"
	"time"

	"zedfx/internal/fx"
	"zedfx/internal/service"
	"zedfx/internal/storage"
)

// Update runs the fetch-process-save pipeline once and logs the
// resulting headline rates.
func (a *App) Update(ctx context.Context, opts UpdateOptions) error {
	start := time.Now()

	dataDir := a.Config.FX.DataDir
	if opts.DataDir != "" {
		dataDir = opts.DataDir
	}
	webDataDir := a.Config.FX.WebDataDir
	if opts.WebDataDir != "" {
		webDataDir = opts.WebDataDir
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	var rateStore storage.RateStore
	if store != nil {
		rateStore = store
	}

	processor := a.newProcessorWithDirs(dataDir, webDataDir)
	svc := service.New(a.Config, nil, processor, rateStore, a.newNotifier(), a.Logger)

	res, err := svc.Refresh(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("fx data update failed")
		return err
	}

	for _, c := range fx.Currencies {
		quote, ok := res.Data.CurrentRates.Rates[c]
		if !ok {
			continue
		}
		a.Logger.Info().
			Str("currency", string(c)).
			Str("mid", fmt.Sprintf("%.3f", quote.Mid)).
			Msg("current rate")
	}

	a.Logger.Info().
		Str("date", res.Data.CurrentRates.Date).
		Dur("elapsed", time.Since(start)).
		Msg("fx data update completed")
	return nil
}
