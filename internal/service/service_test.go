package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"zedfx/internal/alerting"
	"zedfx/internal/config"
	"zedfx/internal/fx"
	"zedfx/internal/storage"
)

type fakeProcessor struct {
	result *fx.Result
	err    error
	runs   int
}

func (f *fakeProcessor) Run(ctx context.Context) (*fx.Result, error) {
	f.runs++
	return f.result, f.err
}

type fakeStore struct {
	upserts []storage.DailyRate
	err     error
}

func (f *fakeStore) UpsertDailyRate(ctx context.Context, rate storage.DailyRate) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, rate)
	return nil
}

func (f *fakeStore) ListRecentRates(ctx context.Context, limit int) ([]storage.DailyRate, error) {
	return nil, nil
}

func (f *fakeStore) CountRates(ctx context.Context) (int64, error) {
	return int64(len(f.upserts)), nil
}

type lockingStore struct {
	fakeStore
	acquired bool
	unlocked bool
}

func (l *lockingStore) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	if !l.acquired {
		return nil, false, nil
	}
	return func() { l.unlocked = true }, true, nil
}

type fakeNotifier struct {
	notes []alerting.Notification
	err   error
}

func (f *fakeNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.notes = append(f.notes, note)
	return nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func rowAt(date string) fx.Row {
	d := decimal.RequireFromString("17.5")
	return fx.Row{Date: day(date), USD: fx.Pair{Buy: &d, Sale: &d}}
}

func sampleResult(changePercent float64) *fx.Result {
	return &fx.Result{
		Data: &fx.WebData{
			CurrentRates: fx.CurrentRates{
				Date:  "2024-06-15",
				Rates: map[fx.Currency]fx.RateQuote{fx.USD: {Buy: 17.5, Sell: 17.55, Mid: 17.525}},
			},
			Trends: map[fx.Currency]fx.Trend{
				fx.USD: {Change: 1, ChangePercent: changePercent, Direction: "down"},
			},
		},
		Rows: []fx.Row{
			rowAt("2022-01-10"),
			rowAt("2023-06-15"),
			rowAt("2024-06-15"),
		},
	}
}

func testConfig(alerts bool, threshold float64) *config.Config {
	return &config.Config{
		Alerting: config.AlertingConfig{
			Enabled:      alerts,
			ThresholdPct: threshold,
			Channels:     []string{"telegram"},
		},
		Scheduler: config.SchedulerConfig{AdvisoryLockKey: 42},
	}
}

func TestRefreshArchivesRecentWindowOnly(t *testing.T) {
	proc := &fakeProcessor{result: sampleResult(0)}
	store := &fakeStore{}

	svc := New(testConfig(false, 0), nil, proc, store, nil, zerolog.Nop())
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if len(store.upserts) != 2 {
		t.Fatalf("only rows inside the 12-month window archive, got %d", len(store.upserts))
	}
	for _, rate := range store.upserts {
		if rate.Date.Before(day("2023-06-15")) {
			t.Fatalf("row outside the window was archived: %s", rate.Date)
		}
	}
}

func TestRefreshArchiveFailureIsNonFatal(t *testing.T) {
	proc := &fakeProcessor{result: sampleResult(0)}
	store := &fakeStore{err: errors.New("db down")}

	svc := New(testConfig(false, 0), nil, proc, store, nil, zerolog.Nop())
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("an archive failure must not fail the refresh: %v", err)
	}
}

func TestRefreshAlertsAboveThreshold(t *testing.T) {
	proc := &fakeProcessor{result: sampleResult(-5.88)}
	notifier := &fakeNotifier{}

	svc := New(testConfig(true, 1.0), nil, proc, nil, notifier, zerolog.Nop())
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if len(notifier.notes) != 1 {
		t.Fatalf("expected one alert, got %d", len(notifier.notes))
	}
	note := notifier.notes[0]
	if note.Date != "2024-06-15" || note.ThresholdPct != 1.0 {
		t.Fatalf("wrong notification: %+v", note)
	}
}

func TestRefreshSkipsAlertBelowThreshold(t *testing.T) {
	proc := &fakeProcessor{result: sampleResult(0.4)}
	notifier := &fakeNotifier{}

	svc := New(testConfig(true, 1.0), nil, proc, nil, notifier, zerolog.Nop())
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(notifier.notes) != 0 {
		t.Fatal("a sub-threshold move must not alert")
	}
}

func TestRefreshAlertFailureIsNonFatal(t *testing.T) {
	proc := &fakeProcessor{result: sampleResult(-5.88)}
	notifier := &fakeNotifier{err: errors.New("telegram down")}

	svc := New(testConfig(true, 1.0), nil, proc, nil, notifier, zerolog.Nop())
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("an alert failure must not fail the refresh: %v", err)
	}
}

func TestRefreshPropagatesPipelineFailure(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("source unavailable")}

	svc := New(testConfig(false, 0), nil, proc, nil, nil, zerolog.Nop())
	if _, err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("pipeline failures must propagate")
	}
}

func TestProcessTickSkipsWhenLockHeldElsewhere(t *testing.T) {
	proc := &fakeProcessor{result: sampleResult(0)}
	store := &lockingStore{acquired: false}

	svc := New(testConfig(false, 0), nil, proc, store, nil, zerolog.Nop())
	if err := svc.ProcessTick(context.Background(), time.Now()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if proc.runs != 0 {
		t.Fatal("refresh must be skipped when the advisory lock is held elsewhere")
	}
}

func TestProcessTickReleasesLock(t *testing.T) {
	proc := &fakeProcessor{result: sampleResult(0)}
	store := &lockingStore{acquired: true}

	svc := New(testConfig(false, 0), nil, proc, store, nil, zerolog.Nop())
	if err := svc.ProcessTick(context.Background(), time.Now()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if proc.runs != 1 {
		t.Fatalf("expected one refresh, got %d", proc.runs)
	}
	if !store.unlocked {
		t.Fatal("advisory lock must be released after the tick")
	}
}
