package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertDailyRateSQL = `INSERT INTO fx_rates (
        rate_date,
        usd_buy, usd_sale,
        gbp_buy, gbp_sale,
        eur_buy, eur_sale,
        zar_buy, zar_sale,
        normalized
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    )
    ON CONFLICT (rate_date) DO UPDATE
    SET
        usd_buy    = EXCLUDED.usd_buy,
        usd_sale   = EXCLUDED.usd_sale,
        gbp_buy    = EXCLUDED.gbp_buy,
        gbp_sale   = EXCLUDED.gbp_sale,
        eur_buy    = EXCLUDED.eur_buy,
        eur_sale   = EXCLUDED.eur_sale,
        zar_buy    = EXCLUDED.zar_buy,
        zar_sale   = EXCLUDED.zar_sale,
        normalized = EXCLUDED.normalized;`

	listRecentRatesSQL = `SELECT
        rate_date,
        usd_buy, usd_sale,
        gbp_buy, gbp_sale,
        eur_buy, eur_sale,
        zar_buy, zar_sale,
        normalized,
        created_at
    FROM fx_rates
    ORDER BY rate_date DESC
    LIMIT $1;`

	countRatesSQL = `SELECT COUNT(*) FROM fx_rates;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// RateStore defines operations for the daily rate archive.
type RateStore interface {
	UpsertDailyRate(ctx context.Context, rate DailyRate) error
	ListRecentRates(ctx context.Context, limit int) ([]DailyRate, error)
	CountRates(ctx context.Context) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to the rate archive.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertDailyRate persists or updates one archived day.
func (s *Store) UpsertDailyRate(ctx context.Context, rate DailyRate) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertDailyRateSQL,
		rate.Date,
		decimalArg(rate.USDBuy),
		decimalArg(rate.USDSale),
		decimalArg(rate.GBPBuy),
		decimalArg(rate.GBPSale),
		decimalArg(rate.EURBuy),
		decimalArg(rate.EURSale),
		decimalArg(rate.ZARBuy),
		decimalArg(rate.ZARSale),
		rate.Normalized,
	)
	if execErr != nil {
		return fmt.Errorf("upsert daily rate: %w", execErr)
	}
	return nil
}

// ListRecentRates lists the most recent archived days, newest first.
func (s *Store) ListRecentRates(ctx context.Context, limit int) ([]DailyRate, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRatesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent rates: %w", queryErr)
	}
	defer rows.Close()

	rates := make([]DailyRate, 0, limit)
	for rows.Next() {
		rate, scanErr := scanDailyRate(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rates = append(rates, rate)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rates, nil
}

// CountRates counts archived days.
func (s *Store) CountRates(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countRatesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count rates: %w", scanErr)
	}
	return count, nil
}

func decimalArg(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanDailyRate(rows pgx.Rows) (DailyRate, error) {
	var (
		date       time.Time
		quotes     [8]sql.NullString
		normalized bool
		createdAt  time.Time
	)

	if err := rows.Scan(
		&date,
		&quotes[0], &quotes[1],
		&quotes[2], &quotes[3],
		&quotes[4], &quotes[5],
		&quotes[6], &quotes[7],
		&normalized,
		&createdAt,
	); err != nil {
		return DailyRate{}, err
	}

	parsed := make([]*decimal.Decimal, len(quotes))
	for i, q := range quotes {
		if !q.Valid {
			continue
		}
		d, err := decimal.NewFromString(q.String)
		if err != nil {
			return DailyRate{}, fmt.Errorf("parse archived quote: %w", err)
		}
		parsed[i] = &d
	}

	return DailyRate{
		Date:       date,
		USDBuy:     parsed[0],
		USDSale:    parsed[1],
		GBPBuy:     parsed[2],
		GBPSale:    parsed[3],
		EURBuy:     parsed[4],
		EURSale:    parsed[5],
		ZARBuy:     parsed[6],
		ZARSale:    parsed[7],
		Normalized: normalized,
		CreatedAt:  createdAt,
	}, nil
}
