package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/Trong-Tra/Clione/internal/domain"
)

// CandleCache persists fetched candles in SQLite so repeated runs can warm
// the VWAP session without hitting the venue again.
type CandleCache struct {
	db *sql.DB
}

// NewCandleCache opens (or creates) the cache with WAL mode enabled.
func NewCandleCache(dbPath string) (*CandleCache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	// One row per (coin, interval, open time); refetches overwrite in place.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			coin TEXT NOT NULL,
			interval TEXT NOT NULL,
			ts INTEGER NOT NULL,
			high REAL NOT NULL,
			low REAL NOT NULL,
			close REAL NOT NULL,
			volume REAL NOT NULL,
			PRIMARY KEY (coin, interval, ts)
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create candles table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	return &CandleCache{db: db}, nil
}

// SaveBars upserts a batch of bars in one transaction. Invalid bars are
// skipped rather than poisoning the cache.
func (c *CandleCache) SaveBars(ctx context.Context, coin, interval string, bars []domain.Bar) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (coin, interval, ts, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(coin, interval, ts) DO UPDATE SET
			high=excluded.high, low=excluded.low, close=excluded.close, volume=excluded.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if !b.Valid() {
			continue
		}
		if _, err := stmt.ExecContext(ctx, coin, interval, b.Ts.UnixMilli(), b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("failed to upsert candle at %d: %w", b.Ts.UnixMilli(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit candles: %w", err)
	}
	return nil
}

// LoadBars returns the newest bars at or after `since`, oldest first, capped
// at limit (0 means no cap).
func (c *CandleCache) LoadBars(ctx context.Context, coin, interval string, since time.Time, limit int) ([]domain.Bar, error) {
	query := `
		SELECT ts, high, low, close, volume FROM candles
		WHERE coin = ? AND interval = ? AND ts >= ?
		ORDER BY ts ASC
	`
	args := []any{coin, interval, since.UnixMilli()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var ts int64
		var b domain.Bar
		if err := rows.Scan(&ts, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		b.Ts = time.UnixMilli(ts)
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return bars, nil
}

// LatestTs returns the open time of the newest cached bar, zero time when
// the cache holds nothing for the pair.
func (c *CandleCache) LatestTs(ctx context.Context, coin, interval string) (time.Time, error) {
	var latest sql.NullInt64
	err := c.db.QueryRowContext(ctx,
		"SELECT MAX(ts) FROM candles WHERE coin = ? AND interval = ?",
		coin, interval,
	).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest ts: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return time.UnixMilli(latest.Int64), nil
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (c *CandleCache) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	return err
}

// GetMetadata retrieves a value from the metadata table. Missing keys read
// as the empty string.
func (c *CandleCache) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := c.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (c *CandleCache) Close() error {
	return c.db.Close()
}
