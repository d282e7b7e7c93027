package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"spreadwatch/internal/event"
)

// PostgresSink records published spread events in Postgres. It is a
// downstream consumer of the event stream; the evaluator itself holds no
// persistence.
type PostgresSink struct {
	Pool *pgxpool.Pool
}

// NewPostgresSink creates a PostgresSink on an existing pool.
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{Pool: pool}
}

// Migrate creates the spread_events table if it does not exist.
func (s *PostgresSink) Migrate(ctx context.Context) error {
	const createTableSQL = `
	CREATE TABLE IF NOT EXISTS spread_events (
		id UUID PRIMARY KEY,
		published_at TIMESTAMPTZ NOT NULL,
		instrument VARCHAR(20) NOT NULL,
		long_exchange VARCHAR(50) NOT NULL,
		short_exchange VARCHAR(50) NOT NULL,
		long_bid NUMERIC(28, 8) NOT NULL,
		long_ask NUMERIC(28, 8) NOT NULL,
		short_bid NUMERIC(28, 8) NOT NULL,
		short_ask NUMERIC(28, 8) NOT NULL,
		entry_spread NUMERIC(28, 8) NOT NULL,
		exit_spread NUMERIC(28, 8) NOT NULL
	);`

	if _, err := s.Pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("migrate spread_events: %w", err)
	}
	return nil
}

// Publish inserts the event as a new spread_events row, keeping the id the
// envelope was published with.
func (s *PostgresSink) Publish(ctx context.Context, ev event.SpreadEvent) error {
	result := ev.Result

	const insertSQL = `
	INSERT INTO spread_events (
		id, published_at, instrument, long_exchange, short_exchange,
		long_bid, long_ask, short_bid, short_ask, entry_spread, exit_spread
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`

	_, err := s.Pool.Exec(ctx, insertSQL,
		ev.ID.String(),
		ev.At,
		result.Instrument,
		result.LongExchange,
		result.ShortExchange,
		result.LongQuote.Bid.String(),
		result.LongQuote.Ask.String(),
		result.ShortQuote.Bid.String(),
		result.ShortQuote.Ask.String(),
		result.EntrySpread.String(),
		result.ExitSpread.String(),
	)
	if err != nil {
		return fmt.Errorf("insert spread event: %w", err)
	}
	return nil
}
