package database

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"spreadwatch/internal/event"
	"spreadwatch/internal/model"
)

var (
	pool *pgxpool.Pool
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	// Define the PostgreSQL container request
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpassword",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}

	// Create and start the PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		log.Fatalf("could not start postgres container: %s", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Fatalf("could not stop postgres container: %s", err)
		}
	}()

	// Get the container's mapped port and host
	host, err := pgContainer.Host(ctx)
	if err != nil {
		log.Fatalf("could not get container host: %s", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("could not get mapped port: %s", err)
	}

	// Create the database connection string
	connStr := "postgres://testuser:testpassword@" + host + ":" + port.Port() + "/testdb"

	// Create a new connection pool
	pool, err = pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("could not connect to database: %s", err)
	}
	defer pool.Close()

	// Run the tests
	code := m.Run()

	os.Exit(code)
}

func TestPostgresSink_Publish(t *testing.T) {
	ctx := context.Background()
	sink := NewPostgresSink(pool)

	require.NoError(t, sink.Migrate(ctx))
	// Migrate must be safe to run twice.
	require.NoError(t, sink.Migrate(ctx))

	result := model.SpreadResult{
		Instrument:    "BTC/EUR",
		LongExchange:  "binance",
		ShortExchange: "kraken",
		LongQuote: model.Quote{
			Bid: decimal.RequireFromString("59990.1"),
			Ask: decimal.RequireFromString("60010.52"),
			At:  time.Now(),
		},
		ShortQuote: model.Quote{
			Bid: decimal.RequireFromString("60150.3"),
			Ask: decimal.RequireFromString("60170.8"),
			At:  time.Now(),
		},
		EntrySpread: decimal.RequireFromString("0.00236219"),
		ExitSpread:  decimal.RequireFromString("0.01771457"),
	}

	ev := event.NewSpreadEvent(result)
	err := sink.Publish(ctx, ev)
	assert.NoError(t, err)

	// Verify the event was recorded under the envelope's id
	var (
		instrument    string
		longExchange  string
		shortExchange string
		entrySpread   decimal.Decimal
		exitSpread    decimal.Decimal
	)
	err = pool.QueryRow(ctx, "SELECT instrument, long_exchange, short_exchange, entry_spread, exit_spread FROM spread_events WHERE id = $1", ev.ID.String()).Scan(
		&instrument, &longExchange, &shortExchange, &entrySpread, &exitSpread,
	)
	require.NoError(t, err)
	assert.Equal(t, result.Instrument, instrument)
	assert.Equal(t, result.LongExchange, longExchange)
	assert.Equal(t, result.ShortExchange, shortExchange)
	assert.True(t, result.EntrySpread.Equal(entrySpread))
	assert.True(t, result.ExitSpread.Equal(exitSpread))
}
