// Package ticker caches the latest quote per exchange and instrument from
// the websocket price streams and serves it to the spread evaluator.
package ticker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spreadwatch/internal/model"
	"spreadwatch/internal/spread"
)

type quoteKey struct {
	Exchange   string
	Instrument string
}

// Service implements the evaluator's QuoteSource port. It consumes
// PriceTicks from the stream channel and keeps only the most recent quote
// per (exchange, instrument). Safe for concurrent use.
type Service struct {
	logger *slog.Logger
	maxAge time.Duration

	mu     sync.RWMutex
	latest map[quoteKey]model.Quote
}

// NewService creates a Service. Quotes older than maxAge are reported as
// invalid.
func NewService(logger *slog.Logger, maxAge time.Duration) *Service {
	return &Service{
		logger: logger,
		maxAge: maxAge,
		latest: make(map[quoteKey]model.Quote),
	}
}

// Run consumes ticks until the channel closes or the context is cancelled.
func (s *Service) Run(ctx context.Context, ticks <-chan model.PriceTick) {
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Ticker service shutting down")
			return
		case tick, ok := <-ticks:
			if !ok {
				return
			}
			s.Update(tick)
		}
	}
}

// Update replaces the cached quote for the tick's exchange and instrument.
func (s *Service) Update(tick model.PriceTick) {
	received := tick.Received
	if received.IsZero() {
		received = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest[quoteKey{Exchange: tick.Exchange, Instrument: tick.Instrument}] = model.Quote{
		Bid: tick.Bid,
		Ask: tick.Ask,
		At:  received,
	}
}

// GetQuote returns the latest quote for the exchange and instrument, or
// spread.ErrNoQuote when none has been received yet.
func (s *Service) GetQuote(exchange, instrument string) (model.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quote, ok := s.latest[quoteKey{Exchange: exchange, Instrument: instrument}]
	if !ok {
		return model.Quote{}, fmt.Errorf("%w: %s %s", spread.ErrNoQuote, exchange, instrument)
	}
	return quote, nil
}

// IsInvalid reports whether a quote is unusable: non-positive prices or
// older than the configured maximum age.
func (s *Service) IsInvalid(quote model.Quote) bool {
	if quote.Bid.Sign() <= 0 || quote.Ask.Sign() <= 0 {
		return true
	}
	return time.Since(quote.At) > s.maxAge
}
