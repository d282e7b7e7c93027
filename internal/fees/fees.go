// Package fees provides the trading fee lookup used by the spread evaluator:
// an in-memory cache consulted first and a fallback fetcher for misses.
package fees

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

type feeKey struct {
	Exchange   string
	Instrument string
}

// Fetcher retrieves a fee fraction when the cache misses. isBuy signals
// which side of the trade the fee applies to, for venues that price the two
// differently.
type Fetcher interface {
	Fee(ctx context.Context, exchange, instrument string, isBuy bool) (decimal.Decimal, error)
}

// Cache is a process-lifetime map of known fee fractions. Safe for
// concurrent use.
type Cache struct {
	mu   sync.RWMutex
	fees map[feeKey]decimal.Decimal
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{fees: make(map[feeKey]decimal.Decimal)}
}

// Get returns the cached fee and whether it was present.
func (c *Cache) Get(exchange, instrument string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fee, ok := c.fees[feeKey{Exchange: exchange, Instrument: instrument}]
	return fee, ok
}

// Put stores a fee fraction.
func (c *Cache) Put(exchange, instrument string, fee decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fees[feeKey{Exchange: exchange, Instrument: instrument}] = fee
}

// Service ties the cache and the fallback fetcher together. It implements
// the evaluator's FeeSource port: cache-first, and every successful fallback
// fetch repopulates the cache.
type Service struct {
	cache   *Cache
	fetcher Fetcher
}

// NewService creates a Service.
func NewService(cache *Cache, fetcher Fetcher) *Service {
	return &Service{cache: cache, fetcher: fetcher}
}

// CachedFee returns the cached fee fraction and whether it was present.
func (s *Service) CachedFee(exchange, instrument string) (decimal.Decimal, bool) {
	return s.cache.Get(exchange, instrument)
}

// Fee fetches a fee fraction from the fallback fetcher and caches it.
func (s *Service) Fee(ctx context.Context, exchange, instrument string, isBuy bool) (decimal.Decimal, error) {
	fee, err := s.fetcher.Fee(ctx, exchange, instrument, isBuy)
	if err != nil {
		return decimal.Decimal{}, err
	}

	s.cache.Put(exchange, instrument, fee)
	return fee, nil
}

// ConfigFetcher serves taker fee fractions from static configuration. The
// fee is the same for both trade sides.
type ConfigFetcher struct {
	taker map[string]decimal.Decimal
}

// NewConfigFetcher creates a ConfigFetcher from a per-exchange taker fee
// map.
func NewConfigFetcher(taker map[string]decimal.Decimal) *ConfigFetcher {
	return &ConfigFetcher{taker: taker}
}

// Fee returns the configured taker fee for the exchange.
func (f *ConfigFetcher) Fee(_ context.Context, exchange, _ string, _ bool) (decimal.Decimal, error) {
	fee, ok := f.taker[exchange]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no fee configured for exchange %s", exchange)
	}
	return fee, nil
}
