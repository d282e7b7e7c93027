package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceTick represents a single price update from an exchange stream.
type PriceTick struct {
	Exchange   string
	Instrument string
	Bid        decimal.Decimal
	Ask        decimal.Decimal
	Received   time.Time
}

// Quote is one exchange's current market for one instrument at one instant.
// Immutable; discarded after the evaluation cycle that fetched it.
type Quote struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
	At  time.Time
}

// ExchangePairKey identifies one long/short exchange combination for one
// instrument. Comparable, so it can be used directly as a map key.
type ExchangePairKey struct {
	LongExchange  string
	ShortExchange string
	Instrument    string
}

func (k ExchangePairKey) String() string {
	return fmt.Sprintf("%s/%s %s", k.LongExchange, k.ShortExchange, k.Instrument)
}

// SpreadResult is the outcome of one completed spread evaluation.
// Immutable once constructed.
type SpreadResult struct {
	Instrument    string
	LongExchange  string
	ShortExchange string
	LongQuote     Quote
	ShortQuote    Quote
	EntrySpread   decimal.Decimal
	ExitSpread    decimal.Decimal
}

// Key returns the water-mark key for this result.
func (r SpreadResult) Key() ExchangePairKey {
	return ExchangePairKey{
		LongExchange:  r.LongExchange,
		ShortExchange: r.ShortExchange,
		Instrument:    r.Instrument,
	}
}
