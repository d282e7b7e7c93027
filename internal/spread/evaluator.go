package spread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"spreadwatch/internal/event"
	"spreadwatch/internal/model"
)

var (
	// ErrNoQuote is returned by a QuoteSource when it has no quote for the
	// requested exchange and instrument. The evaluator treats it like an
	// invalid quote, not as a failure.
	ErrNoQuote = errors.New("spread: no quote available")
	// ErrFeeUnavailable wraps a fee lookup that missed the cache and then
	// failed the fallback fetch.
	ErrFeeUnavailable = errors.New("spread: fee unavailable")
)

// QuoteSource serves current market quotes.
type QuoteSource interface {
	GetQuote(exchange, instrument string) (model.Quote, error)
	IsInvalid(quote model.Quote) bool
}

// FeeSource serves trading fee fractions. CachedFee reports an explicit miss
// so the fallback fetch is visible at the call site.
type FeeSource interface {
	CachedFee(exchange, instrument string) (decimal.Decimal, bool)
	Fee(ctx context.Context, exchange, instrument string, isBuy bool) (decimal.Decimal, error)
}

// Evaluator runs one spread evaluation cycle: fetch two quotes and two fees,
// compute entry and exit spreads, track the water marks and hand the result
// to the event sink. Delivery is fire-and-forget; a failing sink never fails
// the evaluation.
type Evaluator struct {
	logger  *slog.Logger
	quotes  QuoteSource
	fees    FeeSource
	tracker *Tracker
	sink    event.Sink
}

// NewEvaluator creates an Evaluator. The sink may be nil.
func NewEvaluator(logger *slog.Logger, quotes QuoteSource, fees FeeSource, tracker *Tracker, sink event.Sink) *Evaluator {
	return &Evaluator{
		logger:  logger,
		quotes:  quotes,
		fees:    fees,
		tracker: tracker,
		sink:    sink,
	}
}

// Evaluate computes the entry and exit spreads for one exchange pair and
// instrument. It returns (nil, nil) when either quote is missing or invalid;
// that is the expected steady-state outcome while market data is
// unavailable, not an error. A non-nil error means the cycle failed hard and
// no water mark or event was produced.
func (e *Evaluator) Evaluate(ctx context.Context, pair model.ExchangePairKey) (*model.SpreadResult, error) {
	longQuote, err := e.quotes.GetQuote(pair.LongExchange, pair.Instrument)
	if err != nil {
		if errors.Is(err, ErrNoQuote) {
			return nil, nil
		}
		return nil, fmt.Errorf("long quote %s %s: %w", pair.LongExchange, pair.Instrument, err)
	}
	shortQuote, err := e.quotes.GetQuote(pair.ShortExchange, pair.Instrument)
	if err != nil {
		if errors.Is(err, ErrNoQuote) {
			return nil, nil
		}
		return nil, fmt.Errorf("short quote %s %s: %w", pair.ShortExchange, pair.Instrument, err)
	}

	if e.quotes.IsInvalid(longQuote) || e.quotes.IsInvalid(shortQuote) {
		return nil, nil
	}

	// The long leg opens with a buy, the short leg with a sell.
	longFee, err := e.lookupFee(ctx, pair.LongExchange, pair.Instrument, true)
	if err != nil {
		return nil, err
	}
	shortFee, err := e.lookupFee(ctx, pair.ShortExchange, pair.Instrument, false)
	if err != nil {
		return nil, err
	}

	entry, err := EntrySpread(longQuote.Ask, longFee, shortQuote.Bid, shortFee)
	if err != nil {
		return nil, fmt.Errorf("entry spread %s: %w", pair, err)
	}
	exit, err := ExitSpread(longQuote.Bid, longFee, shortQuote.Ask, shortFee)
	if err != nil {
		return nil, fmt.Errorf("exit spread %s: %w", pair, err)
	}

	result := &model.SpreadResult{
		Instrument:    pair.Instrument,
		LongExchange:  pair.LongExchange,
		ShortExchange: pair.ShortExchange,
		LongQuote:     longQuote,
		ShortQuote:    shortQuote,
		EntrySpread:   entry,
		ExitSpread:    exit,
	}

	e.tracker.Record(*result)

	if e.sink != nil {
		// One envelope per evaluation; every sink sees the same event id.
		if err := e.sink.Publish(ctx, event.NewSpreadEvent(*result)); err != nil {
			e.logger.Warn("Failed to publish spread result", "pair", pair.String(), "error", err)
		}
	}

	return result, nil
}

func (e *Evaluator) lookupFee(ctx context.Context, exchange, instrument string, isBuy bool) (decimal.Decimal, error) {
	if fee, ok := e.fees.CachedFee(exchange, instrument); ok {
		return fee, nil
	}

	fee, err := e.fees.Fee(ctx, exchange, instrument, isBuy)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s %s: %v", ErrFeeUnavailable, exchange, instrument, err)
	}
	return fee, nil
}
