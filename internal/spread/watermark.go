package spread

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"spreadwatch/internal/model"
)

// Sentinel bounds for the water marks. Spreads are fractions, so +/-100% is
// never legitimately exceeded and the first observation always replaces the
// sentinel.
var (
	sentinelMin = decimal.NewFromInt(1)
	sentinelMax = decimal.NewFromInt(-1)
)

// Tracker keeps running high and low water marks of entry and exit spreads
// per exchange-pair/instrument combination. Knowing the historical extremes
// is useful for tuning the entry and exit thresholds. Safe for concurrent
// use.
type Tracker struct {
	mu       sync.RWMutex
	minEntry map[model.ExchangePairKey]decimal.Decimal
	maxEntry map[model.ExchangePairKey]decimal.Decimal
	minExit  map[model.ExchangePairKey]decimal.Decimal
	maxExit  map[model.ExchangePairKey]decimal.Decimal
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		minEntry: make(map[model.ExchangePairKey]decimal.Decimal),
		maxEntry: make(map[model.ExchangePairKey]decimal.Decimal),
		minExit:  make(map[model.ExchangePairKey]decimal.Decimal),
		maxExit:  make(map[model.ExchangePairKey]decimal.Decimal),
	}
}

// Record extends the water marks with a new result. It never fails and does
// not validate business ranges; out-of-range spreads are recorded as-is.
func (t *Tracker) Record(result model.SpreadResult) {
	key := result.Key()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.minEntry[key] = decimal.Min(getOrDefault(t.minEntry, key, sentinelMin), result.EntrySpread)
	t.maxEntry[key] = decimal.Max(getOrDefault(t.maxEntry, key, sentinelMax), result.EntrySpread)
	t.minExit[key] = decimal.Min(getOrDefault(t.minExit, key, sentinelMin), result.ExitSpread)
	t.maxExit[key] = decimal.Max(getOrDefault(t.maxExit, key, sentinelMax), result.ExitSpread)
}

// Summary renders the four water-mark maps as labeled blocks of
// "long/short instrument: value" lines, in the fixed order minimum entry,
// maximum entry, minimum exit, maximum exit. Keys are sorted within each
// block so the output is deterministic.
func (t *Tracker) Summary() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var b strings.Builder

	writeBlock(&b, "Minimum entry spreads:", t.minEntry)
	writeBlock(&b, "Maximum entry spreads:", t.maxEntry)
	writeBlock(&b, "Minimum exit spreads:", t.minExit)
	writeBlock(&b, "Maximum exit spreads:", t.maxExit)

	return strings.TrimRight(b.String(), "\n")
}

func writeBlock(b *strings.Builder, label string, marks map[model.ExchangePairKey]decimal.Decimal) {
	b.WriteString(label)
	b.WriteString("\n")

	keys := make([]model.ExchangePairKey, 0, len(marks))
	for key := range marks {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	for _, key := range keys {
		fmt.Fprintf(b, "%s/%s %s: %s\n", key.LongExchange, key.ShortExchange, key.Instrument, marks[key])
	}
}

func getOrDefault(marks map[model.ExchangePairKey]decimal.Decimal, key model.ExchangePairKey, fallback decimal.Decimal) decimal.Decimal {
	if v, ok := marks[key]; ok {
		return v
	}
	return fallback
}
