package spread

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"spreadwatch/internal/model"
)

func resultFor(key model.ExchangePairKey, entry, exit string) model.SpreadResult {
	return model.SpreadResult{
		Instrument:    key.Instrument,
		LongExchange:  key.LongExchange,
		ShortExchange: key.ShortExchange,
		EntrySpread:   dec(entry),
		ExitSpread:    dec(exit),
	}
}

func TestTrackerFirstObservationReplacesSentinels(t *testing.T) {
	tracker := NewTracker()
	key := model.ExchangePairKey{LongExchange: "binance", ShortExchange: "kraken", Instrument: "BTC/EUR"}

	tracker.Record(resultFor(key, "0.5", "0.5"))

	assert.Equal(t, "0.5", tracker.minEntry[key].String())
	assert.Equal(t, "0.5", tracker.maxEntry[key].String())
	assert.Equal(t, "0.5", tracker.minExit[key].String())
	assert.Equal(t, "0.5", tracker.maxExit[key].String())
}

func TestTrackerExtremaOverSequence(t *testing.T) {
	tracker := NewTracker()
	key := model.ExchangePairKey{LongExchange: "binance", ShortExchange: "kraken", Instrument: "BTC/EUR"}

	for _, v := range []string{"0.003", "-0.012", "0.0071", "0.0002", "-0.004"} {
		tracker.Record(resultFor(key, v, v))
	}

	assert.Equal(t, "-0.012", tracker.minEntry[key].String())
	assert.Equal(t, "0.0071", tracker.maxEntry[key].String())
	assert.Equal(t, "-0.012", tracker.minExit[key].String())
	assert.Equal(t, "0.0071", tracker.maxExit[key].String())
}

func TestTrackerRecordsOutOfRangeValuesAsIs(t *testing.T) {
	tracker := NewTracker()
	key := model.ExchangePairKey{LongExchange: "binance", ShortExchange: "kraken", Instrument: "BTC/EUR"}

	tracker.Record(resultFor(key, "2", "-3"))

	assert.Equal(t, "2", tracker.maxEntry[key].String())
	assert.Equal(t, "-3", tracker.minExit[key].String())
}

func TestTrackerKeysAreIndependent(t *testing.T) {
	tracker := NewTracker()
	first := model.ExchangePairKey{LongExchange: "binance", ShortExchange: "kraken", Instrument: "BTC/EUR"}
	second := model.ExchangePairKey{LongExchange: "kraken", ShortExchange: "binance", Instrument: "BTC/EUR"}

	tracker.Record(resultFor(first, "0.004", "0.001"))
	tracker.Record(resultFor(second, "-0.006", "0.002"))

	assert.Equal(t, "0.004", tracker.minEntry[first].String())
	assert.Equal(t, "-0.006", tracker.minEntry[second].String())
}

func TestTrackerSummary(t *testing.T) {
	tracker := NewTracker()
	tracker.Record(resultFor(model.ExchangePairKey{LongExchange: "kraken", ShortExchange: "binance", Instrument: "BTC/EUR"}, "0.004", "0.001"))
	tracker.Record(resultFor(model.ExchangePairKey{LongExchange: "binance", ShortExchange: "kraken", Instrument: "BTC/EUR"}, "-0.006", "0.002"))

	want := "Minimum entry spreads:\n" +
		"binance/kraken BTC/EUR: -0.006\n" +
		"kraken/binance BTC/EUR: 0.004\n" +
		"Maximum entry spreads:\n" +
		"binance/kraken BTC/EUR: -0.006\n" +
		"kraken/binance BTC/EUR: 0.004\n" +
		"Minimum exit spreads:\n" +
		"binance/kraken BTC/EUR: 0.002\n" +
		"kraken/binance BTC/EUR: 0.001\n" +
		"Maximum exit spreads:\n" +
		"binance/kraken BTC/EUR: 0.002\n" +
		"kraken/binance BTC/EUR: 0.001"

	assert.Equal(t, want, tracker.Summary())
}

func TestTrackerConcurrentRecord(t *testing.T) {
	tracker := NewTracker()
	key := model.ExchangePairKey{LongExchange: "binance", ShortExchange: "kraken", Instrument: "BTC/EUR"}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := decimal.New(int64(i), -4)
			tracker.Record(model.SpreadResult{
				Instrument:    key.Instrument,
				LongExchange:  key.LongExchange,
				ShortExchange: key.ShortExchange,
				EntrySpread:   v,
				ExitSpread:    v.Neg(),
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, "0", tracker.minEntry[key].String())
	assert.Equal(t, "0.0099", tracker.maxEntry[key].String())
	assert.Equal(t, "-0.0099", tracker.minExit[key].String())
	assert.Equal(t, "0", tracker.maxExit[key].String())
}
