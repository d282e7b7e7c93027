package exchange

import (
	"fmt"
	"log/slog"
)

// NewClient creates a new exchange client based on the given name.
func NewClient(name string, logger *slog.Logger) (ExchangeClient, error) {
	switch name {
	case "kraken":
		return NewKrakenClient(logger), nil
	case "binance":
		return NewBinanceClient(logger), nil
	default:
		return nil, fmt.Errorf("unknown exchange: %s", name)
	}
}
