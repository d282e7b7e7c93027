package exchange

import (
	"context"

	"spreadwatch/internal/model"
)

// ExchangeClient defines the standard interface for all exchange clients.
type ExchangeClient interface {
	Name() string
	// StartStream feeds price ticks for one instrument into the channel
	// until the context is cancelled, reconnecting on failures.
	StartStream(ctx context.Context, ticks chan<- model.PriceTick, instrument string) error
}
