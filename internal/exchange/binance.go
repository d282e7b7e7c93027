package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"spreadwatch/internal/model"
)

// BinanceClient implements the ExchangeClient interface for Binance.
type BinanceClient struct {
	logger *slog.Logger
}

// NewBinanceClient creates a new BinanceClient.
func NewBinanceClient(logger *slog.Logger) *BinanceClient {
	return &BinanceClient{logger: logger}
}

func (b *BinanceClient) Name() string {
	return "binance"
}

// binanceSymbol turns "BTC/EUR" into the stream symbol "btceur".
func binanceSymbol(instrument string) string {
	return strings.ToLower(strings.ReplaceAll(instrument, "/", ""))
}

// StartStream connects to the Binance WebSocket API and streams ticker
// updates for the instrument, reconnecting with capped exponential backoff.
func (b *BinanceClient) StartStream(ctx context.Context, ticks chan<- model.PriceTick, instrument string) error {
	wsURL := fmt.Sprintf("wss://stream.binance.com:9443/ws/%s@ticker", binanceSymbol(instrument))
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("BinanceClient: context cancelled, shutting down")
			return nil
		default:
		}

		b.logger.Info("BinanceClient: connecting to WebSocket", "url", wsURL, "backoff", backoff)
		c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			b.logger.Error("BinanceClient: WebSocket connection failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff = nextBackoff(backoff)
			}
			continue
		}

		backoff = time.Second
		b.logger.Info("BinanceClient: connected successfully")

		if err := b.readLoop(ctx, c, ticks, instrument); err != nil {
			b.logger.Error("BinanceClient: stream ended", "error", err)
		}
		c.Close()

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (b *BinanceClient) readLoop(ctx context.Context, c *websocket.Conn, ticks chan<- model.PriceTick, instrument string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, message, err := c.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		tick, ok, err := parseBinanceTicker(message, instrument)
		if err != nil {
			b.logger.Warn("BinanceClient: failed to parse message", "error", err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case ticks <- tick:
			b.logger.Debug("BinanceClient: sent price tick", "bid", tick.Bid.String(), "ask", tick.Ask.String())
		case <-ctx.Done():
			return nil
		}
	}
}

// parseBinanceTicker extracts bid and ask from a Binance 24h-ticker payload.
// ok is false for payloads without both prices (non-ticker events).
func parseBinanceTicker(message []byte, instrument string) (model.PriceTick, bool, error) {
	var payload struct {
		Bid string `json:"b"`
		Ask string `json:"a"`
	}
	if err := json.Unmarshal(message, &payload); err != nil {
		return model.PriceTick{}, false, err
	}
	if payload.Bid == "" || payload.Ask == "" {
		return model.PriceTick{}, false, nil
	}

	bid, err := decimal.NewFromString(payload.Bid)
	if err != nil {
		return model.PriceTick{}, false, fmt.Errorf("parse bid %q: %w", payload.Bid, err)
	}
	ask, err := decimal.NewFromString(payload.Ask)
	if err != nil {
		return model.PriceTick{}, false, fmt.Errorf("parse ask %q: %w", payload.Ask, err)
	}

	return model.PriceTick{
		Exchange:   "binance",
		Instrument: instrument,
		Bid:        bid,
		Ask:        ask,
		Received:   time.Now(),
	}, true, nil
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > 16*time.Second {
		next = 16 * time.Second
	}
	return next
}
