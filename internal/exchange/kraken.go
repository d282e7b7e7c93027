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

// KrakenClient implements the ExchangeClient interface for Kraken.
type KrakenClient struct {
	logger *slog.Logger
}

// NewKrakenClient creates a new KrakenClient.
func NewKrakenClient(logger *slog.Logger) *KrakenClient {
	return &KrakenClient{logger: logger}
}

func (k *KrakenClient) Name() string {
	return "kraken"
}

// krakenSymbol turns "BTC/EUR" into Kraken's pair name "XBT/EUR".
func krakenSymbol(instrument string) string {
	return strings.ReplaceAll(instrument, "BTC", "XBT")
}

// StartStream connects to the Kraken WebSocket API and streams ticker
// updates for the instrument, reconnecting with capped exponential backoff.
func (k *KrakenClient) StartStream(ctx context.Context, ticks chan<- model.PriceTick, instrument string) error {
	const wsURL = "wss://ws.kraken.com"
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			k.logger.Info("KrakenClient: context cancelled, shutting down")
			return nil
		default:
		}

		k.logger.Info("KrakenClient: connecting to WebSocket", "url", wsURL, "backoff", backoff)
		c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			k.logger.Error("KrakenClient: WebSocket connection failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff = nextBackoff(backoff)
			}
			continue
		}

		backoff = time.Second

		subscription := map[string]interface{}{
			"event": "subscribe",
			"pair":  []string{krakenSymbol(instrument)},
			"subscription": map[string]string{
				"name": "ticker",
			},
		}
		if err := c.WriteJSON(subscription); err != nil {
			k.logger.Error("KrakenClient: failed to send subscription", "error", err)
			c.Close()
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff = nextBackoff(backoff)
			}
			continue
		}
		k.logger.Info("KrakenClient: subscription sent successfully")

		if err := k.readLoop(ctx, c, ticks, instrument); err != nil {
			k.logger.Error("KrakenClient: stream ended", "error", err)
		}
		c.Close()

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (k *KrakenClient) readLoop(ctx context.Context, c *websocket.Conn, ticks chan<- model.PriceTick, instrument string) error {
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

		tick, ok, err := parseKrakenTicker(message, instrument)
		if err != nil {
			k.logger.Warn("KrakenClient: failed to parse message", "error", err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case ticks <- tick:
			k.logger.Debug("KrakenClient: sent price tick", "bid", tick.Bid.String(), "ask", tick.Ask.String())
		case <-ctx.Done():
			return nil
		}
	}
}

// parseKrakenTicker extracts bid and ask from a Kraken ticker update. Ticker
// updates arrive as [channelID, tickerData, channelName, pair]; event
// messages (heartbeats, subscription status) are JSON objects and are
// skipped with ok=false.
func parseKrakenTicker(message []byte, instrument string) (model.PriceTick, bool, error) {
	var frame []json.RawMessage
	if err := json.Unmarshal(message, &frame); err != nil {
		// Not an array, so an event message.
		return model.PriceTick{}, false, nil
	}
	if len(frame) < 2 {
		return model.PriceTick{}, false, nil
	}

	var tickerData struct {
		Bid []string `json:"b"`
		Ask []string `json:"a"`
	}
	if err := json.Unmarshal(frame[1], &tickerData); err != nil {
		return model.PriceTick{}, false, err
	}
	if len(tickerData.Bid) == 0 || len(tickerData.Ask) == 0 {
		return model.PriceTick{}, false, nil
	}

	bid, err := decimal.NewFromString(tickerData.Bid[0])
	if err != nil {
		return model.PriceTick{}, false, fmt.Errorf("parse bid %q: %w", tickerData.Bid[0], err)
	}
	ask, err := decimal.NewFromString(tickerData.Ask[0])
	if err != nil {
		return model.PriceTick{}, false, fmt.Errorf("parse ask %q: %w", tickerData.Ask[0], err)
	}

	return model.PriceTick{
		Exchange:   "kraken",
		Instrument: instrument,
		Bid:        bid,
		Ask:        ask,
		Received:   time.Now(),
	}, true, nil
}
