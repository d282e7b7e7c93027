// Package event publishes completed spread results to downstream consumers.
package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"spreadwatch/internal/model"
)

// SpreadEvent is the envelope handed to downstream consumers. One envelope
// is built per evaluation and shared by every sink, so the event id
// correlates log lines with stored rows.
type SpreadEvent struct {
	ID     uuid.UUID
	At     time.Time
	Result model.SpreadResult
}

// NewSpreadEvent wraps a result in a fresh envelope.
func NewSpreadEvent(result model.SpreadResult) SpreadEvent {
	return SpreadEvent{
		ID:     uuid.New(),
		At:     time.Now(),
		Result: result,
	}
}

// Sink receives spread events for downstream consumption. Delivery is
// fire-and-forget; a failing sink never fails an evaluation.
type Sink interface {
	Publish(ctx context.Context, ev SpreadEvent) error
}

// LogSink writes spread events to the operational log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish logs the event. It never fails.
func (s *LogSink) Publish(_ context.Context, ev SpreadEvent) error {
	s.logger.Info("Spread evaluated",
		"event_id", ev.ID.String(),
		"pair", ev.Result.Key().String(),
		"entry_spread", ev.Result.EntrySpread.String(),
		"exit_spread", ev.Result.ExitSpread.String(),
	)
	return nil
}

// Fanout publishes to every sink in order and returns the first error. A
// failing sink does not stop delivery to the remaining ones.
func Fanout(sinks ...Sink) Sink {
	return fanout(sinks)
}

type fanout []Sink

func (f fanout) Publish(ctx context.Context, ev SpreadEvent) error {
	var first error
	for _, sink := range f {
		if err := sink.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
