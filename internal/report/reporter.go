// Package report periodically writes the water-mark summary to the
// operational log.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spreadwatch/internal/spread"
)

// Reporter logs the tracker's water-mark summary once a day at a configured
// wall-clock time. The tracker stays pull-based; the timer lives here.
type Reporter struct {
	logger  *slog.Logger
	tracker *spread.Tracker
	hour    int
	minute  int
}

// NewReporter creates a Reporter. at is a wall-clock time in "15:04" format.
func NewReporter(logger *slog.Logger, tracker *spread.Tracker, at string) (*Reporter, error) {
	parsed, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("invalid summary time %q: %w", at, err)
	}

	return &Reporter{
		logger:  logger,
		tracker: tracker,
		hour:    parsed.Hour(),
		minute:  parsed.Minute(),
	}, nil
}

// Run blocks until the context is cancelled, logging the summary at each
// scheduled occurrence.
func (r *Reporter) Run(ctx context.Context) {
	for {
		next := nextOccurrence(time.Now(), r.hour, r.minute)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("Reporter shutting down")
			return
		case <-timer.C:
			r.logger.Info("Daily spread water marks", "summary", r.tracker.Summary())
		}
	}
}

// nextOccurrence returns the first time strictly after now with the given
// wall-clock hour and minute, in now's location.
func nextOccurrence(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
