// Package scheduler triggers collection passes on a fixed cadence
// using a cancellable timer loop. The next-run computation is a pure
// function of the current time.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/kurihiro0119/github-contributor-stats/internal/errors"
)

// Interval is the collection cadence
type Interval string

const (
	Hourly Interval = "hourly"
	Daily  Interval = "daily"
	Weekly Interval = "weekly"
)

// Scheduler runs a task on a fixed schedule. Passes never overlap:
// the next timer is armed only after the task returns.
type Scheduler struct {
	interval Interval
	hour     int
	minute   int
	task     func(context.Context)
	now      func() time.Time
}

// New creates a scheduler that runs task per the interval and "HH:MM"
// time of day. For hourly intervals only the minutes are used; weekly
// runs fire on Mondays.
func New(interval Interval, at string, task func(context.Context)) (*Scheduler, error) {
	parsed, err := time.Parse("15:04", at)
	if err != nil {
		return nil, apperrors.NewConfigError("COLLECTION_TIME", "must be in HH:MM format")
	}

	switch interval {
	case Hourly, Daily, Weekly:
	default:
		return nil, apperrors.NewConfigError("COLLECTION_INTERVAL", "must be 'hourly', 'daily' or 'weekly'")
	}

	return &Scheduler{
		interval: interval,
		hour:     parsed.Hour(),
		minute:   parsed.Minute(),
		task:     task,
		now:      time.Now,
	}, nil
}

// Next returns the first scheduled run time strictly after from
func (s *Scheduler) Next(from time.Time) time.Time {
	switch s.interval {
	case Hourly:
		next := time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), s.minute, 0, 0, from.Location())
		if !next.After(from) {
			next = next.Add(time.Hour)
		}
		return next

	case Weekly:
		next := time.Date(from.Year(), from.Month(), from.Day(), s.hour, s.minute, 0, 0, from.Location())
		for next.Weekday() != time.Monday || !next.After(from) {
			next = next.AddDate(0, 0, 1)
		}
		return next

	default: // Daily
		next := time.Date(from.Year(), from.Month(), from.Day(), s.hour, s.minute, 0, 0, from.Location())
		if !next.After(from) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}

// Start runs the schedule until the context is canceled
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("scheduler started", "interval", string(s.interval),
		"at", time.Date(0, 1, 1, s.hour, s.minute, 0, 0, time.UTC).Format("15:04"))

	for {
		next := s.Next(s.now())
		slog.Info("next collection scheduled", "at", next)

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("scheduler stopped")
			return
		case <-timer.C:
			s.task(ctx)
		}
	}
}
