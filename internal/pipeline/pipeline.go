// Package pipeline runs the full read-resolve-compute pass over the
// configured event source and carries the outcome to the render, export,
// and web layers.
package pipeline

import (
	"context"
	"time"

	"freecal/internal/config"
	"freecal/internal/freetime"
	appLog "freecal/internal/log"
	"freecal/internal/model"
	"freecal/internal/schedule"
	"freecal/internal/tabular"
)

// Result is one complete pass over the input source.
type Result struct {
	Schedule *model.DaySchedule
	Free     *model.WeekFree

	// Dropped and Malformed carry the resolver diagnostics; resolution
	// itself never fails on them.
	Dropped   []schedule.DroppedToken
	Malformed []schedule.MalformedTime

	Source      string
	EventCount  int
	GeneratedAt time.Time
}

// Run loads the input source and produces a fresh Result. The only error
// path is the input collaborator; everything downstream is total.
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	events, err := tabular.Load(ctx, cfg.Input, cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	resolved := schedule.Resolve(events)
	free := freetime.Compute(resolved.Schedule)

	for _, d := range resolved.DroppedTokens {
		appLog.Debug("weekday token dropped", "event", d.Event, "token", d.Token)
	}
	for _, m := range resolved.MalformedTimes {
		appLog.Debug("time part malformed", "event", m.Event, "part", m.Part)
	}
	if n := len(resolved.DroppedTokens); n > 0 {
		appLog.Info("some weekday tokens were dropped", "count", n)
	}
	if n := len(resolved.MalformedTimes); n > 0 {
		appLog.Info("some time parts were malformed", "count", n)
	}

	res := &Result{
		Schedule:    resolved.Schedule,
		Free:        free,
		Dropped:     resolved.DroppedTokens,
		Malformed:   resolved.MalformedTimes,
		Source:      cfg.Input,
		EventCount:  len(events),
		GeneratedAt: time.Now().UTC(),
	}

	appLog.Info("pipeline completed",
		"events", res.EventCount,
		"entries", res.Schedule.Len(),
		"dropped_tokens", len(res.Dropped),
		"malformed_times", len(res.Malformed),
	)
	return res, nil
}
