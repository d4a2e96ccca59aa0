// Package ics exports the resolved weekly schedule as an iCalendar feed so
// the week can be pulled into a regular calendar client.
package ics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"freecal/internal/clock"
	appLog "freecal/internal/log"
	"freecal/internal/model"
)

// ExportOptions controls which calendar week the buckets land on.
type ExportOptions struct {
	// WeekOf is any instant inside the week to export; the buckets map onto
	// the Monday-anchored calendar week containing it. Zero means now.
	WeekOf time.Time
}

// rruleDays maps canonical weekdays onto rrule BYDAY values.
var rruleDays = [model.NumWeekdays]rrule.Weekday{
	rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU,
}

// Export serializes the schedule as an iCalendar document. Each entry
// becomes one VEVENT on its weekday within the target week: timed entries
// get DTSTART/DTEND (end absent means a zero-length marker), no-time
// entries become all-day events, repeating entries carry a weekly RRULE,
// and the event type maps to CATEGORIES.
func Export(sched *model.DaySchedule, opts ExportOptions) (string, error) {
	if sched == nil {
		return "", errors.New("ics: schedule is nil")
	}

	weekOf := opts.WeekOf
	if weekOf.IsZero() {
		weekOf = time.Now()
	}
	monday := mondayOf(weekOf)

	cal := ical.NewCalendar()

	stamp := time.Now().UTC()
	for day := model.Monday; day <= model.Sunday; day++ {
		date := monday.AddDate(0, 0, int(day))

		for i, entry := range sched.Entries(day) {
			ev := cal.AddEvent(eventUID(day, i, entry.Name))
			ev.SetDtStampTime(stamp)
			ev.SetSummary(entry.Name)

			if start, ok := clock.Parse(entry.Start); ok {
				startAt := date.Add(time.Duration(start) * time.Minute)
				endAt := startAt
				if end, ok := clock.Parse(entry.End); ok {
					endAt = date.Add(time.Duration(end) * time.Minute)
				}
				ev.SetStartAt(startAt)
				ev.SetEndAt(endAt)
			} else {
				ev.SetAllDayStartAt(date)
				ev.SetAllDayEndAt(date.AddDate(0, 0, 1))
			}

			if entry.EventType != "" {
				ev.SetProperty(ical.ComponentPropertyCategories, entry.EventType)
			}
			if entry.Repeats {
				rule, err := rrule.NewRRule(rrule.ROption{
					Freq:      rrule.WEEKLY,
					Byweekday: []rrule.Weekday{rruleDays[day]},
				})
				if err != nil {
					return "", fmt.Errorf("ics: build rrule for %q: %w", entry.Name, err)
				}
				ev.SetProperty(ical.ComponentPropertyRrule, rule.String())
			}
		}
	}

	return cal.Serialize(), nil
}

// WriteFile exports the schedule to path.
func WriteFile(path string, sched *model.DaySchedule, opts ExportOptions) error {
	if path == "" {
		return errors.New("ics: output path is empty")
	}

	body, err := Export(sched, opts)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ics: create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("ics: write file: %w", err)
	}

	appLog.Info("ics export completed", "path", path, "event_count", sched.Len())
	return nil
}

// mondayOf returns midnight UTC of the Monday in the calendar week
// containing t (by t's own calendar date).
func mondayOf(t time.Time) time.Time {
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return date.AddDate(0, 0, -int(model.FromTimeWeekday(date.Weekday())))
}

// eventUID builds a stable identifier from bucket position and name so a
// re-export of the same schedule produces the same UIDs.
func eventUID(day model.Weekday, index int, name string) string {
	return fmt.Sprintf("%s-%d-%s@freecal", strings.ToLower(day.String()), index, slugify(name))
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "event"
	}
	return b.String()
}
