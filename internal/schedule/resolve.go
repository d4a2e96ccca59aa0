// Package schedule turns raw event records into day-bucketed,
// time-normalized entries. This is the resolver half of the core; free-gap
// computation lives in internal/freetime.
package schedule

import (
	"strings"
	"time"

	"freecal/internal/clock"
	"freecal/internal/model"
)

// referenceYear anchors bare day-month tokens like "15-Mar" to a concrete
// weekday. 2025 is non-leap, so "29-Feb" fails the date path instead of
// resolving to some arbitrary day. Changing this constant changes which
// weekday every date token maps to.
const referenceYear = "2025"

// dayMonthLayout parses tokens of the form "15-Mar" once the reference year
// has been appended. Month names use the standard abbreviations (Jan..Dec).
const dayMonthLayout = "2-Jan-2006"

// DroppedToken records one weekday token that matched neither the date form
// nor a canonical weekday name and was therefore skipped.
type DroppedToken struct {
	Event string
	Token string
}

// MalformedTime records one time substring that was not valid clock text
// and was blanked to absent. The entry itself is still created.
type MalformedTime struct {
	Event string
	Part  string
}

// Result wraps the resolved schedule together with everything the
// permissive policy swallowed along the way. Resolution never fails; callers
// that do not care about diagnostics just use Schedule.
type Result struct {
	Schedule *model.DaySchedule

	DroppedTokens  []DroppedToken
	MalformedTimes []MalformedTime
}

// Resolve buckets each raw event onto the weekday(s) its spec names.
//
// For each token of the comma-separated weekday spec:
//   - try the day-month date form first ("15-Mar"); on success the bucket is
//     that date's weekday in the reference year
//   - otherwise the token must be an exact, case-sensitive canonical weekday
//     name; anything else is dropped and recorded
//
// The time spec is normalized once per event and shared by every bucket the
// event lands in: split on the first "-", empty or "none" parts become
// absent, parts that are not valid "H:MM" clock text are blanked to absent
// and recorded. A bad time never rejects the entry as a whole.
func Resolve(events []model.RawEvent) Result {
	res := Result{Schedule: model.NewDaySchedule()}

	for _, ev := range events {
		start, end := res.normalizeTimeSpec(ev)

		for _, token := range strings.Split(ev.WeekdaySpec, ", ") {
			day, ok := resolveToken(token)
			if !ok {
				res.DroppedTokens = append(res.DroppedTokens, DroppedToken{Event: ev.Name, Token: token})
				continue
			}
			res.Schedule.Append(day, model.ScheduledEntry{
				Name:      ev.Name,
				Start:     start,
				End:       end,
				EventType: ev.EventType,
				Repeats:   ev.Repeats,
			})
		}
	}

	return res
}

// resolveToken maps one weekday-spec token to a canonical weekday.
func resolveToken(token string) (model.Weekday, bool) {
	if d, err := time.Parse(dayMonthLayout, token+"-"+referenceYear); err == nil {
		return model.FromTimeWeekday(d.Weekday()), true
	}
	return model.ParseWeekday(token)
}

// normalizeTimeSpec splits the event's time spec into start/end clock text.
// Absent values come back as the empty string.
func (r *Result) normalizeTimeSpec(ev model.RawEvent) (start, end string) {
	spec := ev.TimeSpec

	if i := strings.Index(spec, "-"); i >= 0 {
		return r.normalizePart(ev.Name, spec[:i]), r.normalizePart(ev.Name, spec[i+1:])
	}
	return r.normalizePart(ev.Name, spec), ""
}

// normalizePart validates one side of the time spec. Empty and "none"
// (any case) are the documented no-clock markers and normalize silently;
// everything else must be valid clock text or it is blanked and recorded.
func (r *Result) normalizePart(event, part string) string {
	if part == "" || strings.EqualFold(part, "none") {
		return ""
	}
	if !clock.Valid(part) {
		r.MalformedTimes = append(r.MalformedTimes, MalformedTime{Event: event, Part: part})
		return ""
	}
	return part
}
