// Package freetime computes the uncovered minute ranges of each weekday
// from a resolved day schedule. This is the calculator half of the core.
package freetime

import (
	"sort"

	"freecal/internal/clock"
	"freecal/internal/model"
)

// Compute derives the free intervals for every weekday. The schedule is
// read-only here; per-day sorting happens on copies.
//
// Per day:
//   - entries are stable-sorted by start minute; entries whose start is
//     absent or not clock text sort first and keep their relative order
//   - a walk tracks previousEnd (starting at 0): entries without a numeric
//     start are skipped outright; a numeric start beyond previousEnd emits
//     the gap; previousEnd is then overwritten with the entry's end (or its
//     start when the end is absent, a zero-duration "due at" marker)
//   - whatever remains before midnight becomes a trailing interval
//
// previousEnd is overwritten, not max-combined: an event nested inside a
// longer one pulls previousEnd back and can surface minutes that are in
// fact covered. That matches the tool's established output and stays until
// the behavior is deliberately revisited.
func Compute(s *model.DaySchedule) *model.WeekFree {
	free := model.NewWeekFree()
	for d := model.Monday; d <= model.Sunday; d++ {
		free.Set(d, dayGaps(s.Entries(d)))
	}
	return free
}

// keyedEntry pairs an entry with its decomposed start minute; -1 marks an
// absent or malformed start.
type keyedEntry struct {
	start int
	entry model.ScheduledEntry
}

// dayGaps runs the gap walk for a single day's entries.
func dayGaps(entries []model.ScheduledEntry) []model.FreeInterval {
	keyed := make([]keyedEntry, 0, len(entries))
	for _, e := range entries {
		k := keyedEntry{start: -1, entry: e}
		if m, ok := clock.Parse(e.Start); ok {
			k.start = m
		}
		keyed = append(keyed, k)
	}
	sort.SliceStable(keyed, func(i, j int) bool { return keyed[i].start < keyed[j].start })

	out := make([]model.FreeInterval, 0, len(entries)+1)
	prevEnd := 0

	for _, k := range keyed {
		if k.start < 0 {
			// No usable start: contributes no gap and does not advance
			// previousEnd.
			continue
		}
		if k.start > prevEnd {
			out = append(out, model.FreeInterval{Start: prevEnd, End: k.start})
		}
		end, ok := clock.Parse(k.entry.End)
		if !ok {
			end = k.start
		}
		prevEnd = end
	}

	if prevEnd < model.MinutesPerDay {
		out = append(out, model.FreeInterval{Start: prevEnd, End: model.MinutesPerDay})
	}
	return out
}
