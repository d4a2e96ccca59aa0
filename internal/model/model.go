package model

import "time"

// MinutesPerDay is the exclusive upper bound for minute-of-day values.
// Free intervals are half-open minute ranges within [0, MinutesPerDay).
const MinutesPerDay = 1440

// Weekday identifies one of the seven canonical weekdays. The canonical
// order is Monday..Sunday (0..6); display order may differ (config
// week_start) but storage and iteration always use the canonical order.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday

	// NumWeekdays is the number of day buckets in a DaySchedule.
	NumWeekdays = 7
)

// weekdayNames is indexed by Weekday and fixed at the canonical names.
var weekdayNames = [NumWeekdays]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

func (w Weekday) String() string {
	if w < Monday || w > Sunday {
		return "Weekday(?)"
	}
	return weekdayNames[w]
}

// ParseWeekday matches s against the canonical weekday names. The match is
// exact and case-sensitive: "monday" is not a weekday. This is a closed
// switch on purpose; there is no runtime-extensible day registry.
func ParseWeekday(s string) (Weekday, bool) {
	switch s {
	case "Monday":
		return Monday, true
	case "Tuesday":
		return Tuesday, true
	case "Wednesday":
		return Wednesday, true
	case "Thursday":
		return Thursday, true
	case "Friday":
		return Friday, true
	case "Saturday":
		return Saturday, true
	case "Sunday":
		return Sunday, true
	default:
		return 0, false
	}
}

// FromTimeWeekday converts a time.Weekday (Sunday=0) into the canonical
// Monday-first Weekday.
func FromTimeWeekday(t time.Weekday) Weekday {
	if t == time.Sunday {
		return Sunday
	}
	return Weekday(int(t) - 1)
}

// RawEvent is one record as supplied by the input collaborator. All fields
// arrive as strings except Repeats, which the reader has already coerced.
type RawEvent struct {
	// Name is the event label, shown verbatim in reports.
	Name string
	// WeekdaySpec is a comma-separated token list; each token is either a
	// canonical weekday name or a bare day-month date like "15-Mar".
	WeekdaySpec string
	// TimeSpec is "start-end", a single "start", or empty/"none".
	TimeSpec string
	// EventType is a free-form category label (e.g. "meeting", "assignment").
	EventType string
	// Repeats marks the event as recurring weekly. The core never expands
	// this; it only flows through to rendering and export.
	Repeats bool
}

// ScheduledEntry is one event occurrence placed in a weekday bucket.
//
// Start and End hold the verbatim clock text ("H:MM" / "HH:MM", 24-hour);
// the empty string encodes an absent value, rendered downstream as the
// literal label "due at". Numeric decomposition into minutes happens in the
// free-time calculator, not here.
type ScheduledEntry struct {
	Name      string
	Start     string
	End       string
	EventType string
	Repeats   bool
}

// HasStart reports whether the entry carries a start clock value.
func (e ScheduledEntry) HasStart() bool { return e.Start != "" }

// HasEnd reports whether the entry carries an end clock value.
func (e ScheduledEntry) HasEnd() bool { return e.End != "" }

// DaySchedule maps each canonical weekday to its scheduled entries. All
// seven buckets exist from construction, even when empty. The resolver is
// the only writer; afterwards the schedule is read-only.
type DaySchedule struct {
	days [NumWeekdays][]ScheduledEntry
}

// NewDaySchedule returns a schedule with all seven buckets initialized
// (empty, non-nil).
func NewDaySchedule() *DaySchedule {
	s := &DaySchedule{}
	for i := range s.days {
		s.days[i] = []ScheduledEntry{}
	}
	return s
}

// Append adds an entry to the given weekday's bucket. Out-of-range weekdays
// are ignored; resolution already guarantees the range.
func (s *DaySchedule) Append(w Weekday, e ScheduledEntry) {
	if w < Monday || w > Sunday {
		return
	}
	s.days[w] = append(s.days[w], e)
}

// Entries returns the bucket for the given weekday in insertion order.
// Callers must not mutate the returned slice.
func (s *DaySchedule) Entries(w Weekday) []ScheduledEntry {
	if w < Monday || w > Sunday {
		return nil
	}
	return s.days[w]
}

// Len reports the total number of entries across all buckets.
func (s *DaySchedule) Len() int {
	n := 0
	for i := range s.days {
		n += len(s.days[i])
	}
	return n
}

// FreeInterval is an uncovered half-open minute range [Start, End) within a
// single day; Start < End and End <= MinutesPerDay.
type FreeInterval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// WeekFree holds the computed free intervals for each canonical weekday.
type WeekFree struct {
	days [NumWeekdays][]FreeInterval
}

// NewWeekFree returns a WeekFree with all seven day slots initialized
// (empty, non-nil).
func NewWeekFree() *WeekFree {
	f := &WeekFree{}
	for i := range f.days {
		f.days[i] = []FreeInterval{}
	}
	return f
}

// Set replaces the free intervals for the given weekday.
func (f *WeekFree) Set(w Weekday, intervals []FreeInterval) {
	if w < Monday || w > Sunday {
		return
	}
	f.days[w] = intervals
}

// For returns the free intervals for the given weekday.
func (f *WeekFree) For(w Weekday) []FreeInterval {
	if w < Monday || w > Sunday {
		return nil
	}
	return f.days[w]
}
