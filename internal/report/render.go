// Package report renders the weekly schedule and free-time breakdown as a
// plain-text report, to the console (optionally colored) or to a file.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"freecal/internal/clock"
	"freecal/internal/model"
)

// Data is everything the renderer needs for one report.
type Data struct {
	Schedule *model.DaySchedule
	Free     *model.WeekFree
	// GeneratedAt stamps the report header; the zero value omits it.
	GeneratedAt time.Time
}

// Options controls presentation only, never content.
type Options struct {
	// WeekStart is the first day printed; the remaining days follow in
	// canonical order, wrapping around.
	WeekStart model.Weekday
	// Color enables ANSI colors. The color package still suppresses them
	// on non-terminal outputs.
	Color bool
}

// Render writes the full report to w.
func Render(w io.Writer, data Data, opts Options) error {
	if data.Schedule == nil {
		data.Schedule = model.NewDaySchedule()
	}
	if data.Free == nil {
		data.Free = model.NewWeekFree()
	}

	dayHeading := passthrough
	freeLine := passthrough
	if opts.Color {
		dayHeading = color.New(color.FgCyan, color.Bold).SprintFunc()
		freeLine = color.New(color.FgGreen).SprintFunc()
	}

	var b strings.Builder
	if !data.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "generated %s\n\n", data.GeneratedAt.UTC().Format(time.RFC3339))
	}

	for i, day := range DayOrder(opts.WeekStart) {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(dayHeading(day.String()))
		b.WriteString("\n")

		for _, e := range data.Schedule.Entries(day) {
			fmt.Fprintf(&b, "  %-13s  %s\n", TimeLabel(e), describe(e))
		}
		for _, iv := range data.Free.For(day) {
			b.WriteString(freeLine(fmt.Sprintf("  free: %s - %s", clock.Format(iv.Start), clock.Format(iv.End))))
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Console renders to stdout through the color-aware writer.
func Console(data Data, opts Options) error {
	return Render(color.Output, data, opts)
}

// WriteFile renders the report to path, always uncolored.
func WriteFile(path string, data Data, opts Options) error {
	if path == "" {
		return fmt.Errorf("report: output path is empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report: create output dir: %w", err)
		}
	}

	opts.Color = false
	var b strings.Builder
	if err := Render(&b, data, opts); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("report: write file: %w", err)
	}
	return nil
}

// DayOrder lists the seven weekdays starting from start, wrapping around.
func DayOrder(start model.Weekday) []model.Weekday {
	if start < 0 || start >= model.NumWeekdays {
		start = model.Monday
	}
	days := make([]model.Weekday, 0, model.NumWeekdays)
	for i := 0; i < model.NumWeekdays; i++ {
		days = append(days, model.Weekday((int(start)+i)%model.NumWeekdays))
	}
	return days
}

// TimeLabel renders an entry's time column. Entries without an end are
// zero-duration deadlines and read "due at <clock>"; entries without any
// clock value at all read the bare label "due at".
func TimeLabel(e model.ScheduledEntry) string {
	switch {
	case e.HasStart() && e.HasEnd():
		return e.Start + " - " + e.End
	case e.HasStart():
		return "due at " + e.Start
	case e.HasEnd():
		return "due at " + e.End
	default:
		return "due at"
	}
}

func describe(e model.ScheduledEntry) string {
	s := e.Name
	if e.EventType != "" {
		s += " [" + e.EventType + "]"
	}
	if e.Repeats {
		s += " (weekly)"
	}
	return s
}

func passthrough(a ...any) string {
	return fmt.Sprint(a...)
}
