// Package tabular is the input collaborator: it turns the tabular event
// source (a local CSV file or a fetched remote one) into raw event records.
// All schedule semantics live elsewhere; this package only maps columns.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"freecal/internal/model"
)

// Required column headers, matched by exact name.
const (
	colName    = "Event Name"
	colWeekday = "Weekday"
	colTime    = "Time"
	colRepeats = "Repeating Weekly?"
	colType    = "Event Type"
)

// columns holds the resolved position of each required column.
type columns struct {
	name    int
	weekday int
	time    int
	repeats int
	typ     int
}

// Read decodes CSV records into raw events. The first row must be a header
// naming all required columns; a missing column is a fatal error (the one
// fatal condition of the whole intake path). Extra columns are ignored and
// short rows pad with empty cells.
func Read(r io.Reader) ([]model.RawEvent, error) {
	cr := csv.NewReader(r)
	// Rows may be ragged; missing trailing cells read as empty fields.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("tabular: input is empty, header row required")
	}
	if err != nil {
		return nil, fmt.Errorf("tabular: read header: %w", err)
	}

	cols, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	events := make([]model.RawEvent, 0)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tabular: read row: %w", err)
		}
		events = append(events, model.RawEvent{
			Name:        cell(rec, cols.name),
			WeekdaySpec: cell(rec, cols.weekday),
			TimeSpec:    cell(rec, cols.time),
			EventType:   cell(rec, cols.typ),
			Repeats:     parseRepeats(cell(rec, cols.repeats)),
		})
	}

	return events, nil
}

// ReadFile reads a local CSV file.
func ReadFile(path string) ([]model.RawEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tabular: open input: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// locateColumns maps required header names to their positions. All missing
// columns are reported together so one fix round is enough.
func locateColumns(header []string) (columns, error) {
	// Spreadsheet exports often lead with a UTF-8 BOM on the first cell.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, seen := pos[h]; !seen {
			pos[h] = i
		}
	}

	var missing []string
	lookup := func(name string) int {
		i, ok := pos[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	cols := columns{
		name:    lookup(colName),
		weekday: lookup(colWeekday),
		time:    lookup(colTime),
		repeats: lookup(colRepeats),
		typ:     lookup(colType),
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("tabular: input is missing required column(s): %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// parseRepeats coerces the "Repeating Weekly?" cell. Only clearly
// affirmative values count; everything else (including empty) is false.
func parseRepeats(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return true
	default:
		return false
	}
}
