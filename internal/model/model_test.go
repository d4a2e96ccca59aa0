package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		want  Weekday
		ok    bool
	}{
		{"Monday", Monday, true},
		{"Tuesday", Tuesday, true},
		{"Wednesday", Wednesday, true},
		{"Thursday", Thursday, true},
		{"Friday", Friday, true},
		{"Saturday", Saturday, true},
		{"Sunday", Sunday, true},
		{"monday", 0, false},
		{"MONDAY", 0, false},
		{"Funday", 0, false},
		{"Mon", 0, false},
		{"", 0, false},
		{" Monday", 0, false},
	}
	for _, tc := range tests {
		got, ok := ParseWeekday(tc.token)
		assert.Equal(t, tc.ok, ok, "token %q", tc.token)
		if tc.ok {
			assert.Equal(t, tc.want, got, "token %q", tc.token)
		}
	}
}

func TestWeekdayString(t *testing.T) {
	t.Parallel()

	names := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	for i, want := range names {
		assert.Equal(t, want, Weekday(i).String())
	}
	assert.Equal(t, "Weekday(?)", Weekday(-1).String())
	assert.Equal(t, "Weekday(?)", Weekday(7).String())
}

func TestFromTimeWeekday(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Monday, FromTimeWeekday(time.Monday))
	assert.Equal(t, Wednesday, FromTimeWeekday(time.Wednesday))
	assert.Equal(t, Saturday, FromTimeWeekday(time.Saturday))
	assert.Equal(t, Sunday, FromTimeWeekday(time.Sunday))
}

func TestNewDayScheduleHasAllBuckets(t *testing.T) {
	t.Parallel()

	s := NewDaySchedule()
	for w := Monday; w <= Sunday; w++ {
		entries := s.Entries(w)
		require.NotNil(t, entries, "bucket %s must exist from construction", w)
		assert.Empty(t, entries)
	}
	assert.Equal(t, 0, s.Len())
}

func TestDayScheduleAppend(t *testing.T) {
	t.Parallel()

	s := NewDaySchedule()
	s.Append(Tuesday, ScheduledEntry{Name: "Standup", Start: "9:00", End: "9:15"})
	s.Append(Tuesday, ScheduledEntry{Name: "Review", Start: "14:00"})
	s.Append(Weekday(9), ScheduledEntry{Name: "lost"})

	entries := s.Entries(Tuesday)
	require.Len(t, entries, 2)
	assert.Equal(t, "Standup", entries[0].Name)
	assert.Equal(t, "Review", entries[1].Name)
	assert.Equal(t, 2, s.Len())
	assert.Nil(t, s.Entries(Weekday(9)))
}

func TestScheduledEntryClockPresence(t *testing.T) {
	t.Parallel()

	both := ScheduledEntry{Start: "9:00", End: "10:00"}
	assert.True(t, both.HasStart())
	assert.True(t, both.HasEnd())

	deadline := ScheduledEntry{End: "23:59"}
	assert.False(t, deadline.HasStart())
	assert.True(t, deadline.HasEnd())

	bare := ScheduledEntry{}
	assert.False(t, bare.HasStart())
	assert.False(t, bare.HasEnd())
}

func TestNewWeekFreeHasAllDays(t *testing.T) {
	t.Parallel()

	f := NewWeekFree()
	for w := Monday; w <= Sunday; w++ {
		require.NotNil(t, f.For(w))
		assert.Empty(t, f.For(w))
	}

	f.Set(Friday, []FreeInterval{{Start: 0, End: 1440}})
	require.Len(t, f.For(Friday), 1)
	assert.Equal(t, FreeInterval{Start: 0, End: 1440}, f.For(Friday)[0])
	assert.Nil(t, f.For(Weekday(-1)))
}
