package clock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"freecal/internal/clock"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		minutes int
		ok      bool
	}{
		{"0:00", 0, true},
		{"9:00", 540, true},
		{"09:00", 540, true},
		{"9:15", 555, true},
		{"14:00", 840, true},
		{"23:59", 1439, true},
		{"", 0, false},
		{"none", 0, false},
		{"24:00", 0, false},
		{"9:60", 0, false},
		{"9:5", 0, false},
		{"130:00", 0, false},
		{"-9:00", 0, false},
		{"+9:00", 0, false},
		{" 9:00", 0, false},
		{"9:00 ", 0, false},
		{"9.00", 0, false},
		{"9:0a", 0, false},
		{":30", 0, false},
		{"9:", 0, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := clock.Parse(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.minutes, got)
			}
		})
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	assert.True(t, clock.Valid("7:45"))
	assert.False(t, clock.Valid("7:65"))
}

func TestFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0:00", clock.Format(0))
	assert.Equal(t, "9:00", clock.Format(540))
	assert.Equal(t, "9:15", clock.Format(555))
	assert.Equal(t, "13:05", clock.Format(785))
	assert.Equal(t, "24:00", clock.Format(1440))
}
