// Package clock converts between the input's "H:MM" / "HH:MM" 24-hour clock
// text and minutes since midnight. No timezone, no AM/PM, no seconds.
package clock

import "fmt"

// Parse decomposes clock text into minutes since midnight. It accepts one
// or two hour digits and exactly two minute digits, hours 0..23 and minutes
// 0..59. Anything else (signs, spaces, "24:00", "9:5") fails.
func Parse(s string) (int, bool) {
	colon := -1
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			colon = i
			break
		}
	}
	if colon < 1 || colon > 2 || len(s) != colon+3 {
		return 0, false
	}
	h, ok := digits(s[:colon])
	if !ok || h > 23 {
		return 0, false
	}
	m, ok := digits(s[colon+1:])
	if !ok || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// Valid reports whether s parses as clock text.
func Valid(s string) bool {
	_, ok := Parse(s)
	return ok
}

// Format renders minutes since midnight as "H:MM" without a leading zero on
// the hour, matching the input style. The day bound 1440 renders as "24:00".
func Format(minutes int) string {
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}

// digits parses an unsigned decimal string with no sign or spaces.
func digits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
