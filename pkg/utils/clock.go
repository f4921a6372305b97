package utils

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidTimeFormat is returned when a time-of-day string is not HH:MM 24h.
var ErrInvalidTimeFormat = errors.New("invalid time format, expected HH:MM")

var timeOfDayPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

const (
	MinutesPerHour = 60
	MinutesPerDay  = 24 * 60

	// SlotStrideMinutes is the fixed step between candidate slot starts.
	SlotStrideMinutes = 30
)

// TimeToMinutes parses a 24-hour HH:MM string into minutes since midnight.
func TimeToMinutes(value string) (int, error) {
	match := timeOfDayPattern.FindStringSubmatch(value)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
	}

	var hours, minutes int
	fmt.Sscanf(match[1], "%d", &hours)
	fmt.Sscanf(match[2], "%d", &minutes)

	return hours*MinutesPerHour + minutes, nil
}

// MinutesToTime formats minutes since midnight as zero-padded HH:MM.
// Values outside [0, 1439] are clamped into range.
func MinutesToTime(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes >= MinutesPerDay {
		minutes = MinutesPerDay - 1
	}

	return fmt.Sprintf("%02d:%02d", minutes/MinutesPerHour, minutes%MinutesPerHour)
}

// IntervalsOverlap reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. This is the single overlap predicate shared by the
// availability resolver and the booking conflict check.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}
