package utils

import (
	"fmt"
	"regexp"
	"time"

	"petpulse/src/config"
)

var dateISOPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// MinutesToLabel converts a minute offset from midnight to a 12-hour
// "hh:mm AM/PM" label. Offsets outside 0-1439 are rejected.
func MinutesToLabel(minutes int) (string, error) {
	if minutes < 0 || minutes > 1439 {
		return "", fmt.Errorf("minute offset out of range: %d", minutes)
	}
	h := minutes / 60
	m := minutes % 60
	h12 := ((h + 11) % 12) + 1
	ampm := "AM"
	if h >= 12 {
		ampm = "PM"
	}
	return fmt.Sprintf("%02d:%02d %s", h12, m, ampm), nil
}

// IsValidDateISO reports whether s is a YYYY-MM-DD string naming a real
// calendar date.
func IsValidDateISO(s string) bool {
	if !dateISOPattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(config.DATE_ISO_FORMAT, s)
	return err == nil
}

// IntervalsOverlap tests two half-open minute intervals. Touching endpoints
// do not count as overlap.
func IntervalsOverlap(startA, endA, startB, endB int) bool {
	return startA < endB && startB < endA
}
