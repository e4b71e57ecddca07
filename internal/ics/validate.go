package ics

import (
	"bytes"
	"errors"
	"fmt"

	ical "github.com/arran4/golang-ical"
)

// ErrNoCalendar is returned by Validate when the input has no VCALENDAR.
var ErrNoCalendar = errors.New("input is not an iCalendar document")

// Validate runs a strict structural parse with golang-ical and returns the
// number of VEVENTs it found. Parse is lenient and never fails; Validate
// is for callers that want to reject feeds a conforming reader would not
// accept.
func Validate(data []byte) (int, error) {
	if !bytes.Contains(data, []byte("BEGIN:VCALENDAR")) {
		return 0, ErrNoCalendar
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("strict parse: %w", err)
	}
	n := 0
	for _, ev := range cal.Events() {
		if p := ev.GetProperty(ical.ComponentPropertyUniqueId); p == nil || p.Value == "" {
			return n, fmt.Errorf("strict parse: VEVENT %d has no UID", n+1)
		}
		n++
	}
	return n, nil
}
