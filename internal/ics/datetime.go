package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	layoutDate      = "20060102"
	layoutLocalTime = "20060102T150405"
	layoutUTCTime   = "20060102T150405Z"
)

// FormatDateTime formats t as a UTC DATE-TIME (YYYYMMDDTHHMMSSZ), the form
// used for DTSTAMP, CREATED and LAST-MODIFIED.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(layoutUTCTime)
}

// FormatLocalDateTime formats t as a floating DATE-TIME (YYYYMMDDTHHMMSS)
// in t's own location.
func FormatLocalDateTime(t time.Time) string {
	return t.Format(layoutLocalTime)
}

// FormatDate formats t as a DATE (YYYYMMDD).
func FormatDate(t time.Time) string {
	return t.Format(layoutDate)
}

// DateFromISO converts "YYYY-MM-DD" into "YYYYMMDD". Input that does not
// have three dash-separated parts is returned with dashes removed.
func DateFromISO(date string) string {
	return strings.ReplaceAll(strings.TrimSpace(date), "-", "")
}

// DateTimeFromParts builds a floating DATE-TIME from "YYYY-MM-DD" and
// "HH:MM". An empty clock means midnight.
func DateTimeFromParts(date, clock string) string {
	hh, mm := "00", "00"
	if clock != "" {
		parts := strings.SplitN(clock, ":", 3)
		hh = pad2(parts[0])
		if len(parts) > 1 {
			mm = pad2(parts[1])
		}
	}
	return DateFromISO(date) + "T" + hh + mm + "00"
}

func pad2(s string) string {
	s = strings.TrimSpace(s)
	switch len(s) {
	case 0:
		return "00"
	case 1:
		return "0" + s
	default:
		return s[:2]
	}
}

// SplitDateTime breaks an iCalendar DATE or DATE-TIME value into a
// "YYYY-MM-DD" date and "HH:MM" clock (empty for DATE values). It is best
// effort: short or malformed input yields whatever fields could be cut
// out, and "" for the rest.
func SplitDateTime(v string) (date, clock string) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "Z")
	if v == "" {
		return "", ""
	}
	datePart, timePart, hasTime := strings.Cut(v, "T")
	if len(datePart) >= 8 {
		date = datePart[0:4] + "-" + datePart[4:6] + "-" + datePart[6:8]
	}
	if hasTime && len(timePart) >= 4 {
		clock = timePart[0:2] + ":" + timePart[2:4]
	}
	return date, clock
}

var errEmptyDateTime = errors.New("empty date-time value")

// ParseDateTime parses a DATE, floating DATE-TIME or UTC DATE-TIME value.
// Floating values and dates are interpreted in loc (time.Local if nil).
func ParseDateTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errEmptyDateTime
	}
	if loc == nil {
		loc = time.Local
	}
	var (
		t   time.Time
		err error
	)
	switch {
	case strings.HasSuffix(v, "Z"):
		t, err = time.Parse(layoutUTCTime, v)
	case strings.Contains(v, "T"):
		t, err = time.ParseInLocation(layoutLocalTime, v, loc)
	default:
		t, err = time.ParseInLocation(layoutDate, v, loc)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date-time %q: %w", v, err)
	}
	return t, nil
}

// normalizeDateTime converts a DTSTART/DTEND wire value into the stored
// form: a trailing Z is dropped and a legacy 14-digit value without the T
// separator gets one. ok reports whether the result is a well-formed DATE
// or DATE-TIME.
func normalizeDateTime(v string) (string, bool) {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(strings.TrimSuffix(v, "Z"), "z")
	if len(v) == 14 && allDigits(v) {
		v = v[:8] + "T" + v[8:]
	}
	switch {
	case len(v) == 8:
		return v, allDigits(v)
	case len(v) == 15 && v[8] == 'T':
		return v, allDigits(v[:8]) && allDigits(v[9:])
	default:
		return v, false
	}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// dateOnly returns the YYYYMMDD prefix of a DATE or DATE-TIME value.
func dateOnly(v string) string {
	if len(v) > 8 {
		return v[:8]
	}
	return v
}
