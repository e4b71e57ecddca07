// Package rrule builds, parses and describes RFC 5545 recurrence rules and
// expands them into occurrence times.
package rrule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/mo"
)

// Freq is the RRULE FREQ value.
type Freq string

const (
	Daily   Freq = "DAILY"
	Weekly  Freq = "WEEKLY"
	Monthly Freq = "MONTHLY"
	Yearly  Freq = "YEARLY"
)

// Weekday is a BYDAY code. Ordinal forms such as "1MO" or "-1FR" are kept
// verbatim.
type Weekday string

const (
	SU Weekday = "SU"
	MO Weekday = "MO"
	TU Weekday = "TU"
	WE Weekday = "WE"
	TH Weekday = "TH"
	FR Weekday = "FR"
	SA Weekday = "SA"
)

// Weekdays lists the codes in RFC order starting with Sunday.
var Weekdays = []Weekday{SU, MO, TU, WE, TH, FR, SA}

// Rule is a recurrence rule descriptor. Count and Until are mutually
// exclusive; when both are set Build keeps Count.
type Rule struct {
	Freq       Freq
	Interval   int // 0 and 1 both mean every period
	Count      mo.Option[int]
	Until      mo.Option[string]
	ByDay      []Weekday
	ByMonthDay mo.Option[int]
}

var (
	ErrMissingFreq   = errors.New("rrule: FREQ is required")
	ErrUnknownFreq   = errors.New("rrule: unsupported FREQ")
	ErrInterval      = errors.New("rrule: INTERVAL must be >= 1")
	ErrCountAndUntil = errors.New("rrule: COUNT and UNTIL are mutually exclusive")
	ErrCount         = errors.New("rrule: COUNT must be >= 1")
	ErrByMonthDay    = errors.New("rrule: BYMONTHDAY must be within 1-31")
	ErrWeekday       = errors.New("rrule: unknown BYDAY code")
)

// Build serializes r. It returns "" when Freq is empty. INTERVAL is only
// written when greater than 1 and at most one of COUNT/UNTIL is written,
// COUNT first.
func Build(r Rule) string {
	if r.Freq == "" {
		return ""
	}
	parts := []string{"FREQ=" + string(r.Freq)}
	if r.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(r.Interval))
	}
	if c, ok := r.Count.Get(); ok && c > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(c))
	} else if u, ok := r.Until.Get(); ok && u != "" {
		parts = append(parts, "UNTIL="+u)
	}
	if len(r.ByDay) > 0 {
		days := make([]string, len(r.ByDay))
		for i, d := range r.ByDay {
			days[i] = string(d)
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	if d, ok := r.ByMonthDay.Get(); ok && d != 0 {
		parts = append(parts, "BYMONTHDAY="+strconv.Itoa(d))
	}
	return strings.Join(parts, ";")
}

// String is Build(r).
func (r Rule) String() string {
	return Build(r)
}

// Parse reads an RRULE value ("FREQ=WEEKLY;BYDAY=MO", with or without the
// "RRULE:" prefix). It returns false only for empty input; unknown keys
// and non-numeric numbers are skipped.
func Parse(s string) (Rule, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= 6 && strings.EqualFold(s[:6], "RRULE:") {
		s = s[6:]
	}
	if s == "" {
		return Rule{}, false
	}

	var r Rule
	for _, part := range strings.Split(s, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "FREQ":
			r.Freq = Freq(strings.ToUpper(value))
		case "INTERVAL":
			if n, err := strconv.Atoi(value); err == nil {
				r.Interval = n
			}
		case "COUNT":
			if n, err := strconv.Atoi(value); err == nil {
				r.Count = mo.Some(n)
			}
		case "UNTIL":
			if value != "" {
				r.Until = mo.Some(value)
			}
		case "BYDAY":
			for _, d := range strings.Split(value, ",") {
				if d = strings.ToUpper(strings.TrimSpace(d)); d != "" {
					r.ByDay = append(r.ByDay, Weekday(d))
				}
			}
		case "BYMONTHDAY":
			if n, err := strconv.Atoi(value); err == nil {
				r.ByMonthDay = mo.Some(n)
			}
		}
	}
	return r, true
}

// EffectiveInterval returns the interval with the implicit default of 1.
func (r Rule) EffectiveInterval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

// Validate reports every problem with r. A rule with both COUNT and UNTIL
// is reported even though Build resolves it.
func (r Rule) Validate() error {
	var errs []error
	switch r.Freq {
	case "":
		errs = append(errs, ErrMissingFreq)
	case Daily, Weekly, Monthly, Yearly:
	default:
		errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownFreq, r.Freq))
	}
	if r.Interval < 0 {
		errs = append(errs, ErrInterval)
	}
	if r.Count.IsPresent() && r.Until.IsPresent() {
		errs = append(errs, ErrCountAndUntil)
	}
	if c, ok := r.Count.Get(); ok && c < 1 {
		errs = append(errs, ErrCount)
	}
	if d, ok := r.ByMonthDay.Get(); ok && (d < 1 || d > 31) {
		errs = append(errs, ErrByMonthDay)
	}
	for _, d := range r.ByDay {
		if !validWeekday(d) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrWeekday, d))
		}
	}
	return errors.Join(errs...)
}

// validWeekday accepts a plain code or one with a signed ordinal prefix.
func validWeekday(d Weekday) bool {
	s := string(d)
	if len(s) < 2 {
		return false
	}
	code, ordinal := Weekday(s[len(s)-2:]), s[:len(s)-2]
	known := false
	for _, w := range Weekdays {
		if w == code {
			known = true
			break
		}
	}
	if !known {
		return false
	}
	if ordinal == "" {
		return true
	}
	n, err := strconv.Atoi(ordinal)
	return err == nil && n != 0 && n >= -53 && n <= 53
}
