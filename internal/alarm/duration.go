package alarm

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var triggerPattern = regexp.MustCompile(`^-?P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?)?$`)

// ErrTrigger is returned by ParseTrigger for values outside the trigger
// grammar.
var ErrTrigger = errors.New("alarm: malformed trigger duration")

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
	minutesPerWeek = 7 * minutesPerDay
)

// component indexes, in wire order.
const (
	compWeeks = iota
	compDays
	compHours
	compMinutes
	numComponents
)

// Duration is a decomposed TRIGGER value. Before is set for a leading "-".
type Duration struct {
	Before  bool
	Weeks   int
	Days    int
	Hours   int
	Minutes int

	present [numComponents]bool
}

// ParseTrigger decomposes a trigger of the form [-]P[nW][nD][T[nH][nM]].
func ParseTrigger(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	m := triggerPattern.FindStringSubmatch(s)
	if m == nil {
		return Duration{}, fmt.Errorf("%w: %q", ErrTrigger, s)
	}
	d := Duration{Before: strings.HasPrefix(s, "-")}
	fields := [numComponents]*int{&d.Weeks, &d.Days, &d.Hours, &d.Minutes}
	for i, f := range fields {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Duration{}, fmt.Errorf("%w: %q", ErrTrigger, s)
		}
		*f = n
		d.present[i] = true
	}
	return d, nil
}

// TotalMinutes is the signed offset from the event start in minutes,
// negative when the alarm fires before it.
func (d Duration) TotalMinutes() int {
	total := d.Weeks*minutesPerWeek + d.Days*minutesPerDay + d.Hours*minutesPerHour + d.Minutes
	if d.Before {
		return -total
	}
	return total
}

// Offset is TotalMinutes as a time.Duration.
func (d Duration) Offset() time.Duration {
	return time.Duration(d.TotalMinutes()) * time.Minute
}

// String re-encodes d, writing only the components that were present.
func (d Duration) String() string {
	var b strings.Builder
	if d.Before {
		b.WriteByte('-')
	}
	b.WriteByte('P')
	if d.present[compWeeks] {
		b.WriteString(strconv.Itoa(d.Weeks) + "W")
	}
	if d.present[compDays] {
		b.WriteString(strconv.Itoa(d.Days) + "D")
	}
	if d.present[compHours] || d.present[compMinutes] {
		b.WriteByte('T')
		if d.present[compHours] {
			b.WriteString(strconv.Itoa(d.Hours) + "H")
		}
		if d.present[compMinutes] {
			b.WriteString(strconv.Itoa(d.Minutes) + "M")
		}
	}
	return b.String()
}

// Minutes converts a trigger to signed minutes. Unparseable input yields
// 0; callers that need to tell the two apart use ParseTrigger.
func Minutes(trigger string) int {
	if trigger == TriggerAtTime {
		return 0
	}
	d, err := ParseTrigger(trigger)
	if err != nil {
		return 0
	}
	return d.TotalMinutes()
}

// FromMinutes builds a trigger that fires the given number of minutes
// before the event, using the coarsest unit that divides it evenly. Weeks
// and days are never combined. Non-positive input means at time of event.
func FromMinutes(minutes int) string {
	switch {
	case minutes <= 0:
		return TriggerAtTime
	case minutes%minutesPerWeek == 0:
		return fmt.Sprintf("-P%dW", minutes/minutesPerWeek)
	case minutes%minutesPerDay == 0:
		return fmt.Sprintf("-P%dD", minutes/minutesPerDay)
	case minutes >= minutesPerHour:
		s := fmt.Sprintf("-PT%dH", minutes/minutesPerHour)
		if rest := minutes % minutesPerHour; rest > 0 {
			s += fmt.Sprintf("%dM", rest)
		}
		return s
	default:
		return fmt.Sprintf("-PT%dM", minutes)
	}
}
