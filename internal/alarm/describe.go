package alarm

import (
	"fmt"
	"strings"
)

// Locale holds the labels used by Describe.
type Locale struct {
	// Named maps the named trigger values to fixed phrases.
	Named map[string]string

	// Units are the singular and plural unit names in week, day, hour,
	// minute order.
	Units [numComponents][2]string
	Sep   string

	Before string // format for a negative duration
	After  string // format for a zero or positive duration
}

var Chinese = Locale{
	Named: map[string]string{
		TriggerAtTime: "准时",
		Trigger5Min:   "提前5分钟",
		Trigger15Min:  "提前15分钟",
		Trigger30Min:  "提前30分钟",
		Trigger1Hour:  "提前1小时",
		Trigger2Hours: "提前2小时",
		Trigger1Day:   "提前1天",
		Trigger2Days:  "提前2天",
		Trigger1Week:  "提前1周",
	},
	Units: [numComponents][2]string{
		{"周", "周"},
		{"天", "天"},
		{"小时", "小时"},
		{"分钟", "分钟"},
	},
	Before: "提前%s",
	After:  "%s后",
}

var English = Locale{
	Named: map[string]string{
		TriggerAtTime: "At time of event",
	},
	Units: [numComponents][2]string{
		{" week", " weeks"},
		{" day", " days"},
		{" hour", " hours"},
		{" minute", " minutes"},
	},
	Sep:    " ",
	Before: "%s before",
	After:  "%s after",
}

// LocaleFor maps a config locale ("zh", "en") to its labels.
func LocaleFor(name string) Locale {
	if strings.HasPrefix(strings.ToLower(name), "en") {
		return English
	}
	return Chinese
}

// Describe renders a trigger as Chinese text.
func Describe(trigger string) string {
	return Chinese.Describe(trigger)
}

// Describe renders a trigger: the named table first, then the duration
// grammar, then the raw value.
func (l Locale) Describe(trigger string) string {
	if s, ok := l.Named[trigger]; ok {
		return s
	}
	d, err := ParseTrigger(trigger)
	if err != nil {
		return trigger
	}

	values := [numComponents]int{d.Weeks, d.Days, d.Hours, d.Minutes}
	var parts []string
	for i, n := range values {
		if !d.present[i] {
			continue
		}
		unit := l.Units[i][1]
		if n == 1 {
			unit = l.Units[i][0]
		}
		parts = append(parts, fmt.Sprintf("%d%s", n, unit))
	}
	if len(parts) == 0 {
		return trigger
	}

	format := l.After
	if d.Before {
		format = l.Before
	}
	return fmt.Sprintf(format, strings.Join(parts, l.Sep))
}
