package rrule

import (
	"fmt"
	"strings"
)

// Locale holds the labels used by Describe.
type Locale struct {
	None string // text for a rule that does not repeat

	Freq  map[Freq]string // label at interval 1, e.g. "每周"
	Unit  map[Freq]string // unit for "every N <unit>"
	Every string          // format with the interval and the unit

	Weekday map[Weekday]string
	DaySep  string

	CountSuffix string // format with the count
	UntilSuffix string // format with the YYYY-MM-DD until date
}

var Chinese = Locale{
	None: "不重复",
	Freq: map[Freq]string{
		Daily:   "每天",
		Weekly:  "每周",
		Monthly: "每月",
		Yearly:  "每年",
	},
	Unit: map[Freq]string{
		Daily:   "天",
		Weekly:  "周",
		Monthly: "月",
		Yearly:  "年",
	},
	Every: "每%d%s",
	Weekday: map[Weekday]string{
		MO: "周一",
		TU: "周二",
		WE: "周三",
		TH: "周四",
		FR: "周五",
		SA: "周六",
		SU: "周日",
	},
	DaySep:      "、",
	CountSuffix: "，共%d次",
	UntilSuffix: "，直到%s",
}

var English = Locale{
	None: "Does not repeat",
	Freq: map[Freq]string{
		Daily:   "Daily",
		Weekly:  "Weekly",
		Monthly: "Monthly",
		Yearly:  "Yearly",
	},
	Unit: map[Freq]string{
		Daily:   "days",
		Weekly:  "weeks",
		Monthly: "months",
		Yearly:  "years",
	},
	Every: "Every %d %s",
	Weekday: map[Weekday]string{
		MO: "Mon",
		TU: "Tue",
		WE: "Wed",
		TH: "Thu",
		FR: "Fri",
		SA: "Sat",
		SU: "Sun",
	},
	DaySep:      ", ",
	CountSuffix: ", %d times",
	UntilSuffix: ", until %s",
}

// LocaleFor maps a config locale ("zh", "en") to its labels. Anything
// other than English gets Chinese.
func LocaleFor(name string) Locale {
	if strings.HasPrefix(strings.ToLower(name), "en") {
		return English
	}
	return Chinese
}

// Describe renders an RRULE value as Chinese text.
func Describe(rule string) string {
	return Chinese.Describe(rule)
}

// Describe renders an RRULE value as text. Empty input and rules without
// FREQ read as "does not repeat".
func (l Locale) Describe(rule string) string {
	r, ok := Parse(rule)
	if !ok || r.Freq == "" {
		return l.None
	}

	desc, known := l.Freq[r.Freq]
	if !known {
		desc = string(r.Freq)
	}
	if r.Interval > 1 {
		desc = fmt.Sprintf(l.Every, r.Interval, l.Unit[r.Freq])
	}

	if len(r.ByDay) > 0 {
		days := make([]string, len(r.ByDay))
		for i, d := range r.ByDay {
			if label, ok := l.Weekday[d]; ok {
				days[i] = label
			} else {
				days[i] = string(d)
			}
		}
		desc += " (" + strings.Join(days, l.DaySep) + ")"
	}

	if c, ok := r.Count.Get(); ok && c > 0 {
		desc += fmt.Sprintf(l.CountSuffix, c)
	} else if u, ok := r.Until.Get(); ok && u != "" {
		desc += fmt.Sprintf(l.UntilSuffix, untilDate(u))
	}
	return desc
}

// untilDate returns the YYYY-MM-DD part of an UNTIL value, or the value
// itself when it is too short to cut.
func untilDate(u string) string {
	if len(u) < 8 {
		return u
	}
	return u[0:4] + "-" + u[4:6] + "-" + u[6:8]
}
