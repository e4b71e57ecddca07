package ics

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"calengine/internal/model"
)

// Warning describes input that was accepted with a fallback. Parsing never
// fails on malformed content; it records a Warning and keeps going.
type Warning struct {
	Line     int    // physical line where the logical line started
	Property string // property or component name, if known
	Value    string
	Reason   string
}

func (w Warning) Error() string {
	if w.Property == "" {
		return fmt.Sprintf("line %d: %s", w.Line, w.Reason)
	}
	return fmt.Sprintf("line %d: %s: %s (%q)", w.Line, w.Property, w.Reason, w.Value)
}

// Result is the outcome of Parse.
type Result struct {
	Events   []model.VEvent
	Warnings []Warning
}

// Clean reports whether the input parsed without any fallback.
func (r Result) Clean() bool {
	return len(r.Warnings) == 0
}

// ParseReader reads all of r and parses it. The only error returned is a
// read error.
func ParseReader(r io.Reader) (Result, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return Result{}, fmt.Errorf("read calendar: %w", err)
	}
	return Parse(buf.String()), nil
}

type parseState int

const (
	stateIdle parseState = iota
	stateInEvent
	stateInAlarm
)

func (s parseState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateInEvent:
		return "in-event"
	case stateInAlarm:
		return "in-alarm"
	default:
		return "unknown"
	}
}

// parser holds the state machine. ev is the accumulator for stateInEvent
// and al for stateInAlarm; skip counts nested components of unknown type
// inside an event, whose properties are ignored.
type parser struct {
	state parseState
	ev    model.VEvent
	al    model.VAlarm
	skip  int

	// set when DTSTART/DTEND carried VALUE=DATE
	startIsDate bool

	line   int
	result Result
}

// Parse decodes the VEVENTs (and their VALARMs) in an iCalendar document.
// Unknown properties and unknown components are skipped.
func Parse(text string) Result {
	p := &parser{}
	for _, cl := range unfold(text) {
		p.line = cl.line
		p.feed(cl.text)
	}
	if p.state != stateIdle {
		p.warn("VEVENT", p.ev.UID, "unterminated VEVENT dropped at end of input")
	}
	if p.result.Events == nil {
		p.result.Events = []model.VEvent{}
	}
	return p.result
}

func (p *parser) warn(prop, value, reason string) {
	p.result.Warnings = append(p.result.Warnings, Warning{
		Line:     p.line,
		Property: prop,
		Value:    value,
		Reason:   reason,
	})
}

func (p *parser) feed(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	sep := valueSeparator(line)
	if sep < 0 {
		p.warn("", line, "content line has no ':' separator")
		return
	}
	nameAndParams, value := line[:sep], line[sep+1:]
	parts := strings.Split(nameAndParams, ";")
	name := strings.ToUpper(strings.TrimSpace(parts[0]))
	params := parts[1:]

	switch name {
	case "BEGIN":
		p.begin(strings.ToUpper(strings.TrimSpace(value)))
		return
	case "END":
		p.end(strings.ToUpper(strings.TrimSpace(value)))
		return
	}

	if p.state == stateIdle || p.skip > 0 {
		return
	}

	if hasParam(params, "ENCODING", "QUOTED-PRINTABLE") {
		decoded, ok := decodeQuotedPrintable(value)
		if !ok {
			p.warn(name, value, "malformed quoted-printable value")
		}
		value = decoded
	}

	if p.state == stateInAlarm {
		p.alarmProperty(name, value)
		return
	}
	p.eventProperty(name, params, value)
}

func (p *parser) begin(component string) {
	switch p.state {
	case stateIdle:
		switch component {
		case "VEVENT":
			p.state = stateInEvent
			p.ev = model.VEvent{
				Alarms:     []model.VAlarm{},
				Categories: []string{},
			}
			p.startIsDate = false
			p.skip = 0
		case "VALARM":
			p.warn("VALARM", "", "VALARM outside of a VEVENT ignored")
		}
	case stateInEvent:
		if p.skip > 0 {
			p.skip++
			return
		}
		if component == "VALARM" {
			p.state = stateInAlarm
			p.al = model.VAlarm{}
			return
		}
		if component == "VEVENT" {
			p.warn("VEVENT", p.ev.UID, "nested VEVENT; previous event dropped")
			p.state = stateIdle
			p.begin(component)
			return
		}
		p.skip = 1
	case stateInAlarm:
		p.warn(component, "", "component nested in VALARM ignored")
		p.skip++
	}
}

func (p *parser) end(component string) {
	if p.skip > 0 {
		p.skip--
		return
	}
	switch {
	case p.state == stateInAlarm && component == "VALARM":
		p.ev.Alarms = append(p.ev.Alarms, p.al)
		p.al = model.VAlarm{}
		p.state = stateInEvent
	case p.state == stateInEvent && component == "VEVENT":
		p.finishEvent()
		p.state = stateIdle
	case p.state == stateIdle:
		// END:VCALENDAR and ends of top-level components we do not parse.
		if component == "VEVENT" || component == "VALARM" {
			p.warn(component, "", "END without matching BEGIN")
		}
	default:
		p.warn(component, "", "unexpected END in state "+p.state.String())
	}
}

func (p *parser) finishEvent() {
	ev := p.ev
	if ev.UID == "" {
		p.warn("UID", "", "VEVENT without UID")
	}
	if len(ev.DTStart) == 8 || p.startIsDate {
		ev.AllDay = true
	}
	if ev.DTEnd == "" {
		ev.DTEnd = ev.DTStart
	} else if len(ev.DTEnd) != len(ev.DTStart) {
		p.warn("DTEND", ev.DTEnd, "DTEND and DTSTART mix date and date-time forms")
		ev.DTEnd = matchForm(ev.DTStart, ev.DTEnd)
	}
	if len(ev.DTEnd) == len(ev.DTStart) && ev.DTEnd < ev.DTStart {
		p.warn("DTEND", ev.DTEnd, "DTEND is before DTSTART")
	}
	p.result.Events = append(p.result.Events, ev)
}

func (p *parser) eventProperty(name string, params []string, value string) {
	ev := &p.ev
	switch name {
	case "UID":
		ev.UID = value
	case "SUMMARY":
		ev.Summary = UnescapeText(value)
	case "DESCRIPTION":
		ev.Description = UnescapeText(value)
	case "LOCATION":
		ev.Location = UnescapeText(value)
	case "DTSTART":
		ev.DTStart = p.dateValue(name, value)
		if hasParam(params, "VALUE", "DATE") {
			p.startIsDate = true
		}
	case "DTEND":
		ev.DTEnd = p.dateValue(name, value)
	case "STATUS":
		ev.Status = model.Status(strings.ToUpper(strings.TrimSpace(value)))
	case "PRIORITY":
		ev.Priority = p.intValue(name, value)
	case "CATEGORIES":
		ev.Categories = append(ev.Categories, splitTextList(value)...)
	case "RRULE":
		ev.RRule = strings.TrimSpace(value)
	case "DTSTAMP":
		ev.DTStamp = value
	case "CREATED":
		ev.Created = value
	case "LAST-MODIFIED":
		ev.LastModified = value
	case "SEQUENCE":
		ev.Sequence = p.intValue(name, value)
	}
}

func (p *parser) alarmProperty(name, value string) {
	al := &p.al
	switch name {
	case "ACTION":
		al.Action = model.Action(strings.ToUpper(strings.TrimSpace(value)))
	case "TRIGGER":
		al.Trigger = strings.TrimSpace(value)
	case "DESCRIPTION":
		al.Description = UnescapeText(value)
	case "REPEAT":
		al.Repeat = p.intValue(name, value)
	case "DURATION":
		al.Duration = strings.TrimSpace(value)
	}
}

func (p *parser) dateValue(name, value string) string {
	v, ok := normalizeDateTime(value)
	if !ok {
		p.warn(name, value, "malformed DATE or DATE-TIME")
	}
	return v
}

// intValue parses an integer property, falling back to 0 with a warning.
func (p *parser) intValue(name, value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		p.warn(name, value, "not an integer, using 0")
		return 0
	}
	return n
}

// valueSeparator returns the index of the colon separating the property
// name and parameters from the value, skipping colons inside quoted
// parameter values.
func valueSeparator(line string) int {
	quoted := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			quoted = !quoted
		case ':':
			if !quoted {
				return i
			}
		}
	}
	return -1
}

func hasParam(params []string, key, value string) bool {
	for _, prm := range params {
		k, v, ok := strings.Cut(prm, "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(k), key) && strings.EqualFold(strings.Trim(strings.TrimSpace(v), `"`), value) {
			return true
		}
	}
	return false
}
