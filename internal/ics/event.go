package ics

import (
	"time"

	"github.com/google/uuid"

	"calengine/internal/model"
)

// uidDomain is appended to generated UIDs (RFC 5545 section 3.8.4.7
// recommends a domain-qualified right-hand side).
const uidDomain = "@calengine"

// NewUID returns a fresh globally unique identifier.
func NewUID() string {
	return uuid.NewString() + uidDomain
}

// Params are the user-editable fields of a new event.
type Params struct {
	Summary     string
	Description string
	Location    string

	DTStart string
	DTEnd   string
	AllDay  bool

	Status     model.Status
	Priority   int
	Categories []string
	RRule      string
	Alarms     []model.VAlarm
}

// New creates an event stamped with the current time.
func New(p Params) model.VEvent {
	return NewAt(p, time.Now())
}

// NewAt creates an event stamped with now. The UID is generated, SEQUENCE
// starts at 0, STATUS defaults to CONFIRMED and DTEND to DTSTART.
func NewAt(p Params, now time.Time) model.VEvent {
	stamp := FormatDateTime(now)
	ev := model.VEvent{
		UID:          NewUID(),
		DTStamp:      stamp,
		DTStart:      p.DTStart,
		DTEnd:        p.DTEnd,
		AllDay:       p.AllDay,
		Summary:      p.Summary,
		Description:  p.Description,
		Location:     p.Location,
		Status:       p.Status,
		Priority:     p.Priority,
		Categories:   append([]string{}, p.Categories...),
		RRule:        p.RRule,
		Alarms:       append([]model.VAlarm{}, p.Alarms...),
		Created:      stamp,
		LastModified: stamp,
		Sequence:     0,
	}
	if ev.Status == "" {
		ev.Status = model.StatusConfirmed
	}
	normalizeSpan(&ev)
	return ev
}

// Update returns a copy of ev with apply's changes, a refreshed
// LAST-MODIFIED and SEQUENCE incremented by one.
func Update(ev model.VEvent, apply func(*model.VEvent)) model.VEvent {
	return UpdateAt(ev, apply, time.Now())
}

// UpdateAt is Update with an explicit clock. UID, CREATED and SEQUENCE
// cannot be changed by apply.
func UpdateAt(ev model.VEvent, apply func(*model.VEvent), now time.Time) model.VEvent {
	next := ev
	next.Categories = append([]string{}, ev.Categories...)
	next.Alarms = append([]model.VAlarm{}, ev.Alarms...)
	if apply != nil {
		apply(&next)
	}
	next.UID = ev.UID
	next.Created = ev.Created
	next.Sequence = ev.Sequence + 1
	next.LastModified = FormatDateTime(now)
	normalizeSpan(&next)
	return next
}

// normalizeSpan keeps DTSTART/DTEND and AllDay consistent: an 8-character
// start marks the event all-day, all-day values are cut to dates, a
// date-only end of a timed event becomes midnight and an empty end takes
// the start.
func normalizeSpan(ev *model.VEvent) {
	if len(ev.DTStart) == 8 {
		ev.AllDay = true
	}
	if ev.AllDay {
		ev.DTStart = dateOnly(ev.DTStart)
		ev.DTEnd = dateOnly(ev.DTEnd)
	}
	if ev.DTEnd == "" {
		ev.DTEnd = ev.DTStart
	}
	ev.DTEnd = matchForm(ev.DTStart, ev.DTEnd)
}

// matchForm returns end in the same form as start: a date for a date
// start, a date-time for a date-time start. Values of any other shape are
// returned unchanged.
func matchForm(start, end string) string {
	switch {
	case len(start) == 8 && len(end) == 15:
		return dateOnly(end)
	case len(start) == 15 && len(end) == 8:
		return end + "T000000"
	}
	return end
}
