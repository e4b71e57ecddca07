package model

import "time"

// Status is the VEVENT STATUS value (RFC 5545 section 3.8.1.11).
type Status string

const (
	StatusTentative Status = "TENTATIVE"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Named PRIORITY levels (RFC 5545 section 3.8.1.9). 0 means undefined,
// 1 is the highest and 9 the lowest.
const (
	PriorityUndefined = 0
	PriorityHighest   = 1
	PriorityHigh      = 2
	PriorityMedium    = 5
	PriorityLow       = 8
	PriorityLowest    = 9
)

// Action is the VALARM ACTION value (RFC 5545 section 3.8.6.1).
type Action string

const (
	ActionDisplay Action = "DISPLAY"
	ActionAudio   Action = "AUDIO"
	ActionEmail   Action = "EMAIL"
)

// VEvent is a calendar event as stored and exchanged by the engine.
//
// DTStart/DTEnd are either 8-character dates (YYYYMMDD) for all-day events
// or YYYYMMDDTHHMMSS floating date-times. Both ends of an event use the
// same form.
type VEvent struct {
	UID     string `json:"uid"`
	DTStamp string `json:"dtstamp"`

	DTStart string `json:"dtstart"`
	DTEnd   string `json:"dtend"`
	AllDay  bool   `json:"isAllDay"`

	Summary     string `json:"summary"`
	Description string `json:"description"`
	Location    string `json:"location"`

	Status     Status   `json:"status"`
	Priority   int      `json:"priority"`
	Categories []string `json:"categories"`

	// RRule is the RRULE value without the "RRULE:" prefix, or empty.
	RRule  string   `json:"rrule"`
	Alarms []VAlarm `json:"alarms"`

	Created      string `json:"created"`
	LastModified string `json:"lastModified"`
	Sequence     int    `json:"sequence"`

	// Subscription metadata is attached in-process by the subscription
	// sync and is never written to iCalendar output.
	SubscriptionID    string `json:"subscriptionId,omitempty"`
	SubscriptionName  string `json:"subscriptionName,omitempty"`
	SubscriptionColor string `json:"subscriptionColor,omitempty"`
	ReadOnly          bool   `json:"readonly,omitempty"`
}

// VAlarm is a reminder attached to a VEvent. Alarms are never edited in
// place; the owning event's whole alarm list is rebuilt instead.
type VAlarm struct {
	Action      Action `json:"action"`
	Trigger     string `json:"trigger"` // signed RFC 5545 duration, e.g. -PT15M
	Description string `json:"description"`
	Repeat      int    `json:"repeat"`
	Duration    string `json:"duration"`
}

// IsSubscribed reports whether the event came from a remote subscription.
func (e VEvent) IsSubscribed() bool {
	return e.SubscriptionID != ""
}

// Occurrence is one concrete instance of a VEvent inside a time window,
// produced by recurrence expansion.
type Occurrence struct {
	UID      string    `json:"uid"`
	Summary  string    `json:"summary"`
	Location string    `json:"location"`
	AllDay   bool      `json:"isAllDay"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`

	SubscriptionID    string `json:"subscriptionId,omitempty"`
	SubscriptionColor string `json:"subscriptionColor,omitempty"`

	// InstanceKey identifies the instance within its event (RFC 3339 start).
	InstanceKey string `json:"instanceKey"`
}
