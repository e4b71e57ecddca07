package alarm

import (
	"fmt"
	"sort"
	"time"
	"unicode/utf16"

	appLog "calengine/internal/log"
	"calengine/internal/model"
	"calengine/internal/rrule"
)

// Notification is one alarm firing, ready for a notification sink.
type Notification struct {
	ID      string       `json:"id"`
	UID     string       `json:"uid"`
	Summary string       `json:"summary"`
	Action  model.Action `json:"action"`
	Trigger string       `json:"trigger"`

	// Minutes is the signed trigger offset, negative before the event.
	Minutes    int       `json:"minutes"`
	EventStart time.Time `json:"eventStart"`
	FireAt     time.Time `json:"fireAt"`

	Title string `json:"title"`
	Body  string `json:"body"`
	Sound bool   `json:"sound"`
}

// Schedule lists the alarms of events that fire within [from, to), sorted
// by fire time. Recurring events contribute one notification per instance.
// Floating times are read in loc (time.Local if nil). Cancelled events and
// alarms with an unreadable trigger are skipped.
func Schedule(events []model.VEvent, from, to time.Time, loc *time.Location) []Notification {
	if loc == nil {
		loc = time.Local
	}
	out := make([]Notification, 0)
	if !from.Before(to) {
		return out
	}

	for _, ev := range events {
		if ev.Status == model.StatusCancelled || len(ev.Alarms) == 0 {
			continue
		}
		start, _, err := rrule.Span(ev, loc)
		if err != nil {
			appLog.Warn("alarm: skipping event with unreadable DTSTART", "uid", ev.UID, "dtstart", ev.DTStart)
			continue
		}

		for _, a := range ev.Alarms {
			d, err := ParseTrigger(a.Trigger)
			if err != nil {
				appLog.Warn("alarm: skipping alarm", "uid", ev.UID, "trigger", a.Trigger, "err", err)
				continue
			}
			offset := d.Offset()

			// An instance starting at s fires at s+offset.
			starts, truncated, err := rrule.Occurrences(ev.RRule, start, from.Add(-offset), to.Add(-offset), 0)
			if err != nil {
				appLog.Error("alarm: cannot expand event", err, "uid", ev.UID, "rrule", ev.RRule)
				continue
			}
			if truncated {
				appLog.Warn("alarm: occurrence cap reached", "uid", ev.UID)
			}

			for _, s := range starts {
				fire := s.Add(offset)
				if fire.Before(from) || !fire.Before(to) {
					continue
				}
				out = append(out, newNotification(ev, a, d.TotalMinutes(), s.In(loc), fire.In(loc)))
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].FireAt.Before(out[j].FireAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func newNotification(ev model.VEvent, a model.VAlarm, minutes int, start, fire time.Time) Notification {
	title := ev.Summary
	if a.Description != "" {
		title = a.Description
	}
	when := start.Format("2006-01-02 15:04")
	if ev.AllDay {
		when = start.Format("2006-01-02")
	}
	return Notification{
		ID:         notificationID(ev.UID, -minutes, start),
		UID:        ev.UID,
		Summary:    ev.Summary,
		Action:     a.Action,
		Trigger:    a.Trigger,
		Minutes:    minutes,
		EventStart: start,
		FireAt:     fire,
		Title:      title,
		Body:       Describe(a.Trigger) + "\n" + when,
		Sound:      a.Action == model.ActionAudio,
	}
}

// notificationID is stable for a given event, lead time and instance.
func notificationID(uid string, minutesBefore int, start time.Time) string {
	return fmt.Sprintf("evt_%d_%d_%d", uidHash(uid), minutesBefore, start.Unix())
}

// uidHash is the 31-multiplier string hash over UTF-16 code units, folded
// to a non-negative value.
func uidHash(uid string) int64 {
	var h int32
	for _, c := range utf16.Encode([]rune(uid)) {
		h = (h << 5) - h + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}
