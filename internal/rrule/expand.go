package rrule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	rrulego "github.com/teambition/rrule-go"

	"calengine/internal/ics"
	appLog "calengine/internal/log"
	"calengine/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// Occurrences expands rule (an RRULE value, with or without the "RRULE:"
// prefix) starting at start and returns the instances inside [from, to],
// both ends inclusive. Floating UNTIL values are read in start's location
// and a date-only UNTIL covers that whole day.
//
// At most limit times are returned (defaultMaxOccurrencesPerEvent when
// limit <= 0); truncated reports whether the cap was hit. An empty rule
// yields start alone when it falls inside the window.
func Occurrences(rule string, start, from, to time.Time, limit int) (times []time.Time, truncated bool, err error) {
	if to.Before(from) {
		return nil, false, errors.New("rrule: window end is before window start")
	}
	if limit <= 0 {
		limit = defaultMaxOccurrencesPerEvent
	}

	rule = stripPrefix(rule)
	if rule == "" {
		if start.Before(from) || start.After(to) {
			return nil, false, nil
		}
		return []time.Time{start}, false, nil
	}

	opt, err := rrulego.StrToROptionInLocation(inclusiveUntil(rule), start.Location())
	if err != nil {
		return nil, false, fmt.Errorf("rrule: parse %q: %w", rule, err)
	}
	opt.Dtstart = start
	r, err := rrulego.NewRRule(*opt)
	if err != nil {
		return nil, false, fmt.Errorf("rrule: build %q: %w", rule, err)
	}

	times = r.Between(from.In(start.Location()), to.In(start.Location()), true)
	if len(times) > limit {
		times = times[:limit]
		truncated = true
	}
	return times, truncated, nil
}

func stripPrefix(rule string) string {
	rule = strings.TrimSpace(rule)
	if len(rule) >= 6 && strings.EqualFold(rule[:6], "RRULE:") {
		rule = rule[6:]
	}
	return rule
}

// inclusiveUntil rewrites a date-only UNTIL to the last second of that day.
func inclusiveUntil(rule string) string {
	parts := strings.Split(rule, ";")
	for i, p := range parts {
		key, value, ok := strings.Cut(p, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "UNTIL") {
			continue
		}
		if value = strings.TrimSpace(value); len(value) == 8 {
			parts[i] = "UNTIL=" + value + "T235959"
		}
	}
	return strings.Join(parts, ";")
}

// ExpandConfig controls Expand.
type ExpandConfig struct {
	// Location is used for floating DTSTART/DTEND values and for the
	// returned occurrences. time.Local if nil.
	Location *time.Location

	// RangeStart / RangeEnd define the inclusive window.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps each event's expansion. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the occurrences and the UIDs that hit the cap.
type ExpandResult struct {
	Occurrences     []model.Occurrence
	TruncatedEvents []string
}

// Expand turns events into concrete occurrences inside the configured
// window, sorted by start. Cancelled events are skipped. Events whose
// DTSTART or RRULE cannot be read are logged and skipped.
func Expand(events []model.VEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	out := make([]model.Occurrence, 0)
	for _, ev := range events {
		if ev.Status == model.StatusCancelled {
			continue
		}
		occ, hitCap, err := expandEvent(ev, cfg)
		if err != nil {
			appLog.Error("expand: skipping event", err, "uid", ev.UID, "rrule", ev.RRule)
			continue
		}
		if hitCap {
			result.TruncatedEvents = append(result.TruncatedEvents, ev.UID)
			appLog.Warn("expand: truncated occurrences for UID due to cap",
				"uid", ev.UID,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
		out = append(out, occ...)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	result.Occurrences = out
	return result, nil
}

func expandEvent(ev model.VEvent, cfg ExpandConfig) ([]model.Occurrence, bool, error) {
	start, dur, err := Span(ev, cfg.Location)
	if err != nil {
		return nil, false, err
	}

	// Widen the lower bound so instances already running at RangeStart
	// are kept.
	from := cfg.RangeStart.Add(-dur)
	starts, hitCap, err := Occurrences(ev.RRule, start, from, cfg.RangeEnd, cfg.MaxOccurrencesPerEvent)
	if err != nil {
		return nil, false, err
	}

	out := make([]model.Occurrence, 0, len(starts))
	for _, s := range starts {
		e := s.Add(dur)
		if !timeRangesOverlap(s, e, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		out = append(out, makeOccurrence(ev, s, e, cfg.Location))
	}
	return out, hitCap, nil
}

// Span returns the parsed DTSTART of ev and its duration. All-day events
// last at least one day; a DTEND before DTSTART counts as zero length.
func Span(ev model.VEvent, loc *time.Location) (time.Time, time.Duration, error) {
	start, err := ics.ParseDateTime(ev.DTStart, loc)
	if err != nil {
		return time.Time{}, 0, err
	}
	var dur time.Duration
	if end, err := ics.ParseDateTime(ev.DTEnd, loc); err == nil && end.After(start) {
		dur = end.Sub(start)
	}
	if ev.AllDay && dur < 24*time.Hour {
		dur = 24 * time.Hour
	}
	return start, dur, nil
}

func makeOccurrence(ev model.VEvent, start, end time.Time, loc *time.Location) model.Occurrence {
	startLocal := start.In(loc)
	return model.Occurrence{
		UID:               ev.UID,
		Summary:           ev.Summary,
		Location:          ev.Location,
		AllDay:            ev.AllDay,
		Start:             startLocal,
		End:               end.In(loc),
		SubscriptionID:    ev.SubscriptionID,
		SubscriptionColor: ev.SubscriptionColor,
		InstanceKey:       startLocal.Format(time.RFC3339Nano),
	}
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
