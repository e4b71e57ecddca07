package ics

import (
	"calengine/internal/model"
)

// MergeResult is the outcome of Merge.
type MergeResult struct {
	Events  []model.VEvent // existing events followed by the accepted new ones
	Added   int
	Skipped []string // UIDs of incoming events that collided
}

// Merge appends incoming events to existing ones. An incoming event whose
// UID already exists (in existing or earlier in incoming) is a duplicate
// and is skipped, never merged. Events without a UID get a generated one.
func Merge(existing, incoming []model.VEvent) MergeResult {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]model.VEvent, 0, len(existing)+len(incoming))
	for _, ev := range existing {
		seen[ev.UID] = struct{}{}
		out = append(out, ev)
	}

	res := MergeResult{}
	for _, ev := range incoming {
		if ev.UID == "" {
			ev.UID = NewUID()
		}
		if _, dup := seen[ev.UID]; dup {
			res.Skipped = append(res.Skipped, ev.UID)
			continue
		}
		seen[ev.UID] = struct{}{}
		out = append(out, ev)
		res.Added++
	}
	res.Events = out
	return res
}

// Find returns the index of the event with uid, or -1.
func Find(events []model.VEvent, uid string) int {
	for i := range events {
		if events[i].UID == uid {
			return i
		}
	}
	return -1
}
