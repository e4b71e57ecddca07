package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "calengine/internal/log"
	"calengine/internal/model"
)

// Scheduler keeps the events of a set of subscriptions fresh. A cron job
// checks every subscription on each tick and syncs those whose refresh
// interval has elapsed. Readers get the latest successful events of each
// subscription.
type Scheduler struct {
	fetcher *Fetcher
	spec    string
	cron    *cron.Cron

	mu     sync.RWMutex
	subs   []Subscription
	events map[string][]model.VEvent

	// now is replaceable in tests.
	now func() time.Time
}

// NewScheduler validates the standard 5-field cron spec and builds a
// scheduler over subs. The slice is copied.
func NewScheduler(spec string, f *Fetcher, subs []Subscription, loc *time.Location) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	own := make([]Subscription, len(subs))
	copy(own, subs)
	for i := range own {
		own[i].Normalize()
	}
	return &Scheduler{
		fetcher: f,
		spec:    spec,
		cron:    cron.New(cron.WithLocation(loc)),
		subs:    own,
		events:  make(map[string][]model.VEvent),
		now:     time.Now,
	}, nil
}

// Start runs an initial refresh and then refreshes on the cron schedule
// until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.Refresh(ctx, false)

	if _, err := s.cron.AddFunc(s.spec, func() { s.Refresh(ctx, false) }); err != nil {
		return err
	}
	s.cron.Start()
	appLog.Info("subscription scheduler started", "schedule", s.spec, "subscriptions", len(s.subs))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the cron loop and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Refresh syncs every enabled subscription that is due, or all enabled
// subscriptions when force is set. A failed sync keeps the events of the
// previous successful one.
func (s *Scheduler) Refresh(ctx context.Context, force bool) []Result {
	now := s.now()

	s.mu.RLock()
	due := make([]Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.Enabled && (force || sub.NeedsRefresh(now)) {
			due = append(due, sub)
		}
	}
	s.mu.RUnlock()

	if len(due) == 0 {
		return nil
	}
	results := SyncAll(ctx, s.fetcher, due)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range results {
		for j := range s.subs {
			if s.subs[j].ID == due[i].ID {
				s.subs[j] = due[i]
			}
		}
		if r.OK() {
			s.events[r.SubscriptionID] = r.Events
		}
	}
	return results
}

// Events returns the events of all subscriptions, in subscription order.
func (s *Scheduler) Events() []model.VEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.VEvent, 0)
	for _, sub := range s.subs {
		if !sub.Enabled {
			continue
		}
		out = append(out, s.events[sub.ID]...)
	}
	return out
}

// Subscriptions returns a snapshot of the subscriptions and their sync
// state.
func (s *Scheduler) Subscriptions() []Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Subscription, len(s.subs))
	copy(out, s.subs)
	return out
}
