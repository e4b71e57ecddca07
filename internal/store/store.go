// Package store keeps the local, user-editable events in a single .ics
// file. Subscription events are never stored; they are read-only and live
// only in the subscription scheduler.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"calengine/internal/ics"
	appLog "calengine/internal/log"
	"calengine/internal/model"
)

var (
	ErrNotFound  = errors.New("event not found")
	ErrDuplicate = errors.New("event UID already exists")
	ErrReadOnly  = errors.New("subscribed events are read-only")
)

// Store is a file-backed event collection. It is safe for concurrent use.
type Store struct {
	path   string
	prodID string

	mu       sync.RWMutex
	events   []model.VEvent
	warnings []ics.Warning

	// now is replaceable in tests.
	now func() time.Time
}

// Open loads the calendar at path. A missing file is an empty store; it
// is created on the first Save. Parse fallbacks are kept as warnings.
func Open(path, prodID string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is empty")
	}
	s := &Store{path: path, prodID: prodID, events: []model.VEvent{}, now: time.Now}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Info("store file missing; starting empty", "path", path)
			return s, nil
		}
		return nil, err
	}
	defer f.Close()

	res, err := ics.ParseReader(f)
	if err != nil {
		return nil, err
	}
	s.events = res.Events
	s.warnings = res.Warnings
	if len(res.Warnings) > 0 {
		appLog.Warn("store file parsed with fallbacks", "path", path, "warnings", len(res.Warnings))
	}
	appLog.Debug("store loaded", "path", path, "events", len(s.events))
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Warnings returns the parse warnings of the last load.
func (s *Store) Warnings() []ics.Warning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ics.Warning(nil), s.warnings...)
}

// Events returns a copy of all stored events in file order.
func (s *Store) Events() []model.VEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.VEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Get returns the event with uid.
func (s *Store) Get(uid string) (model.VEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := ics.Find(s.events, uid)
	if i < 0 {
		return model.VEvent{}, false
	}
	return s.events[i], true
}

// Add appends ev. The UID must be new.
func (s *Store) Add(ev model.VEvent) error {
	if ev.ReadOnly || ev.IsSubscribed() {
		return ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ics.Find(s.events, ev.UID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, ev.UID)
	}
	s.events = append(s.events, ev)
	return nil
}

// Update applies fn to the event with uid through ics.Update, so the
// sequence number and LAST-MODIFIED advance. It returns the new event.
func (s *Store) Update(uid string, fn func(*model.VEvent)) (model.VEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := ics.Find(s.events, uid)
	if i < 0 {
		return model.VEvent{}, fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	if s.events[i].ReadOnly {
		return model.VEvent{}, ErrReadOnly
	}
	next := ics.UpdateAt(s.events[i], fn, s.now())
	s.events[i] = next
	return next, nil
}

// Delete removes the event with uid.
func (s *Store) Delete(uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := ics.Find(s.events, uid)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	s.events = append(s.events[:i], s.events[i+1:]...)
	return nil
}

// Import merges incoming events, skipping UIDs that already exist.
// Subscription metadata on incoming events is dropped.
func (s *Store) Import(incoming []model.VEvent) ics.MergeResult {
	clean := make([]model.VEvent, len(incoming))
	for i, ev := range incoming {
		ev.SubscriptionID, ev.SubscriptionName, ev.SubscriptionColor = "", "", ""
		ev.ReadOnly = false
		clean[i] = ev
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res := ics.Merge(s.events, clean)
	s.events = res.Events
	if len(res.Skipped) > 0 {
		appLog.Warn("import skipped duplicate UIDs", "count", len(res.Skipped))
	}
	return res
}

// Save writes the store to its file atomically with 0600 permissions.
func (s *Store) Save() error {
	s.mu.RLock()
	events := make([]model.VEvent, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calengine-store-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	opts := ics.ExportOptions{ProdID: s.prodID, Now: s.now}
	if err := ics.WriteCalendar(tmp, events, opts); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return err
	}
	appLog.Debug("store saved", "path", s.path, "events", len(events))
	return nil
}
