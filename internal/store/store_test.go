package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calengine/internal/ics"
	"calengine/internal/model"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newEvent(summary, start string) model.VEvent {
	return ics.NewAt(ics.Params{Summary: summary, DTStart: start, DTEnd: start}, now)
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.ics")
	s, err := Open(path, "")
	require.NoError(t, err)
	assert.Empty(t, s.Events())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "Open must not create the file")

	_, err = Open("", "")
	assert.Error(t, err)
}

func TestOpenKeepsParseWarnings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ics")
	doc := "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:w-1\r\nDTSTART:20250301T090000\r\n" +
		"PRIORITY:urgent\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	s, err := Open(path, "")
	require.NoError(t, err)
	require.Len(t, s.Events(), 1)
	warnings := s.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "PRIORITY", warnings[0].Property)

	warnings[0].Property = "changed"
	assert.Equal(t, "PRIORITY", s.Warnings()[0].Property, "Warnings returns a copy")
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "events.ics")
	s, err := Open(path, "-//test//store//EN")
	require.NoError(t, err)
	s.now = func() time.Time { return now }

	a := newEvent("Standup", "20250303T090000")
	a.RRule = "FREQ=DAILY;COUNT=5"
	a.Alarms = []model.VAlarm{{Action: model.ActionDisplay, Trigger: "-PT5M"}}
	b := ics.NewAt(ics.Params{Summary: "Holiday", DTStart: "20250305", AllDay: true}, now)
	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))
	require.NoError(t, s.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "PRODID:-//test//store//EN\r\n")

	reloaded, err := Open(path, "")
	require.NoError(t, err)
	assert.Empty(t, reloaded.Warnings())
	if diff := cmp.Diff([]model.VEvent{a, b}, reloaded.Events()); diff != "" {
		t.Errorf("reload mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be renamed away")
}

func TestAddRejectsDuplicatesAndSubscribed(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "e.ics"), "")
	require.NoError(t, err)

	ev := newEvent("A", "20250303T090000")
	require.NoError(t, s.Add(ev))
	assert.ErrorIs(t, s.Add(ev), ErrDuplicate)

	sub := newEvent("Feed", "20250303T090000")
	sub.SubscriptionID = "cn-holidays"
	sub.ReadOnly = true
	assert.ErrorIs(t, s.Add(sub), ErrReadOnly)
	assert.Len(t, s.Events(), 1)
}

func TestUpdateAdvancesSequence(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "e.ics"), "")
	require.NoError(t, err)
	later := now.Add(time.Hour)
	s.now = func() time.Time { return later }

	ev := newEvent("A", "20250303T090000")
	require.NoError(t, s.Add(ev))

	got, err := s.Update(ev.UID, func(e *model.VEvent) {
		e.Summary = "B"
		e.UID = "hijack"
	})
	require.NoError(t, err)
	assert.Equal(t, ev.UID, got.UID)
	assert.Equal(t, "B", got.Summary)
	assert.Equal(t, 1, got.Sequence)
	assert.Equal(t, ics.FormatDateTime(later), got.LastModified)

	stored, ok := s.Get(ev.UID)
	require.True(t, ok)
	assert.Equal(t, got, stored)

	_, err = s.Update("missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "e.ics"), "")
	require.NoError(t, err)
	a, b := newEvent("A", "20250303T090000"), newEvent("B", "20250304T090000")
	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))

	require.NoError(t, s.Delete(a.UID))
	assert.ErrorIs(t, s.Delete(a.UID), ErrNotFound)
	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, b.UID, events[0].UID)
}

func TestImportSkipsExistingUIDs(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "e.ics"), "")
	require.NoError(t, err)
	a := newEvent("A", "20250303T090000")
	require.NoError(t, s.Add(a))

	c := newEvent("C", "20250306T090000")
	c.SubscriptionID = "feed"
	c.ReadOnly = true
	res := s.Import([]model.VEvent{a, c})
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, []string{a.UID}, res.Skipped)

	imported, ok := s.Get(c.UID)
	require.True(t, ok)
	assert.False(t, imported.ReadOnly)
	assert.Empty(t, imported.SubscriptionID)
}
