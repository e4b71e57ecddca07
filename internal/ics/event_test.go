package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calengine/internal/model"
)

func TestNewDefaults(t *testing.T) {
	ev := NewAt(Params{Summary: "Lunch", DTStart: "20250301T120000"}, fixedNow)

	assert.True(t, strings.HasSuffix(ev.UID, uidDomain))
	assert.Equal(t, "20250101T083000Z", ev.DTStamp)
	assert.Equal(t, ev.DTStamp, ev.Created)
	assert.Equal(t, ev.DTStamp, ev.LastModified)
	assert.Equal(t, model.StatusConfirmed, ev.Status)
	assert.Equal(t, "20250301T120000", ev.DTEnd, "DTEND defaults to DTSTART")
	assert.False(t, ev.AllDay)
	assert.Equal(t, 0, ev.Sequence)
	assert.NotNil(t, ev.Alarms)
	assert.NotNil(t, ev.Categories)

	other := NewAt(Params{Summary: "Lunch", DTStart: "20250301T120000"}, fixedNow)
	assert.NotEqual(t, ev.UID, other.UID)
}

func TestNewAllDayNormalizesDates(t *testing.T) {
	ev := NewAt(Params{DTStart: "20250301T120000", DTEnd: "20250302T000000", AllDay: true}, fixedNow)
	assert.Equal(t, "20250301", ev.DTStart)
	assert.Equal(t, "20250302", ev.DTEnd)

	derived := NewAt(Params{DTStart: "20250301"}, fixedNow)
	assert.True(t, derived.AllDay, "8-character start implies all-day")
}

func TestNewTimedEventKeepsEndForm(t *testing.T) {
	ev := NewAt(Params{DTStart: "20250101T100000", DTEnd: "20250102"}, fixedNow)
	assert.False(t, ev.AllDay)
	assert.Equal(t, "20250102T000000", ev.DTEnd)

	moved := UpdateAt(ev, func(e *model.VEvent) { e.DTEnd = "20250103" }, fixedNow)
	assert.Equal(t, "20250103T000000", moved.DTEnd)
}

func TestUpdateIncrementsSequence(t *testing.T) {
	ev := NewAt(Params{Summary: "v0", DTStart: "20250301"}, fixedNow)
	later := fixedNow.Add(time.Hour)

	v1 := UpdateAt(ev, func(e *model.VEvent) {
		e.Summary = "v1"
		e.UID = "attempted-change"
		e.Sequence = -7
		e.Categories = append(e.Categories, "edited")
	}, later)

	assert.Equal(t, ev.Sequence+1, v1.Sequence)
	assert.Equal(t, ev.UID, v1.UID)
	assert.Equal(t, ev.Created, v1.Created)
	assert.Equal(t, "20250101T093000Z", v1.LastModified)
	assert.Equal(t, "v1", v1.Summary)
	assert.Empty(t, ev.Categories, "original must not be mutated")

	prev := v1
	for i := 0; i < 5; i++ {
		next := Update(prev, nil)
		require.Equal(t, prev.Sequence+1, next.Sequence)
		prev = next
	}
	assert.Equal(t, 6, prev.Sequence)
}

func TestMergeSkipsDuplicateUIDs(t *testing.T) {
	a := NewAt(Params{Summary: "a", DTStart: "20250101"}, fixedNow)
	b := NewAt(Params{Summary: "b", DTStart: "20250102"}, fixedNow)

	dupOfA := a
	dupOfA.Summary = "changed remotely"
	noUID := model.VEvent{Summary: "anonymous", DTStart: "20250103", DTEnd: "20250103", AllDay: true}

	res := Merge([]model.VEvent{a}, []model.VEvent{b, dupOfA, b, noUID})

	assert.Equal(t, 2, res.Added)
	assert.Equal(t, []string{a.UID, b.UID}, res.Skipped)
	require.Len(t, res.Events, 3)
	assert.Equal(t, "a", res.Events[0].Summary, "existing event is not merged")
	assert.NotEmpty(t, res.Events[2].UID)

	assert.Equal(t, 1, Find(res.Events, b.UID))
	assert.Equal(t, -1, Find(res.Events, "missing"))
}

func TestDateTimeHelpers(t *testing.T) {
	date, clock := SplitDateTime("20250110T093000Z")
	assert.Equal(t, "2025-01-10", date)
	assert.Equal(t, "09:30", clock)

	date, clock = SplitDateTime("20250110")
	assert.Equal(t, "2025-01-10", date)
	assert.Equal(t, "", clock)

	date, clock = SplitDateTime("2025")
	assert.Equal(t, "", date)
	assert.Equal(t, "", clock)

	assert.Equal(t, "20250110", DateFromISO("2025-01-10"))
	assert.Equal(t, "20250110T090500", DateTimeFromParts("2025-01-10", "9:5"))
	assert.Equal(t, "20250110T000000", DateTimeFromParts("2025-01-10", ""))

	loc := time.FixedZone("CST", 8*3600)
	got, err := ParseDateTime("20250110T093000", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 1, 10, 9, 30, 0, 0, loc)))

	got, err = ParseDateTime("20250110T013000Z", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 1, 10, 9, 30, 0, 0, loc)))

	_, err = ParseDateTime("2025011", loc)
	assert.Error(t, err)
	_, err = ParseDateTime("", loc)
	assert.Error(t, err)

	assert.Equal(t, "20250110T093000", FormatLocalDateTime(time.Date(2025, 1, 10, 9, 30, 0, 0, loc)))
	assert.Equal(t, "20250110", FormatDate(time.Date(2025, 1, 10, 9, 30, 0, 0, loc)))
}

func TestNormalizeDateTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"20250101", "20250101", true},
		{"20250101T090000", "20250101T090000", true},
		{"20250101T090000Z", "20250101T090000", true},
		{"20250101090000", "20250101T090000", true},
		{"2025-01-01", "2025-01-01", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeDateTime(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
