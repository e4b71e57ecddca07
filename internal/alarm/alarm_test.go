package alarm

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calengine/internal/model"
)

func TestNewDefaults(t *testing.T) {
	assert.Equal(t, model.VAlarm{Action: model.ActionDisplay, Trigger: Trigger15Min}, New(Params{}))

	a := New(Params{Action: model.ActionAudio, Trigger: Trigger1Day, Description: "pack", Repeat: 2, Duration: "PT5M"})
	assert.Equal(t, model.VAlarm{Action: model.ActionAudio, Trigger: "-P1D", Description: "pack", Repeat: 2, Duration: "PT5M"}, a)

	alarms := FromTriggers([]string{Trigger5Min, "", Trigger1Week})
	require.Len(t, alarms, 2)
	assert.Equal(t, "-P1W", alarms[1].Trigger)
}

func TestMinutes(t *testing.T) {
	tests := []struct {
		trigger string
		want    int
	}{
		{"-PT15M", -15},
		{"-P1D", -1440},
		{"PT0M", 0},
		{"-P1W", -10080},
		{"-PT2H", -120},
		{"PT1H30M", 90},
		{"-P1DT2H", -1560},
		{"garbage", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Minutes(tt.trigger), tt.trigger)
	}
}

func TestParseTrigger(t *testing.T) {
	d, err := ParseTrigger("-P1DT2H")
	require.NoError(t, err)
	assert.True(t, d.Before)
	assert.Equal(t, 1, d.Days)
	assert.Equal(t, 2, d.Hours)
	assert.Equal(t, -26*time.Hour, d.Offset())

	_, err = ParseTrigger("15M")
	assert.ErrorIs(t, err, ErrTrigger)

	for _, tr := range append(Triggers, "-P1DT2H", "PT10M", "P2W") {
		d, err := ParseTrigger(tr)
		require.NoError(t, err, tr)
		assert.Equal(t, tr, d.String())
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		trigger string
		want    string
	}{
		{"PT0M", "准时"},
		{"-PT15M", "提前15分钟"},
		{"-P1W", "提前1周"},
		{"-PT45M", "提前45分钟"},
		{"-P1DT2H", "提前1天2小时"},
		{"-P3W", "提前3周"},
		{"PT10M", "10分钟后"},
		{"-PT", "-PT"},
		{"bogus", "bogus"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(tt.trigger), tt.trigger)
	}

	en := LocaleFor("en")
	assert.Equal(t, "1 day 2 hours before", en.Describe("-P1DT2H"))
	assert.Equal(t, "1 minute before", en.Describe("-PT1M"))
	assert.Equal(t, "At time of event", en.Describe("PT0M"))
	assert.Equal(t, "15 minutes after", en.Describe("PT15M"))
}

func TestFromMinutes(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "PT0M"},
		{-5, "PT0M"},
		{15, "-PT15M"},
		{60, "-PT1H"},
		{90, "-PT1H30M"},
		{1500, "-PT25H"},
		{1440, "-P1D"},
		{2880, "-P2D"},
		{10080, "-P1W"},
		{20160, "-P2W"},
	}
	for _, tt := range tests {
		got := FromMinutes(tt.minutes)
		assert.Equal(t, tt.want, got, tt.minutes)
		if tt.minutes > 0 {
			assert.Equal(t, -tt.minutes, Minutes(got))
		}
	}
}

func TestPresets(t *testing.T) {
	p, ok := PresetByID("1day")
	require.True(t, ok)
	assert.Equal(t, Trigger1Day, p.Trigger())

	none, ok := PresetByID("none")
	require.True(t, ok)
	assert.Equal(t, "", none.Trigger())

	_, ok = PresetByID("fortnight")
	assert.False(t, ok)

	for _, p := range Presets[1:] {
		assert.Equal(t, -p.Minutes, Minutes(p.Trigger()), p.ID)
	}
}

func TestSchedule(t *testing.T) {
	cst := time.FixedZone("CST", 8*3600)
	events := []model.VEvent{
		{
			UID: "a", Summary: "Review", DTStart: "20250110T090000", DTEnd: "20250110T100000",
			Alarms: []model.VAlarm{
				New(Params{}),
				New(Params{Action: model.ActionAudio, Trigger: TriggerAtTime}),
			},
		},
		{
			UID: "b", Summary: "Gym", DTStart: "20250109T080000", DTEnd: "20250109T090000",
			RRule:  "FREQ=DAILY;COUNT=3",
			Alarms: []model.VAlarm{New(Params{Trigger: Trigger1Hour, Description: "Pack the bag"})},
		},
		{
			UID: "c", DTStart: "20250110T120000", Status: model.StatusCancelled,
			Alarms: []model.VAlarm{New(Params{})},
		},
		{
			UID: "d", DTStart: "20250111T000000",
			Alarms: []model.VAlarm{New(Params{Trigger: TriggerAtTime}), {Trigger: "soon"}},
		},
	}
	from := time.Date(2025, 1, 10, 0, 0, 0, 0, cst)
	to := from.Add(24 * time.Hour)

	got := Schedule(events, from, to, cst)
	require.Len(t, got, 3)

	assert.Equal(t, "b", got[0].UID)
	assert.True(t, got[0].FireAt.Equal(time.Date(2025, 1, 10, 7, 0, 0, 0, cst)))
	assert.True(t, got[0].EventStart.Equal(time.Date(2025, 1, 10, 8, 0, 0, 0, cst)))
	assert.Equal(t, "Pack the bag", got[0].Title)
	assert.Equal(t, -60, got[0].Minutes)

	assert.Equal(t, "a", got[1].UID)
	assert.True(t, got[1].FireAt.Equal(time.Date(2025, 1, 10, 8, 45, 0, 0, cst)))
	assert.Equal(t, "Review", got[1].Title)
	assert.Equal(t, "提前15分钟\n2025-01-10 09:00", got[1].Body)
	assert.False(t, got[1].Sound)

	assert.Equal(t, "a", got[2].UID)
	assert.True(t, got[2].Sound)
	assert.NotEqual(t, got[1].ID, got[2].ID)
	for _, n := range got {
		assert.True(t, strings.HasPrefix(n.ID, "evt_"), n.ID)
	}

	assert.Empty(t, Schedule(events, to, from, cst))
}

func TestUIDHash(t *testing.T) {
	assert.Equal(t, int64(96354), uidHash("abc"))
	assert.Equal(t, int64(0), uidHash(""))
	assert.GreaterOrEqual(t, uidHash("a-very-long-uid-that-overflows@calengine"), int64(0))
}
