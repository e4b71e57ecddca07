// Package alarm builds VALARM blocks and interprets their TRIGGER
// durations: minute offsets, human-readable descriptions and the
// notification schedule derived from a set of events.
package alarm

import "calengine/internal/model"

// Named TRIGGER values. Any other duration matching the trigger grammar is
// also accepted.
const (
	TriggerAtTime  = "PT0M"
	Trigger5Min    = "-PT5M"
	Trigger15Min   = "-PT15M"
	Trigger30Min   = "-PT30M"
	Trigger1Hour   = "-PT1H"
	Trigger2Hours  = "-PT2H"
	Trigger1Day    = "-P1D"
	Trigger2Days   = "-P2D"
	Trigger1Week   = "-P1W"
	DefaultTrigger = Trigger15Min
)

// Triggers lists the named values from the latest to the earliest.
var Triggers = []string{
	TriggerAtTime,
	Trigger5Min,
	Trigger15Min,
	Trigger30Min,
	Trigger1Hour,
	Trigger2Hours,
	Trigger1Day,
	Trigger2Days,
	Trigger1Week,
}

// Params are the caller-supplied VALARM fields. Zero values take the
// defaults applied by New.
type Params struct {
	Action      model.Action
	Trigger     string
	Description string
	Repeat      int
	Duration    string
}

// New builds a VALARM, defaulting the action to DISPLAY and the trigger
// to 15 minutes before the event.
func New(p Params) model.VAlarm {
	a := model.VAlarm{
		Action:      p.Action,
		Trigger:     p.Trigger,
		Description: p.Description,
		Repeat:      p.Repeat,
		Duration:    p.Duration,
	}
	if a.Action == "" {
		a.Action = model.ActionDisplay
	}
	if a.Trigger == "" {
		a.Trigger = DefaultTrigger
	}
	if a.Repeat < 0 {
		a.Repeat = 0
	}
	return a
}

// FromTriggers builds one DISPLAY alarm per trigger, skipping blanks.
func FromTriggers(triggers []string) []model.VAlarm {
	out := make([]model.VAlarm, 0, len(triggers))
	for _, t := range triggers {
		if t == "" {
			continue
		}
		out = append(out, New(Params{Trigger: t}))
	}
	return out
}

// Preset is a reminder choice offered to users, expressed in minutes
// before the event.
type Preset struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Minutes int    `json:"minutes"`
}

// Presets are the reminder choices, "none" first.
var Presets = []Preset{
	{ID: "none", Label: "无提醒", Minutes: 0},
	{ID: "5min", Label: "5分钟前", Minutes: 5},
	{ID: "15min", Label: "15分钟前", Minutes: 15},
	{ID: "30min", Label: "30分钟前", Minutes: 30},
	{ID: "1hour", Label: "1小时前", Minutes: 60},
	{ID: "2hours", Label: "2小时前", Minutes: 120},
	{ID: "1day", Label: "1天前", Minutes: 1440},
	{ID: "2days", Label: "2天前", Minutes: 2880},
	{ID: "1week", Label: "1周前", Minutes: 10080},
}

// PresetByID looks a preset up by its ID.
func PresetByID(id string) (Preset, bool) {
	for _, p := range Presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Trigger returns the TRIGGER value for the preset, or "" for "none".
func (p Preset) Trigger() string {
	if p.Minutes == 0 {
		return ""
	}
	return FromMinutes(p.Minutes)
}
