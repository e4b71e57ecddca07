package cmd

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/mo"
	"github.com/spf13/cobra"

	"calengine/internal/alarm"
	"calengine/internal/ics"
	"calengine/internal/lunar"
	"calengine/internal/model"
	"calengine/internal/rrule"
)

var rawDateTime = regexp.MustCompile(`^\d{8}(T\d{6})?$`)

// parseWhen accepts "2025-03-03", "2025-03-03 09:30", "2025-03-03T09:30"
// or a raw iCalendar DATE / DATE-TIME and returns the stored form.
func parseWhen(s string) (value string, allDay bool, err error) {
	s = strings.TrimSpace(s)
	if rawDateTime.MatchString(s) {
		return s, len(s) == 8, nil
	}
	date, clock, hasClock := strings.Cut(s, " ")
	if !hasClock {
		date, clock, hasClock = strings.Cut(s, "T")
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return "", false, fmt.Errorf("date %q must be YYYY-MM-DD", date)
	}
	if !hasClock {
		return ics.DateFromISO(date), true, nil
	}
	if _, err := time.Parse("15:04", clock); err != nil {
		return "", false, fmt.Errorf("time %q must be HH:MM", clock)
	}
	return ics.DateTimeFromParts(date, clock), false, nil
}

// eventFlags are the editable fields shared by add and update.
type eventFlags struct {
	summary     string
	description string
	location    string
	start       string
	end         string
	allDay      bool
	status      string
	priority    int
	categories  []string

	rrule      string
	freq       string
	interval   int
	count      int
	until      string
	byDay      []string
	byMonthDay int

	remind   []string
	triggers []string
	audio    bool
}

func (f *eventFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.summary, "summary", "", "event title")
	fl.StringVar(&f.description, "description", "", "event description")
	fl.StringVar(&f.location, "location", "", "event location")
	fl.StringVar(&f.start, "start", "", "start: YYYY-MM-DD for all-day or 'YYYY-MM-DD HH:MM'")
	fl.StringVar(&f.end, "end", "", "end, same forms as --start (default: start)")
	fl.BoolVar(&f.allDay, "all-day", false, "mark the event all-day")
	fl.StringVar(&f.status, "status", "", "TENTATIVE, CONFIRMED or CANCELLED")
	fl.IntVar(&f.priority, "priority", 0, "priority 0-9 (1 highest, 0 undefined)")
	fl.StringSliceVar(&f.categories, "category", nil, "category (repeatable)")

	fl.StringVar(&f.rrule, "rrule", "", "raw RRULE value, e.g. FREQ=WEEKLY;BYDAY=MO")
	fl.StringVar(&f.freq, "freq", "", "repeat: daily, weekly, monthly or yearly")
	fl.IntVar(&f.interval, "interval", 1, "repeat every N periods")
	fl.IntVar(&f.count, "count", 0, "stop after N occurrences")
	fl.StringVar(&f.until, "until", "", "repeat until YYYY-MM-DD (inclusive)")
	fl.StringSliceVar(&f.byDay, "byday", nil, "weekdays, e.g. MO,WE,FR")
	fl.IntVar(&f.byMonthDay, "bymonthday", 0, "day of month 1-31")

	fl.StringSliceVar(&f.remind, "remind", nil, "reminder preset (none, 5min, 15min, 30min, 1hour, 2hours, 1day, 2days, 1week) or minutes before")
	fl.StringSliceVar(&f.triggers, "trigger", nil, "raw VALARM trigger, e.g. -PT10M (repeatable)")
	fl.BoolVar(&f.audio, "audio", false, "reminders play a sound (AUDIO action)")
}

var errStatus = errors.New("status must be TENTATIVE, CONFIRMED or CANCELLED")

func parseStatus(s string) (model.Status, error) {
	switch st := model.Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case model.StatusTentative, model.StatusConfirmed, model.StatusCancelled:
		return st, nil
	case "":
		return "", nil
	default:
		return "", errStatus
	}
}

func (f *eventFlags) recurrenceChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"rrule", "freq", "interval", "count", "until", "byday", "bymonthday"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// recurrence builds the RRULE from --rrule or the structured flags.
func (f *eventFlags) recurrence(cmd *cobra.Command) (string, error) {
	var r rrule.Rule
	switch {
	case f.rrule != "":
		parsed, ok := rrule.Parse(f.rrule)
		if !ok {
			return "", nil
		}
		r = parsed
	case f.freq != "":
		r = rrule.Rule{Freq: rrule.Freq(strings.ToUpper(f.freq)), Interval: f.interval}
		if cmd.Flags().Changed("count") {
			r.Count = mo.Some(f.count)
		}
		if f.until != "" {
			u, _, err := parseWhen(f.until)
			if err != nil {
				return "", fmt.Errorf("--until: %w", err)
			}
			r.Until = mo.Some(u)
		}
		for _, d := range f.byDay {
			r.ByDay = append(r.ByDay, rrule.Weekday(strings.ToUpper(strings.TrimSpace(d))))
		}
		if cmd.Flags().Changed("bymonthday") {
			r.ByMonthDay = mo.Some(f.byMonthDay)
		}
	default:
		return "", nil
	}
	if err := r.Validate(); err != nil {
		return "", err
	}
	return rrule.Build(r), nil
}

func (f *eventFlags) alarmsChanged(cmd *cobra.Command) bool {
	return cmd.Flags().Changed("remind") || cmd.Flags().Changed("trigger") || cmd.Flags().Changed("audio")
}

// alarms builds one VALARM per --remind and --trigger value.
func (f *eventFlags) alarms() ([]model.VAlarm, error) {
	var triggers []string
	for _, id := range f.remind {
		id = strings.TrimSpace(id)
		if p, ok := alarm.PresetByID(id); ok {
			if t := p.Trigger(); t != "" {
				triggers = append(triggers, t)
			}
			continue
		}
		n, err := strconv.Atoi(id)
		if err != nil {
			return nil, fmt.Errorf("unknown reminder %q", id)
		}
		triggers = append(triggers, alarm.FromMinutes(n))
	}
	for _, t := range f.triggers {
		if _, err := alarm.ParseTrigger(t); err != nil {
			return nil, err
		}
		triggers = append(triggers, strings.TrimSpace(t))
	}

	out := alarm.FromTriggers(triggers)
	if f.audio {
		for i := range out {
			out[i].Action = model.ActionAudio
		}
	}
	return out, nil
}

// span resolves --start/--end into stored values.
func (f *eventFlags) span() (start, end string, allDay bool, err error) {
	start, allDay, err = parseWhen(f.start)
	if err != nil {
		return "", "", false, fmt.Errorf("--start: %w", err)
	}
	allDay = allDay || f.allDay
	if f.end != "" {
		end, _, err = parseWhen(f.end)
		if err != nil {
			return "", "", false, fmt.Errorf("--end: %w", err)
		}
	}
	return start, end, allDay, nil
}

func (f *eventFlags) params(cmd *cobra.Command) (ics.Params, error) {
	start, end, allDay, err := f.span()
	if err != nil {
		return ics.Params{}, err
	}
	status, err := parseStatus(f.status)
	if err != nil {
		return ics.Params{}, err
	}
	rule, err := f.recurrence(cmd)
	if err != nil {
		return ics.Params{}, err
	}
	alarms, err := f.alarms()
	if err != nil {
		return ics.Params{}, err
	}
	return ics.Params{
		Summary:     f.summary,
		Description: f.description,
		Location:    f.location,
		DTStart:     start,
		DTEnd:       end,
		AllDay:      allDay,
		Status:      status,
		Priority:    f.priority,
		Categories:  f.categories,
		RRule:       rule,
		Alarms:      alarms,
	}, nil
}

func newAddCmd(a *app) *cobra.Command {
	var f eventFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an event to the local calendar",
		Example: `  calengine add --summary Standup --start "2025-03-03 09:00" --end "2025-03-03 09:15" --freq weekly --byday MO,WE,FR --remind 5min
  calengine add --summary 春节 --start 2025-01-29 --remind 1day`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := f.params(cmd)
			if err != nil {
				return err
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			ev := ics.New(p)
			if err := st.Add(ev); err != nil {
				return err
			}
			if err := st.Save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ev.UID)
			return nil
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("summary")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var f eventFlags
	cmd := &cobra.Command{
		Use:   "update <uid>",
		Short: "Change fields of a local event",
		Long:  "Only the flags given are applied. The sequence number is incremented.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := cmd.Flags().Changed

			var start, end string
			var allDay bool
			if changed("start") {
				var err error
				if start, end, allDay, err = f.span(); err != nil {
					return err
				}
			} else if changed("end") {
				v, _, err := parseWhen(f.end)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				end = v
			}
			status, err := parseStatus(f.status)
			if err != nil {
				return err
			}
			var rule string
			if f.recurrenceChanged(cmd) {
				if rule, err = f.recurrence(cmd); err != nil {
					return err
				}
			}
			var alarms []model.VAlarm
			if f.alarmsChanged(cmd) {
				if alarms, err = f.alarms(); err != nil {
					return err
				}
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			ev, err := st.Update(args[0], func(ev *model.VEvent) {
				if changed("summary") {
					ev.Summary = f.summary
				}
				if changed("description") {
					ev.Description = f.description
				}
				if changed("location") {
					ev.Location = f.location
				}
				if changed("start") {
					ev.DTStart, ev.DTEnd, ev.AllDay = start, end, allDay
				} else if changed("end") {
					ev.DTEnd = end
				}
				if changed("all-day") {
					ev.AllDay = f.allDay
				}
				if changed("status") {
					ev.Status = status
				}
				if changed("priority") {
					ev.Priority = f.priority
				}
				if changed("category") {
					ev.Categories = append([]string{}, f.categories...)
				}
				if f.recurrenceChanged(cmd) {
					ev.RRule = rule
				}
				if f.alarmsChanged(cmd) {
					ev.Alarms = append([]model.VAlarm{}, alarms...)
				}
			})
			if err != nil {
				return err
			}
			if err := st.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s sequence %d\n", ev.UID, ev.Sequence)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <uid>",
		Aliases: []string{"rm"},
		Short:   "Remove a local event",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			if err := st.Delete(args[0]); err != nil {
				return err
			}
			return st.Save()
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var (
		from     string
		days     int
		showUIDs bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List event occurrences in a date window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := time.Now().In(a.loc)
			start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, a.loc)
			if from != "" {
				t, err := time.ParseInLocation(time.DateOnly, from, a.loc)
				if err != nil {
					return fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
				}
				start = t
			}
			if days <= 0 {
				return errors.New("--days must be positive")
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			for _, w := range st.Warnings() {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", st.Path()+":", w.Error())
			}
			events := st.Events()
			res, err := rrule.Expand(events, rrule.ExpandConfig{
				Location:   a.loc,
				RangeStart: start,
				// The window is inclusive; stop just before the next day.
				RangeEnd: start.AddDate(0, 0, days).Add(-time.Second),
			})
			if err != nil {
				return err
			}

			byUID := make(map[string]model.VEvent, len(events))
			for _, ev := range events {
				byUID[ev.UID] = ev
			}
			return printOccurrences(cmd, a, res.Occurrences, byUID, showUIDs)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day YYYY-MM-DD (default today)")
	cmd.Flags().IntVarP(&days, "days", "d", 7, "number of days")
	cmd.Flags().BoolVar(&showUIDs, "uid", false, "show event UIDs")
	return cmd
}

func printOccurrences(cmd *cobra.Command, a *app, occs []model.Occurrence, byUID map[string]model.VEvent, showUIDs bool) error {
	ruleLocale := rrule.LocaleFor(a.cfg.Locale)
	alarmLocale := alarm.LocaleFor(a.cfg.Locale)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, o := range occs {
		when := o.Start.Format("2006-01-02 15:04")
		if o.AllDay {
			when = o.Start.Format(time.DateOnly)
		}
		lunarLabel := ""
		if info, ok := lunar.Lookup(o.Start); ok {
			lunarLabel = info.Display
		}
		ev := byUID[o.UID]
		reminders := make([]string, 0, len(ev.Alarms))
		for _, al := range ev.Alarms {
			reminders = append(reminders, alarmLocale.Describe(al.Trigger))
		}
		row := []string{when, lunarLabel, o.Summary, ruleLocale.Describe(ev.RRule), strings.Join(reminders, ", ")}
		if showUIDs {
			row = append(row, o.UID)
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}
