package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"calengine/internal/alarm"
)

func newRemindersCmd(a *app) *cobra.Command {
	var (
		from  string
		hours int
	)
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "List the reminders that fire in the coming hours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := time.Now().In(a.loc)
			if from != "" {
				t, err := time.ParseInLocation("2006-01-02 15:04", from, a.loc)
				if err != nil {
					return fmt.Errorf("--from must be 'YYYY-MM-DD HH:MM': %w", err)
				}
				start = t
			}
			if hours <= 0 {
				hours = a.cfg.ReminderHorizonHours
			}
			if hours <= 0 {
				return errors.New("--hours must be positive")
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			end := start.Add(time.Duration(hours) * time.Hour)
			notes := alarm.Schedule(st.Events(), start, end, a.loc)

			locale := alarm.LocaleFor(a.cfg.Locale)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, n := range notes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					n.FireAt.Format("2006-01-02 15:04"),
					n.Title,
					locale.Describe(n.Trigger),
					n.Action,
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "window start 'YYYY-MM-DD HH:MM' (default now)")
	cmd.Flags().IntVar(&hours, "hours", 0, "window length in hours (default reminder_horizon_hours)")
	return cmd
}
