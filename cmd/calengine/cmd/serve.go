package cmd

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"calengine/internal/alarm"
	appLog "calengine/internal/log"
	"calengine/internal/model"
	"calengine/internal/store"
	"calengine/internal/subscription"
	"calengine/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, refresh subscriptions and log reminders as they fire",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if listen != "" {
				a.cfg.Listen = listen
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}

			var feeds web.EventSource
			if subs := a.cfg.SubscriptionList(time.Now()); len(subs) > 0 {
				sched, err := subscription.NewScheduler(a.cfg.RefreshCron, subscription.NewFetcher(a.cfg.CacheDir), subs, a.loc)
				if err != nil {
					return err
				}
				if err := sched.Start(ctx); err != nil {
					return err
				}
				feeds = sched
			}

			stop, err := startReminderLoop(ctx, st, feeds, a.loc)
			if err != nil {
				return err
			}
			defer stop()

			appLog.Info("calengine serving",
				"listen", a.cfg.Listen,
				"store", a.cfg.Store,
				"timezone", a.loc.String(),
				"subscriptions", len(a.cfg.Subscriptions),
			)
			return web.NewServer(a.cfg, st, feeds).Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

// startReminderLoop logs each reminder in the minute it fires. The
// returned func stops the loop and waits for a running tick.
func startReminderLoop(ctx context.Context, st *store.Store, feeds web.EventSource, loc *time.Location) (func(), error) {
	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc("* * * * *", func() {
		events := st.Events()
		if feeds != nil {
			events = append(events, feeds.Events()...)
		}
		from := time.Now().In(loc).Truncate(time.Minute)
		for _, n := range dueReminders(events, from, loc) {
			appLog.Info("reminder",
				"id", n.ID,
				"title", n.Title,
				"fire_at", n.FireAt.Format(time.RFC3339),
				"event_start", n.EventStart.Format(time.RFC3339),
				"action", string(n.Action),
			)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return func() { <-c.Stop().Done() }, nil
}

// dueReminders are the notifications firing within the minute at from.
func dueReminders(events []model.VEvent, from time.Time, loc *time.Location) []alarm.Notification {
	return alarm.Schedule(events, from, from.Add(time.Minute), loc)
}
