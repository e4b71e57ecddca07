package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"calengine/internal/subscription"
)

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch every enabled subscription once and report the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			subs := a.cfg.SubscriptionList(time.Now())
			if len(subs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no subscriptions configured")
				return nil
			}

			fetcher := subscription.NewFetcher(a.cfg.CacheDir)
			results := subscription.SyncAll(cmd.Context(), fetcher, subs)

			failed := 0
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range results {
				if !r.OK() {
					failed++
					fmt.Fprintf(w, "%s\terror\t%v\n", r.SubscriptionID, r.Err)
					continue
				}
				holidays := 0
				for _, ev := range r.Events {
					if subscription.IsHoliday(ev) {
						holidays++
					}
				}
				source := "network"
				if r.FromCache {
					source = "cache"
				}
				fmt.Fprintf(w, "%s\tok\t%d events, %d holidays, %d warnings (%s)\n",
					r.SubscriptionID, len(r.Events), holidays, len(r.Warnings), source)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d subscriptions failed", failed, len(results))
			}
			return nil
		},
	}
}
