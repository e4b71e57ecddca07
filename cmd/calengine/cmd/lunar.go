package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"calengine/internal/lunar"
)

func newLunarCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "lunar [YYYY-MM-DD]",
		Short: "Show the lunar date, festivals and solar term of a day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now().In(a.loc)
			if len(args) == 1 {
				t, err := time.ParseInLocation(time.DateOnly, args[0], a.loc)
				if err != nil {
					return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
				}
				start = t
			}
			if days <= 0 {
				return errors.New("--days must be positive")
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i := 0; i < days; i++ {
				d := start.AddDate(0, 0, i)
				info, ok := lunar.Lookup(d)
				if !ok {
					return fmt.Errorf("%s is outside the supported range 1900-2100", d.Format(time.DateOnly))
				}
				var extra []string
				for _, s := range []string{info.SolarTerm, info.LunarFestival, info.SolarFestival} {
					if s != "" {
						extra = append(extra, s)
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Format(time.DateOnly), info.FullDisplay(), info.Display, strings.Join(extra, " "))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 1, "number of consecutive days")
	return cmd
}

func newTermsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "terms [year]",
		Short: "List the 24 solar terms of a year",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year := time.Now().In(a.loc).Year()
			if len(args) == 1 {
				y, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("year %q is not a number", args[0])
				}
				year = y
			}
			terms := lunar.SolarTerms(year)
			if terms == nil {
				return fmt.Errorf("year %d is outside the supported range 1900-2100", year)
			}
			for _, t := range terms {
				mark := ""
				if lunar.IsImportantSolarTerm(t.Name) {
					mark = " *"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s%s\n", t.Date.Format(time.DateOnly), t.Name, mark)
			}
			return nil
		},
	}
}
