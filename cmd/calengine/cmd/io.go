package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"calengine/internal/ics"
	appLog "calengine/internal/log"
)

func newImportCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "import <file.ics|->",
		Short: "Merge events from an iCalendar file into the local calendar",
		Long: `Events whose UID already exists are skipped, never merged.
Malformed values are accepted with a fallback and reported as warnings.
With --strict the file must first pass a structural RFC 5545 parse.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if strict {
				n, err := ics.Validate(data)
				if err != nil {
					return err
				}
				appLog.Debug("strict parse passed", "events", n)
			}

			res := ics.Parse(string(data))
			for _, w := range res.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w.Error())
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			merged := st.Import(res.Events)
			if err := st.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d duplicate(s), %d warning(s)\n",
				merged.Added, len(merged.Skipped), len(res.Warnings))
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "reject files a conforming iCalendar reader would not accept")
	return cmd
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

func newExportCmd(a *app) *cobra.Command {
	var (
		out    string
		noFold bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the local calendar as an iCalendar document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			opts := ics.ExportOptions{ProdID: a.cfg.ProdID, NoFold: noFold}

			if out == "" || out == "-" {
				return ics.WriteCalendar(cmd.OutOrStdout(), st.Events(), opts)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := ics.WriteCalendar(f, st.Events(), opts); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&noFold, "no-fold", false, "do not fold lines longer than 75 octets")
	return cmd
}
