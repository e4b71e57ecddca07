package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"calengine/internal/config"
	appLog "calengine/internal/log"
	"calengine/internal/store"
)

const defaultConfigPath = "./calengine.yaml"

// app carries the flags and configuration shared by all subcommands.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	loc *time.Location
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. Each call returns an independent
// tree with its own flag state.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "calengine",
		Short: "An iCalendar engine with recurrence, reminders and the Chinese lunar calendar",
		Long: `calengine keeps a local iCalendar (RFC 5545) file, expands recurring events,
schedules their reminders, follows remote calendar subscriptions and knows the
Chinese lunar calendar and the 24 solar terms.

The configuration file is created with defaults on first use.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	// Global flags (inherited by all subcommands)
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newAddCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newListCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newLunarCmd(a),
		newTermsCmd(a),
		newRemindersCmd(a),
		newSyncCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	appLog.SetOutput(cmd.ErrOrStderr())

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", a.configPath, err)
	}

	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(level))

	a.cfg = cfg
	a.loc = cfg.Location()
	appLog.Debug("effective config",
		"config", a.configPath,
		"store", cfg.Store,
		"timezone", cfg.Timezone,
		"locale", cfg.Locale,
		"subscriptions", len(cfg.Subscriptions),
	)
	return nil
}

func (a *app) openStore() (*store.Store, error) {
	return store.Open(a.cfg.Store, a.cfg.ProdID)
}
