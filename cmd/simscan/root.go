package main

import (
	"context"
	"fmt"

	"simscan/internal/app"
	"simscan/internal/config"
	"simscan/internal/logging"

	"github.com/spf13/cobra"
)

// cli carries state shared by subcommands once the root pre-run has loaded
// configuration.
type cli struct {
	cfg     config.Config
	log     logging.Logger
	verbose bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "simscan",
		Short: "Operate the document similarity scan queue",
		Long: `simscan runs and inspects the similarity scan queue.

Examples:
  simscan drain --max-batches 10   # process waiting documents now
  simscan reap                     # reclaim items stuck in processing
  simscan check essay.pdf --json   # scan one file without the queue
  simscan schedule --cron "*/5 * * * *"
  simscan credentials list`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newDrainCmd(c),
		newReapCmd(c),
		newCheckCmd(c),
		newScheduleCmd(c),
		newCredentialsCmd(c),
	)
	return root
}

func (c *cli) init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.verbose {
		cfg.LogLevel = "debug"
	}
	log, err := app.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	c.cfg = cfg
	c.log = log
	return nil
}

// runtime opens the database-backed runtime; callers must Close it.
func (c *cli) runtime(ctx context.Context) (*app.Runtime, error) {
	return app.Open(ctx, c.cfg, c.log)
}
