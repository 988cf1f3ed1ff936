package main

import (
	"fmt"

	"simscan/internal/app"
	"simscan/internal/workflows"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/spf13/cobra"
)

const cronWorkflowID = "drain-queue-cron"

func newScheduleCmd(c *cli) *cobra.Command {
	var (
		cron       string
		maxBatches int
		cancel     bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Register (or cancel) a Temporal cron run of the drain workflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tc, err := app.DialTemporal(c.cfg, c.log)
			if err != nil {
				return err
			}
			defer tc.Close()

			if cancel {
				if err := tc.TerminateWorkflow(cmd.Context(), cronWorkflowID, "", "cancelled from cli"); err != nil {
					return fmt.Errorf("cancel schedule: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schedule cancelled")
				return nil
			}
			if !cmd.Flags().Changed("max-batches") {
				maxBatches = c.cfg.DrainMaxBatches
			}
			we, err := tc.ExecuteWorkflow(cmd.Context(), client.StartWorkflowOptions{
				ID:                    cronWorkflowID,
				TaskQueue:             c.cfg.TemporalTaskQueue,
				CronSchedule:          cron,
				WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_TERMINATE_IF_RUNNING,
			}, workflows.DrainQueueWorkflow, workflows.DrainInput{MaxBatches: maxBatches})
			if err != nil {
				return fmt.Errorf("register schedule: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scheduled %s (run %s) on %q\n", we.GetID(), we.GetRunID(), cron)
			return nil
		},
	}
	cmd.Flags().StringVar(&cron, "cron", "*/5 * * * *", "cron expression for drain runs")
	cmd.Flags().IntVar(&maxBatches, "max-batches", 0, "batches per run (default from config)")
	cmd.Flags().BoolVar(&cancel, "cancel", false, "terminate the registered schedule")
	return cmd
}
