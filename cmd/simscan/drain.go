package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newDrainCmd(c *cli) *cobra.Command {
	var (
		maxBatches int
		skipReap   bool
	)
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Process waiting queue items until the queue stops moving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := c.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if !cmd.Flags().Changed("max-batches") {
				maxBatches = c.cfg.DrainMaxBatches
			}
			reclaimed := 0
			if !skipReap {
				rep, err := rt.Processor.ReapStale(ctx)
				if err != nil {
					return err
				}
				reclaimed = rep.Total()
			}
			sum, err := rt.Processor.Drain(ctx, maxBatches)
			sum.Reclaimed = reclaimed
			if printErr := printJSON(cmd.OutOrStdout(), sum); printErr != nil {
				return printErr
			}
			return err
		},
	}
	cmd.Flags().IntVar(&maxBatches, "max-batches", 0, "stop after this many batches (0 = until drained)")
	cmd.Flags().BoolVar(&skipReap, "skip-reap", false, "do not reclaim stale processing items first")
	return cmd
}

func newReapCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Reclaim items a crashed worker left in processing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			rep, err := rt.Processor.ReapStale(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
