package main

import (
	"fmt"
	"text/tabwriter"

	"simscan/internal/storage"

	"github.com/spf13/cobra"
)

func newCredentialsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credentials",
		Aliases: []string{"creds"},
		Short:   "Manage the corpus API credential pool",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show credentials with usage counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			creds, err := storage.NewCredentialRepo(rt.DB).List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "LABEL\tACTIVE\tREQUESTS\tFAILURES")
			for _, cr := range creds {
				fmt.Fprintf(tw, "%s\t%t\t%d\t%d\n", cr.Label, cr.Active, cr.TotalRequests, cr.FailedRequests)
			}
			return tw.Flush()
		},
	}

	add := &cobra.Command{
		Use:   "add <label> <key>",
		Short: "Add a credential, or reactivate an existing label with a new key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			repo := storage.NewCredentialRepo(rt.DB)
			cr, err := repo.EnsureCredential(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !cr.Active {
				if err := repo.SetActive(cmd.Context(), cr.Label, true); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "credential %s (%s) active\n", cr.Label, cr.ID)
			return nil
		},
	}

	setActive := func(use, short string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <label>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := c.runtime(cmd.Context())
				if err != nil {
					return err
				}
				defer rt.Close()
				if err := storage.NewCredentialRepo(rt.DB).SetActive(cmd.Context(), args[0], active); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "credential %s active=%t\n", args[0], active)
				return nil
			},
		}
	}

	cmd.AddCommand(list, add,
		setActive("disable", "Stop selecting a credential", false),
		setActive("enable", "Resume selecting a credential", true))
	return cmd
}
