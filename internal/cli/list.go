package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/field-visits/internal/visit"
)

func newListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visit entries",
		Long:  "List all visit entries, optionally filtered by status.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, status)
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "filter by status (all|pending|completed|followup|cancelled)")

	return cmd
}

func runList(cmd *cobra.Command, status string) error {
	tab, err := visit.ParseTab(status)
	if err != nil {
		return err
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}

	entries, err := c.ListEntries(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading entries: %w", err)
	}
	entries = visit.Filter(entries, tab)

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), entries)
	}

	return printEntryTable(cmd.OutOrStdout(), entries)
}
