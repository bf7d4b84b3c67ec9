package cli

import (
	"github.com/spf13/cobra"

	"github.com/evcraddock/field-visits/internal/visit"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show entry details",
		Long:  "Show full details for a visit entry, including all contacts.",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	e, err := findEntry(cmd.Context(), c, visit.ID(args[0]))
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), e)
	}

	printEntry(cmd.OutOrStdout(), e)
	return nil
}
