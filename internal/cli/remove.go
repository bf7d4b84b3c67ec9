package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/field-visits/internal/visit"
)

func newRemoveCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a visit entry",
		Long:  "Remove a visit entry. Asks for confirmation unless --yes is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd, visit.ID(args[0]), yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func runRemove(cmd *cobra.Command, id visit.ID, yes bool) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	if !yes {
		e, err := findEntry(cmd.Context(), c, id)
		if err != nil {
			return err
		}
		if !confirm(cmd, fmt.Sprintf("Are you sure you want to delete entry %s (%s)? [y/N] ", id, e.CompanyName)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	if err := c.DeleteEntry(cmd.Context(), id); err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"id":      id,
			"removed": true,
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Entry deleted successfully!")
	return nil
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
