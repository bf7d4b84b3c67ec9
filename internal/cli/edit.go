package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/field-visits/internal/visit"
)

func newEditCmd() *cobra.Command {
	var f entryFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a visit entry",
		Long: `Edit a visit entry. Only the flags given are changed; --contact replaces
all contacts. New coordinates without --address look up a new address.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, visit.ID(args[0]), &f)
		},
	}

	f.register(cmd)

	return cmd
}

func runEdit(cmd *cobra.Command, id visit.ID, f *entryFlags) error {
	if !f.anyChanged(cmd) {
		return fmt.Errorf("nothing to change; pass at least one field flag")
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}

	e, err := findEntry(cmd.Context(), c, id)
	if err != nil {
		return err
	}

	d := visit.DraftFrom(e)
	moved, err := f.apply(cmd, d)
	if err != nil {
		return err
	}
	if moved && !cmd.Flags().Changed("address") {
		fillAddress(cmd.Context(), d)
	}
	if errs := d.Validate(); errs != nil {
		return errs
	}

	updated, err := c.UpdateEntry(cmd.Context(), id, d.Entry())
	if err != nil {
		return fmt.Errorf("saving entry: %w", err)
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), updated)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Entry updated successfully!")
	printEntry(cmd.OutOrStdout(), *updated)
	return nil
}
