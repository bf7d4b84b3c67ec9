package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/field-visits/internal/visit"
)

func newAddCmd() *cobra.Command {
	var f entryFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a visit entry",
		Long: `Add a visit entry. The date defaults to today and the status to pending.
With --lat/--lon and no --address, the address is looked up from the coordinates.`,
		Example: `  fv add --company "Acme" --contact "Ana Lima;555-0100;ana@acme.test"
  fv add --company "Globex" --contact "Hank" --lat 40.7128 --lon -74.006 --status followup --reminder 2026-11-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, &f)
		},
	}

	f.register(cmd)
	if err := cmd.MarkFlagRequired("company"); err != nil {
		panic(err)
	}

	return cmd
}

func runAdd(cmd *cobra.Command, f *entryFlags) error {
	d := visit.NewDraft(time.Now())
	if _, err := f.apply(cmd, d); err != nil {
		return err
	}
	if !cmd.Flags().Changed("address") {
		fillAddress(cmd.Context(), d)
	}
	if errs := d.Validate(); errs != nil {
		return errs
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}

	created, err := c.CreateEntry(cmd.Context(), d.Entry())
	if err != nil {
		return fmt.Errorf("saving entry: %w", err)
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), created)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Entry saved successfully!")
	printEntry(cmd.OutOrStdout(), *created)
	return nil
}
