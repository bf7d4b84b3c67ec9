package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/evcraddock/field-visits/internal/visit"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printEntry prints a single entry in text format.
func printEntry(w io.Writer, e visit.Entry) {
	fmt.Fprintf(w, "Entry %s\n", e.ID)
	fmt.Fprintf(w, "  Company:  %s\n", e.CompanyName)
	fmt.Fprintf(w, "  Date:     %s\n", e.Date)
	fmt.Fprintf(w, "  Status:   %s\n", e.EffectiveStatus().Label())
	if e.Address != "" {
		fmt.Fprintf(w, "  Address:  %s\n", e.Address)
	}
	if e.HasLocation() {
		fmt.Fprintf(w, "  Location: %s, %s\n",
			visit.FormatCoordinate(*e.Latitude), visit.FormatCoordinate(*e.Longitude))
	}
	if e.Reminder != "" {
		fmt.Fprintf(w, "  Reminder: %s\n", e.Reminder)
	}
	if e.Notes != "" {
		fmt.Fprintf(w, "  Notes:    %s\n", e.Notes)
	}
	if len(e.Contacts) > 0 {
		fmt.Fprintln(w, "  Contacts:")
		for _, c := range e.Contacts {
			fmt.Fprintf(w, "    - %s\n", formatContact(c))
		}
	}
}

// formatContact renders a contact on one line.
func formatContact(c visit.Contact) string {
	s := c.ContactName
	if s == "" {
		s = "(unnamed)"
	}
	if c.Phone != "" {
		s += "  " + c.Phone
	}
	if c.Email != "" {
		s += "  " + c.Email
	}
	if c.Notes != "" {
		s += "  (" + c.Notes + ")"
	}
	return s
}

// printEntryTable prints a list of entries as a formatted table.
func printEntryTable(out io.Writer, entries []visit.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No entries found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tDATE\tCOMPANY\tCONTACT\tSTATUS\tREMINDER"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t----\t-------\t-------\t------\t--------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, e := range entries {
		contact := e.PrimaryContact()
		if contact == "" {
			contact = "-"
		}
		reminder := e.Reminder
		if reminder == "" {
			reminder = "-"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Date, truncate(e.CompanyName, 30), truncate(contact, 24),
			e.EffectiveStatus().Label(), reminder); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(out, "\nTotal: %d entries\n", len(entries))
	return nil
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
