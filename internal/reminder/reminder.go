// Package reminder finds visits whose follow-up reminder has come due and
// notifies the field rep about them.
package reminder

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/evcraddock/field-visits/internal/visit"
)

// Due returns the open entries whose reminder is on or before today,
// oldest reminder first. Completed and cancelled visits never come due.
func Due(entries []visit.Entry, today time.Time) []visit.Entry {
	cutoff := today.Format(visit.DateLayout)

	var due []visit.Entry
	for _, e := range entries {
		if e.Reminder == "" {
			continue
		}
		if _, err := time.Parse(visit.DateLayout, e.Reminder); err != nil {
			continue
		}
		switch e.EffectiveStatus() {
		case visit.StatusPending, visit.StatusFollowup:
		default:
			continue
		}
		// YYYY-MM-DD compares correctly as text.
		if e.Reminder <= cutoff {
			due = append(due, e)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].Reminder != due[j].Reminder {
			return due[i].Reminder < due[j].Reminder
		}
		return due[i].CompanyName < due[j].CompanyName
	})
	return due
}

// Message renders the notification text for one due entry.
func Message(e visit.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Follow-up due: %s", e.CompanyName)
	if name := e.PrimaryContact(); name != "" {
		fmt.Fprintf(&b, " (%s", name)
		if len(e.Contacts) > 0 && e.Contacts[0].Phone != "" {
			fmt.Fprintf(&b, ", %s", e.Contacts[0].Phone)
		}
		b.WriteString(")")
	}
	fmt.Fprintf(&b, " - reminder %s, visited %s", e.Reminder, e.Date)
	return b.String()
}
