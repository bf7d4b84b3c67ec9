package visit

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// FieldErrors maps a field name to what is wrong with it.
// Contact fields are keyed as "contacts.<index>.<field>".
type FieldErrors map[string]string

// Error implements error with the fields in a stable order.
func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + fe[k]
	}
	return "invalid entry: " + strings.Join(parts, "; ")
}

// Has reports whether the field has an error.
func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

// Validate checks the draft before it is submitted.
func (d *Draft) Validate() FieldErrors {
	return ValidateEntry(d.entry)
}

// ValidateEntry checks an entry and returns nil when it can be saved.
func ValidateEntry(e Entry) FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(e.Date) == "" {
		errs["date"] = "date is required"
	} else if !isDate(e.Date) {
		errs["date"] = "date must be YYYY-MM-DD"
	}

	if strings.TrimSpace(e.CompanyName) == "" {
		errs["companyName"] = "company name is required"
	}

	if e.Reminder != "" && !isDate(e.Reminder) {
		errs["reminder"] = "reminder must be YYYY-MM-DD"
	}

	if !e.Status.IsValid() {
		errs["status"] = fmt.Sprintf("unknown status %q", e.Status)
	}

	switch {
	case e.Latitude == nil && e.Longitude != nil:
		errs["latitude"] = "latitude is required with longitude"
	case e.Latitude != nil && e.Longitude == nil:
		errs["longitude"] = "longitude is required with latitude"
	}
	if e.Latitude != nil && (*e.Latitude < -90 || *e.Latitude > 90) {
		errs["latitude"] = "latitude must be between -90 and 90"
	}
	if e.Longitude != nil && (*e.Longitude < -180 || *e.Longitude > 180) {
		errs["longitude"] = "longitude must be between -180 and 180"
	}

	if len(e.Contacts) == 0 {
		errs["contacts"] = "at least one contact is required"
	}
	for i, c := range e.Contacts {
		if c.Email != "" && !strings.Contains(c.Email, "@") {
			errs[fmt.Sprintf("contacts.%d.email", i)] = "email address is not valid"
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func isDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
