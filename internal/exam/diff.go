package exam

import "time"

// FieldChange describes one field overwritten by an update
type FieldChange struct {
	Field    string    `json:"field"`
	OldValue string    `json:"old_value"`
	NewValue string    `json:"new_value"`
	Detected time.Time `json:"detected_at"`
}

// Erased reports a change that replaced a known value with nothing
func (c FieldChange) Erased() bool {
	return c.OldValue != "" && c.NewValue == ""
}

// DetectChanges compares a stored record with its replacement and returns the
// overwritten fields. Natural key fields never differ between the two.
func DetectChanges(previous, current Record) []FieldChange {
	var changes []FieldChange
	now := time.Now().UTC()

	add := func(field, oldValue, newValue string) {
		if oldValue == newValue {
			return
		}
		changes = append(changes, FieldChange{
			Field:    field,
			OldValue: oldValue,
			NewValue: newValue,
			Detected: now,
		})
	}

	add("application_start", formatOptionalDate(previous.ApplicationStart), formatOptionalDate(current.ApplicationStart))
	add("application_end", formatOptionalDate(previous.ApplicationEnd), formatOptionalDate(current.ApplicationEnd))
	add("official_link", previous.OfficialLink, current.OfficialLink)
	add("source_url", previous.SourceURL, current.SourceURL)

	return changes
}
