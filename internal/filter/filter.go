// Package filter narrows lists of exam records for query commands and notifications.
//
// A Filter combines:
//   - Date range (from/to exam dates, inclusive)
//   - Conducting bodies (any of)
//   - Name terms (case-insensitive substring, any of)
//   - Application status (only exams whose application window is still open)
//
// Example usage:
//
//	from, to, _ := filter.ParseDateRange("Mar 1-15")
//	f := filter.NewFilter()
//	f.DateFrom, f.DateTo = from, to
//	f.Bodies = []exam.Body{exam.BodySSC}
//	upcoming := f.Apply(records)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

// Filter represents exam record filtering criteria
type Filter struct {
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Bodies restricts to any of the listed conducting bodies
	Bodies []exam.Body `json:"bodies,omitempty"`

	// Terms matches exam names containing any term (case-insensitive)
	Terms []string `json:"terms,omitempty"`

	// OpenOn keeps only exams still accepting applications on that day.
	// Records without an application end date are kept.
	OpenOn *time.Time `json:"open_on,omitempty"`
}

// NewFilter creates a filter that matches every record
func NewFilter() *Filter {
	return &Filter{}
}

// IsEmpty checks if the filter has any active criteria
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Bodies) == 0 &&
		len(f.Terms) == 0 &&
		f.OpenOn == nil
}

// Matches checks if a record passes all active criteria.
// Date bounds compare calendar days, so a bound with a time of day still
// includes exams on that day.
func (f *Filter) Matches(rec exam.Record) bool {
	if f.IsEmpty() {
		return true
	}

	day := exam.DateOf(rec.ExamDate)
	if f.DateFrom != nil && day.Before(exam.DateOf(*f.DateFrom)) {
		return false
	}
	if f.DateTo != nil && day.After(exam.DateOf(*f.DateTo)) {
		return false
	}

	if len(f.Bodies) > 0 {
		matched := false
		for _, b := range f.Bodies {
			if rec.ConductingBody == b {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.Terms) > 0 {
		matched := false
		name := strings.ToLower(rec.ExamName)
		for _, term := range f.Terms {
			if strings.Contains(name, strings.ToLower(term)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if f.OpenOn != nil && rec.ApplicationEnd != nil {
		if rec.ApplicationEnd.Before(exam.DateOf(*f.OpenOn)) {
			return false
		}
	}

	return true
}

// Apply returns the records that match. An empty filter returns the input unchanged.
func (f *Filter) Apply(records []exam.Record) []exam.Record {
	if f.IsEmpty() {
		return records
	}

	var filtered []exam.Record
	for _, rec := range records {
		if f.Matches(rec) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// Clone returns a deep copy of the filter
func (f *Filter) Clone() *Filter {
	c := &Filter{
		Bodies: append([]exam.Body(nil), f.Bodies...),
		Terms:  append([]string(nil), f.Terms...),
	}
	if f.DateFrom != nil {
		d := *f.DateFrom
		c.DateFrom = &d
	}
	if f.DateTo != nil {
		d := *f.DateTo
		c.DateTo = &d
	}
	if f.OpenOn != nil {
		d := *f.OpenOn
		c.OpenOn = &d
	}
	return c
}

// String returns a human-readable description of the active criteria.
// Format: "From: Mar 1, 2026 | To: Mar 15, 2026 | Bodies: SSC, UPSC"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string
	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}
	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}
	if len(f.Bodies) > 0 {
		names := make([]string, len(f.Bodies))
		for i, b := range f.Bodies {
			names[i] = string(b)
		}
		parts = append(parts, fmt.Sprintf("Bodies: %s", strings.Join(names, ", ")))
	}
	if len(f.Terms) > 0 {
		parts = append(parts, fmt.Sprintf("Terms: %s", strings.Join(f.Terms, ", ")))
	}
	if f.OpenOn != nil {
		parts = append(parts, fmt.Sprintf("Applications open on: %s", f.OpenOn.Format("Jan 2, 2006")))
	}
	return strings.Join(parts, " | ")
}
