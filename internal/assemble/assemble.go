// Package assemble turns an extracted notice into a candidate exam record.
package assemble

import (
	"strings"

	"github.com/pfrederiksen/exam-events/internal/exam"
	"github.com/pfrederiksen/exam-events/internal/extract"
)

// Candidate carries the provenance of one notice block.
type Candidate struct {
	Source  string
	Title   string
	Text    string
	Link    string
	PageURL string
	// DefaultBody is used when classification finds nothing, e.g. for an authority's own site.
	DefaultBody exam.Body
}

// Assemble combines a candidate with its extracted dates and classified body.
// A record without a title or exam date is rejected with *exam.ValidationError.
func Assemble(c Candidate, ex extract.Extraction, body exam.Body) (exam.Record, error) {
	title := strings.Join(strings.Fields(c.Title), " ")
	if title == "" {
		return exam.Record{}, &exam.ValidationError{
			Source:  c.Source,
			Field:   "exam_name",
			Snippet: exam.Snippet(c.Text),
		}
	}
	if ex.ExamDate == nil {
		return exam.Record{}, &exam.ValidationError{
			Source:  c.Source,
			Field:   "exam_date",
			Snippet: exam.Snippet(title + " " + c.Text),
		}
	}

	if body == "" || body == exam.BodyOther {
		body = exam.BodyOther
		if c.DefaultBody.Valid() {
			body = c.DefaultBody
		}
	}

	rec := exam.Record{
		ExamName:       title,
		ConductingBody: body,
		ExamDate:       *ex.ExamDate,
		OfficialLink:   strings.TrimSpace(c.Link),
		SourceURL:      strings.TrimSpace(c.PageURL),
	}
	if ex.ApplicationStart != nil {
		rec.ApplicationStart = exam.DatePtr(*ex.ApplicationStart)
	}
	if ex.ApplicationEnd != nil {
		rec.ApplicationEnd = exam.DatePtr(*ex.ApplicationEnd)
	}
	return rec.Normalize(), nil
}

// Warnings lists accepted-but-suspicious properties of an assembled record.
func Warnings(rec exam.Record) []string {
	var warnings []string
	if rec.ApplicationWindowInverted() {
		warnings = append(warnings, "application end precedes application start")
	}
	if rec.ApplicationEnd != nil && rec.ApplicationEnd.After(rec.ExamDate) {
		warnings = append(warnings, "application end is after the exam date")
	}
	if rec.OfficialLink == "" && rec.SourceURL == "" {
		warnings = append(warnings, "record has no provenance link")
	}
	return warnings
}
