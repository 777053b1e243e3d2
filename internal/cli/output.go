package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pfrederiksen/exam-events/internal/calendar"
	"github.com/pfrederiksen/exam-events/internal/exam"
	"github.com/pfrederiksen/exam-events/internal/extract"
	"github.com/pfrederiksen/exam-events/internal/pipeline"
	"github.com/pfrederiksen/exam-events/internal/scraper"
	"github.com/pfrederiksen/exam-events/internal/storage"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	// FormatICS is only valid for commands that print exam records
	FormatICS OutputFormat = "ics"
)

const displayDate = "Jan 2, 2006"

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// writeJSON outputs v as indented JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// RecordsOutput is the JSON shape of a record listing
type RecordsOutput struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Filter      string        `json:"filter,omitempty"`
	Count       int           `json:"count"`
	Exams       []exam.Record `json:"exams"`
}

// writeRecords prints exam records as a table, JSON or an iCalendar feed
func writeRecords(w io.Writer, result RecordsOutput, format OutputFormat, cal calendar.Options) error {
	if result.Exams == nil {
		result.Exams = []exam.Record{}
	}
	result.Count = len(result.Exams)

	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatICS:
		if cal.Now == nil {
			cal.Now = func() time.Time { return result.GeneratedAt }
		}
		_, err := io.WriteString(w, calendar.GenerateBulkICS(result.Exams, cal))
		return err
	case FormatText:
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if result.Count == 0 {
		fmt.Fprintln(w, "No exams found.")
		return nil
	}
	if result.Filter != "" {
		fmt.Fprintf(w, "Filter: %s\n", result.Filter)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Exam Date", "Body", "Exam", "Apply From", "Apply By"})
	for _, rec := range result.Exams {
		t.AppendRow(table.Row{
			rec.ExamDate.Format(displayDate),
			rec.ConductingBody,
			rec.ExamName,
			optionalDate(rec.ApplicationStart),
			optionalDate(rec.ApplicationEnd),
		})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("Total: %d exams", result.Count), "", ""})
	t.Render()
	return nil
}

func optionalDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(displayDate)
}

// SourceOutput is the JSON shape of one source in a run report
type SourceOutput struct {
	Source     string                   `json:"source"`
	Status     string                   `json:"status"`
	Blocks     int                      `json:"blocks"`
	Counts     map[pipeline.Outcome]int `json:"counts"`
	DurationMS int64                    `json:"duration_ms"`
	Error      string                   `json:"error,omitempty"`
}

// ReportOutput is the JSON shape of a run report
type ReportOutput struct {
	RunID      string          `json:"run_id"`
	Status     string          `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Totals     pipeline.Totals `json:"totals"`
	Sources    []SourceOutput  `json:"sources"`
	Inserted   []exam.Record   `json:"inserted"`
}

func reportOutput(r *pipeline.Report) ReportOutput {
	out := ReportOutput{
		RunID:      r.RunID,
		Status:     r.Status(),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Totals:     r.Totals(),
		Sources:    make([]SourceOutput, 0, len(r.Sources)),
		Inserted:   r.Inserted(),
	}
	if out.Inserted == nil {
		out.Inserted = []exam.Record{}
	}
	for _, s := range r.Sources {
		so := SourceOutput{
			Source:     s.Source,
			Status:     "ok",
			Blocks:     s.Blocks,
			Counts:     s.Counts,
			DurationMS: s.Duration.Milliseconds(),
		}
		if s.Failed() {
			so.Status = "failed"
			so.Error = s.Err.Error()
		}
		out.Sources = append(out.Sources, so)
	}
	return out
}

// writeReport prints the per-source summary of a run
func writeReport(w io.Writer, r *pipeline.Report, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, reportOutput(r))
	case FormatText:
	default:
		return fmt.Errorf("format %s is not supported for run reports", format)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Source", "Status", "Blocks", "Inserted", "Updated", "Discarded", "Duration"})
	for _, s := range r.Sources {
		status := "ok"
		if s.Failed() {
			status = "FAILED"
		}
		discarded := s.Counts[pipeline.OutcomeParseError] +
			s.Counts[pipeline.OutcomeValidationError] +
			s.Counts[pipeline.OutcomePersistenceError]
		t.AppendRow(table.Row{
			s.Source, status, s.Blocks,
			s.Counts[pipeline.OutcomeInserted], s.Counts[pipeline.OutcomeUpdated],
			discarded, s.Duration.Round(time.Millisecond),
		})
	}
	totals := r.Totals()
	t.AppendFooter(table.Row{
		"Total", r.Status(), totals.Blocks, totals.Inserted, totals.Updated,
		totals.ParseErrors + totals.ValidationErrors + totals.PersistenceErrors,
		r.Duration().Round(time.Millisecond),
	})
	t.Render()

	fmt.Fprintf(w, "\nRun %s: %d of %d sources succeeded\n",
		r.RunID, totals.Sources-totals.FailedSources, totals.Sources)
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  FAILED %s: %v\n", f.Source, f.Err)
	}

	if inserted := r.Inserted(); len(inserted) > 0 {
		fmt.Fprintf(w, "\nNew exams (%d):\n", len(inserted))
		for _, rec := range inserted {
			fmt.Fprintf(w, "  NEW (%s): %s on %s\n", rec.ConductingBody, rec.ExamName, rec.ExamDate.Format(displayDate))
		}
	}

	if verbose {
		for _, s := range r.Sources {
			for _, item := range s.Items {
				if item.Outcome.Succeeded() {
					continue
				}
				fmt.Fprintf(w, "  %s [%s] %s: %v\n", s.Source, item.Outcome, exam.Snippet(item.Title), item.Err)
			}
		}
	}
	return nil
}

// writeStats prints store totals
func writeStats(w io.Writer, st *storage.Stats, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, st)
	case FormatText:
	default:
		return fmt.Errorf("format %s is not supported for stats", format)
	}

	fmt.Fprintf(w, "Total exams:      %d\n", st.Total)
	fmt.Fprintf(w, "Upcoming:         %d\n", st.Upcoming)
	fmt.Fprintf(w, "This month:       %d\n", st.ThisMonth)

	if len(st.ByBody) > 0 {
		bodies := make([]exam.Body, 0, len(st.ByBody))
		for b := range st.ByBody {
			bodies = append(bodies, b)
		}
		sort.Slice(bodies, func(i, j int) bool {
			if st.ByBody[bodies[i]] != st.ByBody[bodies[j]] {
				return st.ByBody[bodies[i]] > st.ByBody[bodies[j]]
			}
			return bodies[i] < bodies[j]
		})

		fmt.Fprintln(w)
		t := newTable(w)
		t.AppendHeader(table.Row{"Body", "Exams"})
		for _, b := range bodies {
			t.AppendRow(table.Row{b, st.ByBody[b]})
		}
		t.Render()
	}

	if len(st.Recent) > 0 {
		fmt.Fprintln(w, "\nRecently updated:")
		for _, rec := range st.Recent {
			fmt.Fprintf(w, "  %s (%s) on %s\n", rec.ExamName, rec.ConductingBody, rec.ExamDate.Format(displayDate))
		}
	}
	return nil
}

// ExtractionOutput is the JSON shape of the extract command
type ExtractionOutput struct {
	Body       exam.Body          `json:"conducting_body"`
	Extraction extract.Extraction `json:"extraction"`
	Outcome    pipeline.Outcome   `json:"outcome,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// writeExtraction prints the mentions found in one block and the roles they were given
func writeExtraction(w io.Writer, out ExtractionOutput, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, out)
	case FormatText:
	default:
		return fmt.Errorf("format %s is not supported for extract", format)
	}

	ex := out.Extraction
	fmt.Fprintf(w, "Conducting body: %s\n", out.Body)
	if !ex.HasDates() {
		fmt.Fprintln(w, "No date mentions found.")
	} else {
		t := newTable(w)
		t.AppendHeader(table.Row{"#", "Text", "Date", "Role", "Pattern"})
		for i, m := range ex.Mentions {
			t.AppendRow(table.Row{i + 1, m.Text, m.Date.Format(exam.DateLayout), m.Role, m.Pattern})
		}
		t.Render()
	}

	fmt.Fprintf(w, "Exam date:         %s\n", optionalDate(ex.ExamDate))
	fmt.Fprintf(w, "Application start: %s\n", optionalDate(ex.ApplicationStart))
	fmt.Fprintf(w, "Application end:   %s\n", optionalDate(ex.ApplicationEnd))
	for _, d := range ex.Discarded {
		fmt.Fprintf(w, "Discarded %q: %s\n", d.Text, d.Reason)
	}
	if out.Outcome != "" {
		fmt.Fprintf(w, "Outcome: %s\n", out.Outcome)
	}
	if out.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", out.Error)
	}
	return nil
}

// writeSources lists the sources a run would visit
func writeSources(w io.Writer, sources []scraper.Source, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, sources)
	case FormatText:
	default:
		return fmt.Errorf("format %s is not supported for sources", format)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Name", "Base URL", "Pages", "Follow Links", "Default Body"})
	for _, s := range sources {
		body := string(s.DefaultBody)
		if body == "" {
			body = "-"
		}
		t.AppendRow(table.Row{s.Name, s.BaseURL, len(s.PageURLs()), s.FollowLinks, body})
	}
	t.Render()
	return nil
}
