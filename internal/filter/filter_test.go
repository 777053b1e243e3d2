package filter

import (
	"testing"
	"time"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

func sampleRecords() []exam.Record {
	return []exam.Record{
		{ExamName: "SSC CGL Tier 1", ConductingBody: exam.BodySSC, ExamDate: exam.Date(2026, 3, 1),
			ApplicationEnd: timePtr(exam.Date(2026, 1, 31))},
		{ExamName: "UPSC Civil Services Prelims", ConductingBody: exam.BodyUPSC, ExamDate: exam.Date(2026, 3, 15)},
		{ExamName: "IBPS PO Prelims", ConductingBody: exam.BodyIBPS, ExamDate: exam.Date(2026, 3, 31),
			ApplicationEnd: timePtr(exam.Date(2026, 2, 20))},
		{ExamName: "RRB NTPC CBT", ConductingBody: exam.BodyRailway, ExamDate: exam.Date(2026, 4, 10)},
	}
}

func TestFilter_IsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		want   bool
	}{
		{"empty filter", NewFilter(), true},
		{"date from", &Filter{DateFrom: timePtr(time.Now())}, false},
		{"bodies", &Filter{Bodies: []exam.Body{exam.BodySSC}}, false},
		{"terms", &Filter{Terms: []string{"cgl"}}, false},
		{"open on", &Filter{OpenOn: timePtr(time.Now())}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.IsEmpty(); got != tt.want {
				t.Errorf("Filter.IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_Matches(t *testing.T) {
	recs := sampleRecords()
	cgl, civil, po, ntpc := recs[0], recs[1], recs[2], recs[3]

	tests := []struct {
		name   string
		filter *Filter
		rec    exam.Record
		want   bool
	}{
		{"empty matches all", NewFilter(), ntpc, true},
		{"from inclusive", &Filter{DateFrom: timePtr(exam.Date(2026, 3, 1))}, cgl, true},
		{"before from", &Filter{DateFrom: timePtr(exam.Date(2026, 3, 2))}, cgl, false},
		{"to inclusive with time of day", &Filter{DateTo: timePtr(time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC))}, po, true},
		{"after to", &Filter{DateTo: timePtr(exam.Date(2026, 3, 31))}, ntpc, false},
		{"body match", &Filter{Bodies: []exam.Body{exam.BodyUPSC, exam.BodySSC}}, civil, true},
		{"body mismatch", &Filter{Bodies: []exam.Body{exam.BodyUPSC}}, po, false},
		{"term case-insensitive", &Filter{Terms: []string{"civil services"}}, civil, true},
		{"term mismatch", &Filter{Terms: []string{"tier 2"}}, cgl, false},
		{"open on before end", &Filter{OpenOn: timePtr(exam.Date(2026, 2, 1))}, po, true},
		{"closed application", &Filter{OpenOn: timePtr(exam.Date(2026, 2, 1))}, cgl, false},
		{"open on without end date", &Filter{OpenOn: timePtr(exam.Date(2026, 2, 1))}, ntpc, true},
		{"all criteria", &Filter{
			DateFrom: timePtr(exam.Date(2026, 3, 1)),
			DateTo:   timePtr(exam.Date(2026, 3, 31)),
			Bodies:   []exam.Body{exam.BodyIBPS},
			Terms:    []string{"PO"},
		}, po, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.rec); got != tt.want {
				t.Errorf("Filter.Matches(%q) = %v, want %v", tt.rec.ExamName, got, tt.want)
			}
		})
	}
}

func TestFilter_Apply(t *testing.T) {
	recs := sampleRecords()

	if got := NewFilter().Apply(recs); len(got) != len(recs) {
		t.Errorf("empty filter Apply() returned %d records, want %d", len(got), len(recs))
	}

	f := &Filter{DateFrom: timePtr(exam.Date(2026, 3, 10)), DateTo: timePtr(exam.Date(2026, 3, 31))}
	got := f.Apply(recs)
	if len(got) != 2 {
		t.Fatalf("Apply() returned %d records, want 2", len(got))
	}
	if got[0].ExamName != "UPSC Civil Services Prelims" || got[1].ExamName != "IBPS PO Prelims" {
		t.Errorf("Apply() = %q, %q", got[0].ExamName, got[1].ExamName)
	}

	none := (&Filter{Terms: []string{"nothing"}}).Apply(recs)
	if len(none) != 0 {
		t.Errorf("Apply() returned %d records, want 0", len(none))
	}
}

func TestFilter_String(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		want   string
	}{
		{"empty", NewFilter(), "No active filters"},
		{"dates", &Filter{
			DateFrom: timePtr(exam.Date(2026, 3, 1)),
			DateTo:   timePtr(exam.Date(2026, 3, 15)),
		}, "From: Mar 1, 2026 | To: Mar 15, 2026"},
		{"bodies and terms", &Filter{
			Bodies: []exam.Body{exam.BodySSC, exam.BodyUPSC},
			Terms:  []string{"cgl"},
		}, "Bodies: SSC, UPSC | Terms: cgl"},
		{"open on", &Filter{OpenOn: timePtr(exam.Date(2026, 2, 1))}, "Applications open on: Feb 1, 2026"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.String(); got != tt.want {
				t.Errorf("Filter.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilter_Clone(t *testing.T) {
	orig := &Filter{
		DateFrom: timePtr(exam.Date(2026, 3, 1)),
		Bodies:   []exam.Body{exam.BodySSC},
		Terms:    []string{"cgl"},
	}
	c := orig.Clone()

	c.Bodies[0] = exam.BodyUPSC
	c.Terms = append(c.Terms, "chsl")
	*c.DateFrom = exam.Date(2027, 1, 1)

	if orig.Bodies[0] != exam.BodySSC {
		t.Errorf("Clone shares Bodies slice")
	}
	if len(orig.Terms) != 1 {
		t.Errorf("Clone shares Terms slice")
	}
	if !orig.DateFrom.Equal(exam.Date(2026, 3, 1)) {
		t.Errorf("Clone shares DateFrom pointer")
	}
	if c.DateTo != nil || c.OpenOn != nil {
		t.Errorf("Clone invented nil fields")
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
