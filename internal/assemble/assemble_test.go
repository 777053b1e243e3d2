package assemble

import (
	"errors"
	"testing"
	"time"

	"github.com/pfrederiksen/exam-events/internal/exam"
	"github.com/pfrederiksen/exam-events/internal/extract"
)

func TestAssemble(t *testing.T) {
	examDate := exam.Date(2025, time.August, 15)
	start := exam.Date(2025, time.June, 1)
	end := exam.Date(2025, time.June, 30)

	c := Candidate{
		Source:  "ssc",
		Title:   "  SSC   CGL\n 2025 ",
		Link:    "https://ssc.nic.in/cgl",
		PageURL: "https://ssc.nic.in/Portal/ExamCalendar",
	}
	ex := extract.Extraction{ExamDate: &examDate, ApplicationStart: &start, ApplicationEnd: &end}

	rec, err := Assemble(c, ex, exam.BodySSC)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if rec.ExamName != "SSC CGL 2025" {
		t.Errorf("ExamName = %q, want collapsed whitespace", rec.ExamName)
	}
	if rec.ConductingBody != exam.BodySSC {
		t.Errorf("ConductingBody = %v, want SSC", rec.ConductingBody)
	}
	if !rec.ExamDate.Equal(examDate) {
		t.Errorf("ExamDate = %v, want %v", rec.ExamDate, examDate)
	}
	if rec.ApplicationStart == nil || !rec.ApplicationStart.Equal(start) {
		t.Errorf("ApplicationStart = %v, want %v", rec.ApplicationStart, start)
	}
	if rec.ApplicationEnd == nil || !rec.ApplicationEnd.Equal(end) {
		t.Errorf("ApplicationEnd = %v, want %v", rec.ApplicationEnd, end)
	}
	if rec.OfficialLink != c.Link || rec.SourceURL != c.PageURL {
		t.Errorf("provenance = %q / %q", rec.OfficialLink, rec.SourceURL)
	}
	if !rec.CreatedAt.IsZero() || !rec.UpdatedAt.IsZero() {
		t.Error("timestamps belong to the store and must stay unset")
	}
}

func TestAssemble_MissingExamDate(t *testing.T) {
	start := exam.Date(2025, time.June, 1)
	end := exam.Date(2025, time.June, 30)
	ex := extract.Extraction{
		Mentions:         []extract.Mention{{Role: extract.RoleApplicationStart}, {Role: extract.RoleApplicationEnd}},
		ApplicationStart: &start,
		ApplicationEnd:   &end,
	}

	_, err := Assemble(Candidate{Source: "ibps", Title: "IBPS Clerk"}, ex, exam.BodyIBPS)

	var ve *exam.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Assemble() error = %v, want ValidationError", err)
	}
	if ve.Field != "exam_date" {
		t.Errorf("Field = %q, want exam_date", ve.Field)
	}
	if ve.Source != "ibps" {
		t.Errorf("Source = %q, want ibps", ve.Source)
	}
}

func TestAssemble_EmptyTitle(t *testing.T) {
	d := exam.Date(2025, time.August, 15)
	_, err := Assemble(Candidate{Source: "upsc", Title: " \n\t "}, extract.Extraction{ExamDate: &d}, exam.BodyUPSC)

	var ve *exam.ValidationError
	if !errors.As(err, &ve) || ve.Field != "exam_name" {
		t.Fatalf("Assemble() error = %v, want exam_name ValidationError", err)
	}
}

func TestAssemble_DefaultBody(t *testing.T) {
	d := exam.Date(2025, time.August, 15)
	ex := extract.Extraction{ExamDate: &d}

	tests := []struct {
		name        string
		body        exam.Body
		defaultBody exam.Body
		want        exam.Body
	}{
		{"classified wins", exam.BodySSC, exam.BodyUPSC, exam.BodySSC},
		{"fallback to source default", exam.BodyOther, exam.BodyUPSC, exam.BodyUPSC},
		{"no default", exam.BodyOther, "", exam.BodyOther},
		{"invalid default ignored", exam.BodyOther, exam.Body("UNKNOWN"), exam.BodyOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Assemble(Candidate{Title: "Combined Exam", DefaultBody: tt.defaultBody}, ex, tt.body)
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}
			if rec.ConductingBody != tt.want {
				t.Errorf("ConductingBody = %v, want %v", rec.ConductingBody, tt.want)
			}
		})
	}
}

func TestWarnings(t *testing.T) {
	examDate := exam.Date(2025, time.August, 15)
	early := exam.Date(2025, time.June, 1)
	late := exam.Date(2025, time.September, 1)

	tests := []struct {
		name string
		rec  exam.Record
		want int
	}{
		{
			name: "clean",
			rec:  exam.Record{ExamDate: examDate, ApplicationStart: &early, OfficialLink: "https://x"},
			want: 0,
		},
		{
			name: "inverted window",
			rec:  exam.Record{ExamDate: examDate, ApplicationStart: &late, ApplicationEnd: &early, SourceURL: "https://x"},
			want: 1,
		},
		{
			name: "deadline after exam and no links",
			rec:  exam.Record{ExamDate: examDate, ApplicationEnd: &late},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Warnings(tt.rec); len(got) != tt.want {
				t.Errorf("Warnings() = %v, want %d entries", got, tt.want)
			}
		})
	}
}
