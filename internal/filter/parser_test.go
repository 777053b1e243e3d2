package filter

import (
	"testing"
	"time"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

func TestParseDateRange(t *testing.T) {
	now := time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    string
		wantErr  bool
		wantFrom time.Time
		wantTo   time.Time
	}{
		{"Mar 1-15 rolls to next year", "Mar 1-15", false, exam.Date(2027, 3, 1), exam.Date(2027, 3, 15)},
		{"July 1-15 this year", "July 1-15", false, exam.Date(2026, 7, 1), exam.Date(2026, 7, 15)},
		{"current month stays", "Jun 20-30", false, exam.Date(2026, 6, 20), exam.Date(2026, 6, 30)},
		{"cross month", "Aug 20 - Sept 5", false, exam.Date(2026, 8, 20), exam.Date(2026, 9, 5)},
		{"Dec 25 - Jan 5 (cross year)", "Dec 25 - Jan 5", false, exam.Date(2026, 12, 25), exam.Date(2027, 1, 5)},
		{"entire month", "September", false, exam.Date(2026, 9, 1), exam.Date(2026, 9, 30)},
		{"entire month explicit year", "Feb 2028", false, exam.Date(2028, 2, 1), exam.Date(2028, 2, 29)},
		{"reversed days", "Jul 15-1", true, time.Time{}, time.Time{}},
		{"empty string", "", true, time.Time{}, time.Time{}},
		{"invalid format", "not a date", true, time.Time{}, time.Time{}},
		{"invalid day", "Mar 50-60", true, time.Time{}, time.Time{}},
		{"invalid month", "Xxx 1-15", true, time.Time{}, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := parseDateRangeAt(tt.input, now)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDateRange(%q) expected error, got %v - %v", tt.input, from, to)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDateRange(%q) unexpected error: %v", tt.input, err)
			}
			if !from.Equal(tt.wantFrom) || !to.Equal(tt.wantTo) {
				t.Errorf("ParseDateRange(%q) = %v - %v, want %v - %v", tt.input, from, to, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"2026-03-01", exam.Date(2026, 3, 1), false},
		{"March 1, 2026", exam.Date(2026, 3, 1), false},
		{"05/03/2026", exam.Date(2026, 3, 5), false},
		{"", time.Time{}, true},
		{"whenever", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMonthRange(t *testing.T) {
	from, to := MonthRange(2025, time.February)
	if !from.Equal(exam.Date(2025, 2, 1)) || !to.Equal(exam.Date(2025, 2, 28)) {
		t.Errorf("MonthRange(2025, Feb) = %v - %v", from, to)
	}
	from, to = MonthRange(2025, time.December)
	if !from.Equal(exam.Date(2025, 12, 1)) || !to.Equal(exam.Date(2025, 12, 31)) {
		t.Errorf("MonthRange(2025, Dec) = %v - %v", from, to)
	}
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		input string
		want  time.Month
	}{
		{"jan", time.January},
		{"January", time.January},
		{"JANUARY", time.January},
		{"sep", time.September},
		{"sept", time.September},
		{"September", time.September},
		{"dec", time.December},
		{"invalid", time.Month(0)},
		{"", time.Month(0)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseMonth(tt.input); got != tt.want {
				t.Errorf("parseMonth(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestYearForMonth(t *testing.T) {
	now := time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		month time.Month
		want  int
	}{
		{time.June, 2026},
		{time.July, 2026},
		{time.May, 2027},
		{time.January, 2027},
	}
	for _, tt := range tests {
		if got := yearForMonth(tt.month, now); got != tt.want {
			t.Errorf("yearForMonth(%v) = %d, want %d", tt.month, got, tt.want)
		}
	}
}
