package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate SortOrder = "date"
	SortByBody SortOrder = "body"
	SortByName SortOrder = "name"
)

func parseSortOrder(s string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case SortByDate, SortByBody, SortByName:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be 'date', 'body' or 'name')", s)
	}
}

// sortRecords sorts records in place. Ties fall back to exam date, then name.
func sortRecords(records []exam.Record, order SortOrder) {
	switch order {
	case SortByDate:
		sort.SliceStable(records, func(i, j int) bool {
			return compareByDate(records[i], records[j])
		})
	case SortByBody:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].ConductingBody != records[j].ConductingBody {
				return records[i].ConductingBody < records[j].ConductingBody
			}
			return compareByDate(records[i], records[j])
		})
	case SortByName:
		sort.SliceStable(records, func(i, j int) bool {
			ni, nj := strings.ToLower(records[i].ExamName), strings.ToLower(records[j].ExamName)
			if ni != nj {
				return ni < nj
			}
			return compareByDate(records[i], records[j])
		})
	}
}

// compareByDate reports whether i comes before j by exam date
func compareByDate(i, j exam.Record) bool {
	if !i.ExamDate.Equal(j.ExamDate) {
		return i.ExamDate.Before(j.ExamDate)
	}
	if i.ConductingBody != j.ConductingBody {
		return i.ConductingBody < j.ConductingBody
	}
	return strings.ToLower(i.ExamName) < strings.ToLower(j.ExamName)
}
