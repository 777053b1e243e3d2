package notifier

import (
	"context"

	"github.com/pfrederiksen/exam-events/internal/exam"
	"github.com/pfrederiksen/exam-events/internal/filter"
)

// Notifier defines the interface for announcing new exams
type Notifier interface {
	Notify(ctx context.Context, records []exam.Record) error
}

// Selective narrows records before handing them to the wrapped notifier
type Selective struct {
	next     Notifier
	filter   *filter.Filter
	maxPosts int
}

// Select wraps next so it only sees records matching f, at most maxPosts per call.
// A nil filter matches everything and maxPosts <= 0 means no cap.
func Select(next Notifier, f *filter.Filter, maxPosts int) *Selective {
	if f == nil {
		f = filter.NewFilter()
	}
	return &Selective{next: next, filter: f, maxPosts: maxPosts}
}

// Notify forwards the selected records, skipping the call when none remain
func (s *Selective) Notify(ctx context.Context, records []exam.Record) error {
	selected := s.filter.Apply(records)
	if s.maxPosts > 0 && len(selected) > s.maxPosts {
		selected = selected[:s.maxPosts]
	}
	if len(selected) == 0 {
		return nil
	}
	return s.next.Notify(ctx, selected)
}
