package notifier

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

// DryRunNotifier prints what would be posted without posting
type DryRunNotifier struct {
	w io.Writer
}

// NewDryRunNotifier creates a dry-run notifier writing to w
func NewDryRunNotifier(w io.Writer) *DryRunNotifier {
	return &DryRunNotifier{w: w}
}

// Notify prints the posts that would be made
func (n *DryRunNotifier) Notify(ctx context.Context, records []exam.Record) error {
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		post := formatPost(rec)
		if _, err := fmt.Fprintf(n.w, "--- Post %d/%d ---\n%s\n\n(Length: %d characters)\n\n",
			i+1, len(records), post, utf8.RuneCountInString(post)); err != nil {
			return fmt.Errorf("writing dry-run post: %w", err)
		}
	}
	return nil
}
