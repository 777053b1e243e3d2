package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/exam-events/internal/calendar"
	"github.com/pfrederiksen/exam-events/internal/exam"
	"github.com/pfrederiksen/exam-events/internal/filter"
	"github.com/pfrederiksen/exam-events/internal/storage"
)

// queryFlags are the record selection flags shared by list and export
type queryFlags struct {
	from      string
	to        string
	dateRange string
	month     int
	year      int
	bodies    []string
	terms     []string
	openOnly  bool
	limit     int
	sortBy    string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&q.from, "from", "", "Earliest exam date, e.g. 2026-03-01 or \"1 March 2026\"")
	flags.StringVar(&q.to, "to", "", "Latest exam date")
	flags.StringVar(&q.dateRange, "range", "", "Exam date range, e.g. \"Mar 1-15\", \"Mar 25 - Apr 5\" or \"March 2026\"")
	flags.IntVar(&q.month, "month", 0, "Exam month (1-12)")
	flags.IntVar(&q.year, "year", 0, "Exam year (with --month; defaults to the current year)")
	flags.StringSliceVar(&q.bodies, "body", nil, "Conducting body, e.g. UPSC or \"state psc\" (repeatable)")
	flags.StringSliceVar(&q.terms, "q", nil, "Exam name contains (repeatable, any term matches)")
	flags.BoolVar(&q.openOnly, "open", false, "Only exams still accepting applications today")
	flags.IntVar(&q.limit, "limit", 0, "Maximum number of exams (0 = no limit)")
	flags.StringVar(&q.sortBy, "sort", string(SortByDate), "Sort order: date, body or name")
}

// build turns the flags into a store query and an in-memory filter for
// criteria the store cannot express in one query.
func (q *queryFlags) build(now time.Time) (storage.Query, *filter.Filter, error) {
	var sq storage.Query
	f := filter.NewFilter()

	bounds := 0
	if q.from != "" || q.to != "" {
		bounds++
	}
	if q.dateRange != "" {
		bounds++
	}
	if q.month != 0 {
		bounds++
	}
	if bounds > 1 {
		return sq, nil, fmt.Errorf("use only one of --from/--to, --range or --month")
	}

	switch {
	case q.dateRange != "":
		from, to, err := filter.ParseDateRange(q.dateRange)
		if err != nil {
			return sq, nil, err
		}
		sq.From, sq.To = *from, *to
	case q.month != 0:
		if q.month < 1 || q.month > 12 {
			return sq, nil, fmt.Errorf("invalid month: %d", q.month)
		}
		year := q.year
		if year == 0 {
			year = now.Year()
		}
		sq.From, sq.To = filter.MonthRange(year, time.Month(q.month))
	default:
		if q.from != "" {
			d, err := filter.ParseDate(q.from)
			if err != nil {
				return sq, nil, err
			}
			sq.From = d
		}
		if q.to != "" {
			d, err := filter.ParseDate(q.to)
			if err != nil {
				return sq, nil, err
			}
			sq.To = d
		}
		if !sq.From.IsZero() && !sq.To.IsZero() && sq.To.Before(sq.From) {
			return sq, nil, fmt.Errorf("--to %s is before --from %s", q.to, q.from)
		}
	}
	if q.year != 0 && q.month == 0 {
		return sq, nil, fmt.Errorf("--year requires --month")
	}

	for _, s := range q.bodies {
		b, err := exam.ParseBody(s)
		if err != nil {
			return sq, nil, err
		}
		f.Bodies = append(f.Bodies, b)
	}
	for _, t := range q.terms {
		if t = strings.TrimSpace(t); t != "" {
			f.Terms = append(f.Terms, t)
		}
	}
	if q.openOnly {
		today := exam.DateOf(now)
		f.OpenOn = &today
	}
	if q.limit < 0 {
		return sq, nil, fmt.Errorf("--limit cannot be negative")
	}

	// Single-valued criteria go to the store; the rest is filtered after loading.
	if len(f.Bodies) == 1 {
		sq.Body = f.Bodies[0]
		f.Bodies = nil
	}
	if len(f.Terms) == 1 {
		sq.NameContains = f.Terms[0]
		f.Terms = nil
	}
	if f.IsEmpty() {
		sq.Limit = q.limit
	}
	return sq, f, nil
}

// describe renders the active criteria for the text header
func (q *queryFlags) describe(sq storage.Query, f *filter.Filter) string {
	d := f.Clone()
	if !sq.From.IsZero() {
		from := sq.From
		d.DateFrom = &from
	}
	if !sq.To.IsZero() {
		to := sq.To
		d.DateTo = &to
	}
	if sq.Body != "" {
		d.Bodies = append([]exam.Body{sq.Body}, d.Bodies...)
	}
	if sq.NameContains != "" {
		d.Terms = append([]string{sq.NameContains}, d.Terms...)
	}
	if d.IsEmpty() {
		return ""
	}
	return d.String()
}

func (a *app) queryRecords(cmd *cobra.Command, q *queryFlags) (RecordsOutput, error) {
	now := a.now()
	order, err := parseSortOrder(q.sortBy)
	if err != nil {
		return RecordsOutput{}, err
	}
	sq, f, err := q.build(now)
	if err != nil {
		return RecordsOutput{}, err
	}

	ctx := cmd.Context()
	store, err := a.openStore(ctx)
	if err != nil {
		return RecordsOutput{}, err
	}
	defer store.Close()

	records, err := store.List(ctx, sq)
	if err != nil {
		return RecordsOutput{}, err
	}
	records = f.Apply(records)
	sortRecords(records, order)
	if q.limit > 0 && len(records) > q.limit {
		records = records[:q.limit]
	}
	return RecordsOutput{
		GeneratedAt: now.UTC(),
		Filter:      q.describe(sq, f),
		Exams:       records,
	}, nil
}

func newListCmd(a *app) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored exams",
		Long: `List stored exams by exam date range, conducting body and name.

Examples:
  exam-events list --range "Mar 1-15"
  exam-events list --month 5 --year 2026 --body upsc --body ssc
  exam-events list --q "combined graduate" --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			result, err := a.queryRecords(cmd, &q)
			if err != nil {
				return err
			}
			return writeRecords(a.out, result, format, calendar.Options{})
		},
	}
	q.register(cmd)
	return cmd
}

func newUpcomingCmd(a *app) *cobra.Command {
	var (
		days   int
		bodies []string
	)
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List exams in the next N days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			f := filter.NewFilter()
			for _, s := range bodies {
				b, err := exam.ParseBody(s)
				if err != nil {
					return err
				}
				f.Bodies = append(f.Bodies, b)
			}

			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			now := a.now()
			records, err := store.Upcoming(ctx, now, days)
			if err != nil {
				return err
			}
			return writeRecords(a.out, RecordsOutput{
				GeneratedAt: now.UTC(),
				Filter:      fmt.Sprintf("Next %d days", days),
				Exams:       f.Apply(records),
			}, format, calendar.Options{})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Days ahead to include")
	cmd.Flags().StringSliceVar(&bodies, "body", nil, "Conducting body (repeatable)")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show totals by body, upcoming exams and recent updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := store.Stats(ctx, a.now())
			if err != nil {
				return err
			}
			return writeStats(a.out, st, format)
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		q         queryFlags
		output    string
		name      string
		deadlines bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export exams as an iCalendar (.ics) feed",
		Long: `Export selected exams as an iCalendar feed with one all-day event per exam.
Without --format the feed is iCalendar; --format json writes the records instead.

Examples:
  exam-events export --output exams.ics
  exam-events export --body upsc --deadlines --name "UPSC exams"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := FormatICS
			if cmd.Flags().Changed("format") {
				f, err := a.outputFormat()
				if err != nil {
					return err
				}
				format = f
			}

			result, err := a.queryRecords(cmd, &q)
			if err != nil {
				return err
			}

			w := a.out
			if output != "" && output != "-" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer file.Close()
				w = file
			}
			if err := writeRecords(w, result, format, calendar.Options{Name: name, Deadlines: deadlines}); err != nil {
				return err
			}
			if w != a.out {
				fmt.Fprintf(a.errOut, "Exported %d exams to %s\n", len(result.Exams), output)
			}
			return nil
		},
	}
	q.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().StringVar(&name, "name", "", "Calendar name")
	cmd.Flags().BoolVar(&deadlines, "deadlines", false, "Add an event for each application deadline")
	return cmd
}
