package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/exam-events/internal/exam"
	"github.com/pfrederiksen/exam-events/internal/logger"
	"github.com/pfrederiksen/exam-events/internal/metrics"
	"github.com/pfrederiksen/exam-events/internal/seed"
)

// purger is the part of the store retention needs
type purger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// purge removes exams dated more than days before now
func purge(ctx context.Context, store purger, now time.Time, days int, m *metrics.Metrics, log logger.Logger) (int64, time.Time, error) {
	cutoff := exam.DateOf(now).AddDate(0, 0, -days)
	n, err := store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, cutoff, err
	}
	m.AddPurged(n)
	log.Info("purged old exams",
		logger.Int64("deleted", n),
		logger.String("cutoff", cutoff.Format(exam.DateLayout)),
	)
	return n, cutoff, nil
}

func newPurgeCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete exams dated more than N days ago",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.cfg.Schedule.RetentionDays
			}
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}

			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			n, cutoff, err := purge(ctx, store, a.now(), days, nil, a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %d exams dated before %s\n", n, cutoff.Format(displayDate))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 90, "Keep exams from the last N days (default schedule.retention_days)")
	return cmd
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Load curated exams from a YAML file",
		Long: `Seed inserts or updates the exams listed in a YAML file through the same
upsert as scraped records, so running it twice changes nothing but updated_at.

See config/seed.example.yaml for the file format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := seed.LoadFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			sum, err := seed.Apply(ctx, store, records, a.log)
			fmt.Fprintf(a.out, "Seeded %d exams: %d inserted, %d updated, %d failed\n",
				len(records), sum.Inserted, sum.Updated, sum.Failed)
			return err
		},
	}
}
