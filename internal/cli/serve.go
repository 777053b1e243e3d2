package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/exam-events/internal/logger"
	"github.com/pfrederiksen/exam-events/internal/metrics"
	"github.com/pfrederiksen/exam-events/internal/pipeline"
	"github.com/pfrederiksen/exam-events/internal/storage"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		sources []string
		runNow  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scrapers on a schedule and serve Prometheus metrics",
		Long: `Serve runs every source on the schedule.cron expression, purges exams older
than schedule.retention_days after each run, and serves /metrics and /healthz
on metrics.addr until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			m := metrics.New(nil)
			orch, cleanup, err := a.buildOrchestrator(ctx, store, sources, m)
			if err != nil {
				return err
			}
			defer cleanup()

			job := a.scheduledRun(ctx, orch, store, m)
			cronLog := cronLogger{log: a.log.With(logger.String("component", "scheduler"))}
			sched := cron.New(
				cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
				cron.WithLogger(cronLog),
				cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
			)
			if _, err := sched.AddFunc(a.cfg.Schedule.Cron, job); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", a.cfg.Schedule.Cron, err)
			}

			srv := &http.Server{
				Addr:              a.cfg.Metrics.Addr,
				Handler:           newServeMux(store, m),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.log.Info("metrics server listening", logger.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("metrics server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				sched.Start()
				a.log.Info("scheduler started", logger.String("cron", a.cfg.Schedule.Cron))
				if runNow {
					job()
				}
				<-gctx.Done()

				a.log.Info("shutting down")
				stopped := sched.Stop()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				select {
				case <-stopped.Done():
				case <-shutdownCtx.Done():
					a.log.Warn("scheduled run still active at shutdown")
				}
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringSliceVar(&sources, "source", nil, "Only run these sources (by name, repeatable)")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run once immediately instead of waiting for the first tick")
	return cmd
}

// cronLogger routes scheduler events into the structured logger.
// cron reports every wake-up at info, so those entries are logged at debug.
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug(msg, cronFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error(msg, append(cronFields(keysAndValues), logger.Err(err))...)
}

func cronFields(keysAndValues []any) []logger.Field {
	fields := make([]logger.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields = append(fields, logger.Any(key, keysAndValues[i+1]))
	}
	return fields
}

// scheduledRun is one cron tick: a full run followed by the retention purge
func (a *app) scheduledRun(ctx context.Context, orch *pipeline.Orchestrator, store purger, m *metrics.Metrics) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}
		report, err := orch.Run(ctx)
		if err != nil {
			a.log.Error("scheduled run failed", logger.Err(err))
			return
		}
		a.log.Info("scheduled run complete",
			logger.String("run_id", report.RunID),
			logger.String("status", report.Status()),
			logger.Int("inserted", len(report.Inserted())),
		)

		if days := a.cfg.Schedule.RetentionDays; days > 0 {
			if _, _, err := purge(ctx, store, a.now(), days, m, a.log); err != nil {
				a.log.Error("retention purge failed", logger.Err(err))
			}
		}
	}
}

func newServeMux(store *storage.Store, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			http.Error(w, "store unavailable: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
