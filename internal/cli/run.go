package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/exam-events/internal/classify"
	"github.com/pfrederiksen/exam-events/internal/config"
	"github.com/pfrederiksen/exam-events/internal/extract"
	"github.com/pfrederiksen/exam-events/internal/filter"
	"github.com/pfrederiksen/exam-events/internal/logger"
	"github.com/pfrederiksen/exam-events/internal/metrics"
	"github.com/pfrederiksen/exam-events/internal/notifier"
	"github.com/pfrederiksen/exam-events/internal/pipeline"
	"github.com/pfrederiksen/exam-events/internal/scraper"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		sources  []string
		notify   bool
		dryRun   bool
		exitCode bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape every source once and store the exams found",
		Long: `Run fetches every configured source, extracts exam and application dates
from each notice, and inserts or updates one record per exam.

Exit codes:
  0 - Run finished (with --exit-code: no new exams)
  1 - Error, or every source failed
  2 - New exams were inserted (only with --exit-code)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("notify") {
				a.cfg.Notify.Enabled = notify
			}
			if cmd.Flags().Changed("dry-run") {
				a.cfg.Notify.DryRun = dryRun
			}

			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			orch, cleanup, err := a.buildOrchestrator(ctx, store, sources, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := orch.Run(ctx)
			if err != nil {
				return err
			}
			if err := writeReport(a.out, report, format, a.verbose); err != nil {
				return err
			}

			if report.Status() == "failed" {
				return exitCodeError{code: ExitError}
			}
			if exitCode && len(report.Inserted()) > 0 {
				return exitCodeError{code: ExitNewExams}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sources, "source", nil, "Only run these sources (by name, repeatable)")
	cmd.Flags().BoolVar(&notify, "notify", false, "Announce newly inserted exams")
	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "Print announcements to stderr instead of posting them")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Exit with code 2 if new exams were inserted")
	return cmd
}

// buildOrchestrator wires fetcher, adapters, extractor, classifier and notifier
// from the loaded configuration. The returned cleanup releases the page cache.
func (a *app) buildOrchestrator(ctx context.Context, store pipeline.Store, names []string, m *metrics.Metrics) (*pipeline.Orchestrator, func(), error) {
	sources, err := selectSources(a.cfg.SourceList(), names)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var fetcher scraper.PageFetcher = scraper.NewFetcher(a.cfg.Fetch.FetcherOptions)
	if a.cfg.Cache.RedisURL != "" {
		cached, err := scraper.NewCachedFetcher(ctx, fetcher, a.cfg.Cache.RedisURL, a.cfg.Cache.TTL, a.log)
		if err != nil {
			return nil, nil, err
		}
		fetcher = cached
		cleanup = func() { _ = cached.Close() }
	}

	n, err := a.buildNotifier(ctx)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	a.log.Debug("orchestrator configured",
		logger.Int("sources", len(sources)),
		logger.Bool("page_cache", a.cfg.Cache.RedisURL != ""),
		logger.Bool("notify", n != nil),
	)

	orch := pipeline.New(pipeline.Deps{
		Adapters:   scraper.Registry(sources, fetcher, a.log),
		Extractor:  extract.New(a.cfg.ExtractOptions()),
		Classifier: classify.NewDefault(),
		Store:      store,
		Notifier:   n,
		Metrics:    m,
		Logger:     a.log,
	}, pipeline.Options{
		Workers:        a.cfg.Run.Workers,
		AdapterTimeout: a.cfg.Run.AdapterTimeout,
	})
	return orch, cleanup, nil
}

// buildNotifier returns nil when announcements are disabled
func (a *app) buildNotifier(ctx context.Context) (notifier.Notifier, error) {
	if !a.cfg.Notify.Enabled {
		return nil, nil
	}
	bodies, err := a.cfg.NotifyBodies()
	if err != nil {
		return nil, err
	}

	var next notifier.Notifier
	switch {
	case a.cfg.Notify.DryRun:
		next = notifier.NewDryRunNotifier(a.errOut)
	case a.cfg.Notify.Channel == config.ChannelTelegram:
		tg, err := notifier.NewTelegramNotifierFromEnv()
		if err != nil {
			return nil, err
		}
		next = tg
	default:
		tw, err := notifier.NewTwitterNotifier(ctx, notifier.CredentialsFromEnv())
		if err != nil {
			return nil, err
		}
		next = tw
	}
	f := filter.NewFilter()
	f.Bodies = bodies
	return notifier.Select(next, f, a.cfg.Notify.MaxPosts), nil
}

// selectSources keeps the named sources, matched case-insensitively. No names keeps all.
func selectSources(all []scraper.Source, names []string) ([]scraper.Source, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]scraper.Source, len(all))
	for _, s := range all {
		byName[strings.ToLower(s.Name)] = s
	}

	var out []scraper.Source
	for _, name := range names {
		s, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			known := make([]string, 0, len(all))
			for _, s := range all {
				known = append(known, s.Name)
			}
			sort.Strings(known)
			return nil, fmt.Errorf("unknown source %q (available: %s)", name, strings.Join(known, ", "))
		}
		out = append(out, s)
	}
	return out, nil
}

func newSourcesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the sources a run visits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			return writeSources(a.out, a.cfg.SourceList(), format)
		},
	}
}
