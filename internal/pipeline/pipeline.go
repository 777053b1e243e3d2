package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/exam-events/internal/classify"
	"github.com/pfrederiksen/exam-events/internal/exam"
	"github.com/pfrederiksen/exam-events/internal/extract"
	"github.com/pfrederiksen/exam-events/internal/logger"
	"github.com/pfrederiksen/exam-events/internal/metrics"
	"github.com/pfrederiksen/exam-events/internal/notifier"
	"github.com/pfrederiksen/exam-events/internal/scraper"
	"github.com/pfrederiksen/exam-events/internal/storage"
)

const (
	DefaultWorkers        = 4
	DefaultAdapterTimeout = 2 * time.Minute
)

// Store is the part of the record store a run needs
type Store interface {
	Ping(ctx context.Context) error
	Upsert(ctx context.Context, rec exam.Record) (storage.UpsertResult, error)
}

// Deps are the collaborators of an Orchestrator. Notifier and Metrics are optional.
type Deps struct {
	Adapters   []scraper.Adapter
	Extractor  *extract.Extractor
	Classifier *classify.Classifier
	Store      Store
	Notifier   notifier.Notifier
	Metrics    *metrics.Metrics
	Logger     logger.Logger
}

// Options bound a run's concurrency and per-adapter fetch time
type Options struct {
	Workers        int
	AdapterTimeout time.Duration
}

// Orchestrator runs adapters and feeds their blocks into the store
type Orchestrator struct {
	adapters   []scraper.Adapter
	extractor  *extract.Extractor
	classifier *classify.Classifier
	store      Store
	notifier   notifier.Notifier
	metrics    *metrics.Metrics
	log        logger.Logger
	opts       Options
	now        func() time.Time
}

// New creates an Orchestrator, filling in default options and collaborators
func New(deps Deps, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = DefaultAdapterTimeout
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.New(extract.DefaultOptions())
	}
	if deps.Classifier == nil {
		deps.Classifier = classify.NewDefault()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	return &Orchestrator{
		adapters:   deps.Adapters,
		extractor:  deps.Extractor,
		classifier: deps.Classifier,
		store:      deps.Store,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		log:        deps.Logger,
		opts:       opts,
		now:        time.Now,
	}
}

// Run executes every adapter once and reports per-source results.
// The only error returned is a store that cannot be reached.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if o.store == nil {
		return nil, fmt.Errorf("no record store configured")
	}
	if err := o.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("record store unavailable: %w", err)
	}

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: o.now().UTC(),
		Sources:   make([]SourceReport, len(o.adapters)),
	}
	log := o.log.With(logger.String("run_id", report.RunID))
	log.Info("run started", logger.Int("adapters", len(o.adapters)), logger.Int("workers", o.opts.Workers))

	var g errgroup.Group
	g.SetLimit(o.opts.Workers)
	for i, a := range o.adapters {
		g.Go(func() error {
			report.Sources[i] = o.runAdapter(ctx, a, log)
			return nil
		})
	}
	_ = g.Wait()

	for _, s := range report.Sources {
		if s.Failed() {
			report.Failures = append(report.Failures, Failure{Source: s.Source, Err: s.Err})
		}
	}
	report.FinishedAt = o.now().UTC()

	o.announce(ctx, report, log)

	totals := report.Totals()
	o.metrics.ObserveRun(report.Status(), report.Duration(), report.FinishedAt)
	log.Info("run finished",
		logger.String("status", report.Status()),
		logger.Int("sources", totals.Sources),
		logger.Int("failed_sources", totals.FailedSources),
		logger.Int("blocks", totals.Blocks),
		logger.Int("inserted", totals.Inserted),
		logger.Int("updated", totals.Updated),
		logger.Int("discarded", totals.ParseErrors+totals.ValidationErrors+totals.PersistenceErrors),
		logger.Duration("duration", report.Duration()),
	)
	return report, nil
}

func (o *Orchestrator) runAdapter(ctx context.Context, a scraper.Adapter, runLog logger.Logger) (sr SourceReport) {
	start := o.now()
	sr = SourceReport{Source: a.Name(), Counts: make(map[Outcome]int)}
	log := runLog.With(logger.String("source", sr.Source))

	defer func() {
		if r := recover(); r != nil {
			sr.Err = fmt.Errorf("adapter panicked: %v", r)
		}
		sr.Duration = o.now().Sub(start)
		if sr.Err != nil {
			log.Error("adapter failed", logger.Err(sr.Err))
		} else {
			log.Info("adapter finished",
				logger.Int("blocks", sr.Blocks),
				logger.Int("inserted", sr.Counts[OutcomeInserted]),
				logger.Int("updated", sr.Counts[OutcomeUpdated]),
				logger.Duration("duration", sr.Duration),
			)
		}
		o.metrics.ObserveAdapter(sr.Source, sr.Duration, sr.Err != nil)
	}()

	blocks, err := o.fetch(ctx, a)
	if err != nil {
		sr.Err = err
		return sr
	}

	sr.Blocks = len(blocks)
	for _, b := range blocks {
		item := o.process(ctx, b, log)
		sr.Counts[item.Outcome]++
		sr.Items = append(sr.Items, item)
		o.metrics.ObserveBlock(sr.Source, string(item.Outcome))
	}
	return sr
}

func (o *Orchestrator) fetch(ctx context.Context, a scraper.Adapter) (blocks []scraper.Block, err error) {
	fctx, cancel := context.WithTimeout(ctx, o.opts.AdapterTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			blocks = nil
			err = fmt.Errorf("adapter panicked: %v", r)
		}
	}()
	return a.Fetch(fctx)
}

func (o *Orchestrator) announce(ctx context.Context, report *Report, log logger.Logger) {
	if o.notifier == nil {
		return
	}
	inserted := report.Inserted()
	if len(inserted) == 0 {
		return
	}
	if err := o.notifier.Notify(ctx, inserted); err != nil {
		log.Error("notification failed", logger.Int("records", len(inserted)), logger.Err(err))
		return
	}
	log.Info("new exams announced", logger.Int("records", len(inserted)))
}
