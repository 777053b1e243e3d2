package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/pfrederiksen/exam-events/internal/assemble"
	"github.com/pfrederiksen/exam-events/internal/exam"
	"github.com/pfrederiksen/exam-events/internal/logger"
	"github.com/pfrederiksen/exam-events/internal/scraper"
	"github.com/pfrederiksen/exam-events/internal/storage"
)

// ProcessBlock extracts, classifies, assembles and upserts one block
func (o *Orchestrator) ProcessBlock(ctx context.Context, b scraper.Block) ItemResult {
	return o.process(ctx, b, o.log.With(logger.String("source", b.Source)))
}

func (o *Orchestrator) process(ctx context.Context, b scraper.Block, log logger.Logger) ItemResult {
	item := ItemResult{Title: b.Title}

	text := b.Text
	if strings.TrimSpace(text) == "" {
		text = b.Title
	}

	ex := o.extractor.Extract(text)
	for _, d := range ex.Discarded {
		log.Debug("date mention discarded", logger.String("mention", d.Text), logger.String("reason", d.Reason))
	}
	if !ex.HasDates() {
		item.Outcome = OutcomeParseError
		item.Err = &exam.ParseError{Source: b.Source, Snippet: exam.Snippet(text)}
		o.discard(log, item, text)
		return item
	}

	body := o.classifier.Classify(b.Title, text)
	rec, err := assemble.Assemble(assemble.Candidate{
		Source:      b.Source,
		Title:       b.Title,
		Text:        text,
		Link:        b.Link,
		PageURL:     b.PageURL,
		DefaultBody: b.DefaultBody,
	}, ex, body)
	if err != nil {
		item.Outcome = OutcomeValidationError
		item.Err = err
		o.discard(log, item, text)
		return item
	}
	item.Key = rec.Key()
	item.Warnings = assemble.Warnings(rec)
	for _, w := range item.Warnings {
		log.Warn("suspicious record accepted", logger.String("key", item.Key.String()), logger.String("reason", w))
	}

	res, err := o.store.Upsert(ctx, rec)
	if err != nil {
		item.Outcome = OutcomePersistenceError
		item.Err = err
		o.discard(log, item, text)
		return item
	}

	stored := res.Record
	item.Record = &stored
	item.Changes = res.Changes
	if res.Outcome == storage.Updated {
		item.Outcome = OutcomeUpdated
		o.logChanges(log, item)
	} else {
		item.Outcome = OutcomeInserted
		log.Debug("record inserted", logger.String("key", item.Key.String()))
	}
	return item
}

func (o *Orchestrator) discard(log logger.Logger, item ItemResult, text string) {
	fields := []logger.Field{
		logger.String("outcome", string(item.Outcome)),
		logger.String("snippet", exam.Snippet(text)),
		logger.String("reason", reason(item.Err)),
	}
	if item.Key.ExamName != "" {
		fields = append(fields, logger.String("key", item.Key.String()))
	}
	log.Warn("block discarded", fields...)
}

func (o *Orchestrator) logChanges(log logger.Logger, item ItemResult) {
	if len(item.Changes) == 0 {
		log.Debug("record refreshed", logger.String("key", item.Key.String()))
		return
	}
	var changed, erased []string
	for _, c := range item.Changes {
		changed = append(changed, c.Field)
		if c.Erased() {
			erased = append(erased, c.Field)
		}
	}
	fields := []logger.Field{logger.String("key", item.Key.String()), logger.Strings("changed", changed)}
	if len(erased) > 0 {
		log.Warn("record overwritten with missing fields", append(fields, logger.Strings("erased", erased))...)
		return
	}
	log.Info("record updated", fields...)
}

func reason(err error) string {
	var (
		pe *exam.ParseError
		ve *exam.ValidationError
		se *exam.PersistenceError
	)
	switch {
	case errors.As(err, &pe):
		return "no date pattern matched"
	case errors.As(err, &ve):
		return "missing " + ve.Field
	case errors.As(err, &se):
		return se.Error()
	case err != nil:
		return err.Error()
	default:
		return ""
	}
}
