// Package seed loads curated exam records from YAML and writes them through
// the same upsert path scraped records take.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/exam-events/internal/exam"
	"github.com/pfrederiksen/exam-events/internal/logger"
	"github.com/pfrederiksen/exam-events/internal/storage"
)

// Upserter is the store operation seeding needs
type Upserter interface {
	Upsert(ctx context.Context, rec exam.Record) (storage.UpsertResult, error)
}

// File is the seed file layout
type File struct {
	Exams []Entry `yaml:"exams"`
}

// Entry is one seeded exam. Dates use the YYYY-MM-DD form.
type Entry struct {
	ExamName         string `yaml:"exam_name"`
	ConductingBody   string `yaml:"conducting_body"`
	ExamDate         string `yaml:"exam_date"`
	ApplicationStart string `yaml:"application_start,omitempty"`
	ApplicationEnd   string `yaml:"application_end,omitempty"`
	OfficialLink     string `yaml:"official_link,omitempty"`
	SourceURL        string `yaml:"source_url,omitempty"`
}

// Summary counts what Apply did
type Summary struct {
	Inserted int
	Updated  int
	Failed   int
}

// LoadFile reads and validates a seed file
func LoadFile(path string) ([]exam.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes seed YAML. Every entry must carry a name, a known body and an exam date;
// the first invalid entry fails the whole file.
func Load(r io.Reader) ([]exam.Record, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding seed file: %w", err)
	}

	records := make([]exam.Record, 0, len(file.Exams))
	for i, e := range file.Exams {
		rec, err := e.Record()
		if err != nil {
			return nil, fmt.Errorf("exam %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Record converts an entry into a normalized exam record
func (e Entry) Record() (exam.Record, error) {
	name := strings.Join(strings.Fields(e.ExamName), " ")
	if name == "" {
		return exam.Record{}, fmt.Errorf("exam_name is required")
	}

	body := exam.BodyOther
	if strings.TrimSpace(e.ConductingBody) != "" {
		b, err := exam.ParseBody(e.ConductingBody)
		if err != nil {
			return exam.Record{}, fmt.Errorf("%s: %w", name, err)
		}
		body = b
	}

	examDate, err := parseDate(e.ExamDate)
	if err != nil {
		return exam.Record{}, fmt.Errorf("%s: exam_date: %w", name, err)
	}
	if examDate == nil {
		return exam.Record{}, fmt.Errorf("%s: exam_date is required", name)
	}
	start, err := parseDate(e.ApplicationStart)
	if err != nil {
		return exam.Record{}, fmt.Errorf("%s: application_start: %w", name, err)
	}
	end, err := parseDate(e.ApplicationEnd)
	if err != nil {
		return exam.Record{}, fmt.Errorf("%s: application_end: %w", name, err)
	}

	return exam.Record{
		ExamName:         name,
		ConductingBody:   body,
		ExamDate:         *examDate,
		ApplicationStart: start,
		ApplicationEnd:   end,
		OfficialLink:     strings.TrimSpace(e.OfficialLink),
		SourceURL:        strings.TrimSpace(e.SourceURL),
	}, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(exam.DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("want YYYY-MM-DD, got %q", s)
	}
	return exam.DatePtr(t), nil
}

// Apply upserts every record. A failed upsert is logged and counted, and the
// remaining records are still written; the error returned is the first failure.
func Apply(ctx context.Context, store Upserter, records []exam.Record, log logger.Logger) (Summary, error) {
	var sum Summary
	var firstErr error
	for _, rec := range records {
		res, err := store.Upsert(ctx, rec)
		if err != nil {
			sum.Failed++
			if firstErr == nil {
				firstErr = err
			}
			log.Warn("seed record not stored", logger.String("key", rec.Key().String()), logger.Err(err))
			continue
		}
		if res.Outcome == storage.Inserted {
			sum.Inserted++
		} else {
			sum.Updated++
		}
	}
	log.Info("seed applied",
		logger.Int("inserted", sum.Inserted),
		logger.Int("updated", sum.Updated),
		logger.Int("failed", sum.Failed),
	)
	return sum, firstErr
}
