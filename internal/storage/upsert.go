package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

// Outcome says whether an upsert created or overwrote a record
type Outcome string

const (
	Inserted Outcome = "inserted"
	Updated  Outcome = "updated"
)

// UpsertResult describes one completed upsert.
type UpsertResult struct {
	Outcome Outcome
	Record  exam.Record
	// Previous is the stored record before an update; nil on insert.
	Previous *exam.Record
	// Changes lists the fields an update overwrote.
	Changes []exam.FieldChange
}

const upsertSQL = `INSERT INTO exams (exam_name, conducting_body, exam_date, application_start, application_end,
	official_link, source_url, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (exam_name, conducting_body, exam_date) DO UPDATE SET
	application_start = excluded.application_start,
	application_end = excluded.application_end,
	official_link = excluded.official_link,
	source_url = excluded.source_url,
	updated_at = excluded.updated_at
RETURNING id`

// Upsert inserts rec or fully overwrites the stored record with the same natural key.
//
// Every non-key field is replaced, including application dates the new observation lacks.
// created_at is kept from the first insert and updated_at strictly increases on each write.
// On failure the transaction is rolled back and a *exam.PersistenceError is returned.
func (s *Store) Upsert(ctx context.Context, rec exam.Record) (UpsertResult, error) {
	rec = rec.Normalize()
	key := rec.Key()

	unlock := s.locks.lock(key)
	defer unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return UpsertResult{}, &exam.PersistenceError{Key: key, Op: "begin", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	prev, err := s.getTx(ctx, tx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return UpsertResult{}, &exam.PersistenceError{Key: key, Op: "lookup", Err: err}
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	result := UpsertResult{Outcome: Inserted}
	rec.CreatedAt = now
	if prev != nil {
		result.Outcome = Updated
		result.Previous = prev
		rec.CreatedAt = prev.CreatedAt
		if !now.After(prev.UpdatedAt) {
			now = prev.UpdatedAt.Add(time.Microsecond)
		}
	}
	rec.UpdatedAt = now

	var id int64
	err = tx.QueryRowxContext(ctx, tx.Rebind(upsertSQL),
		rec.ExamName, string(rec.ConductingBody), rec.ExamDate,
		nullTime(rec.ApplicationStart), nullTime(rec.ApplicationEnd),
		rec.OfficialLink, rec.SourceURL, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return UpsertResult{}, &exam.PersistenceError{Key: key, Op: "upsert", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, &exam.PersistenceError{Key: key, Op: "commit", Err: err}
	}

	rec.ID = id
	result.Record = rec
	if prev != nil {
		result.Changes = exam.DetectChanges(*prev, rec)
	}
	return result, nil
}

func (s *Store) getTx(ctx context.Context, q sqlx.QueryerContext, key exam.NaturalKey) (*exam.Record, error) {
	var row examRow
	err := sqlx.GetContext(ctx, q, &row, s.db.Rebind(`SELECT `+examColumns+` FROM exams
		WHERE exam_name = ? AND conducting_body = ? AND exam_date = ?`),
		key.ExamName, string(key.Body), exam.DateOf(key.ExamDate))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec := row.record()
	return &rec, nil
}

// Get returns the record stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key exam.NaturalKey) (*exam.Record, error) {
	return s.getTx(ctx, s.db, key)
}
