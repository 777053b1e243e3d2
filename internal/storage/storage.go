package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/pfrederiksen/exam-events/internal/exam"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	// DefaultDSN is the SQLite database used when none is configured
	DefaultDSN = "exam-events.db"

	defaultPingTimeout     = 5 * time.Second
	defaultMaxOpenConns    = 10
	defaultConnMaxLifetime = 5 * time.Minute
)

// ErrNotFound is returned when no record matches a natural key
var ErrNotFound = errors.New("exam not found")

// Config selects the database backend
type Config struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Store handles persistence of exam records
type Store struct {
	db    *sqlx.DB
	locks *keyLocks
	now   func() time.Time
}

// Option customizes a Store
type Option func(*Store)

// WithClock replaces time.Now for created_at/updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	dsn := cfg.DSN
	if dsn == "" && driver == DriverSQLite {
		dsn = DefaultDSN
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection queues writers instead of failing them.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(defaultMaxOpenConns)
		db.SetConnMaxLifetime(defaultConnMaxLifetime)
	}

	s := NewWithDB(db, opts...)
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection. The schema is not created; call Migrate.
func NewWithDB(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		locks: newKeyLocks(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the exams table and its indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.db.DriverName() == DriverPostgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS exams (
			id %s,
			exam_name TEXT NOT NULL,
			conducting_body TEXT NOT NULL,
			exam_date DATE NOT NULL,
			application_start DATE,
			application_end DATE,
			official_link TEXT NOT NULL DEFAULT '',
			source_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`, idColumn),
		`CREATE UNIQUE INDEX IF NOT EXISTS exams_natural_key ON exams (exam_name, conducting_body, exam_date)`,
		`CREATE INDEX IF NOT EXISTS exams_exam_date ON exams (exam_date)`,
		`CREATE INDEX IF NOT EXISTS exams_conducting_body ON exams (conducting_body)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	return nil
}

// examRow mirrors the exams table
type examRow struct {
	ID               int64        `db:"id"`
	ExamName         string       `db:"exam_name"`
	ConductingBody   string       `db:"conducting_body"`
	ExamDate         time.Time    `db:"exam_date"`
	ApplicationStart sql.NullTime `db:"application_start"`
	ApplicationEnd   sql.NullTime `db:"application_end"`
	OfficialLink     string       `db:"official_link"`
	SourceURL        string       `db:"source_url"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
}

const examColumns = `id, exam_name, conducting_body, exam_date, application_start, application_end,
	official_link, source_url, created_at, updated_at`

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: exam.DateOf(*t), Valid: true}
}

func (r examRow) record() exam.Record {
	rec := exam.Record{
		ID:             r.ID,
		ExamName:       r.ExamName,
		ConductingBody: exam.Body(r.ConductingBody),
		ExamDate:       exam.DateOf(r.ExamDate),
		OfficialLink:   r.OfficialLink,
		SourceURL:      r.SourceURL,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
	if r.ApplicationStart.Valid {
		rec.ApplicationStart = exam.DatePtr(r.ApplicationStart.Time)
	}
	if r.ApplicationEnd.Valid {
		rec.ApplicationEnd = exam.DatePtr(r.ApplicationEnd.Time)
	}
	return rec
}

func records(rows []examRow) []exam.Record {
	out := make([]exam.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out
}
