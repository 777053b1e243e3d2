package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

// newTestStore opens a migrated SQLite database in a temp dir.
func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	ctx := context.Background()
	s, err := Open(ctx, Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "exams.db")}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(ctx))
	return s
}

// fixedClock returns the same instant on every call.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sampleRecord(name string, body exam.Body, date time.Time) exam.Record {
	return exam.Record{
		ExamName:       name,
		ConductingBody: body,
		ExamDate:       date,
		OfficialLink:   "https://example.gov.in/" + name,
		SourceURL:      "https://example.gov.in/notices",
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestUpsert_InsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithClock(fixedClock(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC))))

	rec := sampleRecord("UPSC CSE Prelims 2025", exam.BodyUPSC, exam.Date(2025, time.May, 25))
	rec.OfficialLink = "https://upsc.gov.in/first"

	first, err := s.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, Inserted, first.Outcome)
	assert.NotZero(t, first.Record.ID)
	assert.Nil(t, first.Previous)
	assert.Equal(t, first.Record.CreatedAt, first.Record.UpdatedAt)

	rec.OfficialLink = "https://upsc.gov.in/second"
	second, err := s.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, Updated, second.Outcome)
	assert.Equal(t, first.Record.ID, second.Record.ID)

	n, err := s.Count(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored, err := s.Get(ctx, rec.Key())
	require.NoError(t, err)
	assert.Equal(t, "https://upsc.gov.in/second", stored.OfficialLink)
	assert.True(t, stored.CreatedAt.Equal(first.Record.CreatedAt), "created_at must be preserved")
	assert.True(t, stored.UpdatedAt.After(first.Record.UpdatedAt),
		"updated_at must strictly increase: %v then %v", first.Record.UpdatedAt, stored.UpdatedAt)

	require.Len(t, second.Changes, 1)
	assert.Equal(t, "official_link", second.Changes[0].Field)
}

func TestUpsert_UpdatedAtStrictlyIncreases(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithClock(fixedClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))))

	rec := sampleRecord("SSC CGL 2025", exam.BodySSC, exam.Date(2025, time.July, 1))
	var last time.Time
	for i := 0; i < 5; i++ {
		rec.OfficialLink = fmt.Sprintf("https://ssc.nic.in/%d", i)
		res, err := s.Upsert(ctx, rec)
		require.NoError(t, err)
		if i > 0 {
			assert.True(t, res.Record.UpdatedAt.After(last), "write %d: %v not after %v", i, res.Record.UpdatedAt, last)
		}
		last = res.Record.UpdatedAt
	}

	stored, err := s.Get(ctx, rec.Key())
	require.NoError(t, err)
	assert.True(t, stored.UpdatedAt.Equal(last))
}

func TestUpsert_FullOverwriteErasesApplicationWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	start := exam.Date(2025, time.March, 1)
	end := exam.Date(2025, time.March, 31)
	rec := sampleRecord("IBPS PO 2025", exam.BodyIBPS, exam.Date(2025, time.October, 4))
	rec.ApplicationStart = &start
	rec.ApplicationEnd = &end
	_, err := s.Upsert(ctx, rec)
	require.NoError(t, err)

	weaker := sampleRecord("IBPS PO 2025", exam.BodyIBPS, exam.Date(2025, time.October, 4))
	res, err := s.Upsert(ctx, weaker)
	require.NoError(t, err)

	stored, err := s.Get(ctx, rec.Key())
	require.NoError(t, err)
	assert.Nil(t, stored.ApplicationStart)
	assert.Nil(t, stored.ApplicationEnd)

	erased := 0
	for _, c := range res.Changes {
		if c.Erased() {
			erased++
		}
	}
	assert.Equal(t, 2, erased, "both application dates should be reported as erased")
}

func TestUpsert_DifferentDateIsDistinctRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Upsert(ctx, sampleRecord("RRB NTPC CBT", exam.BodyRailway, exam.Date(2025, time.June, 5)))
	require.NoError(t, err)
	res, err := s.Upsert(ctx, sampleRecord("RRB NTPC CBT", exam.BodyRailway, exam.Date(2025, time.June, 6)))
	require.NoError(t, err)
	assert.Equal(t, Inserted, res.Outcome)

	n, err := s.Count(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUpsert_KeyIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	date := exam.Date(2025, time.June, 5)
	_, err := s.Upsert(ctx, sampleRecord("SSC CHSL", exam.BodySSC, date))
	require.NoError(t, err)
	res, err := s.Upsert(ctx, sampleRecord("SSC Chsl", exam.BodySSC, date))
	require.NoError(t, err)
	assert.Equal(t, Inserted, res.Outcome)
}

func TestUpsert_NormalizesDates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ist := time.FixedZone("IST", 5*3600+1800)
	rec := sampleRecord("NEET UG", exam.BodyMedical, time.Date(2025, time.May, 4, 14, 0, 0, 0, ist))
	_, err := s.Upsert(ctx, rec)
	require.NoError(t, err)

	stored, err := s.Get(ctx, exam.NaturalKey{ExamName: "NEET UG", Body: exam.BodyMedical, ExamDate: exam.Date(2025, time.May, 4)})
	require.NoError(t, err)
	assert.True(t, stored.ExamDate.Equal(exam.Date(2025, time.May, 4)))
}

func TestUpsert_ConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := sampleRecord("SBI Clerk Mains", exam.BodySBI, exam.Date(2025, time.November, 9))
			rec.OfficialLink = fmt.Sprintf("https://sbi.co.in/%d", i)
			if _, err := s.Upsert(ctx, rec); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Upsert() error = %v", err)
	}

	n, err := s.Count(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), exam.NaturalKey{ExamName: "missing", Body: exam.BodyOther, ExamDate: exam.Date(2025, 1, 1)})
	assert.True(t, errors.Is(err, ErrNotFound), "Get() error = %v, want ErrNotFound", err)
}

func seedStore(t *testing.T, s *Store) {
	t.Helper()
	recs := []exam.Record{
		sampleRecord("UPSC CSE Prelims", exam.BodyUPSC, exam.Date(2025, time.May, 25)),
		sampleRecord("SSC CGL Tier 1", exam.BodySSC, exam.Date(2025, time.June, 10)),
		sampleRecord("SSC CHSL Tier 1", exam.BodySSC, exam.Date(2025, time.June, 20)),
		sampleRecord("IBPS Clerk Prelims", exam.BodyIBPS, exam.Date(2025, time.August, 23)),
		sampleRecord("Old Railway Exam", exam.BodyRailway, exam.Date(2024, time.December, 1)),
	}
	for _, r := range recs {
		_, err := s.Upsert(context.Background(), r)
		require.NoError(t, err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedStore(t, s)

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{
			name:  "all ordered by date",
			query: Query{},
			want:  []string{"Old Railway Exam", "UPSC CSE Prelims", "SSC CGL Tier 1", "SSC CHSL Tier 1", "IBPS Clerk Prelims"},
		},
		{
			name:  "date range inclusive",
			query: Query{From: exam.Date(2025, time.May, 25), To: exam.Date(2025, time.June, 20)},
			want:  []string{"UPSC CSE Prelims", "SSC CGL Tier 1", "SSC CHSL Tier 1"},
		},
		{
			name:  "body filter",
			query: Query{Body: exam.BodySSC},
			want:  []string{"SSC CGL Tier 1", "SSC CHSL Tier 1"},
		},
		{
			name:  "name search is case-insensitive",
			query: Query{NameContains: "prelims"},
			want:  []string{"UPSC CSE Prelims", "IBPS Clerk Prelims"},
		},
		{
			name:  "limit",
			query: Query{From: exam.Date(2025, time.January, 1), Limit: 2},
			want:  []string{"UPSC CSE Prelims", "SSC CGL Tier 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.query)
			require.NoError(t, err)

			names := make([]string, 0, len(got))
			for _, r := range got {
				names = append(names, r.ExamName)
			}
			assert.Equal(t, tt.want, names)

			n, err := s.Count(ctx, Query{From: tt.query.From, To: tt.query.To, Body: tt.query.Body, NameContains: tt.query.NameContains})
			require.NoError(t, err)
			if tt.query.Limit == 0 {
				assert.Equal(t, int64(len(tt.want)), n)
			}
		})
	}
}

func TestUpcoming(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedStore(t, s)

	now := time.Date(2025, time.June, 1, 15, 30, 0, 0, time.UTC)
	got, err := s.Upcoming(ctx, now, 30)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "SSC CGL Tier 1", got[0].ExamName)
	assert.Equal(t, "SSC CHSL Tier 1", got[1].ExamName)

	all, err := s.Upcoming(ctx, now, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCountByBody(t *testing.T) {
	s := newTestStore(t)
	seedStore(t, s)

	got, err := s.CountByBody(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[exam.Body]int64{
		exam.BodyUPSC:    1,
		exam.BodySSC:     2,
		exam.BodyIBPS:    1,
		exam.BodyRailway: 1,
	}, got)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	seedStore(t, s)

	st, err := s.Stats(context.Background(), time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(5), st.Total)
	assert.Equal(t, int64(2), st.Upcoming)
	assert.Equal(t, int64(2), st.ThisMonth)
	assert.Equal(t, int64(2), st.ByBody[exam.BodySSC])
	assert.Len(t, st.Recent, 5)
}

func TestDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedStore(t, s)

	n, err := s.DeleteOlderThan(ctx, exam.Date(2025, time.June, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := s.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, left, 3)
	assert.Equal(t, "SSC CGL Tier 1", left[0].ExamName, "cutoff day itself is kept")
}
