package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

// Query filters stored records. Zero values mean "no constraint".
type Query struct {
	// From and To bound exam_date inclusively
	From time.Time
	To   time.Time
	Body exam.Body
	// NameContains is a case-insensitive substring of exam_name
	NameContains string
	Limit        int
}

func (q Query) where() (string, []interface{}) {
	var conds []string
	var args []interface{}

	if !q.From.IsZero() {
		conds = append(conds, "exam_date >= ?")
		args = append(args, exam.DateOf(q.From))
	}
	if !q.To.IsZero() {
		conds = append(conds, "exam_date <= ?")
		args = append(args, exam.DateOf(q.To))
	}
	if q.Body != "" {
		conds = append(conds, "conducting_body = ?")
		args = append(args, string(q.Body))
	}
	if term := strings.TrimSpace(q.NameContains); term != "" {
		conds = append(conds, "LOWER(exam_name) LIKE LOWER(?)")
		args = append(args, "%"+term+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns records matching q ordered by exam date, then name.
func (s *Store) List(ctx context.Context, q Query) ([]exam.Record, error) {
	where, args := q.where()
	query := `SELECT ` + examColumns + ` FROM exams` + where + ` ORDER BY exam_date ASC, exam_name ASC`
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	var rows []examRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing exams: %w", err)
	}
	return records(rows), nil
}

// Upcoming returns exams dated from today through today+days.
// days <= 0 returns every exam from today on.
func (s *Store) Upcoming(ctx context.Context, now time.Time, days int) ([]exam.Record, error) {
	today := exam.DateOf(now)
	q := Query{From: today}
	if days > 0 {
		q.To = today.AddDate(0, 0, days)
	}
	return s.List(ctx, q)
}

// Count returns the number of records matching q
func (s *Store) Count(ctx context.Context, q Query) (int64, error) {
	where, args := q.where()
	var n int64
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM exams`+where), args...); err != nil {
		return 0, fmt.Errorf("counting exams: %w", err)
	}
	return n, nil
}

// CountByBody returns the number of records per conducting body
func (s *Store) CountByBody(ctx context.Context) (map[exam.Body]int64, error) {
	var rows []struct {
		Body  string `db:"conducting_body"`
		Count int64  `db:"n"`
	}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT conducting_body, COUNT(*) AS n FROM exams GROUP BY conducting_body ORDER BY conducting_body`)
	if err != nil {
		return nil, fmt.Errorf("counting exams by body: %w", err)
	}

	counts := make(map[exam.Body]int64, len(rows))
	for _, r := range rows {
		counts[exam.Body(r.Body)] = r.Count
	}
	return counts, nil
}

// Stats summarizes the store for dashboards and the stats command.
type Stats struct {
	Total     int64               `json:"total"`
	Upcoming  int64               `json:"upcoming"`
	ThisMonth int64               `json:"this_month"`
	ByBody    map[exam.Body]int64 `json:"by_body"`
	Recent    []exam.Record       `json:"recent"`
}

const recentLimit = 5

// Stats computes totals relative to now.
func (s *Store) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	today := exam.DateOf(now)
	monthStart := exam.Date(today.Year(), today.Month(), 1)
	monthEnd := monthStart.AddDate(0, 1, -1)

	var st Stats
	var err error
	if st.Total, err = s.Count(ctx, Query{}); err != nil {
		return nil, err
	}
	if st.Upcoming, err = s.Count(ctx, Query{From: today}); err != nil {
		return nil, err
	}
	if st.ThisMonth, err = s.Count(ctx, Query{From: monthStart, To: monthEnd}); err != nil {
		return nil, err
	}
	if st.ByBody, err = s.CountByBody(ctx); err != nil {
		return nil, err
	}

	var rows []examRow
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT `+examColumns+` FROM exams
		ORDER BY updated_at DESC, id DESC LIMIT ?`), recentLimit)
	if err != nil {
		return nil, fmt.Errorf("loading recent exams: %w", err)
	}
	st.Recent = records(rows)
	return &st, nil
}

// DeleteOlderThan removes exams dated before cutoff and returns how many were removed.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM exams WHERE exam_date < ?`), exam.DateOf(cutoff))
	if err != nil {
		return 0, fmt.Errorf("deleting exams before %s: %w", cutoff.Format(exam.DateLayout), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted exams: %w", err)
	}
	return n, nil
}
