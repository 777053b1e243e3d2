package exam

import "time"

// DateLayout is the canonical textual form of a calendar date
const DateLayout = "2006-01-02"

// Date returns the calendar date y-m-d at UTC midnight
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf returns the calendar date of t (in t's location) at UTC midnight.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return Date(t.Year(), t.Month(), t.Day())
}

// DatePtr returns a pointer to the normalized date
func DatePtr(t time.Time) *time.Time {
	d := DateOf(t)
	return &d
}

// IsUpcoming checks if the exam falls on or after the day of now.
func (r Record) IsUpcoming(now time.Time) bool {
	return !r.ExamDate.Before(DateOf(now))
}

// IsWithinDays checks if the exam is between today and today+days inclusive.
// Returns false if days < 0.
func (r Record) IsWithinDays(now time.Time, days int) bool {
	if days < 0 {
		return false
	}
	today := DateOf(now)
	cutoff := today.AddDate(0, 0, days)
	return !r.ExamDate.Before(today) && !r.ExamDate.After(cutoff)
}

// ApplicationWindowInverted reports an application window that closes before it opens.
// Sources do not guarantee ordering, so this is surfaced as a warning only.
func (r Record) ApplicationWindowInverted() bool {
	if r.ApplicationStart == nil || r.ApplicationEnd == nil {
		return false
	}
	return r.ApplicationEnd.Before(*r.ApplicationStart)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
