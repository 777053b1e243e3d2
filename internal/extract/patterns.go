package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// Longer names come first so the alternation never stops at a prefix.
const monthAlt = `january|february|march|april|may|june|july|august|september|october|november|december|` +
	`sept|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec`

const numericDate = `(\d{1,2})\s*[-/.]\s*(\d{1,2})\s*[-/.]\s*(\d{4})\b`

type pattern struct {
	name     string
	re       *regexp.Regexp
	labelled bool
	// day, month and year submatch numbers
	day, month, year int
	named            bool
}

// patterns is ordered most specific first. A later pattern never claims text an
// earlier one already accepted.
var patterns = []pattern{
	{
		name:     "labelled-numeric",
		re:       regexp.MustCompile(`(?i)\b(?:exam(?:ination)?|test|written\s+exam)\s+(?:date|on)\s*[:\-]?\s*` + numericDate),
		labelled: true,
		day:      1, month: 2, year: 3,
	},
	{
		name: "numeric",
		re:   regexp.MustCompile(`\b` + numericDate),
		day:  1, month: 2, year: 3,
	},
	{
		name:  "day-month-year",
		re:    regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthAlt + `)\.?,?\s+(\d{4})\b`),
		day:   1, month: 2, year: 3,
		named: true,
	},
	{
		name:  "month-day-year",
		re:    regexp.MustCompile(`(?i)\b(` + monthAlt + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`),
		day:   2, month: 1, year: 3,
		named: true,
	},
}

func group(text string, m []int, n int) string {
	return text[m[2*n]:m[2*n+1]]
}

// parse converts the submatches of m into a date, rejecting impossible calendar dates.
func (p pattern) parse(text string, m []int) (time.Time, bool) {
	day, err := strconv.Atoi(group(text, m, p.day))
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(group(text, m, p.year))
	if err != nil {
		return time.Time{}, false
	}

	var month time.Month
	if p.named {
		mo, ok := months[strings.ToLower(group(text, m, p.month))]
		if !ok {
			return time.Time{}, false
		}
		month = mo
	} else {
		n, err := strconv.Atoi(group(text, m, p.month))
		if err != nil {
			return time.Time{}, false
		}
		month = time.Month(n)
	}

	return validDate(year, month, day)
}

// validDate rejects dates that time.Date would silently normalize, like 31 February.
func validDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	d := exam.Date(year, month, day)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
