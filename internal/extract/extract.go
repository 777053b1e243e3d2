package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Role is the meaning assigned to a date mention
type Role string

const (
	RoleNone             Role = ""
	RoleExam             Role = "exam"
	RoleApplicationStart Role = "application_start"
	RoleApplicationEnd   Role = "application_end"
)

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// Options configures an Extractor for one run.
type Options struct {
	// YearFloor discards mentions dated before this year.
	// Zero means the current year; a negative value disables the floor.
	YearFloor int
	// Window is the number of runes inspected on each side of a mention.
	Window int
	// ExamKeywords mark a mention as the exam date.
	ExamKeywords []string
	// ApplicationKeywords mark a mention as part of the application window.
	ApplicationKeywords []string
	// StartKeywords turn an application mention into the window start.
	StartKeywords []string
}

// DefaultOptions returns the standard keyword tables with a 100 rune window.
func DefaultOptions() Options {
	return Options{
		Window:              100,
		ExamKeywords:        []string{"exam", "test", "written", "mains", "prelims"},
		ApplicationKeywords: []string{"application", "apply", "last date", "deadline"},
		StartKeywords:       []string{"start", "begin"},
	}
}

// Mention is one date found in a text block. Start and End are rune offsets.
type Mention struct {
	Text    string    `json:"text"`
	Date    time.Time `json:"date"`
	Start   int       `json:"start"`
	End     int       `json:"end"`
	Role    Role      `json:"role"`
	Pattern string    `json:"pattern"`
}

// found tracks the byte span of an accepted mention while roles are resolved.
// from is where the whole match begins, including any label.
type found struct {
	Mention
	from, start, end int
	labelled         bool
}

// Discard records a date-like substring that was rejected.
type Discard struct {
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// Extraction is the result of scanning one text block.
type Extraction struct {
	Mentions         []Mention  `json:"mentions"`
	Discarded        []Discard  `json:"discarded,omitempty"`
	ExamDate         *time.Time `json:"exam_date,omitempty"`
	ApplicationStart *time.Time `json:"application_start,omitempty"`
	ApplicationEnd   *time.Time `json:"application_end,omitempty"`
}

// HasDates reports whether any date pattern produced an accepted mention.
func (e Extraction) HasDates() bool {
	return len(e.Mentions) > 0
}

// Extractor is safe for concurrent use once built.
type Extractor struct {
	yearFloor int
	window    int
	examRe    *regexp.Regexp
	appRe     *regexp.Regexp
	startRe   *regexp.Regexp
}

// New builds an Extractor from opts.
func New(opts Options) *Extractor {
	floor := opts.YearFloor
	if floor == 0 {
		floor = time.Now().Year()
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultOptions().Window
	}
	return &Extractor{
		yearFloor: floor,
		window:    window,
		examRe:    keywordPattern(opts.ExamKeywords),
		appRe:     keywordPattern(opts.ApplicationKeywords),
		startRe:   keywordPattern(opts.StartKeywords),
	}
}

// YearFloor returns the effective year floor.
func (x *Extractor) YearFloor() int {
	return x.yearFloor
}

// Extract scans text and returns every accepted mention with its role.
// Invalid or out-of-range dates are reported in Discarded and never returned as errors.
//
// A labelled exam date claims the exam role before any unlabelled mention is resolved.
// The remaining mentions are then resolved in text order.
func (x *Extractor) Extract(text string) Extraction {
	var result Extraction

	var accepted []found
	var rejected []span
	for _, p := range patterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			from, start, end := m[0], m[2], m[len(m)-1]
			if overlaps(accepted, from, end) || rejectedBefore(rejected, start, end) {
				continue
			}
			raw := text[start:end]

			date, ok := p.parse(text, m)
			if !ok {
				rejected = append(rejected, span{start, end})
				result.Discarded = append(result.Discarded, Discard{Text: raw, Reason: "invalid calendar date"})
				continue
			}
			if x.yearFloor > 0 && date.Year() < x.yearFloor {
				rejected = append(rejected, span{start, end})
				result.Discarded = append(result.Discarded, Discard{Text: raw, Reason: "before year floor " + strconv.Itoa(x.yearFloor)})
				continue
			}

			f := found{
				Mention:  Mention{Text: raw, Date: date, Pattern: p.name},
				from:     from,
				start:    start,
				end:      end,
				labelled: p.labelled,
			}
			if p.labelled {
				f.Role = RoleExam
			}
			accepted = append(accepted, f)
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].start < accepted[j].start })

	for i := range accepted {
		if accepted[i].labelled {
			date := accepted[i].Date
			result.ExamDate = &date
			break
		}
	}

	for i := range accepted {
		f := &accepted[i]
		if !f.labelled {
			f.Role = x.inferRole(text, accepted, i, result.ExamDate != nil)
		}

		date := f.Date
		switch f.Role {
		case RoleExam:
			if result.ExamDate == nil {
				result.ExamDate = &date
			}
		case RoleApplicationStart:
			if result.ApplicationStart == nil {
				result.ApplicationStart = &date
			}
		case RoleApplicationEnd:
			if result.ApplicationEnd == nil {
				result.ApplicationEnd = &date
			}
		}
	}

	for _, f := range accepted {
		m := f.Mention
		m.Start = utf8.RuneCountInString(text[:f.start])
		m.End = m.Start + utf8.RuneCountInString(text[f.start:f.end])
		result.Mentions = append(result.Mentions, m)
	}
	return result
}

// inferRole looks at the context before the mention, then after it.
// The context never reaches past a neighbouring mention or into its label.
func (x *Extractor) inferRole(text string, mentions []found, i int, haveExam bool) Role {
	lowerBound := 0
	if i > 0 {
		lowerBound = mentions[i-1].end
	}
	upperBound := len(text)
	if i+1 < len(mentions) {
		upperBound = mentions[i+1].from
	}

	m := mentions[i]
	leading := text[backRunes(text, m.start, lowerBound, x.window):m.start]
	if role := x.roleFromContext(leading); role != RoleNone {
		return role
	}
	trailing := text[m.end:forwardRunes(text, m.end, upperBound, x.window)]
	if role := x.roleFromContext(trailing); role != RoleNone {
		return role
	}

	if !haveExam {
		return RoleExam
	}
	return RoleNone
}

func (x *Extractor) roleFromContext(context string) Role {
	if matches(x.examRe, context) {
		return RoleExam
	}
	if matches(x.appRe, context) {
		if matches(x.startRe, context) {
			return RoleApplicationStart
		}
		return RoleApplicationEnd
	}
	return RoleNone
}

// keywordPattern matches any of words at a word start, case-insensitively.
func keywordPattern(words []string) *regexp.Regexp {
	var alts []string
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		parts := strings.Fields(w)
		for i := range parts {
			parts[i] = regexp.QuoteMeta(parts[i])
		}
		alts = append(alts, strings.Join(parts, `\s+`))
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)`)
}

func matches(re *regexp.Regexp, s string) bool {
	return re != nil && re.MatchString(s)
}

type span struct{ start, end int }

// rejectedBefore reports whether exactly this span was already discarded by an earlier pattern.
func rejectedBefore(rejected []span, start, end int) bool {
	for _, r := range rejected {
		if r.start == start && r.end == end {
			return true
		}
	}
	return false
}

func overlaps(accepted []found, start, end int) bool {
	for _, m := range accepted {
		if start < m.end && m.from < end {
			return true
		}
	}
	return false
}

// backRunes steps n runes back from pos without crossing limit.
func backRunes(text string, pos, limit, n int) int {
	for ; n > 0 && pos > limit; n-- {
		_, size := utf8.DecodeLastRuneInString(text[:pos])
		pos -= size
	}
	if pos < limit {
		pos = limit
	}
	return pos
}

// forwardRunes steps n runes forward from pos without crossing limit.
func forwardRunes(text string, pos, limit, n int) int {
	for ; n > 0 && pos < limit; n-- {
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
	}
	if pos > limit {
		pos = limit
	}
	return pos
}
