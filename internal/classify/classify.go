// Package classify maps notice titles and text to the conducting body that runs the exam.
//
// Every source shares one ordered rule table. Keyword sets overlap ("BANK" shows up in
// IBPS, SBI and general banking notices), so the first rule with a hit wins and the table
// order is part of the contract.
package classify

import (
	"strings"
	"sync"
	"unicode"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

// Rule pairs a conducting body with the keywords that identify it.
//
// Keywords match case-insensitively anywhere in the text, so "SSC" also matches "HSSC".
// A keyword ending in a space must match a whole word, so "PO " matches "SBI PO 2025"
// but not "POST" or "IPO".
type Rule struct {
	Body     exam.Body
	Keywords []string
}

// DefaultRules returns the shared rule table in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{Body: exam.BodyUPSC, Keywords: []string{
			"UPSC", "UNION PUBLIC SERVICE", "CIVIL SERVICE", "IAS ", "IFS ", "ENGINEERING SERVICE",
			"CDS ", "CAPF", "NDA ", "COMBINED MEDICAL SERVICE",
		}},
		{Body: exam.BodyStatePSC, Keywords: []string{
			"PUBLIC SERVICE COMMISSION", "STATE PSC", "BPSC", "MPSC", "RPSC", "UPPSC", "TNPSC",
			"KPSC", "HPSC", "APPSC", "TSPSC", "WBPSC", "OPSC", "GPSC", "PPSC", "JPSC", "CGPSC",
			"MPPSC", "UKPSC", "KERALA PSC",
		}},
		{Body: exam.BodySSC, Keywords: []string{
			"SSC", "STAFF SELECTION", "CGL", "CHSL", "MTS ", "GD CONSTABLE", "STENOGRAPHER",
		}},
		{Body: exam.BodyIBPS, Keywords: []string{
			"IBPS", "INSTITUTE OF BANKING PERSONNEL", "RRB PO", "RRB CLERK",
		}},
		{Body: exam.BodySBI, Keywords: []string{
			"SBI", "STATE BANK OF INDIA",
		}},
		{Body: exam.BodyRailway, Keywords: []string{
			"RAILWAY", "RRB", "RRC ", "NTPC", "INDIAN RAILWAYS", "ALP ", "GROUP D",
		}},
		{Body: exam.BodyPolice, Keywords: []string{
			"POLICE", "CONSTABLE", "SI ", "SUB INSPECTOR",
		}},
		{Body: exam.BodyDefence, Keywords: []string{
			"DEFENCE", "DEFENSE", "ARMY", "NAVY", "AIR FORCE", "AIRFORCE", "AGNIVEER", "AFCAT",
			"COAST GUARD",
		}},
		{Body: exam.BodyTeaching, Keywords: []string{
			"TEACHER", "TEACHING", "CTET", "TET ", "KVS ", "NVS ", "UGC NET", "LECTURER",
		}},
		{Body: exam.BodyBanking, Keywords: []string{
			"BANK", "RBI ", "NABARD", "PO ", "CLERK",
		}},
		{Body: exam.BodyMedical, Keywords: []string{
			"MEDICAL", "NEET", "AIIMS", "NURSING", "MBBS",
		}},
		{Body: exam.BodyEngineering, Keywords: []string{
			"ENGINEERING", "GATE ", "JEE ", "IIT ", "B TECH", "BTECH",
		}},
	}
}

// Classifier matches text against an ordered rule table in one pass.
// It is safe for concurrent use.
type Classifier struct {
	// mu guards matcher, whose Match keeps per-call bookkeeping in the automaton.
	mu       sync.Mutex
	matcher  *ahocorasick.Matcher
	keywords []string
	ruleOf   []int
	rules    []Rule
}

// New builds a Classifier. An empty rule table classifies everything as OTHER.
func New(rules []Rule) *Classifier {
	c := &Classifier{rules: rules}
	for i, rule := range rules {
		for _, kw := range rule.Keywords {
			normalized := normalizeKeyword(kw)
			if normalized == "" {
				continue
			}
			c.keywords = append(c.keywords, normalized)
			c.ruleOf = append(c.ruleOf, i)
		}
	}
	if len(c.keywords) > 0 {
		c.matcher = ahocorasick.NewStringMatcher(c.keywords)
	}
	return c
}

// NewDefault builds a Classifier over DefaultRules.
func NewDefault() *Classifier {
	return New(DefaultRules())
}

// Classify returns the body of the first text that matches any rule, or OTHER.
// Pass the title first and the notice body after it.
func (c *Classifier) Classify(texts ...string) exam.Body {
	for _, text := range texts {
		if body := c.classifyOne(text); body != exam.BodyOther {
			return body
		}
	}
	return exam.BodyOther
}

func (c *Classifier) classifyOne(text string) exam.Body {
	if c.matcher == nil || strings.TrimSpace(text) == "" {
		return exam.BodyOther
	}

	c.mu.Lock()
	hits := c.matcher.Match([]byte(normalizeText(text)))
	c.mu.Unlock()

	best := -1
	for _, hit := range hits {
		if hit >= len(c.ruleOf) {
			continue
		}
		if idx := c.ruleOf[hit]; best == -1 || idx < best {
			best = idx
		}
	}
	if best == -1 {
		return exam.BodyOther
	}
	return c.rules[best].Body
}

// normalizeText upper-cases text and reduces it to single-space separated words,
// padded with a space on both ends so whole-word keywords can match at the edges.
func normalizeText(text string) string {
	return " " + strings.Join(words(text), " ") + " "
}

// normalizeKeyword upper-cases the keyword. A keyword with a trailing space is padded
// on both sides so it only matches a whole word.
func normalizeKeyword(kw string) string {
	w := words(kw)
	if len(w) == 0 {
		return ""
	}
	normalized := strings.Join(w, " ")
	if strings.HasSuffix(kw, " ") {
		normalized = " " + normalized + " "
	}
	return normalized
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToUpper(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
