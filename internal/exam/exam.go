package exam

import (
	"crypto/sha1"
	"fmt"
	"strings"
	"time"
)

// Body is the authority conducting an exam
type Body string

const (
	BodyUPSC        Body = "UPSC"
	BodySSC         Body = "SSC"
	BodyIBPS        Body = "IBPS"
	BodySBI         Body = "SBI"
	BodyRailway     Body = "RAILWAY"
	BodyPolice      Body = "POLICE"
	BodyDefence     Body = "DEFENCE"
	BodyTeaching    Body = "TEACHING"
	BodyBanking     Body = "BANKING"
	BodyMedical     Body = "MEDICAL"
	BodyEngineering Body = "ENGINEERING"
	BodyStatePSC    Body = "STATE_PSC"
	BodyOther       Body = "OTHER"
)

var allBodies = []Body{
	BodyUPSC, BodySSC, BodyIBPS, BodySBI, BodyRailway, BodyPolice, BodyDefence,
	BodyTeaching, BodyBanking, BodyMedical, BodyEngineering, BodyStatePSC, BodyOther,
}

// AllBodies returns every conducting body in declaration order
func AllBodies() []Body {
	out := make([]Body, len(allBodies))
	copy(out, allBodies)
	return out
}

// Valid reports whether b is one of the known bodies
func (b Body) Valid() bool {
	for _, known := range allBodies {
		if b == known {
			return true
		}
	}
	return false
}

// ParseBody converts user input such as "upsc" or "state psc" into a Body.
func ParseBody(s string) (Body, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	b := Body(norm)
	if !b.Valid() {
		return "", fmt.Errorf("unknown conducting body: %q", s)
	}
	return b, nil
}

// Record is a canonical exam event
type Record struct {
	ID               int64      `json:"id,omitempty" yaml:"-"`
	ExamName         string     `json:"exam_name" yaml:"exam_name"`
	ConductingBody   Body       `json:"conducting_body" yaml:"conducting_body"`
	ExamDate         time.Time  `json:"exam_date" yaml:"exam_date"`
	ApplicationStart *time.Time `json:"application_start,omitempty" yaml:"application_start,omitempty"`
	ApplicationEnd   *time.Time `json:"application_end,omitempty" yaml:"application_end,omitempty"`
	OfficialLink     string     `json:"official_link" yaml:"official_link"`
	SourceURL        string     `json:"source_url" yaml:"source_url"`
	CreatedAt        time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt        time.Time  `json:"updated_at" yaml:"-"`
}

// NaturalKey identifies a real-world exam event across observations.
// Matching is exact and case-sensitive.
type NaturalKey struct {
	ExamName string
	Body     Body
	ExamDate time.Time
}

// Key returns the record's natural key
func (r Record) Key() NaturalKey {
	return NaturalKey{
		ExamName: r.ExamName,
		Body:     r.ConductingBody,
		ExamDate: DateOf(r.ExamDate),
	}
}

func (k NaturalKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.ExamName, k.Body, k.ExamDate.Format(DateLayout))
}

// Hash creates a deterministic identifier for the key
func (k NaturalKey) Hash() string {
	h := sha1.New()
	h.Write([]byte(k.String()))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Normalize returns a copy with every date truncated to UTC midnight.
func (r Record) Normalize() Record {
	r.ExamDate = DateOf(r.ExamDate)
	if r.ApplicationStart != nil {
		d := DateOf(*r.ApplicationStart)
		r.ApplicationStart = &d
	}
	if r.ApplicationEnd != nil {
		d := DateOf(*r.ApplicationEnd)
		r.ApplicationEnd = &d
	}
	return r
}
