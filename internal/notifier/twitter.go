package notifier

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

const (
	maxPostRunes = 280
	postInterval = 2 * time.Second
)

// Credentials holds Twitter OAuth1 user credentials
type Credentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// CredentialsFromEnv reads credentials from environment variables:
// - TWITTER_API_KEY
// - TWITTER_API_SECRET
// - TWITTER_ACCESS_TOKEN
// - TWITTER_ACCESS_SECRET
func CredentialsFromEnv() Credentials {
	return Credentials{
		APIKey:       os.Getenv("TWITTER_API_KEY"),
		APISecret:    os.Getenv("TWITTER_API_SECRET"),
		AccessToken:  os.Getenv("TWITTER_ACCESS_TOKEN"),
		AccessSecret: os.Getenv("TWITTER_ACCESS_SECRET"),
	}
}

func (c Credentials) complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

type statusUpdater interface {
	Update(status string, params *twitter.StatusUpdateParams) (*twitter.Tweet, *http.Response, error)
}

// TwitterNotifier posts exam announcements to Twitter
type TwitterNotifier struct {
	statuses statusUpdater
	interval time.Duration
}

// NewTwitterNotifier creates a Twitter notifier from user credentials
func NewTwitterNotifier(ctx context.Context, creds Credentials) (*TwitterNotifier, error) {
	if !creds.complete() {
		return nil, fmt.Errorf("missing required Twitter credentials")
	}

	config := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	client := twitter.NewClient(config.Client(ctx, token))

	return &TwitterNotifier{statuses: client.Statuses, interval: postInterval}, nil
}

// Notify posts one status per record, pausing between posts
func (n *TwitterNotifier) Notify(ctx context.Context, records []exam.Record) error {
	for i, rec := range records {
		if _, _, err := n.statuses.Update(formatPost(rec), nil); err != nil {
			return fmt.Errorf("posting announcement for %s: %w", rec.Key(), err)
		}

		if i < len(records)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.interval):
			}
		}
	}
	return nil
}

// formatPost formats an exam as a post of at most 280 characters
func formatPost(rec exam.Record) string {
	var b strings.Builder
	b.WriteString("📝 New exam announced!\n\n")
	fmt.Fprintf(&b, "%s\n", rec.ExamName)
	fmt.Fprintf(&b, "🏛 %s\n", bodyLabel(rec.ConductingBody))
	fmt.Fprintf(&b, "📅 Exam: %s\n", rec.ExamDate.Format("Jan 2, 2006"))
	if rec.ApplicationEnd != nil {
		fmt.Fprintf(&b, "⏳ Apply by: %s\n", rec.ApplicationEnd.Format("Jan 2, 2006"))
	}
	if link := rec.OfficialLink; link != "" {
		fmt.Fprintf(&b, "\n🔗 %s\n", link)
	} else if rec.SourceURL != "" {
		fmt.Fprintf(&b, "\n🔗 %s\n", rec.SourceURL)
	}
	b.WriteString("\n#SarkariExam #GovtJobs")
	if tag := bodyHashtag(rec.ConductingBody); tag != "" {
		b.WriteString(" " + tag)
	}

	return truncateRunes(b.String(), maxPostRunes)
}

func bodyLabel(b exam.Body) string {
	if b == exam.BodyStatePSC {
		return "State PSC"
	}
	if b == "" {
		return string(exam.BodyOther)
	}
	return string(b)
}

var bodyHashtags = map[exam.Body]string{
	exam.BodyUPSC:        "#UPSC",
	exam.BodySSC:         "#SSC",
	exam.BodyIBPS:        "#IBPS",
	exam.BodySBI:         "#SBI",
	exam.BodyRailway:     "#RailwayJobs",
	exam.BodyPolice:      "#PoliceBharti",
	exam.BodyDefence:     "#DefenceJobs",
	exam.BodyTeaching:    "#TeacherJobs",
	exam.BodyBanking:     "#BankJobs",
	exam.BodyMedical:     "#MedicalExams",
	exam.BodyEngineering: "#EngineeringExams",
	exam.BodyStatePSC:    "#StatePSC",
}

func bodyHashtag(b exam.Body) string {
	return bodyHashtags[b]
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
