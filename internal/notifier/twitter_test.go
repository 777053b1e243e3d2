package notifier

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API

	"github.com/pfrederiksen/exam-events/internal/exam"
	"github.com/pfrederiksen/exam-events/internal/filter"
)

func TestFormatPost(t *testing.T) {
	end := exam.Date(2026, 1, 31)

	tests := []struct {
		name        string
		rec         exam.Record
		contains    []string
		notContains []string
	}{
		{
			name: "complete record",
			rec: exam.Record{
				ExamName:       "SSC CGL Tier 1 2026",
				ConductingBody: exam.BodySSC,
				ExamDate:       exam.Date(2026, 3, 1),
				ApplicationEnd: &end,
				OfficialLink:   "https://ssc.gov.in/cgl",
				SourceURL:      "https://www.sarkariresult.com/latestjob/",
			},
			contains: []string{
				"SSC CGL Tier 1 2026",
				"Exam: Mar 1, 2026",
				"Apply by: Jan 31, 2026",
				"https://ssc.gov.in/cgl",
				"#SarkariExam",
				"#SSC",
			},
			notContains: []string{"sarkariresult"},
		},
		{
			name: "state psc without link falls back to source",
			rec: exam.Record{
				ExamName:       "BPSC 70th CCE",
				ConductingBody: exam.BodyStatePSC,
				ExamDate:       exam.Date(2026, 4, 12),
				SourceURL:      "https://www.freejobalert.com/latest-notifications/",
			},
			contains:    []string{"State PSC", "freejobalert", "#StatePSC"},
			notContains: []string{"Apply by"},
		},
		{
			name: "other body has no body hashtag",
			rec: exam.Record{
				ExamName:       "Lab Assistant Exam",
				ConductingBody: exam.BodyOther,
				ExamDate:       exam.Date(2026, 5, 5),
			},
			contains:    []string{"OTHER", "#GovtJobs"},
			notContains: []string{"🔗"},
		},
		{
			name: "long name truncated",
			rec: exam.Record{
				ExamName:       strings.Repeat("Combined Graduate Level Examination ", 12),
				ConductingBody: exam.BodySSC,
				ExamDate:       exam.Date(2026, 3, 1),
			},
			contains: []string{"..."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := formatPost(tt.rec)

			if n := utf8.RuneCountInString(post); n > maxPostRunes {
				t.Errorf("formatPost() length = %d, want <= %d", n, maxPostRunes)
			}
			for _, want := range tt.contains {
				if !strings.Contains(post, want) {
					t.Errorf("formatPost() missing %q\npost: %s", want, post)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(post, unwanted) {
					t.Errorf("formatPost() unexpectedly contains %q\npost: %s", unwanted, post)
				}
			}
		})
	}
}

type fakeStatuses struct {
	posted []string
	err    error
}

func (f *fakeStatuses) Update(status string, _ *twitter.StatusUpdateParams) (*twitter.Tweet, *http.Response, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.posted = append(f.posted, status)
	return &twitter.Tweet{Text: status}, nil, nil
}

func testRecords() []exam.Record {
	return []exam.Record{
		{ExamName: "SSC CHSL", ConductingBody: exam.BodySSC, ExamDate: exam.Date(2026, 3, 1)},
		{ExamName: "UPSC NDA I", ConductingBody: exam.BodyUPSC, ExamDate: exam.Date(2026, 4, 12)},
		{ExamName: "RRB Group D", ConductingBody: exam.BodyRailway, ExamDate: exam.Date(2026, 5, 20)},
	}
}

func TestTwitterNotifier_Notify(t *testing.T) {
	statuses := &fakeStatuses{}
	n := &TwitterNotifier{statuses: statuses}

	if err := n.Notify(context.Background(), testRecords()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(statuses.posted) != 3 {
		t.Fatalf("posted %d statuses, want 3", len(statuses.posted))
	}
	if !strings.Contains(statuses.posted[1], "UPSC NDA I") {
		t.Errorf("second post = %q", statuses.posted[1])
	}
}

func TestTwitterNotifier_NotifyError(t *testing.T) {
	n := &TwitterNotifier{statuses: &fakeStatuses{err: errors.New("rate limited")}}

	err := n.Notify(context.Background(), testRecords())
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("Notify() error = %v, want rate limited", err)
	}
}

func TestTwitterNotifier_Cancelled(t *testing.T) {
	statuses := &fakeStatuses{}
	n := &TwitterNotifier{statuses: statuses, interval: postInterval}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := n.Notify(ctx, testRecords()); !errors.Is(err, context.Canceled) {
		t.Errorf("Notify() error = %v, want context.Canceled", err)
	}
	if len(statuses.posted) != 1 {
		t.Errorf("posted %d statuses before cancellation, want 1", len(statuses.posted))
	}
}

func TestNewTwitterNotifier_MissingCredentials(t *testing.T) {
	_, err := NewTwitterNotifier(context.Background(), Credentials{APIKey: "key"})
	if err == nil {
		t.Error("NewTwitterNotifier() expected error for incomplete credentials")
	}

	n, err := NewTwitterNotifier(context.Background(), Credentials{
		APIKey: "k", APISecret: "s", AccessToken: "t", AccessSecret: "a",
	})
	if err != nil || n == nil {
		t.Errorf("NewTwitterNotifier() = %v, %v", n, err)
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("TWITTER_API_KEY", "key")
	t.Setenv("TWITTER_API_SECRET", "secret")
	t.Setenv("TWITTER_ACCESS_TOKEN", "token")
	t.Setenv("TWITTER_ACCESS_SECRET", "access")

	creds := CredentialsFromEnv()
	if !creds.complete() || creds.AccessToken != "token" {
		t.Errorf("CredentialsFromEnv() = %+v", creds)
	}
}

func TestDryRunNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewDryRunNotifier(&buf)

	if err := n.Notify(context.Background(), testRecords()[:2]); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"--- Post 1/2 ---", "--- Post 2/2 ---", "SSC CHSL", "UPSC NDA I", "(Length: "} {
		if !strings.Contains(out, want) {
			t.Errorf("dry-run output missing %q", want)
		}
	}
}

type recordingNotifier struct {
	calls [][]exam.Record
}

func (r *recordingNotifier) Notify(_ context.Context, records []exam.Record) error {
	r.calls = append(r.calls, records)
	return nil
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name      string
		filter    *filter.Filter
		maxPosts  int
		wantCalls int
		wantNames []string
	}{
		{"no filter no cap", nil, 0, 1, []string{"SSC CHSL", "UPSC NDA I", "RRB Group D"}},
		{"cap", nil, 2, 1, []string{"SSC CHSL", "UPSC NDA I"}},
		{"body filter", &filter.Filter{Bodies: []exam.Body{exam.BodyRailway}}, 0, 1, []string{"RRB Group D"}},
		{"nothing selected skips call", &filter.Filter{Bodies: []exam.Body{exam.BodyPolice}}, 0, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingNotifier{}
			if err := Select(rec, tt.filter, tt.maxPosts).Notify(context.Background(), testRecords()); err != nil {
				t.Fatalf("Notify() error = %v", err)
			}
			if len(rec.calls) != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", len(rec.calls), tt.wantCalls)
			}
			if tt.wantCalls == 0 {
				return
			}
			var got []string
			for _, r := range rec.calls[0] {
				got = append(got, r.ExamName)
			}
			if strings.Join(got, ",") != strings.Join(tt.wantNames, ",") {
				t.Errorf("selected = %v, want %v", got, tt.wantNames)
			}
		})
	}
}
