package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

const (
	defaultMinTitle       = 10
	defaultMaxTitle       = 300
	defaultMaxDetailPages = 40
)

// Source describes how to walk one notice site.
type Source struct {
	Name    string `mapstructure:"name" yaml:"name"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Pages are visited in order, relative to BaseURL. Empty means BaseURL itself.
	Pages []string `mapstructure:"pages" yaml:"pages"`
	// Container selects one element per candidate notice, e.g. "table tr" or "li a".
	Container string `mapstructure:"container" yaml:"container"`
	// Title selects the title inside a container. Empty uses the container's first link,
	// or the container itself when it is a link.
	Title string `mapstructure:"title" yaml:"title"`
	// FollowLinks fetches each notice's detail page and uses its main text.
	FollowLinks    bool      `mapstructure:"follow_links" yaml:"follow_links"`
	MaxDetailPages int       `mapstructure:"max_detail_pages" yaml:"max_detail_pages"`
	Include        []string  `mapstructure:"include" yaml:"include"`
	Skip           []string  `mapstructure:"skip" yaml:"skip"`
	MinTitle       int       `mapstructure:"min_title" yaml:"min_title"`
	MaxTitle       int       `mapstructure:"max_title" yaml:"max_title"`
	DefaultBody    exam.Body `mapstructure:"default_body" yaml:"default_body"`
}

// Validate checks that the source can be walked
func (s Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("source has no name")
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("source %s: invalid base URL %q", s.Name, s.BaseURL)
	}
	if strings.TrimSpace(s.Container) == "" {
		return fmt.Errorf("source %s: container selector is required", s.Name)
	}
	if s.DefaultBody != "" && !s.DefaultBody.Valid() {
		return fmt.Errorf("source %s: unknown default body %q", s.Name, s.DefaultBody)
	}
	return nil
}

// PageURLs resolves the configured pages against BaseURL.
func (s Source) PageURLs() []string {
	if len(s.Pages) == 0 {
		return []string{s.BaseURL}
	}
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return s.Pages
	}
	out := make([]string, 0, len(s.Pages))
	for _, p := range s.Pages {
		ref, err := url.Parse(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		out = append(out, base.ResolveReference(ref).String())
	}
	return out
}

func (s Source) withDefaults() Source {
	if s.MinTitle <= 0 {
		s.MinTitle = defaultMinTitle
	}
	if s.MaxTitle <= 0 {
		s.MaxTitle = defaultMaxTitle
	}
	if s.MaxDetailPages <= 0 {
		s.MaxDetailPages = defaultMaxDetailPages
	}
	return s
}

var (
	aggregatorSkip = []string{
		"advertisement", "contact us", "about us", "privacy policy",
		"terms", "disclaimer", "home", "login", "register",
	}
	aggregatorInclude = []string{
		"recruitment", "notification", "exam", "vacancy", "selection", "test",
		"application", "upsc", "ssc", "ibps", "sbi", "railway", "rrb", "bank",
		"police", "defence", "teaching", "clerk", "officer", "admit card",
		"answer key", "syllabus", "govt job", "government job", "bharti",
	}
)

// DefaultSources returns the built-in notice sites: job aggregators first, then the
// exam authorities' own portals.
func DefaultSources() []Source {
	return []Source{
		{
			Name:        "sarkari-result",
			BaseURL:     "https://www.sarkariresult.com",
			Container:   "a[href]",
			FollowLinks: true,
			Include: []string{
				"upsc", "ias", "ssc", "ibps", "sbi", "rrb", "ntpc", "railway", "bank", "clerk",
				"cgl", "chsl", "mts", "nda", "cds", "civil services", "engineering services",
			},
			Skip: aggregatorSkip,
		},
		{
			Name:        "freejobalert",
			BaseURL:     "https://www.freejobalert.com",
			Pages:       []string{"/latest-notifications/", "/exam-calendar/"},
			Container:   "table tr",
			Title:       "td:first-child, td a",
			FollowLinks: true,
			Include:     aggregatorInclude,
			Skip:        aggregatorSkip,
		},
		{
			Name:    "govtjobs",
			BaseURL: "https://www.govtjobs.in",
			Pages: []string{
				"/government-jobs", "/latest-government-jobs", "/admit-card", "/results",
			},
			Container:   "a[href]",
			FollowLinks: true,
			Include: []string{
				"upsc", "ssc", "ibps", "sbi", "rrb", "railway", "bank", "police", "exam",
				"recruitment", "notification", "vacancy", "admit card", "result", "cgl",
				"chsl", "mts", "clerk", "nda", "cds",
			},
			Skip: aggregatorSkip,
		},
		{
			Name:        "fresherslive",
			BaseURL:     "https://www.fresherslive.com",
			Pages:       []string{"/government-jobs/exam-calendar", "/government-jobs/latest"},
			Container:   "table tr, div[class*=job] a[href], article a[href]",
			FollowLinks: true,
			Include:     aggregatorInclude,
			Skip:        aggregatorSkip,
		},
		{
			Name:      "employment-news",
			BaseURL:   "https://www.employmentnews.gov.in",
			Pages:     []string{"/NewNotification.aspx", "/"},
			Container: "table tr, a[href]",
			Include: []string{
				"exam", "recruitment", "notification", "vacancy", "upsc", "ssc", "railway",
				"bank", "police", "defence", "teaching", "clerk", "officer",
			},
			Skip: aggregatorSkip,
		},
		{
			Name:      "job-alert",
			BaseURL:   "https://jobalert.gov.in",
			Pages:     []string{"/govt-jobs", "/latest-jobs", "/exam-calendar", "/notifications"},
			Container: "li[class*=job], div[class*=job], article, li[class*=notification]",
			Title:     "h1, h2, h3, h4, a",
			Include:   aggregatorInclude,
			Skip:      aggregatorSkip,
		},
		{
			Name:    "jagran-josh",
			BaseURL: "https://www.jagranjosh.com",
			Pages: []string{
				"/jobs", "/government-jobs", "/current-affairs/exam-calendar", "/latest-govt-jobs",
			},
			Container:   "article, div[class*=article], div[class*=news], div[class*=item]",
			Title:       "h1, h2, h3, h4, a",
			FollowLinks: true,
			Include:     aggregatorInclude,
			Skip:        aggregatorSkip,
		},
		{
			Name:        "ibps",
			BaseURL:     "https://www.ibps.in",
			Container:   "div.inner_notification_title a",
			FollowLinks: true,
			Include:     []string{"exam", "recruitment", "officer", "clerk"},
			MinTitle:    5,
			DefaultBody: exam.BodyIBPS,
		},
		{
			Name:        "sbi",
			BaseURL:     "https://bank.sbi",
			Pages:       []string{"/web/careers"},
			Container:   "div[class*=recruitment] a, div[class*=current] a, table[class*=recruitment] a",
			FollowLinks: true,
			Include:     []string{"recruitment", "exam", "po", "clerk", "officer", "specialist"},
			MinTitle:    5,
			DefaultBody: exam.BodySBI,
		},
		{
			Name:        "ssc",
			BaseURL:     "https://ssc.nic.in",
			Pages:       []string{"/Portal/ExamCalendar", "/"},
			Container:   "table tr",
			Title:       "td:first-child",
			Include:     []string{"cgl", "chsl", "mts", "cpo", "je", "steno", "gd", "selection post"},
			MinTitle:    3,
			DefaultBody: exam.BodySSC,
		},
		{
			Name:        "upsc",
			BaseURL:     "https://www.upsc.gov.in",
			Pages:       []string{"/examinations", "/recruitment"},
			Container:   "table tr",
			Title:       "td:first-child",
			MinTitle:    5,
			DefaultBody: exam.BodyUPSC,
		},
	}
}
