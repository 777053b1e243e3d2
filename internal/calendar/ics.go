// Package calendar renders exam records as iCalendar (RFC 5545) data.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

const (
	prodID    = "-//Exam Events//exam-events//EN"
	uidDomain = "exam-events"
	// maxLineOctets is the RFC 5545 limit before a content line must be folded
	maxLineOctets = 75
)

// Options controls what GenerateBulkICS emits
type Options struct {
	// Name is the calendar display name (X-WR-CALNAME)
	Name string
	// Deadlines adds an all-day event on each application end date
	Deadlines bool
	// Now stamps records that have no UpdatedAt. Defaults to time.Now.
	Now func() time.Time
}

// GenerateICS generates a single-record calendar
func GenerateICS(rec exam.Record) string {
	return GenerateBulkICS([]exam.Record{rec}, Options{})
}

// GenerateBulkICS generates one calendar holding every record.
// Exams are all-day events keyed by their natural key, so re-exporting
// an updated record replaces the entry in the subscriber's calendar.
func GenerateBulkICS(records []exam.Record, opts Options) string {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var ics strings.Builder
	writeLine(&ics, "BEGIN:VCALENDAR")
	writeLine(&ics, "VERSION:2.0")
	writeLine(&ics, "PRODID:"+prodID)
	writeLine(&ics, "CALSCALE:GREGORIAN")
	writeLine(&ics, "METHOD:PUBLISH")
	if opts.Name != "" {
		writeLine(&ics, "X-WR-CALNAME:"+escapeICS(opts.Name))
	}

	for _, rec := range records {
		stamp := rec.UpdatedAt
		if stamp.IsZero() {
			stamp = opts.Now()
		}
		uid := rec.Key().Hash()

		writeEvent(&ics, event{
			uid:         uid + "@" + uidDomain,
			stamp:       stamp,
			day:         rec.ExamDate,
			summary:     fmt.Sprintf("%s (%s)", rec.ExamName, rec.ConductingBody),
			description: describe(rec),
			url:         link(rec),
			categories:  string(rec.ConductingBody),
		})

		if opts.Deadlines && rec.ApplicationEnd != nil {
			writeEvent(&ics, event{
				uid:         uid + "-deadline@" + uidDomain,
				stamp:       stamp,
				day:         *rec.ApplicationEnd,
				summary:     "Last date to apply: " + rec.ExamName,
				description: describe(rec),
				url:         link(rec),
				categories:  string(rec.ConductingBody) + ",DEADLINE",
			})
		}
	}

	writeLine(&ics, "END:VCALENDAR")
	return ics.String()
}

type event struct {
	uid         string
	stamp       time.Time
	day         time.Time
	summary     string
	description string
	url         string
	categories  string
}

func writeEvent(ics *strings.Builder, e event) {
	day := exam.DateOf(e.day)
	writeLine(ics, "BEGIN:VEVENT")
	writeLine(ics, "UID:"+e.uid)
	writeLine(ics, "DTSTAMP:"+formatICSTime(e.stamp))
	writeLine(ics, "DTSTART;VALUE=DATE:"+formatICSDate(day))
	writeLine(ics, "DTEND;VALUE=DATE:"+formatICSDate(day.AddDate(0, 0, 1)))
	writeLine(ics, "SUMMARY:"+escapeICS(e.summary))
	writeLine(ics, "DESCRIPTION:"+escapeICS(e.description))
	if e.url != "" {
		writeLine(ics, "URL:"+e.url)
	}
	writeLine(ics, "CATEGORIES:"+e.categories)
	writeLine(ics, "STATUS:CONFIRMED")
	writeLine(ics, "TRANSP:TRANSPARENT")
	writeLine(ics, "END:VEVENT")
}

func describe(rec exam.Record) string {
	lines := []string{
		"Conducting body: " + string(rec.ConductingBody),
		"Exam date: " + rec.ExamDate.Format("Jan 2, 2006"),
	}
	if rec.ApplicationStart != nil {
		lines = append(lines, "Applications open: "+rec.ApplicationStart.Format("Jan 2, 2006"))
	}
	if rec.ApplicationEnd != nil {
		lines = append(lines, "Last date to apply: "+rec.ApplicationEnd.Format("Jan 2, 2006"))
	}
	if rec.OfficialLink != "" {
		lines = append(lines, "Official notice: "+rec.OfficialLink)
	}
	if rec.SourceURL != "" && rec.SourceURL != rec.OfficialLink {
		lines = append(lines, "Source: "+rec.SourceURL)
	}
	return strings.Join(lines, "\n")
}

func link(rec exam.Record) string {
	if rec.OfficialLink != "" {
		return rec.OfficialLink
	}
	return rec.SourceURL
}

// writeLine writes a content line, folding it at 75 octets without splitting a UTF-8 sequence
func writeLine(ics *strings.Builder, line string) {
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !isRuneStart(line[cut]) {
			cut--
		}
		ics.WriteString(line[:cut])
		ics.WriteString("\r\n ")
		line = line[cut:]
		// continuation lines carry a leading space
		limit = maxLineOctets - 1
	}
	ics.WriteString(line)
	ics.WriteString("\r\n")
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// formatICSTime formats a time.Time as an iCalendar UTC datetime
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func formatICSDate(t time.Time) string {
	return t.Format("20060102")
}

// escapeICS escapes special characters for iCalendar text values
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
