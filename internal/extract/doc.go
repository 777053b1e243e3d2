// Package extract finds date mentions in notice text and decides what each date means.
//
// A block of text is scanned with an ordered set of date patterns, most specific first:
//
//	Exam Date: 15-08-2025     explicit label
//	15/08/2025, 15.08.2025    numeric day-month-year
//	15th August, 2025         day, month name, year
//	Aug 15, 2025              month name, day, year
//
// Every accepted mention is given a role (exam, application start, application end) from the
// keywords found near it. A labelled exam date always wins the exam role; otherwise the first
// mention of each role in the text wins.
package extract
