// Package cli implements the command-line interface for exam-events.
//
// The cli package provides the Cobra-based commands that run the scrapers, query
// the record store (list, upcoming, stats), export calendars, seed curated
// exams, purge old records and serve scheduled runs with a metrics endpoint.
// Output is human-readable text or JSON.
package cli
