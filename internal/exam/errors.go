package exam

import (
	"fmt"
	"unicode/utf8"
)

// snippetLimit bounds raw text carried in errors and logs
const snippetLimit = 160

// Snippet shortens raw text for diagnostics.
func Snippet(text string) string {
	if utf8.RuneCountInString(text) <= snippetLimit {
		return text
	}
	runes := []rune(text)
	return string(runes[:snippetLimit]) + "..."
}

// FetchError is a network or HTTP failure inside an adapter. The adapter is skipped.
type FetchError struct {
	Source     string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError means no date pattern matched a block. The block is skipped.
type ParseError struct {
	Source  string
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no date found in block from %s: %q", e.Source, e.Snippet)
}

// ValidationError means an assembled record lacks a mandatory field.
type ValidationError struct {
	Source  string
	Field   string
	Snippet string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record from %s missing %s: %q", e.Source, e.Field, e.Snippet)
}

// PersistenceError means a store write failed; prior stored state is preserved.
type PersistenceError struct {
	Key NaturalKey
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
