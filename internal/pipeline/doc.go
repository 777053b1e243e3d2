// Package pipeline drives site adapters through extraction, classification,
// assembly and upsert, and reports what happened to every block.
//
// A run is best effort. A failing or panicking adapter becomes a Failure in the
// Report and never stops the other adapters. A bad block becomes an ItemResult
// with a tagged outcome. Only an unreachable store aborts a run.
package pipeline
