// Package storage persists exam records in a SQL database.
//
// Records are keyed by their natural key (exam name, conducting body, exam date). Upsert
// serializes work per key inside the process and relies on a unique index plus
// INSERT ... ON CONFLICT so that concurrent writers never create two rows for one event.
//
// SQLite (github.com/mattn/go-sqlite3) is the default backend and PostgreSQL
// (github.com/lib/pq) is supported through the same queries. The default database file
// is exam-events.db in the working directory.
package storage
