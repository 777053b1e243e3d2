// Package exam provides the canonical exam event record and its identity.
//
// A Record is identified by its natural key: the exact (exam name, conducting body,
// exam date) triple. Two observations sharing that triple describe the same real-world
// event and are merged by the storage layer. The package also holds the closed set of
// conducting bodies and the error taxonomy shared by every ingestion stage.
package exam
