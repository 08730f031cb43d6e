// Package history keeps a SQLite log of extraction attempts so the CLI can
// list what was inspected, when, and whether decoding succeeded.
//
// The schema is created on first open and guarded by a single version row;
// a mismatched version is reported as ErrSchemaMismatch rather than migrated.
package history
