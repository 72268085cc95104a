// Package history keeps a SQLite ledger of credits detections.
//
// Every time a session declares credits (by matching frames or by reusing an
// offset detected earlier) the detector records one Entry. The ledger is
// advisory: the fingerprint store stays the source of truth for offsets, and a
// failed Record never blocks detection.
//
// The schema is created on first open and guarded by a version row. A database
// written by a different schema version fails Open with ErrSchemaMismatch.
package history
