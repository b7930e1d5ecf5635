// Package journal records apply runs in a SQLite database.
//
// A run is opened with BeginRun, receives one event per file it deletes or
// writes, and is closed with Finish. The returned *Run satisfies
// apply.Recorder.
//
// The database is opened in WAL mode with a single connection; the schema is
// embedded and versioned through PRAGMA user_version.
package journal
