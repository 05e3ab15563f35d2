// Package sqlexec runs SQL statements for a session against SQLite.
//
// Each call to Executor.Execute opens a connection for the session's path,
// prepares the statement, binds the arguments positionally, steps the cursor
// to completion and closes everything before returning. A session never owns
// a connection between calls.
//
// In-memory sessions are the exception: a fresh connection to ":memory:"
// would always see an empty database, so every in-memory session is pinned to
// one named shared-cache database until Release is called for it.
//
// # Result shapes
//
//   - ShapeTabular: {"columns": [...], "rows": [[...], ...]}
//   - ShapeMapList: [{"column": value, ...}, ...]
//
// Column names are taken from the first row. A statement that produces no
// rows yields a nil Value ("ran, no value"). An insert always yields the
// connection's last inserted row id as Int64.
package sqlexec
