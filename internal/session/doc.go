// Package session implements the registry of logical database handles.
//
// A Session is metadata only. It names a database path and carries the
// bookkeeping flags a caller can observe; it does not own an engine
// connection.
//
// # Registry invariants
//
//   - Every id in the id map points at a Session whose ID equals the key.
//   - A path is in the path map iff an open Session with that path has
//     SingleInstance set.
//   - At most one Session per normalized path is in the path map.
//   - The id map, path map, open count and id counter change only under mu.
//
// Ids start at 1 and are never reused for the life of the Registry.
package session
