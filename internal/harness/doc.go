// Package harness runs call scenarios against a fresh plugin and records a
// transcript of every call and reply.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: batch_stop_on_error
//	description: "A failing batch operation stops the batch"
//	calls:
//	  - method: openDatabase
//	    args: { path: ":memory:" }
//	    expect:
//	      status: success
//	      result: { id: 1 }
//	  - method: query
//	    args: { id: 1, sql: "SELECT * FROM missing" }
//	    expect:
//	      status: error
//	      error: { code: sqlite_error }
//	assertions:
//	  - type: open_sessions
//	    count: 1
//	  - type: file_absent
//	    path: deleted.db
//
// Expected results are matched structurally. Maps match as subsets, lists
// must have the same length, and integers compare by value whatever their
// width. An expect clause without a result only checks the status.
//
// # Assertion Types
//
//   - open_sessions: the registry holds exactly count sessions
//   - file_exists: path exists, relative paths resolve under the databases directory
//   - file_absent: path does not exist
//
// # Deterministic Runs
//
// Each run gets a fresh plugin, a fresh temporary databases directory and a
// sequential name generator, so session ids and results are identical across
// runs and transcripts can be compared against golden files.
package harness
