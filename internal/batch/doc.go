// Package batch runs lists of SQL operations against one session.
//
// An Operation comes either from a descriptor inside a batch call
// (FromDescriptor) or from a standalone execute/insert/update/query call
// (FromCall). Both kinds go through the same Processor so that a statement
// behaves identically whichever way it arrives.
//
// Per-operation outcomes are reported as ordered maps:
//
//	{"result": <value or null>}
//	{"error": {"code": ..., "message": ..., "data": null}}
//
// With continueOnError false, processing stops after the first error entry.
// With noResult true no entries are appended at all, which also hides the
// error that stopped the batch.
package batch
