// Package plugin routes method calls to the session registry, the execution
// engine and the batch processor.
//
// Every call is a method name plus an argument Value, and every call ends in
// exactly one Reply: a success (with or without a value), an error with a
// short code and a message, or not-implemented for unknown methods.
//
// Arguments are validated before the registry or the engine is touched, so a
// malformed call never leaves partial state behind.
package plugin
