// Package value provides the dynamically typed value used across the call
// boundary, as SQL bind parameters, and in result payloads.
//
// Value is a sealed interface. Only Null, Bool, Int32, Int64, Float64, String,
// List, and Map implement it. Values are immutable once constructed.
//
// Accessors never fall back to a default: asking for the wrong variant returns
// a *TypeMismatchError. Numeric variants are never coerced into each other by
// this package.
package value
