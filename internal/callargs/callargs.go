// Package callargs reads typed fields out of call argument maps.
//
// Every failure is an *Error so that callers can report malformed
// arguments uniformly, before any registry or engine access.
package callargs

import (
	"errors"
	"fmt"
	"math"

	"github.com/roach88/sqlbridge/internal/value"
)

// Error reports a missing or malformed argument.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("invalid arguments: %s", e.Reason)
	}
	return fmt.Sprintf("invalid argument %q: %s", e.Key, e.Reason)
}

// IsError returns true if err carries an *Error.
func IsError(err error) bool {
	var ae *Error
	return errors.As(err, &ae)
}

func missing(key string) error {
	return &Error{Key: key, Reason: "required"}
}

func wrongKind(key string, want string, got value.Value) error {
	kind := "null"
	if got != nil {
		kind = got.Kind().String()
	}
	return &Error{Key: key, Reason: fmt.Sprintf("want %s, got %s", want, kind)}
}

// Map returns the argument map of a call. A missing argument value is an
// empty map.
func Map(v value.Value) (value.Map, error) {
	switch m := v.(type) {
	case nil, value.Null:
		return value.NewMap(), nil
	case value.Map:
		return m, nil
	default:
		return value.Map{}, wrongKind("", "map", v)
	}
}

// String returns the string at key and whether it was present.
func String(m value.Map, key string) (string, bool, error) {
	v, ok := m.Lookup(key)
	if !ok {
		return "", false, nil
	}
	s, err := value.AsString(v)
	if err != nil {
		return "", false, wrongKind(key, "string", v)
	}
	return s, true, nil
}

// RequiredString returns the string at key. Absent and empty strings are errors.
func RequiredString(m value.Map, key string) (string, error) {
	s, ok, err := String(m, key)
	if err != nil {
		return "", err
	}
	if !ok || s == "" {
		return "", missing(key)
	}
	return s, nil
}

// Int returns the integer at key and whether it was present.
func Int(m value.Map, key string) (int64, bool, error) {
	v, ok := m.Lookup(key)
	if !ok {
		return 0, false, nil
	}
	n, err := value.AsInteger(v)
	if err != nil {
		return 0, false, wrongKind(key, "integer", v)
	}
	return n, true, nil
}

// SessionID returns the session id at key.
func SessionID(m value.Map, key string) (uint32, error) {
	n, ok, err := Int(m, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, missing(key)
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, &Error{Key: key, Reason: fmt.Sprintf("id %d out of range", n)}
	}
	return uint32(n), nil
}

// OptionalFlag returns the flag at key, or nil when absent.
// Flags accept a bool or an integer, where any non-zero integer is true.
func OptionalFlag(m value.Map, key string) (*bool, error) {
	v, ok := m.Lookup(key)
	if !ok {
		return nil, nil
	}
	var b bool
	switch f := v.(type) {
	case value.Bool:
		b = bool(f)
	case value.Int32:
		b = f != 0
	case value.Int64:
		b = f != 0
	default:
		return nil, wrongKind(key, "bool", v)
	}
	return &b, nil
}

// Flag returns the flag at key, false when absent.
func Flag(m value.Map, key string) (bool, error) {
	b, err := OptionalFlag(m, key)
	if err != nil || b == nil {
		return false, err
	}
	return *b, nil
}

// List returns the list at key. A missing list is empty.
func List(m value.Map, key string) (value.List, error) {
	v, ok := m.Lookup(key)
	if !ok {
		return value.List{}, nil
	}
	l, err := value.AsList(v)
	if err != nil {
		return nil, wrongKind(key, "list", v)
	}
	return l, nil
}
