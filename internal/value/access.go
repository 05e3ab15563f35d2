package value

import "fmt"

// TypeMismatchError is returned when a value is read as the wrong variant.
type TypeMismatchError struct {
	Want Kind
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: want %s, got %s", e.Want, e.Got)
}

func kindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

func mismatch(want Kind, v Value) error {
	return &TypeMismatchError{Want: want, Got: kindOf(v)}
}

// AsBool returns the boolean held by v.
func AsBool(v Value) (bool, error) {
	b, ok := v.(Bool)
	if !ok {
		return false, mismatch(KindBool, v)
	}
	return bool(b), nil
}

// AsInt32 returns the 32-bit integer held by v.
func AsInt32(v Value) (int32, error) {
	n, ok := v.(Int32)
	if !ok {
		return 0, mismatch(KindInt32, v)
	}
	return int32(n), nil
}

// AsInt64 returns the 64-bit integer held by v.
func AsInt64(v Value) (int64, error) {
	n, ok := v.(Int64)
	if !ok {
		return 0, mismatch(KindInt64, v)
	}
	return int64(n), nil
}

// AsInteger returns the integer held by an Int32 or Int64.
// Callers on the wire pick the width by magnitude, so identifiers and flags
// must accept both.
func AsInteger(v Value) (int64, error) {
	switch n := v.(type) {
	case Int32:
		return int64(n), nil
	case Int64:
		return int64(n), nil
	default:
		return 0, mismatch(KindInt64, v)
	}
}

// AsFloat64 returns the float held by v.
func AsFloat64(v Value) (float64, error) {
	f, ok := v.(Float64)
	if !ok {
		return 0, mismatch(KindFloat64, v)
	}
	return float64(f), nil
}

// AsString returns the string held by v.
func AsString(v Value) (string, error) {
	s, ok := v.(String)
	if !ok {
		return "", mismatch(KindString, v)
	}
	return string(s), nil
}

// AsList returns the list held by v.
func AsList(v Value) (List, error) {
	l, ok := v.(List)
	if !ok {
		return nil, mismatch(KindList, v)
	}
	return l, nil
}

// AsMap returns the map held by v.
func AsMap(v Value) (Map, error) {
	m, ok := v.(Map)
	if !ok {
		return Map{}, mismatch(KindMap, v)
	}
	return m, nil
}
