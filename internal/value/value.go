package value

import (
	"fmt"
	"math"
)

// Kind names a Value variant.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt32
	KindInt64
	KindFloat64
	KindString
	KindList
	KindMap
)

var kindNames = [...]string{
	KindNull:    "null",
	KindBool:    "bool",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindFloat64: "float64",
	KindString:  "string",
	KindList:    "list",
	KindMap:     "map",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Value is a sealed interface over the supported variants.
type Value interface {
	Kind() Kind
	value() // Sealed
}

// Null is the absent value.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) value()     {}

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) value()     {}

// Int32 is a 32-bit integer. Callers on the wire send small integers as Int32.
type Int32 int32

func (Int32) Kind() Kind { return KindInt32 }
func (Int32) value()     {}

// Int64 is a 64-bit integer. SQL INTEGER columns always decode to Int64.
type Int64 int64

func (Int64) Kind() Kind { return KindInt64 }
func (Int64) value()     {}

// Float64 is a double precision float.
type Float64 float64

func (Float64) Kind() Kind { return KindFloat64 }
func (Float64) value()     {}

// String is a UTF-8 string.
type String string

func (String) Kind() Kind { return KindString }
func (String) value()     {}

// List is an ordered list of values.
type List []Value

func (List) Kind() Kind { return KindList }
func (List) value()     {}

// Entry is one key/value pair of a Map.
type Entry struct {
	Key   Value
	Value Value
}

// E is a shorthand for a string-keyed Entry.
// Example: NewMap(E("id", Int32(1)), E("recovered", Bool(true)))
func E(key string, v Value) Entry {
	return Entry{Key: String(key), Value: v}
}

// Map is an ordered key/value map. Use NewMap to construct one.
type Map struct {
	entries []Entry
}

func (Map) Kind() Kind { return KindMap }
func (Map) value()     {}

// NewMap builds a Map from entries in order.
// A repeated key replaces the earlier value and keeps the earlier position.
func NewMap(entries ...Entry) Map {
	m := Map{entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		if e.Value == nil {
			e.Value = Null{}
		}
		if i := m.index(e.Key); i >= 0 {
			m.entries[i].Value = e.Value
			continue
		}
		m.entries = append(m.entries, e)
	}
	return m
}

func (m Map) index(key Value) int {
	for i, e := range m.entries {
		if Equal(e.Key, key) {
			return i
		}
	}
	return -1
}

// Len returns the number of entries.
func (m Map) Len() int {
	return len(m.entries)
}

// Entries returns a copy of the entries in insertion order.
func (m Map) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Get returns the value stored under key.
func (m Map) Get(key Value) (Value, bool) {
	if i := m.index(key); i >= 0 {
		return m.entries[i].Value, true
	}
	return nil, false
}

// Lookup returns the value stored under a string key.
// A key present with a Null value reports false, matching how callers treat
// an explicit null argument the same as a missing one.
func (m Map) Lookup(key string) (Value, bool) {
	v, ok := m.Get(String(key))
	if !ok {
		return nil, false
	}
	if _, isNull := v.(Null); isNull {
		return nil, false
	}
	return v, true
}

// Equal reports whether two values are structurally equal.
// Variants must match exactly: Int32(1) is not equal to Int64(1).
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool, Int32, Int64, String:
		return a == b
	case Float64:
		bv, ok := b.(Float64)
		if !ok {
			return false
		}
		if math.IsNaN(float64(av)) && math.IsNaN(float64(bv)) {
			return true
		}
		return av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for i, e := range av.entries {
			o := bv.entries[i]
			if !Equal(e.Key, o.Key) || !Equal(e.Value, o.Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsEmpty reports whether v carries no payload: Null, an empty List, or an
// empty Map. Scalars are never empty.
func IsEmpty(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return true
	case List:
		return len(val) == 0
	case Map:
		return val.Len() == 0
	default:
		return false
	}
}
