package sqlexec

import (
	"fmt"

	"github.com/roach88/sqlbridge/internal/value"
)

// BindArgs converts call arguments into driver parameters, 1-indexed by
// position.
//
//	Bool    -> INTEGER 0/1
//	Int32   -> INTEGER
//	Int64   -> INTEGER
//	Float64 -> REAL
//	String  -> TEXT
//	Null    -> NULL
//
// Lists and maps cannot be bound and produce a *BindError.
func BindArgs(args value.List) ([]any, error) {
	out := make([]any, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case value.Bool:
			if v {
				out[i] = int64(1)
			} else {
				out[i] = int64(0)
			}
		case value.Int32:
			out[i] = int64(v)
		case value.Int64:
			out[i] = int64(v)
		case value.Float64:
			out[i] = float64(v)
		case value.String:
			out[i] = string(v)
		case nil, value.Null:
			out[i] = nil
		default:
			return nil, &BindError{Position: i + 1, Kind: arg.Kind()}
		}
	}
	return out, nil
}

// decodeColumn converts a scanned column into a Value.
//
// INTEGER becomes Int64, REAL becomes Float64, TEXT becomes String and NULL
// becomes Null. BLOB has no dedicated variant and is returned as a List of
// Int32 byte values.
func decodeColumn(raw any) (value.Value, error) {
	switch v := raw.(type) {
	case nil:
		return value.Null{}, nil
	case int64:
		return value.Int64(v), nil
	case float64:
		return value.Float64(v), nil
	case string:
		return value.String(v), nil
	case []byte:
		list := make(value.List, len(v))
		for i, b := range v {
			list[i] = value.Int32(b)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", raw)
	}
}
