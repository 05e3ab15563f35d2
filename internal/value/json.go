package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// Marshal encodes v as JSON. Map keys keep insertion order.
// Maps with non-string keys and non-finite floats cannot be encoded.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Int32:
		fmt.Fprintf(buf, "%d", int32(val))
	case Int64:
		fmt.Fprintf(buf, "%d", int64(val))
	case Float64:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("cannot encode non-finite float %v", f)
		}
		b, err := json.Marshal(f)
		if err != nil {
			return err
		}
		buf.Write(b)
	case String:
		return encodeString(buf, string(val))
	case List:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, elem); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Map:
		buf.WriteByte('{')
		for i, e := range val.entries {
			key, ok := e.Key.(String)
			if !ok {
				return fmt.Errorf("cannot encode map key of kind %s", kindOf(e.Key))
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, string(key)); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encode(buf, e.Value); err != nil {
				return fmt.Errorf("map[%q]: %w", string(key), err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown Value type: %T", v)
	}
	return nil
}

// encodeString writes a JSON string without HTML escaping.
func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// Unmarshal decodes a single JSON document into a Value.
// Object key order is preserved. Integers that fit in 32 bits decode to
// Int32, larger integers to Int64, anything with a fraction or exponent to
// Float64.
func Unmarshal(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected trailing data after JSON value")
	}
	return v, nil
}

// UnmarshalJSON lets Map participate in encoding/json decoding.
func (m *Map) UnmarshalJSON(data []byte) error {
	v, err := Unmarshal(data)
	if err != nil {
		return err
	}
	mv, err := AsMap(v)
	if err != nil {
		return err
	}
	*m = mv
	return nil
}

// MarshalJSON lets Map participate in encoding/json encoding.
func (m Map) MarshalJSON() ([]byte, error) {
	return Marshal(m)
}

func decode(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return decodeNumber(t)
	case json.Delim:
		switch t {
		case '[':
			list := List{}
			for dec.More() {
				elem, err := decode(dec)
				if err != nil {
					return nil, fmt.Errorf("list[%d]: %w", len(list), err)
				}
				list = append(list, elem)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		case '{':
			var entries []Entry
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				elem, err := decode(dec)
				if err != nil {
					return nil, fmt.Errorf("map[%q]: %w", key, err)
				}
				entries = append(entries, E(key, elem))
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return NewMap(entries...), nil
		}
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

func decodeNumber(n json.Number) (Value, error) {
	s := string(n)
	if strings.ContainsAny(s, ".eE") {
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s: %w", s, err)
		}
		return Float64(f), nil
	}
	i, err := n.Int64()
	if err != nil {
		return nil, fmt.Errorf("number out of int64 range: %s", s)
	}
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return Int32(int32(i)), nil
	}
	return Int64(i), nil
}
