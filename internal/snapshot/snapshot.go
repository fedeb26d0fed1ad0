// Package snapshot holds the status mapping published on the status
// endpoint and the rules for turning its values into table cells.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Field is one key/value pair of a snapshot.
type Field struct {
	Key   string
	Value any
}

// Snapshot is a status mapping that keeps the key order of the JSON
// document it was decoded from.
type Snapshot []Field

// Get returns the value stored under key.
func (s Snapshot) Get(key string) (any, bool) {
	for _, f := range s {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under key, or appends it if missing.
func (s *Snapshot) Set(key string, value any) {
	for i := range *s {
		if (*s)[i].Key == key {
			(*s)[i].Value = value
			return
		}
	}
	*s = append(*s, Field{Key: key, Value: value})
}

// Keys returns the keys in order.
func (s Snapshot) Keys() []string {
	keys := make([]string, len(s))
	for i, f := range s {
		keys[i] = f.Key
	}
	return keys
}

// UnmarshalJSON decodes a JSON object token by token so that the order
// of keys survives. Duplicate keys keep their first position and the
// last value, like most JSON decoders.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("snapshot: expected JSON object, got %v", tok)
	}

	out := Snapshot{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("snapshot: expected object key, got %v", tok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("snapshot: decode value for %q: %w", key, err)
		}
		out.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("snapshot: trailing data after object")
	}

	*s = out
	return nil
}

// MarshalJSON writes the snapshot as a JSON object in key order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("snapshot: encode value for %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FormatValue renders a snapshot value for display. Numbers get two
// decimal places, strings are verbatim and everything else is coerced
// to its JSON text.
func FormatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return "null"
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return strconv.FormatFloat(value, 'f', 2, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', 2, 32)
	case int:
		return strconv.FormatFloat(float64(value), 'f', 2, 64)
	case int64:
		return strconv.FormatFloat(float64(value), 'f', 2, 64)
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return value.String()
		}
		return strconv.FormatFloat(f, 'f', 2, 64)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(data)
	}
}
