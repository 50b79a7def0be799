package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrNotObject = errors.New("payload must be a JSON object")

// Payload is the schemaless field set of a submission. Keys keep the order in
// which the submitter sent them; values are whatever the wire encoding produced.
type Payload struct {
	keys   []string
	values map[string]interface{}
}

func NewPayload() Payload {
	return Payload{values: make(map[string]interface{})}
}

// Set replaces an existing key in place or appends a new one.
func (p *Payload) Set(key string, value interface{}) {
	if p.values == nil {
		p.values = make(map[string]interface{})
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

func (p Payload) Get(key string) (interface{}, bool) {
	v, ok := p.values[key]
	return v, ok
}

func (p Payload) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p Payload) Len() int {
	return len(p.keys)
}

func (p Payload) Each(fn func(key string, value interface{})) {
	for _, k := range p.keys {
		fn(k, p.values[k])
	}
}

// Map returns an unordered copy, for consumers that need a plain map.
func (p Payload) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(p.keys))
	for _, k := range p.keys {
		out[k] = p.values[k]
	}
	return out
}

// Without returns a copy with the named keys dropped.
func (p Payload) Without(keys ...string) Payload {
	skip := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		skip[k] = struct{}{}
	}
	out := NewPayload()
	p.Each(func(k string, v interface{}) {
		if _, ok := skip[k]; !ok {
			out.Set(k, v)
		}
	})
	return out
}

func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts a single top-level object. Numbers are kept as
// json.Number so they round-trip exactly.
func (p *Payload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ErrNotObject
	}

	out := NewPayload()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", keyTok)
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after payload object")
	}

	*p = out
	return nil
}

// Stringify renders a loosely typed payload value for text destinations.
func Stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	case []string:
		return strings.Join(v, ", ")
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, Stringify(item))
		}
		return strings.Join(parts, ", ")
	case map[string]interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}

// Truncate cuts s to at most max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
