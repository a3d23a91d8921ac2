package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
)

// identityFields are probed in order when deriving a record's identity.
var identityFields = []string{"unsd_code", "id", "indicator"}

// Record is a single arbitrary-shaped JSON object. Field order from the
// source document is preserved so that re-serialization is faithful and the
// known-field universe can be built in order of first appearance. Numbers
// are kept as json.Number for the same reason.
type Record struct {
	fields map[string]any
	order  []string
}

// New returns an empty record.
func New() Record {
	return Record{fields: map[string]any{}}
}

// Fields returns the record's field names in source order.
func (r Record) Fields() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the value of the named field.
func (r Record) Get(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Set assigns a field value, appending the name to the field order if new.
func (r *Record) Set(name string, value any) {
	if r.fields == nil {
		r.fields = map[string]any{}
	}
	if _, ok := r.fields[name]; !ok {
		r.order = append(r.order, name)
	}
	r.fields[name] = value
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.order)
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := Record{
		fields: make(map[string]any, len(r.fields)),
		order:  make([]string, len(r.order)),
	}
	copy(c.order, r.order)
	for k, v := range r.fields {
		c.fields[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		return out
	default:
		// Scalars (nil, bool, string, json.Number) are immutable.
		return v
	}
}

// UnmarshalJSON decodes a JSON object, recording top-level key order and
// keeping numbers as json.Number.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "record: read opening token")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return eris.Errorf("record: expected object, got %v", tok)
	}

	r.fields = map[string]any{}
	r.order = nil

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "record: read key")
		}
		key, ok := keyTok.(string)
		if !ok {
			return eris.Errorf("record: expected string key, got %v", keyTok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return eris.Wrapf(err, "record: decode field %s", key)
		}
		r.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "record: read closing token")
	}
	return nil
}

// MarshalJSON encodes the record preserving field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, eris.Wrapf(err, "record: marshal key %s", name)
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.fields[name])
		if err != nil {
			return nil, eris.Wrapf(err, "record: marshal field %s", name)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Identity derives the position-dependent identity key for a record at the
// given collection index: the first non-empty value among the identity
// fields, else the first field's value, concatenated with the index. This is
// a UI bookkeeping key, not a durable one, and must be recomputed whenever
// the collection's order or contents change.
func Identity(r Record, index int) string {
	base := ""
	for _, name := range identityFields {
		if v, ok := r.Get(name); ok {
			if s := stringifyScalar(v); s != "" {
				base = s
				break
			}
		}
	}
	if base == "" && len(r.order) > 0 {
		if v, ok := r.Get(r.order[0]); ok {
			base = stringifyScalar(v)
		}
	}
	return fmt.Sprintf("%s-%d", base, index)
}

// stringifyScalar renders a JSON value as comparison text. Composite values
// fall back to their canonical JSON encoding.
func stringifyScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		// Values built in code rather than decoded from JSON.
		return json.Number(fmt.Sprintf("%g", val)).String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

// FieldUniverse returns the ordered union of field names across records,
// in order of first appearance.
func FieldUniverse(records []Record) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range records {
		for _, name := range r.order {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
