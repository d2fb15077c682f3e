package rfc5424

import (
	"encoding/json"
	"sort"
)

// Record is the result of parsing one line: a mapping from key to either
// a string or null. A Record cannot be modified once returned; the zero
// Record is empty.
type Record struct {
	fields map[string]*string
}

// Len returns the number of keys in the record.
func (r Record) Len() int { return len(r.fields) }

// Has reports whether key is present, with a value or null.
func (r Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// Get returns the string stored under key. ok is false when the key is
// absent or null.
func (r Record) Get(key string) (value string, ok bool) {
	v, present := r.fields[key]
	if !present || v == nil {
		return "", false
	}
	return *v, true
}

// IsNull reports whether key is present with a null value.
func (r Record) IsNull(key string) bool {
	v, ok := r.fields[key]
	return ok && v == nil
}

// Keys returns all keys in ascending order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the record. Null values are nil.
func (r Record) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.fields))
	for k, v := range r.fields {
		if v == nil {
			m[k] = nil
		} else {
			m[k] = *v
		}
	}
	return m
}

// MarshalJSON encodes the record as a JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// builder accumulates a Record as grammar rules complete. Writes are
// last-write-wins. After finalize the builder may not be written to.
type builder struct {
	fields map[string]*string
	sealed bool
}

func newBuilder() *builder {
	return &builder{fields: make(map[string]*string)}
}

func (b *builder) put(key, value string) {
	b.check()
	v := value
	b.fields[key] = &v
}

func (b *builder) putNull(key string) {
	b.check()
	b.fields[key] = nil
}

func (b *builder) check() {
	if b.sealed {
		panic("rfc5424: write to finalized record")
	}
}

// finalize seals the builder and hands its contents to a Record.
func (b *builder) finalize() Record {
	b.check()
	b.sealed = true
	return Record{fields: b.fields}
}
