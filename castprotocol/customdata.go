package castprotocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// ErrDuplicateKey is returned by CustomData.Put when the key is already set.
var ErrDuplicateKey = errors.New("duplicate key")

// CustomData is a mutable JSON object attached to media info or carried
// in media status messages.
type CustomData struct {
	fields map[string]any
}

// NewCustomData returns an empty CustomData object.
func NewCustomData() *CustomData {
	return &CustomData{fields: make(map[string]any)}
}

// ParseCustomData decodes a JSON object into a CustomData.
func ParseCustomData(data []byte) (*CustomData, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	fields := make(map[string]any)
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("parse custom data: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("parse custom data: trailing data after object")
	}
	if fields == nil {
		return nil, fmt.Errorf("parse custom data: not a JSON object")
	}

	return &CustomData{fields: fields}, nil
}

// Has reports whether key is set.
func (c *CustomData) Has(key string) bool {
	if c == nil {
		return false
	}
	_, ok := c.fields[key]
	return ok
}

// Get returns the value stored under key.
func (c *CustomData) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.fields[key]
	return v, ok
}

// Put stores value under key. It fails with ErrDuplicateKey if the key
// is already present.
func (c *CustomData) Put(key string, value any) error {
	if c.fields == nil {
		c.fields = make(map[string]any)
	}
	if _, ok := c.fields[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	c.fields[key] = value
	return nil
}

// Set stores value under key, replacing any previous value.
func (c *CustomData) Set(key string, value any) {
	if c.fields == nil {
		c.fields = make(map[string]any)
	}
	c.fields[key] = value
}

// Keys returns the object keys in sorted order.
func (c *CustomData) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.fields))
	for k := range c.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (c *CustomData) Len() int {
	if c == nil {
		return 0
	}
	return len(c.fields)
}

// MarshalJSON implements json.Marshaler.
func (c *CustomData) MarshalJSON() ([]byte, error) {
	if c == nil || c.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.fields)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CustomData) UnmarshalJSON(data []byte) error {
	parsed, err := ParseCustomData(data)
	if err != nil {
		return err
	}
	c.fields = parsed.fields
	return nil
}
