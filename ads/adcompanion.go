package ads

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"github.com/buger/jsonparser"
	"github.com/cespare/xxhash/v2"
)

// AdCompanion is a companion ad shown next to a video ad.
type AdCompanion struct {
	Width  int
	Height int
	// Type is the MIME type of the companion.
	Type   string
	Source string
	// Trackers maps a tracker name to its ping URLs.
	Trackers     map[string][]string
	ClickThrough string
}

type adCompanionJSON struct {
	Width        int                 `json:"width"`
	Height       int                 `json:"height"`
	Type         string              `json:"type"`
	Source       string              `json:"source"`
	Trackers     map[string][]string `json:"trackers"`
	ClickThrough string              `json:"clickthrough"`
}

// ParseAdCompanion builds an AdCompanion from a JSON object. Missing keys
// default to zero values; tracker entries that are not arrays are skipped.
func ParseAdCompanion(data []byte) (*AdCompanion, error) {
	if !isObject(data) {
		logger.Error().Str("Method", "ParseAdCompanion").Msg("not a well-formed JSON object")
		return nil, fmt.Errorf("parse ad companion: not a well-formed JSON object")
	}

	c := &AdCompanion{
		Width:        optInt(data, "width", 0),
		Height:       optInt(data, "height", 0),
		Type:         optString(data, "type"),
		Source:       optString(data, "source"),
		Trackers:     make(map[string][]string),
		ClickThrough: optString(data, "clickthrough"),
	}

	trackers, dataType := optValue(data, "trackers")
	if dataType == jsonparser.Object {
		_ = jsonparser.ObjectEach(trackers, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
			if dataType != jsonparser.Array {
				return nil
			}
			name, err := jsonparser.ParseString(key)
			if err != nil {
				return nil
			}
			urls := []string{}
			_, _ = jsonparser.ArrayEach(value, func(v []byte, vt jsonparser.ValueType, _ int, _ error) {
				urls = append(urls, valueString(v, vt))
			})
			c.Trackers[name] = urls
			return nil
		})
	}

	return c, nil
}

// ParseAdCompanions converts a JSON array of companion objects. A single
// element that is not an object fails the whole batch.
func ParseAdCompanions(data []byte) ([]AdCompanion, error) {
	if !isArray(data) {
		return nil, fmt.Errorf("parse ad companions: not a well-formed JSON array")
	}

	companions := []AdCompanion{}
	var itemErr error
	index := 0
	_, err := jsonparser.ArrayEach(data, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		defer func() { index++ }()
		if itemErr != nil {
			return
		}
		c, err := ParseAdCompanion(value)
		if err != nil {
			itemErr = fmt.Errorf("element %d: %w", index, err)
			return
		}
		companions = append(companions, *c)
	})
	if err != nil {
		return nil, fmt.Errorf("parse ad companions: %w", err)
	}
	if itemErr != nil {
		return nil, fmt.Errorf("parse ad companions: %w", itemErr)
	}

	return companions, nil
}

// ToJSON serializes the companion back to its JSON object form.
func (c *AdCompanion) ToJSON() ([]byte, error) {
	trackers := c.Trackers
	if trackers == nil {
		trackers = map[string][]string{}
	}
	b, err := json.Marshal(adCompanionJSON{
		Width:        c.Width,
		Height:       c.Height,
		Type:         c.Type,
		Source:       c.Source,
		Trackers:     trackers,
		ClickThrough: c.ClickThrough,
	})
	if err != nil {
		return nil, fmt.Errorf("serialize ad companion: %w", err)
	}
	return b, nil
}

// CompanionsToJSON serializes companions into a JSON array. It never fails:
// an element that cannot be serialized is written as null.
func CompanionsToJSON(companions []AdCompanion) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := range companions {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := companions[i].ToJSON()
		if err != nil {
			logger.Error().Str("Method", "CompanionsToJSON").Int("Index", i).Err(err).Msg("writing null element")
			buf.WriteString("null")
			continue
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// Equal reports whether both companions carry the same values.
func (c *AdCompanion) Equal(other *AdCompanion) bool {
	if c == other {
		return true
	}
	if c == nil || other == nil {
		return false
	}
	if c.Width != other.Width ||
		c.Height != other.Height ||
		c.Type != other.Type ||
		c.Source != other.Source ||
		c.ClickThrough != other.ClickThrough {
		return false
	}
	if len(c.Trackers) != len(other.Trackers) {
		return false
	}
	for name, urls := range c.Trackers {
		otherURLs, ok := other.Trackers[name]
		if !ok || !slices.Equal(urls, otherURLs) {
			return false
		}
	}
	return true
}

// Hash returns a structural hash consistent with Equal.
func (c *AdCompanion) Hash() uint64 {
	d := xxhash.New()
	c.writeHash(d)
	return d.Sum64()
}

func (c *AdCompanion) writeHash(d *xxhash.Digest) {
	writeInt(d, c.Width)
	writeInt(d, c.Height)
	writeString(d, c.Type)
	writeString(d, c.Source)

	names := make([]string, 0, len(c.Trackers))
	for name := range c.Trackers {
		names = append(names, name)
	}
	sort.Strings(names)
	writeInt(d, len(names))
	for _, name := range names {
		writeString(d, name)
		urls := c.Trackers[name]
		writeInt(d, len(urls))
		for _, u := range urls {
			writeString(d, u)
		}
	}

	writeString(d, c.ClickThrough)
}

func companionsEqual(a, b []AdCompanion) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(&b[i]) {
			return false
		}
	}
	return true
}
