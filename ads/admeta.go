package ads

import (
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/cespare/xxhash/v2"
)

// AdMeta is the ad metadata the receiver publishes in its media status
// custom data under "adMeta".
type AdMeta struct {
	// AdType is "linear" or "nonlinear".
	AdType string
	// ID is generated by the receiver for every ad.
	ID  string
	Tag string
	// Client is the ad client, "vast" or "googima".
	Client string
	// WItem and WCount are the waterfall index and length.
	WItem  int
	WCount int
	// Sequence and PodCount are the position in the pod and the pod length.
	Sequence     int
	PodCount     int
	CreativeType string
	// SkipOffset is in seconds.
	SkipOffset   int
	SkipMessage  string
	SkipText     string
	Message      string
	ClickThrough string
	Title        string
	Companions   []AdCompanion
}

type adMetaJSON struct {
	Linear       string          `json:"linear"`
	ID           string          `json:"id"`
	Tag          string          `json:"tag"`
	Client       string          `json:"client"`
	WItem        int             `json:"witem"`
	WCount       int             `json:"wcount"`
	Sequence     int             `json:"sequence"`
	PodCount     int             `json:"podcount"`
	CreativeType string          `json:"creativetype"`
	SkipOffset   int             `json:"skipoffset"`
	SkipMessage  string          `json:"skipMessage"`
	SkipText     string          `json:"skipText"`
	Message      string          `json:"message"`
	ClickThrough string          `json:"clickthrough"`
	Title        string          `json:"title"`
	Companions   json.RawMessage `json:"companions"`
}

// ParseAdMeta builds an AdMeta from a JSON object.
//
// AdType takes the string value of the "linear" key when the key exists
// and "linear" otherwise. Waterfall and pod counters default to 1 and the
// skip offset to 0. A malformed companions array is logged and dropped.
func ParseAdMeta(data []byte) (*AdMeta, error) {
	if !isObject(data) {
		logger.Error().Str("Method", "ParseAdMeta").Msg("not a well-formed JSON object")
		return nil, fmt.Errorf("parse ad meta: not a well-formed JSON object")
	}

	m := &AdMeta{
		AdType:       "linear",
		ID:           optString(data, "id"),
		Tag:          optString(data, "tag"),
		Client:       optString(data, "client"),
		WItem:        optInt(data, "witem", 1),
		WCount:       optInt(data, "wcount", 1),
		Sequence:     optInt(data, "sequence", 1),
		PodCount:     optInt(data, "podcount", 1),
		CreativeType: optString(data, "creativetype"),
		SkipOffset:   optInt(data, "skipoffset", 0),
		SkipMessage:  optString(data, "skipMessage"),
		SkipText:     optString(data, "skipText"),
		Message:      optString(data, "message"),
		ClickThrough: optString(data, "clickthrough"),
		Title:        optString(data, "title"),
	}
	if has(data, "linear") {
		m.AdType = optString(data, "linear")
	}

	companions, dataType := optValue(data, "companions")
	switch dataType {
	case jsonparser.Array:
		parsed, err := ParseAdCompanions(companions)
		if err != nil {
			logger.Error().Str("Method", "ParseAdMeta").Str("ID", m.ID).Err(err).Msg("dropping companions")
			break
		}
		m.Companions = parsed
	case jsonparser.NotExist, jsonparser.Null:
	default:
		logger.Error().Str("Method", "ParseAdMeta").Str("ID", m.ID).Str("Type", dataType.String()).Msg("companions is not an array")
	}

	return m, nil
}

// ToJSON serializes the metadata back to its JSON object form. Failures
// are logged before being returned.
func (m *AdMeta) ToJSON() ([]byte, error) {
	b, err := json.Marshal(adMetaJSON{
		Linear:       m.AdType,
		ID:           m.ID,
		Tag:          m.Tag,
		Client:       m.Client,
		WItem:        m.WItem,
		WCount:       m.WCount,
		Sequence:     m.Sequence,
		PodCount:     m.PodCount,
		CreativeType: m.CreativeType,
		SkipOffset:   m.SkipOffset,
		SkipMessage:  m.SkipMessage,
		SkipText:     m.SkipText,
		Message:      m.Message,
		ClickThrough: m.ClickThrough,
		Title:        m.Title,
		Companions:   CompanionsToJSON(m.Companions),
	})
	if err != nil {
		logger.Error().Str("Method", "ToJSON").Str("ID", m.ID).Err(err).Msg("error serializing AdMeta")
		return nil, fmt.Errorf("serialize ad meta: %w", err)
	}
	return b, nil
}

// Equal reports whether both values carry the same metadata, companions
// included.
func (m *AdMeta) Equal(other *AdMeta) bool {
	if m == other {
		return true
	}
	if m == nil || other == nil {
		return false
	}
	return m.AdType == other.AdType &&
		m.ID == other.ID &&
		m.Tag == other.Tag &&
		m.Client == other.Client &&
		m.WItem == other.WItem &&
		m.WCount == other.WCount &&
		m.Sequence == other.Sequence &&
		m.PodCount == other.PodCount &&
		m.CreativeType == other.CreativeType &&
		m.SkipOffset == other.SkipOffset &&
		m.SkipMessage == other.SkipMessage &&
		m.SkipText == other.SkipText &&
		m.Message == other.Message &&
		m.ClickThrough == other.ClickThrough &&
		m.Title == other.Title &&
		companionsEqual(m.Companions, other.Companions)
}

// Hash returns a structural hash consistent with Equal.
func (m *AdMeta) Hash() uint64 {
	d := xxhash.New()
	for _, s := range []string{m.AdType, m.ID, m.Tag, m.Client} {
		writeString(d, s)
	}
	for _, n := range []int{m.WItem, m.WCount, m.Sequence, m.PodCount} {
		writeInt(d, n)
	}
	writeString(d, m.CreativeType)
	writeInt(d, m.SkipOffset)
	for _, s := range []string{m.SkipMessage, m.SkipText, m.Message, m.ClickThrough, m.Title} {
		writeString(d, s)
	}

	writeInt(d, len(m.Companions))
	for i := range m.Companions {
		m.Companions[i].writeHash(d)
	}
	return d.Sum64()
}
