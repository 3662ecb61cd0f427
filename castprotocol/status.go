package castprotocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/go-viper/mapstructure/v2"
)

// ErrNotMediaStatus is returned when a media namespace payload is not a
// MEDIA_STATUS message.
var ErrNotMediaStatus = errors.New("not a MEDIA_STATUS message")

// CastStatus represents current Chromecast playback state.
type CastStatus struct {
	PlayerState string  // "PLAYING", "PAUSED", "IDLE", "BUFFERING"
	CurrentTime float64 // Current position in seconds
	Duration    float64 // Total duration in seconds
	MediaTitle  string
	ContentType string
	AdPlaying   bool
	// AdBreakStatus is set while the receiver plays an ad break.
	AdBreakStatus *AdBreakStatus
}

// MediaStatus is one entry of a MEDIA_STATUS message.
type MediaStatus struct {
	MediaSessionId int
	PlayerState    string
	IdleReason     string
	CurrentTime    float64
	Media          *MediaInfo
	// CustomData is the raw customData object sent by the receiver, nil
	// when absent.
	CustomData    json.RawMessage
	AdBreakStatus *AdBreakStatus
}

// AdBreakInfo describes an ad break scheduled on the media item.
type AdBreakInfo struct {
	Id           string   `json:"id"`
	Position     float64  `json:"position"`
	Duration     float64  `json:"duration,omitempty"`
	IsWatched    bool     `json:"isWatched"`
	BreakClipIds []string `json:"breakClipIds,omitempty"`
}

// AdBreakClipInfo describes a single clip inside an ad break.
type AdBreakClipInfo struct {
	Id              string  `json:"id"`
	Duration        float64 `json:"duration,omitempty"`
	ClickThroughUrl string  `json:"clickThroughUrl,omitempty"`
	ContentId       string  `json:"contentId,omitempty"`
	ContentType     string  `json:"contentType,omitempty"`
	Title           string  `json:"title,omitempty"`
}

// AdBreakStatus is present in a media status while an ad break plays.
type AdBreakStatus struct {
	CurrentBreakTime     float64 `mapstructure:"currentBreakTime"`
	CurrentBreakClipTime float64 `mapstructure:"currentBreakClipTime"`
	BreakId              string  `mapstructure:"breakId"`
	BreakClipId          string  `mapstructure:"breakClipId"`
	// WhenSkippable is -1 when the clip cannot be skipped.
	WhenSkippable int `mapstructure:"whenSkippable"`
}

type mediaStatusEntry struct {
	MediaSessionId int             `json:"mediaSessionId"`
	PlayerState    string          `json:"playerState"`
	IdleReason     string          `json:"idleReason"`
	CurrentTime    float64         `json:"currentTime"`
	Media          *MediaInfo      `json:"media"`
	CustomData     json.RawMessage `json:"customData"`
	BreakStatus    map[string]any  `json:"breakStatus"`
}

// ParseMediaStatusMessage decodes the status entries of a MEDIA_STATUS
// payload. Other message types return ErrNotMediaStatus.
func ParseMediaStatusMessage(payload []byte) ([]MediaStatus, error) {
	msgType, err := jsonparser.GetString(payload, "type")
	if err != nil {
		return nil, fmt.Errorf("parse media status: %w", err)
	}
	if msgType != "MEDIA_STATUS" {
		return nil, ErrNotMediaStatus
	}

	var (
		out     []MediaStatus
		itemErr error
	)
	_, err = jsonparser.ArrayEach(payload, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if itemErr != nil {
			return
		}
		if dataType != jsonparser.Object {
			itemErr = fmt.Errorf("status entry is %s, not an object", dataType)
			return
		}
		st, err := parseMediaStatusEntry(value)
		if err != nil {
			itemErr = err
			return
		}
		out = append(out, st)
	}, "status")
	if err != nil && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return nil, fmt.Errorf("parse media status: %w", err)
	}
	if itemErr != nil {
		return nil, fmt.Errorf("parse media status: %w", itemErr)
	}

	return out, nil
}

func parseMediaStatusEntry(data []byte) (MediaStatus, error) {
	var entry mediaStatusEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return MediaStatus{}, err
	}

	st := MediaStatus{
		MediaSessionId: entry.MediaSessionId,
		PlayerState:    entry.PlayerState,
		IdleReason:     entry.IdleReason,
		CurrentTime:    entry.CurrentTime,
		Media:          entry.Media,
	}

	if len(entry.CustomData) > 0 && string(entry.CustomData) != "null" {
		st.CustomData = entry.CustomData
	}

	if entry.BreakStatus != nil {
		bs, err := decodeBreakStatus(entry.BreakStatus)
		if err != nil {
			return MediaStatus{}, err
		}
		st.AdBreakStatus = bs
	}

	return st, nil
}

func decodeBreakStatus(raw map[string]any) (*AdBreakStatus, error) {
	bs := &AdBreakStatus{WhenSkippable: -1}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           bs,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode breakStatus: %w", err)
	}
	return bs, nil
}
