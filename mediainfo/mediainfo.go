// Package mediainfo attaches receiver specific fields to the custom data of
// a media item before it is loaded.
package mediainfo

import (
	"errors"
	"fmt"

	"go2tv.app/adcast/castprotocol"
)

const (
	advertisingKey = "advertising"
	mediaIDKey     = "mediaid"
)

// ErrInvalidArgument is returned when the input cannot be attached.
var ErrInvalidArgument = errors.New("invalid argument")

// SetAdvertising stores the advertising configuration under "advertising"
// in customData and sets customData on the builder. The configuration must
// contain a "client" and a "schedule". If customData already holds an
// advertising entry castprotocol.ErrDuplicateKey is returned.
func SetAdvertising(b *castprotocol.MediaInfoBuilder, advertising, customData *castprotocol.CustomData) (*castprotocol.MediaInfoBuilder, error) {
	if !advertising.Has("client") {
		return nil, fmt.Errorf("%w: advertising does not have a client", ErrInvalidArgument)
	}
	if !advertising.Has("schedule") {
		return nil, fmt.Errorf("%w: advertising is missing a schedule", ErrInvalidArgument)
	}
	if customData == nil {
		return nil, fmt.Errorf("%w: custom data is nil", ErrInvalidArgument)
	}

	if err := customData.Put(advertisingKey, advertising); err != nil {
		return nil, err
	}
	b.SetCustomData(customData)
	return b, nil
}

// SetMediaID stores mediaID under "mediaid" in customData and sets
// customData on the builder. If customData already holds a media id
// castprotocol.ErrDuplicateKey is returned.
func SetMediaID(b *castprotocol.MediaInfoBuilder, mediaID *string, customData *castprotocol.CustomData) (*castprotocol.MediaInfoBuilder, error) {
	if mediaID == nil {
		return nil, fmt.Errorf("%w: mediaId is nil", ErrInvalidArgument)
	}
	if customData == nil {
		return nil, fmt.Errorf("%w: custom data is nil", ErrInvalidArgument)
	}

	if err := customData.Put(mediaIDKey, *mediaID); err != nil {
		return nil, err
	}
	b.SetCustomData(customData)
	return b, nil
}
