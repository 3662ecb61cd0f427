package castprotocol

// MediaTrack is a track the receiver reports for the loaded media.
type MediaTrack struct {
	TrackId     int    `json:"trackId"`
	Type        string `json:"type"`
	SubType     string `json:"subtype,omitempty"`
	ContentId   string `json:"trackContentId,omitempty"`
	ContentType string `json:"trackContentType,omitempty"`
	Name        string `json:"name,omitempty"`
	Language    string `json:"language,omitempty"`
}

// MediaMeta contains metadata about the media.
type MediaMeta struct {
	MetadataType int    `json:"metadataType"`
	Title        string `json:"title,omitempty"`
	Subtitle     string `json:"subtitle,omitempty"`
}

// MediaInfo is the media item sent in a LOAD request and echoed back in
// MEDIA_STATUS messages.
type MediaInfo struct {
	ContentId   string            `json:"contentId"`
	ContentType string            `json:"contentType,omitempty"`
	StreamType  string            `json:"streamType,omitempty"`
	Duration    float64           `json:"duration,omitempty"`
	Metadata    *MediaMeta        `json:"metadata,omitempty"`
	Tracks      []MediaTrack      `json:"tracks,omitempty"`
	CustomData  *CustomData       `json:"customData,omitempty"`
	Breaks      []AdBreakInfo     `json:"breaks,omitempty"`
	BreakClips  []AdBreakClipInfo `json:"breakClips,omitempty"`
}

// MediaInfoBuilder assembles a MediaInfo. Setters return the builder so
// calls can be chained.
type MediaInfoBuilder struct {
	info MediaInfo
}

// NewMediaInfoBuilder starts a buffered media item for contentID.
func NewMediaInfoBuilder(contentID string) *MediaInfoBuilder {
	return &MediaInfoBuilder{info: MediaInfo{
		ContentId:  contentID,
		StreamType: "BUFFERED",
	}}
}

func (b *MediaInfoBuilder) SetContentType(contentType string) *MediaInfoBuilder {
	b.info.ContentType = contentType
	return b
}

// SetStreamType sets "BUFFERED", "LIVE" or "NONE".
func (b *MediaInfoBuilder) SetStreamType(streamType string) *MediaInfoBuilder {
	b.info.StreamType = streamType
	return b
}

// SetDuration sets the media length in seconds. Zero leaves it to the
// receiver.
func (b *MediaInfoBuilder) SetDuration(seconds float64) *MediaInfoBuilder {
	b.info.Duration = seconds
	return b
}

func (b *MediaInfoBuilder) SetTitle(title string) *MediaInfoBuilder {
	if b.info.Metadata == nil {
		b.info.Metadata = &MediaMeta{}
	}
	b.info.Metadata.Title = title
	return b
}

// SetCustomData attaches the custom data object. The object is shared,
// not copied.
func (b *MediaInfoBuilder) SetCustomData(customData *CustomData) *MediaInfoBuilder {
	b.info.CustomData = customData
	return b
}

// CustomData returns the custom data currently attached to the builder.
func (b *MediaInfoBuilder) CustomData() *CustomData {
	return b.info.CustomData
}

func (b *MediaInfoBuilder) Build() MediaInfo {
	return b.info
}
