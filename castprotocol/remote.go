package castprotocol

import (
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"
	pb "github.com/vishen/go-chromecast/cast/proto"
)

const mediaNamespace = "urn:x-cast:com.google.cast.media"

// StatusListener is notified after every media status update.
type StatusListener interface {
	OnStatusUpdated()
}

// AdsInfoParser decides how ad state is derived from a media status.
type AdsInfoParser interface {
	IsPlayingAd(status *MediaStatus) bool
	AdBreaks(status *MediaStatus) []AdBreakInfo
}

// RemoteMediaClient tracks the media status reported by a receiver and
// fans it out to StatusListeners. Listeners run synchronously on the
// goroutine that delivers the message, in registration order.
type RemoteMediaClient struct {
	mu          sync.RWMutex
	listeners   []StatusListener
	status      *MediaStatus
	adsParser   AdsInfoParser
	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

// NewRemoteMediaClient returns a client with no status and no listeners.
func NewRemoteMediaClient() *RemoteMediaClient {
	return &RemoteMediaClient{Logger: zerolog.Nop()}
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (r *RemoteMediaClient) Log() *zerolog.Logger {
	if r.LogOutput != nil {
		r.initLogOnce.Do(func() {
			r.Logger = zerolog.New(r.LogOutput).With().Timestamp().Logger()
		})
	}
	return &r.Logger
}

// AddListener registers l. Registering the same listener twice is a no-op.
func (r *RemoteMediaClient) AddListener(l StatusListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.listeners {
		if existing == l {
			return
		}
	}
	r.listeners = append(r.listeners, l)
}

// RemoveListener unregisters l.
func (r *RemoteMediaClient) RemoveListener(l StatusListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.listeners {
		if existing == l {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// SetParseAdsInfoCallback overrides how IsPlayingAd and AdBreaks are
// computed. A nil parser restores the default behavior.
func (r *RemoteMediaClient) SetParseAdsInfoCallback(p AdsInfoParser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adsParser = p
}

// MediaStatus returns the most recent status, or nil before the first
// MEDIA_STATUS message.
func (r *RemoteMediaClient) MediaStatus() *MediaStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// IsPlayingAd reports whether the receiver is currently in an ad break.
func (r *RemoteMediaClient) IsPlayingAd() bool {
	r.mu.RLock()
	status, parser := r.status, r.adsParser
	r.mu.RUnlock()

	if status == nil {
		return false
	}
	if parser != nil {
		return parser.IsPlayingAd(status)
	}
	return status.AdBreakStatus != nil
}

// AdBreaks returns the ad breaks of the current media item.
func (r *RemoteMediaClient) AdBreaks() []AdBreakInfo {
	r.mu.RLock()
	status, parser := r.status, r.adsParser
	r.mu.RUnlock()

	if status == nil {
		return nil
	}
	if parser != nil {
		return parser.AdBreaks(status)
	}
	if status.Media == nil {
		return nil
	}
	return status.Media.Breaks
}

// HandleMessage consumes a raw cast message. It matches the signature of
// go-chromecast's application.CastMessageFunc.
func (r *RemoteMediaClient) HandleMessage(msg *pb.CastMessage) {
	if msg.GetNamespace() != mediaNamespace {
		return
	}
	if err := r.HandlePayload([]byte(msg.GetPayloadUtf8())); err != nil {
		r.Log().Debug().Str("Method", "HandleMessage").Err(err).Msg("dropping media message")
	}
}

// HandlePayload applies a media namespace JSON payload. Payloads that are
// not MEDIA_STATUS messages are ignored.
func (r *RemoteMediaClient) HandlePayload(payload []byte) error {
	statuses, err := ParseMediaStatusMessage(payload)
	if err != nil {
		if errors.Is(err, ErrNotMediaStatus) {
			return nil
		}
		return err
	}
	if len(statuses) == 0 {
		return nil
	}

	st := statuses[0]
	r.mu.Lock()
	// Receivers omit the media item on most updates; keep the one we have.
	if st.Media == nil && r.status != nil && r.status.MediaSessionId == st.MediaSessionId {
		st.Media = r.status.Media
	}
	r.status = &st
	listeners := append([]StatusListener(nil), r.listeners...)
	r.mu.Unlock()

	r.Log().Debug().Str("Method", "HandlePayload").Str("PlayerState", st.PlayerState).Bool("AdBreak", st.AdBreakStatus != nil).Msg("status updated")

	for _, l := range listeners {
		l.OnStatusUpdated()
	}
	return nil
}
