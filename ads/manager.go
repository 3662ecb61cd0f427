package ads

import (
	"reflect"
	"sync"

	"github.com/buger/jsonparser"
	"go2tv.app/adcast/castprotocol"
)

// Listener receives ad events derived from receiver status updates.
type Listener interface {
	// OnAdMeta is called when the receiver publishes new ad metadata.
	OnAdMeta(meta *AdMeta)
	// OnAdPlay is called when ad playback begins.
	OnAdPlay()
	// OnAdEnded is called when ad playback ends.
	OnAdEnded()
}

// RemoteMediaClient is the status source a Manager observes.
// *castprotocol.RemoteMediaClient implements it.
type RemoteMediaClient interface {
	AddListener(l castprotocol.StatusListener)
	RemoveListener(l castprotocol.StatusListener)
	MediaStatus() *castprotocol.MediaStatus
	IsPlayingAd() bool
}

// Manager turns status updates into Listener calls. It tracks two
// independent signals: changes of the adMeta object in the status custom
// data, and flips of the ad playing flag.
type Manager struct {
	mu         sync.Mutex
	client     RemoteMediaClient
	adPlaying  bool
	lastAdMeta *AdMeta
	listener   Listener
}

// NewManager returns a Manager subscribed to client.
func NewManager(client RemoteMediaClient) *Manager {
	m := &Manager{}
	m.SetRemoteMediaClient(client)
	return m
}

// SetRemoteMediaClient subscribes to client. Passing the client already in
// use is a no-op; any other client replaces the previous subscription.
// Implementations of a non-comparable type are never treated as the
// client in use.
func (m *Manager) SetRemoteMediaClient(client RemoteMediaClient) {
	m.mu.Lock()
	if sameClient(client, m.client) {
		m.mu.Unlock()
		return
	}
	previous := m.client
	m.client = client
	m.mu.Unlock()

	if previous != nil {
		previous.RemoveListener(m)
	}
	if client != nil {
		client.AddListener(m)
	}
}

func sameClient(a, b RemoteMediaClient) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) || !t.Comparable() {
		return false
	}
	return a == b
}

// SetListener replaces the listener. A nil listener silences events while
// state keeps being tracked.
func (m *Manager) SetListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// LastAdMeta returns the most recently observed ad metadata.
func (m *Manager) LastAdMeta() *AdMeta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAdMeta
}

// OnStatusUpdated implements castprotocol.StatusListener.
func (m *Manager) OnStatusUpdated() {
	m.mu.Lock()
	client, listener := m.client, m.listener
	if client == nil {
		m.mu.Unlock()
		return
	}

	var changedMeta *AdMeta
	if meta := adMetaFromStatus(client.MediaStatus()); meta != nil {
		if !meta.Equal(m.lastAdMeta) {
			changedMeta = meta
		}
		m.lastAdMeta = meta
	}

	var started, ended bool
	if playing := client.IsPlayingAd(); playing != m.adPlaying {
		m.adPlaying = playing
		started, ended = playing, !playing
	}
	m.mu.Unlock()

	if listener == nil {
		return
	}
	if changedMeta != nil {
		listener.OnAdMeta(changedMeta)
	}
	if started {
		listener.OnAdPlay()
	}
	if ended {
		listener.OnAdEnded()
	}
}

// adMetaFromStatus extracts customData.adMeta. It returns nil when the
// object is absent or cannot be parsed.
func adMetaFromStatus(status *castprotocol.MediaStatus) *AdMeta {
	if status == nil || len(status.CustomData) == 0 {
		return nil
	}
	raw, dataType, _, err := jsonparser.Get(status.CustomData, "adMeta")
	if err != nil || dataType != jsonparser.Object {
		return nil
	}
	meta, err := ParseAdMeta(raw)
	if err != nil {
		logger.Error().Str("Method", "OnStatusUpdated").Err(err).Msg("invalid adMeta")
		return nil
	}
	return meta
}

// ParseAdsInfoCallback derives ad state from the fields the receiver
// already sets on the media status.
type ParseAdsInfoCallback struct{}

var _ castprotocol.AdsInfoParser = ParseAdsInfoCallback{}

// IsPlayingAd reports true while the status carries an ad break status.
func (ParseAdsInfoCallback) IsPlayingAd(status *castprotocol.MediaStatus) bool {
	return status != nil && status.AdBreakStatus != nil
}

// AdBreaks returns the ad breaks of the status media item.
func (ParseAdsInfoCallback) AdBreaks(status *castprotocol.MediaStatus) []castprotocol.AdBreakInfo {
	if status == nil || status.Media == nil {
		return nil
	}
	return status.Media.Breaks
}
