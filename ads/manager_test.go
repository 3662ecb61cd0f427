package ads

import (
	"encoding/json"
	"testing"

	"go2tv.app/adcast/castprotocol"
)

type fakeRemote struct {
	status    *castprotocol.MediaStatus
	playing   bool
	listeners []castprotocol.StatusListener
	added     int
	removed   int
}

func (f *fakeRemote) AddListener(l castprotocol.StatusListener) {
	f.added++
	f.listeners = append(f.listeners, l)
}

func (f *fakeRemote) RemoveListener(l castprotocol.StatusListener) {
	f.removed++
	for i, existing := range f.listeners {
		if existing == l {
			f.listeners = append(f.listeners[:i], f.listeners[i+1:]...)
			return
		}
	}
}

func (f *fakeRemote) MediaStatus() *castprotocol.MediaStatus { return f.status }
func (f *fakeRemote) IsPlayingAd() bool                      { return f.playing }

func (f *fakeRemote) update(customData string, playing bool) {
	f.status = &castprotocol.MediaStatus{PlayerState: "PLAYING"}
	if customData != "" {
		f.status.CustomData = json.RawMessage(customData)
	}
	f.playing = playing
	for _, l := range f.listeners {
		l.OnStatusUpdated()
	}
}

type recordingListener struct {
	events []string
	metas  []*AdMeta
}

func (r *recordingListener) OnAdMeta(meta *AdMeta) {
	r.events = append(r.events, "meta")
	r.metas = append(r.metas, meta)
}

func (r *recordingListener) OnAdPlay()  { r.events = append(r.events, "play") }
func (r *recordingListener) OnAdEnded() { r.events = append(r.events, "ended") }

func equalEvents(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestManagerAdMetaDeduplicated(t *testing.T) {
	remote := &fakeRemote{}
	rec := &recordingListener{}
	m := NewManager(remote)
	m.SetListener(rec)

	payload := `{"adMeta":{"id":"ad-1","title":"First"}}`
	remote.update(payload, false)
	remote.update(payload, false)

	if !equalEvents(rec.events, []string{"meta"}) {
		t.Fatalf("events = %v, want [meta]", rec.events)
	}
	if rec.metas[0].ID != "ad-1" || rec.metas[0].Title != "First" {
		t.Fatalf("meta = %+v", rec.metas[0])
	}

	remote.update(`{"adMeta":{"id":"ad-2"}}`, false)
	if !equalEvents(rec.events, []string{"meta", "meta"}) {
		t.Fatalf("events = %v, want [meta meta]", rec.events)
	}
	if got := m.LastAdMeta(); got == nil || got.ID != "ad-2" {
		t.Fatalf("LastAdMeta() = %+v, want ad-2", got)
	}
}

func TestManagerIgnoresMissingAdMeta(t *testing.T) {
	remote := &fakeRemote{}
	rec := &recordingListener{}
	m := NewManager(remote)
	m.SetListener(rec)

	tt := []string{
		``,
		`{"other":1}`,
		`{"adMeta":"not an object"}`,
		`{"adMeta":null}`,
	}
	for _, customData := range tt {
		remote.update(customData, false)
	}

	if len(rec.events) != 0 {
		t.Fatalf("events = %v, want none", rec.events)
	}
	if m.LastAdMeta() != nil {
		t.Fatalf("LastAdMeta() = %+v, want nil", m.LastAdMeta())
	}
}

func TestManagerAdMetaSurvivesMissingUpdate(t *testing.T) {
	remote := &fakeRemote{}
	rec := &recordingListener{}
	m := NewManager(remote)
	m.SetListener(rec)

	payload := `{"adMeta":{"id":"ad-1"}}`
	remote.update(payload, false)
	remote.update(``, false)
	remote.update(payload, false)

	if !equalEvents(rec.events, []string{"meta"}) {
		t.Fatalf("events = %v, want [meta]", rec.events)
	}
}

func TestManagerPlayEnded(t *testing.T) {
	remote := &fakeRemote{}
	rec := &recordingListener{}
	m := NewManager(remote)
	m.SetListener(rec)

	remote.update(``, false)
	remote.update(``, true)
	remote.update(``, true)
	remote.update(``, false)
	remote.update(``, false)
	remote.update(``, true)

	want := []string{"play", "ended", "play"}
	if !equalEvents(rec.events, want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
}

func TestManagerMetaBeforePlay(t *testing.T) {
	remote := &fakeRemote{}
	rec := &recordingListener{}
	m := NewManager(remote)
	m.SetListener(rec)

	remote.update(`{"adMeta":{"id":"ad-1"}}`, true)

	want := []string{"meta", "play"}
	if !equalEvents(rec.events, want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
}

func TestManagerNilListenerKeepsState(t *testing.T) {
	remote := &fakeRemote{}
	m := NewManager(remote)

	remote.update(`{"adMeta":{"id":"ad-1"}}`, true)

	rec := &recordingListener{}
	m.SetListener(rec)
	remote.update(`{"adMeta":{"id":"ad-1"}}`, true)

	if len(rec.events) != 0 {
		t.Fatalf("events = %v, want none", rec.events)
	}
	if m.LastAdMeta() == nil {
		t.Fatal("LastAdMeta() = nil")
	}
}

func TestManagerSetRemoteMediaClient(t *testing.T) {
	first := &fakeRemote{}
	m := NewManager(first)

	m.SetRemoteMediaClient(first)
	if first.added != 1 || len(first.listeners) != 1 {
		t.Fatalf("same client re-subscribed: added = %d, listeners = %d", first.added, len(first.listeners))
	}

	second := &fakeRemote{}
	m.SetRemoteMediaClient(second)
	if first.removed != 1 || len(first.listeners) != 0 {
		t.Fatalf("old client still subscribed: removed = %d, listeners = %d", first.removed, len(first.listeners))
	}
	if second.added != 1 {
		t.Fatalf("new client added = %d, want 1", second.added)
	}

	rec := &recordingListener{}
	m.SetListener(rec)
	second.update(``, true)
	if !equalEvents(rec.events, []string{"play"}) {
		t.Fatalf("events = %v, want [play]", rec.events)
	}
}

// sliceRemote is a value type that cannot be compared with ==.
type sliceRemote struct {
	listeners []castprotocol.StatusListener
}

func (sliceRemote) AddListener(castprotocol.StatusListener)    {}
func (sliceRemote) RemoveListener(castprotocol.StatusListener) {}
func (sliceRemote) MediaStatus() *castprotocol.MediaStatus     { return nil }
func (sliceRemote) IsPlayingAd() bool                          { return false }

func TestManagerNonComparableClient(t *testing.T) {
	m := NewManager(sliceRemote{})
	m.SetRemoteMediaClient(sliceRemote{})
	m.SetRemoteMediaClient(&fakeRemote{})
	m.SetRemoteMediaClient(sliceRemote{listeners: []castprotocol.StatusListener{m}})
	m.OnStatusUpdated()
}

func TestManagerNilClient(t *testing.T) {
	m := NewManager(nil)
	rec := &recordingListener{}
	m.SetListener(rec)
	m.OnStatusUpdated()
	if len(rec.events) != 0 {
		t.Fatalf("events = %v, want none", rec.events)
	}
}

func TestManagerWithRemoteMediaClient(t *testing.T) {
	remote := castprotocol.NewRemoteMediaClient()
	remote.SetParseAdsInfoCallback(ParseAdsInfoCallback{})

	rec := &recordingListener{}
	m := NewManager(remote)
	m.SetListener(rec)

	adStatus := `{"type":"MEDIA_STATUS","status":[{"mediaSessionId":1,"playerState":"PLAYING",
		"customData":{"adMeta":{"id":"ad-7","client":"googima"}},
		"breakStatus":{"breakId":"b1","breakClipId":"c1","currentBreakTime":1}}]}`
	contentStatus := `{"type":"MEDIA_STATUS","status":[{"mediaSessionId":1,"playerState":"PLAYING"}]}`

	for _, p := range []string{adStatus, adStatus, contentStatus} {
		if err := remote.HandlePayload([]byte(p)); err != nil {
			t.Fatalf("HandlePayload() err = %v", err)
		}
	}

	want := []string{"meta", "play", "ended"}
	if !equalEvents(rec.events, want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	if rec.metas[0].Client != "googima" {
		t.Fatalf("Client = %q, want googima", rec.metas[0].Client)
	}
}

func TestParseAdsInfoCallback(t *testing.T) {
	var cb ParseAdsInfoCallback

	if cb.IsPlayingAd(nil) {
		t.Error("IsPlayingAd(nil) = true")
	}
	if cb.AdBreaks(nil) != nil {
		t.Error("AdBreaks(nil) != nil")
	}

	st := &castprotocol.MediaStatus{}
	if cb.IsPlayingAd(st) {
		t.Error("IsPlayingAd without break status = true")
	}
	if cb.AdBreaks(st) != nil {
		t.Error("AdBreaks without media != nil")
	}

	st.AdBreakStatus = &castprotocol.AdBreakStatus{BreakId: "b1", WhenSkippable: -1}
	st.Media = &castprotocol.MediaInfo{Breaks: []castprotocol.AdBreakInfo{{Id: "b1", Position: 0}, {Id: "b2", Position: 30}}}
	if !cb.IsPlayingAd(st) {
		t.Error("IsPlayingAd with break status = false")
	}
	if got := cb.AdBreaks(st); len(got) != 2 || got[1].Id != "b2" {
		t.Errorf("AdBreaks() = %+v", got)
	}
}
