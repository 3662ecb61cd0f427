package interactive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"go2tv.app/adcast/ads"
	"go2tv.app/adcast/castprotocol"
)

// Controller is the part of the cast session the screen drives.
// *castprotocol.CastClient implements it.
type Controller interface {
	GetStatus() *castprotocol.CastStatus
	Play() error
	Pause() error
	SkipAd() error
	Stop() error
}

// ChromecastScreen handles interactive CLI for Chromecast devices. It
// doubles as an ads.Listener so ad metadata shows up next to playback
// state.
type ChromecastScreen struct {
	Current     tcell.Screen
	Client      Controller
	exitCTXfunc context.CancelFunc
	mediaTitle  string
	lastAction  string
	adMeta      *ads.AdMeta
	adPlaying   bool
	ready       bool
	mu          sync.RWMutex
}

var _ ads.Listener = (*ChromecastScreen)(nil)

// EmitMsg displays status to the interactive terminal.
func (p *ChromecastScreen) EmitMsg(inputtext string) {
	p.updateLastAction(inputtext)
	s := p.Current

	p.mu.RLock()
	ready, mediaTitle, adMeta, adPlaying := p.ready, p.mediaTitle, p.adMeta, p.adPlaying
	p.mu.RUnlock()

	// ad events can arrive before InterInit ran
	if !ready {
		return
	}

	var breakStatus *castprotocol.AdBreakStatus
	if p.Client != nil {
		breakStatus = p.Client.GetStatus().AdBreakStatus
	}

	w, h := s.Size()
	boldStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite).Bold(true)
	blinkStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite).Blink(true)
	adStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorYellow)

	s.Clear()

	emitCentered(s, w, h/2-4, tcell.StyleDefault, "Title: "+mediaTitle)
	switch inputtext {
	case "Waiting for status...", "Buffering...":
		emitCentered(s, w, h/2-2, blinkStyle, inputtext)
	default:
		emitCentered(s, w, h/2-2, boldStyle, inputtext)
	}
	emitStr(s, 1, 1, tcell.StyleDefault, "Press ESC to stop and exit.")

	if adPlaying {
		emitCentered(s, w, h/2, adStyle, adLabel(adMeta, w-2))
		if label := skipLabel(breakStatus); label != "" {
			emitCentered(s, w, h/2+1, adStyle, label)
		}
	}

	emitCentered(s, w, h/2+3, tcell.StyleDefault, `"p" (Play/Pause)`)
	emitCentered(s, w, h/2+5, tcell.StyleDefault, `"s" (Skip ad)`)
	s.Show()
}

// OnAdMeta implements ads.Listener.
func (p *ChromecastScreen) OnAdMeta(meta *ads.AdMeta) {
	p.mu.Lock()
	p.adMeta = meta
	p.mu.Unlock()
	p.EmitMsg(p.getLastAction())
}

// OnAdPlay implements ads.Listener.
func (p *ChromecastScreen) OnAdPlay() {
	p.setAdPlaying(true)
	p.EmitMsg(p.getLastAction())
}

// OnAdEnded implements ads.Listener.
func (p *ChromecastScreen) OnAdEnded() {
	p.setAdPlaying(false)
	p.EmitMsg(p.getLastAction())
}

// InterInit starts the interactive terminal for Chromecast.
func (p *ChromecastScreen) InterInit(mediaTitle string, c chan error) {
	p.mu.Lock()
	p.mediaTitle = mediaTitle
	p.mu.Unlock()

	s := p.Current
	if err := s.Init(); err != nil {
		c <- fmt.Errorf("chromecast interactive: %w", err)
		return
	}

	defStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite)
	s.SetStyle(defStyle)

	p.mu.Lock()
	p.ready = true
	p.mu.Unlock()

	p.updateLastAction("Waiting for status...")
	p.EmitMsg(p.getLastAction())

	// Status polling goroutine
	statusTicker := time.NewTicker(1 * time.Second)
	var mediaStarted bool
	go func() {
		for range statusTicker.C {
			if p.Client == nil {
				continue
			}
			status := p.Client.GetStatus()
			switch status.PlayerState {
			case "PLAYING":
				mediaStarted = true
				p.EmitMsg("Playing")
			case "PAUSED":
				mediaStarted = true
				p.EmitMsg("Paused")
			case "BUFFERING":
				mediaStarted = true
				p.EmitMsg("Buffering...")
			case "IDLE":
				if mediaStarted {
					p.EmitMsg("Stopped")
				}
			default:
				p.EmitMsg(p.getLastAction())
			}
		}
	}()

	for {
		switch ev := s.PollEvent().(type) {
		case *tcell.EventResize:
			s.Sync()
			p.EmitMsg(p.getLastAction())
		case *tcell.EventKey:
			p.HandleKeyEvent(ev)
		}
	}
}

// HandleKeyEvent handles key press events for Chromecast.
func (p *ChromecastScreen) HandleKeyEvent(ev *tcell.EventKey) {
	if p.Client == nil {
		return
	}

	if ev.Key() == tcell.KeyEscape {
		_ = p.Client.Stop()
		p.Fini()
		return
	}

	switch ev.Rune() {
	case 'p':
		status := p.Client.GetStatus()
		if playPauseActionFromState(status.PlayerState) == "Pause" {
			_ = p.Client.Pause()
			return
		}
		_ = p.Client.Play()
	case 's':
		status := p.Client.GetStatus()
		if canSkip(status.AdBreakStatus) {
			_ = p.Client.SkipAd()
		}
	}
}

// Fini closes the screen and exits.
func (p *ChromecastScreen) Fini() {
	p.Current.Fini()
	p.exitCTXfunc()
}

// InitChromecastScreen creates a new Chromecast interactive screen.
func InitChromecastScreen(ctxCancel context.CancelFunc) (*ChromecastScreen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("chromecast interactive: %w", err)
	}

	return &ChromecastScreen{
		Current:     s,
		exitCTXfunc: ctxCancel,
	}, nil
}

func (p *ChromecastScreen) getLastAction() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastAction
}

func (p *ChromecastScreen) updateLastAction(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastAction = s
}

func (p *ChromecastScreen) setAdPlaying(playing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.adPlaying = playing
}
