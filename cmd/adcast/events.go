package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"github.com/skratchdot/open-golang/open"
	"go2tv.app/adcast/ads"
	"golang.org/x/time/rate"
)

const titleWidth = 40

// eventPrinter writes ad events to the terminal and optionally opens
// companion click-through pages.
type eventPrinter struct {
	out         io.Writer
	log         zerolog.Logger
	openLinks   bool
	openLimiter *rate.Limiter
	openURL     func(string) error
	mu          sync.Mutex
	opened      map[string]bool
}

func newEventPrinter(out io.Writer, log zerolog.Logger, openLinks bool) *eventPrinter {
	return &eventPrinter{
		out:       out,
		log:       log,
		openLinks: openLinks,
		// at most one browser launch every 3 seconds
		openLimiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
		openURL:     open.Run,
		opened:      make(map[string]bool),
	}
}

func (p *eventPrinter) OnAdMeta(meta *ads.AdMeta) {
	title := meta.Title
	if title == "" {
		title = meta.ID
	}
	title = runewidth.Truncate(title, titleWidth, "…")

	fmt.Fprintf(p.out, "%s  %s  %s  pod %d/%d  waterfall %d/%d  skip %ds\n",
		runewidth.FillRight("AD", 6),
		runewidth.FillRight(title, titleWidth),
		runewidth.FillRight(meta.Client, 8),
		meta.Sequence, meta.PodCount, meta.WItem, meta.WCount, meta.SkipOffset)

	p.log.Debug().Str("Method", "OnAdMeta").Str("ID", meta.ID).Str("Tag", meta.Tag).Int("Companions", len(meta.Companions)).Msg("ad metadata")

	if !p.openLinks {
		return
	}
	for _, c := range meta.Companions {
		p.openClickThrough(c.ClickThrough)
	}
}

func (p *eventPrinter) OnAdPlay() {
	fmt.Fprintf(p.out, "%s  ad playback started\n", runewidth.FillRight("PLAY", 6))
}

func (p *eventPrinter) OnAdEnded() {
	fmt.Fprintf(p.out, "%s  ad playback ended\n", runewidth.FillRight("END", 6))
}

func (p *eventPrinter) openClickThrough(u string) {
	if u == "" {
		return
	}

	p.mu.Lock()
	seen := p.opened[u]
	p.mu.Unlock()
	if seen || !p.openLimiter.Allow() {
		return
	}

	p.mu.Lock()
	p.opened[u] = true
	p.mu.Unlock()

	if err := p.openURL(u); err != nil {
		p.log.Error().Str("Method", "openClickThrough").Str("URL", u).Err(err).Msg("failed to open")
	}
}

var _ ads.Listener = (*eventPrinter)(nil)
