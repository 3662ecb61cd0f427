package interactive

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"go2tv.app/adcast/ads"
	"go2tv.app/adcast/castprotocol"
)

func emitStr(s tcell.Screen, x, y int, style tcell.Style, str string) {
	for _, c := range str {
		var comb []rune
		w := runewidth.RuneWidth(c)
		if w == 0 {
			comb = []rune{c}
			c = ' '
			w = 1
		}
		s.SetContent(x, y, c, comb, style)
		x += w
	}
}

func emitCentered(s tcell.Screen, width, y int, style tcell.Style, str string) {
	emitStr(s, width/2-runewidth.StringWidth(str)/2, y, style, str)
}

// playPauseActionFromState returns the command that toggles playback
// from the given receiver player state.
func playPauseActionFromState(state string) string {
	switch strings.ToUpper(strings.TrimSpace(state)) {
	case "PLAYING", "BUFFERING":
		return "Pause"
	default:
		return "Play"
	}
}

// adLabel describes the ad being played, truncated to width cells.
func adLabel(meta *ads.AdMeta, width int) string {
	if meta == nil {
		return "Advertisement"
	}

	label := fmt.Sprintf("Ad %d of %d", meta.Sequence, meta.PodCount)
	switch {
	case meta.Title != "":
		label += ": " + meta.Title
	case meta.Message != "":
		label += ": " + meta.Message
	}
	if width <= 0 {
		return label
	}
	return runewidth.Truncate(label, width, "…")
}

// skipRemaining returns the whole seconds left before the current clip
// can be skipped. ok is false for clips that cannot be skipped.
func skipRemaining(bs *castprotocol.AdBreakStatus) (seconds int, ok bool) {
	if bs == nil || bs.WhenSkippable < 0 {
		return 0, false
	}
	remaining := float64(bs.WhenSkippable) - bs.CurrentBreakClipTime
	if remaining <= 0 {
		return 0, true
	}
	seconds = int(remaining)
	if float64(seconds) < remaining {
		seconds++
	}
	return seconds, true
}

func canSkip(bs *castprotocol.AdBreakStatus) bool {
	seconds, ok := skipRemaining(bs)
	return ok && seconds == 0
}

func skipLabel(bs *castprotocol.AdBreakStatus) string {
	seconds, ok := skipRemaining(bs)
	switch {
	case !ok:
		return ""
	case seconds > 0:
		return fmt.Sprintf("Skip in %ds", seconds)
	default:
		return `Press "s" to skip`
	}
}
