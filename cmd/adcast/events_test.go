package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go2tv.app/adcast/ads"
)

func TestEventPrinterOutput(t *testing.T) {
	var out bytes.Buffer
	p := newEventPrinter(&out, zerolog.Nop(), false)
	p.openURL = func(string) error {
		t.Fatal("opened a URL with openLinks disabled")
		return nil
	}

	p.OnAdMeta(&ads.AdMeta{
		ID:         "ad-1",
		Title:      "Brand spot",
		Client:     "vast",
		WItem:      1,
		WCount:     2,
		Sequence:   1,
		PodCount:   3,
		SkipOffset: 5,
		Companions: []ads.AdCompanion{{ClickThrough: "https://brand.example.com"}},
	})
	p.OnAdPlay()
	p.OnAdEnded()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), out.String())
	}
	for _, want := range []string{"Brand spot", "vast", "pod 1/3", "waterfall 1/2", "skip 5s"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("line %q misses %q", lines[0], want)
		}
	}
	if !strings.HasPrefix(lines[1], "PLAY") || !strings.HasPrefix(lines[2], "END") {
		t.Errorf("unexpected play/end lines: %q", lines[1:])
	}
}

func TestEventPrinterTitleFallback(t *testing.T) {
	var out bytes.Buffer
	p := newEventPrinter(&out, zerolog.Nop(), false)
	p.OnAdMeta(&ads.AdMeta{ID: "ad-7"})

	if !strings.Contains(out.String(), "ad-7") {
		t.Fatalf("output %q misses the ad id", out.String())
	}
}

func TestEventPrinterOpensClickThroughOnce(t *testing.T) {
	var out bytes.Buffer
	p := newEventPrinter(&out, zerolog.Nop(), true)

	var opened []string
	p.openURL = func(u string) error {
		opened = append(opened, u)
		return nil
	}

	meta := &ads.AdMeta{
		ID: "ad-1",
		Companions: []ads.AdCompanion{
			{ClickThrough: "https://brand.example.com/a"},
			{ClickThrough: ""},
		},
	}
	p.OnAdMeta(meta)
	p.OnAdMeta(meta)

	if len(opened) != 1 || opened[0] != "https://brand.example.com/a" {
		t.Fatalf("opened = %v", opened)
	}

	// a second distinct link within the limiter window is dropped
	p.OnAdMeta(&ads.AdMeta{Companions: []ads.AdCompanion{{ClickThrough: "https://brand.example.com/b"}}})
	if len(opened) != 1 {
		t.Fatalf("opened = %v, want rate limited", opened)
	}
}
