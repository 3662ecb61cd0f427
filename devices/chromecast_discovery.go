package devices

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	// CapabilityVideoOut is the bitmask for video output capability (bit 0)
	CapabilityVideoOut = 1

	googlecastService = "_googlecast._tcp"
)

// ErrNoDevices is returned when discovery finds no Chromecast device.
var ErrNoDevices = errors.New("no Chromecast devices found")

// Device is a Chromecast found on the local network.
type Device struct {
	Name        string
	Addr        string // host:port
	IsAudioOnly bool
}

// mdnsQuery is swapped in tests.
var mdnsQuery = mdns.Query

// LoadChromecastDevices queries every active interface for Chromecast
// devices for the given timeout. Results are de-duplicated by address and
// sorted by name.
func LoadChromecastDevices(ctx context.Context, timeout time.Duration) ([]Device, error) {
	entriesCh := make(chan *mdns.ServiceEntry, 256)
	found := make(map[string]Device)
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		for entry := range entriesCh {
			if dev, ok := deviceFromEntry(entry); ok {
				found[dev.Addr] = dev
			}
		}
	}()

	queryIface := func(iface *net.Interface) {
		params := mdns.DefaultParams(googlecastService)
		params.Entries = entriesCh
		params.Timeout = timeout
		params.DisableIPv6 = true
		params.WantUnicastResponse = true
		params.Logger = log.New(io.Discard, "", 0)
		params.Interface = iface
		_ = mdnsQuery(params)
	}

	interfaces := getActiveNetworkInterfaces()
	if len(interfaces) > 0 {
		var wg sync.WaitGroup
		for _, iface := range interfaces {
			wg.Add(1)
			go func(iface net.Interface) {
				defer wg.Done()
				queryIface(&iface)
			}(iface)
		}
		wg.Wait()
	} else {
		queryIface(nil)
	}

	close(entriesCh)
	<-doneCh

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("chromecast discovery: %w", err)
	}
	if len(found) == 0 {
		return nil, ErrNoDevices
	}

	out := make([]Device, 0, len(found))
	for _, dev := range found {
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].Addr < out[j].Addr
		}
		return out[i].Name < out[j].Name
	})

	return out, nil
}

func deviceFromEntry(entry *mdns.ServiceEntry) (Device, bool) {
	if entry == nil || entry.AddrV4 == nil {
		return Device{}, false
	}
	if !strings.Contains(entry.Name, "_googlecast") {
		return Device{}, false
	}

	dev := Device{
		Name: entry.Name,
		Addr: net.JoinHostPort(entry.AddrV4.String(), strconv.Itoa(entry.Port)),
	}

	for _, txt := range entry.InfoFields {
		if after, ok := strings.CutPrefix(txt, "fn="); ok {
			dev.Name = after
		}
		if after, ok := strings.CutPrefix(txt, "ca="); ok {
			dev.IsAudioOnly = isChromecastAudioOnly(after)
		}
	}

	if idx := strings.Index(dev.Name, "._googlecast"); idx > 0 {
		dev.Name = dev.Name[:idx]
	}

	return dev, true
}

// getActiveNetworkInterfaces returns all network interfaces that are up,
// multicast-capable, not loopback, and have an IPv4 address.
func getActiveNetworkInterfaces() []net.Interface {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var active []net.Interface
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 ||
			iface.Flags&net.FlagLoopback != 0 ||
			iface.Flags&net.FlagMulticast == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil && !ipnet.IP.IsLoopback() {
				active = append(active, iface)
				break
			}
		}
	}

	return active
}

func isChromecastAudioOnly(caField string) bool {
	ca, err := strconv.Atoi(caField)
	if err != nil {
		// Unknown capabilities: assume a standard video device.
		return false
	}
	return (ca & CapabilityVideoOut) == 0
}
