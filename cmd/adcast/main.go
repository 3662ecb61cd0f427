package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go2tv.app/adcast/ads"
	"go2tv.app/adcast/castprotocol"
	"go2tv.app/adcast/devices"
	"go2tv.app/adcast/internal/advertising"
	"go2tv.app/adcast/internal/config"
	"go2tv.app/adcast/internal/interactive"
	"go2tv.app/adcast/internal/utils"
	"go2tv.app/adcast/mediainfo"
)

var (
	//go:embed version.txt
	version     string
	errNoflag   = errors.New("no flag used")
	urlArg      = flag.String("u", "", "HTTP URL of the media to cast.")
	ctypeArg    = flag.String("ct", "", "Content type of the media. Detected from the URL when empty.")
	targetPtr   = flag.String("t", "", "Chromecast address (host or host:port). Defaults to the configured device, then the first discovered one.")
	adsArg      = flag.String("a", "", "Advertising configuration, a JSON file path or http(s) URL. Must contain \"client\" and \"schedule\".")
	mediaIDArg  = flag.String("m", "", "Media id passed to the receiver.")
	titleArg    = flag.String("title", "", "Media title.")
	livePtr     = flag.Bool("live", false, "Load the media as a live stream.")
	durationArg = flag.Float64("duration", 0, "Media duration in seconds. Left to the receiver when 0.")
	appIDArg    = flag.String("app", "", "Receiver application id. Defaults to the configured one.")
	openPtr     = flag.Bool("open", false, "Open companion ad click-through URLs in the browser.")
	interPtr    = flag.Bool("i", false, "Interactive terminal with playback and ad controls.")
	listPtr     = flag.Bool("l", false, "List all Chromecast devices on the local network.")
	debugPtr    = flag.Bool("debug", false, "Enable debug logging.")
	versionPtr  = flag.Bool("version", false, "Print version.")
	ErrNoCombi  = errors.New("can't combine -l with other flags")
	ErrNoDevice = errors.New("no device selected")
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, errNoflag) {
			flag.Usage()
			os.Exit(0)
		}

		fmt.Fprintf(os.Stderr, "Encountered error(s): %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	exitCTX, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	flag.Parse()

	if *versionPtr {
		fmt.Println(strings.TrimSpace(version))
		return nil
	}

	conf, err := config.GetAppConfig()
	if err != nil {
		return err
	}

	log := newLogger(os.Stderr, conf.Level(), *debugPtr)
	if *interPtr && !*debugPtr {
		// keep the terminal to the screen
		log = zerolog.Nop()
	}
	ads.SetLogger(log.With().Str("Component", "ads").Logger())

	if *listPtr {
		return listFlagFunction(exitCTX, conf)
	}

	if *urlArg == "" {
		return fmt.Errorf("checkflags error: %w", errNoflag)
	}

	target, err := selectDevice(exitCTX, conf)
	if err != nil {
		return err
	}

	info, err := buildMediaInfo(exitCTX)
	if err != nil {
		return err
	}

	appID := conf.ReceiverAppID
	if *appIDArg != "" {
		appID = *appIDArg
	}

	client, err := castprotocol.NewCastClient(target, appID)
	if err != nil {
		return err
	}
	client.SetLogger(log)

	remote := client.RemoteMediaClient()
	remote.SetParseAdsInfoCallback(ads.ParseAdsInfoCallback{})

	manager := ads.NewManager(remote)

	var screen *interactive.ChromecastScreen
	if *interPtr {
		screen, err = interactive.InitChromecastScreen(cancel)
		if err != nil {
			return err
		}
		screen.Client = client
		manager.SetListener(screen)
	} else {
		manager.SetListener(newEventPrinter(os.Stdout, log, *openPtr))
	}

	if err := client.Connect(); err != nil {
		return err
	}

	if err := client.Load(exitCTX, info, 0, true); err != nil {
		_ = client.Close(false)
		return err
	}

	scrErr := make(chan error, 1)
	if screen != nil {
		title := *titleArg
		if title == "" {
			title = path.Base(info.ContentId)
		}
		go screen.InterInit(title, scrErr)
	} else {
		fmt.Printf("Casting %s to %s\n", info.ContentId, client.Host())
	}

	ticker := time.NewTicker(conf.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-exitCTX.Done():
			return client.Close(true)
		case err := <-scrErr:
			_ = client.Close(true)
			return err
		case <-ticker.C:
			if err := client.RequestStatus(); err != nil && !errors.Is(err, castprotocol.ErrNotConnected) {
				return err
			}
			if st := client.GetStatus(); st.PlayerState == "IDLE" && remote.MediaStatus() != nil && remote.MediaStatus().IdleReason == "FINISHED" {
				if screen != nil {
					screen.Current.Fini()
				}
				fmt.Println("Playback finished")
				return client.Close(false)
			}
		}
	}
}

// newLogger writes human readable logs to out. -debug overrides the
// configured level.
func newLogger(out io.Writer, level zerolog.Level, debug bool) zerolog.Logger {
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}

func buildMediaInfo(ctx context.Context) (castprotocol.MediaInfo, error) {
	contentType := *ctypeArg
	if contentType == "" {
		ct, err := utils.MediaContentType(ctx, advertising.NewHTTPClient(1), *urlArg)
		if err != nil {
			return castprotocol.MediaInfo{}, fmt.Errorf("detect content type: %w", err)
		}
		contentType = ct
	}

	builder := newMediaBuilder(contentType)
	customData := castprotocol.NewCustomData()

	if *adsArg != "" {
		adConfig, err := advertising.Load(ctx, *adsArg)
		if err != nil {
			return castprotocol.MediaInfo{}, err
		}
		if _, err := mediainfo.SetAdvertising(builder, adConfig, customData); err != nil {
			return castprotocol.MediaInfo{}, err
		}
	}

	if *mediaIDArg != "" {
		if _, err := mediainfo.SetMediaID(builder, mediaIDArg, customData); err != nil {
			return castprotocol.MediaInfo{}, err
		}
	}

	return builder.Build(), nil
}

// newMediaBuilder starts the media item from the -u, -title, -live and
// -duration flags.
func newMediaBuilder(contentType string) *castprotocol.MediaInfoBuilder {
	builder := castprotocol.NewMediaInfoBuilder(*urlArg).
		SetContentType(contentType).
		SetDuration(*durationArg)
	if *livePtr {
		builder.SetStreamType("LIVE")
	}
	if *titleArg != "" {
		builder.SetTitle(*titleArg)
	}
	return builder
}

func selectDevice(ctx context.Context, conf *config.Config) (string, error) {
	if *targetPtr != "" {
		return *targetPtr, nil
	}
	if conf.Device != "" {
		return conf.Device, nil
	}

	devs, err := devices.LoadChromecastDevices(ctx, conf.DiscoveryWait())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	for _, d := range devs {
		if !d.IsAudioOnly {
			return d.Addr, nil
		}
	}
	return "", fmt.Errorf("%w: only audio devices found", ErrNoDevice)
}

func listFlagFunction(ctx context.Context, conf *config.Config) error {
	flagsEnabled := 0
	flag.Visit(func(f *flag.Flag) {
		if f.Name != "debug" {
			flagsEnabled++
		}
	})

	if flagsEnabled > 1 {
		return ErrNoCombi
	}

	devs, err := devices.LoadChromecastDevices(ctx, conf.DiscoveryWait())
	if err != nil {
		return err
	}

	fmt.Println()
	for q, d := range devs {
		kind := "Video"
		if d.IsAudioOnly {
			kind = "Audio"
		}
		fmt.Printf("Device %v\n", q+1)
		fmt.Println("--------")
		fmt.Printf("Name: %s\n", d.Name)
		fmt.Printf("Addr: %s\n", d.Addr)
		fmt.Printf("Type: %s\n", kind)
		fmt.Println()
	}

	return nil
}
