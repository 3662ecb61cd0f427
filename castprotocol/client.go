package castprotocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vishen/go-chromecast/application"
	"github.com/vishen/go-chromecast/cast"
)

const (
	defaultCastPort = 8009

	loadAttempts       = 5
	transportAttempts  = 8
	wakeUpRetryBackoff = 4 * time.Second
)

var (
	// ErrNotConnected is returned by operations that need a live session.
	ErrNotConnected = errors.New("not connected")
	// ErrNoMediaSession is returned by media commands sent before the
	// receiver reported a media status.
	ErrNoMediaSession = errors.New("no media session")
)

// castApplication is the subset of go-chromecast's Application we drive.
type castApplication interface {
	Start(addr string, port int) error
	Update() error
	App() *cast.Application
	Stop() error
	Close(stopMedia bool) error
	AddMessageFunc(f application.CastMessageFunc)
}

// CastClient wraps go-chromecast Application and exposes the receiver's
// media status through a RemoteMediaClient.
type CastClient struct {
	app         castApplication
	conn        Sender // keep reference to connection for custom commands
	remote      *RemoteMediaClient
	mu          sync.RWMutex
	host        string
	port        int
	appID       string
	transportId string
	connected   bool
	sleep       func(ctx context.Context, d time.Duration) error
	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (c *CastClient) Log() *zerolog.Logger {
	if c.LogOutput != nil {
		c.initLogOnce.Do(func() {
			c.Logger = zerolog.New(c.LogOutput).With().Timestamp().Logger()
			c.remote.Logger = c.Logger
		})
	}
	return &c.Logger
}

// SetLogger sets the logger used by the client and its RemoteMediaClient.
func (c *CastClient) SetLogger(l zerolog.Logger) {
	c.Logger = l
	c.remote.Logger = l
}

// NewCastClient prepares a client for the device at deviceAddr
// ("host", "host:port" or "scheme://host:port"). appID selects the
// receiver application; empty means the Default Media Receiver.
func NewCastClient(deviceAddr string, appID string) (*CastClient, error) {
	host, port, err := splitDeviceAddr(deviceAddr)
	if err != nil {
		return nil, err
	}

	// Create our own connection that we can use for custom commands
	conn := cast.NewConnection()

	app := application.NewApplication(
		application.WithConnection(conn),
		application.WithConnectionRetries(5), // slow TVs need time to wake
	)

	return newCastClient(app, conn, host, port, appID), nil
}

func newCastClient(app castApplication, conn Sender, host string, port int, appID string) *CastClient {
	if appID == "" {
		appID = DefaultMediaReceiverAppID
	}

	c := &CastClient{
		app:    app,
		conn:   conn,
		remote: NewRemoteMediaClient(),
		host:   host,
		port:   port,
		appID:  appID,
		sleep:  sleepCtx,
		Logger: zerolog.Nop(),
	}
	app.AddMessageFunc(c.remote.HandleMessage)
	return c
}

func splitDeviceAddr(deviceAddr string) (string, int, error) {
	if !strings.Contains(deviceAddr, "://") {
		deviceAddr = "cast://" + deviceAddr
	}

	u, err := url.Parse(deviceAddr)
	if err != nil {
		return "", 0, fmt.Errorf("parse device addr: %w", err)
	}
	if u.Hostname() == "" {
		return "", 0, fmt.Errorf("parse device addr: missing host in %q", deviceAddr)
	}

	port := defaultCastPort
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return "", 0, fmt.Errorf("parse device port: %w", err)
		}
	}

	return u.Hostname(), port, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RemoteMediaClient returns the status tracker fed by this session.
func (c *CastClient) RemoteMediaClient() *RemoteMediaClient {
	return c.remote
}

// Connect establishes connection to the Chromecast device.
func (c *CastClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Log().Debug().Str("Method", "Connect").Str("Host", c.host).Int("Port", c.port).Msg("connecting")
	if err := c.app.Start(c.host, c.port); err != nil {
		c.Log().Error().Str("Method", "Connect").Err(err).Msg("connection failed")
		return fmt.Errorf("chromecast connect: %w", err)
	}
	c.connected = true
	c.Log().Debug().Str("Method", "Connect").Msg("connected successfully")
	return nil
}

// isTimeoutError checks if an error is a timeout/deadline exceeded error.
// This typically happens when the TV needs to wake from sleep.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// Load launches the receiver application and loads info on it.
// startTime is the position in seconds to start playback from.
func (c *CastClient) Load(ctx context.Context, info MediaInfo, startTime int, autoplay bool) error {
	c.Log().Debug().Str("Method", "Load").Str("URL", info.ContentId).Str("ContentType", info.ContentType).Int("StartTime", startTime).Bool("HasCustomData", info.CustomData.Len() > 0).Msg("loading media")

	if !c.IsConnected() {
		c.Log().Debug().Str("Method", "Load").Msg("connection closed, reconnecting")
		if err := c.Connect(); err != nil {
			return fmt.Errorf("reconnect before load: %w", err)
		}
	}

	var lastErr error
	for attempt := range loadAttempts {
		if !c.IsConnected() {
			c.Log().Debug().Str("Method", "Load").Msg("connection closed during load, aborting silently")
			return nil
		}

		err := c.launchAndLoad(ctx, info, startTime, autoplay)
		if err == nil {
			c.Log().Debug().Str("Method", "Load").Msg("load success")
			return nil
		}
		lastErr = err

		if !isTimeoutError(err) || attempt == loadAttempts-1 {
			c.Log().Error().Str("Method", "Load").Err(err).Msg("load failed")
			return err
		}

		c.Log().Debug().Str("Method", "Load").Int("Attempt", attempt).Err(err).Msg("timeout, TV may be waking up, retrying...")
		if err := c.sleep(ctx, wakeUpRetryBackoff); err != nil {
			return err
		}
	}
	return lastErr
}

func (c *CastClient) launchAndLoad(ctx context.Context, info MediaInfo, startTime int, autoplay bool) error {
	c.mu.RLock()
	appID := c.appID
	c.mu.RUnlock()

	if err := LaunchReceiver(c.conn, appID); err != nil {
		return fmt.Errorf("launch receiver: %w", err)
	}

	transportId, err := c.waitTransport(ctx, appID)
	if err != nil {
		return err
	}

	if err := ConnectTransport(c.conn, transportId); err != nil {
		return err
	}

	return LoadMedia(c.conn, transportId, info, startTime, autoplay)
}

// waitTransport polls the receiver status until appID reports a transport ID.
func (c *CastClient) waitTransport(ctx context.Context, appID string) (string, error) {
	for i := range transportAttempts {
		if err := c.app.Update(); err != nil {
			c.Log().Debug().Str("Method", "waitTransport").Int("Attempt", i+1).Err(err).Msg("app.Update retry")
		} else if app := c.app.App(); app != nil && app.TransportId != "" && (app.AppId == "" || app.AppId == appID) {
			c.mu.Lock()
			c.transportId = app.TransportId
			c.mu.Unlock()
			c.Log().Debug().Str("Method", "waitTransport").Str("TransportId", app.TransportId).Msg("got transport ID")
			return app.TransportId, nil
		}

		if err := c.sleep(ctx, time.Duration(i+1)*500*time.Millisecond); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("failed to get transport ID after retries: %w", context.DeadlineExceeded)
}

// RequestStatus asks the receiver for a fresh MEDIA_STATUS. The reply is
// delivered to the RemoteMediaClient listeners.
func (c *CastClient) RequestStatus() error {
	c.mu.RLock()
	transportId, connected := c.transportId, c.connected
	c.mu.RUnlock()

	if !connected || transportId == "" {
		return ErrNotConnected
	}
	if err := RequestMediaStatus(c.conn, transportId); err != nil {
		c.Log().Error().Str("Method", "RequestStatus").Err(err).Msg("failed")
		return err
	}
	return nil
}

// GetStatus summarizes the last media status received.
func (c *CastClient) GetStatus() *CastStatus {
	status := &CastStatus{PlayerState: "IDLE"}
	media := c.remote.MediaStatus()
	if media == nil {
		return status
	}

	status.PlayerState = media.PlayerState
	status.CurrentTime = media.CurrentTime
	status.AdPlaying = c.remote.IsPlayingAd()
	status.AdBreakStatus = media.AdBreakStatus
	if media.Media != nil {
		status.Duration = media.Media.Duration
		status.ContentType = media.Media.ContentType
		if media.Media.Metadata != nil {
			status.MediaTitle = media.Media.Metadata.Title
		}
	}
	return status
}

// Play resumes playback.
func (c *CastClient) Play() error {
	return c.mediaCommand("Play", "PLAY")
}

// Pause pauses playback.
func (c *CastClient) Pause() error {
	return c.mediaCommand("Pause", "PAUSE")
}

// SkipAd asks the receiver to skip the ad clip being played.
func (c *CastClient) SkipAd() error {
	return c.mediaCommand("SkipAd", "SKIP_AD")
}

func (c *CastClient) mediaCommand(method, command string) error {
	c.mu.RLock()
	transportId, connected := c.transportId, c.connected
	c.mu.RUnlock()

	if !connected || transportId == "" {
		return ErrNotConnected
	}
	media := c.remote.MediaStatus()
	if media == nil {
		return ErrNoMediaSession
	}

	c.Log().Debug().Str("Method", method).Int("MediaSessionId", media.MediaSessionId).Msg("sending media command")
	if err := SendMediaCommand(c.conn, transportId, media.MediaSessionId, command); err != nil {
		c.Log().Error().Str("Method", method).Err(err).Msg("failed")
		return err
	}
	return nil
}

// Stop stops playback and closes the media session.
func (c *CastClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Log().Debug().Str("Method", "Stop").Msg("stopping playback")
	err := c.app.Stop()
	if err != nil {
		c.Log().Error().Str("Method", "Stop").Err(err).Msg("failed")
	}
	return err
}

// Close disconnects from the Chromecast device.
func (c *CastClient) Close(stopMedia bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Log().Debug().Str("Method", "Close").Bool("StopMedia", stopMedia).Msg("closing connection")
	c.connected = false
	c.transportId = ""
	err := c.app.Close(stopMedia)
	if err != nil {
		c.Log().Error().Str("Method", "Close").Err(err).Msg("failed")
	}
	return err
}

// IsConnected returns whether client is connected.
func (c *CastClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Host returns the hostname of the Chromecast device.
func (c *CastClient) Host() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.host
}
