package castprotocol

import (
	"fmt"
	"sync/atomic"

	"github.com/vishen/go-chromecast/cast"
)

const (
	defaultSender       = "sender-0"
	defaultReceiver     = "receiver-0"
	receiverNamespace   = "urn:x-cast:com.google.cast.receiver"
	connectionNamespace = "urn:x-cast:com.google.cast.tp.connection"

	// DefaultMediaReceiverAppID is Google's Default Media Receiver.
	DefaultMediaReceiverAppID = "CC1AD845"
)

// Sender is the part of cast.Conn used to push payloads to the device.
type Sender interface {
	Send(requestID int, payload cast.Payload, sourceID, destinationID, namespace string) error
}

// Request ID counter for Chromecast messages
var requestIDCounter int32

func nextRequestID() int {
	return int(atomic.AddInt32(&requestIDCounter, 1))
}

// LoadPayload is a LOAD command carrying a full MediaInfo, including
// custom data, which the stock go-chromecast load command does not send.
type LoadPayload struct {
	Type        string    `json:"type"`
	RequestId   int       `json:"requestId"`
	Media       MediaInfo `json:"media"`
	CurrentTime int       `json:"currentTime"`
	Autoplay    bool      `json:"autoplay"`
}

// SetRequestId implements cast.Payload interface
func (p *LoadPayload) SetRequestId(id int) {
	p.RequestId = id
}

type launchPayload struct {
	Type      string `json:"type"`
	RequestId int    `json:"requestId"`
	AppId     string `json:"appId"`
}

func (p *launchPayload) SetRequestId(id int) {
	p.RequestId = id
}

type headerPayload struct {
	Type      string `json:"type"`
	RequestId int    `json:"requestId,omitempty"`
}

func (p *headerPayload) SetRequestId(id int) {
	p.RequestId = id
}

// Ensure our payloads implement the cast.Payload interface
var (
	_ cast.Payload = (*LoadPayload)(nil)
	_ cast.Payload = (*launchPayload)(nil)
	_ cast.Payload = (*headerPayload)(nil)
	_ cast.Payload = (*mediaCommandPayload)(nil)
)

// LaunchReceiver asks the device to start the receiver application appID.
func LaunchReceiver(conn Sender, appID string) error {
	if appID == "" {
		appID = DefaultMediaReceiverAppID
	}
	requestID := nextRequestID()
	payload := &launchPayload{Type: "LAUNCH", AppId: appID}
	payload.SetRequestId(requestID)

	if err := conn.Send(requestID, payload, defaultSender, defaultReceiver, receiverNamespace); err != nil {
		return fmt.Errorf("send launch %s: %w", appID, err)
	}
	return nil
}

// ConnectTransport opens a virtual connection to the running receiver
// application so that media commands reach it.
func ConnectTransport(conn Sender, transportId string) error {
	payload := &headerPayload{Type: "CONNECT"}
	if err := conn.Send(0, payload, defaultSender, transportId, connectionNamespace); err != nil {
		return fmt.Errorf("connect transport %s: %w", transportId, err)
	}
	return nil
}

// LoadMedia sends a LOAD command with info to the receiver identified by
// transportId.
func LoadMedia(conn Sender, transportId string, info MediaInfo, startTime int, autoplay bool) error {
	payload := &LoadPayload{
		Type:        "LOAD",
		Media:       info,
		CurrentTime: startTime,
		Autoplay:    autoplay,
	}

	requestID := nextRequestID()
	payload.SetRequestId(requestID)

	if err := conn.Send(requestID, payload, defaultSender, transportId, mediaNamespace); err != nil {
		return fmt.Errorf("send load: %w", err)
	}
	return nil
}

// RequestMediaStatus sends GET_STATUS on the media namespace. The answer
// arrives as a MEDIA_STATUS message.
func RequestMediaStatus(conn Sender, transportId string) error {
	requestID := nextRequestID()
	payload := &headerPayload{Type: "GET_STATUS"}
	payload.SetRequestId(requestID)

	if err := conn.Send(requestID, payload, defaultSender, transportId, mediaNamespace); err != nil {
		return fmt.Errorf("send get status: %w", err)
	}
	return nil
}

type mediaCommandPayload struct {
	Type           string `json:"type"`
	RequestId      int    `json:"requestId"`
	MediaSessionId int    `json:"mediaSessionId"`
}

func (p *mediaCommandPayload) SetRequestId(id int) {
	p.RequestId = id
}

// SendMediaCommand sends a session scoped media command such as PLAY,
// PAUSE or SKIP_AD.
func SendMediaCommand(conn Sender, transportId string, mediaSessionId int, command string) error {
	requestID := nextRequestID()
	payload := &mediaCommandPayload{Type: command, MediaSessionId: mediaSessionId}
	payload.SetRequestId(requestID)

	if err := conn.Send(requestID, payload, defaultSender, transportId, mediaNamespace); err != nil {
		return fmt.Errorf("send %s: %w", command, err)
	}
	return nil
}
