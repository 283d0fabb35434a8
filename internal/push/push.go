// Package push defines the events sent to preview browsers over the
// live-reload channel.
package push

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies a push event. The set is closed.
type Kind string

const (
	KindWillCompute Kind = "onWillJsDocComputed"
	KindDidCompute  Kind = "onDidJsDocComputed"
	KindLogInfo     Kind = "onDidJsDocLogInfo"
	KindLogError    Kind = "onDidJsDocLogError"
)

// FrameEvent is the envelope name browsers listen for.
const FrameEvent = "reload-jsdoc"

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindWillCompute, KindDidCompute, KindLogInfo, KindLogError:
		return true
	default:
		return false
	}
}

// Event is one push notification.
type Event struct {
	Kind  Kind
	Value string
}

// WillCompute signals that a regeneration is starting.
func WillCompute() Event { return Event{Kind: KindWillCompute} }

// DidCompute signals that a regeneration finished, successfully or not.
func DidCompute() Event { return Event{Kind: KindDidCompute} }

// LogInfo carries one line of generator stdout.
func LogInfo(msg string) Event { return Event{Kind: KindLogInfo, Value: msg} }

// LogError carries one line of generator stderr.
func LogError(msg string) Event { return Event{Kind: KindLogError, Value: msg} }

// Encode renders the event as "<kind>:<value>".
func (e Event) Encode() string {
	return string(e.Kind) + ":" + e.Value
}

// Parse decodes an encoded event. Only the first colon separates kind and
// value, so values may contain colons.
func Parse(s string) (Event, error) {
	key, value, ok := strings.Cut(s, ":")
	if !ok {
		return Event{}, fmt.Errorf("push: missing separator in %q", s)
	}
	kind := Kind(key)
	if !kind.Valid() {
		return Event{}, fmt.Errorf("push: unknown event kind %q", key)
	}
	return Event{Kind: kind, Value: value}, nil
}

// Frame is the JSON envelope written to the socket.
type Frame struct {
	Event   string `json:"event"`
	Payload string `json:"payload"`
}

// MarshalFrame wraps the encoded event in its wire envelope.
func (e Event) MarshalFrame() ([]byte, error) {
	return json.Marshal(Frame{Event: FrameEvent, Payload: e.Encode()})
}

// ParseFrame decodes a wire frame back into an Event.
func ParseFrame(data []byte) (Event, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Event{}, fmt.Errorf("push: decode frame: %w", err)
	}
	if f.Event != FrameEvent {
		return Event{}, fmt.Errorf("push: unexpected frame event %q", f.Event)
	}
	return Parse(f.Payload)
}

// Broadcaster delivers events to every connected client.
type Broadcaster interface {
	Broadcast(Event)
}

// Multi fans an event out to several broadcasters.
type Multi []Broadcaster

func (m Multi) Broadcast(e Event) {
	for _, b := range m {
		if b != nil {
			b.Broadcast(e)
		}
	}
}
