// Package events encodes control emissions for the ZeroMQ event bus.
package events

import (
	"errors"
	"fmt"

	fb "github.com/forklift-teleop/controller/pkg/flatbuffers/forklift/event"
	flatbuffers "github.com/google/flatbuffers/go"
)

// TopicPrefix prefixes every control event topic.
const TopicPrefix = "forklift.control."

// ErrInvalidEvent is returned when a buffer is not a ControlEvent.
var ErrInvalidEvent = errors.New("invalid control event buffer")

var channelCodes = map[string]fb.Channel{
	"throttle":  fb.ChannelTHROTTLE,
	"direction": fb.ChannelDIRECTION,
	"steering":  fb.ChannelSTEERING,
}

var channelNames = map[fb.Channel]string{
	fb.ChannelTHROTTLE:  "throttle",
	fb.ChannelDIRECTION: "direction",
	fb.ChannelSTEERING:  "steering",
}

// ControlEvent is one value emitted by a session control.
type ControlEvent struct {
	SessionID   string
	Channel     string
	Value       float64
	Display     string
	Endpoint    string
	TimestampNs int64
}

// Topic returns the bus topic for the event's channel.
func (e ControlEvent) Topic() string {
	return TopicPrefix + e.Channel
}

// Encode serializes the event as a FlatBuffer.
func Encode(e ControlEvent) ([]byte, error) {
	code, ok := channelCodes[e.Channel]
	if !ok {
		return nil, fmt.Errorf("unknown channel '%s'", e.Channel)
	}

	builder := flatbuffers.NewBuilder(128)
	sessionID := builder.CreateString(e.SessionID)
	display := builder.CreateString(e.Display)
	endpoint := builder.CreateString(e.Endpoint)

	fb.ControlEventStart(builder)
	fb.ControlEventAddSessionId(builder, sessionID)
	fb.ControlEventAddChannel(builder, code)
	fb.ControlEventAddValue(builder, e.Value)
	fb.ControlEventAddDisplay(builder, display)
	fb.ControlEventAddEndpoint(builder, endpoint)
	fb.ControlEventAddTimestampNs(builder, e.TimestampNs)
	fb.FinishControlEventBuffer(builder, fb.ControlEventEnd(builder))

	return builder.FinishedBytes(), nil
}

// Decode parses a buffer produced by Encode.
func Decode(data []byte) (e ControlEvent, err error) {
	if len(data) < flatbuffers.SizeUOffsetT+len(fb.ControlEventIdentifier) ||
		!fb.ControlEventBufferHasIdentifier(data) {
		return ControlEvent{}, ErrInvalidEvent
	}
	// The generated accessors index without bounds checks.
	defer func() {
		if r := recover(); r != nil {
			e, err = ControlEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, r)
		}
	}()

	msg := fb.GetRootAsControlEvent(data, 0)
	name, ok := channelNames[msg.Channel()]
	if !ok {
		return ControlEvent{}, fmt.Errorf("%w: channel %s", ErrInvalidEvent, msg.Channel())
	}

	return ControlEvent{
		SessionID:   string(msg.SessionId()),
		Channel:     name,
		Value:       msg.Value(),
		Display:     string(msg.Display()),
		Endpoint:    string(msg.Endpoint()),
		TimestampNs: msg.TimestampNs(),
	}, nil
}
