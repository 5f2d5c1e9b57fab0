package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType names a variant of Event on the wire.
type EventType string

const (
	EventMessageInserted EventType = "message_inserted"
	EventMemberJoined    EventType = "member_joined"
	EventMemberLeft      EventType = "member_left"
	EventTyping          EventType = "typing"
)

// ErrUnknownEvent is returned by DecodeEvent for an unrecognised type.
var ErrUnknownEvent = errors.New("unknown event type")

// Event is a realtime room event. The set of implementations is closed:
// MessageInserted, MemberJoined, MemberLeft and TypingBroadcast.
type Event interface {
	EventType() EventType
	EventRoomID() string
	isEvent()
}

type MessageInserted struct {
	Message Message `json:"message"`
}

type MemberJoined struct {
	Member RoomMember `json:"member"`
}

type MemberLeft struct {
	Member RoomMember `json:"member"`
}

type TypingBroadcast struct {
	Signal TypingSignal `json:"signal"`
}

func (MessageInserted) EventType() EventType { return EventMessageInserted }
func (MemberJoined) EventType() EventType    { return EventMemberJoined }
func (MemberLeft) EventType() EventType      { return EventMemberLeft }
func (TypingBroadcast) EventType() EventType { return EventTyping }

func (e MessageInserted) EventRoomID() string { return e.Message.RoomID }
func (e MemberJoined) EventRoomID() string    { return e.Member.RoomID }
func (e MemberLeft) EventRoomID() string      { return e.Member.RoomID }
func (e TypingBroadcast) EventRoomID() string { return e.Signal.RoomID }

func (MessageInserted) isEvent() {}
func (MemberJoined) isEvent()    {}
func (MemberLeft) isEvent()      {}
func (TypingBroadcast) isEvent() {}

type envelope struct {
	Type    EventType       `json:"type"`
	RoomID  string          `json:"room_id"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeEvent serialises an event into its JSON envelope.
func EncodeEvent(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: ev.EventType(), RoomID: ev.EventRoomID(), Payload: payload})
}

// DecodeEvent parses a JSON envelope produced by EncodeEvent.
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	var ev Event
	switch env.Type {
	case EventMessageInserted:
		var e MessageInserted
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case EventMemberJoined:
		var e MemberJoined
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case EventMemberLeft:
		var e MemberLeft
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case EventTyping:
		var e TypingBroadcast
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		ev = e
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
	return ev, nil
}
