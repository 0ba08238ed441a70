package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	// Control connection (game client -> world).
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeAct     = "ACT"
	TypeAck     = "ACK"

	// Observer stream (read-only).
	TypeSubscribe     = "SUBSCRIBE"
	TypeSubscribed    = "SUBSCRIBED"
	TypeCalendarEvent = "CALENDAR_EVENT"
	TypeClock         = "CLOCK"

	TypeError = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
