package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin    = "join"
	InboundTypeMessage = "message"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventChatHistory = "chat_history"
	EventUserJoined  = "user_joined"
	EventUserLeft    = "user_left"
	EventNewMessage  = "new_message"
)

// Outbound is the envelope for messages sent to the client. Data carries
// the chat.User, chat.Message or []chat.Message payload for the event;
// Error carries a plain description for type "error".
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}
