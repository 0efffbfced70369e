package relay

import "github.com/mkravets/relaychat-server/internal/chat"

// EventKind is a notification the relay emits to local clients.
type EventKind int

const (
	// EventChatHistory delivers recent history to a client upon joining.
	EventChatHistory EventKind = iota
	// EventUserJoined notifies other clients about a user joining.
	EventUserJoined
	// EventUserLeft notifies other clients about a user leaving.
	EventUserLeft
	// EventNewMessage delivers a chat message arriving from the bus.
	EventNewMessage
	// EventError reports a processing failure to the originating client.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	User     chat.User
	Message  chat.Message
	Messages []chat.Message // for EventChatHistory
	Error    string         // for EventError
}
