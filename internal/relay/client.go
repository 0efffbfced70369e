package relay

import (
	"sync"

	"github.com/mkravets/relaychat-server/internal/chat"
)

// Client is a locally connected chat participant as seen by the relay. The
// transport layer drains Events and writes them to the wire.
type Client struct {
	ID     string
	Events chan Event

	mu     sync.Mutex
	user   chat.User
	joined bool
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id string) *Client {
	return &Client{
		ID:     id,
		Events: make(chan Event, 16),
	}
}

// SetUser records which user this connection belongs to. Called once the
// join event arrives; disconnect uses it to find the presence entry.
func (c *Client) SetUser(user chat.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
	c.joined = true
}

// User returns the user bound to this connection and whether a join has
// happened at all.
func (c *Client) User() (chat.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user, c.joined
}

// send delivers an event to the client, dropping it if the client's buffer
// is full. A slow consumer must not stall the relay.
func (c *Client) send(ev Event) {
	select {
	case c.Events <- ev:
	default:
	}
}
