// Package relay coordinates client events with the shared store and the
// cluster bus. On each inbound event it updates presence and history and
// publishes outward; on each bus delivery it fans out to all local clients.
// Handlers never propagate errors upward: every failure is logged and, where
// a client caused it, reported back as an error event with no rollback of
// already-applied state.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mkravets/relaychat-server/internal/chat"
	"github.com/mkravets/relaychat-server/internal/store"
)

// Publisher sends a message onto the cluster bus, fire-and-forget.
type Publisher interface {
	Publish(msg chat.Message)
}

// Relay tracks locally connected clients and glues them to the store and
// the bus.
type Relay struct {
	history      store.HistoryStore
	presence     store.PresenceStore
	publisher    Publisher
	historyLimit int
	log          *zerolog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// New constructs a relay. historyLimit caps how many messages a joining
// client receives as history.
func New(history store.HistoryStore, presence store.PresenceStore, publisher Publisher, historyLimit int, logger *zerolog.Logger) *Relay {
	return &Relay{
		history:      history,
		presence:     presence,
		publisher:    publisher,
		historyLimit: historyLimit,
		log:          logger,
		clients:      make(map[*Client]struct{}),
	}
}

// Register adds a client to the local registry. Called when the transport
// accepts a connection, before any event is processed.
func (r *Relay) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = struct{}{}
}

// Unregister removes a client from the local registry.
func (r *Relay) Unregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
}

// Join marks the user active, sends chat history privately to the joining
// client and announces the join to the other local clients. Presence is
// updated first; a later failure does not roll it back.
func (r *Relay) Join(ctx context.Context, c *Client, user chat.User) {
	c.SetUser(user)

	if err := r.presence.Add(ctx, user); err != nil {
		r.log.Error().Err(err).Str("user_id", user.ID).Msg("process join")
		c.send(Event{Kind: EventError, Error: "Failed to join the chat"})
		return
	}

	messages := r.history.Recent(ctx, r.historyLimit)

	r.broadcastExcept(c, Event{Kind: EventUserJoined, User: user})
	c.send(Event{Kind: EventChatHistory, Messages: messages})

	r.log.Info().Str("user_id", user.ID).Str("name", user.Name).Msg("user joined")
}

// HandleMessage stamps, persists and publishes a client message. The
// timestamp is assigned only when the client did not supply one; a value
// already set is never overwritten. Persistence and publication are
// independent: a store failure is reported to the sender but does not block
// the publish, and a publish failure is swallowed by the bus layer. The
// message reaches local clients through the bus delivery path only.
func (r *Relay) HandleMessage(ctx context.Context, c *Client, msg chat.Message) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	if err := r.history.Append(ctx, msg); err != nil {
		r.log.Error().Err(err).Str("message_id", msg.ID).Msg("persist message")
		c.send(Event{Kind: EventError, Error: "Failed to send message"})
	}

	r.publisher.Publish(msg)
}

// Disconnect removes the connection's user from presence and announces the
// departure. A connection that never joined, or whose user is already gone
// from the active set, is a no-op.
func (r *Relay) Disconnect(ctx context.Context, c *Client) {
	user, ok := c.User()
	if !ok {
		return
	}

	var found *chat.User
	for _, active := range r.presence.ListActive(ctx) {
		if active.ID == user.ID {
			found = &active
			break
		}
	}
	if found == nil {
		return
	}

	if err := r.presence.Remove(ctx, *found); err != nil {
		r.log.Error().Err(err).Str("user_id", found.ID).Msg("process disconnect")
		return
	}

	r.broadcastExcept(c, Event{Kind: EventUserLeft, User: *found})
	r.log.Info().Str("user_id", found.ID).Msg("user left")
}

// DeliverFromBus forwards a bus-delivered message to every local client,
// including the original sender's own connection. No deduplication is
// performed against locally-originated messages.
func (r *Relay) DeliverFromBus(msg chat.Message) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.clients {
		c.send(Event{Kind: EventNewMessage, Message: msg})
	}
}

func (r *Relay) broadcastExcept(skip *Client, ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.clients {
		if c == skip {
			continue
		}
		c.send(ev)
	}
}
