package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/mkravets/relaychat-server/internal/chat"
	"github.com/mkravets/relaychat-server/internal/config"
	"github.com/mkravets/relaychat-server/internal/relay"
)

const testToken = "test-token"

// memStore is a minimal in-memory store for wire-level tests.
type memStore struct {
	mu      sync.Mutex
	history []chat.Message
	active  map[string]chat.User
}

func newMemStore() *memStore {
	return &memStore{active: make(map[string]chat.User)}
}

func (m *memStore) Append(_ context.Context, msg chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, msg)
	return nil
}

func (m *memStore) Recent(_ context.Context, limit int) []chat.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) > limit {
		return append([]chat.Message(nil), m.history[len(m.history)-limit:]...)
	}
	return append([]chat.Message(nil), m.history...)
}

func (m *memStore) Add(_ context.Context, user chat.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[user.ID] = user
	return nil
}

func (m *memStore) Remove(_ context.Context, user chat.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, user.ID)
	return nil
}

func (m *memStore) ListActive(_ context.Context) []chat.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]chat.User, 0, len(m.active))
	for _, u := range m.active {
		users = append(users, u)
	}
	return users
}

func (m *memStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = make(map[string]chat.User)
	return nil
}

// loopbackBus emulates the cluster bus by delivering every published
// message straight back to the local relay, the way the queue subscription
// would on a single-instance deployment.
type loopbackBus struct {
	mu sync.Mutex
	r  *relay.Relay
}

func (b *loopbackBus) Publish(msg chat.Message) {
	b.mu.Lock()
	r := b.r
	b.mu.Unlock()
	if r != nil {
		r.DeliverFromBus(msg)
	}
}

func (b *loopbackBus) attach(r *relay.Relay) {
	b.mu.Lock()
	b.r = r
	b.mu.Unlock()
}

func startTestServer(t *testing.T) (*httptest.Server, *memStore) {
	t.Helper()

	st := newMemStore()
	bus := &loopbackBus{}
	logger := zerolog.Nop()
	r := relay.New(st, st, bus, 100, &logger)
	bus.attach(r)

	server := NewServer(r, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		AuthToken:         testToken,
	}, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, st
}

// outboundEnvelope mirrors proto.Outbound with raw data for test-side
// decoding.
type outboundEnvelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func sendInbound(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, map[string]any{"type": typ, "data": json.RawMessage(data)}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

func readUntilEvent(ctx context.Context, t *testing.T, conn *websocket.Conn, event string) outboundEnvelope {
	t.Helper()
	for {
		var env outboundEnvelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			t.Fatalf("read waiting for %q: %v", event, err)
		}
		if env.Event == event {
			return env
		}
	}
}
