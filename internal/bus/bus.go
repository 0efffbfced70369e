// Package bus bridges the relay onto the cluster-wide NATS fan-out channel.
// Every relay instance publishes client messages on one well-known subject
// and consumes deliveries through a shared queue group, so each published
// message is handed to exactly one instance rather than broadcast to all.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/mkravets/relaychat-server/internal/chat"
)

const (
	// Subject is the single topic all chat messages travel on.
	Subject = "chat.messages"
	// QueueGroup is the work-sharing group relay instances subscribe
	// under. Members split deliveries; this is load distribution, not a
	// broadcast primitive.
	QueueGroup = "chat_workers"
)

// Config holds the bus connection settings.
type Config struct {
	URL            string
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
}

// Bridge owns the NATS connection and the relay's queue subscription.
type Bridge struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	closed chan struct{}
	log    *zerolog.Logger
}

// Connect dials the bus. The initial attempt is bounded by ConnectTimeout
// and its failure is fatal to the caller; once established, the connection
// reconnects forever with a fixed wait between attempts. Status changes are
// only logged, reconnection itself is handled by the client.
func Connect(cfg Config, logger *zerolog.Logger) (*Bridge, error) {
	b := &Bridge{closed: make(chan struct{}), log: logger}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("relaychat-server"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("bus disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("bus reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error().Err(err).Msg("bus async error")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info().Msg("bus connection closed")
			close(b.closed)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to bus at %s: %w", cfg.URL, err)
	}

	b.nc = nc
	logger.Info().Str("url", nc.ConnectedUrl()).Msg("connected to bus")
	return b, nil
}

// Publish serializes the message and sends it on the chat subject. Publish
// is fire-and-forget: a failure means peer instances never see the message,
// but local broadcast is unaffected, so the error is logged and swallowed.
func (b *Bridge) Publish(msg chat.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.log.Error().Err(err).Str("message_id", msg.ID).Msg("marshal message for bus")
		return
	}
	if err := b.nc.Publish(Subject, data); err != nil {
		b.log.Error().Err(err).Str("message_id", msg.ID).Msg("publish message to bus")
	}
}

// Subscribe joins the queue group on the chat subject and invokes handler
// for every delivered message. A message that fails to decode is logged and
// dropped; it never terminates the subscription.
func (b *Bridge) Subscribe(handler func(chat.Message)) error {
	sub, err := b.nc.QueueSubscribe(Subject, QueueGroup, func(m *nats.Msg) {
		var msg chat.Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			b.log.Error().Err(err).Msg("decode bus message")
			return
		}
		handler(msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", Subject, err)
	}
	if err := b.nc.Flush(); err != nil {
		return fmt.Errorf("flush subscription: %w", err)
	}

	b.sub = sub
	b.log.Info().Str("subject", Subject).Str("group", QueueGroup).Msg("subscribed to bus")
	return nil
}

// Shutdown drains the subscription, then drains and closes the connection,
// waiting (bounded) for the close to complete. The order matters: in-flight
// deliveries finish before the connection starts tearing down.
func (b *Bridge) Shutdown(timeout time.Duration) {
	if b.sub != nil {
		if err := b.sub.Drain(); err != nil {
			b.log.Error().Err(err).Msg("drain bus subscription")
		}
	}

	if err := b.nc.Drain(); err != nil {
		b.log.Error().Err(err).Msg("drain bus connection")
		b.nc.Close()
		return
	}

	select {
	case <-b.closed:
	case <-time.After(timeout):
		b.log.Warn().Msg("bus close timed out")
		b.nc.Close()
	}
}
