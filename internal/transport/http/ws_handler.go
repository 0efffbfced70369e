package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/mkravets/relaychat-server/internal/proto"
	"github.com/mkravets/relaychat-server/internal/relay"
	"github.com/mkravets/relaychat-server/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to relay clients.
// Inbound events go through a dispatch table keyed by envelope type; each
// handler catches its own failures, so nothing thrown by one event can
// terminate the connection loop.
type WSHandler struct {
	relay    *relay.Relay
	log      *zerolog.Logger
	dispatch map[string]inboundHandler
}

type inboundHandler func(ctx context.Context, client *relay.Client, in proto.Inbound) *proto.Outbound

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(r *relay.Relay, logger *zerolog.Logger) stdhttp.Handler {
	h := &WSHandler{relay: r, log: logger}
	h.dispatch = map[string]inboundHandler{
		proto.InboundTypeJoin:    h.handleJoin,
		proto.InboundTypeMessage: h.handleMessage,
	}
	return h
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := relay.NewClient(utils.NewID())
	h.relay.Register(client)
	defer func() {
		// The request context is gone by now; disconnect cleanup runs on
		// its own.
		h.relay.Disconnect(context.Background(), client)
		h.relay.Unregister(client)
	}()

	h.log.Debug().Str("client_id", client.ID).Msg("client connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			status = websocket.StatusInternalError
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *relay.Client) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		handler, ok := h.dispatch[inbound.Type]
		if !ok {
			if err := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: "unknown message type",
			}); err != nil {
				return err
			}
			continue
		}

		if reply := handler(ctx, client, inbound); reply != nil {
			if err := wsjson.Write(ctx, conn, *reply); err != nil {
				return err
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *relay.Client) error {
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
