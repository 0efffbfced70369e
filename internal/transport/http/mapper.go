package http

import (
	"context"
	"encoding/json"

	"github.com/mkravets/relaychat-server/internal/chat"
	"github.com/mkravets/relaychat-server/internal/proto"
	"github.com/mkravets/relaychat-server/internal/relay"
)

func (h *WSHandler) handleJoin(ctx context.Context, client *relay.Client, in proto.Inbound) *proto.Outbound {
	var user chat.User
	if err := json.Unmarshal(in.Data, &user); err != nil {
		return &proto.Outbound{Type: proto.OutboundTypeError, Error: "malformed join payload"}
	}
	if user.ID == "" {
		return &proto.Outbound{Type: proto.OutboundTypeError, Error: "user id is required"}
	}

	h.relay.Join(ctx, client, user)
	return nil
}

func (h *WSHandler) handleMessage(ctx context.Context, client *relay.Client, in proto.Inbound) *proto.Outbound {
	var msg chat.Message
	if err := json.Unmarshal(in.Data, &msg); err != nil {
		return &proto.Outbound{Type: proto.OutboundTypeError, Error: "malformed message payload"}
	}

	h.relay.HandleMessage(ctx, client, msg)
	return nil
}

func outboundFromEvent(event relay.Event) proto.Outbound {
	switch event.Kind {
	case relay.EventChatHistory:
		messages := event.Messages
		if messages == nil {
			messages = []chat.Message{}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventChatHistory,
			Data:  messages,
		}
	case relay.EventUserJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserJoined,
			Data:  event.User,
		}
	case relay.EventUserLeft:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserLeft,
			Data:  event.User,
		}
	case relay.EventNewMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNewMessage,
			Data:  event.Message,
		}
	case relay.EventError:
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: event.Error,
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
