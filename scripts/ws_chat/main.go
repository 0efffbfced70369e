// Command ws_chat is an interactive smoke-test client for the relay: it
// joins the chat, prints incoming events and sends stdin lines as messages.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/mkravets/relaychat-server/internal/chat"
	"github.com/mkravets/relaychat-server/internal/proto"
	"github.com/mkravets/relaychat-server/internal/utils"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "connection token")
	name := flag.String("name", "cli-user", "display name")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	dialURL := *addr
	if *token != "" {
		dialURL += "?token=" + url.QueryEscape(*token)
	}

	conn, _, err := websocket.Dial(ctx, dialURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	user := chat.User{ID: utils.NewID(), Name: *name}
	joinPayload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal join: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeJoin, Data: joinPayload}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	fmt.Printf("Connected to %s as %s (%s)\n", *addr, user.Name, user.ID)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, user.Name)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error string          `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if outbound.Type == proto.OutboundTypeError {
			fmt.Printf("!! %s\n", outbound.Error)
			continue
		}

		switch outbound.Event {
		case proto.EventChatHistory:
			var history []chat.Message
			if err := json.Unmarshal(outbound.Data, &history); err != nil {
				log.Printf("decode history: %v", err)
				continue
			}
			for _, msg := range history {
				fmt.Printf("[history] %s: %s\n", msg.Username, msg.Content)
			}
		case proto.EventNewMessage:
			var msg chat.Message
			if err := json.Unmarshal(outbound.Data, &msg); err != nil {
				log.Printf("decode message: %v", err)
				continue
			}
			fmt.Printf("%s: %s\n", msg.Username, msg.Content)
		case proto.EventUserJoined:
			var u chat.User
			if err := json.Unmarshal(outbound.Data, &u); err == nil {
				fmt.Printf("* %s joined\n", u.Name)
			}
		case proto.EventUserLeft:
			var u chat.User
			if err := json.Unmarshal(outbound.Data, &u); err == nil {
				fmt.Printf("* %s left\n", u.Name)
			}
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, username string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		payload, err := json.Marshal(chat.Message{Username: username, Content: text})
		if err != nil {
			log.Printf("marshal message: %v", err)
			continue
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeMessage, Data: payload}); err != nil {
			log.Printf("send: %v", err)
			return
		}
	}
}
