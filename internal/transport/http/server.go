package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/rs/zerolog"

	"github.com/mkravets/relaychat-server/internal/config"
	"github.com/mkravets/relaychat-server/internal/relay"
)

// NewServer builds the HTTP server exposing the health check and the chat
// WebSocket endpoint. The WebSocket route sits behind the shared-token
// check; a mismatch rejects the connection before any event is processed.
func NewServer(r *relay.Relay, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	mux := stdhttp.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/ws", RequireToken(cfg.AuthToken, NewWSHandler(r, logger), logger))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	_, _ = fmt.Fprint(w, "ok")
}
