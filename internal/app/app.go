// Package app wires the relay's components together and owns their
// lifecycle: startup reconciliation, serving, and ordered shutdown.
package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkravets/relaychat-server/internal/bus"
	"github.com/mkravets/relaychat-server/internal/config"
	"github.com/mkravets/relaychat-server/internal/relay"
	"github.com/mkravets/relaychat-server/internal/store"
	redisstore "github.com/mkravets/relaychat-server/internal/store/redis"
	transporthttp "github.com/mkravets/relaychat-server/internal/transport/http"
)

// App holds the wired components in their shutdown dependency order.
type App struct {
	server          *stdhttp.Server
	bridge          *bus.Bridge
	store           store.Store
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New connects the store and the bus, runs the startup reconciliation pass
// and builds the HTTP server. Store or bus unreachability here is fatal;
// the relay is useless without them.
func New(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st := redisstore.New(redisstore.Config{
		Addr:           cfg.Redis.Addr,
		Password:       cfg.Redis.Password,
		DB:             cfg.Redis.DB,
		HistoryKey:     cfg.Redis.HistoryKey,
		ActiveUsersKey: cfg.Redis.ActiveUsersKey,
		MessageExpiry:  time.Duration(cfg.Redis.MessageExpiry) * time.Second,
		MaxMessages:    cfg.Redis.MaxMessages,
	}, logger)

	if err := st.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("connected to store")

	bridge, err := bus.Connect(bus.Config{
		URL:            cfg.Nats.URL,
		ConnectTimeout: cfg.Nats.ConnectTimeout,
		ReconnectWait:  cfg.Nats.ReconnectWait,
	}, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	// Presence recorded before a restart is stale: no liveness signal
	// survives the process, so the set is cleared unconditionally.
	if err := st.Clear(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to clear stale presence on startup")
	}

	r := relay.New(st, st, bridge, cfg.HistoryLimit, logger)

	if err := bridge.Subscribe(r.DeliverFromBus); err != nil {
		bridge.Shutdown(cfg.ShutdownTimeout)
		_ = st.Close()
		return nil, err
	}

	return &App{
		server:          transporthttp.NewServer(r, cfg, logger),
		bridge:          bridge,
		store:           st,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or a
// fatal server error. Shutdown order is strict: stop accepting new
// connections, drain the bus subscription and connection, then close the
// store, each step completing before the next begins.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.log.Warn().Err(err).Msg("http server shutdown")
		}

		a.cleanup()
		return <-serverErr
	}
}

func (a *App) cleanup() {
	a.log.Info().Msg("draining bus")
	a.bridge.Shutdown(a.shutdownTimeout)

	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	} else {
		a.log.Info().Msg("store closed")
	}
}
