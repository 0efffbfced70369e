// Package redis implements the relay's history and presence stores on top
// of a shared Redis instance. History is a bounded list with whole-log
// expiry; presence is a hash keyed by user ID. Both are shared mutable
// state across every relay instance in the cluster, so every mutation is a
// single atomic store operation, never a read-then-write sequence.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mkravets/relaychat-server/internal/chat"
)

// Config holds the Redis store settings. HistoryKey, ActiveUsersKey,
// MessageExpiry and MaxMessages are required; config validation rejects
// their absence before the store is built.
type Config struct {
	Addr           string
	Password       string
	DB             int
	HistoryKey     string
	ActiveUsersKey string
	MessageExpiry  time.Duration
	MaxMessages    int64
}

// Store is the Redis-backed implementation of store.Store.
type Store struct {
	client *redis.Client
	cfg    Config
	log    *zerolog.Logger
}

// New builds a store around a fresh Redis client. The connection is lazy;
// call Ping to verify reachability at startup.
func New(cfg Config, logger *zerolog.Logger) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Store{client: client, cfg: cfg, log: logger}
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Append pushes the message onto the history list, trims the list to the
// last MaxMessages entries and resets the list's expiry. The three steps
// run as one MULTI/EXEC transaction so a failure cannot leave the log
// unbounded or immortal.
func (s *Store) Append(ctx context.Context, msg chat.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.cfg.HistoryKey, data)
	pipe.LTrim(ctx, s.cfg.HistoryKey, -s.cfg.MaxMessages, -1)
	pipe.Expire(ctx, s.cfg.HistoryKey, s.cfg.MessageExpiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Recent returns up to limit most-recent messages, oldest first. History is
// best-effort: any store failure is logged and an empty slice returned.
func (s *Store) Recent(ctx context.Context, limit int) []chat.Message {
	entries, err := s.client.LRange(ctx, s.cfg.HistoryKey, int64(-limit), -1).Result()
	if err != nil {
		s.log.Error().Err(err).Str("key", s.cfg.HistoryKey).Msg("read chat history")
		return nil
	}

	messages := make([]chat.Message, 0, len(entries))
	for _, entry := range entries {
		var msg chat.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			s.log.Warn().Err(err).Msg("skip undecodable history entry")
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

// Add upserts the user into the active-users hash. HSET makes the call
// idempotent: a repeated join overwrites the same field.
func (s *Store) Add(ctx context.Context, user chat.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := s.client.HSet(ctx, s.cfg.ActiveUsersKey, user.ID, data).Err(); err != nil {
		return fmt.Errorf("add active user: %w", err)
	}
	return nil
}

// Remove deletes the user's entry from the active-users hash. HDEL on an
// absent field is a no-op, which covers duplicate disconnects.
func (s *Store) Remove(ctx context.Context, user chat.User) error {
	if err := s.client.HDel(ctx, s.cfg.ActiveUsersKey, user.ID).Err(); err != nil {
		return fmt.Errorf("remove active user: %w", err)
	}
	return nil
}

// ListActive returns the current active users, unordered. Degrades to an
// empty slice on store failure.
func (s *Store) ListActive(ctx context.Context) []chat.User {
	entries, err := s.client.HGetAll(ctx, s.cfg.ActiveUsersKey).Result()
	if err != nil {
		s.log.Error().Err(err).Str("key", s.cfg.ActiveUsersKey).Msg("read active users")
		return nil
	}

	users := make([]chat.User, 0, len(entries))
	for id, entry := range entries {
		var user chat.User
		if err := json.Unmarshal([]byte(entry), &user); err != nil {
			s.log.Warn().Err(err).Str("user_id", id).Msg("skip undecodable presence entry")
			continue
		}
		users = append(users, user)
	}
	return users
}

// Clear reads and removes every entry from the active-users hash. The
// startup reconciliation pass calls this: presence recorded by a previous
// instance is stale after a restart.
func (s *Store) Clear(ctx context.Context) error {
	fields, err := s.client.HKeys(ctx, s.cfg.ActiveUsersKey).Result()
	if err != nil {
		return fmt.Errorf("list active users: %w", err)
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.cfg.ActiveUsersKey, fields...).Err(); err != nil {
		return fmt.Errorf("clear active users: %w", err)
	}
	s.log.Info().Int("removed", len(fields)).Msg("cleared stale presence entries")
	return nil
}

// Close closes the Redis client connection.
func (s *Store) Close() error {
	return s.client.Close()
}
