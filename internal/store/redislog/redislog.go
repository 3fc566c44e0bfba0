// Package redislog provides a Redis-backed message log, one list per room.
package redislog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vovakirdan/socketchat-server/internal/store"
)

// Config holds Redis message log configuration.
type Config struct {
	Addr   string
	Prefix string
	// MaxLen caps each room's list; zero keeps everything.
	MaxLen int64
}

// DefaultConfig returns the default Redis log configuration.
func DefaultConfig() Config {
	return Config{
		Addr:   "localhost:6379",
		Prefix: "socketchat:",
	}
}

// Store implements store.MessageLog on Redis lists.
type Store struct {
	client *redis.Client
	prefix string
	maxLen int64
}

// New connects to Redis and verifies the connection. Empty fields take
// their DefaultConfig values.
func New(ctx context.Context, cfg Config) (*Store, error) {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.Prefix == "" {
		cfg.Prefix = def.Prefix
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, cfg.Prefix, cfg.MaxLen), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string, maxLen int64) *Store {
	return &Store{client: client, prefix: prefix, maxLen: maxLen}
}

func (s *Store) roomKey(room string) string {
	return s.prefix + "room:" + room
}

func (s *Store) seqKey(room string) string {
	return s.prefix + "seq:" + room
}

// Append pushes msg to the tail of the room list.
func (s *Store) Append(ctx context.Context, msg *store.Message) error {
	id, err := s.client.Incr(ctx, s.seqKey(msg.Room)).Result()
	if err != nil {
		return fmt.Errorf("next message id: %w", err)
	}
	msg.ID = id

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.roomKey(msg.Room), data)
	if s.maxLen > 0 {
		pipe.LTrim(ctx, s.roomKey(msg.Room), -s.maxLen, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	return nil
}

// Query reads the last limit entries of the room list, oldest first.
func (s *Store) Query(ctx context.Context, room string, limit int) ([]*store.Message, error) {
	if limit <= 0 {
		return []*store.Message{}, nil
	}
	raw, err := s.client.LRange(ctx, s.roomKey(room), -int64(limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("range messages: %w", err)
	}

	messages := make([]*store.Message, 0, len(raw))
	for _, item := range raw {
		var msg store.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
