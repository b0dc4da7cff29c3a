package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements StateStore over Redis. Blob keys are namespaced
// as "{prefix}:blob:{key}", chat history as "{prefix}:msgs:{session}"
// lists of JSON-encoded messages.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	maxHistory int64
}

// RedisOptions configures the Redis store.
type RedisOptions struct {
	Addr       string
	Password   string
	DB         int
	Prefix     string // default "omokage"
	MaxHistory int64  // per-session message cap, default 5000
}

func NewRedisStore(opts RedisOptions) *RedisStore {
	if opts.Prefix == "" {
		opts.Prefix = "omokage"
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = 5000
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisStore{
		client:     client,
		prefix:     opts.Prefix,
		maxHistory: opts.MaxHistory,
	}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) blobKey(key string) string {
	return fmt.Sprintf("%s:blob:%s", r.prefix, key)
}

func (r *RedisStore) msgsKey(sessionKey string) string {
	return fmt.Sprintf("%s:msgs:%s", r.prefix, sessionKey)
}

func (r *RedisStore) GetBlob(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.blobKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get blob %q: %w", key, err)
	}
	return val, nil
}

func (r *RedisStore) SetBlob(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.blobKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("set blob %q: %w", key, err)
	}
	return nil
}

func (r *RedisStore) DeleteBlob(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.blobKey(key)).Err(); err != nil {
		return fmt.Errorf("delete blob %q: %w", key, err)
	}
	return nil
}

type redisMessage struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	Content     string `json:"content"`
	CreatedAtMS int64  `json:"created_at_ms"`
}

func (r *RedisStore) AppendMessage(ctx context.Context, msg Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	data, err := json.Marshal(redisMessage{
		ID:          msg.ID,
		Role:        msg.Role,
		Content:     msg.Content,
		CreatedAtMS: msg.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	key := r.msgsKey(msg.SessionKey)
	if err := r.client.RPush(ctx, key, string(data)).Err(); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	// Bound per-session history; oldest entries are trimmed away.
	if err := r.client.LTrim(ctx, key, -r.maxHistory, -1).Err(); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

func (r *RedisStore) RecentMessages(ctx context.Context, sessionKey string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := r.client.LRange(ctx, r.msgsKey(sessionKey), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var rm redisMessage
		if err := json.Unmarshal([]byte(item), &rm); err != nil {
			// Skip undecodable entries rather than failing the whole read.
			continue
		}
		out = append(out, Message{
			ID:         rm.ID,
			SessionKey: sessionKey,
			Role:       rm.Role,
			Content:    rm.Content,
			CreatedAt:  time.UnixMilli(rm.CreatedAtMS),
		})
	}
	return out, nil
}

func (r *RedisStore) ClearSession(ctx context.Context, sessionKey string) error {
	if err := r.client.Del(ctx, r.msgsKey(sessionKey)).Err(); err != nil {
		return fmt.Errorf("clear session %q: %w", sessionKey, err)
	}
	return nil
}
