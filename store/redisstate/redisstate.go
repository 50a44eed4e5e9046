// Package redisstate stores conversation state in Redis.
//
// Each subject is one JSON value under leavebot:state:<subject>. Keys carry
// the dialog TTL so abandoned dialogs disappear without a sweep; the
// conversation.Manager still checks updatedAt itself.
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/warp/leavebot/conversation"
)

const keyPrefix = "leavebot:state:"

// Options configures the connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Backend implements conversation.Backend on Redis.
type Backend struct {
	rdb    *goredis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// record is the stored JSON document.
type record struct {
	Step      conversation.Step    `json:"step"`
	Payload   conversation.Payload `json:"payload"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// New connects and pings Redis.
func New(opts Options, logger *zap.Logger) (*Backend, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	logger.Info("redis state backend connected", zap.String("addr", opts.Addr))

	return &Backend{rdb: rdb, ttl: conversation.TTL, logger: logger}, nil
}

func key(subjectID string) string { return keyPrefix + subjectID }

// Load returns the subject's state, or nil when the key is absent.
func (b *Backend) Load(ctx context.Context, subjectID string) (*conversation.State, error) {
	raw, err := b.rdb.Get(ctx, key(subjectID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get state: %w", err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &conversation.State{
		SubjectID: subjectID,
		Step:      rec.Step,
		Payload:   rec.Payload,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// Save writes the state and resets the key TTL.
func (b *Backend) Save(ctx context.Context, st conversation.State) error {
	raw, err := json.Marshal(record{Step: st.Step, Payload: st.Payload, UpdatedAt: st.UpdatedAt.UTC()})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return b.rdb.Set(ctx, key(st.SubjectID), raw, b.ttl).Err()
}

// Delete removes the subject's key.
func (b *Backend) Delete(ctx context.Context, subjectID string) error {
	return b.rdb.Del(ctx, key(subjectID)).Err()
}

// Ping checks the connection, for health probes.
func (b *Backend) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (b *Backend) Close() error {
	return b.rdb.Close()
}
