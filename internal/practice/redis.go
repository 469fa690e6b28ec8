package practice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultChannel carries Update payloads between instances.
	DefaultChannel     = "quiz:sessions"
	defaultSnapshotTTL = 2 * time.Hour
)

// RedisSnapshotStore keeps each participant's latest snapshot as JSON.
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ SnapshotStore = (*RedisSnapshotStore)(nil)

// NewRedisSnapshotStore creates a store. Snapshots expire after ttl without updates.
func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &RedisSnapshotStore{client: client, ttl: ttl}
}

func snapshotKey(participantID uuid.UUID) string {
	return fmt.Sprintf("practice:session:%s", participantID)
}

func (s *RedisSnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.client.Set(ctx, snapshotKey(snap.ParticipantID), data, s.ttl).Err()
}

func (s *RedisSnapshotStore) Load(ctx context.Context, participantID uuid.UUID) (Snapshot, error) {
	data, err := s.client.Get(ctx, snapshotKey(participantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNoSession
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func (s *RedisSnapshotStore) Delete(ctx context.Context, participantID uuid.UUID) error {
	return s.client.Del(ctx, snapshotKey(participantID)).Err()
}

// RedisPublisher publishes updates on a pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

var _ Publisher = (*RedisPublisher)(nil)

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, u Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}
