// Package queue provides the durable work queue used to hand job
// pointers from the coordinator to worker processes. The Redis list
// implementation gives at-least-once delivery: a pushed entry stays in
// the list until some worker pops it, and a worker crash after pop is
// recovered by the executor's claim guard plus external staleness
// detection, not by the queue.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quillhaven/novelingest/internal/ingest"
)

const defaultPopTimeout = 5 * time.Second

// RedisConfig controls the Redis-backed queue.
type RedisConfig struct {
	Addr       string
	DB         int
	Key        string
	PopTimeout time.Duration
}

// RedisQueue is a durable FIFO queue over a Redis list.
type RedisQueue struct {
	client     *redis.Client
	key        string
	popTimeout time.Duration
}

// NewRedis connects to Redis and returns a queue over the configured
// list key.
func NewRedis(cfg RedisConfig) *RedisQueue {
	key := cfg.Key
	if key == "" {
		key = "ingestion:jobs"
	}
	popTimeout := cfg.PopTimeout
	if popTimeout <= 0 {
		popTimeout = defaultPopTimeout
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})
	return &RedisQueue{
		client:     client,
		key:        key,
		popTimeout: popTimeout,
	}
}

// NewRedisWithClient wraps an existing client (primarily for testing).
func NewRedisWithClient(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "ingestion:jobs"
	}
	return &RedisQueue{client: client, key: key, popTimeout: defaultPopTimeout}
}

// Enqueue durably schedules a job pointer. The entry carries only the
// job ID and routing metadata; the job store stays the source of truth.
func (q *RedisQueue) Enqueue(ctx context.Context, item ingest.QueueItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal queue item: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	return nil
}

// Dequeue blocks until a job pointer is available or the context ends.
// The blocking pop uses a bounded timeout and loops, so a newly enqueued
// job is observed within the pop timeout at worst.
func (q *RedisQueue) Dequeue(ctx context.Context) (ingest.QueueItem, error) {
	for {
		if err := ctx.Err(); err != nil {
			return ingest.QueueItem{}, fmt.Errorf("dequeue canceled: %w", err)
		}
		vals, err := q.client.BRPop(ctx, q.popTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ingest.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
			}
			return ingest.QueueItem{}, fmt.Errorf("redis brpop: %w", err)
		}
		// BRPop returns [key, value].
		if len(vals) != 2 {
			return ingest.QueueItem{}, fmt.Errorf("unexpected brpop reply length %d", len(vals))
		}
		var item ingest.QueueItem
		if err := json.Unmarshal([]byte(vals[1]), &item); err != nil {
			return ingest.QueueItem{}, fmt.Errorf("unmarshal queue item: %w", err)
		}
		return item, nil
	}
}

// Size returns the number of entries currently queued.
func (q *RedisQueue) Size(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen: %w", err)
	}
	return n, nil
}

// Close releases the Redis connection.
func (q *RedisQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
