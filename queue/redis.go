// Package queue hands merge jobs from the API to worker processes through Redis.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// JobPayload is the JSON body pushed onto the queue.
type JobPayload struct {
	JobID string `json:"job_id"`
}

// Handler processes one dequeued job.
type Handler func(ctx context.Context, jobID string) error

// RedisQueue is a FIFO job list: producers LPUSH, workers BRPOP.
type RedisQueue struct {
	rdb    *redis.Client
	name   string
	logger *zap.Logger
}

// NewRedisClient parses a redis:// URL, or treats the value as host:port.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func NewRedisQueue(rdb *redis.Client, name string, logger *zap.Logger) *RedisQueue {
	return &RedisQueue{rdb: rdb, name: name, logger: logger.Named("queue")}
}

// Enqueue adds jobID to the queue.
func (q *RedisQueue) Enqueue(ctx context.Context, jobID string) error {
	payload, err := json.Marshal(JobPayload{JobID: jobID})
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, q.name, payload).Err()
}

// Len reports the number of waiting jobs.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.name).Result()
}

// Listen blocks popping jobs and passing them to handle until ctx is done.
// Handler errors are logged; the job record carries the failure.
func (q *RedisQueue) Listen(ctx context.Context, handle Handler) error {
	q.logger.Info("worker listening", zap.String("queue", q.name))

	for {
		result, err := q.rdb.BRPop(ctx, 5*time.Second, q.name).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			q.logger.Warn("error popping from queue", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		// result[0] is the queue name, result[1] is the payload
		var payload JobPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil || payload.JobID == "" {
			q.logger.Error("discarding malformed payload", zap.String("payload", result[1]))
			continue
		}

		q.logger.Info("received job", zap.String("job_id", payload.JobID))
		if err := handle(ctx, payload.JobID); err != nil {
			q.logger.Warn("job handler returned error", zap.String("job_id", payload.JobID), zap.Error(err))
		}
	}
}
