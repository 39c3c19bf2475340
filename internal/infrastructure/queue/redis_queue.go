// Package queue provides the extraction job transport between ingestion
// and the extraction workers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	appdocument "github.com/ledgerdocs/backend/internal/application/document"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueKey is the redis list the extraction jobs travel through
const DefaultQueueKey = "extraction:jobs"

// Ensure RedisJobQueue implements the job queue port
var _ appdocument.JobQueue = (*RedisJobQueue)(nil)

// RedisJobQueue is an at-least-once job transport over a redis list.
// Delivery can repeat after a consumer crash; the extraction worker's
// job-key check absorbs the duplicates.
type RedisJobQueue struct {
	client *redis.Client
	key    string
}

// NewRedisJobQueue creates a queue over an existing redis client
func NewRedisJobQueue(client *redis.Client, key string) *RedisJobQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisJobQueue{client: client, key: key}
}

// Enqueue pushes one job
func (q *RedisJobQueue) Enqueue(ctx context.Context, job appdocument.ExtractionJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal extraction job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue extraction job: %w", err)
	}
	return nil
}

// Dequeue blocks until a job arrives or the context ends. A nil job with a
// nil error means the poll timed out and the caller should loop.
func (q *RedisJobQueue) Dequeue(ctx context.Context) (*appdocument.ExtractionJob, error) {
	res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue extraction job: %w", err)
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
	}

	var job appdocument.ExtractionJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshal extraction job: %w", err)
	}
	return &job, nil
}

// Len returns the number of waiting jobs
func (q *RedisJobQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
