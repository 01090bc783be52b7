// Package jobs runs background work on a Redis list. The API enqueues, the
// worker binary dequeues, and results stay readable until they expire.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrQueueUnavailable = errors.New("job queue unavailable")
)

type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

type Job struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	AccountID string          `json:"account_id"`
	Payload   json.RawMessage `json:"payload"`
	Status    Status          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Queue stores each job as a JSON string and keeps pending ids in a list.
type Queue struct {
	rdb  *redis.Client
	name string
	ttl  time.Duration
	now  func() time.Time
}

func NewQueue(rdb *redis.Client, name string, ttl time.Duration) *Queue {
	return &Queue{rdb: rdb, name: name, ttl: ttl, now: time.Now}
}

// Dial connects to the Redis URL and checks the connection.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return rdb, nil
}

func (q *Queue) jobKey(id string) string { return q.name + ":job:" + id }

func (q *Queue) pendingKey() string { return q.name + ":pending" }

func (q *Queue) accountKey(accountID string) string { return q.name + ":account:" + accountID }

// Enqueue records a queued job for accountID and pushes it onto the pending
// list in one pipeline.
func (q *Queue) Enqueue(ctx context.Context, jobType, accountID string, payload any) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("encode payload: %w", err)
	}
	now := q.now().UTC()
	job := Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		AccountID: accountID,
		Payload:   raw,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	encoded, err := json.Marshal(job)
	if err != nil {
		return Job{}, err
	}

	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.jobKey(job.ID), encoded, q.ttl)
		pipe.SAdd(ctx, q.accountKey(accountID), job.ID)
		if q.ttl > 0 {
			pipe.Expire(ctx, q.accountKey(accountID), q.ttl)
		}
		pipe.LPush(ctx, q.pendingKey(), job.ID)
		return nil
	})
	if err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return job, nil
}

func (q *Queue) Get(ctx context.Context, id string) (Job, error) {
	raw, err := q.rdb.Get(ctx, q.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return Job{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return job, nil
}

// Dequeue blocks up to wait for the next pending job and marks it running.
// It returns ErrJobNotFound when nothing arrived in time.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (Job, error) {
	res, err := q.rdb.BRPop(ctx, wait, q.pendingKey()).Result()
	if errors.Is(err, redis.Nil) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	// res is [key, value].
	job, err := q.Get(ctx, res[1])
	if err != nil {
		return Job{}, err
	}
	job.Status = StatusRunning
	if err := q.save(ctx, job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Complete stores the handler outcome on job.
func (q *Queue) Complete(ctx context.Context, job Job, result any, handlerErr error) (Job, error) {
	if handlerErr != nil {
		job.Status = StatusFailed
		job.Error = handlerErr.Error()
	} else {
		raw, err := json.Marshal(result)
		if err != nil {
			return Job{}, fmt.Errorf("encode result: %w", err)
		}
		job.Status = StatusDone
		job.Result = raw
	}
	if err := q.save(ctx, job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// PurgeAccount deletes every job recorded for accountID and reports how many
// were removed.
func (q *Queue) PurgeAccount(ctx context.Context, accountID string) (int, error) {
	ids, err := q.rdb.SMembers(ctx, q.accountKey(accountID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, q.jobKey(id))
	}
	keys = append(keys, q.accountKey(accountID))

	removed, err := q.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	if removed > 0 {
		// The account set itself is not a job.
		removed--
	}
	return int(removed), nil
}

func (q *Queue) save(ctx context.Context, job Job) error {
	job.UpdatedAt = q.now().UTC()
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.rdb.Set(ctx, q.jobKey(job.ID), encoded, q.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return nil
}
