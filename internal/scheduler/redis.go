package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-leasegate/internal/apperr"

	"github.com/redis/go-redis/v9"
)

// Layout under prefix:
//
//	{prefix}:due            zset  job id -> fire-at (unix ms)
//	{prefix}:processing     zset  job id -> visibility deadline (unix ms)
//	{prefix}:job:{id}       string job JSON
//	{prefix}:resource:{key} string id of the pending job for a resource
var (
	enqueueScript = redis.NewScript(`
local prev = redis.call('GET', KEYS[3])
if prev and prev ~= ARGV[1] then
  redis.call('ZREM', KEYS[1], prev)
  redis.call('ZREM', KEYS[2], prev)
  redis.call('DEL', ARGV[4] .. ':job:' .. prev)
end
redis.call('SET', KEYS[4], ARGV[2])
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[1])
redis.call('SET', KEYS[3], ARGV[1])
if prev then return prev end
return ''
`)

	claimScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', '0', ARGV[2])
local out = {}
for _, id in ipairs(ids) do
  redis.call('ZREM', KEYS[1], id)
  local payload = redis.call('GET', ARGV[4] .. ':job:' .. id)
  if payload then
    redis.call('ZADD', KEYS[2], ARGV[3], id)
    table.insert(out, payload)
  end
end
return out
`)

	ackScript = redis.NewScript(`
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('ZREM', KEYS[4], ARGV[1])
redis.call('DEL', KEYS[2])
if redis.call('GET', KEYS[3]) == ARGV[1] then
  redis.call('DEL', KEYS[3])
end
return 1
`)

	recoverScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, id in ipairs(ids) do
  redis.call('ZREM', KEYS[1], id)
  redis.call('ZADD', KEYS[2], ARGV[1], id)
end
return #ids
`)
)

// RedisQueue keeps jobs in Redis so they survive restarts of the service.
type RedisQueue struct {
	rdb        redis.UniversalClient
	prefix     string
	visibility time.Duration
}

func NewRedisQueue(rdb redis.UniversalClient, prefix string, visibility time.Duration) *RedisQueue {
	if prefix == "" {
		prefix = "leasegate:revocations"
	}
	if visibility <= 0 {
		visibility = time.Minute
	}
	return &RedisQueue{rdb: rdb, prefix: prefix, visibility: visibility}
}

func (q *RedisQueue) dueKey() string        { return q.prefix + ":due" }
func (q *RedisQueue) processingKey() string { return q.prefix + ":processing" }
func (q *RedisQueue) jobKey(id string) string {
	return q.prefix + ":job:" + id
}
func (q *RedisQueue) resourceKey(job Job) string {
	return q.prefix + ":resource:" + job.Resource.Key()
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) (string, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}
	keys := []string{q.dueKey(), q.processingKey(), q.resourceKey(job), q.jobKey(job.ID)}
	prev, err := enqueueScript.Run(ctx, q.rdb, keys, job.ID, payload, job.FireAt.UnixMilli(), q.prefix).Text()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	return prev, nil
}

func (q *RedisQueue) Claim(ctx context.Context, now time.Time, max int) ([]Job, error) {
	keys := []string{q.dueKey(), q.processingKey()}
	deadline := now.Add(q.visibility).UnixMilli()
	payloads, err := claimScript.Run(ctx, q.rdb, keys, now.UnixMilli(), max, deadline, q.prefix).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to claim due jobs: %w", err)
	}
	jobs := make([]Job, 0, len(payloads))
	for _, p := range payloads {
		var job Job
		if err := json.Unmarshal([]byte(p), &job); err != nil {
			return jobs, fmt.Errorf("failed to decode claimed job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (q *RedisQueue) Ack(ctx context.Context, job Job) error {
	keys := []string{q.processingKey(), q.jobKey(job.ID), q.resourceKey(job), q.dueKey()}
	if err := ackScript.Run(ctx, q.rdb, keys, job.ID).Err(); err != nil {
		return fmt.Errorf("failed to ack job %s: %w", job.ID, err)
	}
	return nil
}

func (q *RedisQueue) Get(ctx context.Context, id string) (*Job, error) {
	raw, err := q.rdb.Get(ctx, q.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("job %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	return &job, nil
}

func (q *RedisQueue) Recover(ctx context.Context, now time.Time) (int, error) {
	keys := []string{q.processingKey(), q.dueKey()}
	n, err := recoverScript.Run(ctx, q.rdb, keys, now.UnixMilli()).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to recover stalled jobs: %w", err)
	}
	return n, nil
}
