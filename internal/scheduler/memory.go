package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go-leasegate/internal/apperr"
)

// MemoryQueue is the in-process Queue used when no Redis is configured.
// Jobs are lost on restart; the sweeper picks up what they would have done.
type MemoryQueue struct {
	mu         sync.Mutex
	visibility time.Duration
	jobs       map[string]Job
	due        map[string]struct{}
	processing map[string]time.Time
	byResource map[string]string
}

func NewMemoryQueue(visibility time.Duration) *MemoryQueue {
	if visibility <= 0 {
		visibility = time.Minute
	}
	return &MemoryQueue{
		visibility: visibility,
		jobs:       make(map[string]Job),
		due:        make(map[string]struct{}),
		processing: make(map[string]time.Time),
		byResource: make(map[string]string),
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, job Job) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	key := job.Resource.Key()
	prev, ok := q.byResource[key]
	if ok && prev != job.ID {
		delete(q.jobs, prev)
		delete(q.due, prev)
		delete(q.processing, prev)
	}
	q.jobs[job.ID] = job
	q.due[job.ID] = struct{}{}
	q.byResource[key] = job.ID
	return prev, nil
}

func (q *MemoryQueue) Claim(_ context.Context, now time.Time, max int) ([]Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var ready []Job
	for id := range q.due {
		if job := q.jobs[id]; !job.FireAt.After(now) {
			ready = append(ready, job)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].FireAt.Before(ready[j].FireAt) })
	if max > 0 && len(ready) > max {
		ready = ready[:max]
	}
	for _, job := range ready {
		delete(q.due, job.ID)
		q.processing[job.ID] = now.Add(q.visibility)
	}
	return ready, nil
}

func (q *MemoryQueue) Ack(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.processing, job.ID)
	delete(q.due, job.ID)
	delete(q.jobs, job.ID)
	if q.byResource[job.Resource.Key()] == job.ID {
		delete(q.byResource, job.Resource.Key())
	}
	return nil
}

func (q *MemoryQueue) Get(_ context.Context, id string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, apperr.ErrNotFound)
	}
	return &job, nil
}

func (q *MemoryQueue) Recover(_ context.Context, now time.Time) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for id, deadline := range q.processing {
		if deadline.Before(now) {
			delete(q.processing, id)
			q.due[id] = struct{}{}
			n++
		}
	}
	return n, nil
}

// Pending reports how many jobs are waiting or claimed.
func (q *MemoryQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
