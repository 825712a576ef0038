package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go-leasegate/internal/metrics"

	"github.com/google/uuid"
)

type Options struct {
	Workers      int
	PollInterval time.Duration
	Now          func() time.Time
	Metrics      *metrics.Metrics
}

// Scheduler puts jobs on a Queue and runs a fixed pool of workers that
// hand due jobs to a Handler.
type Scheduler struct {
	queue   Queue
	handler Handler
	workers int
	poll    time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
}

func New(q Queue, h Handler, opts Options) *Scheduler {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		queue:   q,
		handler: h,
		workers: opts.Workers,
		poll:    opts.PollInterval,
		now:     opts.Now,
		metrics: opts.Metrics,
	}
}

// Schedule stores job and returns its id. Any job already pending for the
// same resource is dropped.
func (s *Scheduler) Schedule(ctx context.Context, job Job) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	superseded, err := s.queue.Enqueue(ctx, job)
	if err != nil {
		s.metrics.ScheduleFailed()
		return "", err
	}
	s.metrics.Scheduled()
	if superseded != "" && superseded != job.ID {
		log.Printf("INFO: Job %s for %s supersedes job %s", job.ID, job.Resource, superseded)
	}
	log.Printf("INFO: Scheduled %s=%s on %s at %s (job %s)", job.ActionType, job.Data, job.Resource, job.FireAt.Format(time.RFC3339), job.ID)
	return job.ID, nil
}

// RunDue executes one stored job immediately, whatever its fire time.
func (s *Scheduler) RunDue(ctx context.Context, id string) error {
	job, err := s.queue.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.handler.Handle(ctx, *job); err != nil {
		return fmt.Errorf("job %s: %w", id, err)
	}
	return s.queue.Ack(ctx, *job)
}

// Run polls the queue until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	jobs := make(chan Job)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				s.process(ctx, job)
			}
		}()
	}

	log.Printf("INFO: Revocation scheduler started with %d workers, polling every %s", s.workers, s.poll)
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		s.pump(ctx, jobs)
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			log.Println("INFO: Revocation scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) pump(ctx context.Context, jobs chan<- Job) {
	now := s.now()
	if n, err := s.queue.Recover(ctx, now); err != nil {
		log.Printf("ERROR: %v", err)
	} else if n > 0 {
		log.Printf("WARN: Requeued %d revocation jobs whose worker did not finish", n)
	}

	due, err := s.queue.Claim(ctx, now, s.workers*2)
	if err != nil {
		log.Printf("ERROR: %v", err)
	}
	for _, job := range due {
		select {
		case jobs <- job:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) process(ctx context.Context, job Job) {
	if err := s.handler.Handle(ctx, job); err != nil {
		log.Printf("ERROR: Revocation job %s for %s failed, will retry: %v", job.ID, job.Resource, err)
		return
	}
	if err := s.queue.Ack(ctx, job); err != nil {
		log.Printf("ERROR: %v", err)
	}
}
