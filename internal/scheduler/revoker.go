package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go-leasegate/internal/apperr"
	"go-leasegate/internal/control"
	"go-leasegate/internal/events"
	"go-leasegate/internal/lease"
	"go-leasegate/internal/metrics"
	"go-leasegate/internal/models"
	"go-leasegate/internal/store"

	"github.com/google/uuid"
)

// Dispatcher sends a control command to the resource.
type Dispatcher interface {
	Send(ctx context.Context, cmd control.Command) error
}

// Revoker is the Handler for revocation jobs.
type Revoker struct {
	store      store.Store
	queue      Queue
	leases     *lease.Manager
	dispatcher Dispatcher
	events     events.Publisher
	metrics    *metrics.Metrics
}

// NewRevoker builds the revocation handler. q receives the follow-up job
// when a lease turns out to run past the job that fired; it may be nil when
// skipped jobs are left to the sweeper.
func NewRevoker(s store.Store, q Queue, leases *lease.Manager, d Dispatcher, pub events.Publisher, m *metrics.Metrics) *Revoker {
	if pub == nil {
		pub = events.Discard{}
	}
	return &Revoker{store: s, queue: q, leases: leases, dispatcher: d, events: pub, metrics: m}
}

// Handle revokes access if the lease has really run out. A lease that runs
// past the job gets a new job at its current expiry, so schedules written
// out of order still end in a revocation. A failed dispatch is logged and
// the lease is still marked inactive.
func (r *Revoker) Handle(ctx context.Context, job Job) error {
	res, err := r.store.FindResource(ctx, job.Resource)
	if errors.Is(err, apperr.ErrNotFound) {
		log.Printf("WARN: Revocation job %s targets missing resource %s, dropping", job.ID, job.Resource)
		r.metrics.Revocation("missing")
		return nil
	}
	if err != nil {
		return err
	}
	if !res.Lease.ExpiredAt(r.leases.Now()) {
		log.Printf("INFO: Revocation job %s skipped, lease on %s is %s until %v", job.ID, job.Resource, res.Lease.Status, res.Lease.ExpiresAt)
		r.metrics.Revocation("superseded")
		return r.requeue(ctx, job, res.Lease)
	}

	cmd := job.Command()
	if err := r.dispatcher.Send(ctx, cmd); err != nil {
		log.Printf("ERROR: Revoke command %s for job %s not delivered: %v", cmd, job.ID, err)
		r.metrics.DispatchFailed(cmd.ActionType)
	}

	var revoked bool
	err = r.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		revoked, err = r.leases.Deactivate(tx, job.Resource)
		return err
	})
	if err != nil {
		return err
	}
	if !revoked {
		return r.undo(ctx, job)
	}

	log.Printf("INFO: Lease on %s revoked by job %s", job.Resource, job.ID)
	r.metrics.Revocation("revoked")
	r.publish(ctx, job, res)
	return nil
}

// undo runs when a payment extended the lease between the expiry check and
// the locked deactivation. The revoke command may already have landed, so
// access is granted again and the next expiry is scheduled.
func (r *Revoker) undo(ctx context.Context, job Job) error {
	current, err := r.store.FindResource(ctx, job.Resource)
	if err != nil {
		return err
	}
	r.metrics.Revocation("superseded")
	if !current.Lease.RunningAt(r.leases.Now()) {
		log.Printf("INFO: Lease on %s already inactive when job %s ran", job.Resource, job.ID)
		return nil
	}

	log.Printf("WARN: Lease on %s was extended while job %s ran, restoring access", job.Resource, job.ID)
	restore := control.ActivateCommand(job.AssetNumber, job.Resource)
	if err := r.dispatcher.Send(ctx, restore); err != nil {
		log.Printf("ERROR: Restore command %s for job %s not delivered: %v", restore, job.ID, err)
		r.metrics.DispatchFailed(restore.ActionType)
	}
	return r.requeue(ctx, job, current.Lease)
}

// requeue schedules a fresh job at the lease's current expiry. It replaces
// whatever is pending for the resource, which at worst is a job for the same
// instant.
func (r *Revoker) requeue(ctx context.Context, job Job, l models.Lease) error {
	if r.queue == nil || !l.RunningAt(r.leases.Now()) {
		return nil
	}
	next := RevocationJob(job.AssetNumber, job.Resource, *l.ExpiresAt)
	next.ID = uuid.NewString()
	if _, err := r.queue.Enqueue(ctx, next); err != nil {
		return fmt.Errorf("failed to move revocation of %s to %s: %w", job.Resource, l.ExpiresAt.Format(time.RFC3339), err)
	}
	log.Printf("INFO: Revocation of %s moved to %s (job %s replaces %s)", job.Resource, l.ExpiresAt.Format(time.RFC3339), next.ID, job.ID)
	return nil
}

func (r *Revoker) publish(ctx context.Context, job Job, res *models.Resource) {
	err := r.events.Publish(ctx, events.Event{
		Type:      events.TypeLeaseRevoked,
		Resource:  job.Resource.Key(),
		ExpiresAt: res.Lease.ExpiresAt,
		At:        r.leases.Now(),
	})
	if err != nil {
		log.Printf("WARN: %v", err)
	}
}
