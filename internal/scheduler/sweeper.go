package scheduler

import (
	"context"
	"log"
	"time"

	"go-leasegate/internal/store"
)

// Sweeper revokes leases that are past their expiry but still active, for
// example because the queue lost their job.
type Sweeper struct {
	store    store.Store
	handler  Handler
	interval time.Duration
	batch    int
	now      func() time.Time
}

func NewSweeper(s store.Store, h Handler, interval time.Duration, now func() time.Time) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{store: s, handler: h, interval: interval, batch: 100, now: now}
}

// Sweep handles every lease that expired more than one interval ago and
// returns how many were handed to the handler.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.interval)
	overdue, err := s.store.ExpiredLeases(ctx, cutoff, s.batch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, res := range overdue {
		asset, err := s.store.FindAsset(ctx, res.Ref.AssetID)
		if err != nil {
			log.Printf("ERROR: Sweep cannot resolve asset for %s: %v", res.Ref, err)
			continue
		}
		job := RevocationJob(asset.AssetNumber, res.Ref, *res.Lease.ExpiresAt)
		job.ID = "sweep:" + res.Ref.Key()
		if err := s.handler.Handle(ctx, job); err != nil {
			log.Printf("ERROR: Sweep failed to revoke %s: %v", res.Ref, err)
			continue
		}
		n++
	}
	return n, nil
}

// Run sweeps every interval until ctx is done. A zero interval disables it.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		log.Println("INFO: Lease sweeper disabled")
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				log.Printf("ERROR: Lease sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("WARN: Lease sweep revoked %d overdue leases", n)
			}
		}
	}
}
