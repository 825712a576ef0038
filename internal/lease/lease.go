// Package lease computes and applies access windows for rooms and vehicles.
//
// One unit of purchased time is UnitDuration long. In production that is a
// day; test deployments shorten it (a minute, say) through configuration.
package lease

import (
	"fmt"
	"math"
	"time"

	"go-leasegate/internal/apperr"
	"go-leasegate/internal/models"
	"go-leasegate/internal/store"

	"github.com/shopspring/decimal"
)

type Manager struct {
	unit time.Duration
	now  func() time.Time
}

// NewManager panics on a non-positive unit, which is a configuration bug.
func NewManager(unit time.Duration, now func() time.Time) *Manager {
	if unit <= 0 {
		panic(fmt.Sprintf("lease: unit duration must be positive, got %s", unit))
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{unit: unit, now: now}
}

func (m *Manager) Now() time.Time { return m.now() }

func (m *Manager) UnitDuration() time.Duration { return m.unit }

// Grant describes the lease produced by one payment.
type Grant struct {
	Resource    models.ResourceRef
	Units       int64
	ActivatedAt time.Time
	ExpiresAt   time.Time
	Extended    bool
}

// Units returns ceil(amount / unitPrice).
func Units(amount, unitPrice decimal.Decimal) (int64, error) {
	if !unitPrice.IsPositive() {
		return 0, fmt.Errorf("unit price %s: %w", unitPrice, apperr.ErrInvalidResourceConfig)
	}
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount %s must be positive: %w", amount, apperr.ErrValidation)
	}
	q, r := amount.QuoRem(unitPrice, 0)
	if r.IsPositive() {
		q = q.Add(decimal.NewFromInt(1))
	}
	return q.IntPart(), nil
}

func (m *Manager) span(units int64) (time.Duration, error) {
	if units > math.MaxInt64/int64(m.unit) {
		return 0, fmt.Errorf("%d units exceed the maximum lease span: %w", units, apperr.ErrValidation)
	}
	return time.Duration(units) * m.unit, nil
}

// ApplyPayment locks the resource row and extends or starts its lease. A
// lease still running is stacked onto its current expiry; otherwise the
// window starts now. Must run inside the same unit as the ledger update.
func (m *Manager) ApplyPayment(tx store.Tx, ref models.ResourceRef, amount decimal.Decimal) (*Grant, error) {
	res, err := tx.LockResource(ref)
	if err != nil {
		return nil, err
	}
	units, err := Units(amount, res.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", ref, err)
	}
	span, err := m.span(units)
	if err != nil {
		return nil, err
	}

	now := m.now()
	lease := res.Lease
	grant := &Grant{Resource: ref, Units: units}
	if lease.RunningAt(now) {
		expires := lease.ExpiresAt.Add(span)
		lease.ExpiresAt = &expires
		grant.Extended = true
		if lease.ActivatedAt != nil {
			grant.ActivatedAt = *lease.ActivatedAt
		}
	} else {
		expires := now.Add(span)
		lease.ActivatedAt = &now
		lease.ExpiresAt = &expires
		grant.ActivatedAt = now
	}
	lease.Status = models.LeaseActive
	grant.ExpiresAt = *lease.ExpiresAt

	if err := tx.SaveLease(ref, lease); err != nil {
		return nil, err
	}
	return grant, nil
}

// Deactivate marks the lease inactive if it has reached its expiry. It
// returns false when the lease was extended in the meantime or is already
// inactive, in which case nothing is written.
func (m *Manager) Deactivate(tx store.Tx, ref models.ResourceRef) (bool, error) {
	res, err := tx.LockResource(ref)
	if err != nil {
		return false, err
	}
	if !res.Lease.ExpiredAt(m.now()) {
		return false, nil
	}
	lease := res.Lease
	lease.Status = models.LeaseInactive
	return true, tx.SaveLease(ref, lease)
}

// ForceDeactivate marks the lease inactive regardless of its expiry.
func (m *Manager) ForceDeactivate(tx store.Tx, ref models.ResourceRef) error {
	res, err := tx.LockResource(ref)
	if err != nil {
		return err
	}
	if res.Lease.Status == models.LeaseInactive {
		return nil
	}
	lease := res.Lease
	lease.Status = models.LeaseInactive
	return tx.SaveLease(ref, lease)
}
