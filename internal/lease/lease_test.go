package lease

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-leasegate/internal/apperr"
	"go-leasegate/internal/models"
	"go-leasegate/internal/store"

	"github.com/shopspring/decimal"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newRoomStore(price string, lease models.Lease) (*store.MemoryStore, models.ResourceRef) {
	s := store.NewMemoryStore()
	asset := models.Asset{ID: "h1", AssetNumber: "HOTEL-1", AssetType: models.AssetHotel}
	s.PutAsset(asset)
	ref, _ := asset.ResourceRef("101")
	s.PutResource(models.Resource{Ref: ref, UnitPrice: dec(price), Lease: lease})
	return s, ref
}

func apply(t *testing.T, s *store.MemoryStore, m *Manager, ref models.ResourceRef, amount string) *Grant {
	t.Helper()
	var g *Grant
	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		var err error
		g, err = m.ApplyPayment(tx, ref, dec(amount))
		return err
	})
	if err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
	return g
}

func TestUnitsRoundsUp(t *testing.T) {
	cases := []struct {
		amount, price string
		want          int64
	}{
		{"250.00", "100.00", 3},
		{"7500.00", "2500.00", 3},
		{"100.00", "100.00", 1},
		{"0.01", "100.00", 1},
		{"200.01", "100.00", 3},
	}
	for _, tc := range cases {
		got, err := Units(dec(tc.amount), dec(tc.price))
		if err != nil {
			t.Fatalf("Units(%s, %s): %v", tc.amount, tc.price, err)
		}
		if got != tc.want {
			t.Errorf("Units(%s, %s) = %d, want %d", tc.amount, tc.price, got, tc.want)
		}
	}
}

func TestUnitsRejectsBadInput(t *testing.T) {
	if _, err := Units(dec("100"), dec("0")); !errors.Is(err, apperr.ErrInvalidResourceConfig) {
		t.Fatalf("zero price: got %v", err)
	}
	if _, err := Units(dec("100"), dec("-5")); !errors.Is(err, apperr.ErrInvalidResourceConfig) {
		t.Fatalf("negative price: got %v", err)
	}
	if _, err := Units(dec("0"), dec("5")); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("zero amount: got %v", err)
	}
}

func TestApplyPaymentFreshActivation(t *testing.T) {
	s, ref := newRoomStore("2500.00", models.Lease{Status: models.LeaseInactive})
	m := NewManager(24*time.Hour, func() time.Time { return t0 })

	g := apply(t, s, m, ref, "7500.00")

	if g.Units != 3 || g.Extended {
		t.Fatalf("unexpected grant %+v", g)
	}
	want := t0.Add(72 * time.Hour)
	if !g.ExpiresAt.Equal(want) || !g.ActivatedAt.Equal(t0) {
		t.Fatalf("grant window = %s..%s, want %s..%s", g.ActivatedAt, g.ExpiresAt, t0, want)
	}
	res, _ := s.FindResource(context.Background(), ref)
	if res.Lease.Status != models.LeaseActive || !res.Lease.ExpiresAt.Equal(want) {
		t.Fatalf("stored lease = %+v", res.Lease)
	}
}

func TestApplyPaymentStacksOnRunningLease(t *testing.T) {
	activated := t0.Add(-time.Hour)
	expires := t0.Add(5 * time.Minute)
	s, ref := newRoomStore("100", models.Lease{Status: models.LeaseActive, ActivatedAt: &activated, ExpiresAt: &expires})
	m := NewManager(time.Minute, func() time.Time { return t0 })

	g := apply(t, s, m, ref, "200")

	if !g.Extended {
		t.Fatal("expected extension")
	}
	if want := t0.Add(7 * time.Minute); !g.ExpiresAt.Equal(want) {
		t.Fatalf("expiry = %s, want %s", g.ExpiresAt, want)
	}
	res, _ := s.FindResource(context.Background(), ref)
	if !res.Lease.ActivatedAt.Equal(activated) {
		t.Fatalf("activation moved to %s", res.Lease.ActivatedAt)
	}
}

func TestApplyPaymentRestartsExpiredLease(t *testing.T) {
	activated := t0.Add(-3 * time.Hour)
	expires := t0.Add(-time.Hour)
	s, ref := newRoomStore("100", models.Lease{Status: models.LeaseActive, ActivatedAt: &activated, ExpiresAt: &expires})
	m := NewManager(time.Hour, func() time.Time { return t0 })

	g := apply(t, s, m, ref, "100")

	if g.Extended || !g.ActivatedAt.Equal(t0) || !g.ExpiresAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("unexpected grant %+v", g)
	}
}

func TestApplyPaymentInvalidPriceRollsBack(t *testing.T) {
	s, ref := newRoomStore("0", models.Lease{Status: models.LeaseInactive})
	m := NewManager(time.Hour, func() time.Time { return t0 })
	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		_, err := m.ApplyPayment(tx, ref, dec("100"))
		return err
	})
	if !errors.Is(err, apperr.ErrInvalidResourceConfig) {
		t.Fatalf("got %v, want ErrInvalidResourceConfig", err)
	}
	res, _ := s.FindResource(context.Background(), ref)
	if res.Lease.Status != models.LeaseInactive {
		t.Fatalf("lease changed: %+v", res.Lease)
	}
}

func TestConcurrentPaymentsStackWithoutLostUpdate(t *testing.T) {
	s, ref := newRoomStore("10", models.Lease{Status: models.LeaseInactive})
	m := NewManager(time.Minute, func() time.Time { return t0 })

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Atomic(context.Background(), func(tx store.Tx) error {
				_, err := m.ApplyPayment(tx, ref, dec("10"))
				return err
			})
		}()
	}
	wg.Wait()

	res, _ := s.FindResource(context.Background(), ref)
	if want := t0.Add(n * time.Minute); !res.Lease.ExpiresAt.Equal(want) {
		t.Fatalf("expiry = %s, want %s", res.Lease.ExpiresAt, want)
	}
}

func TestDeactivateSkipsExtendedLease(t *testing.T) {
	expires := t0.Add(time.Minute)
	s, ref := newRoomStore("10", models.Lease{Status: models.LeaseActive, ActivatedAt: &t0, ExpiresAt: &expires})
	m := NewManager(time.Minute, func() time.Time { return t0 })

	var changed bool
	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		var err error
		changed, err = m.Deactivate(tx, ref)
		return err
	})
	if err != nil || changed {
		t.Fatalf("Deactivate = %v, %v; want false, nil", changed, err)
	}

	late := NewManager(time.Minute, func() time.Time { return expires })
	err = s.Atomic(context.Background(), func(tx store.Tx) error {
		var err error
		changed, err = late.Deactivate(tx, ref)
		return err
	})
	if err != nil || !changed {
		t.Fatalf("Deactivate at expiry = %v, %v; want true, nil", changed, err)
	}
	res, _ := s.FindResource(context.Background(), ref)
	if res.Lease.Status != models.LeaseInactive {
		t.Fatalf("lease still %s", res.Lease.Status)
	}
}
