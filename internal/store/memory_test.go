package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-leasegate/internal/apperr"
	"go-leasegate/internal/models"

	"github.com/shopspring/decimal"
)

func seeded(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	if err := LoadSeed(s, "testdata/seed.json"); err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	return s
}

func TestLoadSeed(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	fleet, err := s.FindAssetByNumber(ctx, "FLT-1")
	if err != nil {
		t.Fatalf("FindAssetByNumber: %v", err)
	}
	ref, _ := fleet.ResourceRef("KDA-101")
	if ref.Kind != models.KindVehicle {
		t.Fatalf("fleet resource kind = %s", ref.Kind)
	}
	res, err := s.FindResource(ctx, ref)
	if err != nil {
		t.Fatalf("FindResource: %v", err)
	}
	if !res.UnitPrice.Equal(decimal.NewFromInt(100)) || res.Lease.Status != models.LeaseInactive {
		t.Fatalf("resource = %+v", res)
	}
}

func TestAtomicRollsBackEveryWrite(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	assetID, sub := "a-hotel", "101"
	if err := s.CreateTransaction(ctx, &models.Transaction{TransactionRef: "tx-1", Amount: decimal.NewFromInt(2500), AssetID: &assetID, SubAssetID: &sub}); err != nil {
		t.Fatal(err)
	}
	ref := models.ResourceRef{Kind: models.KindRoom, AssetID: "a-hotel", Number: "101"}
	boom := errors.New("boom")

	err := s.Atomic(ctx, func(tx Tx) error {
		tr, err := tx.LockTransaction("tx-1")
		if err != nil {
			return err
		}
		tr.Status = models.StatusCompleted
		tr.IsVerified = true
		if err := tx.SaveTransaction(tr); err != nil {
			return err
		}
		if err := tx.AddRevenue("a-hotel", tr.Amount); err != nil {
			return err
		}
		expires := time.Now().Add(time.Hour)
		if err := tx.SaveLease(ref, models.Lease{Status: models.LeaseActive, ExpiresAt: &expires}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Atomic err = %v", err)
	}

	tr, _ := s.FindTransaction(ctx, "tx-1")
	if tr.IsVerified || tr.Status != models.StatusPending {
		t.Fatalf("transaction not rolled back: %+v", tr)
	}
	a, _ := s.FindAsset(ctx, "a-hotel")
	if !a.TotalRevenue.IsZero() {
		t.Fatalf("revenue not rolled back: %s", a.TotalRevenue)
	}
	res, _ := s.FindResource(ctx, ref)
	if res.Lease.Status != models.LeaseInactive {
		t.Fatal("lease not rolled back")
	}
}

func TestCreateTransactionRejectsDuplicateRef(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.CreateTransaction(ctx, &models.Transaction{TransactionRef: "tx-1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateTransaction(ctx, &models.Transaction{TransactionRef: "tx-1"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("duplicate ref err = %v", err)
	}
}

func TestExpiredLeasesOldestFirst(t *testing.T) {
	s := seeded(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	set := func(number string, expires time.Time) {
		e := expires
		s.PutResource(models.Resource{
			Ref:       models.ResourceRef{Kind: models.KindRoom, AssetID: "a-hotel", Number: number},
			UnitPrice: decimal.NewFromInt(2500),
			Lease:     models.Lease{Status: models.LeaseActive, ExpiresAt: &e},
		})
	}
	set("101", now.Add(-time.Minute))
	set("102", now.Add(-time.Hour))
	set("103", now.Add(time.Hour))

	got, err := s.ExpiredLeases(context.Background(), now, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Ref.Number != "102" || got[1].Ref.Number != "101" {
		t.Fatalf("expired = %+v", got)
	}
}
