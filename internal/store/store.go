// Package store is the persistence boundary of the settlement pipeline: the
// transaction ledger, asset revenue, and the lease rows of rooms and vehicles.
package store

import (
	"context"
	"time"

	"go-leasegate/internal/models"

	"github.com/shopspring/decimal"
)

// Store reads outside any lock and opens atomic units of work.
type Store interface {
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	FindTransaction(ctx context.Context, ref string) (*models.Transaction, error)
	FindAsset(ctx context.Context, id string) (*models.Asset, error)
	FindAssetByNumber(ctx context.Context, number string) (*models.Asset, error)
	FindResource(ctx context.Context, ref models.ResourceRef) (*models.Resource, error)
	// ExpiredLeases lists resources still marked active whose expiry is at or
	// before cutoff, oldest first.
	ExpiredLeases(ctx context.Context, cutoff time.Time, limit int) ([]models.Resource, error)
	RecordEvent(ctx context.Context, e *models.AssetEvent) error
	// Atomic runs fn in one unit of work. Any error from fn rolls back every
	// write made through tx, and row locks are held until fn returns.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the view of the store inside an atomic unit.
type Tx interface {
	// LockTransaction takes an exclusive lock on the ledger row.
	LockTransaction(ref string) (*models.Transaction, error)
	SaveTransaction(t *models.Transaction) error
	FindAsset(id string) (*models.Asset, error)
	// AddRevenue increments the asset total in place.
	AddRevenue(assetID string, amount decimal.Decimal) error
	// LockResource takes an exclusive lock on the room or vehicle row.
	LockResource(ref models.ResourceRef) (*models.Resource, error)
	SaveLease(ref models.ResourceRef, lease models.Lease) error
}
