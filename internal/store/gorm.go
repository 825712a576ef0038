package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"go-leasegate/internal/apperr"
	"go-leasegate/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres and migrates the tables this service owns.
func Open(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(level)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(
		&models.Asset{},
		&models.HotelRoom{},
		&models.Vehicle{},
		&models.Transaction{},
		&models.AssetEvent{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	log.Println("INFO: Database schema migrated.")
	return db, nil
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

func (s *GormStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create transaction %s: %w", t.TransactionRef, err)
	}
	return nil
}

func (s *GormStore) FindTransaction(ctx context.Context, ref string) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.db.WithContext(ctx).Where("transaction_ref = ?", ref).First(&t).Error; err != nil {
		return nil, notFound(err, "transaction "+ref)
	}
	return &t, nil
}

func (s *GormStore) FindAsset(ctx context.Context, id string) (*models.Asset, error) {
	return findAsset(s.db.WithContext(ctx), id)
}

func (s *GormStore) FindAssetByNumber(ctx context.Context, number string) (*models.Asset, error) {
	var a models.Asset
	if err := s.db.WithContext(ctx).Where("asset_number = ?", number).First(&a).Error; err != nil {
		return nil, notFound(err, "asset number "+number)
	}
	return &a, nil
}

func (s *GormStore) FindResource(ctx context.Context, ref models.ResourceRef) (*models.Resource, error) {
	return findResource(s.db.WithContext(ctx), ref)
}

func (s *GormStore) ExpiredLeases(ctx context.Context, cutoff time.Time, limit int) ([]models.Resource, error) {
	db := s.db.WithContext(ctx)
	var rooms []models.HotelRoom
	if err := db.Where("status = ? AND expires_at <= ?", models.LeaseActive, cutoff).
		Order("expires_at").Limit(limitOrAll(limit)).Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list expired rooms: %w", err)
	}
	var vehicles []models.Vehicle
	if err := db.Where("status = ? AND expires_at <= ?", models.LeaseActive, cutoff).
		Order("expires_at").Limit(limitOrAll(limit)).Find(&vehicles).Error; err != nil {
		return nil, fmt.Errorf("failed to list expired vehicles: %w", err)
	}
	out := make([]models.Resource, 0, len(rooms)+len(vehicles))
	for i := range rooms {
		out = append(out, rooms[i].Resource())
	}
	for i := range vehicles {
		out = append(out, vehicles[i].Resource())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Lease.ExpiresAt.Before(*out[j].Lease.ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *GormStore) RecordEvent(ctx context.Context, e *models.AssetEvent) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("failed to record %s event for %s: %w", e.EventType, e.ObjectID, err)
	}
	return nil
}

func (s *GormStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db})
	})
}

type gormTx struct {
	db *gorm.DB
}

func (g *gormTx) forUpdate() *gorm.DB {
	return g.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (g *gormTx) LockTransaction(ref string) (*models.Transaction, error) {
	var t models.Transaction
	if err := g.forUpdate().Where("transaction_ref = ?", ref).First(&t).Error; err != nil {
		return nil, notFound(err, "transaction "+ref)
	}
	return &t, nil
}

func (g *gormTx) SaveTransaction(t *models.Transaction) error {
	if err := g.db.Save(t).Error; err != nil {
		return fmt.Errorf("failed to save transaction %s: %w", t.TransactionRef, err)
	}
	return nil
}

func (g *gormTx) FindAsset(id string) (*models.Asset, error) {
	return findAsset(g.db, id)
}

func (g *gormTx) AddRevenue(assetID string, amount decimal.Decimal) error {
	res := g.db.Model(&models.Asset{}).Where("id = ?", assetID).
		Update("total_revenue", gorm.Expr("total_revenue + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("failed to add revenue to asset %s: %w", assetID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("asset %s: %w", assetID, apperr.ErrNotFound)
	}
	return nil
}

func (g *gormTx) LockResource(ref models.ResourceRef) (*models.Resource, error) {
	return findResource(g.forUpdate(), ref)
}

func (g *gormTx) SaveLease(ref models.ResourceRef, lease models.Lease) error {
	q, err := resourceQuery(g.db, ref)
	if err != nil {
		return err
	}
	res := q.Updates(map[string]interface{}{
		"status":       lease.Status,
		"activated_at": lease.ActivatedAt,
		"expires_at":   lease.ExpiresAt,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to save lease of %s: %w", ref, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("resource %s: %w", ref, apperr.ErrNotFound)
	}
	return nil
}

func findAsset(db *gorm.DB, id string) (*models.Asset, error) {
	var a models.Asset
	if err := db.Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err, "asset "+id)
	}
	return &a, nil
}

func resourceQuery(db *gorm.DB, ref models.ResourceRef) (*gorm.DB, error) {
	switch ref.Kind {
	case models.KindRoom:
		return db.Model(&models.HotelRoom{}).Where("hotel_id = ? AND room_number = ?", ref.AssetID, ref.Number), nil
	case models.KindVehicle:
		return db.Model(&models.Vehicle{}).Where("fleet_id = ? AND vehicle_number = ?", ref.AssetID, ref.Number), nil
	default:
		return nil, fmt.Errorf("unknown resource kind %q: %w", ref.Kind, apperr.ErrValidation)
	}
}

func findResource(db *gorm.DB, ref models.ResourceRef) (*models.Resource, error) {
	switch ref.Kind {
	case models.KindRoom:
		var room models.HotelRoom
		if err := db.Where("hotel_id = ? AND room_number = ?", ref.AssetID, ref.Number).First(&room).Error; err != nil {
			return nil, notFound(err, "room "+ref.String())
		}
		r := room.Resource()
		return &r, nil
	case models.KindVehicle:
		var v models.Vehicle
		if err := db.Where("fleet_id = ? AND vehicle_number = ?", ref.AssetID, ref.Number).First(&v).Error; err != nil {
			return nil, notFound(err, "vehicle "+ref.String())
		}
		r := v.Resource()
		return &r, nil
	default:
		return nil, fmt.Errorf("unknown resource kind %q: %w", ref.Kind, apperr.ErrValidation)
	}
}

// limitOrAll maps a non-positive limit to gorm's "no limit".
func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
