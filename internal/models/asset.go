package models

import (
	"fmt"
	"time"

	"go-leasegate/internal/apperr"

	"github.com/shopspring/decimal"
)

type AssetType string

const (
	AssetHotel   AssetType = "hotel"
	AssetVehicle AssetType = "vehicle"
)

type Asset struct {
	ID           string          `gorm:"primaryKey;size:50" json:"id"`
	AssetNumber  string          `gorm:"uniqueIndex;size:50;not null" json:"asset_number"`
	AssetType    AssetType       `gorm:"size:10;not null" json:"asset_type"`
	Name         string          `gorm:"size:100" json:"asset_name"`
	Location     string          `gorm:"size:255" json:"location"`
	TotalRevenue decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_revenue"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ResourceRef resolves a sub-asset number to a typed reference. Hotels own
// rooms and fleets own vehicles; any other asset type owns nothing leasable.
func (a *Asset) ResourceRef(number string) (ResourceRef, error) {
	if number == "" {
		return ResourceRef{}, fmt.Errorf("empty sub-asset number for asset %s: %w", a.ID, apperr.ErrValidation)
	}
	switch a.AssetType {
	case AssetHotel:
		return ResourceRef{Kind: KindRoom, AssetID: a.ID, Number: number}, nil
	case AssetVehicle:
		return ResourceRef{Kind: KindVehicle, AssetID: a.ID, Number: number}, nil
	default:
		return ResourceRef{}, fmt.Errorf("asset %s has unsupported type %q: %w", a.ID, a.AssetType, apperr.ErrValidation)
	}
}

// AssetEvent records a control command accepted for a sub-asset.
type AssetEvent struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	AssetID      string       `gorm:"size:50;index;not null" json:"asset_id"`
	ResourceKind ResourceKind `gorm:"size:10" json:"resource_kind"`
	ObjectID     string       `gorm:"size:50;index" json:"object_id"`
	EventType    string       `gorm:"size:30;not null" json:"event_type"`
	Data         string       `gorm:"type:text" json:"data"`
	Timestamp    time.Time    `gorm:"index" json:"timestamp"`
}
