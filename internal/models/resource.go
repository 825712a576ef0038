package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ResourceKind string

const (
	KindRoom    ResourceKind = "room"
	KindVehicle ResourceKind = "vehicle"
)

// ResourceRef names one leasable sub-asset: {Room(number) | Vehicle(number)}
// within its owning asset.
type ResourceRef struct {
	Kind    ResourceKind `json:"kind"`
	AssetID string       `json:"asset_id"`
	Number  string       `json:"number"`
}

// Key is stable across processes and used to index scheduled jobs.
func (r ResourceRef) Key() string {
	return fmt.Sprintf("%s:%s:%s", r.Kind, r.AssetID, r.Number)
}

func (r ResourceRef) String() string { return r.Key() }

type LeaseStatus string

const (
	LeaseActive   LeaseStatus = "active"
	LeaseInactive LeaseStatus = "inactive"
)

// Lease is the access window of a sub-asset.
type Lease struct {
	Status      LeaseStatus `gorm:"size:10;not null;default:'inactive'" json:"status"`
	ActivatedAt *time.Time  `json:"activation_timestamp"`
	ExpiresAt   *time.Time  `gorm:"index" json:"expiry_timestamp"`
}

// RunningAt reports whether the lease is active with time left at now.
func (l Lease) RunningAt(now time.Time) bool {
	return l.Status == LeaseActive && l.ExpiresAt != nil && l.ExpiresAt.After(now)
}

// ExpiredAt reports whether an active lease has reached its expiry.
func (l Lease) ExpiredAt(now time.Time) bool {
	return l.Status == LeaseActive && (l.ExpiresAt == nil || !l.ExpiresAt.After(now))
}

type HotelRoom struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	HotelID    string          `gorm:"size:50;not null;uniqueIndex:idx_hotel_room" json:"hotel_id"`
	RoomNumber string          `gorm:"size:10;not null;uniqueIndex:idx_hotel_room" json:"room_number"`
	RoomType   string          `gorm:"size:50" json:"room_type"`
	Price      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Lease      `gorm:"embedded"`
}

type Vehicle struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	FleetID       string          `gorm:"size:50;not null;uniqueIndex:idx_fleet_vehicle" json:"fleet_id"`
	VehicleNumber string          `gorm:"size:50;not null;uniqueIndex:idx_fleet_vehicle" json:"vehicle_number"`
	VehicleType   string          `gorm:"size:50" json:"vehicle_type"`
	Brand         string          `gorm:"size:100" json:"brand"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Lease         `gorm:"embedded"`
}

// Resource is the kind-independent view of a room or vehicle.
type Resource struct {
	Ref       ResourceRef
	UnitPrice decimal.Decimal
	Lease     Lease
}

func (r *HotelRoom) Resource() Resource {
	return Resource{
		Ref:       ResourceRef{Kind: KindRoom, AssetID: r.HotelID, Number: r.RoomNumber},
		UnitPrice: r.Price,
		Lease:     r.Lease,
	}
}

func (v *Vehicle) Resource() Resource {
	return Resource{
		Ref:       ResourceRef{Kind: KindVehicle, AssetID: v.FleetID, Number: v.VehicleNumber},
		UnitPrice: v.Price,
		Lease:     v.Lease,
	}
}
