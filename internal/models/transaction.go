// internal/models/transaction.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCanceled  TransactionStatus = "canceled"
)

// Terminal reports whether no further transition is allowed from s.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

// Transaction is one payment attempt. Rows are created pending and move to a
// terminal status exactly once; IsVerified latches that move.
type Transaction struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	TransactionRef string            `gorm:"uniqueIndex;size:100;not null" json:"transaction_ref"`
	ProcessorRef   string            `gorm:"size:100" json:"processor_ref"`
	Provider       string            `gorm:"size:20" json:"provider"`
	PaymentType    string            `gorm:"size:20" json:"payment_type"`
	Amount         decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency       string            `gorm:"size:3;not null" json:"currency"`
	Status         TransactionStatus `gorm:"size:10;not null;default:'pending';index" json:"status"`
	IsOutgoing     bool              `gorm:"not null;default:false" json:"is_outgoing"`
	IsVerified     bool              `gorm:"not null;default:false" json:"is_verified"`
	AssetID        *string           `gorm:"size:50;index" json:"asset_id,omitempty"`
	SubAssetID     *string           `gorm:"size:50" json:"sub_asset_id,omitempty"`
	Name           string            `gorm:"size:255" json:"name"`
	Email          string            `gorm:"size:255" json:"email"`
	Description    string            `gorm:"size:255" json:"description"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// CountsAsRevenue reports whether a settled transaction adds to its asset's
// total and drives a lease.
func (t *Transaction) CountsAsRevenue() bool {
	return t.Status == StatusCompleted && !t.IsOutgoing && t.AssetID != nil
}
