// Package events announces lease lifecycle changes to downstream consumers.
// Publishing is best effort: the ledger and lease tables are the record.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypePaymentSettled = "payment.settled"
	TypeLeaseActivated = "lease.activated"
	TypeLeaseExtended  = "lease.extended"
	TypeLeaseRevoked   = "lease.revoked"
)

type Event struct {
	Type      string          `json:"type"`
	TxRef     string          `json:"tx_ref,omitempty"`
	Status    string          `json:"status,omitempty"`
	Resource  string          `json:"resource,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	At        time.Time       `json:"at"`
}

// Key partitions events so that one resource's history stays ordered.
func (e Event) Key() string {
	if e.Resource != "" {
		return e.Resource
	}
	return e.TxRef
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Discard drops every event. Used when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
func (Discard) Close() error                         { return nil }
