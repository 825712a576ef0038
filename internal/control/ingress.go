package control

import (
	"context"
	"fmt"
	"log"
	"time"

	"go-leasegate/internal/apperr"
	"go-leasegate/internal/lease"
	"go-leasegate/internal/models"
	"go-leasegate/internal/store"
)

// Ingress is the receiving end of Dispatcher: it validates a command against
// the asset registry, forwards it to the device and logs it.
type Ingress struct {
	store     store.Store
	leases    *lease.Manager
	publisher Publisher
}

func NewIngress(s store.Store, leases *lease.Manager, p Publisher) *Ingress {
	return &Ingress{store: s, leases: leases, publisher: p}
}

// Execute publishes cmd and records it. With UpdateStatus set the lease is
// also forced inactive, which covers a revocation worker that dispatched
// the command but never got to its own status write.
func (i *Ingress) Execute(ctx context.Context, cmd Command) (*models.AssetEvent, error) {
	if cmd.AssetNumber == "" || cmd.SubAssetNumber == "" || cmd.ActionType == "" {
		return nil, fmt.Errorf("asset number, sub-asset number and action type are required: %w", apperr.ErrValidation)
	}

	asset, err := i.store.FindAssetByNumber(ctx, cmd.AssetNumber)
	if err != nil {
		return nil, err
	}
	ref, err := asset.ResourceRef(cmd.SubAssetNumber)
	if err != nil {
		return nil, err
	}
	if _, err := i.store.FindResource(ctx, ref); err != nil {
		return nil, err
	}
	topic, err := Topic(ref.Kind, asset.AssetNumber, ref.Number, cmd.ActionType)
	if err != nil {
		return nil, err
	}

	if err := i.publisher.Publish(topic, []byte(cmd.Data)); err != nil {
		return nil, fmt.Errorf("failed to send command to %s: %w", topic, err)
	}

	event := &models.AssetEvent{
		AssetID:      asset.ID,
		ResourceKind: ref.Kind,
		ObjectID:     ref.Number,
		EventType:    cmd.ActionType,
		Data:         cmd.Data,
		Timestamp:    time.Now(),
	}
	if err := i.store.RecordEvent(ctx, event); err != nil {
		log.Printf("ERROR: Command %s published but not recorded: %v", cmd, err)
	}

	if cmd.UpdateStatus {
		err := i.store.Atomic(ctx, func(tx store.Tx) error {
			return i.leases.ForceDeactivate(tx, ref)
		})
		if err != nil {
			return event, fmt.Errorf("command sent but status update failed for %s: %w", ref, err)
		}
		log.Printf("INFO: Lease on %s marked inactive by control command", ref)
	}
	return event, nil
}
