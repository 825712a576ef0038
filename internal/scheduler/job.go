// Package scheduler runs revocations when leases run out. Jobs live in a
// durable queue keyed by resource, so a newer schedule for the same room or
// vehicle replaces the older one. A job that fires while the lease still runs
// is moved to the lease's current expiry.
package scheduler

import (
	"context"
	"time"

	"go-leasegate/internal/control"
	"go-leasegate/internal/models"
)

// Job is one delayed control command.
type Job struct {
	ID                string             `json:"id"`
	Resource          models.ResourceRef `json:"resource"`
	AssetNumber       string             `json:"asset_number"`
	SubAssetNumber    string             `json:"sub_asset_number"`
	ActionType        string             `json:"action_type"`
	Data              string             `json:"data"`
	ForceStatusUpdate bool               `json:"force_status_update"`
	FireAt            time.Time          `json:"fire_at"`
}

// RevocationJob builds the job that closes ref at fireAt.
func RevocationJob(assetNumber string, ref models.ResourceRef, fireAt time.Time) Job {
	cmd := control.RevokeCommand(assetNumber, ref)
	return Job{
		Resource:       ref,
		AssetNumber:    assetNumber,
		SubAssetNumber: ref.Number,
		ActionType:     cmd.ActionType,
		Data:           cmd.Data,
		FireAt:         fireAt,
	}
}

func (j Job) Command() control.Command {
	return control.Command{
		AssetNumber:    j.AssetNumber,
		SubAssetNumber: j.SubAssetNumber,
		ActionType:     j.ActionType,
		Data:           j.Data,
		UpdateStatus:   j.ForceStatusUpdate,
	}
}

// Queue stores jobs until they are due. Claimed jobs stay invisible until
// acked or until their visibility window lapses and Recover returns them.
type Queue interface {
	// Enqueue stores job and drops any other pending job for the same
	// resource, returning the dropped job's id.
	Enqueue(ctx context.Context, job Job) (superseded string, err error)
	// Claim hands out up to max jobs due at now.
	Claim(ctx context.Context, now time.Time, max int) ([]Job, error)
	Ack(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (*Job, error)
	// Recover requeues claimed jobs whose visibility window ended before now.
	Recover(ctx context.Context, now time.Time) (int, error)
}

// Handler executes a due job. An error leaves the job unacked so it is
// delivered again.
type Handler interface {
	Handle(ctx context.Context, job Job) error
}
