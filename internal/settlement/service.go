// Package settlement confirms payments with the processor and turns a
// confirmed payment into revenue and lease time exactly once.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go-leasegate/internal/apperr"
	"go-leasegate/internal/control"
	"go-leasegate/internal/events"
	"go-leasegate/internal/lease"
	"go-leasegate/internal/metrics"
	"go-leasegate/internal/models"
	"go-leasegate/internal/scheduler"
	"go-leasegate/internal/services"
	"go-leasegate/internal/store"
)

type Scheduler interface {
	Schedule(ctx context.Context, job scheduler.Job) (string, error)
}

type Dispatcher interface {
	Send(ctx context.Context, cmd control.Command) error
}

// Request names a ledger row and the processor's id for the same payment.
// Provider defaults to the one recorded on the transaction.
type Request struct {
	TxRef       string
	ProcessorID string
	Provider    string
}

type Result struct {
	Transaction     *models.Transaction
	AlreadyVerified bool
	Outcome         services.Outcome
	Grant           *lease.Grant
	JobID           string
}

type Deps struct {
	Store      store.Store
	Verifiers  map[string]services.Verifier
	Leases     *lease.Manager
	Scheduler  Scheduler
	Dispatcher Dispatcher
	Events     events.Publisher
	Metrics    *metrics.Metrics
}

type Service struct {
	store      store.Store
	verifiers  map[string]services.Verifier
	leases     *lease.Manager
	scheduler  Scheduler
	dispatcher Dispatcher
	events     events.Publisher
	metrics    *metrics.Metrics
}

func NewService(d Deps) *Service {
	if d.Events == nil {
		d.Events = events.Discard{}
	}
	return &Service{
		store:      d.Store,
		verifiers:  d.Verifiers,
		leases:     d.Leases,
		scheduler:  d.Scheduler,
		dispatcher: d.Dispatcher,
		events:     d.Events,
		metrics:    d.Metrics,
	}
}

// BeginSettlement locks the ledger row for ref and reports whether it was
// already verified. Callers must stop if it was.
func BeginSettlement(tx store.Tx, ref string) (*models.Transaction, bool, error) {
	t, err := tx.LockTransaction(ref)
	if err != nil {
		return nil, false, err
	}
	return t, t.IsVerified, nil
}

// Settle verifies the payment and, inside one unit of work, records the
// outcome, credits the asset and extends the lease. A verified transaction
// is replayed as a success without side effects. Processor errors leave
// the transaction pending.
func (s *Service) Settle(ctx context.Context, req Request) (*Result, error) {
	if req.TxRef == "" || req.ProcessorID == "" {
		return nil, fmt.Errorf("transaction reference and processor id are required: %w", apperr.ErrValidation)
	}

	current, err := s.store.FindTransaction(ctx, req.TxRef)
	if err != nil {
		return nil, err
	}
	if current.IsVerified {
		log.Printf("INFO: Tx_Ref %s already verified (%s), replaying", req.TxRef, current.Status)
		s.metrics.Settlement("replay")
		return &Result{Transaction: current, AlreadyVerified: true}, nil
	}

	verification, err := s.verify(ctx, req, current)
	if err != nil {
		log.Printf("WARN: Verification for Tx_Ref %s not possible, left pending: %v", req.TxRef, err)
		if errors.Is(err, apperr.ErrProcessorUnavailable) {
			s.metrics.Settlement("unavailable")
		} else {
			s.metrics.Settlement("rejected")
		}
		return nil, err
	}
	if verification.Reference != "" && verification.Reference != current.TransactionRef {
		log.Printf("SECURITY: Processor payment %s belongs to %s, not Tx_Ref %s", req.ProcessorID, verification.Reference, req.TxRef)
		s.metrics.Settlement("mismatch")
		return nil, fmt.Errorf("processor payment %s does not belong to %s: %w", req.ProcessorID, req.TxRef, apperr.ErrValidation)
	}
	outcome := s.reconcile(current, verification)
	status, final := outcome.Status()
	if !final {
		log.Printf("INFO: Tx_Ref %s still %s at the processor", req.TxRef, verification.ProcessorStatus)
		s.metrics.Settlement(string(outcome))
		return &Result{Transaction: current, Outcome: outcome}, nil
	}

	res := &Result{Outcome: outcome}
	var asset *models.Asset
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		t, already, err := BeginSettlement(tx, req.TxRef)
		if err != nil {
			return err
		}
		if already {
			res = &Result{Transaction: t, AlreadyVerified: true}
			return nil
		}

		t.Status = status
		t.IsVerified = true
		if t.ProcessorRef == "" {
			t.ProcessorRef = req.ProcessorID
		}
		if err := tx.SaveTransaction(t); err != nil {
			return err
		}
		res.Transaction = t

		if !t.CountsAsRevenue() {
			return nil
		}
		if err := tx.AddRevenue(*t.AssetID, t.Amount); err != nil {
			return fmt.Errorf("revenue for asset %s: %w", *t.AssetID, err)
		}
		if t.SubAssetID == nil || *t.SubAssetID == "" {
			return nil
		}
		if asset, err = tx.FindAsset(*t.AssetID); err != nil {
			return err
		}
		ref, err := asset.ResourceRef(*t.SubAssetID)
		if err != nil {
			return err
		}
		res.Grant, err = s.leases.ApplyPayment(tx, ref, t.Amount)
		return err
	})
	if err != nil {
		log.Printf("ERROR: Settlement of Tx_Ref %s rolled back: %v", req.TxRef, err)
		s.metrics.Settlement("error")
		return nil, err
	}
	if res.AlreadyVerified {
		log.Printf("INFO: Tx_Ref %s was settled concurrently, replaying", req.TxRef)
		s.metrics.Settlement("replay")
		return res, nil
	}

	log.Printf("INFO: Tx_Ref %s settled as %s", req.TxRef, status)
	s.metrics.Settlement(string(outcome))
	if res.Grant != nil {
		s.afterGrant(ctx, asset, res)
	}
	s.publish(ctx, events.Event{
		Type:   events.TypePaymentSettled,
		TxRef:  req.TxRef,
		Status: string(status),
		Amount: res.Transaction.Amount,
		At:     s.leases.Now(),
	})
	return res, nil
}

func (s *Service) verify(ctx context.Context, req Request, current *models.Transaction) (*services.Verification, error) {
	provider := req.Provider
	if provider == "" {
		provider = current.Provider
	}
	verifier, ok := s.verifiers[provider]
	if !ok {
		return nil, fmt.Errorf("no verifier for provider %q: %w", provider, apperr.ErrValidation)
	}
	started := time.Now()
	defer s.metrics.ObserveVerify(provider, started)
	return verifier.Verify(ctx, req.ProcessorID)
}

// reconcile downgrades a completed outcome the ledger cannot accept: less
// money than was asked for, or a different currency.
func (s *Service) reconcile(t *models.Transaction, v *services.Verification) services.Outcome {
	if v.Outcome != services.OutcomeCompleted {
		return v.Outcome
	}
	if v.Amount.LessThan(t.Amount) {
		log.Printf("WARN: Tx_Ref %s paid %s of %s, marking failed", t.TransactionRef, v.Amount, t.Amount)
		return services.OutcomeFailed
	}
	if v.Currency != "" && t.Currency != "" && !strings.EqualFold(v.Currency, t.Currency) {
		log.Printf("WARN: Tx_Ref %s paid in %s, expected %s, marking failed", t.TransactionRef, v.Currency, t.Currency)
		return services.OutcomeFailed
	}
	return services.OutcomeCompleted
}

// afterGrant runs once the lease is committed. Failures here never undo the
// settlement: the sweeper revokes leases whose job was lost, and a missed
// unlock can be repeated through the control ingress.
func (s *Service) afterGrant(ctx context.Context, asset *models.Asset, res *Result) {
	g := res.Grant
	job := scheduler.RevocationJob(asset.AssetNumber, g.Resource, g.ExpiresAt)
	id, err := s.scheduler.Schedule(ctx, job)
	if err != nil {
		log.Printf("ERROR: Revocation for %s at %s not scheduled: %v", g.Resource, g.ExpiresAt.Format(time.RFC3339), err)
	}
	res.JobID = id

	eventType := events.TypeLeaseExtended
	if !g.Extended {
		eventType = events.TypeLeaseActivated
		cmd := control.ActivateCommand(asset.AssetNumber, g.Resource)
		if err := s.dispatcher.Send(ctx, cmd); err != nil {
			log.Printf("ERROR: Activation command %s not delivered: %v", cmd, err)
			s.metrics.DispatchFailed(cmd.ActionType)
		}
	}

	expires := g.ExpiresAt
	s.publish(ctx, events.Event{
		Type:      eventType,
		TxRef:     res.Transaction.TransactionRef,
		Resource:  g.Resource.Key(),
		ExpiresAt: &expires,
		Amount:    res.Transaction.Amount,
		At:        s.leases.Now(),
	})
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		log.Printf("WARN: %v", err)
	}
}

// ProviderForEvent maps a Paystack webhook event to the verifier that can
// confirm it. Other events are acknowledged and ignored.
func ProviderForEvent(event string) (string, bool) {
	switch event {
	case "charge.success":
		return services.ProviderPaystack, true
	case "transfer.success", "transfer.failed", "transfer.reversed":
		return services.ProviderPaystackTransfers, true
	default:
		return "", false
	}
}
