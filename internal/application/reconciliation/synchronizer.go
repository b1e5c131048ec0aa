package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wms/returns/internal/domain/reconciliation"
	"github.com/wms/returns/internal/domain/returns"
	"github.com/wms/returns/internal/domain/shared"
)

// Synchronizer drives the reconciliation of completed returns against the
// external system. It subscribes to return completion events and executes
// the three sync steps in order, persisting step completion after each so
// a retry resumes where the previous attempt stopped instead of repeating
// external calls.
type Synchronizer struct {
	ledger     reconciliation.Ledger
	returnRepo returns.ReturnRepository
	gateway    reconciliation.ERPGateway
	logger     *zap.Logger
	backoff    Backoff
	breaker    *CircuitBreaker

	// injectable for deterministic tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSynchronizer creates a Synchronizer with the default retry policy
func NewSynchronizer(
	ledger reconciliation.Ledger,
	returnRepo returns.ReturnRepository,
	gateway reconciliation.ERPGateway,
	logger *zap.Logger,
) *Synchronizer {
	return &Synchronizer{
		ledger:     ledger,
		returnRepo: returnRepo,
		gateway:    gateway,
		logger:     logger,
		backoff:    DefaultBackoff(),
		now:        time.Now,
		sleep:      sleepWithContext,
	}
}

// WithBackoff replaces the retry policy
func (s *Synchronizer) WithBackoff(b Backoff) *Synchronizer {
	s.backoff = b
	return s
}

// WithCircuitBreaker attaches a circuit breaker around external calls
func (s *Synchronizer) WithCircuitBreaker(cb *CircuitBreaker) *Synchronizer {
	s.breaker = cb
	return s
}

// WithClock replaces the clock and sleeper, for tests
func (s *Synchronizer) WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) *Synchronizer {
	s.now = now
	s.sleep = sleep
	return s
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// EventTypes implements shared.EventHandler
func (s *Synchronizer) EventTypes() []string {
	return []string{returns.EventTypeReturnCompleted}
}

// Handle implements shared.EventHandler. Delivery is at-least-once, so
// the whole synchronization path tolerates duplicate events.
func (s *Synchronizer) Handle(ctx context.Context, event shared.DomainEvent) error {
	completed, ok := event.(*returns.ReturnCompletedEvent)
	if !ok {
		return fmt.Errorf("synchronizer: unexpected event type %s", event.EventType())
	}
	return s.SyncReturn(ctx, completed.ReturnID)
}

// SyncReturn reconciles one return against the external system. Already
// synced returns are a no-op; transient failures are retried with
// exponential backoff; exhausted or permanent failures park the ledger
// record as FAILED for manual retry.
func (s *Synchronizer) SyncReturn(ctx context.Context, returnID uuid.UUID) error {
	record, err := s.loadOrCreateRecord(ctx, returnID)
	if err != nil {
		return err
	}

	if record.IsSynced() {
		s.logger.Debug("return already synchronized",
			zap.String("return_id", returnID.String()),
			zap.String("external_order_id", record.ExternalOrderID))
		return nil
	}

	r, err := s.returnRepo.FindByID(ctx, returnID)
	if err != nil {
		return err
	}
	if !r.IsCompleted() {
		record.MarkFailed(fmt.Sprintf("return is %s, not COMPLETED", r.Status))
		return s.ledger.Save(ctx, record)
	}

	credit, writeOff := financialTotals(r)

	for attempt := 1; ; attempt++ {
		start := s.now()
		record.BeginAttempt(start)

		err := s.runSteps(ctx, record, r, credit, writeOff)
		if err == nil {
			return s.finish(ctx, record, r, credit, writeOff)
		}

		if !reconciliation.IsTransient(err) {
			s.logger.Error("synchronization failed permanently",
				zap.String("return_number", record.ReturnNumber),
				zap.Int("attempt", record.AttemptCount),
				zap.Error(err))
			record.MarkFailed(err.Error())
			return s.ledger.Save(ctx, record)
		}

		if s.backoff.Exhausted(attempt) {
			s.logger.Error("synchronization retries exhausted",
				zap.String("return_number", record.ReturnNumber),
				zap.Int("attempts", record.AttemptCount),
				zap.Error(err))
			record.MarkFailed(err.Error())
			return s.ledger.Save(ctx, record)
		}

		record.MarkRetrying(err.Error())
		if saveErr := s.ledger.Save(ctx, record); saveErr != nil {
			return saveErr
		}

		delay := s.backoff.DelayFor(attempt)
		s.logger.Warn("synchronization attempt failed, backing off",
			zap.String("return_number", record.ReturnNumber),
			zap.Int("attempt", record.AttemptCount),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// RetrySync re-runs synchronization for a record that has not reached
// SYNCED. Besides parked FAILED records this covers records stranded in
// PENDING or RETRYING by a shutdown mid-backoff.
func (s *Synchronizer) RetrySync(ctx context.Context, returnID uuid.UUID) error {
	record, err := s.ledger.FindByReturnID(ctx, returnID)
	if err != nil {
		return err
	}
	if record.IsSynced() {
		return shared.NewDomainError(shared.CodeInvalidStateTransition,
			fmt.Sprintf("Cannot manually retry record in %s status", record.Status))
	}
	return s.SyncReturn(ctx, returnID)
}

func (s *Synchronizer) loadOrCreateRecord(ctx context.Context, returnID uuid.UUID) (*reconciliation.ReconciliationRecord, error) {
	record, err := s.ledger.FindByReturnID(ctx, returnID)
	if err == nil {
		return record, nil
	}
	if !shared.IsDomainError(err, shared.CodeNotFound) {
		return nil, err
	}

	r, err := s.returnRepo.FindByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	record, err = reconciliation.NewReconciliationRecord(r.TenantID, r.ID, r.ReturnNumber)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// runSteps executes the outstanding sync steps in order. Completed steps
// are persisted immediately so later attempts skip them; in particular the
// external order is created at most once per return.
func (s *Synchronizer) runSteps(
	ctx context.Context,
	record *reconciliation.ReconciliationRecord,
	r *returns.Return,
	credit, writeOff decimal.Decimal,
) error {
	for {
		step := record.NextStep()
		if step == reconciliation.StepDone {
			return nil
		}

		start := s.now()
		err := s.runStep(ctx, step, record, r, credit, writeOff)
		finish := s.now()

		attempt := reconciliation.NewSyncAttempt(record, step, err == nil, errMessage(err), start, finish)
		if appendErr := s.ledger.AppendAttempt(ctx, attempt); appendErr != nil {
			s.logger.Error("failed to append sync attempt",
				zap.String("return_number", record.ReturnNumber),
				zap.Error(appendErr))
		}

		if err != nil {
			return err
		}
		if saveErr := s.ledger.Save(ctx, record); saveErr != nil {
			return saveErr
		}
	}
}

func (s *Synchronizer) runStep(
	ctx context.Context,
	step reconciliation.SyncStep,
	record *reconciliation.ReconciliationRecord,
	r *returns.Return,
	credit, writeOff decimal.Decimal,
) error {
	if s.breaker != nil {
		if err := s.breaker.Allow(); err != nil {
			return err
		}
	}

	var err error
	switch step {
	case reconciliation.StepCreateOrder:
		err = s.createOrder(ctx, record, r)
	case reconciliation.StepAdjustInventory:
		err = s.adjustInventory(ctx, record, r)
	case reconciliation.StepPostFinancials:
		err = s.postFinancials(ctx, record, r, credit, writeOff)
	default:
		err = fmt.Errorf("synchronizer: unknown step %s", step)
	}

	if s.breaker != nil {
		if err != nil && reconciliation.IsTransient(err) {
			s.breaker.RecordFailure()
		} else if err == nil {
			s.breaker.RecordSuccess()
		}
	}
	return err
}

func (s *Synchronizer) createOrder(ctx context.Context, record *reconciliation.ReconciliationRecord, r *returns.Return) error {
	if record.ExternalOrderID == "" {
		lines := make([]reconciliation.ReturnOrderLine, 0, len(r.Items))
		for _, item := range r.Items {
			if item.ReturnedQuantity.IsZero() {
				continue
			}
			lines = append(lines, reconciliation.ReturnOrderLine{
				ProductCode:    item.ProductCode,
				Quantity:       item.ReturnedQuantity,
				UnitPrice:      item.UnitPrice,
				Condition:      string(item.Condition),
				ReturnReason:   item.ReturnReason,
				InventoryState: string(item.Condition.TargetInventoryState()),
			})
		}

		externalOrderID, err := s.gateway.CreateReturnOrder(ctx, reconciliation.CreateReturnOrderRequest{
			TenantID:     r.TenantID,
			ReturnID:     r.ID,
			ReturnNumber: r.ReturnNumber,
			OrderID:      r.OrderID,
			CustomerID:   r.CustomerID,
			Lines:        lines,
		})
		if err != nil {
			return err
		}
		if err := record.SetExternalOrderID(externalOrderID); err != nil {
			return err
		}
	}
	record.MarkOrderCreated()
	return nil
}

func (s *Synchronizer) adjustInventory(ctx context.Context, record *reconciliation.ReconciliationRecord, r *returns.Return) error {
	adjustments := make([]reconciliation.InventoryAdjustment, 0, len(r.Items))
	for _, item := range r.Items {
		if item.ReturnedQuantity.IsZero() {
			continue
		}
		adjustments = append(adjustments, reconciliation.InventoryAdjustment{
			ProductCode: item.ProductCode,
			Quantity:    item.ReturnedQuantity,
			TargetState: string(item.Condition.TargetInventoryState()),
		})
	}

	if err := s.gateway.AdjustInventory(ctx, reconciliation.AdjustInventoryRequest{
		TenantID:        r.TenantID,
		ExternalOrderID: record.ExternalOrderID,
		LocationID:      r.AssignedLocationID,
		Adjustments:     adjustments,
	}); err != nil {
		return err
	}
	record.MarkInventoryAdjusted()
	return nil
}

func (s *Synchronizer) postFinancials(ctx context.Context, record *reconciliation.ReconciliationRecord, r *returns.Return, credit, writeOff decimal.Decimal) error {
	if credit.GreaterThan(decimal.Zero) {
		if err := s.gateway.IssueCredit(ctx, reconciliation.IssueCreditRequest{
			TenantID:        r.TenantID,
			ExternalOrderID: record.ExternalOrderID,
			CustomerID:      r.CustomerID,
			Amount:          credit,
			Currency:        "USD",
		}); err != nil {
			return err
		}
	}
	if writeOff.GreaterThan(decimal.Zero) {
		if err := s.gateway.RecordWriteOff(ctx, reconciliation.RecordWriteOffRequest{
			TenantID:        r.TenantID,
			ExternalOrderID: record.ExternalOrderID,
			Amount:          writeOff,
			Currency:        "USD",
			Reason:          r.PrimaryReason,
		}); err != nil {
			return err
		}
	}

	record.MarkFinancialsPosted(credit, writeOff)
	return nil
}

// finish marks the ledger record synced and moves the aggregate to
// RECONCILED. A version conflict on the aggregate save means the return
// changed underneath the sync, typically a cancellation; in that case the
// external work is done but the aggregate must not be forced forward.
func (s *Synchronizer) finish(
	ctx context.Context,
	record *reconciliation.ReconciliationRecord,
	r *returns.Return,
	credit, writeOff decimal.Decimal,
) error {
	if err := record.MarkSynced(s.now()); err != nil {
		return err
	}

	if err := r.MarkReconciled(record.ExternalOrderID, credit, writeOff); err != nil {
		record.MarkFailed(err.Error())
		return s.ledger.Save(ctx, record)
	}

	events := r.GetDomainEvents()
	r.ClearDomainEvents()

	if err := s.returnRepo.SaveWithLockAndEvents(ctx, r, events); err != nil {
		if !shared.IsDomainError(err, shared.CodeConcurrentModification) {
			return err
		}
		fresh, loadErr := s.returnRepo.FindByID(ctx, r.ID)
		if loadErr != nil {
			return loadErr
		}
		if fresh.IsCancelled() {
			record.MarkFailed("return cancelled during synchronization")
			s.logger.Warn("return cancelled while sync was in flight",
				zap.String("return_number", record.ReturnNumber),
				zap.String("external_order_id", record.ExternalOrderID))
			return s.ledger.Save(ctx, record)
		}
		if err := fresh.MarkReconciled(record.ExternalOrderID, credit, writeOff); err != nil {
			record.MarkFailed(err.Error())
			return s.ledger.Save(ctx, record)
		}
		events = fresh.GetDomainEvents()
		fresh.ClearDomainEvents()
		if err := s.returnRepo.SaveWithLockAndEvents(ctx, fresh, events); err != nil {
			return err
		}
		r = fresh
	}

	if err := s.ledger.Save(ctx, record); err != nil {
		return err
	}

	s.logger.Info("return synchronized",
		zap.String("return_number", record.ReturnNumber),
		zap.String("external_order_id", record.ExternalOrderID),
		zap.Int("attempts", record.AttemptCount),
		zap.String("credit", credit.String()),
		zap.String("write_off", writeOff.String()))
	return nil
}

// financialTotals splits the returned lines into a customer credit for
// sellable goods and a write-off for everything else. Every returned
// line settles one way or the other.
func financialTotals(r *returns.Return) (credit, writeOff decimal.Decimal) {
	credit = decimal.Zero
	writeOff = decimal.Zero
	for _, item := range r.Items {
		if item.ReturnedQuantity.IsZero() {
			continue
		}
		if item.Condition.Creditable() {
			credit = credit.Add(item.LineValue())
		} else {
			writeOff = writeOff.Add(item.LineValue())
		}
	}
	return credit, writeOff
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
