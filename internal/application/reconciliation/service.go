package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/returns/internal/domain/reconciliation"
	"github.com/wms/returns/internal/domain/shared"
)

// ReconciliationService exposes the ledger for dashboards and manual
// operations
type ReconciliationService struct {
	ledger       reconciliation.Ledger
	synchronizer *Synchronizer
	logger       *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(ledger reconciliation.Ledger, synchronizer *Synchronizer, logger *zap.Logger) *ReconciliationService {
	return &ReconciliationService{
		ledger:       ledger,
		synchronizer: synchronizer,
		logger:       logger,
	}
}

// GetByReturnID retrieves the reconciliation record for a return
func (s *ReconciliationService) GetByReturnID(ctx context.Context, returnID uuid.UUID) (*reconciliation.ReconciliationRecord, error) {
	return s.ledger.FindByReturnID(ctx, returnID)
}

// CurrentView retrieves the record plus its full attempt history
func (s *ReconciliationService) CurrentView(ctx context.Context, returnID uuid.UUID) (*reconciliation.LedgerView, error) {
	return s.ledger.CurrentView(ctx, returnID)
}

// ListAttempts retrieves the attempt audit trail for a return
func (s *ReconciliationService) ListAttempts(ctx context.Context, returnID uuid.UUID) ([]*reconciliation.SyncAttempt, error) {
	return s.ledger.ListAttempts(ctx, returnID)
}

// ListByStatus retrieves records in one status with pagination
func (s *ReconciliationService) ListByStatus(ctx context.Context, tenantID uuid.UUID, status reconciliation.SyncStatus, filter shared.Filter) (*shared.Paginated[*reconciliation.ReconciliationRecord], error) {
	if !status.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn, "Unknown sync status "+status.String())
	}
	return s.ledger.FindByStatus(ctx, tenantID, status, filter)
}

// ListFailed retrieves the parked records awaiting manual intervention
func (s *ReconciliationService) ListFailed(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*reconciliation.ReconciliationRecord], error) {
	return s.ledger.FindByStatus(ctx, tenantID, reconciliation.SyncStatusFailed, filter)
}

// Summary aggregates sync outcomes for a tenant since the given time
func (s *ReconciliationService) Summary(ctx context.Context, tenantID uuid.UUID, since time.Time) (*reconciliation.SyncSummary, error) {
	return s.ledger.Summary(ctx, tenantID, since)
}

// RetrySync re-runs synchronization for any record that has not reached SYNCED
func (s *ReconciliationService) RetrySync(ctx context.Context, returnID uuid.UUID) error {
	s.logger.Info("manual sync retry requested", zap.String("return_id", returnID.String()))
	return s.synchronizer.RetrySync(ctx, returnID)
}
