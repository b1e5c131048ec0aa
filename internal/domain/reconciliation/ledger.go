package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wms/returns/internal/domain/shared"
)

// Ledger persists reconciliation records and their append-only attempt
// history
type Ledger interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ReconciliationRecord, error)
	FindByReturnID(ctx context.Context, returnID uuid.UUID) (*ReconciliationRecord, error)
	FindByStatus(ctx context.Context, tenantID uuid.UUID, status SyncStatus, filter shared.Filter) (*shared.Paginated[*ReconciliationRecord], error)
	Save(ctx context.Context, record *ReconciliationRecord) error
	SaveWithLock(ctx context.Context, record *ReconciliationRecord) error
	AppendAttempt(ctx context.Context, attempt *SyncAttempt) error
	ListAttempts(ctx context.Context, returnID uuid.UUID) ([]*SyncAttempt, error)
	CurrentView(ctx context.Context, returnID uuid.UUID) (*LedgerView, error)
	Summary(ctx context.Context, tenantID uuid.UUID, since time.Time) (*SyncSummary, error)
}

// LedgerView joins a record with its full attempt history for dashboards
type LedgerView struct {
	Record   *ReconciliationRecord `json:"record"`
	Attempts []*SyncAttempt        `json:"attempts"`
}

// SyncSummary aggregates record counts by status for a tenant
type SyncSummary struct {
	TenantID    uuid.UUID `json:"tenant_id"`
	Since       time.Time `json:"since"`
	Total       int64     `json:"total"`
	Pending     int64     `json:"pending"`
	Retrying    int64     `json:"retrying"`
	Synced      int64     `json:"synced"`
	Failed      int64     `json:"failed"`
	SuccessRate float64   `json:"success_rate"`
}

// ComputeSuccessRate fills SuccessRate from the status counts
func (s *SyncSummary) ComputeSuccessRate() {
	settled := s.Synced + s.Failed
	if settled == 0 {
		s.SuccessRate = 0
		return
	}
	s.SuccessRate = float64(s.Synced) / float64(settled)
}
