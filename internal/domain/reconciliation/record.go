package reconciliation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/returns/internal/domain/shared"
)

// SyncStatus tracks where a reconciliation record stands against the
// external system
type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "PENDING"
	SyncStatusRetrying SyncStatus = "RETRYING"
	SyncStatusSynced   SyncStatus = "SYNCED"
	SyncStatusFailed   SyncStatus = "FAILED"
)

// IsValid checks if the status is a valid SyncStatus
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusPending, SyncStatusRetrying, SyncStatusSynced, SyncStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// SyncStep names one of the ordered synchronization steps
type SyncStep string

const (
	StepCreateOrder     SyncStep = "CREATE_ORDER"
	StepAdjustInventory SyncStep = "ADJUST_INVENTORY"
	StepPostFinancials  SyncStep = "POST_FINANCIALS"
	StepDone            SyncStep = "DONE"
)

// ReconciliationRecord tracks the synchronization of one return against
// the external system. Step completion flags make the three-step sync
// resumable: a retry re-runs only the steps that have not completed, and
// the external order ID is set exactly once.
type ReconciliationRecord struct {
	shared.BaseAggregateRoot
	TenantID          uuid.UUID
	ReturnID          uuid.UUID `gorm:"uniqueIndex"`
	ReturnNumber      string
	ExternalOrderID   string
	Status            SyncStatus
	AttemptCount      int
	LastAttemptAt     *time.Time
	LastError         string
	CreditAmount      decimal.Decimal
	WriteOffAmount    decimal.Decimal
	OrderCreated      bool
	InventoryAdjusted bool
	FinancialsPosted  bool
	SyncedAt          *time.Time
}

// NewReconciliationRecord creates a pending record for a completed return
func NewReconciliationRecord(tenantID, returnID uuid.UUID, returnNumber string) (*ReconciliationRecord, error) {
	if returnID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn, "Return ID cannot be empty")
	}
	if returnNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn, "Return number cannot be empty")
	}

	return &ReconciliationRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          tenantID,
		ReturnID:          returnID,
		ReturnNumber:      returnNumber,
		Status:            SyncStatusPending,
		CreditAmount:      decimal.Zero,
		WriteOffAmount:    decimal.Zero,
	}, nil
}

// SetExternalOrderID records the external system's order ID. The ID is
// write-once: a second call with a different value is an error, which is
// the guard against creating duplicate external orders on retry.
func (r *ReconciliationRecord) SetExternalOrderID(externalOrderID string) error {
	if externalOrderID == "" {
		return shared.NewDomainError(shared.CodeInvalidReturn, "External order ID cannot be empty")
	}
	if r.ExternalOrderID != "" && r.ExternalOrderID != externalOrderID {
		return shared.NewDomainError(shared.CodeInvalidReturn,
			fmt.Sprintf("External order ID already set to %s", r.ExternalOrderID))
	}
	r.ExternalOrderID = externalOrderID
	r.UpdatedAt = time.Now()
	return nil
}

// MarkOrderCreated flags the first step complete
func (r *ReconciliationRecord) MarkOrderCreated() {
	r.OrderCreated = true
	r.UpdatedAt = time.Now()
}

// MarkInventoryAdjusted flags the second step complete
func (r *ReconciliationRecord) MarkInventoryAdjusted() {
	r.InventoryAdjusted = true
	r.UpdatedAt = time.Now()
}

// MarkFinancialsPosted flags the third step complete and records the
// amounts that were posted
func (r *ReconciliationRecord) MarkFinancialsPosted(credit, writeOff decimal.Decimal) {
	r.FinancialsPosted = true
	r.CreditAmount = credit
	r.WriteOffAmount = writeOff
	r.UpdatedAt = time.Now()
}

// NextStep returns the first incomplete step
func (r *ReconciliationRecord) NextStep() SyncStep {
	switch {
	case !r.OrderCreated:
		return StepCreateOrder
	case !r.InventoryAdjusted:
		return StepAdjustInventory
	case !r.FinancialsPosted:
		return StepPostFinancials
	}
	return StepDone
}

// BeginAttempt increments the attempt counter and stamps the attempt time
func (r *ReconciliationRecord) BeginAttempt(now time.Time) {
	r.AttemptCount++
	r.LastAttemptAt = &now
	r.UpdatedAt = now
}

// MarkRetrying records a transient failure that will be retried
func (r *ReconciliationRecord) MarkRetrying(cause string) {
	r.Status = SyncStatusRetrying
	r.LastError = cause
	r.UpdatedAt = time.Now()
}

// MarkFailed parks the record with the verbatim cause. Failed records
// stay queryable and can be retried manually.
func (r *ReconciliationRecord) MarkFailed(cause string) {
	r.Status = SyncStatusFailed
	r.LastError = cause
	r.UpdatedAt = time.Now()
}

// MarkSynced records full completion of all steps
func (r *ReconciliationRecord) MarkSynced(now time.Time) error {
	if r.NextStep() != StepDone {
		return shared.NewDomainError(shared.CodeInvalidStateTransition,
			fmt.Sprintf("Cannot mark record synced with step %s outstanding", r.NextStep()))
	}
	r.Status = SyncStatusSynced
	r.LastError = ""
	r.SyncedAt = &now
	r.UpdatedAt = now
	return nil
}

// IsSynced returns true once every step has completed
func (r *ReconciliationRecord) IsSynced() bool {
	return r.Status == SyncStatusSynced
}

// SyncAttempt is one append-only row in the attempt ledger. Attempts are
// never updated or deleted; together they form the audit trail of a
// record's synchronization history.
type SyncAttempt struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	RecordID     uuid.UUID `gorm:"type:uuid;index"`
	ReturnID     uuid.UUID `gorm:"type:uuid;index"`
	AttemptNo    int
	Step         SyncStep
	Succeeded    bool
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// NewSyncAttempt creates an attempt row for the ledger
func NewSyncAttempt(record *ReconciliationRecord, step SyncStep, succeeded bool, errMsg string, startedAt, finishedAt time.Time) *SyncAttempt {
	return &SyncAttempt{
		ID:           uuid.New(),
		RecordID:     record.ID,
		ReturnID:     record.ReturnID,
		AttemptNo:    record.AttemptCount,
		Step:         step,
		Succeeded:    succeeded,
		ErrorMessage: errMsg,
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
	}
}
