package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/returns/internal/domain/reconciliation"
	"github.com/wms/returns/internal/domain/shared"
)

// GormLedger implements reconciliation.Ledger using GORM. Records are
// one per return; attempts are append-only and never updated.
type GormLedger struct {
	db *gorm.DB
}

// NewGormLedger creates a new GormLedger
func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

// FindByID finds a reconciliation record by its ID
func (l *GormLedger) FindByID(ctx context.Context, id uuid.UUID) (*reconciliation.ReconciliationRecord, error) {
	var record reconciliation.ReconciliationRecord
	if err := l.db.WithContext(ctx).
		First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByReturnID finds the record for a return
func (l *GormLedger) FindByReturnID(ctx context.Context, returnID uuid.UUID) (*reconciliation.ReconciliationRecord, error) {
	var record reconciliation.ReconciliationRecord
	if err := l.db.WithContext(ctx).
		Where("return_id = ?", returnID).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByStatus finds records by status for a tenant with pagination
func (l *GormLedger) FindByStatus(ctx context.Context, tenantID uuid.UUID, status reconciliation.SyncStatus, filter shared.Filter) (*shared.Paginated[*reconciliation.ReconciliationRecord], error) {
	query := l.db.WithContext(ctx).Model(&reconciliation.ReconciliationRecord{}).
		Where("tenant_id = ? AND status = ?", tenantID, status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, ReconciliationSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var records []*reconciliation.ReconciliationRecord
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&records).Error; err != nil {
		return nil, err
	}

	page := shared.NewPaginated(records, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Save creates or updates a record
func (l *GormLedger) Save(ctx context.Context, record *reconciliation.ReconciliationRecord) error {
	return l.db.WithContext(ctx).Save(record).Error
}

// SaveWithLock saves with optimistic locking
func (l *GormLedger) SaveWithLock(ctx context.Context, record *reconciliation.ReconciliationRecord) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&reconciliation.ReconciliationRecord{}).
			Where("id = ?", record.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if currentVersion != record.Version {
			return shared.ErrConcurrentModification
		}

		record.Version++
		record.UpdatedAt = time.Now()

		result := tx.Model(&reconciliation.ReconciliationRecord{}).
			Where("id = ? AND version = ?", record.ID, currentVersion).
			Updates(map[string]any{
				"external_order_id":  record.ExternalOrderID,
				"status":             record.Status,
				"attempt_count":      record.AttemptCount,
				"last_attempt_at":    record.LastAttemptAt,
				"last_error":         record.LastError,
				"credit_amount":      record.CreditAmount,
				"write_off_amount":   record.WriteOffAmount,
				"order_created":      record.OrderCreated,
				"inventory_adjusted": record.InventoryAdjusted,
				"financials_posted":  record.FinancialsPosted,
				"synced_at":          record.SyncedAt,
				"version":            record.Version,
				"updated_at":         record.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrentModification
		}
		return nil
	})
}

// AppendAttempt appends one attempt row to the ledger
func (l *GormLedger) AppendAttempt(ctx context.Context, attempt *reconciliation.SyncAttempt) error {
	return l.db.WithContext(ctx).Create(attempt).Error
}

// ListAttempts lists the attempt history for a return in execution order
func (l *GormLedger) ListAttempts(ctx context.Context, returnID uuid.UUID) ([]*reconciliation.SyncAttempt, error) {
	var attempts []*reconciliation.SyncAttempt
	if err := l.db.WithContext(ctx).
		Where("return_id = ?", returnID).
		Order("started_at ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

// CurrentView joins the record with its attempt history
func (l *GormLedger) CurrentView(ctx context.Context, returnID uuid.UUID) (*reconciliation.LedgerView, error) {
	record, err := l.FindByReturnID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	attempts, err := l.ListAttempts(ctx, returnID)
	if err != nil {
		return nil, err
	}
	return &reconciliation.LedgerView{Record: record, Attempts: attempts}, nil
}

// Summary aggregates record counts by status for a tenant
func (l *GormLedger) Summary(ctx context.Context, tenantID uuid.UUID, since time.Time) (*reconciliation.SyncSummary, error) {
	type statusCount struct {
		Status reconciliation.SyncStatus
		Count  int64
	}

	var counts []statusCount
	if err := l.db.WithContext(ctx).
		Model(&reconciliation.ReconciliationRecord{}).
		Select("status, COUNT(*) as count").
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}

	summary := &reconciliation.SyncSummary{
		TenantID: tenantID,
		Since:    since,
	}
	for _, c := range counts {
		summary.Total += c.Count
		switch c.Status {
		case reconciliation.SyncStatusPending:
			summary.Pending = c.Count
		case reconciliation.SyncStatusRetrying:
			summary.Retrying = c.Count
		case reconciliation.SyncStatusSynced:
			summary.Synced = c.Count
		case reconciliation.SyncStatusFailed:
			summary.Failed = c.Count
		}
	}
	summary.ComputeSuccessRate()

	return summary, nil
}

var _ reconciliation.Ledger = (*GormLedger)(nil)
