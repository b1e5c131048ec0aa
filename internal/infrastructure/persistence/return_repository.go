package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/returns/internal/domain/returns"
	"github.com/wms/returns/internal/domain/shared"
)

// GormReturnRepository implements returns.ReturnRepository using GORM
type GormReturnRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox writes
}

// NewGormReturnRepository creates a new GormReturnRepository
func NewGormReturnRepository(db *gorm.DB) *GormReturnRepository {
	return &GormReturnRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event
// publishing
func (r *GormReturnRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a return by its ID
func (r *GormReturnRepository) FindByID(ctx context.Context, id uuid.UUID) (*returns.Return, error) {
	var ret returns.Return
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&ret, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ret, nil
}

// FindByIDForTenant finds a return by ID within a tenant
func (r *GormReturnRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*returns.Return, error) {
	var ret returns.Return
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&ret).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ret, nil
}

// FindByReturnNumber finds a return by return number for a tenant
func (r *GormReturnRepository) FindByReturnNumber(ctx context.Context, tenantID uuid.UUID, returnNumber string) (*returns.Return, error) {
	var ret returns.Return
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND return_number = ?", tenantID, returnNumber).
		First(&ret).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ret, nil
}

// FindByOrder finds all returns raised against an order, newest first
func (r *GormReturnRepository) FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*returns.Return, error) {
	var rets []*returns.Return
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Order("created_at DESC").
		Find(&rets).Error; err != nil {
		return nil, err
	}
	return rets, nil
}

// FindByStatus finds returns by status for a tenant with pagination
func (r *GormReturnRepository) FindByStatus(ctx context.Context, tenantID uuid.UUID, status returns.ReturnStatus, filter shared.Filter) (*shared.Paginated[*returns.Return], error) {
	query := r.db.WithContext(ctx).Model(&returns.Return{}).
		Where("tenant_id = ? AND status = ?", tenantID, status)
	return r.findPage(ctx, query, filter)
}

// FindAllForTenant finds all returns for a tenant with filtering
func (r *GormReturnRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*returns.Return], error) {
	query := r.db.WithContext(ctx).Model(&returns.Return{}).
		Where("tenant_id = ?", tenantID)
	return r.findPage(ctx, query, filter)
}

func (r *GormReturnRepository) findPage(ctx context.Context, query *gorm.DB, filter shared.Filter) (*shared.Paginated[*returns.Return], error) {
	query = applyReturnFilters(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, ReturnSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var rets []*returns.Return
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Preload("Items").
		Find(&rets).Error; err != nil {
		return nil, err
	}

	page := shared.NewPaginated(rets, total, filter.Page, filter.PageSize)
	return &page, nil
}

func applyReturnFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("return_number ILIKE ? OR load_number ILIKE ?", pattern, pattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "order_id":
			query = query.Where("order_id = ?", value)
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "type":
			query = query.Where("type = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "statuses":
			if statuses, ok := value.([]string); ok && len(statuses) > 0 {
				query = query.Where("status IN ?", statuses)
			}
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at <= ?", t)
			}
		}
	}

	return query
}

// Save creates or updates a return together with its line items
func (r *GormReturnRepository) Save(ctx context.Context, ret *returns.Return) error {
	return r.SaveAndEvents(ctx, ret, nil)
}

// SaveAndEvents creates or updates a return and writes the given events
// to the outbox within the same transaction
func (r *GormReturnRepository) SaveAndEvents(ctx context.Context, ret *returns.Return, events []shared.DomainEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(ret).Error; err != nil {
			return err
		}
		if err := saveReturnItems(tx, ret); err != nil {
			return err
		}
		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}
		return nil
	})
}

// SaveWithLock saves with optimistic locking. The update is guarded by
// the version the aggregate was loaded with; a stale version fails with
// CONCURRENT_MODIFICATION.
func (r *GormReturnRepository) SaveWithLock(ctx context.Context, ret *returns.Return) error {
	return r.SaveWithLockAndEvents(ctx, ret, nil)
}

// SaveWithLockAndEvents saves with optimistic locking and writes the given
// events to the outbox within the same transaction.
func (r *GormReturnRepository) SaveWithLockAndEvents(ctx context.Context, ret *returns.Return, events []shared.DomainEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&returns.Return{}).
			Where("id = ?", ret.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if currentVersion != ret.Version {
			return shared.ErrConcurrentModification
		}

		ret.Version++
		ret.UpdatedAt = time.Now()

		result := tx.Model(&returns.Return{}).
			Where("id = ? AND version = ?", ret.ID, currentVersion).
			Updates(map[string]any{
				"status":               ret.Status,
				"customer_signature":   ret.CustomerSignature,
				"primary_reason":       ret.PrimaryReason,
				"notes":                ret.Notes,
				"assigned_location_id": ret.AssignedLocationID,
				"external_order_id":    ret.ExternalOrderID,
				"credit_amount":        ret.CreditAmount,
				"write_off_amount":     ret.WriteOffAmount,
				"location_assigned_at": ret.LocationAssignedAt,
				"completed_at":         ret.CompletedAt,
				"reconciled_at":        ret.ReconciledAt,
				"cancelled_at":         ret.CancelledAt,
				"cancel_reason":        ret.CancelReason,
				"version":              ret.Version,
				"updated_at":           ret.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrentModification
		}

		if err := saveReturnItems(tx, ret); err != nil {
			return err
		}

		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}

		return nil
	})
}

// saveReturnItems replaces the line item set with the aggregate's
// current one
func saveReturnItems(tx *gorm.DB, ret *returns.Return) error {
	currentItemIDs := make([]uuid.UUID, len(ret.Items))
	for i, item := range ret.Items {
		currentItemIDs[i] = item.ID
	}

	if len(currentItemIDs) > 0 {
		if err := tx.Where("return_id = ? AND id NOT IN ?", ret.ID, currentItemIDs).
			Delete(&returns.ReturnLineItem{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("return_id = ?", ret.ID).
			Delete(&returns.ReturnLineItem{}).Error; err != nil {
			return err
		}
	}

	for i := range ret.Items {
		ret.Items[i].ReturnID = ret.ID
		if err := tx.Save(&ret.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// ExistsByReturnNumber checks if a return number exists for a tenant
func (r *GormReturnRepository) ExistsByReturnNumber(ctx context.Context, tenantID uuid.UUID, returnNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&returns.Return{}).
		Where("tenant_id = ? AND return_number = ?", tenantID, returnNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateReturnNumber generates a unique return number for a tenant.
// Format: RET-YYYYMMDD-NNNN (e.g. RET-20260829-0001)
func (r *GormReturnRepository) GenerateReturnNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	prefix := fmt.Sprintf("RET-%s-", time.Now().Format("20060102"))

	var lastReturn returns.Return
	err := r.db.WithContext(ctx).
		Model(&returns.Return{}).
		Where("tenant_id = ? AND return_number LIKE ?", tenantID, prefix+"%").
		Order("return_number DESC").
		First(&lastReturn).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var nextNum int64 = 1
	if err == nil && lastReturn.ReturnNumber != "" {
		parts := strings.Split(lastReturn.ReturnNumber, "-")
		if len(parts) == 3 {
			var num int64
			if _, parseErr := fmt.Sscanf(parts[2], "%d", &num); parseErr == nil {
				nextNum = num + 1
			}
		}
	}

	returnNumber := fmt.Sprintf("%s%04d", prefix, nextNum)

	exists, err := r.ExistsByReturnNumber(ctx, tenantID, returnNumber)
	if err != nil {
		return "", err
	}
	for range 100 {
		if !exists {
			break
		}
		nextNum++
		returnNumber = fmt.Sprintf("%s%04d", prefix, nextNum)
		exists, err = r.ExistsByReturnNumber(ctx, tenantID, returnNumber)
		if err != nil {
			return "", err
		}
	}

	return returnNumber, nil
}

var _ returns.ReturnRepository = (*GormReturnRepository)(nil)
