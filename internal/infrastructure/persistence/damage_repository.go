package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/returns/internal/domain/damage"
	"github.com/wms/returns/internal/domain/shared"
)

// GormDamageAssessmentRepository implements damage.DamageAssessmentRepository
// using GORM
type GormDamageAssessmentRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox writes
}

// NewGormDamageAssessmentRepository creates a new repository
func NewGormDamageAssessmentRepository(db *gorm.DB) *GormDamageAssessmentRepository {
	return &GormDamageAssessmentRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event
// publishing
func (r *GormDamageAssessmentRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a damage assessment by its ID
func (r *GormDamageAssessmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*damage.DamageAssessment, error) {
	var assessment damage.DamageAssessment
	if err := r.db.WithContext(ctx).
		Preload("Products").
		First(&assessment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &assessment, nil
}

// FindByIDForTenant finds a damage assessment by ID within a tenant
func (r *GormDamageAssessmentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*damage.DamageAssessment, error) {
	var assessment damage.DamageAssessment
	if err := r.db.WithContext(ctx).
		Preload("Products").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&assessment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &assessment, nil
}

// FindByOrder finds all assessments raised against an order
func (r *GormDamageAssessmentRepository) FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*damage.DamageAssessment, error) {
	var assessments []*damage.DamageAssessment
	if err := r.db.WithContext(ctx).
		Preload("Products").
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Order("created_at DESC").
		Find(&assessments).Error; err != nil {
		return nil, err
	}
	return assessments, nil
}

// FindByStatus finds assessments by status for a tenant with pagination
func (r *GormDamageAssessmentRepository) FindByStatus(ctx context.Context, tenantID uuid.UUID, status damage.DamageStatus, filter shared.Filter) (*shared.Paginated[*damage.DamageAssessment], error) {
	query := r.db.WithContext(ctx).Model(&damage.DamageAssessment{}).
		Where("tenant_id = ? AND status = ?", tenantID, status)
	return r.findPage(query, filter)
}

// FindAllForTenant finds all assessments for a tenant with pagination
func (r *GormDamageAssessmentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*damage.DamageAssessment], error) {
	query := r.db.WithContext(ctx).Model(&damage.DamageAssessment{}).
		Where("tenant_id = ?", tenantID)
	return r.findPage(query, filter)
}

func (r *GormDamageAssessmentRepository) findPage(query *gorm.DB, filter shared.Filter) (*shared.Paginated[*damage.DamageAssessment], error) {
	if severity, ok := filter.Filters["severity"]; ok {
		query = query.Where("severity = ?", severity)
	}
	if orderID, ok := filter.Filters["order_id"]; ok {
		query = query.Where("order_id = ?", orderID)
	}
	if loadNumber, ok := filter.Filters["load_number"]; ok {
		query = query.Where("load_number = ?", loadNumber)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, DamageAssessmentSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var assessments []*damage.DamageAssessment
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Preload("Products").
		Find(&assessments).Error; err != nil {
		return nil, err
	}

	page := shared.NewPaginated(assessments, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Save creates or updates an assessment together with its product lines
func (r *GormDamageAssessmentRepository) Save(ctx context.Context, assessment *damage.DamageAssessment) error {
	return r.SaveAndEvents(ctx, assessment, nil)
}

// SaveAndEvents creates or updates an assessment and writes the given
// events to the outbox within the same transaction
func (r *GormDamageAssessmentRepository) SaveAndEvents(ctx context.Context, assessment *damage.DamageAssessment, events []shared.DomainEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Products").Save(assessment).Error; err != nil {
			return err
		}
		if err := saveDamagedProducts(tx, assessment); err != nil {
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

// SaveWithLock saves with optimistic locking
func (r *GormDamageAssessmentRepository) SaveWithLock(ctx context.Context, assessment *damage.DamageAssessment) error {
	return r.SaveWithLockAndEvents(ctx, assessment, nil)
}

// SaveWithLockAndEvents saves with optimistic locking and writes the given
// events to the outbox within the same transaction
func (r *GormDamageAssessmentRepository) SaveWithLockAndEvents(ctx context.Context, assessment *damage.DamageAssessment, events []shared.DomainEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&damage.DamageAssessment{}).
			Where("id = ?", assessment.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if currentVersion != assessment.Version {
			return shared.ErrConcurrentModification
		}

		assessment.Version++
		assessment.UpdatedAt = time.Now()

		result := tx.Model(&damage.DamageAssessment{}).
			Where("id = ? AND version = ?", assessment.ID, currentVersion).
			Updates(map[string]any{
				"severity":             assessment.Severity,
				"status":               assessment.Status,
				"estimated_total_loss": assessment.EstimatedTotalLoss,
				"insurance_claim_ref":  assessment.InsuranceClaimRef,
				"reviewed_by":          assessment.ReviewedBy,
				"review_notes":         assessment.ReviewNotes,
				"notes":                assessment.Notes,
				"submitted_at":         assessment.SubmittedAt,
				"review_started_at":    assessment.ReviewStartedAt,
				"completed_at":         assessment.CompletedAt,
				"cancelled_at":         assessment.CancelledAt,
				"cancel_reason":        assessment.CancelReason,
				"version":              assessment.Version,
				"updated_at":           assessment.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrentModification
		}

		if err := saveDamagedProducts(tx, assessment); err != nil {
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

func saveDamagedProducts(tx *gorm.DB, assessment *damage.DamageAssessment) error {
	currentProductIDs := make([]uuid.UUID, len(assessment.Products))
	for i, product := range assessment.Products {
		currentProductIDs[i] = product.ID
	}

	if len(currentProductIDs) > 0 {
		if err := tx.Where("assessment_id = ? AND id NOT IN ?", assessment.ID, currentProductIDs).
			Delete(&damage.DamagedProduct{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("assessment_id = ?", assessment.ID).
			Delete(&damage.DamagedProduct{}).Error; err != nil {
			return err
		}
	}

	for i := range assessment.Products {
		assessment.Products[i].AssessmentID = assessment.ID
		if err := tx.Save(&assessment.Products[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

var _ damage.DamageAssessmentRepository = (*GormDamageAssessmentRepository)(nil)
