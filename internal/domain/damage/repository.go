package damage

import (
	"context"

	"github.com/google/uuid"

	"github.com/wms/returns/internal/domain/shared"
)

// DamageAssessmentRepository provides persistence for damage assessments.
// The AndEvents variants write the given domain events to the outbox in
// the same transaction as the aggregate.
type DamageAssessmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*DamageAssessment, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*DamageAssessment, error)
	FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*DamageAssessment, error)
	FindByStatus(ctx context.Context, tenantID uuid.UUID, status DamageStatus, filter shared.Filter) (*shared.Paginated[*DamageAssessment], error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*DamageAssessment], error)
	Save(ctx context.Context, assessment *DamageAssessment) error
	SaveAndEvents(ctx context.Context, assessment *DamageAssessment, events []shared.DomainEvent) error
	SaveWithLock(ctx context.Context, assessment *DamageAssessment) error
	SaveWithLockAndEvents(ctx context.Context, assessment *DamageAssessment, events []shared.DomainEvent) error
}
