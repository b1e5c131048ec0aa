package returns

import (
	"context"

	"github.com/google/uuid"

	"github.com/wms/returns/internal/domain/shared"
)

// ReturnRepository defines the persistence interface for Return aggregates
type ReturnRepository interface {
	// FindByID finds a return by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Return, error)

	// FindByIDForTenant finds a return by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Return, error)

	// FindByReturnNumber finds a return by return number for a tenant
	FindByReturnNumber(ctx context.Context, tenantID uuid.UUID, returnNumber string) (*Return, error)

	// FindByOrder finds returns raised against an order
	FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*Return, error)

	// FindByStatus finds returns by status for a tenant
	FindByStatus(ctx context.Context, tenantID uuid.UUID, status ReturnStatus, filter shared.Filter) (*shared.Paginated[*Return], error)

	// FindAllForTenant finds all returns for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Return], error)

	// Save creates or updates a return
	Save(ctx context.Context, r *Return) error

	// SaveAndEvents creates or updates a return and writes the given
	// domain events to the outbox in the same transaction
	SaveAndEvents(ctx context.Context, r *Return, events []shared.DomainEvent) error

	// SaveWithLock saves with optimistic locking. A write against a stale
	// version fails with CONCURRENT_MODIFICATION.
	SaveWithLock(ctx context.Context, r *Return) error

	// SaveWithLockAndEvents saves with optimistic locking and writes the
	// given domain events to the outbox in the same transaction, so the
	// state change and its events commit atomically.
	SaveWithLockAndEvents(ctx context.Context, r *Return, events []shared.DomainEvent) error

	// GenerateReturnNumber generates the next return number for a tenant
	GenerateReturnNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// PickingGate is the collaborator contract gating return initiation: a
// return can only be initiated once picking for the order has completed.
// An unavailable gate surfaces as a retryable precondition failure, not a
// domain invariant violation.
type PickingGate interface {
	PickingCompleted(ctx context.Context, tenantID, orderID uuid.UUID) (bool, error)
}

// LocationCapacityChecker is the collaborator contract gating location
// assignment
type LocationCapacityChecker interface {
	HasCapacity(ctx context.Context, tenantID, locationID uuid.UUID) (bool, error)
}
