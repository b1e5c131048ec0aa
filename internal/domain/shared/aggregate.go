package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseAggregateRoot carries the identity, audit timestamps, optimistic
// locking version, and pending domain events of an aggregate. Events
// accumulate as operations run on the aggregate and are drained by the
// caller once the aggregate has been persisted.
type BaseAggregateRoot struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Version      int       `gorm:"not null;default:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	domainEvents []DomainEvent `gorm:"-"`
}

// NewBaseAggregateRoot creates an aggregate root with a fresh identity
// at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	now := time.Now()
	return BaseAggregateRoot{
		ID:        uuid.New(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IncrementVersion bumps the optimistic locking version
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent queues a domain event for publication
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns the pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents drops the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// TenantAggregateRoot is an aggregate root scoped to a tenant. Every
// aggregate in this module is tenant-scoped except the reconciliation
// attempt ledger entries, which hang off their record.
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// NewTenantAggregateRoot creates an aggregate root bound to a tenant
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		TenantID:          tenantID,
	}
}
