package returns

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/returns/internal/domain/shared"
)

// Aggregate type constant for Return
const AggregateTypeReturn = "Return"

// Event type constants for Return
const (
	EventTypeReturnInitiated        = "ReturnInitiated"
	EventTypeReturnProcessed        = "ReturnProcessed"
	EventTypeReturnLocationAssigned = "ReturnLocationAssigned"
	EventTypeReturnCompleted        = "ReturnCompleted"
	EventTypeReturnReconciled       = "ReturnReconciled"
	EventTypeReturnCancelled        = "ReturnCancelled"
)

// ReturnLineInfo is the per-line snapshot carried on return events.
// Events carry only what downstream consumers need, never the full
// aggregate.
type ReturnLineInfo struct {
	LineItemID       uuid.UUID        `json:"line_item_id"`
	ProductID        uuid.UUID        `json:"product_id"`
	ProductCode      string           `json:"product_code"`
	ReturnedQuantity decimal.Decimal  `json:"returned_quantity"`
	AcceptedQuantity decimal.Decimal  `json:"accepted_quantity"`
	UnitPrice        decimal.Decimal  `json:"unit_price"`
	Condition        ProductCondition `json:"condition,omitempty"`
	ReturnReason     string           `json:"return_reason,omitempty"`
}

func lineInfos(r *Return) []ReturnLineInfo {
	infos := make([]ReturnLineInfo, len(r.Items))
	for i, item := range r.Items {
		infos[i] = ReturnLineInfo{
			LineItemID:       item.ID,
			ProductID:        item.ProductID,
			ProductCode:      item.ProductCode,
			ReturnedQuantity: item.ReturnedQuantity,
			AcceptedQuantity: item.AcceptedQuantity,
			UnitPrice:        item.UnitPrice,
			Condition:        item.Condition,
			ReturnReason:     item.ReturnReason,
		}
	}
	return infos
}

// ReturnInitiatedEvent is raised when a partial return is initiated
type ReturnInitiatedEvent struct {
	shared.BaseDomainEvent
	ReturnID         uuid.UUID       `json:"return_id"`
	ReturnNumber     string          `json:"return_number"`
	OrderID          uuid.UUID       `json:"order_id"`
	CustomerID       uuid.UUID       `json:"customer_id"`
	TotalLines       int             `json:"total_lines"`
	LinesWithReturns int             `json:"lines_with_returns"`
	TotalReturnedQty decimal.Decimal `json:"total_returned_qty"`
}

// NewReturnInitiatedEvent creates a new ReturnInitiatedEvent
func NewReturnInitiatedEvent(r *Return) *ReturnInitiatedEvent {
	return &ReturnInitiatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeReturnInitiated, AggregateTypeReturn, r.ID, r.TenantID),
		ReturnID:         r.ID,
		ReturnNumber:     r.ReturnNumber,
		OrderID:          r.OrderID,
		CustomerID:       r.CustomerID,
		TotalLines:       len(r.Items),
		LinesWithReturns: r.LinesWithReturns(),
		TotalReturnedQty: r.TotalReturnedQuantity(),
	}
}

// EventType returns the event type name
func (e *ReturnInitiatedEvent) EventType() string {
	return EventTypeReturnInitiated
}

// ReturnProcessedEvent is raised when a full return is processed
type ReturnProcessedEvent struct {
	shared.BaseDomainEvent
	ReturnID           uuid.UUID                  `json:"return_id"`
	ReturnNumber       string                     `json:"return_number"`
	OrderID            uuid.UUID                  `json:"order_id"`
	CustomerID         uuid.UUID                  `json:"customer_id"`
	PrimaryReason      string                     `json:"primary_reason"`
	ConditionBreakdown map[string]decimal.Decimal `json:"condition_breakdown"`
}

// NewReturnProcessedEvent creates a new ReturnProcessedEvent
func NewReturnProcessedEvent(r *Return) *ReturnProcessedEvent {
	breakdown := make(map[string]decimal.Decimal)
	for condition, qty := range r.ConditionBreakdown() {
		breakdown[condition.String()] = qty
	}
	return &ReturnProcessedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeReturnProcessed, AggregateTypeReturn, r.ID, r.TenantID),
		ReturnID:           r.ID,
		ReturnNumber:       r.ReturnNumber,
		OrderID:            r.OrderID,
		CustomerID:         r.CustomerID,
		PrimaryReason:      r.PrimaryReason,
		ConditionBreakdown: breakdown,
	}
}

// EventType returns the event type name
func (e *ReturnProcessedEvent) EventType() string {
	return EventTypeReturnProcessed
}

// ReturnLocationAssignedEvent is raised when a storage location is assigned
type ReturnLocationAssignedEvent struct {
	shared.BaseDomainEvent
	ReturnID     uuid.UUID `json:"return_id"`
	ReturnNumber string    `json:"return_number"`
	LocationID   uuid.UUID `json:"location_id"`
}

// NewReturnLocationAssignedEvent creates a new ReturnLocationAssignedEvent
func NewReturnLocationAssignedEvent(r *Return, locationID uuid.UUID) *ReturnLocationAssignedEvent {
	return &ReturnLocationAssignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnLocationAssigned, AggregateTypeReturn, r.ID, r.TenantID),
		ReturnID:        r.ID,
		ReturnNumber:    r.ReturnNumber,
		LocationID:      locationID,
	}
}

// EventType returns the event type name
func (e *ReturnLocationAssignedEvent) EventType() string {
	return EventTypeReturnLocationAssigned
}

// ReturnCompletedEvent is raised when a return finishes warehouse-side
// processing. This is the canonical trigger for reconciliation against
// the external system, so it carries the full line snapshot the
// synchronizer needs.
type ReturnCompletedEvent struct {
	shared.BaseDomainEvent
	ReturnID     uuid.UUID        `json:"return_id"`
	ReturnNumber string           `json:"return_number"`
	OrderID      uuid.UUID        `json:"order_id"`
	CustomerID   uuid.UUID        `json:"customer_id"`
	ReturnType   ReturnType       `json:"return_type"`
	LocationID   *uuid.UUID       `json:"location_id,omitempty"`
	Items        []ReturnLineInfo `json:"items"`
}

// NewReturnCompletedEvent creates a new ReturnCompletedEvent
func NewReturnCompletedEvent(r *Return) *ReturnCompletedEvent {
	return &ReturnCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnCompleted, AggregateTypeReturn, r.ID, r.TenantID),
		ReturnID:        r.ID,
		ReturnNumber:    r.ReturnNumber,
		OrderID:         r.OrderID,
		CustomerID:      r.CustomerID,
		ReturnType:      r.Type,
		LocationID:      r.AssignedLocationID,
		Items:           lineInfos(r),
	}
}

// EventType returns the event type name
func (e *ReturnCompletedEvent) EventType() string {
	return EventTypeReturnCompleted
}

// ReturnReconciledEvent is raised when the external system has acknowledged
// the return and the financial impact is settled
type ReturnReconciledEvent struct {
	shared.BaseDomainEvent
	ReturnID        uuid.UUID       `json:"return_id"`
	ReturnNumber    string          `json:"return_number"`
	ExternalOrderID string          `json:"external_order_id"`
	CreditAmount    decimal.Decimal `json:"credit_amount"`
	WriteOffAmount  decimal.Decimal `json:"write_off_amount"`
}

// NewReturnReconciledEvent creates a new ReturnReconciledEvent
func NewReturnReconciledEvent(r *Return) *ReturnReconciledEvent {
	return &ReturnReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnReconciled, AggregateTypeReturn, r.ID, r.TenantID),
		ReturnID:        r.ID,
		ReturnNumber:    r.ReturnNumber,
		ExternalOrderID: r.ExternalOrderID,
		CreditAmount:    r.CreditAmount,
		WriteOffAmount:  r.WriteOffAmount,
	}
}

// EventType returns the event type name
func (e *ReturnReconciledEvent) EventType() string {
	return EventTypeReturnReconciled
}

// ReturnCancelledEvent is raised when a return is cancelled. WasCompleted
// tells consumers whether a reconciliation attempt may already be in
// flight for this return.
type ReturnCancelledEvent struct {
	shared.BaseDomainEvent
	ReturnID     uuid.UUID `json:"return_id"`
	ReturnNumber string    `json:"return_number"`
	Reason       string    `json:"reason"`
	WasCompleted bool      `json:"was_completed"`
}

// NewReturnCancelledEvent creates a new ReturnCancelledEvent
func NewReturnCancelledEvent(r *Return, wasCompleted bool) *ReturnCancelledEvent {
	return &ReturnCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnCancelled, AggregateTypeReturn, r.ID, r.TenantID),
		ReturnID:        r.ID,
		ReturnNumber:    r.ReturnNumber,
		Reason:          r.CancelReason,
		WasCompleted:    wasCompleted,
	}
}

// EventType returns the event type name
func (e *ReturnCancelledEvent) EventType() string {
	return EventTypeReturnCancelled
}
