package returns

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/returns/internal/domain/shared"
	"github.com/wms/returns/internal/domain/shared/valueobject"
)

// ReturnType distinguishes a partial return (some lines kept, some sent
// back) from a full return (nothing kept)
type ReturnType string

const (
	ReturnTypePartial ReturnType = "PARTIAL"
	ReturnTypeFull    ReturnType = "FULL"
)

// ReturnStatus represents the lifecycle status of a return
type ReturnStatus string

const (
	ReturnStatusInitiated        ReturnStatus = "INITIATED"
	ReturnStatusLocationAssigned ReturnStatus = "LOCATION_ASSIGNED"
	ReturnStatusCompleted        ReturnStatus = "COMPLETED"
	ReturnStatusReconciled       ReturnStatus = "RECONCILED"
	ReturnStatusCancelled        ReturnStatus = "CANCELLED"
)

// IsValid checks if the status is a valid ReturnStatus
func (s ReturnStatus) IsValid() bool {
	switch s {
	case ReturnStatusInitiated, ReturnStatusLocationAssigned, ReturnStatusCompleted,
		ReturnStatusReconciled, ReturnStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ReturnStatus
func (s ReturnStatus) String() string {
	return string(s)
}

// IsTerminal returns true for statuses with no outgoing transitions
func (s ReturnStatus) IsTerminal() bool {
	return s == ReturnStatusReconciled || s == ReturnStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	if target == ReturnStatusCancelled {
		return !s.IsTerminal()
	}
	switch s {
	case ReturnStatusInitiated:
		return target == ReturnStatusLocationAssigned
	case ReturnStatusLocationAssigned:
		return target == ReturnStatusCompleted
	case ReturnStatusCompleted:
		return target == ReturnStatusReconciled
	}
	return false
}

// ReturnLineItem represents a single product line in a return.
// ReturnedQuantity is always derived as PickedQuantity - AcceptedQuantity
// and is never set directly.
type ReturnLineItem struct {
	ID               uuid.UUID
	ReturnID         uuid.UUID
	ProductID        uuid.UUID
	ProductCode      string
	Description      string
	OrderedQuantity  decimal.Decimal
	PickedQuantity   decimal.Decimal
	AcceptedQuantity decimal.Decimal
	ReturnedQuantity decimal.Decimal
	UnitPrice        decimal.Decimal
	ReturnReason     string
	Condition        ProductCondition
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewReturnLineItem creates a validated line item. The quantity chain must
// hold: 0 <= accepted <= picked <= ordered. Lines that send anything back
// must carry a reason and a product condition.
func NewReturnLineItem(
	productID uuid.UUID,
	productCode, description string,
	ordered, picked, accepted decimal.Decimal,
	unitPrice valueobject.Money,
	reason string,
	condition ProductCondition,
	notes string,
) (*ReturnLineItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn, "Product ID cannot be empty")
	}
	if productCode == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn, "Product code cannot be empty")
	}
	if err := validateQuantities(productCode, ordered, picked, accepted); err != nil {
		return nil, err
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn,
			fmt.Sprintf("Unit price cannot be negative for product %s", productCode))
	}

	returned := picked.Sub(accepted)
	if returned.GreaterThan(decimal.Zero) {
		if reason == "" {
			return nil, shared.NewDomainError(shared.CodeInvalidReturn,
				fmt.Sprintf("Return reason is required for product %s", productCode))
		}
		if condition == "" {
			return nil, shared.NewDomainError(shared.CodeInvalidReturn,
				fmt.Sprintf("Product condition is required for product %s", productCode))
		}
	}
	if condition != "" && !condition.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn,
			fmt.Sprintf("Unknown product condition %q for product %s", condition, productCode))
	}

	now := time.Now()
	return &ReturnLineItem{
		ID:               uuid.New(),
		ProductID:        productID,
		ProductCode:      productCode,
		Description:      description,
		OrderedQuantity:  ordered,
		PickedQuantity:   picked,
		AcceptedQuantity: accepted,
		ReturnedQuantity: returned,
		UnitPrice:        unitPrice.Amount(),
		ReturnReason:     reason,
		Condition:        condition,
		Notes:            notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// validateQuantities enforces the quantity chain for a line. Violations
// carry the offending product code; values are never clamped.
func validateQuantities(productCode string, ordered, picked, accepted decimal.Decimal) error {
	if ordered.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError(shared.CodeInvalidReturn,
			fmt.Sprintf("Ordered quantity must be positive for product %s", productCode))
	}
	if picked.IsNegative() || picked.GreaterThan(ordered) {
		return shared.NewDomainError(shared.CodeInvalidReturn,
			fmt.Sprintf("Picked quantity must be within [0, ordered] for product %s", productCode))
	}
	if accepted.IsNegative() || accepted.GreaterThan(picked) {
		return shared.NewDomainError(shared.CodeInvalidReturn,
			fmt.Sprintf("Accepted quantity must be within [0, picked] for product %s", productCode))
	}
	return nil
}

// SetAcceptedQuantity updates the accepted quantity and re-derives the
// returned quantity
func (i *ReturnLineItem) SetAcceptedQuantity(accepted decimal.Decimal) error {
	if err := validateQuantities(i.ProductCode, i.OrderedQuantity, i.PickedQuantity, accepted); err != nil {
		return err
	}

	returned := i.PickedQuantity.Sub(accepted)
	if returned.GreaterThan(decimal.Zero) && i.ReturnReason == "" {
		return shared.NewDomainError(shared.CodeInvalidReturn,
			fmt.Sprintf("Return reason is required for product %s", i.ProductCode))
	}

	i.AcceptedQuantity = accepted
	i.ReturnedQuantity = returned
	i.UpdatedAt = time.Now()
	return nil
}

// SetReturnReason sets the per-line return reason
func (i *ReturnLineItem) SetReturnReason(reason string) {
	i.ReturnReason = reason
	i.UpdatedAt = time.Now()
}

// SetCondition sets the condition of the returned goods
func (i *ReturnLineItem) SetCondition(condition ProductCondition) error {
	if !condition.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidReturn,
			fmt.Sprintf("Unknown product condition %q for product %s", condition, i.ProductCode))
	}
	i.Condition = condition
	i.UpdatedAt = time.Now()
	return nil
}

// LineValue returns unit price x returned quantity for this line
func (i *ReturnLineItem) LineValue() decimal.Decimal {
	return i.UnitPrice.Mul(i.ReturnedQuantity)
}

// Return is the aggregate root coordinating a customer return transaction.
// It is created by one of the two factory operations below and mutated
// only through its lifecycle operations; it is never deleted, only
// terminally cancelled.
type Return struct {
	shared.TenantAggregateRoot
	ReturnNumber       string
	OrderID            uuid.UUID
	LoadNumber         string
	CustomerID         uuid.UUID
	Type               ReturnType
	Status             ReturnStatus
	Items              []ReturnLineItem
	CustomerSignature  string
	PrimaryReason      string
	Notes              string
	AssignedLocationID *uuid.UUID
	ExternalOrderID    string
	CreditAmount       decimal.Decimal
	WriteOffAmount     decimal.Decimal
	LocationAssignedAt *time.Time
	CompletedAt        *time.Time
	ReconciledAt       *time.Time
	CancelledAt        *time.Time
	CancelReason       string
}

// newReturn builds the common shell shared by both factory operations
func newReturn(
	tenantID uuid.UUID,
	returnNumber string,
	orderID uuid.UUID,
	loadNumber string,
	customerID uuid.UUID,
	items []ReturnLineItem,
) (*Return, error) {
	if returnNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn, "Return number cannot be empty")
	}
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn, "Order ID cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn, "Customer ID cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn, "Return must have at least one line item")
	}

	r := &Return{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ReturnNumber:        returnNumber,
		OrderID:             orderID,
		LoadNumber:          loadNumber,
		CustomerID:          customerID,
		Status:              ReturnStatusInitiated,
		Items:               make([]ReturnLineItem, 0, len(items)),
		CreditAmount:        decimal.Zero,
		WriteOffAmount:      decimal.Zero,
	}
	for _, item := range items {
		item.ReturnID = r.ID
		r.Items = append(r.Items, item)
	}
	return r, nil
}

// InitiatePartialReturn creates a partial return: the customer keeps some
// goods and sends others back within the same transaction. A signature is
// required, and the lines must show both an acceptance and a return --
// otherwise the transaction belongs on the full-return path.
func InitiatePartialReturn(
	tenantID uuid.UUID,
	returnNumber string,
	orderID uuid.UUID,
	loadNumber string,
	customerID uuid.UUID,
	items []ReturnLineItem,
	customerSignature string,
) (*Return, error) {
	if customerSignature == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn,
			"Customer signature is required for a partial return")
	}

	r, err := newReturn(tenantID, returnNumber, orderID, loadNumber, customerID, items)
	if err != nil {
		return nil, err
	}

	hasAccepted := false
	hasReturned := false
	for _, item := range r.Items {
		if item.AcceptedQuantity.GreaterThan(decimal.Zero) {
			hasAccepted = true
		}
		if item.ReturnedQuantity.GreaterThan(decimal.Zero) {
			hasReturned = true
		}
	}
	if !hasReturned {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn,
			"Partial return must return at least one unit")
	}
	if !hasAccepted {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn,
			"Partial return must accept at least one unit; use a full return instead")
	}

	r.Type = ReturnTypePartial
	r.CustomerSignature = customerSignature
	r.AddDomainEvent(NewReturnInitiatedEvent(r))

	return r, nil
}

// ProcessFullReturn creates a full return: every picked unit of every line
// comes back and nothing is accepted. A primary reason is required.
func ProcessFullReturn(
	tenantID uuid.UUID,
	returnNumber string,
	orderID uuid.UUID,
	loadNumber string,
	customerID uuid.UUID,
	items []ReturnLineItem,
	primaryReason string,
	notes string,
) (*Return, error) {
	if primaryReason == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn,
			"Primary return reason is required for a full return")
	}

	r, err := newReturn(tenantID, returnNumber, orderID, loadNumber, customerID, items)
	if err != nil {
		return nil, err
	}

	for _, item := range r.Items {
		if !item.AcceptedQuantity.IsZero() {
			return nil, shared.NewDomainError(shared.CodeInvalidReturn,
				fmt.Sprintf("Full return cannot accept any units (product %s)", item.ProductCode))
		}
		if !item.ReturnedQuantity.Equal(item.PickedQuantity) {
			return nil, shared.NewDomainError(shared.CodeInvalidReturn,
				fmt.Sprintf("Full return must return every picked unit (product %s)", item.ProductCode))
		}
	}
	if r.TotalReturnedQuantity().IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidReturn,
			"Full return must return at least one unit")
	}

	r.Type = ReturnTypeFull
	r.PrimaryReason = primaryReason
	r.Notes = notes
	r.AddDomainEvent(NewReturnProcessedEvent(r))

	return r, nil
}

// AssignLocation assigns the warehouse location the returned goods will be
// stored in. The location is set once; terminal and completed returns
// reject the operation.
func (r *Return) AssignLocation(locationID uuid.UUID) error {
	if !r.Status.CanTransitionTo(ReturnStatusLocationAssigned) {
		return shared.NewDomainError(shared.CodeInvalidStateTransition,
			fmt.Sprintf("Cannot assign location to return in %s status", r.Status))
	}
	if locationID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidReturn, "Location ID cannot be empty")
	}

	now := time.Now()
	r.AssignedLocationID = &locationID
	r.Status = ReturnStatusLocationAssigned
	r.LocationAssignedAt = &now
	r.UpdatedAt = now

	r.AddDomainEvent(NewReturnLocationAssignedEvent(r, locationID))

	return nil
}

// Complete marks the return physically processed and ready for
// reconciliation against the external system
func (r *Return) Complete() error {
	if !r.Status.CanTransitionTo(ReturnStatusCompleted) {
		return shared.NewDomainError(shared.CodeInvalidStateTransition,
			fmt.Sprintf("Cannot complete return in %s status", r.Status))
	}

	now := time.Now()
	r.Status = ReturnStatusCompleted
	r.CompletedAt = &now
	r.UpdatedAt = now

	r.AddDomainEvent(NewReturnCompletedEvent(r))

	return nil
}

// MarkReconciled records the external system's acknowledgement of this
// return. Only completed returns can be reconciled.
func (r *Return) MarkReconciled(externalOrderID string, creditAmount, writeOffAmount decimal.Decimal) error {
	if !r.Status.CanTransitionTo(ReturnStatusReconciled) {
		return shared.NewDomainError(shared.CodeInvalidStateTransition,
			fmt.Sprintf("Cannot reconcile return in %s status", r.Status))
	}
	if externalOrderID == "" {
		return shared.NewDomainError(shared.CodeInvalidReturn, "External order ID cannot be empty")
	}

	now := time.Now()
	r.Status = ReturnStatusReconciled
	r.ExternalOrderID = externalOrderID
	r.CreditAmount = creditAmount
	r.WriteOffAmount = writeOffAmount
	r.ReconciledAt = &now
	r.UpdatedAt = now

	r.AddDomainEvent(NewReturnReconciledEvent(r))

	return nil
}

// Cancel cancels the return. Allowed from any non-terminal status.
func (r *Return) Cancel(reason string) error {
	if !r.Status.CanTransitionTo(ReturnStatusCancelled) {
		return shared.NewDomainError(shared.CodeInvalidStateTransition,
			fmt.Sprintf("Cannot cancel return in %s status", r.Status))
	}
	if reason == "" {
		return shared.NewDomainError(shared.CodeInvalidReturn, "Cancel reason is required")
	}

	now := time.Now()
	wasCompleted := r.Status == ReturnStatusCompleted
	r.Status = ReturnStatusCancelled
	r.CancelledAt = &now
	r.CancelReason = reason
	r.UpdatedAt = now

	r.AddDomainEvent(NewReturnCancelledEvent(r, wasCompleted))

	return nil
}

// TotalReturnedQuantity returns the sum of returned quantities across lines
func (r *Return) TotalReturnedQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.ReturnedQuantity)
	}
	return total
}

// TotalAcceptedQuantity returns the sum of accepted quantities across lines
func (r *Return) TotalAcceptedQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.AcceptedQuantity)
	}
	return total
}

// LinesWithReturns counts lines that send at least one unit back
func (r *Return) LinesWithReturns() int {
	count := 0
	for _, item := range r.Items {
		if item.ReturnedQuantity.GreaterThan(decimal.Zero) {
			count++
		}
	}
	return count
}

// ConditionBreakdown sums returned quantities per product condition
func (r *Return) ConditionBreakdown() map[ProductCondition]decimal.Decimal {
	breakdown := make(map[ProductCondition]decimal.Decimal)
	for _, item := range r.Items {
		if item.ReturnedQuantity.IsZero() {
			continue
		}
		breakdown[item.Condition] = breakdown[item.Condition].Add(item.ReturnedQuantity)
	}
	return breakdown
}

// GetItem returns a line item by its ID
func (r *Return) GetItem(itemID uuid.UUID) *ReturnLineItem {
	for idx := range r.Items {
		if r.Items[idx].ID == itemID {
			return &r.Items[idx]
		}
	}
	return nil
}

// GetItemByProduct returns a line item by product ID
func (r *Return) GetItemByProduct(productID uuid.UUID) *ReturnLineItem {
	for idx := range r.Items {
		if r.Items[idx].ProductID == productID {
			return &r.Items[idx]
		}
	}
	return nil
}

// ItemCount returns the number of line items
func (r *Return) ItemCount() int {
	return len(r.Items)
}

// IsTerminal returns true if the return is reconciled or cancelled
func (r *Return) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// IsCompleted returns true if the return is completed
func (r *Return) IsCompleted() bool {
	return r.Status == ReturnStatusCompleted
}

// IsReconciled returns true if the return is reconciled
func (r *Return) IsReconciled() bool {
	return r.Status == ReturnStatusReconciled
}

// IsCancelled returns true if the return is cancelled
func (r *Return) IsCancelled() bool {
	return r.Status == ReturnStatusCancelled
}
