package returns

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/returns/internal/domain/returns"
)

// ReturnLineItemRequest is one product line in a return request
type ReturnLineItemRequest struct {
	ProductID        uuid.UUID       `json:"product_id"`
	ProductCode      string          `json:"product_code"`
	Description      string          `json:"description"`
	OrderedQuantity  decimal.Decimal `json:"ordered_quantity"`
	PickedQuantity   decimal.Decimal `json:"picked_quantity"`
	AcceptedQuantity decimal.Decimal `json:"accepted_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Currency         string          `json:"currency"`
	ReturnReason     string          `json:"return_reason"`
	Condition        string          `json:"condition"`
	Notes            string          `json:"notes"`
}

// InitiatePartialReturnRequest starts a partial return for an order
type InitiatePartialReturnRequest struct {
	OrderID           uuid.UUID               `json:"order_id"`
	LoadNumber        string                  `json:"load_number"`
	CustomerID        uuid.UUID               `json:"customer_id"`
	Items             []ReturnLineItemRequest `json:"items"`
	CustomerSignature string                  `json:"customer_signature"`
}

// ProcessFullReturnRequest starts a full return for an order
type ProcessFullReturnRequest struct {
	OrderID       uuid.UUID               `json:"order_id"`
	LoadNumber    string                  `json:"load_number"`
	CustomerID    uuid.UUID               `json:"customer_id"`
	Items         []ReturnLineItemRequest `json:"items"`
	PrimaryReason string                  `json:"primary_reason"`
	Notes         string                  `json:"notes"`
}

// AssignLocationRequest assigns a storage location to a return
type AssignLocationRequest struct {
	LocationID uuid.UUID `json:"location_id"`
}

// CancelReturnRequest cancels a return
type CancelReturnRequest struct {
	Reason string `json:"reason"`
}

// ReturnListFilter carries list query parameters
type ReturnListFilter struct {
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	OrderBy  string                `json:"order_by"`
	OrderDir string                `json:"order_dir"`
	Search   string                `json:"search"`
	Status   *returns.ReturnStatus `json:"status"`
	OrderID  *uuid.UUID            `json:"order_id"`
}

// ReturnLineItemResponse is the API view of one return line
type ReturnLineItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductCode      string          `json:"product_code"`
	Description      string          `json:"description"`
	OrderedQuantity  decimal.Decimal `json:"ordered_quantity"`
	PickedQuantity   decimal.Decimal `json:"picked_quantity"`
	AcceptedQuantity decimal.Decimal `json:"accepted_quantity"`
	ReturnedQuantity decimal.Decimal `json:"returned_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	LineValue        decimal.Decimal `json:"line_value"`
	ReturnReason     string          `json:"return_reason,omitempty"`
	Condition        string          `json:"condition,omitempty"`
	Notes            string          `json:"notes,omitempty"`
}

// ReturnResponse is the API view of a return
type ReturnResponse struct {
	ID                 uuid.UUID                `json:"id"`
	TenantID           uuid.UUID                `json:"tenant_id"`
	ReturnNumber       string                   `json:"return_number"`
	OrderID            uuid.UUID                `json:"order_id"`
	LoadNumber         string                   `json:"load_number,omitempty"`
	CustomerID         uuid.UUID                `json:"customer_id"`
	Type               string                   `json:"type"`
	Status             string                   `json:"status"`
	Items              []ReturnLineItemResponse `json:"items"`
	ItemCount          int                      `json:"item_count"`
	TotalReturnedQty   decimal.Decimal          `json:"total_returned_quantity"`
	TotalAcceptedQty   decimal.Decimal          `json:"total_accepted_quantity"`
	PrimaryReason      string                   `json:"primary_reason,omitempty"`
	Notes              string                   `json:"notes,omitempty"`
	AssignedLocationID *uuid.UUID               `json:"assigned_location_id,omitempty"`
	ExternalOrderID    string                   `json:"external_order_id,omitempty"`
	CreditAmount       decimal.Decimal          `json:"credit_amount"`
	WriteOffAmount     decimal.Decimal          `json:"write_off_amount"`
	LocationAssignedAt *time.Time               `json:"location_assigned_at,omitempty"`
	CompletedAt        *time.Time               `json:"completed_at,omitempty"`
	ReconciledAt       *time.Time               `json:"reconciled_at,omitempty"`
	CancelledAt        *time.Time               `json:"cancelled_at,omitempty"`
	CancelReason       string                   `json:"cancel_reason,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
	Version            int                      `json:"version"`
}

// ReturnListItemResponse is the compact list view of a return
type ReturnListItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	ReturnNumber     string          `json:"return_number"`
	OrderID          uuid.UUID       `json:"order_id"`
	CustomerID       uuid.UUID       `json:"customer_id"`
	Type             string          `json:"type"`
	Status           string          `json:"status"`
	ItemCount        int             `json:"item_count"`
	TotalReturnedQty decimal.Decimal `json:"total_returned_quantity"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ToReturnLineItemResponse converts a domain line item to its API view
func ToReturnLineItemResponse(item *returns.ReturnLineItem) ReturnLineItemResponse {
	return ReturnLineItemResponse{
		ID:               item.ID,
		ProductID:        item.ProductID,
		ProductCode:      item.ProductCode,
		Description:      item.Description,
		OrderedQuantity:  item.OrderedQuantity,
		PickedQuantity:   item.PickedQuantity,
		AcceptedQuantity: item.AcceptedQuantity,
		ReturnedQuantity: item.ReturnedQuantity,
		UnitPrice:        item.UnitPrice,
		LineValue:        item.LineValue(),
		ReturnReason:     item.ReturnReason,
		Condition:        string(item.Condition),
		Notes:            item.Notes,
	}
}

// ToReturnResponse converts a domain return to its API view
func ToReturnResponse(r *returns.Return) ReturnResponse {
	items := make([]ReturnLineItemResponse, len(r.Items))
	for i := range r.Items {
		items[i] = ToReturnLineItemResponse(&r.Items[i])
	}

	return ReturnResponse{
		ID:                 r.ID,
		TenantID:           r.TenantID,
		ReturnNumber:       r.ReturnNumber,
		OrderID:            r.OrderID,
		LoadNumber:         r.LoadNumber,
		CustomerID:         r.CustomerID,
		Type:               string(r.Type),
		Status:             string(r.Status),
		Items:              items,
		ItemCount:          r.ItemCount(),
		TotalReturnedQty:   r.TotalReturnedQuantity(),
		TotalAcceptedQty:   r.TotalAcceptedQuantity(),
		PrimaryReason:      r.PrimaryReason,
		Notes:              r.Notes,
		AssignedLocationID: r.AssignedLocationID,
		ExternalOrderID:    r.ExternalOrderID,
		CreditAmount:       r.CreditAmount,
		WriteOffAmount:     r.WriteOffAmount,
		LocationAssignedAt: r.LocationAssignedAt,
		CompletedAt:        r.CompletedAt,
		ReconciledAt:       r.ReconciledAt,
		CancelledAt:        r.CancelledAt,
		CancelReason:       r.CancelReason,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		Version:            r.Version,
	}
}

// ToReturnListItemResponses converts domain returns to compact list views
func ToReturnListItemResponses(items []*returns.Return) []ReturnListItemResponse {
	out := make([]ReturnListItemResponse, len(items))
	for i, r := range items {
		out[i] = ReturnListItemResponse{
			ID:               r.ID,
			ReturnNumber:     r.ReturnNumber,
			OrderID:          r.OrderID,
			CustomerID:       r.CustomerID,
			Type:             string(r.Type),
			Status:           string(r.Status),
			ItemCount:        r.ItemCount(),
			TotalReturnedQty: r.TotalReturnedQuantity(),
			CreatedAt:        r.CreatedAt,
		}
	}
	return out
}
