package reconciliation

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnOrderLine is one line of the external return order
type ReturnOrderLine struct {
	ProductCode    string          `json:"product_code"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Condition      string          `json:"condition"`
	ReturnReason   string          `json:"return_reason,omitempty"`
	InventoryState string          `json:"inventory_state"`
}

// CreateReturnOrderRequest mirrors the external system's return order
type CreateReturnOrderRequest struct {
	TenantID     uuid.UUID         `json:"tenant_id"`
	ReturnID     uuid.UUID         `json:"return_id"`
	ReturnNumber string            `json:"return_number"`
	OrderID      uuid.UUID         `json:"order_id"`
	CustomerID   uuid.UUID         `json:"customer_id"`
	Lines        []ReturnOrderLine `json:"lines"`
}

// InventoryAdjustment moves returned stock into its target state at the
// assigned location
type InventoryAdjustment struct {
	ProductCode string          `json:"product_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	TargetState string          `json:"target_state"`
}

// AdjustInventoryRequest carries all adjustments for one return
type AdjustInventoryRequest struct {
	TenantID        uuid.UUID             `json:"tenant_id"`
	ExternalOrderID string                `json:"external_order_id"`
	LocationID      *uuid.UUID            `json:"location_id,omitempty"`
	Adjustments     []InventoryAdjustment `json:"adjustments"`
}

// IssueCreditRequest posts a customer credit for goods returned in
// sellable condition
type IssueCreditRequest struct {
	TenantID        uuid.UUID       `json:"tenant_id"`
	ExternalOrderID string          `json:"external_order_id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

// RecordWriteOffRequest posts a loss for goods that cannot be resold
type RecordWriteOffRequest struct {
	TenantID        uuid.UUID       `json:"tenant_id"`
	ExternalOrderID string          `json:"external_order_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Reason          string          `json:"reason,omitempty"`
}

// ERPGateway is the outbound port to the external system. Implementations
// must surface transport failures as classifiable errors so the caller
// can distinguish retryable from permanent ones.
type ERPGateway interface {
	CreateReturnOrder(ctx context.Context, req CreateReturnOrderRequest) (externalOrderID string, err error)
	AdjustInventory(ctx context.Context, req AdjustInventoryRequest) error
	IssueCredit(ctx context.Context, req IssueCreditRequest) error
	RecordWriteOff(ctx context.Context, req RecordWriteOffRequest) error
}
