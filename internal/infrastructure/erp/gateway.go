package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wms/returns/internal/domain/reconciliation"
	"github.com/wms/returns/internal/infrastructure/config"
)

// maxResponseSize is the maximum allowed response size from the ERP API (1MB)
const maxResponseSize = 1 * 1024 * 1024

const (
	returnOrdersPath         = "/api/v1/return-orders"
	inventoryAdjustmentsPath = "/api/v1/inventory-adjustments"
	creditsPath              = "/api/v1/credits"
	writeOffsPath            = "/api/v1/write-offs"
)

// HTTPGateway implements the ERPGateway interface over the external
// system's JSON API. Failures are classified so the synchronizer can
// retry transient ones and park the rest.
type HTTPGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPGateway creates a gateway from the ERP configuration
func NewHTTPGateway(cfg config.ERPConfig) (*HTTPGateway, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("erp: invalid base URL %q", cfg.BaseURL)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// createOrderResponse is the ERP's reply to a return order creation
type createOrderResponse struct {
	OrderID string `json:"order_id"`
}

// errorResponse is the ERP's error envelope
type errorResponse struct {
	Message string `json:"message"`
}

// CreateReturnOrder creates the return order in the external system and
// returns its order ID
func (g *HTTPGateway) CreateReturnOrder(ctx context.Context, req reconciliation.CreateReturnOrderRequest) (string, error) {
	const op = "create return order"

	body, err := g.doPost(ctx, op, returnOrdersPath, req)
	if err != nil {
		return "", err
	}

	var resp createOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", reconciliation.NewPermanentGatewayError(op, 0,
			fmt.Errorf("invalid response body: %w", err))
	}
	if resp.OrderID == "" {
		return "", reconciliation.NewPermanentGatewayError(op, 0,
			errors.New("response is missing the order ID"))
	}

	return resp.OrderID, nil
}

// AdjustInventory moves the returned stock into its target states
func (g *HTTPGateway) AdjustInventory(ctx context.Context, req reconciliation.AdjustInventoryRequest) error {
	_, err := g.doPost(ctx, "adjust inventory", inventoryAdjustmentsPath, req)
	return err
}

// IssueCredit posts the customer credit
func (g *HTTPGateway) IssueCredit(ctx context.Context, req reconciliation.IssueCreditRequest) error {
	_, err := g.doPost(ctx, "issue credit", creditsPath, req)
	return err
}

// RecordWriteOff posts the write-off loss
func (g *HTTPGateway) RecordWriteOff(ctx context.Context, req reconciliation.RecordWriteOffRequest) error {
	_, err := g.doPost(ctx, "record write-off", writeOffsPath, req)
	return err
}

// doPost performs a JSON POST against the ERP API and classifies
// transport and status failures
func (g *HTTPGateway) doPost(ctx context.Context, operation, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, reconciliation.NewPermanentGatewayError(operation, 0,
			fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, reconciliation.NewPermanentGatewayError(operation, 0,
			fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("X-API-Key", g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, reconciliation.NewTransientGatewayError(operation, resp.StatusCode,
			fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		cause := errors.New(erpErrorMessage(body))
		if reconciliation.TransientStatusCode(resp.StatusCode) {
			return nil, reconciliation.NewTransientGatewayError(operation, resp.StatusCode, cause)
		}
		return nil, reconciliation.NewPermanentGatewayError(operation, resp.StatusCode, cause)
	}

	return body, nil
}

// classifyTransportError maps client-side failures. Timeouts and
// connection errors are transient; a cancelled context is not a gateway
// fault and passes through unwrapped.
func classifyTransportError(operation string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return reconciliation.NewTransientGatewayError(operation, 0, err)
}

// erpErrorMessage extracts the error envelope's message, falling back to
// the raw body
func erpErrorMessage(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Message != "" {
		return resp.Message
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "no error detail provided"
	}
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return trimmed
}

var _ reconciliation.ERPGateway = (*HTTPGateway)(nil)
