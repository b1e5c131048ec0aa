package erp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wms/returns/internal/domain/returns"
	"github.com/wms/returns/internal/infrastructure/config"
)

// WarehouseQueryClient answers the synchronous precondition queries the
// return lifecycle depends on: whether picking has completed for an order
// and whether a location has capacity left.
type WarehouseQueryClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewWarehouseQueryClient creates a query client from the ERP configuration
func NewWarehouseQueryClient(cfg config.ERPConfig) (*WarehouseQueryClient, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("erp: invalid base URL %q", cfg.BaseURL)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WarehouseQueryClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type pickingStatusResponse struct {
	Completed bool `json:"completed"`
}

type locationCapacityResponse struct {
	Available bool `json:"available"`
}

// PickingCompleted reports whether picking for the order has finished
func (c *WarehouseQueryClient) PickingCompleted(ctx context.Context, tenantID, orderID uuid.UUID) (bool, error) {
	path := fmt.Sprintf("/api/v1/orders/%s/picking-status", orderID)

	var resp pickingStatusResponse
	if err := c.doGet(ctx, path, tenantID, &resp); err != nil {
		return false, err
	}
	return resp.Completed, nil
}

// HasCapacity reports whether the location can take more stock
func (c *WarehouseQueryClient) HasCapacity(ctx context.Context, tenantID, locationID uuid.UUID) (bool, error) {
	path := fmt.Sprintf("/api/v1/locations/%s/capacity", locationID)

	var resp locationCapacityResponse
	if err := c.doGet(ctx, path, tenantID, &resp); err != nil {
		return false, err
	}
	return resp.Available, nil
}

// doGet performs a JSON GET and decodes the response into out
func (c *WarehouseQueryClient) doGet(ctx context.Context, path string, tenantID uuid.UUID, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("erp: failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID.String())
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("erp: query failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("erp: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return errors.New("erp: query failed with status " + resp.Status)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("erp: invalid response body: %w", err)
	}
	return nil
}

var (
	_ returns.PickingGate             = (*WarehouseQueryClient)(nil)
	_ returns.LocationCapacityChecker = (*WarehouseQueryClient)(nil)
)
