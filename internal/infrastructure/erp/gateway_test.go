package erp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/returns/internal/domain/reconciliation"
	"github.com/wms/returns/internal/infrastructure/config"
)

func newTestGateway(t *testing.T, server *httptest.Server) *HTTPGateway {
	t.Helper()
	gateway, err := NewHTTPGateway(config.ERPConfig{
		BaseURL:        server.URL,
		APIKey:         "test-key",
		RequestTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	return gateway
}

func orderRequest() reconciliation.CreateReturnOrderRequest {
	return reconciliation.CreateReturnOrderRequest{
		TenantID:     uuid.New(),
		ReturnID:     uuid.New(),
		ReturnNumber: "RET-20260115-0001",
		OrderID:      uuid.New(),
		CustomerID:   uuid.New(),
		Lines: []reconciliation.ReturnOrderLine{
			{
				ProductCode:    "PROD-A",
				Quantity:       decimal.NewFromInt(4),
				UnitPrice:      decimal.NewFromFloat(12.50),
				Condition:      "DAMAGED",
				ReturnReason:   "Damaged in transit",
				InventoryState: "DAMAGED_HOLD",
			},
		},
	}
}

func TestNewHTTPGateway_RejectsInvalidBaseURL(t *testing.T) {
	_, err := NewHTTPGateway(config.ERPConfig{BaseURL: "not a url"})
	assert.Error(t, err)

	_, err = NewHTTPGateway(config.ERPConfig{BaseURL: "/relative/path"})
	assert.Error(t, err)
}

func TestHTTPGateway_CreateReturnOrder(t *testing.T) {
	var captured reconciliation.CreateReturnOrderRequest
	var capturedKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/return-orders", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		capturedKey = r.Header.Get("X-API-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order_id": "ERP-ORD-77001"}`))
	}))
	defer server.Close()

	gateway := newTestGateway(t, server)
	req := orderRequest()

	orderID, err := gateway.CreateReturnOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ERP-ORD-77001", orderID)
	assert.Equal(t, "test-key", capturedKey)
	assert.Equal(t, req.ReturnNumber, captured.ReturnNumber)
	require.Len(t, captured.Lines, 1)
	assert.Equal(t, "PROD-A", captured.Lines[0].ProductCode)
	assert.True(t, captured.Lines[0].Quantity.Equal(decimal.NewFromInt(4)))
}

func TestHTTPGateway_CreateReturnOrder_MissingOrderID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	gateway := newTestGateway(t, server)

	_, err := gateway.CreateReturnOrder(context.Background(), orderRequest())
	require.Error(t, err)
	assert.False(t, reconciliation.IsTransient(err))
}

func TestHTTPGateway_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"server error is transient", http.StatusInternalServerError, `{"message": "database unavailable"}`, true},
		{"bad gateway is transient", http.StatusBadGateway, "", true},
		{"throttling is transient", http.StatusTooManyRequests, `{"message": "rate limited"}`, true},
		{"validation failure is permanent", http.StatusUnprocessableEntity, `{"message": "unknown product code"}`, false},
		{"bad request is permanent", http.StatusBadRequest, `{"message": "malformed order"}`, false},
		{"unauthorized is permanent", http.StatusUnauthorized, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			gateway := newTestGateway(t, server)

			err := gateway.AdjustInventory(context.Background(), reconciliation.AdjustInventoryRequest{
				TenantID:        uuid.New(),
				ExternalOrderID: "ERP-ORD-77001",
			})
			require.Error(t, err)
			assert.Equal(t, tt.transient, reconciliation.IsTransient(err))

			var gwErr *reconciliation.GatewayError
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, tt.status, gwErr.StatusCode)
		})
	}
}

func TestHTTPGateway_ErrorMessageExtraction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "unknown product code PROD-X"}`))
	}))
	defer server.Close()

	gateway := newTestGateway(t, server)

	err := gateway.IssueCredit(context.Background(), reconciliation.IssueCreditRequest{
		TenantID:        uuid.New(),
		ExternalOrderID: "ERP-ORD-77001",
		CustomerID:      uuid.New(),
		Amount:          decimal.NewFromInt(50),
		Currency:        "USD",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown product code PROD-X")
}

func TestHTTPGateway_ConnectionRefusedIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	gateway := newTestGateway(t, server)

	err := gateway.RecordWriteOff(context.Background(), reconciliation.RecordWriteOffRequest{
		TenantID:        uuid.New(),
		ExternalOrderID: "ERP-ORD-77001",
		Amount:          decimal.NewFromInt(30),
		Currency:        "USD",
	})
	require.Error(t, err)
	assert.True(t, reconciliation.IsTransient(err))
}

func TestHTTPGateway_ContextCancelPassesThrough(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The server only notices a client disconnect (and cancels the
		// request context) once the body has been consumed.
		io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	gateway := newTestGateway(t, server)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	err := gateway.AdjustInventory(ctx, reconciliation.AdjustInventoryRequest{
		TenantID:        uuid.New(),
		ExternalOrderID: "ERP-ORD-77001",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	var gwErr *reconciliation.GatewayError
	assert.False(t, errors.As(err, &gwErr))
}
