package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(t *testing.T) *ReconciliationRecord {
	t.Helper()
	r, err := NewReconciliationRecord(uuid.New(), uuid.New(), "RET-20260829-0001")
	require.NoError(t, err)
	return r
}

func TestReconciliationRecord_Steps(t *testing.T) {
	t.Run("steps complete in order", func(t *testing.T) {
		r := testRecord(t)
		assert.Equal(t, StepCreateOrder, r.NextStep())

		r.MarkOrderCreated()
		assert.Equal(t, StepAdjustInventory, r.NextStep())

		r.MarkInventoryAdjusted()
		assert.Equal(t, StepPostFinancials, r.NextStep())

		r.MarkFinancialsPosted(decimal.NewFromInt(50), decimal.NewFromInt(10))
		assert.Equal(t, StepDone, r.NextStep())
		assert.True(t, r.CreditAmount.Equal(decimal.NewFromInt(50)))
		assert.True(t, r.WriteOffAmount.Equal(decimal.NewFromInt(10)))
	})

	t.Run("cannot mark synced with steps outstanding", func(t *testing.T) {
		r := testRecord(t)
		r.MarkOrderCreated()

		err := r.MarkSynced(time.Now())
		require.Error(t, err)
		assert.Contains(t, err.Error(), string(StepAdjustInventory))
	})

	t.Run("marks synced after all steps", func(t *testing.T) {
		r := testRecord(t)
		r.MarkRetrying("erp timeout")
		r.MarkOrderCreated()
		r.MarkInventoryAdjusted()
		r.MarkFinancialsPosted(decimal.Zero, decimal.Zero)

		now := time.Now()
		require.NoError(t, r.MarkSynced(now))
		assert.Equal(t, SyncStatusSynced, r.Status)
		assert.Empty(t, r.LastError)
		require.NotNil(t, r.SyncedAt)
	})
}

func TestReconciliationRecord_SetExternalOrderID(t *testing.T) {
	r := testRecord(t)

	require.NoError(t, r.SetExternalOrderID("EXT-1001"))
	// idempotent for the same value
	require.NoError(t, r.SetExternalOrderID("EXT-1001"))

	err := r.SetExternalOrderID("EXT-2002")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXT-1001")
	assert.Equal(t, "EXT-1001", r.ExternalOrderID)
}

func TestReconciliationRecord_Attempts(t *testing.T) {
	r := testRecord(t)

	now := time.Now()
	r.BeginAttempt(now)
	r.BeginAttempt(now.Add(2 * time.Second))
	assert.Equal(t, 2, r.AttemptCount)
	require.NotNil(t, r.LastAttemptAt)

	attempt := NewSyncAttempt(r, StepCreateOrder, false, "erp timeout", now, now.Add(time.Second))
	assert.Equal(t, 2, attempt.AttemptNo)
	assert.Equal(t, r.ReturnID, attempt.ReturnID)
	assert.False(t, attempt.Succeeded)
}

func TestSyncSummary_ComputeSuccessRate(t *testing.T) {
	s := &SyncSummary{Synced: 9, Failed: 1, Pending: 5}
	s.ComputeSuccessRate()
	assert.InDelta(t, 0.9, s.SuccessRate, 1e-9)

	empty := &SyncSummary{Pending: 3}
	empty.ComputeSuccessRate()
	assert.Zero(t, empty.SuccessRate)
}

type fakeNetError struct{ timeout bool }

func (e *fakeNetError) Error() string   { return "dial tcp: i/o timeout" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return e.timeout }

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"transient gateway error", NewTransientGatewayError("CreateReturnOrder", 503, errors.New("unavailable")), true},
		{"permanent gateway error", NewPermanentGatewayError("IssueCredit", 422, errors.New("unknown customer")), false},
		{"wrapped gateway error", fmt.Errorf("sync: %w", NewTransientGatewayError("AdjustInventory", 500, errors.New("boom"))), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"net timeout", &fakeNetError{timeout: true}, true},
		{"plain error", errors.New("malformed payload"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.transient, IsTransient(tc.err))
		})
	}
}

func TestTransientStatusCode(t *testing.T) {
	assert.True(t, TransientStatusCode(500))
	assert.True(t, TransientStatusCode(503))
	assert.True(t, TransientStatusCode(408))
	assert.True(t, TransientStatusCode(429))
	assert.False(t, TransientStatusCode(400))
	assert.False(t, TransientStatusCode(404))
	assert.False(t, TransientStatusCode(422))
}
