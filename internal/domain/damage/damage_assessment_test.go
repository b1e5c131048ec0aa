package damage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/returns/internal/domain/shared"
	"github.com/wms/returns/internal/domain/shared/valueobject"
)

func testDamagedProduct(t *testing.T, code string, qty, unitLoss int64, photos ...string) DamagedProduct {
	t.Helper()
	p, err := NewDamagedProduct(
		uuid.New(), code, "Test product "+code,
		decimal.NewFromInt(qty),
		valueobject.NewMoneyUSD(decimal.NewFromInt(unitLoss)),
		"crushed", photos, "",
	)
	require.NoError(t, err)
	return *p
}

func testAssessment(t *testing.T, severity DamageSeverity, claimRef string) *DamageAssessment {
	t.Helper()
	products := []DamagedProduct{
		testDamagedProduct(t, "PROD-A", 5, 12, "s3://evidence/a1.jpg"),
		testDamagedProduct(t, "PROD-B", 2, 30),
	}
	a, err := RecordDamageAssessment(uuid.New(), uuid.New(), "LOAD-12", nil,
		"crushed", "TRANSIT", severity, products, claimRef, "j.smith", "")
	require.NoError(t, err)
	return a
}

func TestRecordDamageAssessment(t *testing.T) {
	t.Run("creates a draft with computed total loss", func(t *testing.T) {
		a := testAssessment(t, SeverityModerate, "")

		assert.Equal(t, DamageStatusDraft, a.Status)
		// 5*12 + 2*30
		assert.True(t, a.EstimatedTotalLoss.Equal(decimal.NewFromInt(120)))
		assert.True(t, a.TotalDamagedQuantity().Equal(decimal.NewFromInt(7)))

		events := a.GetDomainEvents()
		require.Len(t, events, 1)
		recorded, ok := events[0].(*DamageRecordedEvent)
		require.True(t, ok)
		assert.Equal(t, a.OrderID, recorded.OrderID)
		assert.Equal(t, "LOAD-12", recorded.LoadNumber)
		assert.Equal(t, "TRANSIT", recorded.DamageSource)
		assert.Equal(t, SeverityModerate, recorded.Severity)
		assert.Len(t, recorded.Products, 2)
		assert.Equal(t, 1, recorded.Products[0].PhotoCount)
	})

	t.Run("requires at least one product", func(t *testing.T) {
		_, err := RecordDamageAssessment(uuid.New(), uuid.New(), "LOAD-1", nil,
			"crushed", "TRANSIT", SeverityMinor, nil, "", "j.smith", "")
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeInvalidDamageAssessment))
	})

	t.Run("requires order, load number, damage type and source", func(t *testing.T) {
		products := []DamagedProduct{testDamagedProduct(t, "PROD-A", 5, 12, "s3://evidence/a1.jpg")}

		_, err := RecordDamageAssessment(uuid.New(), uuid.Nil, "LOAD-1", nil,
			"crushed", "TRANSIT", SeverityMinor, products, "", "j.smith", "")
		assert.True(t, shared.IsDomainError(err, shared.CodeInvalidDamageAssessment))

		_, err = RecordDamageAssessment(uuid.New(), uuid.New(), "", nil,
			"crushed", "TRANSIT", SeverityMinor, products, "", "j.smith", "")
		assert.True(t, shared.IsDomainError(err, shared.CodeInvalidDamageAssessment))

		_, err = RecordDamageAssessment(uuid.New(), uuid.New(), "LOAD-1", nil,
			"", "TRANSIT", SeverityMinor, products, "", "j.smith", "")
		assert.True(t, shared.IsDomainError(err, shared.CodeInvalidDamageAssessment))

		_, err = RecordDamageAssessment(uuid.New(), uuid.New(), "LOAD-1", nil,
			"crushed", "", SeverityMinor, products, "", "j.smith", "")
		assert.True(t, shared.IsDomainError(err, shared.CodeInvalidDamageAssessment))
	})

	t.Run("requires photo evidence on at least one product", func(t *testing.T) {
		products := []DamagedProduct{testDamagedProduct(t, "PROD-A", 5, 12)}
		_, err := RecordDamageAssessment(uuid.New(), uuid.New(), "LOAD-1", nil,
			"crushed", "TRANSIT", SeverityMinor, products, "", "j.smith", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "photo evidence")
	})

	t.Run("severe requires an insurance claim reference", func(t *testing.T) {
		products := []DamagedProduct{testDamagedProduct(t, "PROD-A", 5, 12, "s3://evidence/a1.jpg")}
		_, err := RecordDamageAssessment(uuid.New(), uuid.New(), "LOAD-1", nil,
			"crushed", "TRANSIT", SeveritySevere, products, "", "j.smith", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insurance claim")

		a, err := RecordDamageAssessment(uuid.New(), uuid.New(), "LOAD-1", nil,
			"crushed", "TRANSIT", SeveritySevere, products, "CLAIM-778", "j.smith", "")
		require.NoError(t, err)
		assert.Equal(t, "CLAIM-778", a.InsuranceClaimRef)
	})

	t.Run("rejects unknown severity", func(t *testing.T) {
		products := []DamagedProduct{testDamagedProduct(t, "PROD-A", 5, 12, "s3://evidence/a1.jpg")}
		_, err := RecordDamageAssessment(uuid.New(), uuid.New(), "LOAD-1", nil,
			"crushed", "TRANSIT", DamageSeverity("TOTALED"), products, "", "j.smith", "")
		require.Error(t, err)
	})
}

func TestNewDamagedProduct(t *testing.T) {
	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewDamagedProduct(uuid.New(), "PROD-A", "Widget",
			decimal.Zero, valueobject.NewMoneyUSD(decimal.NewFromInt(5)), "crushed", nil, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PROD-A")
	})

	t.Run("requires a damage type", func(t *testing.T) {
		_, err := NewDamagedProduct(uuid.New(), "PROD-A", "Widget",
			decimal.NewFromInt(1), valueobject.NewMoneyUSD(decimal.NewFromInt(5)), "", nil, "")
		require.Error(t, err)
	})
}

func TestDamageAssessment_ReviewWorkflow(t *testing.T) {
	t.Run("walks draft to completed", func(t *testing.T) {
		a := testAssessment(t, SeverityMinor, "")

		require.NoError(t, a.SubmitForReview())
		assert.Equal(t, DamageStatusSubmitted, a.Status)

		require.NoError(t, a.StartReview("m.jones"))
		assert.Equal(t, DamageStatusUnderReview, a.Status)
		assert.Equal(t, "m.jones", a.ReviewedBy)

		require.NoError(t, a.Complete("loss confirmed"))
		assert.Equal(t, DamageStatusCompleted, a.Status)
		assert.True(t, a.IsTerminal())

		events := a.GetDomainEvents()
		require.Len(t, events, 3)
		assert.Equal(t, EventTypeDamageAssessmentCompleted, events[2].EventType())
	})

	t.Run("cannot skip review steps", func(t *testing.T) {
		a := testAssessment(t, SeverityMinor, "")

		err := a.StartReview("m.jones")
		assert.True(t, shared.IsDomainError(err, shared.CodeInvalidStateTransition))

		err = a.Complete("")
		assert.True(t, shared.IsDomainError(err, shared.CodeInvalidStateTransition))
	})

	t.Run("adding products is draft-only", func(t *testing.T) {
		a := testAssessment(t, SeverityMinor, "")
		before := a.EstimatedTotalLoss

		require.NoError(t, a.AddProduct(testDamagedProduct(t, "PROD-C", 1, 8)))
		assert.True(t, a.EstimatedTotalLoss.Equal(before.Add(decimal.NewFromInt(8))))

		require.NoError(t, a.SubmitForReview())
		err := a.AddProduct(testDamagedProduct(t, "PROD-D", 1, 8))
		assert.True(t, shared.IsDomainError(err, shared.CodeInvalidStateTransition))
	})

	t.Run("cancel allowed until terminal", func(t *testing.T) {
		a := testAssessment(t, SeverityMinor, "")
		require.NoError(t, a.SubmitForReview())
		require.NoError(t, a.Cancel("duplicate entry"))
		assert.Equal(t, DamageStatusCancelled, a.Status)

		err := a.Cancel("again")
		assert.True(t, shared.IsDomainError(err, shared.CodeInvalidStateTransition))
	})
}
