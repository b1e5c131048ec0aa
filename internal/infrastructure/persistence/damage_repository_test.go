package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wms/returns/internal/domain/damage"
	"github.com/wms/returns/internal/domain/shared"
	"github.com/wms/returns/internal/domain/shared/valueobject"
	"github.com/wms/returns/internal/infrastructure/event"
)

func setupDamageTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&damage.DamageAssessment{}, &damage.DamagedProduct{})
	require.NoError(t, err)

	return db
}

func mustDamagedProduct(t *testing.T, code string, qty int64, photos []string) damage.DamagedProduct {
	t.Helper()
	p, err := damage.NewDamagedProduct(
		uuid.New(), code, "Test product "+code,
		decimal.NewFromInt(qty),
		valueobject.NewMoneyUSD(decimal.NewFromFloat(8.25)),
		"CRUSHED", photos, "",
	)
	require.NoError(t, err)
	return *p
}

func newTestAssessment(t *testing.T, tenantID uuid.UUID, severity damage.DamageSeverity) *damage.DamageAssessment {
	t.Helper()
	products := []damage.DamagedProduct{
		mustDamagedProduct(t, "PROD-A", 3, []string{"s3://evidence/a1.jpg", "s3://evidence/a2.jpg"}),
		mustDamagedProduct(t, "PROD-B", 1, nil),
	}
	claimRef := ""
	if severity == damage.SeveritySevere {
		claimRef = "CLM-2026-0001"
	}
	a, err := damage.RecordDamageAssessment(
		tenantID, uuid.New(), "LOAD-20260115-01", nil,
		"CRUSHED", "TRANSIT", severity, products, claimRef, "inspector.1", "",
	)
	require.NoError(t, err)
	a.ClearDomainEvents()
	return a
}

func TestGormDamageAssessmentRepository_SaveAndFind(t *testing.T) {
	db := setupDamageTestDB(t)
	repo := NewGormDamageAssessmentRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	a := newTestAssessment(t, tenantID, damage.SeverityModerate)
	require.NoError(t, repo.Save(ctx, a))

	t.Run("find by ID loads products", func(t *testing.T) {
		found, err := repo.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, damage.DamageStatusDraft, found.Status)
		assert.Equal(t, damage.SeverityModerate, found.Severity)
		require.Len(t, found.Products, 2)
		assert.Equal(t, []string{"s3://evidence/a1.jpg", "s3://evidence/a2.jpg"}, found.Products[0].PhotoEvidence)
		assert.True(t, found.EstimatedTotalLoss.Equal(decimal.NewFromFloat(33.00)))
	})

	t.Run("find by ID not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("find for tenant rejects other tenants", func(t *testing.T) {
		_, err := repo.FindByIDForTenant(ctx, uuid.New(), a.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("find by order", func(t *testing.T) {
		found, err := repo.FindByOrder(ctx, tenantID, a.OrderID)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, a.ID, found[0].ID)

		none, err := repo.FindByOrder(ctx, tenantID, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestGormDamageAssessmentRepository_SavePersistsReviewFlow(t *testing.T) {
	db := setupDamageTestDB(t)
	repo := NewGormDamageAssessmentRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	a := newTestAssessment(t, tenantID, damage.SeveritySevere)
	require.NoError(t, repo.Save(ctx, a))

	require.NoError(t, a.SubmitForReview())
	require.NoError(t, a.StartReview("supervisor.7"))
	require.NoError(t, a.Complete("Write off confirmed against claim"))
	a.ClearDomainEvents()
	require.NoError(t, repo.Save(ctx, a))

	found, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, damage.DamageStatusCompleted, found.Status)
	assert.Equal(t, "supervisor.7", found.ReviewedBy)
	assert.Equal(t, "CLM-2026-0001", found.InsuranceClaimRef)
	assert.NotNil(t, found.SubmittedAt)
	assert.NotNil(t, found.ReviewStartedAt)
	assert.NotNil(t, found.CompletedAt)
}

func TestGormDamageAssessmentRepository_SaveWithLock(t *testing.T) {
	db := setupDamageTestDB(t)
	repo := NewGormDamageAssessmentRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	a := newTestAssessment(t, tenantID, damage.SeverityMinor)
	require.NoError(t, repo.Save(ctx, a))

	first, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)

	require.NoError(t, first.SubmitForReview())
	require.NoError(t, repo.SaveWithLock(ctx, first))

	found, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, damage.DamageStatusSubmitted, found.Status)

	require.NoError(t, second.SubmitForReview())
	err = repo.SaveWithLock(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)
}

func TestGormDamageAssessmentRepository_FindByStatus(t *testing.T) {
	db := setupDamageTestDB(t)
	repo := NewGormDamageAssessmentRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	for i := 0; i < 4; i++ {
		a := newTestAssessment(t, tenantID, damage.SeverityMinor)
		require.NoError(t, repo.Save(ctx, a))
	}
	submitted := newTestAssessment(t, tenantID, damage.SeverityModerate)
	require.NoError(t, submitted.SubmitForReview())
	submitted.ClearDomainEvents()
	require.NoError(t, repo.Save(ctx, submitted))

	filter := shared.DefaultFilter()
	filter.PageSize = 3

	page, err := repo.FindByStatus(ctx, tenantID, damage.DamageStatusDraft, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Len(t, page.Items, 3)
	for _, item := range page.Items {
		assert.NotEmpty(t, item.Products)
	}

	page, err = repo.FindByStatus(ctx, tenantID, damage.DamageStatusSubmitted, filter)
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, submitted.ID, page.Items[0].ID)
}

func TestGormDamageAssessmentRepository_FindAllForTenant(t *testing.T) {
	db := setupDamageTestDB(t)
	repo := NewGormDamageAssessmentRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	minor := newTestAssessment(t, tenantID, damage.SeverityMinor)
	severe := newTestAssessment(t, tenantID, damage.SeveritySevere)
	require.NoError(t, repo.Save(ctx, minor))
	require.NoError(t, repo.Save(ctx, severe))

	other := newTestAssessment(t, uuid.New(), damage.SeverityMinor)
	require.NoError(t, repo.Save(ctx, other))

	t.Run("tenant isolation", func(t *testing.T) {
		page, err := repo.FindAllForTenant(ctx, tenantID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("severity filter", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["severity"] = string(damage.SeveritySevere)
		page, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		require.Equal(t, int64(1), page.Total)
		assert.Equal(t, severe.ID, page.Items[0].ID)
	})

	t.Run("order filter", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["order_id"] = minor.OrderID.String()
		page, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		require.Equal(t, int64(1), page.Total)
		assert.Equal(t, minor.ID, page.Items[0].ID)
	})
}

func TestGormDamageAssessmentRepository_SaveAndEvents(t *testing.T) {
	db := setupDamageTestDB(t)
	require.NoError(t, db.AutoMigrate(&shared.OutboxEntry{}))

	repo := NewGormDamageAssessmentRepository(db)
	repo.SetOutboxEventSaver(event.NewOutboxPublisher(event.NewDomainEventSerializer()))
	ctx := context.Background()
	tenantID := uuid.New()

	products := []damage.DamagedProduct{
		mustDamagedProduct(t, "PROD-A", 2, []string{"s3://evidence/a1.jpg"}),
	}
	a, err := damage.RecordDamageAssessment(
		tenantID, uuid.New(), "LOAD-20260115-02", nil,
		"CRUSHED", "TRANSIT", damage.SeverityMinor, products, "", "inspector.1", "",
	)
	require.NoError(t, err)

	events := a.GetDomainEvents()
	a.ClearDomainEvents()
	require.NoError(t, repo.SaveAndEvents(ctx, a, events))

	found, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, damage.DamageStatusDraft, found.Status)

	// the aggregate and its event land in the same transaction
	var entries []shared.OutboxEntry
	require.NoError(t, db.Where("tenant_id = ?", tenantID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, damage.EventTypeDamageRecorded, entries[0].EventType)
}
