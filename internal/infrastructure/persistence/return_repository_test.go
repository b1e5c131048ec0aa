package persistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wms/returns/internal/domain/returns"
	"github.com/wms/returns/internal/domain/shared"
	"github.com/wms/returns/internal/domain/shared/valueobject"
	"github.com/wms/returns/internal/infrastructure/event"
)

func setupReturnTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&returns.Return{}, &returns.ReturnLineItem{})
	require.NoError(t, err)

	return db
}

func mustLineItem(t *testing.T, code string, ordered, picked, accepted int64, condition returns.ProductCondition) returns.ReturnLineItem {
	t.Helper()
	reason := ""
	if picked != accepted {
		reason = "Damaged in transit"
	}
	item, err := returns.NewReturnLineItem(
		uuid.New(), code, "Test product "+code,
		decimal.NewFromInt(ordered), decimal.NewFromInt(picked), decimal.NewFromInt(accepted),
		valueobject.NewMoneyUSD(decimal.NewFromFloat(12.50)),
		reason, condition, "",
	)
	require.NoError(t, err)
	return *item
}

func newTestReturn(t *testing.T, tenantID uuid.UUID, number string) *returns.Return {
	t.Helper()
	items := []returns.ReturnLineItem{
		mustLineItem(t, "PROD-A", 10, 10, 6, returns.ConditionDamaged),
		mustLineItem(t, "PROD-B", 5, 5, 5, ""),
	}
	r, err := returns.InitiatePartialReturn(
		tenantID, number, uuid.New(), "LOAD-001", uuid.New(), items, "J. Driver",
	)
	require.NoError(t, err)
	r.ClearDomainEvents()
	return r
}

func TestGormReturnRepository_SaveAndFind(t *testing.T) {
	db := setupReturnTestDB(t)
	repo := NewGormReturnRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	r := newTestReturn(t, tenantID, "RET-20260115-0001")
	require.NoError(t, repo.Save(ctx, r))

	t.Run("find by ID loads items", func(t *testing.T) {
		found, err := repo.FindByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.ReturnNumber, found.ReturnNumber)
		assert.Equal(t, returns.ReturnStatusInitiated, found.Status)
		assert.Equal(t, returns.ReturnTypePartial, found.Type)
		require.Len(t, found.Items, 2)
		assert.True(t, found.TotalReturnedQuantity().Equal(decimal.NewFromInt(4)))
	})

	t.Run("find by ID not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("find for tenant rejects other tenants", func(t *testing.T) {
		_, err := repo.FindByIDForTenant(ctx, uuid.New(), r.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		found, err := repo.FindByIDForTenant(ctx, tenantID, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.ID, found.ID)
	})

	t.Run("find by return number", func(t *testing.T) {
		found, err := repo.FindByReturnNumber(ctx, tenantID, "RET-20260115-0001")
		require.NoError(t, err)
		assert.Equal(t, r.ID, found.ID)

		_, err = repo.FindByReturnNumber(ctx, tenantID, "RET-99999999-0001")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("find by order", func(t *testing.T) {
		found, err := repo.FindByOrder(ctx, tenantID, r.OrderID)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, r.ID, found[0].ID)
	})
}

func TestGormReturnRepository_SavePersistsLifecycle(t *testing.T) {
	db := setupReturnTestDB(t)
	repo := NewGormReturnRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	r := newTestReturn(t, tenantID, "RET-20260115-0002")
	require.NoError(t, repo.Save(ctx, r))

	locationID := uuid.New()
	require.NoError(t, r.AssignLocation(locationID))
	require.NoError(t, r.Complete())
	r.ClearDomainEvents()
	require.NoError(t, repo.Save(ctx, r))

	found, err := repo.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, returns.ReturnStatusCompleted, found.Status)
	require.NotNil(t, found.AssignedLocationID)
	assert.Equal(t, locationID, *found.AssignedLocationID)
	assert.NotNil(t, found.LocationAssignedAt)
	assert.NotNil(t, found.CompletedAt)
}

func TestGormReturnRepository_SaveRemovesDroppedItems(t *testing.T) {
	db := setupReturnTestDB(t)
	repo := NewGormReturnRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	r := newTestReturn(t, tenantID, "RET-20260115-0003")
	require.NoError(t, repo.Save(ctx, r))

	r.Items = r.Items[:1]
	require.NoError(t, repo.Save(ctx, r))

	found, err := repo.FindByID(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "PROD-A", found.Items[0].ProductCode)

	var count int64
	require.NoError(t, db.Model(&returns.ReturnLineItem{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGormReturnRepository_SaveWithLock(t *testing.T) {
	db := setupReturnTestDB(t)
	repo := NewGormReturnRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	r := newTestReturn(t, tenantID, "RET-20260115-0004")
	require.NoError(t, repo.Save(ctx, r))

	t.Run("bumps version on success", func(t *testing.T) {
		fresh, err := repo.FindByID(ctx, r.ID)
		require.NoError(t, err)
		before := fresh.Version

		require.NoError(t, fresh.AssignLocation(uuid.New()))
		require.NoError(t, repo.SaveWithLock(ctx, fresh))
		assert.Equal(t, before+1, fresh.Version)

		found, err := repo.FindByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, returns.ReturnStatusLocationAssigned, found.Status)
		assert.Equal(t, before+1, found.Version)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		first, err := repo.FindByID(ctx, r.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, r.ID)
		require.NoError(t, err)

		require.NoError(t, first.Complete())
		require.NoError(t, repo.SaveWithLock(ctx, first))

		require.NoError(t, second.Complete())
		err = repo.SaveWithLock(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConcurrentModification)
	})
}

func TestGormReturnRepository_SaveAndEvents(t *testing.T) {
	db := setupReturnTestDB(t)
	require.NoError(t, db.AutoMigrate(&shared.OutboxEntry{}))

	repo := NewGormReturnRepository(db)
	repo.SetOutboxEventSaver(event.NewOutboxPublisher(event.NewDomainEventSerializer()))
	ctx := context.Background()
	tenantID := uuid.New()

	items := []returns.ReturnLineItem{
		mustLineItem(t, "PROD-A", 10, 10, 6, returns.ConditionDamaged),
	}
	r, err := returns.InitiatePartialReturn(
		tenantID, "RET-20260115-0020", uuid.New(), "LOAD-020", uuid.New(), items, "J. Driver",
	)
	require.NoError(t, err)
	events := r.GetDomainEvents()
	r.ClearDomainEvents()
	require.NoError(t, repo.SaveAndEvents(ctx, r, events))

	found, err := repo.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, returns.ReturnStatusInitiated, found.Status)

	// the initiation event lands in the outbox with the create
	var entries []shared.OutboxEntry
	require.NoError(t, db.Where("tenant_id = ?", tenantID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, returns.EventTypeReturnInitiated, entries[0].EventType)
	assert.Equal(t, r.ID, entries[0].AggregateID)
}

func TestGormReturnRepository_SaveWithLockAndEvents(t *testing.T) {
	db := setupReturnTestDB(t)
	require.NoError(t, db.AutoMigrate(&shared.OutboxEntry{}))

	repo := NewGormReturnRepository(db)
	repo.SetOutboxEventSaver(event.NewOutboxPublisher(event.NewDomainEventSerializer()))
	ctx := context.Background()
	tenantID := uuid.New()

	r := newTestReturn(t, tenantID, "RET-20260115-0010")
	require.NoError(t, repo.Save(ctx, r))
	require.NoError(t, r.AssignLocation(uuid.New()))
	require.NoError(t, repo.SaveWithLock(ctx, r))
	r.ClearDomainEvents()

	require.NoError(t, r.Complete())
	events := r.GetDomainEvents()
	r.ClearDomainEvents()
	require.NoError(t, repo.SaveWithLockAndEvents(ctx, r, events))

	var entries []shared.OutboxEntry
	require.NoError(t, db.Where("tenant_id = ?", tenantID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, returns.EventTypeReturnCompleted, entries[0].EventType)
	assert.Equal(t, r.ID, entries[0].AggregateID)
	assert.Equal(t, shared.OutboxStatusPending, entries[0].Status)

	t.Run("stale save writes no outbox entries", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, r.ID)
		require.NoError(t, err)
		stale.Version--

		require.NoError(t, stale.Cancel("warehouse audit"))
		staleEvents := stale.GetDomainEvents()
		stale.ClearDomainEvents()

		err = repo.SaveWithLockAndEvents(ctx, stale, staleEvents)
		assert.ErrorIs(t, err, shared.ErrConcurrentModification)

		var count int64
		require.NoError(t, db.Model(&shared.OutboxEntry{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestGormReturnRepository_FindByStatus(t *testing.T) {
	db := setupReturnTestDB(t)
	repo := NewGormReturnRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	for i := 1; i <= 5; i++ {
		r := newTestReturn(t, tenantID, fmt.Sprintf("RET-20260115-%04d", i))
		require.NoError(t, repo.Save(ctx, r))
	}
	cancelled := newTestReturn(t, tenantID, "RET-20260115-0099")
	require.NoError(t, cancelled.Cancel("Customer withdrew the claim"))
	cancelled.ClearDomainEvents()
	require.NoError(t, repo.Save(ctx, cancelled))

	filter := shared.DefaultFilter()
	filter.PageSize = 3

	page, err := repo.FindByStatus(ctx, tenantID, returns.ReturnStatusInitiated, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, 2, page.TotalPages)
	for _, item := range page.Items {
		assert.NotEmpty(t, item.Items)
	}

	filter.Page = 2
	page, err = repo.FindByStatus(ctx, tenantID, returns.ReturnStatusInitiated, filter)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestGormReturnRepository_FindAllForTenant_Filters(t *testing.T) {
	db := setupReturnTestDB(t)
	repo := NewGormReturnRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	a := newTestReturn(t, tenantID, "RET-20260115-0010")
	b := newTestReturn(t, tenantID, "RET-20260115-0011")
	require.NoError(t, b.Cancel("Duplicate submission"))
	b.ClearDomainEvents()
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, repo.Save(ctx, b))

	other := newTestReturn(t, uuid.New(), "RET-20260115-0010")
	require.NoError(t, repo.Save(ctx, other))

	t.Run("tenant isolation", func(t *testing.T) {
		page, err := repo.FindAllForTenant(ctx, tenantID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("status filter", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["status"] = string(returns.ReturnStatusCancelled)
		page, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		require.Equal(t, int64(1), page.Total)
		assert.Equal(t, b.ID, page.Items[0].ID)
	})

	t.Run("statuses filter", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["statuses"] = []string{
			string(returns.ReturnStatusInitiated),
			string(returns.ReturnStatusCancelled),
		}
		page, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("order filter", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["order_id"] = a.OrderID.String()
		page, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		require.Equal(t, int64(1), page.Total)
		assert.Equal(t, a.ID, page.Items[0].ID)
	})

	t.Run("unknown sort field falls back to created_at", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.OrderBy = "password; DROP TABLE returns"
		_, err := repo.FindAllForTenant(ctx, tenantID, filter)
		assert.NoError(t, err)
	})
}

func TestGormReturnRepository_ExistsByReturnNumber(t *testing.T) {
	db := setupReturnTestDB(t)
	repo := NewGormReturnRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	r := newTestReturn(t, tenantID, "RET-20260115-0042")
	require.NoError(t, repo.Save(ctx, r))

	exists, err := repo.ExistsByReturnNumber(ctx, tenantID, "RET-20260115-0042")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByReturnNumber(ctx, tenantID, "RET-20260115-0043")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsByReturnNumber(ctx, uuid.New(), "RET-20260115-0042")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGormReturnRepository_GenerateReturnNumber(t *testing.T) {
	db := setupReturnTestDB(t)
	repo := NewGormReturnRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	first, err := repo.GenerateReturnNumber(ctx, tenantID)
	require.NoError(t, err)
	assert.Regexp(t, `^RET-\d{8}-0001$`, first)

	r := newTestReturn(t, tenantID, first)
	require.NoError(t, repo.Save(ctx, r))

	second, err := repo.GenerateReturnNumber(ctx, tenantID)
	require.NoError(t, err)
	assert.Regexp(t, `^RET-\d{8}-0002$`, second)

	otherTenant, err := repo.GenerateReturnNumber(ctx, uuid.New())
	require.NoError(t, err)
	assert.Regexp(t, `^RET-\d{8}-0001$`, otherTenant)
}
