package persistence

import (
	"gorm.io/gorm"

	"github.com/wms/returns/internal/domain/damage"
	"github.com/wms/returns/internal/domain/reconciliation"
	"github.com/wms/returns/internal/domain/returns"
	"github.com/wms/returns/internal/domain/shared"
)

// AutoMigrate creates or updates the schema for every persisted type
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&returns.Return{},
		&returns.ReturnLineItem{},
		&damage.DamageAssessment{},
		&damage.DamagedProduct{},
		&reconciliation.ReconciliationRecord{},
		&reconciliation.SyncAttempt{},
		&shared.OutboxEntry{},
	)
}
