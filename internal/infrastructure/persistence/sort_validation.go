package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes the sort direction to ASC or DESC.
// Anything unrecognized falls back to DESC.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist.
// Returns defaultField when the input is empty or not whitelisted,
// keeping user-supplied sort input out of the ORDER BY clause.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ReturnSortFields contains allowed sort fields for returns
var ReturnSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"return_number": true,
	"status":        true,
	"type":          true,
	"completed_at":  true,
}

// DamageAssessmentSortFields contains allowed sort fields for damage
// assessments
var DamageAssessmentSortFields = map[string]bool{
	"id":                   true,
	"created_at":           true,
	"updated_at":           true,
	"severity":             true,
	"status":               true,
	"estimated_total_loss": true,
}

// ReconciliationSortFields contains allowed sort fields for
// reconciliation records
var ReconciliationSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"return_number": true,
	"status":        true,
	"attempt_count": true,
	"synced_at":     true,
}
