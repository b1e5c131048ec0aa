package damage

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/returns/internal/domain/shared"
)

// Aggregate type constant for DamageAssessment
const AggregateTypeDamageAssessment = "DamageAssessment"

// Event type constants for DamageAssessment
const (
	EventTypeDamageRecorded            = "DamageRecorded"
	EventTypeDamageSubmitted           = "DamageSubmitted"
	EventTypeDamageAssessmentCompleted = "DamageAssessmentCompleted"
)

// DamagedProductInfo is the per-line snapshot carried on damage events
type DamagedProductInfo struct {
	ProductID       uuid.UUID       `json:"product_id"`
	ProductCode     string          `json:"product_code"`
	DamagedQuantity decimal.Decimal `json:"damaged_quantity"`
	UnitLoss        decimal.Decimal `json:"unit_loss"`
	DamageType      string          `json:"damage_type"`
	PhotoCount      int             `json:"photo_count"`
}

func productInfos(a *DamageAssessment) []DamagedProductInfo {
	infos := make([]DamagedProductInfo, len(a.Products))
	for i, p := range a.Products {
		infos[i] = DamagedProductInfo{
			ProductID:       p.ProductID,
			ProductCode:     p.ProductCode,
			DamagedQuantity: p.DamagedQuantity,
			UnitLoss:        p.UnitLoss,
			DamageType:      p.DamageType,
			PhotoCount:      len(p.PhotoEvidence),
		}
	}
	return infos
}

// DamageRecordedEvent is raised when a damage assessment is recorded
type DamageRecordedEvent struct {
	shared.BaseDomainEvent
	AssessmentID       uuid.UUID            `json:"assessment_id"`
	OrderID            uuid.UUID            `json:"order_id"`
	LoadNumber         string               `json:"load_number"`
	ConsignmentID      *uuid.UUID           `json:"consignment_id,omitempty"`
	DamageType         string               `json:"damage_type"`
	DamageSource       string               `json:"damage_source"`
	Severity           DamageSeverity       `json:"severity"`
	EstimatedTotalLoss decimal.Decimal      `json:"estimated_total_loss"`
	InsuranceClaimRef  string               `json:"insurance_claim_ref,omitempty"`
	Products           []DamagedProductInfo `json:"products"`
}

// NewDamageRecordedEvent creates a new DamageRecordedEvent
func NewDamageRecordedEvent(a *DamageAssessment) *DamageRecordedEvent {
	return &DamageRecordedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeDamageRecorded, AggregateTypeDamageAssessment, a.ID, a.TenantID),
		AssessmentID:       a.ID,
		OrderID:            a.OrderID,
		LoadNumber:         a.LoadNumber,
		ConsignmentID:      a.ConsignmentID,
		DamageType:         a.DamageType,
		DamageSource:       a.DamageSource,
		Severity:           a.Severity,
		EstimatedTotalLoss: a.EstimatedTotalLoss,
		InsuranceClaimRef:  a.InsuranceClaimRef,
		Products:           productInfos(a),
	}
}

// EventType returns the event type name
func (e *DamageRecordedEvent) EventType() string {
	return EventTypeDamageRecorded
}

// DamageSubmittedEvent is raised when an assessment enters the review queue
type DamageSubmittedEvent struct {
	shared.BaseDomainEvent
	AssessmentID       uuid.UUID       `json:"assessment_id"`
	OrderID            uuid.UUID       `json:"order_id"`
	Severity           DamageSeverity  `json:"severity"`
	EstimatedTotalLoss decimal.Decimal `json:"estimated_total_loss"`
	AssessedBy         string          `json:"assessed_by"`
}

// NewDamageSubmittedEvent creates a new DamageSubmittedEvent
func NewDamageSubmittedEvent(a *DamageAssessment) *DamageSubmittedEvent {
	return &DamageSubmittedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeDamageSubmitted, AggregateTypeDamageAssessment, a.ID, a.TenantID),
		AssessmentID:       a.ID,
		OrderID:            a.OrderID,
		Severity:           a.Severity,
		EstimatedTotalLoss: a.EstimatedTotalLoss,
		AssessedBy:         a.AssessedBy,
	}
}

// EventType returns the event type name
func (e *DamageSubmittedEvent) EventType() string {
	return EventTypeDamageSubmitted
}

// DamageAssessmentCompletedEvent is raised when the review is finished
type DamageAssessmentCompletedEvent struct {
	shared.BaseDomainEvent
	AssessmentID       uuid.UUID       `json:"assessment_id"`
	OrderID            uuid.UUID       `json:"order_id"`
	Severity           DamageSeverity  `json:"severity"`
	EstimatedTotalLoss decimal.Decimal `json:"estimated_total_loss"`
	ReviewedBy         string          `json:"reviewed_by"`
}

// NewDamageAssessmentCompletedEvent creates a new DamageAssessmentCompletedEvent
func NewDamageAssessmentCompletedEvent(a *DamageAssessment) *DamageAssessmentCompletedEvent {
	return &DamageAssessmentCompletedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeDamageAssessmentCompleted, AggregateTypeDamageAssessment, a.ID, a.TenantID),
		AssessmentID:       a.ID,
		OrderID:            a.OrderID,
		Severity:           a.Severity,
		EstimatedTotalLoss: a.EstimatedTotalLoss,
		ReviewedBy:         a.ReviewedBy,
	}
}

// EventType returns the event type name
func (e *DamageAssessmentCompletedEvent) EventType() string {
	return EventTypeDamageAssessmentCompleted
}
