package damage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/returns/internal/domain/shared"
	"github.com/wms/returns/internal/domain/shared/valueobject"
)

// DamageSeverity grades how badly the goods were damaged
type DamageSeverity string

const (
	SeverityMinor    DamageSeverity = "MINOR"
	SeverityModerate DamageSeverity = "MODERATE"
	SeveritySevere   DamageSeverity = "SEVERE"
)

// IsValid checks if the severity is a valid DamageSeverity
func (s DamageSeverity) IsValid() bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeveritySevere:
		return true
	}
	return false
}

// String returns the string representation of DamageSeverity
func (s DamageSeverity) String() string {
	return string(s)
}

// DamageStatus represents the review lifecycle of an assessment
type DamageStatus string

const (
	DamageStatusDraft       DamageStatus = "DRAFT"
	DamageStatusSubmitted   DamageStatus = "SUBMITTED"
	DamageStatusUnderReview DamageStatus = "UNDER_REVIEW"
	DamageStatusCompleted   DamageStatus = "COMPLETED"
	DamageStatusCancelled   DamageStatus = "CANCELLED"
)

// IsValid checks if the status is a valid DamageStatus
func (s DamageStatus) IsValid() bool {
	switch s {
	case DamageStatusDraft, DamageStatusSubmitted, DamageStatusUnderReview,
		DamageStatusCompleted, DamageStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of DamageStatus
func (s DamageStatus) String() string {
	return string(s)
}

// IsTerminal returns true for statuses with no outgoing transitions
func (s DamageStatus) IsTerminal() bool {
	return s == DamageStatusCompleted || s == DamageStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s DamageStatus) CanTransitionTo(target DamageStatus) bool {
	if target == DamageStatusCancelled {
		return !s.IsTerminal()
	}
	switch s {
	case DamageStatusDraft:
		return target == DamageStatusSubmitted
	case DamageStatusSubmitted:
		return target == DamageStatusUnderReview
	case DamageStatusUnderReview:
		return target == DamageStatusCompleted
	}
	return false
}

// DamagedProduct is a single damaged product line in an assessment
type DamagedProduct struct {
	ID              uuid.UUID
	AssessmentID    uuid.UUID
	ProductID       uuid.UUID
	ProductCode     string
	Description     string
	DamagedQuantity decimal.Decimal
	UnitLoss        decimal.Decimal
	DamageType      string
	PhotoEvidence   []string `gorm:"serializer:json"`
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewDamagedProduct creates a validated damaged-product line
func NewDamagedProduct(
	productID uuid.UUID,
	productCode, description string,
	damagedQuantity decimal.Decimal,
	unitLoss valueobject.Money,
	damageType string,
	photoEvidence []string,
	notes string,
) (*DamagedProduct, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidDamageAssessment, "Product ID cannot be empty")
	}
	if productCode == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidDamageAssessment, "Product code cannot be empty")
	}
	if damagedQuantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(shared.CodeInvalidDamageAssessment,
			fmt.Sprintf("Damaged quantity must be positive for product %s", productCode))
	}
	if unitLoss.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidDamageAssessment,
			fmt.Sprintf("Unit loss cannot be negative for product %s", productCode))
	}
	if damageType == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidDamageAssessment,
			fmt.Sprintf("Damage type is required for product %s", productCode))
	}

	now := time.Now()
	return &DamagedProduct{
		ID:              uuid.New(),
		ProductID:       productID,
		ProductCode:     productCode,
		Description:     description,
		DamagedQuantity: damagedQuantity,
		UnitLoss:        unitLoss.Amount(),
		DamageType:      damageType,
		PhotoEvidence:   photoEvidence,
		Notes:           notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// LineLoss returns unit loss x damaged quantity for this line
func (p *DamagedProduct) LineLoss() decimal.Decimal {
	return p.UnitLoss.Mul(p.DamagedQuantity)
}

// HasPhotoEvidence reports whether the line carries at least one photo
func (p *DamagedProduct) HasPhotoEvidence() bool {
	return len(p.PhotoEvidence) > 0
}

// DamageAssessment is the aggregate root for a damage report against an
// inbound order. It is recorded independently of any return against the
// same order. It starts as a draft and moves through a review workflow;
// completed and cancelled assessments are immutable.
type DamageAssessment struct {
	shared.TenantAggregateRoot
	OrderID            uuid.UUID
	LoadNumber         string
	ConsignmentID      *uuid.UUID
	DamageType         string
	DamageSource       string
	Severity           DamageSeverity
	Status             DamageStatus
	Products           []DamagedProduct `gorm:"foreignKey:AssessmentID"`
	EstimatedTotalLoss decimal.Decimal
	InsuranceClaimRef  string
	AssessedBy         string
	ReviewedBy         string
	ReviewNotes        string
	Notes              string
	SubmittedAt        *time.Time
	ReviewStartedAt    *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancelReason       string
}

// RecordDamageAssessment creates a draft assessment. At least one product
// line is required and at least one line must carry photo evidence. Severe
// assessments must reference an insurance claim up front.
func RecordDamageAssessment(
	tenantID uuid.UUID,
	orderID uuid.UUID,
	loadNumber string,
	consignmentID *uuid.UUID,
	damageType string,
	damageSource string,
	severity DamageSeverity,
	products []DamagedProduct,
	insuranceClaimRef string,
	assessedBy string,
	notes string,
) (*DamageAssessment, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidDamageAssessment, "Order ID cannot be empty")
	}
	if loadNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidDamageAssessment, "Load number cannot be empty")
	}
	if damageType == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidDamageAssessment, "Damage type is required")
	}
	if damageSource == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidDamageAssessment, "Damage source is required")
	}
	if !severity.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidDamageAssessment,
			fmt.Sprintf("Unknown damage severity %q", severity))
	}
	if len(products) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidDamageAssessment,
			"Damage assessment must have at least one product")
	}
	if assessedBy == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidDamageAssessment, "Assessor is required")
	}

	hasEvidence := false
	for _, p := range products {
		if p.HasPhotoEvidence() {
			hasEvidence = true
			break
		}
	}
	if !hasEvidence {
		return nil, shared.NewDomainError(shared.CodeInvalidDamageAssessment,
			"Damage assessment requires photo evidence on at least one product")
	}

	if severity == SeveritySevere && insuranceClaimRef == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidDamageAssessment,
			"Severe damage assessments require an insurance claim reference")
	}

	a := &DamageAssessment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OrderID:             orderID,
		LoadNumber:          loadNumber,
		ConsignmentID:       consignmentID,
		DamageType:          damageType,
		DamageSource:        damageSource,
		Severity:            severity,
		Status:              DamageStatusDraft,
		Products:            make([]DamagedProduct, 0, len(products)),
		InsuranceClaimRef:   insuranceClaimRef,
		AssessedBy:          assessedBy,
		Notes:               notes,
	}
	for _, p := range products {
		p.AssessmentID = a.ID
		a.Products = append(a.Products, p)
	}
	a.EstimatedTotalLoss = a.computeTotalLoss()

	a.AddDomainEvent(NewDamageRecordedEvent(a))

	return a, nil
}

func (a *DamageAssessment) computeTotalLoss() decimal.Decimal {
	total := decimal.Zero
	for _, p := range a.Products {
		total = total.Add(p.LineLoss())
	}
	return total
}

// AddProduct appends a damaged-product line to a draft assessment and
// recomputes the estimated total loss
func (a *DamageAssessment) AddProduct(product DamagedProduct) error {
	if a.Status != DamageStatusDraft {
		return shared.NewDomainError(shared.CodeInvalidStateTransition,
			fmt.Sprintf("Cannot add products to assessment in %s status", a.Status))
	}

	product.AssessmentID = a.ID
	a.Products = append(a.Products, product)
	a.EstimatedTotalLoss = a.computeTotalLoss()
	a.UpdatedAt = time.Now()
	return nil
}

// SubmitForReview moves a draft assessment into the review queue
func (a *DamageAssessment) SubmitForReview() error {
	if !a.Status.CanTransitionTo(DamageStatusSubmitted) {
		return shared.NewDomainError(shared.CodeInvalidStateTransition,
			fmt.Sprintf("Cannot submit assessment in %s status", a.Status))
	}

	now := time.Now()
	a.Status = DamageStatusSubmitted
	a.SubmittedAt = &now
	a.UpdatedAt = now

	a.AddDomainEvent(NewDamageSubmittedEvent(a))

	return nil
}

// StartReview claims a submitted assessment for review
func (a *DamageAssessment) StartReview(reviewedBy string) error {
	if !a.Status.CanTransitionTo(DamageStatusUnderReview) {
		return shared.NewDomainError(shared.CodeInvalidStateTransition,
			fmt.Sprintf("Cannot start review of assessment in %s status", a.Status))
	}
	if reviewedBy == "" {
		return shared.NewDomainError(shared.CodeInvalidDamageAssessment, "Reviewer is required")
	}

	now := time.Now()
	a.Status = DamageStatusUnderReview
	a.ReviewedBy = reviewedBy
	a.ReviewStartedAt = &now
	a.UpdatedAt = now

	return nil
}

// Complete finishes the review and freezes the assessment
func (a *DamageAssessment) Complete(reviewNotes string) error {
	if !a.Status.CanTransitionTo(DamageStatusCompleted) {
		return shared.NewDomainError(shared.CodeInvalidStateTransition,
			fmt.Sprintf("Cannot complete assessment in %s status", a.Status))
	}

	now := time.Now()
	a.Status = DamageStatusCompleted
	a.ReviewNotes = reviewNotes
	a.CompletedAt = &now
	a.UpdatedAt = now

	a.AddDomainEvent(NewDamageAssessmentCompletedEvent(a))

	return nil
}

// Cancel withdraws the assessment. Allowed from any non-terminal status.
func (a *DamageAssessment) Cancel(reason string) error {
	if !a.Status.CanTransitionTo(DamageStatusCancelled) {
		return shared.NewDomainError(shared.CodeInvalidStateTransition,
			fmt.Sprintf("Cannot cancel assessment in %s status", a.Status))
	}
	if reason == "" {
		return shared.NewDomainError(shared.CodeInvalidDamageAssessment, "Cancel reason is required")
	}

	now := time.Now()
	a.Status = DamageStatusCancelled
	a.CancelledAt = &now
	a.CancelReason = reason
	a.UpdatedAt = now

	return nil
}

// ProductCount returns the number of damaged-product lines
func (a *DamageAssessment) ProductCount() int {
	return len(a.Products)
}

// TotalDamagedQuantity sums the damaged quantities across lines
func (a *DamageAssessment) TotalDamagedQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, p := range a.Products {
		total = total.Add(p.DamagedQuantity)
	}
	return total
}

// IsTerminal returns true if the assessment is completed or cancelled
func (a *DamageAssessment) IsTerminal() bool {
	return a.Status.IsTerminal()
}
