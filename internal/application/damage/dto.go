package damage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/returns/internal/domain/damage"
)

// DamagedProductRequest is one damaged product line in a record request
type DamagedProductRequest struct {
	ProductID       uuid.UUID       `json:"product_id"`
	ProductCode     string          `json:"product_code"`
	Description     string          `json:"description"`
	DamagedQuantity decimal.Decimal `json:"damaged_quantity"`
	UnitLoss        decimal.Decimal `json:"unit_loss"`
	Currency        string          `json:"currency"`
	DamageType      string          `json:"damage_type"`
	PhotoEvidence   []string        `json:"photo_evidence"`
	Notes           string          `json:"notes"`
}

// RecordDamageRequest records a damage assessment against an order
type RecordDamageRequest struct {
	OrderID           uuid.UUID               `json:"order_id"`
	LoadNumber        string                  `json:"load_number"`
	ConsignmentID     *uuid.UUID              `json:"consignment_id,omitempty"`
	DamageType        string                  `json:"damage_type"`
	DamageSource      string                  `json:"damage_source"`
	Severity          string                  `json:"severity"`
	Products          []DamagedProductRequest `json:"products"`
	InsuranceClaimRef string                  `json:"insurance_claim_ref"`
	AssessedBy        string                  `json:"assessed_by"`
	Notes             string                  `json:"notes"`
}

// StartReviewRequest claims a submitted assessment for review
type StartReviewRequest struct {
	ReviewedBy string `json:"reviewed_by"`
}

// CompleteReviewRequest finishes an assessment review
type CompleteReviewRequest struct {
	ReviewNotes string `json:"review_notes"`
}

// CancelAssessmentRequest cancels an assessment
type CancelAssessmentRequest struct {
	Reason string `json:"reason"`
}

// DamagedProductResponse is the API view of one damaged product line
type DamagedProductResponse struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"product_id"`
	ProductCode     string          `json:"product_code"`
	Description     string          `json:"description"`
	DamagedQuantity decimal.Decimal `json:"damaged_quantity"`
	UnitLoss        decimal.Decimal `json:"unit_loss"`
	LineLoss        decimal.Decimal `json:"line_loss"`
	DamageType      string          `json:"damage_type"`
	PhotoEvidence   []string        `json:"photo_evidence,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// DamageAssessmentResponse is the API view of a damage assessment
type DamageAssessmentResponse struct {
	ID                 uuid.UUID                `json:"id"`
	TenantID           uuid.UUID                `json:"tenant_id"`
	OrderID            uuid.UUID                `json:"order_id"`
	LoadNumber         string                   `json:"load_number"`
	ConsignmentID      *uuid.UUID               `json:"consignment_id,omitempty"`
	DamageType         string                   `json:"damage_type"`
	DamageSource       string                   `json:"damage_source"`
	Severity           string                   `json:"severity"`
	Status             string                   `json:"status"`
	Products           []DamagedProductResponse `json:"products"`
	EstimatedTotalLoss decimal.Decimal          `json:"estimated_total_loss"`
	InsuranceClaimRef  string                   `json:"insurance_claim_ref,omitempty"`
	AssessedBy         string                   `json:"assessed_by"`
	ReviewedBy         string                   `json:"reviewed_by,omitempty"`
	ReviewNotes        string                   `json:"review_notes,omitempty"`
	Notes              string                   `json:"notes,omitempty"`
	SubmittedAt        *time.Time               `json:"submitted_at,omitempty"`
	CompletedAt        *time.Time               `json:"completed_at,omitempty"`
	CancelledAt        *time.Time               `json:"cancelled_at,omitempty"`
	CancelReason       string                   `json:"cancel_reason,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
	Version            int                      `json:"version"`
}

// ToDamageAssessmentResponse converts a domain assessment to its API view
func ToDamageAssessmentResponse(a *damage.DamageAssessment) DamageAssessmentResponse {
	products := make([]DamagedProductResponse, len(a.Products))
	for i := range a.Products {
		p := &a.Products[i]
		products[i] = DamagedProductResponse{
			ID:              p.ID,
			ProductID:       p.ProductID,
			ProductCode:     p.ProductCode,
			Description:     p.Description,
			DamagedQuantity: p.DamagedQuantity,
			UnitLoss:        p.UnitLoss,
			LineLoss:        p.LineLoss(),
			DamageType:      p.DamageType,
			PhotoEvidence:   p.PhotoEvidence,
			Notes:           p.Notes,
		}
	}

	return DamageAssessmentResponse{
		ID:                 a.ID,
		TenantID:           a.TenantID,
		OrderID:            a.OrderID,
		LoadNumber:         a.LoadNumber,
		ConsignmentID:      a.ConsignmentID,
		DamageType:         a.DamageType,
		DamageSource:       a.DamageSource,
		Severity:           string(a.Severity),
		Status:             string(a.Status),
		Products:           products,
		EstimatedTotalLoss: a.EstimatedTotalLoss,
		InsuranceClaimRef:  a.InsuranceClaimRef,
		AssessedBy:         a.AssessedBy,
		ReviewedBy:         a.ReviewedBy,
		ReviewNotes:        a.ReviewNotes,
		Notes:              a.Notes,
		SubmittedAt:        a.SubmittedAt,
		CompletedAt:        a.CompletedAt,
		CancelledAt:        a.CancelledAt,
		CancelReason:       a.CancelReason,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
		Version:            a.Version,
	}
}
