package damage

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/returns/internal/domain/damage"
	"github.com/wms/returns/internal/domain/shared"
	"github.com/wms/returns/internal/domain/shared/valueobject"
)

// DamageAssessmentService handles damage assessment operations
type DamageAssessmentService struct {
	assessmentRepo damage.DamageAssessmentRepository
	logger         *zap.Logger
}

// NewDamageAssessmentService creates a new DamageAssessmentService
func NewDamageAssessmentService(
	assessmentRepo damage.DamageAssessmentRepository,
	logger *zap.Logger,
) *DamageAssessmentService {
	return &DamageAssessmentService{
		assessmentRepo: assessmentRepo,
		logger:         logger,
	}
}

// Record records a damage assessment against an inbound order. Damage is
// reported independently of any return, so the order is not checked here.
func (s *DamageAssessmentService) Record(ctx context.Context, tenantID uuid.UUID, req RecordDamageRequest) (*DamageAssessmentResponse, error) {
	products := make([]damage.DamagedProduct, 0, len(req.Products))
	for _, pr := range req.Products {
		currency := valueobject.Currency(pr.Currency)
		if currency == "" {
			currency = valueobject.DefaultCurrency
		}
		unitLoss, err := valueobject.NewMoney(pr.UnitLoss, currency)
		if err != nil {
			return nil, shared.NewDomainError(shared.CodeInvalidDamageAssessment,
				"Invalid unit loss for product "+pr.ProductCode)
		}

		p, err := damage.NewDamagedProduct(
			pr.ProductID, pr.ProductCode, pr.Description,
			pr.DamagedQuantity, unitLoss, pr.DamageType, pr.PhotoEvidence, pr.Notes,
		)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	a, err := damage.RecordDamageAssessment(
		tenantID, req.OrderID, req.LoadNumber, req.ConsignmentID,
		req.DamageType, req.DamageSource,
		damage.DamageSeverity(req.Severity), products,
		req.InsuranceClaimRef, req.AssessedBy, req.Notes,
	)
	if err != nil {
		return nil, err
	}

	events := a.GetDomainEvents()
	a.ClearDomainEvents()

	if err := s.assessmentRepo.SaveAndEvents(ctx, a, events); err != nil {
		return nil, err
	}

	s.logger.Info("damage assessment recorded",
		zap.String("assessment_id", a.ID.String()),
		zap.String("order_id", a.OrderID.String()),
		zap.String("load_number", a.LoadNumber),
		zap.String("severity", string(a.Severity)),
		zap.String("estimated_total_loss", a.EstimatedTotalLoss.String()))

	response := ToDamageAssessmentResponse(a)
	return &response, nil
}

// SubmitForReview moves a draft assessment into the review queue
func (s *DamageAssessmentService) SubmitForReview(ctx context.Context, tenantID, assessmentID uuid.UUID) (*DamageAssessmentResponse, error) {
	return s.mutate(ctx, tenantID, assessmentID, func(a *damage.DamageAssessment) error {
		return a.SubmitForReview()
	})
}

// StartReview claims a submitted assessment for review
func (s *DamageAssessmentService) StartReview(ctx context.Context, tenantID, assessmentID uuid.UUID, req StartReviewRequest) (*DamageAssessmentResponse, error) {
	return s.mutate(ctx, tenantID, assessmentID, func(a *damage.DamageAssessment) error {
		return a.StartReview(req.ReviewedBy)
	})
}

// CompleteReview finishes the review and freezes the assessment
func (s *DamageAssessmentService) CompleteReview(ctx context.Context, tenantID, assessmentID uuid.UUID, req CompleteReviewRequest) (*DamageAssessmentResponse, error) {
	return s.mutate(ctx, tenantID, assessmentID, func(a *damage.DamageAssessment) error {
		return a.Complete(req.ReviewNotes)
	})
}

// Cancel withdraws an assessment
func (s *DamageAssessmentService) Cancel(ctx context.Context, tenantID, assessmentID uuid.UUID, req CancelAssessmentRequest) (*DamageAssessmentResponse, error) {
	return s.mutate(ctx, tenantID, assessmentID, func(a *damage.DamageAssessment) error {
		return a.Cancel(req.Reason)
	})
}

// mutate loads the assessment, applies the operation and saves with
// optimistic locking. Events raised by the operation commit through the
// outbox in the same transaction.
func (s *DamageAssessmentService) mutate(ctx context.Context, tenantID, assessmentID uuid.UUID, op func(*damage.DamageAssessment) error) (*DamageAssessmentResponse, error) {
	a, err := s.assessmentRepo.FindByIDForTenant(ctx, tenantID, assessmentID)
	if err != nil {
		return nil, err
	}

	if err := op(a); err != nil {
		return nil, err
	}

	events := a.GetDomainEvents()
	a.ClearDomainEvents()

	if err := s.assessmentRepo.SaveWithLockAndEvents(ctx, a, events); err != nil {
		return nil, err
	}

	response := ToDamageAssessmentResponse(a)
	return &response, nil
}

// GetByID retrieves an assessment by ID
func (s *DamageAssessmentService) GetByID(ctx context.Context, tenantID, assessmentID uuid.UUID) (*DamageAssessmentResponse, error) {
	a, err := s.assessmentRepo.FindByIDForTenant(ctx, tenantID, assessmentID)
	if err != nil {
		return nil, err
	}
	response := ToDamageAssessmentResponse(a)
	return &response, nil
}

// ListByOrder retrieves all assessments recorded against an order
func (s *DamageAssessmentService) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]DamageAssessmentResponse, error) {
	assessments, err := s.assessmentRepo.FindByOrder(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}

	out := make([]DamageAssessmentResponse, len(assessments))
	for i, a := range assessments {
		out[i] = ToDamageAssessmentResponse(a)
	}
	return out, nil
}
