package returns

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/returns/internal/domain/returns"
	"github.com/wms/returns/internal/domain/shared"
	"github.com/wms/returns/internal/domain/shared/valueobject"
)

// ReturnService handles return lifecycle operations. Every state change
// commits its domain events through the outbox in the same transaction
// as the aggregate.
type ReturnService struct {
	returnRepo      returns.ReturnRepository
	pickingGate     returns.PickingGate
	capacityChecker returns.LocationCapacityChecker
	logger          *zap.Logger
}

// NewReturnService creates a new ReturnService
func NewReturnService(
	returnRepo returns.ReturnRepository,
	pickingGate returns.PickingGate,
	capacityChecker returns.LocationCapacityChecker,
	logger *zap.Logger,
) *ReturnService {
	return &ReturnService{
		returnRepo:      returnRepo,
		pickingGate:     pickingGate,
		capacityChecker: capacityChecker,
		logger:          logger,
	}
}

// checkPickingCompleted verifies the order's picking has finished. An
// unreachable gate is reported as its own condition so callers can tell
// "not ready" apart from "cannot tell".
func (s *ReturnService) checkPickingCompleted(ctx context.Context, tenantID, orderID uuid.UUID) error {
	completed, err := s.pickingGate.PickingCompleted(ctx, tenantID, orderID)
	if err != nil {
		s.logger.Warn("picking gate unavailable",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return shared.NewDomainError(shared.CodePreconditionUnavailable,
			"Cannot verify picking status for order "+orderID.String())
	}
	if !completed {
		return shared.NewDomainError(shared.CodePickingNotCompleted,
			fmt.Sprintf("Picking is not completed for order %s", orderID))
	}
	return nil
}

func buildLineItems(reqItems []ReturnLineItemRequest) ([]returns.ReturnLineItem, error) {
	items := make([]returns.ReturnLineItem, 0, len(reqItems))
	for _, ri := range reqItems {
		currency := valueobject.Currency(ri.Currency)
		if currency == "" {
			currency = valueobject.DefaultCurrency
		}
		unitPrice, err := valueobject.NewMoney(ri.UnitPrice, currency)
		if err != nil {
			return nil, shared.NewDomainError(shared.CodeInvalidReturn,
				"Invalid unit price for product "+ri.ProductCode)
		}

		item, err := returns.NewReturnLineItem(
			ri.ProductID, ri.ProductCode, ri.Description,
			ri.OrderedQuantity, ri.PickedQuantity, ri.AcceptedQuantity,
			unitPrice,
			ri.ReturnReason, returns.ProductCondition(ri.Condition), ri.Notes,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// InitiatePartialReturn starts a partial return once the order's picking
// is confirmed complete
func (s *ReturnService) InitiatePartialReturn(ctx context.Context, tenantID uuid.UUID, req InitiatePartialReturnRequest) (*ReturnResponse, error) {
	if err := s.checkPickingCompleted(ctx, tenantID, req.OrderID); err != nil {
		return nil, err
	}

	items, err := buildLineItems(req.Items)
	if err != nil {
		return nil, err
	}

	returnNumber, err := s.returnRepo.GenerateReturnNumber(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	r, err := returns.InitiatePartialReturn(tenantID, returnNumber, req.OrderID, req.LoadNumber, req.CustomerID, items, req.CustomerSignature)
	if err != nil {
		return nil, err
	}

	events := r.GetDomainEvents()
	r.ClearDomainEvents()

	if err := s.returnRepo.SaveAndEvents(ctx, r, events); err != nil {
		return nil, err
	}

	s.logger.Info("partial return initiated",
		zap.String("return_number", r.ReturnNumber),
		zap.String("order_id", r.OrderID.String()),
		zap.Int("lines_with_returns", r.LinesWithReturns()))

	response := ToReturnResponse(r)
	return &response, nil
}

// ProcessFullReturn starts a full return once the order's picking is
// confirmed complete
func (s *ReturnService) ProcessFullReturn(ctx context.Context, tenantID uuid.UUID, req ProcessFullReturnRequest) (*ReturnResponse, error) {
	if err := s.checkPickingCompleted(ctx, tenantID, req.OrderID); err != nil {
		return nil, err
	}

	items, err := buildLineItems(req.Items)
	if err != nil {
		return nil, err
	}

	returnNumber, err := s.returnRepo.GenerateReturnNumber(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	r, err := returns.ProcessFullReturn(tenantID, returnNumber, req.OrderID, req.LoadNumber, req.CustomerID, items, req.PrimaryReason, req.Notes)
	if err != nil {
		return nil, err
	}

	events := r.GetDomainEvents()
	r.ClearDomainEvents()

	if err := s.returnRepo.SaveAndEvents(ctx, r, events); err != nil {
		return nil, err
	}

	s.logger.Info("full return processed",
		zap.String("return_number", r.ReturnNumber),
		zap.String("order_id", r.OrderID.String()),
		zap.String("primary_reason", r.PrimaryReason))

	response := ToReturnResponse(r)
	return &response, nil
}

// AssignLocation assigns a storage location after verifying the location
// has capacity for the returned goods
func (s *ReturnService) AssignLocation(ctx context.Context, tenantID, returnID uuid.UUID, req AssignLocationRequest) (*ReturnResponse, error) {
	r, err := s.returnRepo.FindByIDForTenant(ctx, tenantID, returnID)
	if err != nil {
		return nil, err
	}

	hasCapacity, err := s.capacityChecker.HasCapacity(ctx, tenantID, req.LocationID)
	if err != nil {
		s.logger.Warn("capacity checker unavailable",
			zap.String("location_id", req.LocationID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError(shared.CodePreconditionUnavailable,
			"Cannot verify capacity for location "+req.LocationID.String())
	}
	if !hasCapacity {
		return nil, shared.NewDomainError(shared.CodeLocationCapacityExceeded,
			fmt.Sprintf("Location %s has no capacity for return %s", req.LocationID, r.ReturnNumber))
	}

	if err := r.AssignLocation(req.LocationID); err != nil {
		return nil, err
	}

	events := r.GetDomainEvents()
	r.ClearDomainEvents()

	if err := s.returnRepo.SaveWithLockAndEvents(ctx, r, events); err != nil {
		return nil, err
	}

	response := ToReturnResponse(r)
	return &response, nil
}

// Complete marks the return physically processed, which queues it for
// reconciliation against the external system
func (s *ReturnService) Complete(ctx context.Context, tenantID, returnID uuid.UUID) (*ReturnResponse, error) {
	r, err := s.returnRepo.FindByIDForTenant(ctx, tenantID, returnID)
	if err != nil {
		return nil, err
	}

	if err := r.Complete(); err != nil {
		return nil, err
	}

	events := r.GetDomainEvents()
	r.ClearDomainEvents()

	if err := s.returnRepo.SaveWithLockAndEvents(ctx, r, events); err != nil {
		return nil, err
	}

	s.logger.Info("return completed",
		zap.String("return_number", r.ReturnNumber),
		zap.String("return_id", r.ID.String()))

	response := ToReturnResponse(r)
	return &response, nil
}

// Cancel cancels the return
func (s *ReturnService) Cancel(ctx context.Context, tenantID, returnID uuid.UUID, req CancelReturnRequest) (*ReturnResponse, error) {
	r, err := s.returnRepo.FindByIDForTenant(ctx, tenantID, returnID)
	if err != nil {
		return nil, err
	}

	if err := r.Cancel(req.Reason); err != nil {
		return nil, err
	}

	events := r.GetDomainEvents()
	r.ClearDomainEvents()

	if err := s.returnRepo.SaveWithLockAndEvents(ctx, r, events); err != nil {
		return nil, err
	}

	s.logger.Info("return cancelled",
		zap.String("return_number", r.ReturnNumber),
		zap.String("reason", req.Reason))

	response := ToReturnResponse(r)
	return &response, nil
}

// GetByID retrieves a return by ID
func (s *ReturnService) GetByID(ctx context.Context, tenantID, returnID uuid.UUID) (*ReturnResponse, error) {
	r, err := s.returnRepo.FindByIDForTenant(ctx, tenantID, returnID)
	if err != nil {
		return nil, err
	}
	response := ToReturnResponse(r)
	return &response, nil
}

// GetByReturnNumber retrieves a return by its return number
func (s *ReturnService) GetByReturnNumber(ctx context.Context, tenantID uuid.UUID, returnNumber string) (*ReturnResponse, error) {
	r, err := s.returnRepo.FindByReturnNumber(ctx, tenantID, returnNumber)
	if err != nil {
		return nil, err
	}
	response := ToReturnResponse(r)
	return &response, nil
}

// List retrieves returns with filtering and pagination
func (s *ReturnService) List(ctx context.Context, tenantID uuid.UUID, filter ReturnListFilter) (*shared.Paginated[ReturnListItemResponse], error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = filter.Search
	if filter.Status != nil {
		domainFilter.Filters["status"] = string(*filter.Status)
	}
	if filter.OrderID != nil {
		domainFilter.Filters["order_id"] = *filter.OrderID
	}

	page, err := s.returnRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToReturnListItemResponses(page.Items), page.Total, page.Page, page.PageSize)
	return &result, nil
}

// ListByOrder retrieves returns raised against one order
func (s *ReturnService) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]ReturnListItemResponse, error) {
	items, err := s.returnRepo.FindByOrder(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	return ToReturnListItemResponses(items), nil
}
