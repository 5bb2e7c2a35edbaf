package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"order-tracker/internal/models"
	"order-tracker/internal/repository"
)

// ReturnService defines the business logic interface for returns.
// An empty customerID means a staff caller.
type ReturnService interface {
	CreateReturn(ctx context.Context, tenantID, customerID string, req *models.CreateReturnRequest) (*models.Return, error)
	GetReturn(ctx context.Context, tenantID, customerID string, id uuid.UUID) (*models.Return, error)
	ListReturns(ctx context.Context, tenantID string, filters ReturnListFilters) (*ReturnListResponse, error)
	UpdateReturnStatus(ctx context.Context, tenantID string, id uuid.UUID, req UpdateReturnStatusRequest, actor string) (*models.Return, error)
	GetReturnStats(ctx context.Context, tenantID string) (*repository.ReturnStats, error)
}

type UpdateReturnStatusRequest struct {
	Status            models.ReturnStatus `json:"status" binding:"required"`
	AdminNotes        *string             `json:"adminNotes,omitempty"`
	PickupScheduledAt *time.Time          `json:"pickupScheduledAt,omitempty"`
}

type ReturnListFilters struct {
	CustomerID string
	OrderID    *uuid.UUID
	Status     *models.ReturnStatus
	Type       *models.ReturnType
	Search     string
	Page       int
	Limit      int
}

type ReturnListResponse struct {
	Returns []models.Return `json:"returns"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

type returnService struct {
	returnRepo repository.ReturnRepository
	orderRepo  repository.OrderRepository
	events     EventPublisher
	logger     *logrus.Entry
	now        func() time.Time
}

// NewReturnService creates a new return service. A nil publisher disables events.
func NewReturnService(returnRepo repository.ReturnRepository, orderRepo repository.OrderRepository, publisher EventPublisher, logger *logrus.Logger) ReturnService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &returnService{
		returnRepo: returnRepo,
		orderRepo:  orderRepo,
		events:     publisher,
		logger:     logger.WithField("component", "return-service"),
		now:        time.Now,
	}
}

// CreateReturn opens a return for a delivered order. Eligibility is re-checked
// with the order row locked, in the same transaction as the insert.
func (s *returnService) CreateReturn(ctx context.Context, tenantID, customerID string, req *models.CreateReturnRequest) (*models.Return, error) {
	now := s.now()

	var created *models.Return
	var order *models.Order
	err := s.returnRepo.WithTransaction(ctx, func(txRepo repository.ReturnRepository) error {
		o, err := txRepo.LockOrder(ctx, tenantID, req.OrderID)
		if err != nil {
			return err
		}
		if o.CustomerID != customerID {
			return repository.ErrNotFound
		}

		exists, err := txRepo.ExistsForOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		if err := models.CheckReturnEligibility(o, exists, now).Err(); err != nil {
			return err
		}

		ret, err := models.BuildReturn(o, req, now)
		if err != nil {
			return err
		}

		if err := txRepo.Create(ctx, ret, o, customerID); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return &models.IneligibleError{Reason: models.ReasonReturnExists}
			}
			return err
		}

		created, order = ret, o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.orderRepo.InvalidateOrder(ctx, tenantID, order.ID)
	s.logger.WithFields(logrus.Fields{
		"tenantID":     tenantID,
		"orderNumber":  order.OrderNumber,
		"returnNumber": created.ReturnNumber,
		"type":         created.Type,
	}).Info("Return requested")
	s.publish("order.return_requested", s.events.PublishReturnRequested(ctx, order, created))
	return created, nil
}

// GetReturn retrieves a return; customers only see their own
func (s *returnService) GetReturn(ctx context.Context, tenantID, customerID string, id uuid.UUID) (*models.Return, error) {
	ret, err := s.returnRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if customerID != "" && ret.CustomerID != customerID {
		return nil, repository.ErrNotFound
	}
	return ret, nil
}

// ListReturns retrieves returns with filters and pagination
func (s *returnService) ListReturns(ctx context.Context, tenantID string, filters ReturnListFilters) (*ReturnListResponse, error) {
	page, limit := normalizePaging(filters.Page, filters.Limit)

	returns, total, err := s.returnRepo.List(ctx, repository.ReturnFilters{
		TenantID:   tenantID,
		CustomerID: filters.CustomerID,
		OrderID:    filters.OrderID,
		Status:     filters.Status,
		Type:       filters.Type,
		Search:     strings.TrimSpace(filters.Search),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list returns: %w", err)
	}

	return &ReturnListResponse{Returns: returns, Total: total, Page: page, Limit: limit}, nil
}

// UpdateReturnStatus advances a return through its transition table and
// mirrors the new status onto the order
func (s *returnService) UpdateReturnStatus(ctx context.Context, tenantID string, id uuid.UUID, req UpdateReturnStatusRequest, actor string) (*models.Return, error) {
	if !req.Status.IsValid() {
		return nil, &models.ValidationError{Kind: models.ValidationInvalidReturnStatus, Message: fmt.Sprintf("unknown return status %q", req.Status)}
	}

	var updated *models.Return
	var previous models.ReturnStatus
	err := s.returnRepo.WithTransaction(ctx, func(txRepo repository.ReturnRepository) error {
		ret, err := txRepo.GetByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if err := models.ValidateReturnStatusTransition(ret.Status, req.Status); err != nil {
			return err
		}

		previous = ret.Status
		change := repository.ReturnStatusChange{
			AdminNotes:        req.AdminNotes,
			PickupScheduledAt: req.PickupScheduledAt,
			Actor:             actor,
			At:                s.now(),
		}
		if err := txRepo.UpdateStatus(ctx, ret, req.Status, change); err != nil {
			return err
		}
		updated = ret
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.orderRepo.InvalidateOrder(ctx, tenantID, updated.OrderID)
	s.logger.WithFields(logrus.Fields{
		"returnNumber": updated.ReturnNumber,
		"from":         previous,
		"to":           updated.Status,
		"actor":        actor,
	}).Info("Return status changed")
	s.publish("order.return_status_changed", s.events.PublishReturnStatusChanged(ctx, updated, previous))
	return updated, nil
}

// GetReturnStats retrieves return statistics for a tenant
func (s *returnService) GetReturnStats(ctx context.Context, tenantID string) (*repository.ReturnStats, error) {
	stats, err := s.returnRepo.GetStats(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get return stats: %w", err)
	}
	return stats, nil
}

func (s *returnService) publish(eventType string, err error) {
	if err != nil {
		s.logger.WithError(err).WithField("eventType", eventType).Warn("Failed to publish event")
	}
}
