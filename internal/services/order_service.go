package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"order-tracker/internal/config"
	"order-tracker/internal/models"
	"order-tracker/internal/repository"
)

// OrderService defines the business logic interface for orders.
// customerID is always passed explicitly; an empty customerID means a staff caller.
type OrderService interface {
	CreateOrder(ctx context.Context, tenantID, customerID string, req CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, tenantID, customerID string, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, tenantID string, filters OrderListFilters) (*OrderListResponse, error)
	GetOrderTracking(ctx context.Context, tenantID, customerID string, id uuid.UUID) (*OrderTrackingResponse, error)
	CheckReturnEligibility(ctx context.Context, tenantID, customerID string, id uuid.UUID) (*models.EligibilityResult, error)
	CancelOrder(ctx context.Context, tenantID, customerID string, id uuid.UUID) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, tenantID string, id uuid.UUID, status models.OrderStatus, actor string) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, tenantID string, id uuid.UUID, status models.PaymentStatus, actor string) (*models.Order, error)
	SetTrackingNumber(ctx context.Context, tenantID string, id uuid.UUID, trackingNumber, actor string) (*models.Order, error)
	GetValidStatusTransitions(ctx context.Context, tenantID string, id uuid.UUID) (*ValidTransitionsResponse, error)
}

// DTOs and Request/Response types
type CreateOrderRequest struct {
	Items           []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingAddress models.Address           `json:"shippingAddress" binding:"required"`
	PaymentMethod   models.PaymentMethod     `json:"paymentMethod" binding:"required"`
	Tax             float64                  `json:"tax" binding:"min=0"`
}

type CreateOrderItemRequest struct {
	ProductID string  `json:"productId" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	Price     float64 `json:"price" binding:"required,gt=0"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Image     string  `json:"image"`
}

type OrderListFilters struct {
	CustomerID string
	Status     *models.OrderStatus
	Page       int
	Limit      int
}

type OrderListResponse struct {
	Orders []models.Order `json:"orders"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}

type OrderTrackingResponse struct {
	OrderID        uuid.UUID              `json:"orderId"`
	OrderNumber    string                 `json:"orderNumber"`
	Status         models.OrderStatus     `json:"orderStatus"`
	PaymentStatus  models.PaymentStatus   `json:"paymentStatus"`
	ReturnStatus   *models.ReturnStatus   `json:"returnStatus,omitempty"`
	TrackingNumber string                 `json:"trackingNumber,omitempty"`
	DeliveredAt    *time.Time             `json:"deliveredAt,omitempty"`
	Steps          []models.TrackerStep   `json:"steps"`
	Timeline       []models.OrderTimeline `json:"timeline"`
}

type ValidTransitionsResponse struct {
	OrderID              uuid.UUID              `json:"orderId"`
	CurrentOrderStatus   models.OrderStatus     `json:"currentOrderStatus"`
	CurrentPaymentStatus models.PaymentStatus   `json:"currentPaymentStatus"`
	ValidOrderStatuses   []models.OrderStatus   `json:"validOrderStatuses"`
	ValidPaymentStatuses []models.PaymentStatus `json:"validPaymentStatuses"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type orderService struct {
	orderRepo  repository.OrderRepository
	returnRepo repository.ReturnRepository
	events     EventPublisher
	checkout   config.CheckoutConfig
	logger     *logrus.Entry
	now        func() time.Time
}

// NewOrderService creates a new order service. A nil publisher disables events.
func NewOrderService(orderRepo repository.OrderRepository, returnRepo repository.ReturnRepository, publisher EventPublisher, checkout config.CheckoutConfig, logger *logrus.Logger) OrderService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &orderService{
		orderRepo:  orderRepo,
		returnRepo: returnRepo,
		events:     publisher,
		checkout:   checkout,
		logger:     logger.WithField("component", "order-service"),
		now:        time.Now,
	}
}

// CreateOrder places an order at checkout. Subtotal, shipping charge and total
// are computed here; the client only supplies lines, address, payment method and tax.
func (s *orderService) CreateOrder(ctx context.Context, tenantID, customerID string, req CreateOrderRequest) (*models.Order, error) {
	if err := validateCreateOrder(req); err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		TenantID:        tenantID,
		CustomerID:      customerID,
		Status:          models.OrderStatusPending,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   models.PaymentStatusPending,
		Tax:             req.Tax,
		ShippingAddress: req.ShippingAddress,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   item.ProductID,
			ProductName: strings.TrimSpace(item.Name),
			Price:       item.Price,
			Quantity:    item.Quantity,
			Size:        item.Size,
			Color:       item.Color,
			Image:       item.Image,
			CreatedAt:   now,
		})
	}
	order.ComputeTotals()
	order.ShippingCharge = s.shippingChargeFor(order.Subtotal)
	order.ComputeTotals()

	if err := s.orderRepo.Create(ctx, order, customerID); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantID":    tenantID,
		"orderNumber": order.OrderNumber,
		"total":       order.Total,
	}).Info("Order placed")
	s.publish("order.created", s.events.PublishOrderCreated(ctx, order))
	return order, nil
}

func (s *orderService) shippingChargeFor(subtotal float64) float64 {
	if s.checkout.FreeShippingThreshold > 0 && subtotal >= s.checkout.FreeShippingThreshold {
		return 0
	}
	return s.checkout.ShippingCharge
}

func validateCreateOrder(req CreateOrderRequest) error {
	invalid := func(format string, args ...interface{}) error {
		return &models.ValidationError{Kind: models.ValidationInvalidOrder, Message: fmt.Sprintf(format, args...)}
	}

	if len(req.Items) == 0 {
		return invalid("order must contain at least one item")
	}
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity <= 0 || item.Price <= 0 {
			return &models.ValidationError{Kind: models.ValidationInvalidOrder, ProductID: item.ProductID, Message: "item needs a product, a positive price and a positive quantity"}
		}
	}
	if !req.PaymentMethod.IsValid() {
		return invalid("unsupported payment method %q", req.PaymentMethod)
	}
	if req.Tax < 0 {
		return invalid("tax must not be negative")
	}

	addr := req.ShippingAddress
	if addr.FullName == "" || addr.Mobile == "" || addr.AddressLine1 == "" || addr.City == "" || addr.State == "" || addr.PostalCode == "" {
		return invalid("shipping address is incomplete")
	}
	return nil
}

// GetOrder retrieves an order. Customers only see their own orders; anything
// else is reported as not found.
func (s *orderService) GetOrder(ctx context.Context, tenantID, customerID string, id uuid.UUID) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if customerID != "" && order.CustomerID != customerID {
		return nil, repository.ErrNotFound
	}
	return order, nil
}

// ListOrders retrieves orders with filtering and pagination
func (s *orderService) ListOrders(ctx context.Context, tenantID string, filters OrderListFilters) (*OrderListResponse, error) {
	page, limit := normalizePaging(filters.Page, filters.Limit)

	orders, total, err := s.orderRepo.List(ctx, repository.OrderFilters{
		TenantID:   tenantID,
		CustomerID: filters.CustomerID,
		Status:     filters.Status,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return &OrderListResponse{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

// GetOrderTracking returns the progress steps and the order timeline
func (s *orderService) GetOrderTracking(ctx context.Context, tenantID, customerID string, id uuid.UUID) (*OrderTrackingResponse, error) {
	order, err := s.GetOrder(ctx, tenantID, customerID, id)
	if err != nil {
		return nil, err
	}

	timeline, err := s.orderRepo.GetTimeline(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order timeline: %w", err)
	}

	return &OrderTrackingResponse{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
		ReturnStatus:   order.ReturnStatus,
		TrackingNumber: order.TrackingNumber,
		DeliveredAt:    order.DeliveredAt,
		Steps:          models.BuildTrackerSteps(order.Status, order.ReturnStatus),
		Timeline:       timeline,
	}, nil
}

// CheckReturnEligibility reports whether the customer may start a return right now
func (s *orderService) CheckReturnEligibility(ctx context.Context, tenantID, customerID string, id uuid.UUID) (*models.EligibilityResult, error) {
	order, err := s.GetOrder(ctx, tenantID, customerID, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.returnRepo.ExistsForOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing returns: %w", err)
	}

	result := models.CheckReturnEligibility(order, exists, s.now())
	return &result, nil
}

// CancelOrder lets a customer cancel their own order before it ships
func (s *orderService) CancelOrder(ctx context.Context, tenantID, customerID string, id uuid.UUID) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDUncached(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, repository.ErrNotFound
	}
	return s.transition(ctx, order, models.OrderStatusCancelled, models.ChangedBy{ID: customerID, Role: models.RoleCustomer})
}

// UpdateOrderStatus applies a staff status change through the transition table
func (s *orderService) UpdateOrderStatus(ctx context.Context, tenantID string, id uuid.UUID, status models.OrderStatus, actor string) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDUncached(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, status, models.ChangedBy{ID: actor, Role: models.RoleAdmin})
}

func (s *orderService) transition(ctx context.Context, order *models.Order, to models.OrderStatus, by models.ChangedBy) (*models.Order, error) {
	if err := models.ValidateOrderStatusTransition(order.Status, to); err != nil {
		return nil, err
	}

	previous := order.Status
	if err := s.orderRepo.UpdateStatus(ctx, order, to, by.ID, s.now()); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"orderNumber": order.OrderNumber,
		"from":        previous,
		"to":          to,
		"actor":       by.ID,
		"role":        by.Role,
	}).Info("Order status changed")
	s.publish("order.status_changed", s.events.PublishOrderStatusChanged(ctx, order, previous, by))
	return order, nil
}

// UpdatePaymentStatus sets the payment status; any known status is accepted
func (s *orderService) UpdatePaymentStatus(ctx context.Context, tenantID string, id uuid.UUID, status models.PaymentStatus, actor string) (*models.Order, error) {
	if err := models.ValidatePaymentStatus(status); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByIDUncached(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == status {
		return order, nil
	}

	previous := order.PaymentStatus
	if err := s.orderRepo.UpdatePaymentStatus(ctx, order, status, actor, s.now()); err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}
	s.publish("order.payment_status_changed", s.events.PublishPaymentStatusChanged(ctx, order, previous))
	return order, nil
}

// SetTrackingNumber records the courier tracking number
func (s *orderService) SetTrackingNumber(ctx context.Context, tenantID string, id uuid.UUID, trackingNumber, actor string) (*models.Order, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, &models.ValidationError{Kind: models.ValidationInvalidOrder, Message: "tracking number is required"}
	}

	order, err := s.orderRepo.GetByIDUncached(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, &models.ValidationError{Kind: models.ValidationInvalidOrder, Message: "cannot add tracking to a cancelled order"}
	}

	if err := s.orderRepo.UpdateTrackingNumber(ctx, order, trackingNumber, actor, s.now()); err != nil {
		return nil, fmt.Errorf("failed to set tracking number: %w", err)
	}
	return order, nil
}

// GetValidStatusTransitions lists the statuses the order may move to next
func (s *orderService) GetValidStatusTransitions(ctx context.Context, tenantID string, id uuid.UUID) (*ValidTransitionsResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	next := models.GetNextValidOrderStatuses(order.Status)
	if next == nil {
		next = []models.OrderStatus{}
	}
	return &ValidTransitionsResponse{
		OrderID:              order.ID,
		CurrentOrderStatus:   order.Status,
		CurrentPaymentStatus: order.PaymentStatus,
		ValidOrderStatuses:   next,
		ValidPaymentStatuses: []models.PaymentStatus{
			models.PaymentStatusPending,
			models.PaymentStatusCompleted,
			models.PaymentStatusFailed,
			models.PaymentStatusRefunded,
		},
	}, nil
}

func (s *orderService) publish(eventType string, err error) {
	if err != nil {
		s.logger.WithError(err).WithField("eventType", eventType).Warn("Failed to publish event")
	}
}

func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}
