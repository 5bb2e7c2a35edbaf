package services

import (
	"context"
	"io"
	"time"

	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"order-tracker/internal/models"
	"order-tracker/internal/repository"
)

// fixedNow is the clock used by every service test
var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// MockOrderRepository is a mock implementation of repository.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

var _ repository.OrderRepository = (*MockOrderRepository)(nil)

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order, actor string) error {
	args := m.Called(ctx, order, actor)
	if args.Error(0) == nil {
		order.ID = uuid.New()
		order.OrderNumber = "ORD-20260314-TEST01"
	}
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByIDUncached(ctx context.Context, tenantID string, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filters repository.OrderFilters) ([]models.Order, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]models.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, order *models.Order, to models.OrderStatus, actor string, at time.Time) error {
	args := m.Called(ctx, order, to, actor, at)
	if args.Error(0) == nil {
		order.Status = to
		order.Version++
		if to == models.OrderStatusDelivered && order.DeliveredAt == nil {
			order.DeliveredAt = &at
		}
	}
	return args.Error(0)
}

func (m *MockOrderRepository) UpdatePaymentStatus(ctx context.Context, order *models.Order, to models.PaymentStatus, actor string, at time.Time) error {
	args := m.Called(ctx, order, to, actor, at)
	if args.Error(0) == nil {
		order.PaymentStatus = to
		order.Version++
	}
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateTrackingNumber(ctx context.Context, order *models.Order, trackingNumber, actor string, at time.Time) error {
	args := m.Called(ctx, order, trackingNumber, actor, at)
	if args.Error(0) == nil {
		order.TrackingNumber = trackingNumber
		order.Version++
	}
	return args.Error(0)
}

func (m *MockOrderRepository) GetTimeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderTimeline, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]models.OrderTimeline), args.Error(1)
}

func (m *MockOrderRepository) InvalidateOrder(ctx context.Context, tenantID string, orderID uuid.UUID) {
	m.Called(ctx, tenantID, orderID)
}

func (m *MockOrderRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockOrderRepository) RedisHealth(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockOrderRepository) CacheStats() *cache.CacheStats {
	return nil
}

// MockReturnRepository is a mock implementation of repository.ReturnRepository
type MockReturnRepository struct {
	mock.Mock
}

var _ repository.ReturnRepository = (*MockReturnRepository)(nil)

// WithTransaction runs the callback against the mock itself
func (m *MockReturnRepository) WithTransaction(ctx context.Context, fn func(txRepo repository.ReturnRepository) error) error {
	return fn(m)
}

func (m *MockReturnRepository) LockOrder(ctx context.Context, tenantID string, orderID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockReturnRepository) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReturnRepository) Create(ctx context.Context, ret *models.Return, order *models.Order, actor string) error {
	args := m.Called(ctx, ret, order, actor)
	if args.Error(0) == nil {
		ret.ID = uuid.New()
		ret.ReturnNumber = "RET-20260314-TEST01"
		status := ret.Status
		order.ReturnID = &ret.ID
		order.ReturnStatus = &status
		order.Version++
	}
	return args.Error(0)
}

func (m *MockReturnRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Return, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Return), args.Error(1)
}

func (m *MockReturnRepository) List(ctx context.Context, filters repository.ReturnFilters) ([]models.Return, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]models.Return), args.Get(1).(int64), args.Error(2)
}

func (m *MockReturnRepository) UpdateStatus(ctx context.Context, ret *models.Return, to models.ReturnStatus, change repository.ReturnStatusChange) error {
	args := m.Called(ctx, ret, to, change)
	if args.Error(0) == nil {
		ret.Status = to
		ret.Version++
		if change.AdminNotes != nil {
			ret.AdminNotes = *change.AdminNotes
		}
		if change.PickupScheduledAt != nil {
			ret.PickupScheduledAt = change.PickupScheduledAt
		}
	}
	return args.Error(0)
}

func (m *MockReturnRepository) GetStats(ctx context.Context, tenantID string) (*repository.ReturnStats, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ReturnStats), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

var _ EventPublisher = (*MockEventPublisher)(nil)

func (m *MockEventPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockEventPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus, by models.ChangedBy) error {
	return m.Called(ctx, order, previous, by).Error(0)
}

func (m *MockEventPublisher) PublishPaymentStatusChanged(ctx context.Context, order *models.Order, previous models.PaymentStatus) error {
	return m.Called(ctx, order, previous).Error(0)
}

func (m *MockEventPublisher) PublishReturnRequested(ctx context.Context, order *models.Order, ret *models.Return) error {
	return m.Called(ctx, order, ret).Error(0)
}

func (m *MockEventPublisher) PublishReturnStatusChanged(ctx context.Context, ret *models.Return, previous models.ReturnStatus) error {
	return m.Called(ctx, ret, previous).Error(0)
}

// Helper to create a delivered order owned by cust-1
func createTestOrder(status models.OrderStatus) *models.Order {
	order := &models.Order{
		ID:            uuid.New(),
		TenantID:      "tenant-1",
		OrderNumber:   "ORD-20260301-ABC123",
		CustomerID:    "cust-1",
		Status:        status,
		PaymentMethod: models.PaymentMethodCOD,
		PaymentStatus: models.PaymentStatusPending,
		Version:       1,
		ShippingAddress: models.Address{
			FullName:     "Asha Rao",
			Mobile:       "9876543210",
			AddressLine1: "12 MG Road",
			City:         "Bengaluru",
			State:        "KA",
			PostalCode:   "560001",
		},
		Items: []models.OrderItem{
			{ProductID: "p-shirt", ProductName: "Linen Shirt", Price: 1299, Quantity: 2, Size: "M", Color: "White"},
			{ProductID: "p-jeans", ProductName: "Slim Jeans", Price: 1999.5, Quantity: 1, Size: "32", Color: "Blue"},
		},
	}
	order.ComputeTotals()
	if status == models.OrderStatusDelivered {
		delivered := fixedNow.Add(-2 * 24 * time.Hour)
		order.DeliveredAt = &delivered
	}
	return order
}

// Helper to create a return in the given status
func createTestReturn(order *models.Order, status models.ReturnStatus) *models.Return {
	return &models.Return{
		ID:           uuid.New(),
		TenantID:     order.TenantID,
		ReturnNumber: "RET-20260314-ABC123",
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		CustomerID:   order.CustomerID,
		Type:         models.ReturnTypeRefund,
		Reason:       "Did not fit",
		Status:       status,
		RefundAmount: 2598,
		Version:      1,
		CreatedAt:    fixedNow,
		Items: []models.ReturnItem{
			{ProductID: "p-shirt", ProductName: "Linen Shirt", Size: "M", Color: "White", UnitPrice: 1299, Quantity: 2, Reason: "Too small"},
		},
		PickupAddress: order.ShippingAddress,
	}
}
