package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"order-tracker/internal/middleware"
	"order-tracker/internal/models"
	"order-tracker/internal/repository"
	"order-tracker/internal/services"
)

// MockOrderService is a mock implementation of services.OrderService
type MockOrderService struct {
	mock.Mock
}

var _ services.OrderService = (*MockOrderService)(nil)

func (m *MockOrderService) CreateOrder(ctx context.Context, tenantID, customerID string, req services.CreateOrderRequest) (*models.Order, error) {
	args := m.Called(ctx, tenantID, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, tenantID, customerID string, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, tenantID, customerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, tenantID string, filters services.OrderListFilters) (*services.OrderListResponse, error) {
	args := m.Called(ctx, tenantID, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.OrderListResponse), args.Error(1)
}

func (m *MockOrderService) GetOrderTracking(ctx context.Context, tenantID, customerID string, id uuid.UUID) (*services.OrderTrackingResponse, error) {
	args := m.Called(ctx, tenantID, customerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.OrderTrackingResponse), args.Error(1)
}

func (m *MockOrderService) CheckReturnEligibility(ctx context.Context, tenantID, customerID string, id uuid.UUID) (*models.EligibilityResult, error) {
	args := m.Called(ctx, tenantID, customerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EligibilityResult), args.Error(1)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, tenantID, customerID string, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, tenantID, customerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, tenantID string, id uuid.UUID, status models.OrderStatus, actor string) (*models.Order, error) {
	args := m.Called(ctx, tenantID, id, status, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) UpdatePaymentStatus(ctx context.Context, tenantID string, id uuid.UUID, status models.PaymentStatus, actor string) (*models.Order, error) {
	args := m.Called(ctx, tenantID, id, status, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) SetTrackingNumber(ctx context.Context, tenantID string, id uuid.UUID, trackingNumber, actor string) (*models.Order, error) {
	args := m.Called(ctx, tenantID, id, trackingNumber, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) GetValidStatusTransitions(ctx context.Context, tenantID string, id uuid.UUID) (*services.ValidTransitionsResponse, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ValidTransitionsResponse), args.Error(1)
}

// MockReturnService is a mock implementation of services.ReturnService
type MockReturnService struct {
	mock.Mock
}

var _ services.ReturnService = (*MockReturnService)(nil)

func (m *MockReturnService) CreateReturn(ctx context.Context, tenantID, customerID string, req *models.CreateReturnRequest) (*models.Return, error) {
	args := m.Called(ctx, tenantID, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Return), args.Error(1)
}

func (m *MockReturnService) GetReturn(ctx context.Context, tenantID, customerID string, id uuid.UUID) (*models.Return, error) {
	args := m.Called(ctx, tenantID, customerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Return), args.Error(1)
}

func (m *MockReturnService) ListReturns(ctx context.Context, tenantID string, filters services.ReturnListFilters) (*services.ReturnListResponse, error) {
	args := m.Called(ctx, tenantID, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ReturnListResponse), args.Error(1)
}

func (m *MockReturnService) UpdateReturnStatus(ctx context.Context, tenantID string, id uuid.UUID, req services.UpdateReturnStatusRequest, actor string) (*models.Return, error) {
	args := m.Called(ctx, tenantID, id, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Return), args.Error(1)
}

func (m *MockReturnService) GetReturnStats(ctx context.Context, tenantID string) (*repository.ReturnStats, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ReturnStats), args.Error(1)
}

// MockSlipService is a mock implementation of services.SlipService
type MockSlipService struct {
	mock.Mock
}

func (m *MockSlipService) GenerateReturnSlip(ret *models.Return) ([]byte, error) {
	args := m.Called(ret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockExportService is a mock implementation of services.ExportService
type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) ExportReturns(ctx context.Context, tenantID string, filters services.ReturnListFilters) (*services.ReturnsExport, error) {
	args := m.Called(ctx, tenantID, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ReturnsExport), args.Error(1)
}

// MockPinger is a mock implementation of Pinger
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPinger) RedisHealth(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Helper to setup test router
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// Helper that stands in for RequireTenantID + CustomerAuth
func asCustomer(tenantID, customerID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextTenantID, tenantID)
		c.Set(middleware.ContextPrincipal, middleware.Principal{CustomerID: customerID, Role: "customer", TenantID: tenantID})
		c.Next()
	}
}

// Helper that stands in for IstioAuth on admin routes
func asStaff(tenantID, userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextTenantID, tenantID)
		c.Set("user_id", userID)
		c.Next()
	}
}

func performRequest(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// Helper to create test order
func createTestOrder(status models.OrderStatus) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		TenantID:      "tenant-1",
		OrderNumber:   "ORD-20260301-ABC123",
		CustomerID:    "cust-1",
		Status:        status,
		PaymentMethod: models.PaymentMethodCOD,
		PaymentStatus: models.PaymentStatusPending,
		Subtotal:      1299,
		Total:         1398,
		Version:       1,
		Items: []models.OrderItem{
			{ProductID: "p-shirt", ProductName: "Linen Shirt", Price: 1299, Quantity: 1},
		},
	}
}

func TestCreateOrder_Success(t *testing.T) {
	orderService := new(MockOrderService)
	handler := NewOrderHandler(orderService, testLogger())
	router := setupTestRouter()
	router.POST("/orders", asCustomer("tenant-1", "cust-1"), handler.CreateOrder)

	req := services.CreateOrderRequest{
		Items: []services.CreateOrderItemRequest{{ProductID: "p-shirt", Name: "Linen Shirt", Price: 1299, Quantity: 1}},
		ShippingAddress: models.Address{
			FullName: "Asha Rao", Mobile: "9876543210", AddressLine1: "12 MG Road",
			City: "Bengaluru", State: "KA", PostalCode: "560001",
		},
		PaymentMethod: models.PaymentMethodCOD,
	}
	order := createTestOrder(models.OrderStatusPending)
	orderService.On("CreateOrder", mock.Anything, "tenant-1", "cust-1", req).Return(order, nil)

	w := performRequest(router, http.MethodPost, "/orders", req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var got models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, order.OrderNumber, got.OrderNumber)
	orderService.AssertExpectations(t)
}

func TestCreateOrder_InvalidBody(t *testing.T) {
	orderService := new(MockOrderService)
	handler := NewOrderHandler(orderService, testLogger())
	router := setupTestRouter()
	router.POST("/orders", asCustomer("tenant-1", "cust-1"), handler.CreateOrder)

	w := performRequest(router, http.MethodPost, "/orders", map[string]interface{}{"items": []string{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	orderService.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_RequiresCustomer(t *testing.T) {
	handler := NewOrderHandler(new(MockOrderService), testLogger())
	router := setupTestRouter()
	router.POST("/orders", func(c *gin.Context) {
		c.Set(middleware.ContextTenantID, "tenant-1")
	}, handler.CreateOrder)

	w := performRequest(router, http.MethodPost, "/orders", map[string]string{})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckReturnEligibility_Handler(t *testing.T) {
	orderService := new(MockOrderService)
	handler := NewOrderHandler(orderService, testLogger())
	router := setupTestRouter()
	router.GET("/orders/:id/return-eligibility", asCustomer("tenant-1", "cust-1"), handler.CheckReturnEligibility)

	order := createTestOrder(models.OrderStatusDelivered)
	remaining := 4
	orderService.On("CheckReturnEligibility", mock.Anything, "tenant-1", "cust-1", order.ID).
		Return(&models.EligibilityResult{Eligible: true, DaysRemaining: &remaining, Order: order}, nil)

	w := performRequest(router, http.MethodGet, fmt.Sprintf("/orders/%s/return-eligibility", order.ID), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, true, got["eligible"])
	assert.Equal(t, float64(4), got["daysRemaining"])
	assert.NotContains(t, got, "reason")
}

func TestGetCustomerOrder_InvalidID(t *testing.T) {
	handler := NewOrderHandler(new(MockOrderService), testLogger())
	router := setupTestRouter()
	router.GET("/orders/:id", asCustomer("tenant-1", "cust-1"), handler.GetCustomerOrder)

	w := performRequest(router, http.MethodGet, "/orders/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", decodeError(t, w).Error)
}

func TestListCustomerOrders_ScopesToCustomer(t *testing.T) {
	orderService := new(MockOrderService)
	handler := NewOrderHandler(orderService, testLogger())
	router := setupTestRouter()
	router.GET("/orders", asCustomer("tenant-1", "cust-1"), handler.ListCustomerOrders)

	status := models.OrderStatusShipped
	orderService.On("ListOrders", mock.Anything, "tenant-1", services.OrderListFilters{
		CustomerID: "cust-1",
		Status:     &status,
		Page:       2,
		Limit:      10,
	}).Return(&services.OrderListResponse{Orders: []models.Order{}, Page: 2, Limit: 10}, nil)

	w := performRequest(router, http.MethodGet, "/orders?status=shipped&page=2&limit=10&customerId=cust-2", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	orderService.AssertExpectations(t)
}

func TestUpdateOrderStatus_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "invalid transition",
			err:        &models.InvalidStatusTransitionError{Entity: "order", From: "pending", To: "shipped"},
			wantStatus: http.StatusConflict,
			wantError:  "INVALID_STATUS_TRANSITION",
		},
		{
			name:       "not found",
			err:        repository.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantError:  "NOT_FOUND",
		},
		{
			name:       "concurrent update",
			err:        fmt.Errorf("failed to update order status: %w", repository.ErrConcurrentUpdate),
			wantStatus: http.StatusConflict,
			wantError:  "CONCURRENT_UPDATE",
		},
		{
			name:       "storage failure",
			err:        fmt.Errorf("update: %w: %w", repository.ErrStorage, errors.New("connection refused")),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "STORAGE_UNAVAILABLE",
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderService := new(MockOrderService)
			handler := NewOrderHandler(orderService, testLogger())
			router := setupTestRouter()
			router.PATCH("/admin/orders/:id/status", asStaff("tenant-1", "staff-1"), handler.UpdateOrderStatus)

			id := uuid.New()
			orderService.On("UpdateOrderStatus", mock.Anything, "tenant-1", id, models.OrderStatusShipped, "staff-1").Return(nil, tt.err)

			w := performRequest(router, http.MethodPatch, fmt.Sprintf("/admin/orders/%s/status", id), UpdateOrderStatusRequest{Status: models.OrderStatusShipped})

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, decodeError(t, w).Error)
		})
	}
}

func TestUpdatePaymentStatus_Handler(t *testing.T) {
	orderService := new(MockOrderService)
	handler := NewOrderHandler(orderService, testLogger())
	router := setupTestRouter()
	router.PATCH("/admin/orders/:id/payment-status", asStaff("tenant-1", "staff-1"), handler.UpdatePaymentStatus)

	order := createTestOrder(models.OrderStatusConfirmed)
	order.PaymentStatus = models.PaymentStatusCompleted
	orderService.On("UpdatePaymentStatus", mock.Anything, "tenant-1", order.ID, models.PaymentStatusCompleted, "staff-1").Return(order, nil)

	w := performRequest(router, http.MethodPatch, fmt.Sprintf("/admin/orders/%s/payment-status", order.ID), UpdatePaymentStatusRequest{PaymentStatus: models.PaymentStatusCompleted})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"paymentStatus":"completed"`)
}

func TestCreateReturn_ErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantError   string
		wantDetails map[string]interface{}
	}{
		{
			name:        "window expired",
			err:         &models.IneligibleError{Reason: models.ReasonWindowExpired},
			wantStatus:  http.StatusConflict,
			wantError:   "INELIGIBLE_FOR_RETURN",
			wantDetails: map[string]interface{}{"reason": models.ReasonWindowExpired},
		},
		{
			name:        "quantity exceeds ordered",
			err:         &models.ValidationError{Kind: models.ValidationQuantityExceedsOrdered, ProductID: "p-shirt", Message: "requested 3 but only 2 ordered"},
			wantStatus:  http.StatusUnprocessableEntity,
			wantError:   "QUANTITY_EXCEEDS_ORDERED",
			wantDetails: map[string]interface{}{"kind": "QUANTITY_EXCEEDS_ORDERED", "productId": "p-shirt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			returnService := new(MockReturnService)
			handler := NewReturnHandlers(returnService, new(MockSlipService), new(MockExportService), testLogger())
			router := setupTestRouter()
			router.POST("/returns", asCustomer("tenant-1", "cust-1"), handler.CreateReturn)

			returnService.On("CreateReturn", mock.Anything, "tenant-1", "cust-1", mock.AnythingOfType("*models.CreateReturnRequest")).Return(nil, tt.err)

			w := performRequest(router, http.MethodPost, "/returns", models.CreateReturnRequest{
				OrderID: uuid.New(),
				Type:    models.ReturnTypeRefund,
				Reason:  "Did not fit",
				Items:   []models.ReturnItemRequest{{ProductID: "p-shirt", Quantity: 3, Reason: "Too small"}},
			})

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantError, resp.Error)
			assert.Equal(t, tt.wantDetails, resp.Details)
		})
	}
}

func TestCreateReturn_Success(t *testing.T) {
	returnService := new(MockReturnService)
	handler := NewReturnHandlers(returnService, new(MockSlipService), new(MockExportService), testLogger())
	router := setupTestRouter()
	router.POST("/returns", asCustomer("tenant-1", "cust-1"), handler.CreateReturn)

	orderID := uuid.New()
	ret := &models.Return{ID: uuid.New(), OrderID: orderID, ReturnNumber: "RET-20260314-ABC123", Status: models.ReturnStatusRequested, Type: models.ReturnTypeRefund}
	returnService.On("CreateReturn", mock.Anything, "tenant-1", "cust-1", mock.MatchedBy(func(req *models.CreateReturnRequest) bool {
		return req.OrderID == orderID && len(req.Items) == 1
	})).Return(ret, nil)

	w := performRequest(router, http.MethodPost, "/returns", models.CreateReturnRequest{
		OrderID: orderID,
		Type:    models.ReturnTypeRefund,
		Reason:  "Did not fit",
		Items:   []models.ReturnItemRequest{{ProductID: "p-shirt", Quantity: 1, Reason: "Too small"}},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"requested"`)
	returnService.AssertExpectations(t)
}

func TestUpdateReturnStatus_Handler(t *testing.T) {
	returnService := new(MockReturnService)
	handler := NewReturnHandlers(returnService, new(MockSlipService), new(MockExportService), testLogger())
	router := setupTestRouter()
	router.PATCH("/admin/returns/:id/status", asStaff("tenant-1", "staff-1"), handler.UpdateReturnStatus)

	id := uuid.New()
	pickup := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)
	returnService.On("UpdateReturnStatus", mock.Anything, "tenant-1", id, mock.MatchedBy(func(req services.UpdateReturnStatusRequest) bool {
		return req.Status == models.ReturnStatusApproved && req.PickupScheduledAt != nil && req.PickupScheduledAt.Equal(pickup)
	}), "staff-1").Return(&models.Return{ID: id, Status: models.ReturnStatusApproved, PickupScheduledAt: &pickup}, nil)

	w := performRequest(router, http.MethodPatch, fmt.Sprintf("/admin/returns/%s/status", id), map[string]interface{}{
		"status":            "approved",
		"pickupScheduledAt": pickup.Format(time.RFC3339),
	})

	assert.Equal(t, http.StatusOK, w.Code)
	returnService.AssertExpectations(t)
}

func TestGetReturnSlip_Handler(t *testing.T) {
	returnService := new(MockReturnService)
	slipService := new(MockSlipService)
	handler := NewReturnHandlers(returnService, slipService, new(MockExportService), testLogger())
	router := setupTestRouter()
	router.GET("/returns/:id/slip", asCustomer("tenant-1", "cust-1"), handler.GetReturnSlip)

	ret := &models.Return{ID: uuid.New(), ReturnNumber: "RET-20260314-ABC123", Status: models.ReturnStatusApproved}
	returnService.On("GetReturn", mock.Anything, "tenant-1", "cust-1", ret.ID).Return(ret, nil)
	slipService.On("GenerateReturnSlip", ret).Return([]byte("%PDF-1.3"), nil)

	w := performRequest(router, http.MethodGet, fmt.Sprintf("/returns/%s/slip", ret.ID), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "RET-20260314-ABC123.pdf")
}

func TestGetReturnSlip_RejectedReturn(t *testing.T) {
	returnService := new(MockReturnService)
	slipService := new(MockSlipService)
	handler := NewReturnHandlers(returnService, slipService, new(MockExportService), testLogger())
	router := setupTestRouter()
	router.GET("/returns/:id/slip", asCustomer("tenant-1", "cust-1"), handler.GetReturnSlip)

	ret := &models.Return{ID: uuid.New(), ReturnNumber: "RET-20260314-ABC123", Status: models.ReturnStatusRejected}
	returnService.On("GetReturn", mock.Anything, "tenant-1", "cust-1", ret.ID).Return(ret, nil)
	slipService.On("GenerateReturnSlip", ret).Return(nil, &models.ValidationError{Kind: models.ValidationSlipUnavailable, Message: "rejected returns have no pickup slip"})

	w := performRequest(router, http.MethodGet, fmt.Sprintf("/returns/%s/slip", ret.ID), nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "SLIP_UNAVAILABLE", decodeError(t, w).Error)
}

func TestExportReturns_Handler(t *testing.T) {
	exportService := new(MockExportService)
	handler := NewReturnHandlers(new(MockReturnService), new(MockSlipService), exportService, testLogger())
	router := setupTestRouter()
	router.GET("/admin/returns/export", asStaff("tenant-1", "staff-1"), handler.ExportReturns)

	returnType := models.ReturnTypeReplacement
	exportService.On("ExportReturns", mock.Anything, "tenant-1", services.ReturnListFilters{
		Type:  &returnType,
		Page:  1,
		Limit: 20,
	}).Return(&services.ReturnsExport{Data: []byte("xlsx"), Rows: 1, Total: 1}, nil)

	w := performRequest(router, http.MethodGet, "/admin/returns/export?type=replacement", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "false", w.Header().Get("X-Export-Truncated"))
	exportService.AssertExpectations(t)
}

func TestExportReturns_HandlerPassesOrderFilter(t *testing.T) {
	exportService := new(MockExportService)
	handler := NewReturnHandlers(new(MockReturnService), new(MockSlipService), exportService, testLogger())
	router := setupTestRouter()
	router.GET("/admin/returns/export", asStaff("tenant-1", "staff-1"), handler.ExportReturns)

	orderID := uuid.New()
	exportService.On("ExportReturns", mock.Anything, "tenant-1", services.ReturnListFilters{
		OrderID: &orderID,
		Page:    1,
		Limit:   20,
	}).Return(&services.ReturnsExport{Data: []byte("xlsx"), Rows: 2, Total: 12000}, nil)

	w := performRequest(router, http.MethodGet, "/admin/returns/export?orderId="+orderID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get("X-Export-Truncated"))
	assert.Equal(t, "12000", w.Header().Get("X-Total-Count"))
	exportService.AssertExpectations(t)
}

func TestListReturns_InvalidOrderID(t *testing.T) {
	returnService := new(MockReturnService)
	handler := NewReturnHandlers(returnService, new(MockSlipService), new(MockExportService), testLogger())
	router := setupTestRouter()
	router.GET("/admin/returns", asStaff("tenant-1", "staff-1"), handler.ListReturns)

	w := performRequest(router, http.MethodGet, "/admin/returns?orderId=nope", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	returnService.AssertNotCalled(t, "ListReturns", mock.Anything, mock.Anything, mock.Anything)
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		dbErr      error
		redisErr   error
		wantStatus int
		wantRedis  string
	}{
		{"all healthy", nil, nil, http.StatusOK, "ok"},
		{"cache disabled", nil, repository.ErrCacheDisabled, http.StatusOK, "disabled"},
		{"database down", errors.New("db down"), nil, http.StatusServiceUnavailable, "ok"},
		{"redis down", nil, errors.New("redis down"), http.StatusServiceUnavailable, "redis down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pinger := new(MockPinger)
			pinger.On("Ping", mock.Anything).Return(tt.dbErr)
			pinger.On("RedisHealth", mock.Anything).Return(tt.redisErr)
			handler := NewHealthHandler(pinger, "order-tracker", "test")
			router := setupTestRouter()
			router.GET("/ready", handler.Ready)

			w := performRequest(router, http.MethodGet, "/ready", nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantRedis, resp.Checks["redis"])
		})
	}
}
