package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"order-tracker/internal/models"
	"order-tracker/internal/services"
)

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orderService services.OrderService
	logger       *logrus.Entry
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService services.OrderService, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger.WithField("component", "order-handler"),
	}
}

// Request DTOs
type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus models.PaymentStatus `json:"paymentStatus" binding:"required"`
}

type SetTrackingNumberRequest struct {
	TrackingNumber string `json:"trackingNumber" binding:"required"`
}

// =============================================================================
// CUSTOMER-FACING STOREFRONT ENDPOINTS
// =============================================================================

// CreateOrder places an order for the authenticated customer
// @Summary Place an order
// @Description Checkout: create an order from line items, a shipping address and a payment method. Totals are computed server side.
// @Tags orders
// @Accept json
// @Produce json
// @Param order body services.CreateOrderRequest true "Order creation request"
// @Success 201 {object} models.Order
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), tenantID, customerID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// ListCustomerOrders lists orders for the authenticated customer
// @Summary List own orders
// @Tags orders
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param status query string false "Order status filter"
// @Success 200 {object} services.OrderListResponse
// @Failure 401 {object} ErrorResponse
// @Router /orders [get]
func (h *OrderHandler) ListCustomerOrders(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	filters := orderFiltersFromQuery(c)
	filters.CustomerID = customerID

	response, err := h.orderService.ListOrders(c.Request.Context(), tenantID, filters)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetCustomerOrder retrieves an order owned by the authenticated customer
// @Summary Get own order
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} models.Order
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) GetCustomerOrder(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), tenantID, customerID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// GetOrderTracking returns the progress steps and timeline of an order
// @Summary Track an order
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} services.OrderTrackingResponse
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id}/tracking [get]
func (h *OrderHandler) GetOrderTracking(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tracking, err := h.orderService.GetOrderTracking(c.Request.Context(), tenantID, customerID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, tracking)
}

// CheckReturnEligibility reports whether a return can be started for the order
// @Summary Check return eligibility
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} models.EligibilityResult
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id}/return-eligibility [get]
func (h *OrderHandler) CheckReturnEligibility(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.orderService.CheckReturnEligibility(c.Request.Context(), tenantID, customerID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelCustomerOrder cancels an order that has not shipped yet
// @Summary Cancel own order
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} models.Order
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/cancel [post]
func (h *OrderHandler) CancelCustomerOrder(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), tenantID, customerID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// =============================================================================
// ADMIN ENDPOINTS (Protected by Istio Auth + RBAC)
// =============================================================================

// ListOrders lists all orders of the tenant
// @Summary List orders
// @Tags admin-orders
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param status query string false "Order status filter"
// @Param customerId query string false "Customer filter"
// @Success 200 {object} services.OrderListResponse
// @Router /admin/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}

	filters := orderFiltersFromQuery(c)
	filters.CustomerID = c.Query("customerId")

	response, err := h.orderService.ListOrders(c.Request.Context(), tenantID, filters)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetOrder retrieves any order of the tenant
// @Summary Get order by ID
// @Tags admin-orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} models.Order
// @Failure 404 {object} ErrorResponse
// @Router /admin/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), tenantID, "", id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus moves an order along its lifecycle
// @Summary Update order status
// @Tags admin-orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body UpdateOrderStatusRequest true "New status"
// @Success 200 {object} models.Order
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/orders/{id}/status [patch]
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orderService.UpdateOrderStatus(c.Request.Context(), tenantID, id, req.Status, getActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdatePaymentStatus records a payment status change
// @Summary Update payment status
// @Tags admin-orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body UpdatePaymentStatusRequest true "New payment status"
// @Success 200 {object} models.Order
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /admin/orders/{id}/payment-status [patch]
func (h *OrderHandler) UpdatePaymentStatus(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orderService.UpdatePaymentStatus(c.Request.Context(), tenantID, id, req.PaymentStatus, getActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// SetTrackingNumber records the courier tracking number
// @Summary Set tracking number
// @Tags admin-orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body SetTrackingNumberRequest true "Tracking number"
// @Success 200 {object} models.Order
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /admin/orders/{id}/tracking [put]
func (h *OrderHandler) SetTrackingNumber(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SetTrackingNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orderService.SetTrackingNumber(c.Request.Context(), tenantID, id, req.TrackingNumber, getActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// GetValidStatusTransitions lists the statuses an order may move to next
// @Summary Get valid status transitions
// @Tags admin-orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} services.ValidTransitionsResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/orders/{id}/valid-transitions [get]
func (h *OrderHandler) GetValidStatusTransitions(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	response, err := h.orderService.GetValidStatusTransitions(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func orderFiltersFromQuery(c *gin.Context) services.OrderListFilters {
	page, limit := parsePaging(c)
	filters := services.OrderListFilters{Page: page, Limit: limit}
	if statusStr := c.Query("status"); statusStr != "" {
		status := models.OrderStatus(statusStr)
		filters.Status = &status
	}
	return filters
}
