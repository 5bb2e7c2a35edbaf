package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"order-tracker/internal/models"
	"order-tracker/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReturnHandlers struct {
	returnService services.ReturnService
	slipService   services.SlipService
	exportService services.ExportService
	logger        *logrus.Entry
}

func NewReturnHandlers(returnService services.ReturnService, slipService services.SlipService, exportService services.ExportService, logger *logrus.Logger) *ReturnHandlers {
	return &ReturnHandlers{
		returnService: returnService,
		slipService:   slipService,
		exportService: exportService,
		logger:        logger.WithField("component", "return-handler"),
	}
}

// =============================================================================
// CUSTOMER-FACING STOREFRONT ENDPOINTS
// =============================================================================

// CreateReturn creates a new return request
// @Summary Create return request
// @Description Customer creates a return request for a delivered order. Eligibility is re-checked atomically with the insert.
// @Tags Returns
// @Accept json
// @Produce json
// @Param return body models.CreateReturnRequest true "Return request"
// @Success 201 {object} models.Return
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /returns [post]
func (h *ReturnHandlers) CreateReturn(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	var req models.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ret, err := h.returnService.CreateReturn(c.Request.Context(), tenantID, customerID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, ret)
}

// ListCustomerReturns lists the authenticated customer's returns
// @Summary List own returns
// @Tags Returns
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param status query string false "Return status"
// @Success 200 {object} services.ReturnListResponse
// @Router /returns [get]
func (h *ReturnHandlers) ListCustomerReturns(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	filters, ok := returnFiltersFromQuery(c)
	if !ok {
		return
	}
	filters.CustomerID = customerID

	response, err := h.returnService.ListReturns(c.Request.Context(), tenantID, filters)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetCustomerReturn retrieves one of the authenticated customer's returns
// @Summary Get own return
// @Tags Returns
// @Produce json
// @Param id path string true "Return ID"
// @Success 200 {object} models.Return
// @Failure 404 {object} ErrorResponse
// @Router /returns/{id} [get]
func (h *ReturnHandlers) GetCustomerReturn(c *gin.Context) {
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

	ret, err := h.returnService.GetReturn(c.Request.Context(), tenantID, customerID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, ret)
}

// GetReturnSlip downloads the pickup slip PDF
// @Summary Download return pickup slip
// @Tags Returns
// @Produce application/pdf
// @Param id path string true "Return ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /returns/{id}/slip [get]
func (h *ReturnHandlers) GetReturnSlip(c *gin.Context) {
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

	ret, err := h.returnService.GetReturn(c.Request.Context(), tenantID, customerID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	pdf, err := h.slipService.GenerateReturnSlip(ret)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", ret.ReturnNumber))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// =============================================================================
// ADMIN ENDPOINTS (Protected by Istio Auth + RBAC)
// =============================================================================

// ListReturns lists returns with filters
// @Summary List returns
// @Tags Returns
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param status query string false "Return status"
// @Param type query string false "Return type"
// @Param orderId query string false "Order ID"
// @Param search query string false "Return or order number"
// @Success 200 {object} services.ReturnListResponse
// @Router /admin/returns [get]
func (h *ReturnHandlers) ListReturns(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}

	filters, ok := returnFiltersFromQuery(c)
	if !ok {
		return
	}
	filters.CustomerID = c.Query("customerId")

	response, err := h.returnService.ListReturns(c.Request.Context(), tenantID, filters)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetReturn retrieves a return by ID
// @Summary Get return
// @Tags Returns
// @Produce json
// @Param id path string true "Return ID"
// @Success 200 {object} models.Return
// @Failure 404 {object} ErrorResponse
// @Router /admin/returns/{id} [get]
func (h *ReturnHandlers) GetReturn(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ret, err := h.returnService.GetReturn(c.Request.Context(), tenantID, "", id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, ret)
}

// UpdateReturnStatus advances a return
// @Summary Update return status
// @Description Moves a return along requested, approved, picked_up, completed, or rejects it. Optionally records admin notes and the pickup slot.
// @Tags Returns
// @Accept json
// @Produce json
// @Param id path string true "Return ID"
// @Param request body services.UpdateReturnStatusRequest true "Status change"
// @Success 200 {object} models.Return
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/returns/{id}/status [patch]
func (h *ReturnHandlers) UpdateReturnStatus(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateReturnStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ret, err := h.returnService.UpdateReturnStatus(c.Request.Context(), tenantID, id, req, getActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, ret)
}

// GetReturnStats returns return statistics
// @Summary Get return statistics
// @Tags Returns
// @Produce json
// @Success 200 {object} repository.ReturnStats
// @Router /admin/returns/stats [get]
func (h *ReturnHandlers) GetReturnStats(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}

	stats, err := h.returnService.GetReturnStats(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportReturns downloads the filtered returns as a spreadsheet
// @Summary Export returns
// @Tags Returns
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "Return status"
// @Param type query string false "Return type"
// @Param search query string false "Return or order number"
// @Param orderId query string false "Order ID"
// @Success 200 {file} binary
// @Header 200 {string} X-Export-Truncated "true when the row limit cut the export short"
// @Router /admin/returns/export [get]
func (h *ReturnHandlers) ExportReturns(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}

	filters, ok := returnFiltersFromQuery(c)
	if !ok {
		return
	}

	export, err := h.exportService.ExportReturns(c.Request.Context(), tenantID, filters)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("returns-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("X-Total-Count", strconv.FormatInt(export.Total, 10))
	c.Header("X-Export-Truncated", strconv.FormatBool(export.Truncated()))
	c.Data(http.StatusOK, xlsxContentType, export.Data)
}

func returnFiltersFromQuery(c *gin.Context) (services.ReturnListFilters, bool) {
	page, limit := parsePaging(c)
	filters := services.ReturnListFilters{Page: page, Limit: limit, Search: c.Query("search")}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.ReturnStatus(statusStr)
		filters.Status = &status
	}
	if typeStr := c.Query("type"); typeStr != "" {
		returnType := models.ReturnType(typeStr)
		filters.Type = &returnType
	}
	if orderIDStr := c.Query("orderId"); orderIDStr != "" {
		orderID, err := uuid.Parse(orderIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_ID", Message: "orderId must be a valid UUID"})
			return filters, false
		}
		filters.OrderID = &orderID
	}
	return filters, true
}
