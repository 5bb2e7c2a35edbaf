package handlers

import (
	"errors"
	"net/http"
	"strconv"

	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"order-tracker/internal/middleware"
	"order-tracker/internal/models"
	"order-tracker/internal/repository"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// respondError maps service errors onto HTTP statuses. Only server-side
// failures are logged at error level.
func respondError(c *gin.Context, logger *logrus.Entry, err error) {
	var (
		transitionErr *models.InvalidStatusTransitionError
		validationErr *models.ValidationError
		ineligibleErr *models.IneligibleError
	)

	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "NOT_FOUND", Message: "Resource not found"})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "INVALID_STATUS_TRANSITION",
			Message: transitionErr.Error(),
			Details: gin.H{"entity": transitionErr.Entity, "from": transitionErr.From, "to": transitionErr.To},
		})
	case errors.As(err, &ineligibleErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "INELIGIBLE_FOR_RETURN",
			Message: ineligibleErr.Error(),
			Details: gin.H{"reason": ineligibleErr.Reason},
		})
	case errors.Is(err, repository.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "CONCURRENT_UPDATE", Message: "The record was modified by another request, retry"})
	case errors.As(err, &validationErr):
		details := gin.H{"kind": validationErr.Kind}
		if validationErr.ProductID != "" {
			details["productId"] = validationErr.ProductID
		}
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   string(validationErr.Kind),
			Message: validationErr.Message,
			Details: details,
		})
	case errors.Is(err, repository.ErrStorage):
		logger.WithError(err).WithField("requestId", c.GetString(middleware.ContextRequestID)).Error("Storage failure")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "STORAGE_UNAVAILABLE", Message: "Storage is temporarily unavailable, retry later"})
	default:
		logger.WithError(err).WithField("requestId", c.GetString(middleware.ContextRequestID)).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "INTERNAL_ERROR", Message: "An unexpected error occurred"})
	}
}

// getTenantID extracts tenant ID from context
// SECURITY: RequireTenantID middleware ensures this is always set
func getTenantID(c *gin.Context) (string, bool) {
	tenantID := c.GetString(middleware.ContextTenantID)
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "MISSING_TENANT_ID",
			Message: "X-Tenant-ID header is required",
		})
		return "", false
	}
	return tenantID, true
}

// getCustomerID returns the authenticated customer
func getCustomerID(c *gin.Context) (string, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok || principal.CustomerID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "UNAUTHORIZED",
			Message: "Customer authentication required",
		})
		return "", false
	}
	return principal.CustomerID, true
}

// getActor identifies the staff member behind an admin request for the timeline
func getActor(c *gin.Context) string {
	if userID := c.GetString("user_id"); userID != "" {
		return userID
	}
	actor := gosharedmw.GetActorInfo(c)
	switch {
	case actor.ActorID != "":
		return actor.ActorID
	case actor.ActorEmail != "":
		return actor.ActorEmail
	}
	return "staff"
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "INVALID_ID",
			Message: name + " must be a valid UUID",
		})
		return uuid.Nil, false
	}
	return id, true
}

func parsePaging(c *gin.Context) (int, int) {
	page, limit := 1, 20
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	return page, limit
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "INVALID_REQUEST",
		Message: "Invalid request body",
		Details: err.Error(),
	})
}
