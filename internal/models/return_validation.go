package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateReturnRequest is the customer payload for starting a return
type CreateReturnRequest struct {
	OrderID       uuid.UUID           `json:"orderId" binding:"required"`
	Type          ReturnType          `json:"type"`
	Reason        string              `json:"reason"`
	Items         []ReturnItemRequest `json:"items"`
	PickupAddress *Address            `json:"pickupAddress,omitempty"`
	PhotoURLs     []string            `json:"photoUrls,omitempty"`
}

// ReturnItemRequest selects an order line and quantity for return.
// OrderItemID identifies the line exactly; without it the product id, narrowed
// by size and color, must match a single line.
type ReturnItemRequest struct {
	OrderItemID *uuid.UUID `json:"orderItemId,omitempty"`
	ProductID   string     `json:"productId"`
	Size        string     `json:"size,omitempty"`
	Color       string     `json:"color,omitempty"`
	Quantity    int        `json:"quantity"`
	Reason      string     `json:"reason"`
}

// ValidateReturnRequest checks a return payload against the order it targets.
// The first broken rule is reported as a *ValidationError.
func ValidateReturnRequest(order *Order, req *CreateReturnRequest) error {
	_, err := resolveReturnLines(order, req)
	return err
}

// resolveReturnLines validates req and returns, per selected item, the index
// of the order line it refers to
func resolveReturnLines(order *Order, req *CreateReturnRequest) ([]int, error) {
	if len(req.Items) == 0 {
		return nil, newValidationError(ValidationEmptySelection, "", "select at least one item to return")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, newValidationError(ValidationMissingOverallReason, "", "a reason for the return is required")
	}
	if !req.Type.IsValid() {
		return nil, newValidationError(ValidationInvalidReturnType, "", "return type must be refund or replacement, got %q", req.Type)
	}

	lines := make([]int, 0, len(req.Items))
	seen := make(map[int]bool, len(req.Items))
	for _, item := range req.Items {
		if strings.TrimSpace(item.Reason) == "" {
			return nil, newValidationError(ValidationMissingItemReason, item.ProductID, "a reason is required for every selected item")
		}
		if item.Quantity <= 0 {
			return nil, newValidationError(ValidationInvalidQuantity, item.ProductID, "quantity must be a positive integer, got %d", item.Quantity)
		}

		matches := order.FindLines(item)
		switch len(matches) {
		case 0:
			return nil, newValidationError(ValidationItemNotInOrder, item.ProductID, "item is not part of order %s", order.OrderNumber)
		case 1:
		default:
			return nil, newValidationError(ValidationAmbiguousItem, item.ProductID,
				"%d order lines match, select one by orderItemId or size and color", len(matches))
		}

		idx := matches[0]
		if seen[idx] {
			return nil, newValidationError(ValidationDuplicateItem, item.ProductID, "item selected more than once")
		}
		seen[idx] = true

		line := order.Items[idx]
		if item.Quantity > line.Quantity {
			return nil, newValidationError(ValidationQuantityExceedsOrdered, item.ProductID,
				"requested %d but only %d ordered", item.Quantity, line.Quantity)
		}
		lines = append(lines, idx)
	}
	return lines, nil
}

// BuildReturn validates req and constructs the Return in the requested state.
// Item details are copied from the order lines; the pickup address falls back
// to the order's shipping address.
func BuildReturn(order *Order, req *CreateReturnRequest, now time.Time) (*Return, error) {
	lines, err := resolveReturnLines(order, req)
	if err != nil {
		return nil, err
	}

	ret := &Return{
		TenantID:      order.TenantID,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerID:    order.CustomerID,
		Type:          req.Type,
		Reason:        strings.TrimSpace(req.Reason),
		Status:        ReturnStatusRequested,
		PickupAddress: order.ShippingAddress,
		PhotoURLs:     req.PhotoURLs,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.PickupAddress != nil && !req.PickupAddress.IsZero() {
		ret.PickupAddress = *req.PickupAddress
	}

	for i, item := range req.Items {
		line := order.Items[lines[i]]
		ret.Items = append(ret.Items, ReturnItem{
			OrderItemID: line.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Size:        line.Size,
			Color:       line.Color,
			UnitPrice:   line.Price,
			Quantity:    item.Quantity,
			Reason:      strings.TrimSpace(item.Reason),
			CreatedAt:   now,
		})
	}
	ret.RefundAmount = ret.CalculateRefundAmount()
	return ret, nil
}
