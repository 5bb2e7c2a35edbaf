package events

import (
	"context"
	"fmt"
	"time"

	"github.com/Tesseract-Nexus/go-shared/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"order-tracker/internal/models"
)

// Event types not covered by the shared constants
const (
	OrderStatusChanged        = "order.status_changed"
	OrderReturnRequested      = "order.return_requested"
	OrderReturnStatusChanged  = "order.return_status_changed"
	OrderPaymentStatusChanged = "order.payment_status_changed"
)

const publishTimeout = 10 * time.Second

// Publisher wraps the go-shared events publisher for order and return lifecycle events
type Publisher struct {
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewPublisher connects to NATS and makes sure the orders stream exists
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if natsURL == "" {
		return nil, fmt.Errorf("NATS URL is not configured")
	}

	config := events.DefaultPublisherConfig(natsURL)
	config.Name = "order-tracker"

	publisher, err := events.NewPublisher(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create events publisher: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := publisher.EnsureStream(ctx, events.StreamOrders, []string{"order.>"}); err != nil {
		logger.WithError(err).Warn("Failed to ensure orders stream (may already exist)")
	}

	return &Publisher{
		publisher: publisher,
		logger:    logger.WithField("component", "order-events"),
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.publisher != nil {
		p.publisher.Close()
	}
}

// PublishOrderCreated publishes an order.created event
func (p *Publisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return p.publish(BuildOrderEvent(events.OrderCreated, order))
}

// PublishOrderStatusChanged publishes order.status_changed plus the specific
// lifecycle event for the new status, when there is one
func (p *Publisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus, by models.ChangedBy) error {
	for _, event := range BuildStatusChangeEvents(order, previous, by) {
		if err := p.publish(event); err != nil {
			return err
		}
	}
	return nil
}

// BuildStatusChangeEvents returns order.status_changed followed by the
// lifecycle event for the new status, if any
func BuildStatusChangeEvents(order *models.Order, previous models.OrderStatus, by models.ChangedBy) []*events.OrderEvent {
	event := BuildOrderEvent(OrderStatusChanged, order)
	event.Metadata = map[string]interface{}{
		"previousStatus": string(previous),
		"newStatus":      string(order.Status),
		"changedBy":      by.ID,
		"changedByRole":  by.Role,
	}

	var specific *events.OrderEvent
	switch order.Status {
	case models.OrderStatusConfirmed:
		specific = BuildOrderEvent(events.OrderConfirmed, order)
	case models.OrderStatusShipped:
		specific = BuildOrderEvent(events.OrderShipped, order)
	case models.OrderStatusDelivered:
		specific = BuildOrderEvent(events.OrderDelivered, order)
		if order.DeliveredAt != nil {
			specific.DeliveryDate = order.DeliveredAt.UTC().Format(time.RFC3339)
		}
	case models.OrderStatusCancelled:
		specific = BuildOrderEvent(events.OrderCancelled, order)
		specific.CancelledBy = by.Role
	default:
		return []*events.OrderEvent{event}
	}
	return []*events.OrderEvent{event, specific}
}

// PublishPaymentStatusChanged publishes order.payment_status_changed
func (p *Publisher) PublishPaymentStatusChanged(ctx context.Context, order *models.Order, previous models.PaymentStatus) error {
	event := BuildOrderEvent(OrderPaymentStatusChanged, order)
	event.Metadata = map[string]interface{}{
		"previousPaymentStatus": string(previous),
		"newPaymentStatus":      string(order.PaymentStatus),
	}
	return p.publish(event)
}

// PublishReturnRequested publishes order.return_requested
func (p *Publisher) PublishReturnRequested(ctx context.Context, order *models.Order, ret *models.Return) error {
	event := BuildOrderEvent(OrderReturnRequested, order)
	event.Metadata = returnMetadata(ret)
	return p.publish(event)
}

// PublishReturnStatusChanged publishes order.return_status_changed, and
// order.refunded when a refund return completes
func (p *Publisher) PublishReturnStatusChanged(ctx context.Context, ret *models.Return, previous models.ReturnStatus) error {
	event := returnOnlyEvent(OrderReturnStatusChanged, ret)
	event.Metadata["previousStatus"] = string(previous)
	if err := p.publish(event); err != nil {
		return err
	}

	if ret.Status == models.ReturnStatusCompleted && ret.Type == models.ReturnTypeRefund {
		refunded := returnOnlyEvent(events.OrderRefunded, ret)
		refunded.RefundAmount = ret.RefundAmount
		refunded.RefundReason = ret.Reason
		return p.publish(refunded)
	}
	return nil
}

// BuildOrderEvent creates an OrderEvent from an order model
func BuildOrderEvent(eventType string, order *models.Order) *events.OrderEvent {
	event := events.NewOrderEvent(eventType, order.TenantID)
	event.SourceID = uuid.New().String()
	event.OrderID = order.ID.String()
	event.OrderNumber = order.OrderNumber
	event.OrderDate = order.CreatedAt.Format(time.RFC3339)
	event.Status = string(order.Status)
	event.PaymentStatus = string(order.PaymentStatus)
	event.PaymentMethod = string(order.PaymentMethod)
	event.TotalAmount = order.Total
	event.Subtotal = order.Subtotal
	event.Tax = order.Tax
	event.ShippingCost = order.ShippingCharge
	event.Currency = "INR"
	event.CustomerID = order.CustomerID
	event.CustomerName = order.ShippingAddress.FullName
	event.CustomerPhone = order.ShippingAddress.Mobile
	event.TrackingNumber = order.TrackingNumber

	event.Items = make([]events.OrderItem, len(order.Items))
	for i, item := range order.Items {
		event.Items[i] = events.OrderItem{
			ProductID:  item.ProductID,
			SKU:        skuFor(item),
			Name:       item.ProductName,
			Quantity:   item.Quantity,
			UnitPrice:  item.Price,
			TotalPrice: item.LineTotal(),
		}
	}
	event.ItemCount = len(order.Items)

	if !order.ShippingAddress.IsZero() {
		event.ShippingAddress = &events.Address{
			Name:       order.ShippingAddress.FullName,
			Line1:      order.ShippingAddress.AddressLine1,
			City:       order.ShippingAddress.City,
			State:      order.ShippingAddress.State,
			PostalCode: order.ShippingAddress.PostalCode,
			Country:    "IN",
		}
	}
	return event
}

// returnOnlyEvent builds an order event when only the return row is at hand
func returnOnlyEvent(eventType string, ret *models.Return) *events.OrderEvent {
	event := events.NewOrderEvent(eventType, ret.TenantID)
	event.SourceID = uuid.New().String()
	event.OrderID = ret.OrderID.String()
	event.OrderNumber = ret.OrderNumber
	event.CustomerID = ret.CustomerID
	event.Metadata = returnMetadata(ret)
	return event
}

func returnMetadata(ret *models.Return) map[string]interface{} {
	return map[string]interface{}{
		"returnId":     ret.ID.String(),
		"returnNumber": ret.ReturnNumber,
		"returnType":   string(ret.Type),
		"returnStatus": string(ret.Status),
		"refundAmount": ret.RefundAmount,
		"itemCount":    len(ret.Items),
	}
}

// skuFor derives a variant SKU from the product and its size/colour
func skuFor(item models.OrderItem) string {
	sku := item.ProductID
	if item.Size != "" {
		sku += "-" + item.Size
	}
	if item.Color != "" {
		sku += "-" + item.Color
	}
	return sku
}

// publish sends the event asynchronously so the request path never waits on NATS
func (p *Publisher) publish(event *events.OrderEvent) error {
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		fields := logrus.Fields{
			"eventType":   event.EventType,
			"orderNumber": event.OrderNumber,
			"tenantID":    event.TenantID,
		}
		if err := p.publisher.PublishOrder(pubCtx, event); err != nil {
			p.logger.WithFields(fields).WithError(err).Error("Failed to publish order event")
			return
		}
		p.logger.WithFields(fields).Debug("Order event published")
	}()

	return nil
}
