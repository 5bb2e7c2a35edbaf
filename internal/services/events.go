package services

import (
	"context"

	"order-tracker/internal/models"
)

// EventPublisher is the lifecycle event sink used by the services.
// *events.Publisher satisfies it; tests use a mock.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus, by models.ChangedBy) error
	PublishPaymentStatusChanged(ctx context.Context, order *models.Order, previous models.PaymentStatus) error
	PublishReturnRequested(ctx context.Context, order *models.Order, ret *models.Return) error
	PublishReturnStatusChanged(ctx context.Context, ret *models.Return, previous models.ReturnStatus) error
}

// noopPublisher is used when NATS is not configured
type noopPublisher struct{}

func (noopPublisher) PublishOrderCreated(context.Context, *models.Order) error { return nil }
func (noopPublisher) PublishOrderStatusChanged(context.Context, *models.Order, models.OrderStatus, models.ChangedBy) error {
	return nil
}
func (noopPublisher) PublishPaymentStatusChanged(context.Context, *models.Order, models.PaymentStatus) error {
	return nil
}
func (noopPublisher) PublishReturnRequested(context.Context, *models.Order, *models.Return) error {
	return nil
}
func (noopPublisher) PublishReturnStatusChanged(context.Context, *models.Return, models.ReturnStatus) error {
	return nil
}
