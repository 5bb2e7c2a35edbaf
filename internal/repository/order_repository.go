package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"order-tracker/internal/models"
)

// Cache TTL constants for orders
const (
	OrderCacheTTL = 10 * time.Minute
	orderCacheKey = "order:%s:%s"
)

// OrderRepository defines the interface for order data operations.
// Mutating methods compare-and-swap on the order version and append a
// timeline entry in the same transaction.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order, actor string) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Order, error)
	GetByIDUncached(ctx context.Context, tenantID string, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filters OrderFilters) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, order *models.Order, to models.OrderStatus, actor string, at time.Time) error
	UpdatePaymentStatus(ctx context.Context, order *models.Order, to models.PaymentStatus, actor string, at time.Time) error
	UpdateTrackingNumber(ctx context.Context, order *models.Order, trackingNumber, actor string, at time.Time) error
	GetTimeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderTimeline, error)
	InvalidateOrder(ctx context.Context, tenantID string, orderID uuid.UUID)
	// Health check methods
	Ping(ctx context.Context) error
	RedisHealth(ctx context.Context) error
	CacheStats() *cache.CacheStats
}

// OrderFilters represents filters for querying orders
type OrderFilters struct {
	TenantID   string
	CustomerID string
	Status     *models.OrderStatus
	Page       int
	Limit      int
}

type orderRepository struct {
	db       *gorm.DB
	redis    *redis.Client
	cache    *cache.CacheLayer
	cacheTTL time.Duration
}

// NewOrderRepository creates a new order repository with optional Redis caching
func NewOrderRepository(db *gorm.DB, redisClient *redis.Client, cacheTTL time.Duration) OrderRepository {
	repo := &orderRepository{
		db:    db,
		redis: redisClient,
	}

	if cacheTTL <= 0 {
		cacheTTL = OrderCacheTTL
	}
	repo.cacheTTL = cacheTTL
	if redisClient != nil {
		repo.cache = cache.NewCacheLayerFromClient(redisClient, cache.CacheConfig{
			L1Enabled:  true,
			L1MaxItems: 5000,
			L1TTL:      30 * time.Second,
			DefaultTTL: cacheTTL,
			KeyPrefix:  "order-tracker:orders:",
		})
	}

	return repo
}

// InvalidateOrder drops the cached copy of an order
func (r *orderRepository) InvalidateOrder(ctx context.Context, tenantID string, orderID uuid.UUID) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Delete(ctx, fmt.Sprintf(orderCacheKey, tenantID, orderID))
}

// Ping checks the database connection
func (r *orderRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return storageErr("get sql db", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storageErr("ping database", err)
	}
	return nil
}

// RedisHealth returns the health status of Redis connection
func (r *orderRepository) RedisHealth(ctx context.Context) error {
	if r.redis == nil {
		return ErrCacheDisabled
	}
	return r.redis.Ping(ctx).Err()
}

// CacheStats returns cache statistics
func (r *orderRepository) CacheStats() *cache.CacheStats {
	if r.cache == nil {
		return nil
	}
	stats := r.cache.Stats()
	return &stats
}

// Create creates a new order with its items and the initial timeline event
func (r *orderRepository) Create(ctx context.Context, order *models.Order, actor string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return translate("create order", err)
		}

		timeline := models.OrderTimeline{
			OrderID:     order.ID,
			Event:       models.TimelineOrderCreated,
			Description: "Order has been placed",
			Timestamp:   order.CreatedAt,
			CreatedBy:   actor,
		}
		if err := tx.Create(&timeline).Error; err != nil {
			return storageErr("create timeline event", err)
		}
		order.Timeline = append(order.Timeline, timeline)
		return nil
	})
}

// GetByID retrieves an order by ID, served from cache when available.
// A cache that cannot be reached is skipped and the database answers.
func (r *orderRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Order, error) {
	return r.readThrough(ctx, fmt.Sprintf(orderCacheKey, tenantID, id), func() (*models.Order, error) {
		return r.GetByIDUncached(ctx, tenantID, id)
	})
}

func (r *orderRepository) readThrough(ctx context.Context, key string, load func() (*models.Order, error)) (*models.Order, error) {
	if r.cache == nil {
		return load()
	}

	var cached models.Order
	if err := r.cache.GetJSON(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	order, err := load()
	if err != nil {
		return nil, err
	}
	_ = r.cache.SetJSON(ctx, key, order, r.cacheTTL)
	return order, nil
}

// GetByIDUncached reads an order straight from the database
func (r *orderRepository) GetByIDUncached(ctx context.Context, tenantID string, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ?", tenantID).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate("get order", err)
	}
	return &order, nil
}

// List retrieves orders with filtering and pagination
func (r *orderRepository) List(ctx context.Context, filters OrderFilters) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("tenant_id = ?", filters.TenantID)
	if filters.CustomerID != "" {
		query = query.Where("customer_id = ?", filters.CustomerID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storageErr("count orders", err)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
		if filters.Page > 0 {
			query = query.Offset((filters.Page - 1) * filters.Limit)
		}
	}

	if err := query.Preload("Items").Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, 0, storageErr("list orders", err)
	}
	return orders, total, nil
}

// UpdateStatus moves the order to a new status if nobody changed it since it was read.
// Entering delivered stamps delivered_at unless it is already set.
func (r *orderRepository) UpdateStatus(ctx context.Context, order *models.Order, to models.OrderStatus, actor string, at time.Time) error {
	updates := map[string]interface{}{
		"status":     to,
		"version":    order.Version + 1,
		"updated_at": at,
	}
	deliveredAt := order.DeliveredAt
	if to == models.OrderStatusDelivered && deliveredAt == nil {
		deliveredAt = &at
		updates["delivered_at"] = at
	}

	description := fmt.Sprintf("Order status changed from %s to %s", order.Status, to)
	err := r.casUpdate(ctx, order, updates, true, models.TimelineStatusChanged, description, actor, at)
	if err != nil {
		return err
	}

	order.Status = to
	order.DeliveredAt = deliveredAt
	return nil
}

// UpdatePaymentStatus sets the payment status
func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, order *models.Order, to models.PaymentStatus, actor string, at time.Time) error {
	updates := map[string]interface{}{
		"payment_status": to,
		"version":        order.Version + 1,
		"updated_at":     at,
	}
	description := fmt.Sprintf("Payment status changed from %s to %s", order.PaymentStatus, to)
	if err := r.casUpdate(ctx, order, updates, false, models.TimelinePaymentStatusChanged, description, actor, at); err != nil {
		return err
	}
	order.PaymentStatus = to
	return nil
}

// UpdateTrackingNumber sets the courier tracking number
func (r *orderRepository) UpdateTrackingNumber(ctx context.Context, order *models.Order, trackingNumber, actor string, at time.Time) error {
	updates := map[string]interface{}{
		"tracking_number": trackingNumber,
		"version":         order.Version + 1,
		"updated_at":      at,
	}
	description := fmt.Sprintf("Tracking number set to %s", trackingNumber)
	if err := r.casUpdate(ctx, order, updates, false, models.TimelineTrackingAdded, description, actor, at); err != nil {
		return err
	}
	order.TrackingNumber = trackingNumber
	return nil
}

// casUpdate applies updates only when the stored version (and optionally the
// status) still match the in-memory order, then writes the timeline entry
func (r *orderRepository) casUpdate(ctx context.Context, order *models.Order, updates map[string]interface{}, matchStatus bool, event, description, actor string, at time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&models.Order{}).
			Where("id = ? AND tenant_id = ? AND version = ?", order.ID, order.TenantID, order.Version)
		if matchStatus {
			query = query.Where("status = ?", order.Status)
		}

		result := query.Updates(updates)
		if result.Error != nil {
			return storageErr("update order", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}

		timeline := models.OrderTimeline{
			OrderID:     order.ID,
			Event:       event,
			Description: description,
			Timestamp:   at,
			CreatedBy:   actor,
		}
		if err := tx.Create(&timeline).Error; err != nil {
			return storageErr("create timeline event", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	order.Version++
	order.UpdatedAt = at
	r.InvalidateOrder(ctx, order.TenantID, order.ID)
	return nil
}

// GetTimeline retrieves timeline events for an order, oldest first
func (r *orderRepository) GetTimeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderTimeline, error) {
	var timeline []models.OrderTimeline
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("timestamp ASC").
		Find(&timeline).Error
	if err != nil {
		return nil, storageErr("get order timeline", err)
	}
	return timeline, nil
}
