package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"order-tracker/internal/models"
)

// ReturnRepository defines the interface for return data operations
type ReturnRepository interface {
	// WithTransaction runs fn against a repository bound to a single transaction
	WithTransaction(ctx context.Context, fn func(txRepo ReturnRepository) error) error
	// LockOrder reads an order and holds a row lock until the transaction ends
	LockOrder(ctx context.Context, tenantID string, orderID uuid.UUID) (*models.Order, error)
	ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	Create(ctx context.Context, ret *models.Return, order *models.Order, actor string) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Return, error)
	List(ctx context.Context, filters ReturnFilters) ([]models.Return, int64, error)
	UpdateStatus(ctx context.Context, ret *models.Return, to models.ReturnStatus, change ReturnStatusChange) error
	GetStats(ctx context.Context, tenantID string) (*ReturnStats, error)
}

// ReturnFilters represents filters for querying returns
type ReturnFilters struct {
	TenantID   string
	CustomerID string
	OrderID    *uuid.UUID
	Status     *models.ReturnStatus
	Type       *models.ReturnType
	Search     string
	Page       int
	Limit      int
}

// ReturnStatusChange carries the optional fields set alongside a status change
type ReturnStatusChange struct {
	AdminNotes        *string
	PickupScheduledAt *time.Time
	Actor             string
	At                time.Time
}

// ReturnStats aggregates returns for the admin dashboard
type ReturnStats struct {
	TotalReturns  int64            `json:"totalReturns"`
	ByStatus      map[string]int64 `json:"byStatus"`
	ByType        map[string]int64 `json:"byType"`
	TotalRefunded float64          `json:"totalRefunded"`
}

type returnRepository struct {
	db *gorm.DB
}

// NewReturnRepository creates a new return repository
func NewReturnRepository(db *gorm.DB) ReturnRepository {
	return &returnRepository{db: db}
}

// WithTransaction executes fn inside a database transaction
func (r *returnRepository) WithTransaction(ctx context.Context, fn func(txRepo ReturnRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&returnRepository{db: tx})
	})
}

// LockOrder selects the order FOR UPDATE so concurrent return submissions serialize on it
func (r *returnRepository) LockOrder(ctx context.Context, tenantID string, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ?", tenantID).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, translate("lock order", err)
	}

	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&order.Items).Error; err != nil {
		return nil, storageErr("load order items", err)
	}
	return &order, nil
}

// ExistsForOrder reports whether any return, in any state, references the order
func (r *returnRepository) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Return{}).Where("order_id = ?", orderID).Count(&count).Error
	if err != nil {
		return false, storageErr("count returns", err)
	}
	return count > 0, nil
}

// Create inserts the return with its items, links it to the order and writes
// the timeline entries for both
func (r *returnRepository) Create(ctx context.Context, ret *models.Return, order *models.Order, actor string) error {
	db := r.db.WithContext(ctx)

	if err := db.Create(ret).Error; err != nil {
		return translate("create return", err)
	}

	timeline := ret.CreateTimelineEntry(ret.Status, "Return request submitted", ret.Reason, actor, ret.CreatedAt)
	if err := db.Create(&timeline).Error; err != nil {
		return storageErr("create return timeline", err)
	}
	ret.Timeline = append(ret.Timeline, timeline)

	result := db.Model(&models.Order{}).
		Where("id = ? AND tenant_id = ? AND version = ?", order.ID, order.TenantID, order.Version).
		Updates(map[string]interface{}{
			"return_id":     ret.ID,
			"return_status": ret.Status,
			"version":       order.Version + 1,
			"updated_at":    ret.CreatedAt,
		})
	if result.Error != nil {
		return storageErr("link return to order", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}

	orderEvent := models.OrderTimeline{
		OrderID:     order.ID,
		Event:       models.TimelineReturnRequested,
		Description: fmt.Sprintf("Return %s requested (%s)", ret.ReturnNumber, ret.Type),
		Timestamp:   ret.CreatedAt,
		CreatedBy:   actor,
	}
	if err := db.Create(&orderEvent).Error; err != nil {
		return storageErr("create order timeline", err)
	}

	status := ret.Status
	order.ReturnID = &ret.ID
	order.ReturnStatus = &status
	order.Version++
	return nil
}

// GetByID retrieves a return by ID with items and timeline
func (r *returnRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Return, error) {
	var ret models.Return
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Timeline", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("tenant_id = ?", tenantID).
		First(&ret, "id = ?", id).Error
	if err != nil {
		return nil, translate("get return", err)
	}
	return &ret, nil
}

// List retrieves returns with pagination and filters. A zero Limit returns every match.
func (r *returnRepository) List(ctx context.Context, filters ReturnFilters) ([]models.Return, int64, error) {
	var returns []models.Return
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Return{}).Where("tenant_id = ?", filters.TenantID)
	if filters.CustomerID != "" {
		query = query.Where("customer_id = ?", filters.CustomerID)
	}
	if filters.OrderID != nil {
		query = query.Where("order_id = ?", *filters.OrderID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		query = query.Where("return_number ILIKE ? OR order_number ILIKE ? OR reason ILIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storageErr("count returns", err)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
		if filters.Page > 0 {
			query = query.Offset((filters.Page - 1) * filters.Limit)
		}
	}

	if err := query.Preload("Items").Order("created_at DESC").Find(&returns).Error; err != nil {
		return nil, 0, storageErr("list returns", err)
	}
	return returns, total, nil
}

// UpdateStatus applies a status change guarded by version and current status,
// and mirrors the new status onto the parent order
func (r *returnRepository) UpdateStatus(ctx context.Context, ret *models.Return, to models.ReturnStatus, change ReturnStatusChange) error {
	db := r.db.WithContext(ctx)

	updates := map[string]interface{}{
		"status":     to,
		"version":    ret.Version + 1,
		"updated_at": change.At,
	}
	if change.AdminNotes != nil {
		updates["admin_notes"] = *change.AdminNotes
	}
	if change.PickupScheduledAt != nil {
		updates["pickup_scheduled_at"] = *change.PickupScheduledAt
	}

	result := db.Model(&models.Return{}).
		Where("id = ? AND tenant_id = ? AND version = ? AND status = ?", ret.ID, ret.TenantID, ret.Version, ret.Status).
		Updates(updates)
	if result.Error != nil {
		return storageErr("update return status", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}

	notes := ""
	if change.AdminNotes != nil {
		notes = *change.AdminNotes
	}
	message := fmt.Sprintf("Return status changed from %s to %s", ret.Status, to)
	timeline := ret.CreateTimelineEntry(to, message, notes, change.Actor, change.At)
	if err := db.Create(&timeline).Error; err != nil {
		return storageErr("create return timeline", err)
	}

	orderResult := db.Model(&models.Order{}).
		Where("id = ? AND tenant_id = ?", ret.OrderID, ret.TenantID).
		Updates(map[string]interface{}{
			"return_status": to,
			"version":       gorm.Expr("version + 1"),
			"updated_at":    change.At,
		})
	if orderResult.Error != nil {
		return storageErr("mirror return status", orderResult.Error)
	}

	orderEvent := models.OrderTimeline{
		OrderID:     ret.OrderID,
		Event:       models.TimelineReturnStatusChanged,
		Description: fmt.Sprintf("Return %s is now %s", ret.ReturnNumber, to.DisplayName()),
		Timestamp:   change.At,
		CreatedBy:   change.Actor,
	}
	if err := db.Create(&orderEvent).Error; err != nil {
		return storageErr("create order timeline", err)
	}

	ret.Status = to
	ret.Version++
	ret.UpdatedAt = change.At
	if change.AdminNotes != nil {
		ret.AdminNotes = *change.AdminNotes
	}
	if change.PickupScheduledAt != nil {
		ret.PickupScheduledAt = change.PickupScheduledAt
	}
	ret.Timeline = append(ret.Timeline, timeline)
	return nil
}

// GetStats retrieves return statistics for a tenant
func (r *returnRepository) GetStats(ctx context.Context, tenantID string) (*ReturnStats, error) {
	db := r.db.WithContext(ctx)
	stats := &ReturnStats{
		ByStatus: make(map[string]int64),
		ByType:   make(map[string]int64),
	}

	var statusCounts []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&models.Return{}).
		Select("status, count(*) as count").
		Where("tenant_id = ?", tenantID).
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, storageErr("count returns by status", err)
	}
	for _, sc := range statusCounts {
		stats.ByStatus[sc.Status] = sc.Count
		stats.TotalReturns += sc.Count
	}

	var typeCounts []struct {
		Type  string
		Count int64
	}
	if err := db.Model(&models.Return{}).
		Select("type, count(*) as count").
		Where("tenant_id = ?", tenantID).
		Group("type").
		Scan(&typeCounts).Error; err != nil {
		return nil, storageErr("count returns by type", err)
	}
	for _, tc := range typeCounts {
		stats.ByType[tc.Type] = tc.Count
	}

	if err := db.Model(&models.Return{}).
		Where("tenant_id = ? AND status = ? AND type = ?", tenantID, models.ReturnStatusCompleted, models.ReturnTypeRefund).
		Select("COALESCE(SUM(refund_amount), 0)").
		Scan(&stats.TotalRefunded).Error; err != nil {
		return nil, storageErr("sum refunds", err)
	}

	return stats, nil
}
