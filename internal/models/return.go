package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ReturnStatus represents the status of a return request
type ReturnStatus string

const (
	ReturnStatusRequested ReturnStatus = "requested" // Submitted by the customer, awaiting review
	ReturnStatusApproved  ReturnStatus = "approved"  // Approved, pickup to be arranged
	ReturnStatusRejected  ReturnStatus = "rejected"  // Rejected by the store
	ReturnStatusPickedUp  ReturnStatus = "picked_up" // Collected from the pickup address
	ReturnStatusCompleted ReturnStatus = "completed" // Refund issued or replacement sent
)

// ReturnType represents what the customer wants in exchange for the items
type ReturnType string

const (
	ReturnTypeRefund      ReturnType = "refund"
	ReturnTypeReplacement ReturnType = "replacement"
)

// IsValid reports whether t is a known return type
func (t ReturnType) IsValid() bool {
	return t == ReturnTypeRefund || t == ReturnTypeReplacement
}

// Return represents a return request against a delivered order.
// An order has at most one return; the unique index on order_id enforces it.
type Return struct {
	ID                uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID          string         `json:"tenantId" gorm:"type:varchar(255);not null;index:idx_returns_tenant_status;index:idx_returns_tenant_customer;index:idx_returns_tenant_number,unique"`
	ReturnNumber      string         `json:"returnNumber" gorm:"not null;index:idx_returns_tenant_number,unique"`
	OrderID           uuid.UUID      `json:"orderId" gorm:"type:uuid;not null;uniqueIndex:idx_returns_order"`
	OrderNumber       string         `json:"orderNumber" gorm:"type:varchar(64)"`
	CustomerID        string         `json:"customerId" gorm:"type:varchar(255);not null;index:idx_returns_tenant_customer"`
	Type              ReturnType     `json:"type" gorm:"type:varchar(20);not null"`
	Reason            string         `json:"reason" gorm:"type:text;not null"`
	Status            ReturnStatus   `json:"status" gorm:"type:varchar(20);not null;default:'requested';index:idx_returns_tenant_status"`
	RefundAmount      float64        `json:"refundAmount" gorm:"type:decimal(10,2);default:0"`
	AdminNotes        string         `json:"adminNotes,omitempty" gorm:"type:text"`
	PickupScheduledAt *time.Time     `json:"pickupScheduledAt,omitempty"`
	PhotoURLs         pq.StringArray `json:"photoUrls,omitempty" gorm:"type:text[]"`
	Version           int            `json:"version" gorm:"not null;default:1"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`

	PickupAddress Address `json:"pickupAddress" gorm:"embedded;embeddedPrefix:pickup_"`

	// Relationships
	Items    []ReturnItem     `json:"items" gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE"`
	Timeline []ReturnTimeline `json:"timeline,omitempty" gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE"`
}

// ReturnItem is one order line selected for return
type ReturnItem struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ReturnID    uuid.UUID `json:"returnId" gorm:"type:uuid;not null;index"`
	OrderItemID uuid.UUID `json:"orderItemId" gorm:"type:uuid"`
	ProductID   string    `json:"productId" gorm:"type:varchar(64);not null"`
	ProductName string    `json:"name" gorm:"not null"`
	Size        string    `json:"size,omitempty" gorm:"type:varchar(20)"`
	Color       string    `json:"color,omitempty" gorm:"type:varchar(50)"`
	UnitPrice   float64   `json:"unitPrice" gorm:"type:decimal(10,2);not null"`
	Quantity    int       `json:"quantity" gorm:"not null"`
	Reason      string    `json:"reason" gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ReturnTimeline tracks status changes of a return
type ReturnTimeline struct {
	ID        uuid.UUID    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ReturnID  uuid.UUID    `json:"returnId" gorm:"type:uuid;not null;index"`
	Status    ReturnStatus `json:"status" gorm:"type:varchar(20);not null"`
	Message   string       `json:"message" gorm:"type:text;not null"`
	Notes     string       `json:"notes,omitempty" gorm:"type:text"`
	CreatedBy string       `json:"createdBy,omitempty" gorm:"type:varchar(255)"`
	CreatedAt time.Time    `json:"createdAt"`
}

// TableName specifies the table name for Return
func (Return) TableName() string {
	return "returns"
}

// TableName specifies the table name for ReturnItem
func (ReturnItem) TableName() string {
	return "return_items"
}

// TableName specifies the table name for ReturnTimeline
func (ReturnTimeline) TableName() string {
	return "return_timeline"
}

// BeforeCreate hook to generate the return number: RET-YYYYMMDD-XXXXXX
func (r *Return) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.ReturnNumber == "" {
		r.ReturnNumber = "RET-" + time.Now().Format("20060102") + "-" + strings.ToUpper(uuid.New().String()[:6])
	}
	return nil
}

// CreateTimelineEntry creates a timeline entry for a status change
func (r *Return) CreateTimelineEntry(status ReturnStatus, message, notes, createdBy string, at time.Time) ReturnTimeline {
	return ReturnTimeline{
		ReturnID:  r.ID,
		Status:    status,
		Message:   message,
		Notes:     notes,
		CreatedBy: createdBy,
		CreatedAt: at,
	}
}

// CalculateRefundAmount sums the returned lines for refund returns.
// Replacements are not refunded.
func (r *Return) CalculateRefundAmount() float64 {
	if r.Type != ReturnTypeRefund {
		return 0
	}
	total := 0.0
	for _, item := range r.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return roundMoney(total)
}

// IsFinalized checks if the return is in a terminal state
func (r *Return) IsFinalized() bool {
	return IsTerminalReturnStatus(r.Status)
}
