package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus represents the lifecycle stage of a placed order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // Placed at checkout, awaiting confirmation
	OrderStatusConfirmed OrderStatus = "confirmed" // Accepted by the store
	OrderStatusShipped   OrderStatus = "shipped"   // Handed to the courier
	OrderStatusDelivered OrderStatus = "delivered" // Delivered to the customer
	OrderStatusCancelled OrderStatus = "cancelled" // Cancelled before shipping
)

// PaymentStatus represents the payment capture status, independent of OrderStatus
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// PaymentMethod represents how the customer pays
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"    // Cash on delivery
	PaymentMethodWallet PaymentMethod = "wallet" // External wallet, settled outside this service
)

// Order represents a placed order. Line items and the shipping address are
// snapshots taken at checkout, not live references.
type Order struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID       string         `json:"tenantId" gorm:"type:varchar(255);not null;index:idx_orders_tenant_customer;index:idx_orders_tenant_status;index:idx_orders_tenant_order_number,unique"`
	OrderNumber    string         `json:"orderNumber" gorm:"not null;index:idx_orders_tenant_order_number,unique"`
	CustomerID     string         `json:"customerId" gorm:"type:varchar(255);not null;index:idx_orders_tenant_customer"`
	Status         OrderStatus    `json:"orderStatus" gorm:"type:varchar(20);not null;default:'pending';index:idx_orders_tenant_status"`
	PaymentMethod  PaymentMethod  `json:"paymentMethod" gorm:"type:varchar(20);not null"`
	PaymentStatus  PaymentStatus  `json:"paymentStatus" gorm:"type:varchar(20);not null;default:'pending'"`
	Subtotal       float64        `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	ShippingCharge float64        `json:"shippingCharge" gorm:"type:decimal(10,2);default:0"`
	Tax            float64        `json:"tax" gorm:"type:decimal(10,2);default:0"`
	Total          float64        `json:"total" gorm:"type:decimal(10,2);not null"`
	TrackingNumber string         `json:"trackingNumber,omitempty" gorm:"type:varchar(100)"`
	ReturnStatus   *ReturnStatus  `json:"returnStatus,omitempty" gorm:"type:varchar(20)"`
	ReturnID       *uuid.UUID     `json:"returnId,omitempty" gorm:"type:uuid"`
	DeliveredAt    *time.Time     `json:"deliveredAt,omitempty"`
	Version        int            `json:"version" gorm:"not null;default:1"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	ShippingAddress Address `json:"shippingAddress" gorm:"embedded;embeddedPrefix:ship_"`

	// Relationships
	Items    []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Timeline []OrderTimeline `json:"timeline,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// Address is a postal address snapshot
type Address struct {
	FullName     string `json:"fullName" gorm:"type:varchar(255)"`
	Mobile       string `json:"mobile" gorm:"type:varchar(20)"`
	AddressLine1 string `json:"addressLine1" gorm:"type:varchar(255)"`
	AddressLine2 string `json:"addressLine2,omitempty" gorm:"type:varchar(255)"`
	City         string `json:"city" gorm:"type:varchar(100)"`
	State        string `json:"state" gorm:"type:varchar(100)"`
	PostalCode   string `json:"postalCode" gorm:"type:varchar(20)"`
}

// IsZero reports whether no address field has been filled in
func (a Address) IsZero() bool {
	return a == Address{}
}

// String renders the address on multiple lines, skipping empty parts
func (a Address) String() string {
	lines := []string{a.FullName, a.AddressLine1}
	if a.AddressLine2 != "" {
		lines = append(lines, a.AddressLine2)
	}
	lines = append(lines, fmt.Sprintf("%s, %s %s", a.City, a.State, a.PostalCode))
	if a.Mobile != "" {
		lines = append(lines, "Mobile: "+a.Mobile)
	}
	return strings.Join(lines, "\n")
}

// OrderItem is a line item captured at checkout
type OrderItem struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderID     uuid.UUID `json:"orderId" gorm:"type:uuid;not null;index"`
	ProductID   string    `json:"productId" gorm:"type:varchar(64);not null"`
	ProductName string    `json:"name" gorm:"not null"`
	Price       float64   `json:"price" gorm:"type:decimal(10,2);not null"`
	Quantity    int       `json:"quantity" gorm:"not null"`
	Size        string    `json:"size,omitempty" gorm:"type:varchar(20)"`
	Color       string    `json:"color,omitempty" gorm:"type:varchar(50)"`
	Image       string    `json:"image,omitempty" gorm:"type:varchar(500)"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LineTotal returns price times quantity
func (i OrderItem) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

// OrderTimeline records an event in the life of an order
type OrderTimeline struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderID     uuid.UUID `json:"orderId" gorm:"type:uuid;not null;index"`
	Event       string    `json:"event" gorm:"not null"`
	Description string    `json:"description" gorm:"not null"`
	Timestamp   time.Time `json:"timestamp" gorm:"not null"`
	CreatedBy   string    `json:"createdBy"`
}

// Roles that can change an order
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// ChangedBy identifies who applied a change and in which capacity
type ChangedBy struct {
	ID   string
	Role string
}

// Timeline event names
const (
	TimelineOrderCreated         = "ORDER_CREATED"
	TimelineStatusChanged        = "STATUS_CHANGED"
	TimelinePaymentStatusChanged = "PAYMENT_STATUS_CHANGED"
	TimelineTrackingAdded        = "TRACKING_ADDED"
	TimelineReturnRequested      = "RETURN_REQUESTED"
	TimelineReturnStatusChanged  = "RETURN_STATUS_CHANGED"
)

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "orders"
}

// TableName specifies the table name for OrderItem
func (OrderItem) TableName() string {
	return "order_items"
}

// TableName specifies the table name for OrderTimeline
func (OrderTimeline) TableName() string {
	return "order_timeline"
}

// BeforeCreate hook to generate order number
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = generateOrderNumber(time.Now())
	}
	return nil
}

// generateOrderNumber creates a display order number: ORD-YYYYMMDD-XXXXXX
func generateOrderNumber(now time.Time) string {
	return "ORD-" + now.Format("20060102") + "-" + strings.ToUpper(uuid.New().String()[:6])
}

// ComputeTotals fills Subtotal and Total from the items and charges.
// Total always equals Subtotal + ShippingCharge + Tax.
func (o *Order) ComputeTotals() {
	subtotal := 0.0
	for _, item := range o.Items {
		subtotal += item.LineTotal()
	}
	o.Subtotal = roundMoney(subtotal)
	o.Total = roundMoney(o.Subtotal + o.ShippingCharge + o.Tax)
}

// FindLines returns the indexes of the order lines a return selection refers to.
// An order line id pins a single line; otherwise the product id is narrowed by
// size and color when they are given.
func (o *Order) FindLines(sel ReturnItemRequest) []int {
	var matches []int
	for i, line := range o.Items {
		switch {
		case sel.OrderItemID != nil:
			if line.ID != *sel.OrderItemID || (sel.ProductID != "" && sel.ProductID != line.ProductID) {
				continue
			}
		case line.ProductID != sel.ProductID:
			continue
		case sel.Size != "" && !strings.EqualFold(sel.Size, line.Size):
			continue
		case sel.Color != "" && !strings.EqualFold(sel.Color, line.Color):
			continue
		}
		matches = append(matches, i)
	}
	return matches
}

// HasReturn reports whether a return has already been attached to the order
func (o *Order) HasReturn() bool {
	return o.ReturnID != nil || o.ReturnStatus != nil
}

func roundMoney(v float64) float64 {
	if v < 0 {
		return -roundMoney(-v)
	}
	return float64(int64(v*100+0.5)) / 100
}
