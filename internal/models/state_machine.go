package models

// ValidOrderTransitions defines valid state transitions for OrderStatus
// Flow: pending → confirmed → shipped → delivered
// cancelled can only be reached before the order ships
var ValidOrderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
	OrderStatusDelivered: {}, // Terminal state
	OrderStatusCancelled: {}, // Terminal state
}

// ValidReturnTransitions defines valid state transitions for ReturnStatus
// Flow: requested → approved → picked_up → completed, or requested → rejected
var ValidReturnTransitions = map[ReturnStatus][]ReturnStatus{
	ReturnStatusRequested: {ReturnStatusApproved, ReturnStatusRejected},
	ReturnStatusApproved:  {ReturnStatusPickedUp},
	ReturnStatusPickedUp:  {ReturnStatusCompleted},
	ReturnStatusCompleted: {}, // Terminal state
	ReturnStatusRejected:  {}, // Terminal state
}

// orderTrackerSequence is the linear progress shown to customers
var orderTrackerSequence = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
}

// CanTransitionOrderStatus checks if a transition from one order status to another is valid
func CanTransitionOrderStatus(from, to OrderStatus) bool {
	return contains(ValidOrderTransitions[from], to)
}

// CanTransitionReturnStatus checks if a transition from one return status to another is valid
func CanTransitionReturnStatus(from, to ReturnStatus) bool {
	return contains(ValidReturnTransitions[from], to)
}

// ValidateOrderStatusTransition returns an *InvalidStatusTransitionError if the transition is invalid
func ValidateOrderStatusTransition(from, to OrderStatus) error {
	if !CanTransitionOrderStatus(from, to) {
		return &InvalidStatusTransitionError{Entity: "order", From: string(from), To: string(to)}
	}
	return nil
}

// ValidateReturnStatusTransition returns an *InvalidStatusTransitionError if the transition is invalid
func ValidateReturnStatusTransition(from, to ReturnStatus) error {
	if !CanTransitionReturnStatus(from, to) {
		return &InvalidStatusTransitionError{Entity: "return", From: string(from), To: string(to)}
	}
	return nil
}

// ValidatePaymentStatus checks membership only; payment status has no transition table
func ValidatePaymentStatus(status PaymentStatus) error {
	if !status.IsValid() {
		return newValidationError(ValidationInvalidPaymentStatus, "", "unknown payment status %q", status)
	}
	return nil
}

// GetNextValidOrderStatuses returns the list of valid next statuses for an order
func GetNextValidOrderStatuses(current OrderStatus) []OrderStatus {
	return ValidOrderTransitions[current]
}

// GetNextValidReturnStatuses returns the list of valid next statuses for a return
func GetNextValidReturnStatuses(current ReturnStatus) []ReturnStatus {
	return ValidReturnTransitions[current]
}

// IsTerminalOrderStatus checks if the order status is a terminal state
func IsTerminalOrderStatus(status OrderStatus) bool {
	return len(ValidOrderTransitions[status]) == 0
}

// IsTerminalReturnStatus checks if the return status is a terminal state
func IsTerminalReturnStatus(status ReturnStatus) bool {
	return len(ValidReturnTransitions[status]) == 0
}

// IsValid reports whether s is a known order status
func (s OrderStatus) IsValid() bool {
	_, ok := ValidOrderTransitions[s]
	return ok
}

// IsValid reports whether s is a known return status
func (s ReturnStatus) IsValid() bool {
	_, ok := ValidReturnTransitions[s]
	return ok
}

// IsValid reports whether s is a known payment status
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// IsValid reports whether m is a supported payment method
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodWallet
}

// DisplayName returns a human-readable name for the order status
func (s OrderStatus) DisplayName() string {
	switch s {
	case OrderStatusPending:
		return "Order Placed"
	case OrderStatusConfirmed:
		return "Confirmed"
	case OrderStatusShipped:
		return "Shipped"
	case OrderStatusDelivered:
		return "Delivered"
	case OrderStatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// DisplayName returns a human-readable name for the return status
func (s ReturnStatus) DisplayName() string {
	switch s {
	case ReturnStatusRequested:
		return "Return Requested"
	case ReturnStatusApproved:
		return "Approved"
	case ReturnStatusPickedUp:
		return "Picked Up"
	case ReturnStatusCompleted:
		return "Completed"
	case ReturnStatusRejected:
		return "Rejected"
	default:
		return string(s)
	}
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
