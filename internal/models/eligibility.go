package models

import "time"

// ReturnWindowDays is how long after delivery a return may be requested
const ReturnWindowDays = 7

// Ineligibility reasons, in the order they are checked
const (
	ReasonNotDelivered  = "order not yet delivered"
	ReasonReturnExists  = "return already requested/in progress"
	ReasonWindowExpired = "return window expired"
)

// EligibilityResult answers whether a return may be started for an order right now
type EligibilityResult struct {
	Eligible      bool   `json:"eligible"`
	DaysRemaining *int   `json:"daysRemaining,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Order         *Order `json:"order,omitempty"`
}

// Err converts an ineligible result into an *IneligibleError, or nil when eligible
func (r EligibilityResult) Err() error {
	if r.Eligible {
		return nil
	}
	return &IneligibleError{Reason: r.Reason}
}

// CheckReturnEligibility decides whether a return may be initiated for order.
// hasExistingReturn covers returns stored separately from the order row.
// It never mutates the order.
func CheckReturnEligibility(order *Order, hasExistingReturn bool, now time.Time) EligibilityResult {
	if order.Status != OrderStatusDelivered || order.DeliveredAt == nil {
		return EligibilityResult{Reason: ReasonNotDelivered}
	}
	if hasExistingReturn || order.HasReturn() {
		return EligibilityResult{Reason: ReasonReturnExists}
	}

	days := DaysSince(*order.DeliveredAt, now)
	if days > ReturnWindowDays {
		return EligibilityResult{Reason: ReasonWindowExpired}
	}

	remaining := ReturnWindowDays - days
	if remaining < 0 {
		remaining = 0
	}
	return EligibilityResult{Eligible: true, DaysRemaining: &remaining, Order: order}
}

// DaysSince returns the whole days elapsed between t and now, rounded down.
// A t in the future counts as zero days.
func DaysSince(t, now time.Time) int {
	elapsed := now.Sub(t)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}
