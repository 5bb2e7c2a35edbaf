package models

import (
	"errors"
	"fmt"
)

// ErrInvalidStatusTransition is matched by every *InvalidStatusTransitionError
var ErrInvalidStatusTransition = errors.New("invalid status transition")

// ErrIneligibleForReturn is matched by every *IneligibleError
var ErrIneligibleForReturn = errors.New("ineligible for return")

// InvalidStatusTransitionError reports a transition that is not an edge of
// the entity's state machine
type InvalidStatusTransitionError struct {
	Entity string // "order", "payment" or "return"
	From   string
	To     string
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("invalid %s status transition from %s to %s", e.Entity, e.From, e.To)
}

func (e *InvalidStatusTransitionError) Is(target error) bool {
	return target == ErrInvalidStatusTransition
}

// ValidationKind identifies which rule a return submission broke
type ValidationKind string

const (
	ValidationEmptySelection         ValidationKind = "EMPTY_SELECTION"
	ValidationMissingOverallReason   ValidationKind = "MISSING_OVERALL_REASON"
	ValidationMissingItemReason      ValidationKind = "MISSING_ITEM_REASON"
	ValidationQuantityExceedsOrdered ValidationKind = "QUANTITY_EXCEEDS_ORDERED"
	ValidationInvalidReturnType      ValidationKind = "INVALID_RETURN_TYPE"
	ValidationInvalidQuantity        ValidationKind = "INVALID_QUANTITY"
	ValidationItemNotInOrder         ValidationKind = "ITEM_NOT_IN_ORDER"
	ValidationDuplicateItem          ValidationKind = "DUPLICATE_ITEM"
	ValidationAmbiguousItem          ValidationKind = "AMBIGUOUS_ITEM"
	ValidationInvalidPaymentStatus   ValidationKind = "INVALID_PAYMENT_STATUS"
	ValidationInvalidOrder           ValidationKind = "INVALID_ORDER"
	ValidationInvalidReturnStatus    ValidationKind = "INVALID_RETURN_STATUS"
	ValidationSlipUnavailable        ValidationKind = "SLIP_UNAVAILABLE"
)

// ValidationError is a caller error in a submitted payload
type ValidationError struct {
	Kind      ValidationKind
	ProductID string // offending item, when the rule is per item
	Message   string
}

func (e *ValidationError) Error() string {
	if e.ProductID != "" {
		return fmt.Sprintf("%s: %s (item %s)", e.Kind, e.Message, e.ProductID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newValidationError(kind ValidationKind, productID, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Kind: kind, ProductID: productID, Message: fmt.Sprintf(format, args...)}
}

// IneligibleError carries the reason a return cannot be started
type IneligibleError struct {
	Reason string
}

func (e *IneligibleError) Error() string {
	return "order is not eligible for return: " + e.Reason
}

func (e *IneligibleError) Is(target error) bool {
	return target == ErrIneligibleForReturn
}

// IsValidationKind reports whether err is a ValidationError of the given kind
func IsValidationKind(err error, kind ValidationKind) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Kind == kind
}
