package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels. Callers match with errors.Is; the structured types below carry detail
// and report themselves as the matching sentinel.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrCouponInvalid      = errors.New("coupon not usable")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrConflict           = errors.New("conflicting update")
	ErrPersistence        = errors.New("persistence failure")
)

// ValidationError rejects bad input before anything is mutated.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// InsufficientStockError lists every product of an order attempt that could not be reserved.
type InsufficientStockError struct {
	ProductIDs []string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for products: %s", strings.Join(e.ProductIDs, ", "))
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// TransitionError is returned when an order status change is not allowed by the state machine.
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot move order from '%s' to '%s'", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// Coupon refusal reasons.
const (
	CouponReasonNotFound    = "not_found"
	CouponReasonInactive    = "inactive"
	CouponReasonNotStarted  = "not_started"
	CouponReasonExpired     = "expired"
	CouponReasonExhausted   = "exhausted"
	CouponReasonMinPurchase = "min_purchase"
	CouponReasonMalformed   = "malformed"
)

// CouponError explains why a coupon cannot be used.
type CouponError struct {
	Code   string
	Reason string
}

func (e *CouponError) Error() string {
	return fmt.Sprintf("coupon %q is not usable: %s", e.Code, e.Reason)
}

func (e *CouponError) Is(target error) bool { return target == ErrCouponInvalid }

// PersistenceError is a system failure. Reservations made before it have been released.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
