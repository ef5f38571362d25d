package service

import (
	"errors"
	"fmt"

	"github.com/fairyhunter13/love-coupon-system/internal/eligibility"
)

var (
	// ErrCouponNotFound is returned when a coupon cannot be found
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrProfileNotFound is returned when the acting user has no profile row
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNoPartner is returned when the acting user is not linked to a partner
	ErrNoPartner = errors.New("no partner linked")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAlreadyRedeemed is returned when the coupon already has a redemption
	ErrAlreadyRedeemed = errors.New("coupon already redeemed")

	// ErrNotRecipient is returned when someone other than the addressed partner tries to redeem
	ErrNotRecipient = errors.New("coupon is not addressed to you")

	// ErrNotCreator is returned when someone other than the creator tries to delete a coupon
	ErrNotCreator = errors.New("only the creator can delete this coupon")

	// ErrImageExpired is returned when a redeemed coupon's image is past its visibility window
	ErrImageExpired = errors.New("image no longer visible")

	// ErrNoImage is returned when the coupon has no image attached
	ErrNoImage = errors.New("coupon has no image")

	// ErrNotPendingDelete is returned when undoing a deletion that is not scheduled
	ErrNotPendingDelete = errors.New("coupon is not pending deletion")

	// ErrPersistence matches every *PersistenceError
	ErrPersistence = errors.New("persistence failure")

	// ErrInsufficientQuota matches *eligibility.QuotaError
	ErrInsufficientQuota = eligibility.ErrInsufficientQuota

	// ErrDailyLimitReached is returned when the actor already redeemed today
	ErrDailyLimitReached = eligibility.ErrDailyLimitReached
)

// PersistenceError wraps a store failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPersistence) match.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// domainErrors pass through persist unchanged.
var domainErrors = []error{
	ErrCouponNotFound,
	ErrProfileNotFound,
	ErrNoPartner,
	ErrInvalidRequest,
	ErrAlreadyRedeemed,
	ErrNotRecipient,
	ErrNotCreator,
	ErrImageExpired,
	ErrNoImage,
	ErrNotPendingDelete,
	ErrInsufficientQuota,
	ErrDailyLimitReached,
}

// persist classifies err: domain errors are returned as-is, anything else is a PersistenceError.
func persist(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return err
		}
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
