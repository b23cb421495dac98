package coupons

import (
	"errors"
	"strings"
	"time"
)

// Coupon validation failures, reported to callers with a human-readable reason.
var (
	ErrAlreadyUsed      = errors.New("coupon has already been used")
	ErrNotYetValid      = errors.New("coupon is not yet valid")
	ErrExpired          = errors.New("coupon has expired")
	ErrMinimumNotMet    = errors.New("order amount is below the coupon minimum")
	ErrCategoryMismatch = errors.New("no order item matches the coupon category")
)

// Apply validates the user coupon against the order lines at the given time
// and returns the discount in smallest currency units. For category-restricted
// coupons both the minimum-amount check and the discount base use only the
// subtotal of matching-category lines.
func Apply(uc *UserCoupon, lines []OrderLine, now time.Time) (int64, error) {
	if uc.IsUsed {
		return 0, ErrAlreadyUsed
	}
	c := uc.Coupon
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return 0, ErrNotYetValid
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return 0, ErrExpired
	}

	applicable, matched := applicableSubtotal(c, lines)
	if c.Category != "" && !matched {
		return 0, ErrCategoryMismatch
	}
	if applicable < c.MinOrderAmount {
		return 0, ErrMinimumNotMet
	}

	return discount(c, applicable), nil
}

// applicableSubtotal sums the lines the coupon may discount. matched reports
// whether any line fell under a category restriction.
func applicableSubtotal(c Coupon, lines []OrderLine) (sum int64, matched bool) {
	for _, line := range lines {
		if c.Category != "" && !strings.EqualFold(strings.TrimSpace(line.Category), c.Category) {
			continue
		}
		sum += line.Subtotal
		matched = true
	}
	return sum, matched
}

func discount(c Coupon, applicable int64) int64 {
	switch c.Type {
	case TypeAmount:
		return min(c.DiscountAmount, applicable)
	case TypePercent:
		d := applicable * c.DiscountRate / 100
		if c.MaxDiscountAmount > 0 {
			d = min(d, c.MaxDiscountAmount)
		}
		return min(d, applicable)
	}
	return 0
}
