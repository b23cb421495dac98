package coupons

import (
	"errors"
	"strings"
	"time"
)

// Availability is a user coupon annotated with whether it can be applied to a
// prospective order, and the reason when it cannot.
type Availability struct {
	UserCoupon
	Applicable bool
	Reason     string
}

// Evaluate annotates each user coupon with its applicability to an order of
// the given total amount and item categories. Categories are compared
// case-insensitively; a coupon without a category restriction applies to any
// order.
func Evaluate(ucs []UserCoupon, amount int64, categories []string, now time.Time) []Availability {
	normalized := make([]string, 0, len(categories))
	for _, cat := range categories {
		cat = strings.ToLower(strings.TrimSpace(cat))
		if cat != "" {
			normalized = append(normalized, cat)
		}
	}

	out := make([]Availability, 0, len(ucs))
	for _, uc := range ucs {
		// Per-category subtotals are unknown at preview time; the whole
		// amount is treated as eligible and the checkout recomputes exactly.
		var lines []OrderLine
		if uc.Coupon.Category == "" {
			lines = []OrderLine{{Subtotal: amount}}
		} else {
			for _, cat := range normalized {
				lines = append(lines, OrderLine{Category: cat, Subtotal: amount})
			}
		}

		av := Availability{UserCoupon: uc, Applicable: true}
		if _, err := Apply(&uc, lines, now); err != nil {
			av.Applicable = false
			av.Reason = reasonFor(err)
		}
		out = append(out, av)
	}
	return out
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyUsed):
		return "already used"
	case errors.Is(err, ErrNotYetValid):
		return "not yet valid"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrMinimumNotMet):
		return "minimum order amount not met"
	case errors.Is(err, ErrCategoryMismatch):
		return "category restricted"
	}
	return err.Error()
}
