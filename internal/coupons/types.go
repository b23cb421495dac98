package coupons

import "time"

// Type is the coupon discount kind.
type Type string

const (
	TypeAmount  Type = "AMOUNT"  // flat discount
	TypePercent Type = "PERCENT" // rate discount, optionally capped
)

// Coupon defines a discount. Zero values mean "no restriction": a zero
// MinOrderAmount imposes no minimum, an empty Category applies to every
// product, a zero MaxDiscountAmount leaves a percent discount uncapped, and
// nil window bounds leave the coupon valid indefinitely on that side.
type Coupon struct {
	ID                int64
	Name              string
	Type              Type
	DiscountAmount    int64 // AMOUNT coupons
	DiscountRate      int64 // PERCENT coupons, whole percent
	MaxDiscountAmount int64
	MinOrderAmount    int64
	Category          string
	ValidFrom         *time.Time
	ValidUntil        *time.Time
}

// UserCoupon binds a coupon to a user with a one-time used flag. Flipping
// IsUsed is the only mutation the order workflow performs on it.
type UserCoupon struct {
	ID       int64
	UserID   int64
	Coupon   Coupon
	IsUsed   bool
	UsedAt   *time.Time
	IssuedAt time.Time
}

// OrderLine is the minimal view of a line item the discount math needs.
type OrderLine struct {
	Category string
	Subtotal int64 // price * quantity, smallest currency unit
}
