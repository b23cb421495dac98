package coupons

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCouponNotFound indicates the coupon or user-coupon row does not exist.
var ErrCouponNotFound = errors.New("coupon not found")

// Store reads coupons and user coupons from PostgreSQL and performs the
// one-time used flip.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const couponColumns = `c.id, c.name, c.type, c.discount_amount, c.discount_rate,
	c.max_discount_amount, c.min_order_amount, c.category, c.valid_from, c.valid_until`

// GetUserCoupon fetches the user's binding for a coupon, including the coupon
// definition.
func (s *Store) GetUserCoupon(ctx context.Context, userID, couponID int64) (*UserCoupon, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT uc.id, uc.user_id, uc.is_used, uc.used_at, uc.issued_at, `+couponColumns+`
		FROM user_coupons uc
		JOIN coupons c ON c.id = uc.coupon_id
		WHERE uc.user_id = $1 AND uc.coupon_id = $2`, userID, couponID)

	uc, err := scanUserCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("get user coupon: %w", err)
	}
	return uc, nil
}

// ListUnused returns the user's unused coupons, newest issued first.
func (s *Store) ListUnused(ctx context.Context, userID int64) ([]UserCoupon, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT uc.id, uc.user_id, uc.is_used, uc.used_at, uc.issued_at, `+couponColumns+`
		FROM user_coupons uc
		JOIN coupons c ON c.id = uc.coupon_id
		WHERE uc.user_id = $1 AND uc.is_used = FALSE
		ORDER BY uc.issued_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list unused coupons: %w", err)
	}
	defer rows.Close()

	var out []UserCoupon
	for rows.Next() {
		uc, err := scanUserCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user coupon: %w", err)
		}
		out = append(out, *uc)
	}
	return out, rows.Err()
}

// MarkUsed flips the one-time used flag. The WHERE guard makes the flip
// atomic: a second redemption attempt matches zero rows and reports
// ErrAlreadyUsed instead of double-spending.
func (s *Store) MarkUsed(ctx context.Context, userCouponID int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE user_coupons
		SET is_used = TRUE, used_at = NOW()
		WHERE id = $1 AND is_used = FALSE`, userCouponID)
	if err != nil {
		return fmt.Errorf("mark coupon used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyUsed
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserCoupon(row rowScanner) (*UserCoupon, error) {
	var uc UserCoupon
	err := row.Scan(&uc.ID, &uc.UserID, &uc.IsUsed, &uc.UsedAt, &uc.IssuedAt,
		&uc.Coupon.ID, &uc.Coupon.Name, &uc.Coupon.Type, &uc.Coupon.DiscountAmount,
		&uc.Coupon.DiscountRate, &uc.Coupon.MaxDiscountAmount, &uc.Coupon.MinOrderAmount,
		&uc.Coupon.Category, &uc.Coupon.ValidFrom, &uc.Coupon.ValidUntil)
	if err != nil {
		return nil, err
	}
	return &uc, nil
}
