package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound = errors.New("user not found")

	// ErrInsufficientPoints indicates the user's balance cannot cover the
	// requested redemption.
	ErrInsufficientPoints = errors.New("insufficient points")
)

// PointCause labels an entry in the point ledger.
type PointCause string

const (
	PointEarned   PointCause = "EARNED"
	PointRedeemed PointCause = "REDEEMED"
	PointReversed PointCause = "REVERSED"
)

// User is the slice of the user record the order workflows need.
type User struct {
	ID        int64
	Email     string
	Name      string
	Points    int64
	CreatedAt time.Time
}

// PointTransaction is one immutable entry in the point ledger, recorded
// alongside every balance change for audit and reconciliation.
type PointTransaction struct {
	ID        int64
	UserID    int64
	Cause     PointCause
	Amount    int64 // signed: negative for redemption
	OrderID   string
	CreatedAt time.Time
}

// Store owns the user point balance in PostgreSQL. Balance mutations are
// single conditional UPDATE statements, so two concurrent requests against
// the same user cannot lose an update.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get fetches a user by id.
func (s *Store) Get(ctx context.Context, userID int64) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, name, points, created_at
		FROM users
		WHERE id = $1`, userID).
		Scan(&u.ID, &u.Email, &u.Name, &u.Points, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// ApplyPointChange debits redeem points and credits earn points in one
// conditional update, guarded by the current balance covering the debit.
// Ledger rows for the redemption and the accrual are written in the same
// transaction. Returns the new balance.
func (s *Store) ApplyPointChange(ctx context.Context, userID, redeem, earn int64, orderID string) (int64, error) {
	var balance int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var current int64
		err := tx.QueryRow(ctx, `SELECT points FROM users WHERE id = $1`, userID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("read balance: %w", err)
		}

		err = tx.QueryRow(ctx, `
			UPDATE users
			SET points = points - $2 + $3
			WHERE id = $1 AND points >= $2
			RETURNING points`, userID, redeem, earn).
			Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// The user exists; only the balance guard can have failed.
				return ErrInsufficientPoints
			}
			return fmt.Errorf("update balance: %w", err)
		}

		if redeem > 0 {
			if err := insertPointTx(ctx, tx, userID, PointRedeemed, -redeem, orderID); err != nil {
				return err
			}
		}
		if earn > 0 {
			if err := insertPointTx(ctx, tx, userID, PointEarned, earn, orderID); err != nil {
				return err
			}
		}
		return nil
	})
	return balance, err
}

// ReversePointChange undoes an order's point effects on cancellation:
// redeemed points come back, earned points are clawed back, and the balance
// floors at zero so a user who has since spent earned points is not driven
// negative.
func (s *Store) ReversePointChange(ctx context.Context, userID, usedPoints, earnedPoints int64, orderID string) (int64, error) {
	delta := usedPoints - earnedPoints

	var balance int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE users
			SET points = GREATEST(0, points + $2)
			WHERE id = $1
			RETURNING points`, userID, delta).
			Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("reverse balance: %w", err)
		}
		return insertPointTx(ctx, tx, userID, PointReversed, delta, orderID)
	})
	return balance, err
}

func insertPointTx(ctx context.Context, tx pgx.Tx, userID int64, cause PointCause, amount int64, orderID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO point_transactions (user_id, cause, amount, order_id)
		VALUES ($1, $2, $3, $4)`, userID, cause, amount, orderID)
	if err != nil {
		return fmt.Errorf("record point transaction: %w", err)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
