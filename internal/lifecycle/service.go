package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/minimall/order-backend/internal/cart"
	"github.com/minimall/order-backend/internal/coupons"
	"github.com/minimall/order-backend/internal/events"
	"github.com/minimall/order-backend/internal/orders"
	"github.com/minimall/order-backend/internal/payments"
	"github.com/minimall/order-backend/internal/users"
)

const (
	// amountTolerance is the maximum accepted drift between the client-claimed
	// amount and the server-computed final amount, in smallest currency units.
	amountTolerance = 100

	// Point accrual: 0.5% of the final amount, capped.
	earnRatePerMille = 5
	earnCap          = 5000
)

// OrderStore is the durable order persistence the lifecycle delegates to.
type OrderStore interface {
	Save(ctx context.Context, order orders.Order) (orders.Order, error)
	FindByUser(ctx context.Context, userID int64) ([]orders.Order, error)
	FindOne(ctx context.Context, userID int64, orderID string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, userID int64, orderID string, next orders.Status) (*orders.Order, error)
	Delete(ctx context.Context, userID int64, orderID string) error
}

// UserStore resolves users and applies point balance changes.
type UserStore interface {
	Get(ctx context.Context, userID int64) (*users.User, error)
	ApplyPointChange(ctx context.Context, userID, redeem, earn int64, orderID string) (int64, error)
	ReversePointChange(ctx context.Context, userID, usedPoints, earnedPoints int64, orderID string) (int64, error)
}

// CouponStore resolves user coupons and performs the one-time used flip.
type CouponStore interface {
	GetUserCoupon(ctx context.Context, userID, couponID int64) (*coupons.UserCoupon, error)
	MarkUsed(ctx context.Context, userCouponID int64) error
}

// CartSource supplies the caller's pending cart contents at checkout time.
type CartSource interface {
	Get(ctx context.Context, userID int64) ([]cart.Item, error)
	SnapshotAndClear(ctx context.Context, userID int64) ([]cart.Item, error)
}

// PaymentVerifier confirms a payment with the external gateway.
type PaymentVerifier interface {
	Verify(ctx context.Context, paymentKey, orderID string, amount int64) (*payments.Confirmation, error)
}

// EventPublisher emits order events after lifecycle transitions.
type EventPublisher interface {
	Publish(ctx context.Context, evt events.OrderEvent) error
}

// Config groups the collaborators a Service needs.
type Config struct {
	Orders    OrderStore
	Users     UserStore
	Coupons   CouponStore
	Cart      CartSource
	Verifier  PaymentVerifier
	Publisher EventPublisher
}

// Service is the order-level business workflow: creating paid orders from
// cart or direct line items, applying coupon discounts, reconciling amounts,
// adjusting point balances and cancelling paid orders with reversal of their
// point effects. All durable order reads and writes go through OrderStore.
type Service struct {
	orders    OrderStore
	users     UserStore
	coupons   CouponStore
	cart      CartSource
	verifier  PaymentVerifier
	publisher EventPublisher

	nowFunc    func() time.Time
	newOrderID func() string
}

func NewService(cfg Config) *Service {
	return &Service{
		orders:     cfg.Orders,
		users:      cfg.Users,
		coupons:    cfg.Coupons,
		cart:       cfg.Cart,
		verifier:   cfg.Verifier,
		publisher:  cfg.Publisher,
		nowFunc:    time.Now,
		newOrderID: func() string { return "DEMO_" + uuid.NewString() },
	}
}

// accounting is the server-side monetary resolution of a checkout attempt.
type accounting struct {
	actualTotal int64
	discount    int64
	finalAmount int64
	earned      int64
	userCoupon  *coupons.UserCoupon
}

// resolveAccounting computes the authoritative amounts for an order: the item
// total, the coupon discount (validated but not yet redeemed), the final
// amount after discount and points, and the point accrual. The caller-claimed
// amount is never trusted; it is only reconciled against the computed final
// amount within the fixed tolerance.
func (s *Service) resolveAccounting(ctx context.Context, userID int64, lines []coupons.OrderLine, actualTotal, claimedAmount, usedPoints, couponID int64) (*accounting, error) {
	acc := &accounting{actualTotal: actualTotal}
	now := s.nowFunc()

	if couponID != 0 {
		uc, err := s.coupons.GetUserCoupon(ctx, userID, couponID)
		if err != nil {
			return nil, err
		}
		discount, err := coupons.Apply(uc, lines, now)
		if err != nil {
			return nil, err
		}
		acc.userCoupon = uc
		acc.discount = discount
	}

	acc.finalAmount = actualTotal - acc.discount - usedPoints
	if acc.finalAmount < 0 {
		acc.finalAmount = 0
	}

	if diff := claimedAmount - acc.finalAmount; diff > amountTolerance || diff < -amountTolerance {
		return nil, fmt.Errorf("%w: claimed %d, computed %d", ErrAmountMismatch, claimedAmount, acc.finalAmount)
	}

	if usedPoints > 0 {
		user, err := s.users.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		if usedPoints > user.Points {
			return nil, users.ErrInsufficientPoints
		}
		if usedPoints > acc.finalAmount {
			return nil, ErrPointsExceedAmount
		}
	}

	acc.earned = acc.finalAmount * earnRatePerMille / 1000
	if acc.earned > earnCap {
		acc.earned = earnCap
	}
	return acc, nil
}

// commitAccounting applies the validated side effects of a checkout: the
// one-time coupon flip and the point balance change. Called only after every
// validation has passed and, for the gateway flow, after the verifier has
// confirmed the payment.
func (s *Service) commitAccounting(ctx context.Context, userID int64, acc *accounting, usedPoints int64, orderID string) error {
	if acc.userCoupon != nil {
		if err := s.coupons.MarkUsed(ctx, acc.userCoupon.ID); err != nil {
			return err
		}
	}
	if _, err := s.users.ApplyPointChange(ctx, userID, usedPoints, acc.earned, orderID); err != nil {
		return err
	}
	return nil
}

// DemoCheckout creates a paid order from caller-supplied line items without
// touching the payment gateway. The total is recomputed server-side, the
// coupon is validated and redeemed at most once, the claimed amount is
// reconciled within tolerance and the point balance is adjusted before the
// order is persisted.
func (s *Service) DemoCheckout(ctx context.Context, userID int64, in DemoCheckoutInput) (*orders.Order, error) {
	var actualTotal int64
	lines := make([]coupons.OrderLine, 0, len(in.Items))
	items := make([]orders.OrderItem, 0, len(in.Items))
	for _, li := range in.Items {
		subtotal := li.Price * li.Quantity
		actualTotal += subtotal
		lines = append(lines, coupons.OrderLine{Category: li.Category, Subtotal: subtotal})
		items = append(items, orders.OrderItem{
			ProductID:       li.ProductID,
			ProductName:     li.ProductName,
			ProductImage:    li.ProductImage,
			Quantity:        li.Quantity,
			PriceAtPurchase: li.Price,
		})
	}

	acc, err := s.resolveAccounting(ctx, userID, lines, actualTotal, in.Amount, in.UsedPoints, in.CouponID)
	if err != nil {
		return nil, err
	}

	orderID := s.newOrderID()
	if err := s.commitAccounting(ctx, userID, acc, in.UsedPoints, orderID); err != nil {
		return nil, err
	}

	order := orders.Order{
		ID:           orderID,
		UserID:       userID,
		OrderName:    in.OrderName,
		TotalAmount:  acc.finalAmount,
		Status:       orders.StatusPaid,
		PaymentKey:   "DEMO_KEY_" + uuid.NewString(),
		CreatedAt:    s.nowFunc(),
		UsedPoints:   in.UsedPoints,
		EarnedPoints: acc.earned,
		Items:        items,
	}
	saved, err := s.orders.Save(ctx, order)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeOrderPaid, &saved)
	return &saved, nil
}

// Checkout confirms a payment with the gateway and persists the resulting
// order built from the caller's pending cart. Accounting is computed from the
// cart before verification so a tampered claimed amount is rejected without a
// gateway call; coupon, point and cart effects are applied only after the
// verifier succeeds. A verifier failure propagates verbatim and persists
// nothing.
func (s *Service) Checkout(ctx context.Context, userID int64, in CheckoutInput) (*orders.Order, error) {
	pending, err := s.cart.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	var actualTotal int64
	lines := make([]coupons.OrderLine, 0, len(pending))
	for _, ci := range pending {
		subtotal := ci.Price * ci.Quantity
		actualTotal += subtotal
		lines = append(lines, coupons.OrderLine{Category: ci.Category, Subtotal: subtotal})
	}

	acc, err := s.resolveAccounting(ctx, userID, lines, actualTotal, in.Amount, in.UsedPoints, in.CouponID)
	if err != nil {
		return nil, err
	}

	conf, err := s.verifier.Verify(ctx, in.PaymentKey, in.OrderID, in.Amount)
	if err != nil {
		return nil, err
	}

	if err := s.commitAccounting(ctx, userID, acc, in.UsedPoints, in.OrderID); err != nil {
		return nil, err
	}

	snapshot, err := s.cart.SnapshotAndClear(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("snapshot cart: %w", err)
	}
	items := make([]orders.OrderItem, 0, len(snapshot))
	for _, ci := range snapshot {
		items = append(items, orders.OrderItem{
			ProductID:       ci.ProductID,
			ProductName:     ci.ProductName,
			ProductImage:    ci.ProductImage,
			Quantity:        ci.Quantity,
			PriceAtPurchase: ci.Price,
		})
	}

	order := orders.Order{
		ID:           in.OrderID,
		UserID:       userID,
		OrderName:    conf.OrderName,
		TotalAmount:  acc.finalAmount,
		Status:       orders.StatusPaid,
		PaymentKey:   in.PaymentKey,
		CreatedAt:    s.nowFunc(),
		UsedPoints:   in.UsedPoints,
		EarnedPoints: acc.earned,
		Items:        items,
	}
	saved, err := s.orders.Save(ctx, order)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeOrderPaid, &saved)
	return &saved, nil
}

// Cancel transitions a paid order to CANCELLED, reversing its point effects.
// Points are reversed before the status flip: a crash between the two leaves
// the order visibly PAID with points already reversed, which an operator can
// detect, whereas the opposite order would silently leak points.
func (s *Service) Cancel(ctx context.Context, userID int64, orderID string) (*orders.Order, error) {
	o, err := s.orders.FindOne(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == orders.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if o.Status != orders.StatusPaid {
		return nil, fmt.Errorf("%w: cannot cancel %s order", orders.ErrInvalidTransition, o.Status)
	}

	if _, err := s.users.ReversePointChange(ctx, userID, o.UsedPoints, o.EarnedPoints, orderID); err != nil {
		return nil, err
	}

	updated, err := s.orders.UpdateStatus(ctx, userID, orderID, orders.StatusCancelled)
	if err != nil {
		// The order was PAID moments ago; a failed transition now means a
		// concurrent cancel won the race, a concurrent delete removed it.
		if errors.Is(err, orders.ErrInvalidTransition) {
			return nil, ErrAlreadyCancelled
		}
		return nil, err
	}

	s.publish(ctx, events.TypeOrderCancelled, updated)
	return updated, nil
}

// ListOrders returns the user's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, userID int64) ([]orders.Order, error) {
	return s.orders.FindByUser(ctx, userID)
}

// GetOrder returns a single order by id.
func (s *Service) GetOrder(ctx context.Context, userID int64, orderID string) (*orders.Order, error) {
	return s.orders.FindOne(ctx, userID, orderID)
}

// DeleteOrder permanently removes an order record.
func (s *Service) DeleteOrder(ctx context.Context, userID int64, orderID string) error {
	return s.orders.Delete(ctx, userID, orderID)
}

func (s *Service) publish(ctx context.Context, eventType string, o *orders.Order) {
	if s.publisher == nil {
		return
	}
	evt := events.OrderEvent{
		Type:       eventType,
		OrderID:    o.ID,
		UserID:     o.UserID,
		Amount:     o.TotalAmount,
		OccurredAt: s.nowFunc(),
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		log.Warn().Err(err).Str("order_id", o.ID).Str("event_type", eventType).
			Msg("failed to publish order event")
	}
}
