package lifecycle

// LineItem is a caller-supplied order line for the demo checkout flow.
type LineItem struct {
	ProductID    int64  `json:"productId" validate:"required"`
	ProductName  string `json:"productName" validate:"required"`
	ProductImage string `json:"productImage"`
	Price        int64  `json:"price" validate:"required,gt=0"` // unit price, smallest currency unit
	Quantity     int64  `json:"quantity" validate:"required,min=1"`
	Category     string `json:"category"`
}

// DemoCheckoutInput is the payload for the no-gateway checkout flow.
type DemoCheckoutInput struct {
	OrderName  string     `json:"orderName" validate:"required"`
	Amount     int64      `json:"amount" validate:"gte=0"` // client-claimed final amount
	Items      []LineItem `json:"items" validate:"required,min=1,dive"`
	UsedPoints int64      `json:"usedPoints" validate:"gte=0"`
	CouponID   int64      `json:"couponId" validate:"gte=0"`
}

// CheckoutInput is the payload for the payment-gateway confirm flow. Items
// come from the caller's pending cart, not the payload.
type CheckoutInput struct {
	PaymentKey string `json:"paymentKey" validate:"required"`
	OrderID    string `json:"orderId" validate:"required"`
	Amount     int64  `json:"amount" validate:"gte=0"`
	UsedPoints int64  `json:"usedPoints" validate:"gte=0"`
	CouponID   int64  `json:"couponId" validate:"gte=0"`
}
