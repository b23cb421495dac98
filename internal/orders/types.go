package orders

import "time"

// Status is the order lifecycle state. The only legal transitions are
// PENDING -> PAID -> CANCELLED; CANCELLED is terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// predecessor maps a target status to the only status it may be entered from.
var predecessor = map[Status]Status{
	StatusPaid:      StatusPending,
	StatusCancelled: StatusPaid,
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Predecessor returns the status an order must currently hold for a
// transition into s, and whether any such transition exists.
func (s Status) Predecessor() (Status, bool) {
	prev, ok := predecessor[s]
	return prev, ok
}

// Order is one purchase transaction, stored as a single document in a yearly
// partition of the owning user's shard. Items are embedded snapshots taken at
// creation time; later catalog price changes never alter a stored order.
type Order struct {
	ID           string      `dynamodbav:"order_id" json:"id"` // PK, gateway-assigned or generated locally
	UserID       int64       `dynamodbav:"user_id" json:"userId"`
	OrderName    string      `dynamodbav:"order_name" json:"orderName"`
	TotalAmount  int64       `dynamodbav:"total_amount" json:"totalAmount"` // smallest currency unit
	Status       Status      `dynamodbav:"status" json:"status"`
	PaymentKey   string      `dynamodbav:"payment_key" json:"paymentKey"`
	CreatedAt    time.Time   `dynamodbav:"created_at" json:"createdAt"`
	UsedPoints   int64       `dynamodbav:"used_points" json:"usedPoints"`
	EarnedPoints int64       `dynamodbav:"earned_points" json:"earnedPoints"`
	Items        []OrderItem `dynamodbav:"items,omitempty" json:"items"`
}

// OrderItem is a line item snapshot embedded in an Order document.
type OrderItem struct {
	ProductID       int64  `dynamodbav:"product_id" json:"productId"`
	ProductName     string `dynamodbav:"product_name" json:"productName"`
	ProductImage    string `dynamodbav:"product_image,omitempty" json:"productImage"`
	Quantity        int64  `dynamodbav:"quantity" json:"quantity"`
	PriceAtPurchase int64  `dynamodbav:"price_at_purchase" json:"priceAtPurchase"` // unit price at purchase time
}
