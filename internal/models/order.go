package models

import "time"

// Order statuses.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
	OrderRefunded  = "refunded"
)

// Payment statuses.
const (
	PaymentUnpaid   = "unpaid"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// Order is a gear rental order between a buyer and a seller.
type Order struct {
	ID             int         `db:"id" json:"id"`
	BuyerID        int         `db:"buyer_id" json:"buyer_id"`
	SellerID       int         `db:"seller_id" json:"seller_id"`
	Total          float64     `db:"total" json:"total"`
	Status         string      `db:"status" json:"status"`
	PaymentStatus  string      `db:"payment_status" json:"payment_status"`
	DeliveryMethod string      `db:"delivery_method" json:"delivery_method"`
	RefundReason   *string     `db:"refund_reason" json:"refund_reason,omitempty"`
	RefundAmount   *float64    `db:"refund_amount" json:"refund_amount,omitempty"`
	RefundedAt     *time.Time  `db:"refunded_at" json:"refunded_at,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
	Items          []OrderItem `json:"items,omitempty"`
}

// OrderItem is one line of an order with the price snapshotted at order time.
type OrderItem struct {
	ID          int       `db:"id" json:"id"`
	OrderID     int       `db:"order_id" json:"order_id"`
	GearID      int       `db:"gear_id" json:"gear_id"`
	GearName    string    `db:"gear_name" json:"gear_name"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UnitPrice   float64   `db:"unit_price" json:"unit_price"`
	RentalStart time.Time `db:"rental_start" json:"rental_start"`
	RentalEnd   time.Time `db:"rental_end" json:"rental_end"`
}

// orderTransitions maps each status to the statuses it may advance to.
var orderTransitions = map[string][]string{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderShipped, OrderCancelled},
	OrderShipped:   {OrderDelivered},
	OrderDelivered: {OrderCompleted, OrderRefunded},
	OrderCancelled: {OrderRefunded},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
