package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"trip-service/internal/models"
)

var ErrOrderNotFound = errors.New("order not found")

const orderColumns = `id, buyer_id, seller_id, total, status, payment_status, delivery_method,
    refund_reason, refund_amount, refunded_at, created_at, updated_at`

// OrderRepository abstracts order persistence.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order models.Order) (models.Order, error)
	GetOrder(ctx context.Context, orderID int) (models.Order, error)
	ListForUser(ctx context.Context, userID int) ([]models.Order, error)
	SetStatus(ctx context.Context, orderID int, status string) (models.Order, error)
	Refund(ctx context.Context, orderID int, amount float64, reason string) (models.Order, error)
}

// OrderRepo is a sqlx implementation of OrderRepository.
type OrderRepo struct {
	db *sqlx.DB
}

// NewOrderRepo constructs an OrderRepo.
func NewOrderRepo(db *sqlx.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// CreateOrder inserts the order and its line items in one transaction. The
// total is computed from the item price snapshots.
func (r *OrderRepo) CreateOrder(ctx context.Context, order models.Order) (models.Order, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Order{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	total := 0.0
	for _, item := range order.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}

	var created models.Order
	err = tx.QueryRowxContext(ctx, `INSERT INTO orders (buyer_id, seller_id, total, delivery_method)
        VALUES ($1, $2, $3, $4) RETURNING `+orderColumns,
		order.BuyerID, order.SellerID, total, order.DeliveryMethod).
		StructScan(&created)
	if err != nil {
		return models.Order{}, err
	}

	for _, item := range order.Items {
		var line models.OrderItem
		err = tx.QueryRowxContext(ctx, `INSERT INTO order_items (order_id, gear_id, gear_name, quantity, unit_price, rental_start, rental_end)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING id, order_id, gear_id, gear_name, quantity, unit_price, rental_start, rental_end`,
			created.ID, item.GearID, item.GearName, item.Quantity, item.UnitPrice, item.RentalStart, item.RentalEnd).
			StructScan(&line)
		if err != nil {
			return models.Order{}, err
		}
		created.Items = append(created.Items, line)
	}

	if err = tx.Commit(); err != nil {
		return models.Order{}, err
	}
	return created, nil
}

// GetOrder fetches an order with its line items.
func (r *OrderRepo) GetOrder(ctx context.Context, orderID int) (models.Order, error) {
	var order models.Order
	err := r.db.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return models.Order{}, err
	}

	err = r.db.SelectContext(ctx, &order.Items, `SELECT id, order_id, gear_id, gear_name, quantity, unit_price, rental_start, rental_end
        FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	return order, err
}

// ListForUser returns orders where the user is buyer or seller.
func (r *OrderRepo) ListForUser(ctx context.Context, userID int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.SelectContext(ctx, &orders, `SELECT `+orderColumns+` FROM orders
        WHERE buyer_id=$1 OR seller_id=$1 ORDER BY created_at DESC`, userID)
	return orders, err
}

// SetStatus records a status transition already validated by the caller.
func (r *OrderRepo) SetStatus(ctx context.Context, orderID int, status string) (models.Order, error) {
	var order models.Order
	err := r.db.QueryRowxContext(ctx, `UPDATE orders SET status=$2, updated_at=NOW()
        WHERE id=$1 RETURNING `+orderColumns, orderID, status).
		StructScan(&order)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, ErrOrderNotFound
	}
	return order, err
}

// Refund records the refund and flips payment status in one update.
func (r *OrderRepo) Refund(ctx context.Context, orderID int, amount float64, reason string) (models.Order, error) {
	var order models.Order
	err := r.db.QueryRowxContext(ctx, `UPDATE orders SET status=$2, payment_status=$3,
        refund_amount=$4, refund_reason=$5, refunded_at=NOW(), updated_at=NOW()
        WHERE id=$1 RETURNING `+orderColumns,
		orderID, models.OrderRefunded, models.PaymentRefunded, amount, reason).
		StructScan(&order)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, ErrOrderNotFound
	}
	return order, err
}
