package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"tchatsouvenir/bookshop/internal/model"
)

const orderColumns = `o.id, o.order_reference, o.user_id, o.total_amount, o.currency, o.status, o.shipping_address,
	o.payment_method, o.payment_id, o.book_format, o.book_id, o.book_title, o.tracking_number,
	o.estimated_delivery_date, o.created_at, o.updated_at, o.completed_at`

type OrderRepository struct {
	db *DB
}

func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.OrderReference, &o.UserID, &o.TotalAmount, &o.Currency, &o.Status, &o.ShippingAddress,
		&o.PaymentMethod, &o.PaymentID, &o.BookFormat, &o.BookID, &o.BookTitle, &o.TrackingNumber,
		&o.EstimatedDeliveryDate, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Insert stores the order and its items. Call it inside RunAtomic.
func (r *OrderRepository) Insert(ctx context.Context, o *model.Order) error {
	ex := r.db.executor(ctx)
	err := ex.QueryRow(ctx, `
		INSERT INTO orders (id, order_reference, user_id, total_amount, currency, status, shipping_address,
			payment_method, book_format, book_id, book_title)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		o.ID, o.OrderReference, o.UserID, o.TotalAmount, o.Currency, o.Status, o.ShippingAddress,
		o.PaymentMethod, o.BookFormat, o.BookID, o.BookTitle,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return wrapErr(err, "insert order")
	}

	for i, it := range o.Items {
		_, err := ex.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, name, quantity, unit_price, book_format, book_cover_type, image_url, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			it.ID, o.ID, it.ProductID, it.Name, it.Quantity, it.UnitPrice, it.BookFormat, it.BookCoverType, it.ImageURL, i)
		if err != nil {
			return wrapErr(err, "insert order item")
		}
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*model.Order, error) {
	return r.getOne(ctx, "get order", "SELECT "+orderColumns+" FROM orders o WHERE o.id = $1", id)
}

// GetForUpdate locks the order row until the surrounding transaction ends.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*model.Order, error) {
	return r.getOne(ctx, "lock order", "SELECT "+orderColumns+" FROM orders o WHERE o.id = $1 FOR UPDATE", id)
}

func (r *OrderRepository) GetByReference(ctx context.Context, ref string) (*model.Order, error) {
	return r.getOne(ctx, "get order by reference", "SELECT "+orderColumns+" FROM orders o WHERE o.order_reference = $1", ref)
}

func (r *OrderRepository) getOne(ctx context.Context, op, query string, arg any) (*model.Order, error) {
	o, err := scanOrder(r.db.executor(ctx).QueryRow(ctx, query, arg))
	if err != nil {
		return nil, wrapErr(err, op)
	}
	orders := []model.Order{*o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return r.list(ctx, "SELECT "+orderColumns+" FROM orders o WHERE o.user_id = $1 ORDER BY o.created_at DESC", userID)
}

func (r *OrderRepository) List(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("o.status = $%d", f.Status)
	}
	if f.DateFrom != nil {
		add("o.created_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("o.created_at <= $%d", *f.DateTo)
	}
	if f.BookFormat != "" {
		add("o.book_format = $%d", f.BookFormat)
	}
	if f.PaymentMethod != "" {
		add("o.payment_method = $%d", f.PaymentMethod)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+strings.ToLower(s)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(`(lower(o.order_reference) LIKE $%[1]d
			OR lower(u.email) LIKE $%[1]d
			OR lower(u.first_name || ' ' || u.last_name) LIKE $%[1]d
			OR lower(coalesce(o.shipping_address->>'name', '')) LIKE $%[1]d
			OR lower(coalesce(o.shipping_address->>'email', '')) LIKE $%[1]d)`, n))
	}

	query := "SELECT " + orderColumns + " FROM orders o JOIN users u ON u.id = o.user_id"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.created_at DESC"
	return r.list(ctx, query, args...)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.db.executor(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, "list orders")
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, wrapErr(err, "scan order")
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "list orders")
	}
	rows.Close()

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = []model.OrderItem{}
	}

	rows, err := r.db.executor(ctx).Query(ctx, `
		SELECT id, order_id, product_id, name, quantity, unit_price, book_format, book_cover_type, image_url
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`, ids)
	if err != nil {
		return wrapErr(err, "list order items")
	}
	defer rows.Close()

	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice,
			&it.BookFormat, &it.BookCoverType, &it.ImageURL); err != nil {
			return wrapErr(err, "scan order item")
		}
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return wrapErr(rows.Err(), "list order items")
}

// Update writes the mutable columns of the order and bumps updated_at.
func (r *OrderRepository) Update(ctx context.Context, o *model.Order) error {
	err := r.db.executor(ctx).QueryRow(ctx, `
		UPDATE orders SET status = $2, payment_method = $3, payment_id = $4, tracking_number = $5,
			estimated_delivery_date = $6, completed_at = $7, shipping_address = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		o.ID, o.Status, o.PaymentMethod, o.PaymentID, o.TrackingNumber,
		o.EstimatedDeliveryDate, o.CompletedAt, o.ShippingAddress,
	).Scan(&o.UpdatedAt)
	return wrapErr(err, "update order")
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.executor(ctx).Exec(ctx, "DELETE FROM orders WHERE id = $1", id)
	return mustAffect(tag, err, "delete order")
}

func (r *OrderRepository) CountByStatus(ctx context.Context) (map[model.OrderStatus]int, error) {
	rows, err := r.db.executor(ctx).Query(ctx, "SELECT status, count(*) FROM orders GROUP BY status")
	if err != nil {
		return nil, wrapErr(err, "count orders")
	}
	defer rows.Close()

	counts := make(map[model.OrderStatus]int)
	for rows.Next() {
		var (
			status model.OrderStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, wrapErr(err, "scan order count")
		}
		counts[status] = n
	}
	return counts, wrapErr(rows.Err(), "count orders")
}
