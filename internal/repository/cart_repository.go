package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"tchatsouvenir/bookshop/internal/model"
)

const cartColumns = "id, user_id, product_id, product_name, quantity, unit_price, book_format, image_url"

type CartRepository struct {
	db *DB
}

func NewCartRepository(db *DB) *CartRepository {
	return &CartRepository{db: db}
}

func scanCartItem(row pgx.Row) (*model.CartItem, error) {
	var c model.CartItem
	if err := row.Scan(&c.ID, &c.UserID, &c.ProductID, &c.ProductName, &c.Quantity, &c.UnitPrice, &c.BookFormat, &c.ImageURL); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CartRepository) List(ctx context.Context, userID string) ([]model.CartItem, error) {
	rows, err := r.db.executor(ctx).Query(ctx, "SELECT "+cartColumns+" FROM cart_items WHERE user_id = $1 ORDER BY created_at, id", userID)
	if err != nil {
		return nil, wrapErr(err, "list cart items")
	}
	defer rows.Close()

	items := []model.CartItem{}
	for rows.Next() {
		c, err := scanCartItem(rows)
		if err != nil {
			return nil, wrapErr(err, "scan cart item")
		}
		items = append(items, *c)
	}
	return items, wrapErr(rows.Err(), "list cart items")
}

func (r *CartRepository) Get(ctx context.Context, id string) (*model.CartItem, error) {
	c, err := scanCartItem(r.db.executor(ctx).QueryRow(ctx, "SELECT "+cartColumns+" FROM cart_items WHERE id = $1", id))
	return c, wrapErr(err, "get cart item")
}

func (r *CartRepository) FindProduct(ctx context.Context, userID, productID, format string) (*model.CartItem, error) {
	c, err := scanCartItem(r.db.executor(ctx).QueryRow(ctx,
		"SELECT "+cartColumns+" FROM cart_items WHERE user_id = $1 AND product_id = $2 AND book_format = $3 FOR UPDATE",
		userID, productID, format))
	return c, wrapErr(err, "find cart item")
}

func (r *CartRepository) Insert(ctx context.Context, c *model.CartItem) error {
	_, err := r.db.executor(ctx).Exec(ctx, `
		INSERT INTO cart_items (id, user_id, product_id, product_name, quantity, unit_price, book_format, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.UserID, c.ProductID, c.ProductName, c.Quantity, c.UnitPrice, c.BookFormat, c.ImageURL)
	return wrapErr(err, "insert cart item")
}

func (r *CartRepository) SetQuantity(ctx context.Context, id string, quantity int) error {
	tag, err := r.db.executor(ctx).Exec(ctx, "UPDATE cart_items SET quantity = $2 WHERE id = $1", id, quantity)
	return mustAffect(tag, err, "update cart item")
}

func (r *CartRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.executor(ctx).Exec(ctx, "DELETE FROM cart_items WHERE id = $1", id)
	return mustAffect(tag, err, "delete cart item")
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.db.executor(ctx).Exec(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	return wrapErr(err, "clear cart")
}
