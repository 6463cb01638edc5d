package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
  id text PRIMARY KEY,
  email text NOT NULL UNIQUE,
  first_name text NOT NULL DEFAULT '',
  last_name text NOT NULL DEFAULT '',
  password_hash text NOT NULL,
  role text NOT NULL DEFAULT 'USER',
  active boolean NOT NULL DEFAULT true,
  reset_token text UNIQUE,
  reset_token_expiry timestamptz,
  last_login timestamptz,
  created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS cart_items (
  id text PRIMARY KEY,
  user_id text NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  product_id text NOT NULL,
  product_name text NOT NULL,
  quantity integer NOT NULL CHECK (quantity > 0),
  unit_price numeric(12,2) NOT NULL,
  book_format text NOT NULL DEFAULT '',
  image_url text NOT NULL DEFAULT '',
  created_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS cart_items_user_idx ON cart_items(user_id);

CREATE TABLE IF NOT EXISTS books (
  id text PRIMARY KEY,
  user_id text NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  title text NOT NULL,
  subtitle text NOT NULL DEFAULT '',
  status text NOT NULL,
  format text NOT NULL,
  cover_image_url text NOT NULL DEFAULT '',
  design jsonb,
  content jsonb,
  fabrication_cost numeric(12,2),
  selling_price numeric(12,2),
  created_at timestamptz NOT NULL DEFAULT now(),
  updated_at timestamptz NOT NULL DEFAULT now(),
  deleted_at timestamptz,
  processed_at timestamptz,
  assigned_printer_id text,
  download_path text NOT NULL DEFAULT '',
  is_downloaded boolean NOT NULL DEFAULT false
);
CREATE INDEX IF NOT EXISTS books_user_idx ON books(user_id);

CREATE TABLE IF NOT EXISTS orders (
  id text PRIMARY KEY,
  order_reference text NOT NULL UNIQUE,
  user_id text NOT NULL REFERENCES users(id),
  total_amount numeric(12,2) NOT NULL,
  currency text NOT NULL,
  status text NOT NULL,
  shipping_address jsonb,
  payment_method text NOT NULL DEFAULT '',
  payment_id text NOT NULL DEFAULT '',
  book_format text NOT NULL DEFAULT '',
  book_id text REFERENCES books(id) ON DELETE SET NULL,
  book_title text NOT NULL DEFAULT '',
  tracking_number text NOT NULL DEFAULT '',
  estimated_delivery_date timestamptz,
  created_at timestamptz NOT NULL DEFAULT now(),
  updated_at timestamptz NOT NULL DEFAULT now(),
  completed_at timestamptz
);
CREATE INDEX IF NOT EXISTS orders_user_idx ON orders(user_id);

CREATE TABLE IF NOT EXISTS order_items (
  id text PRIMARY KEY,
  order_id text NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id text NOT NULL,
  name text NOT NULL,
  quantity integer NOT NULL,
  unit_price numeric(12,2) NOT NULL,
  book_format text NOT NULL DEFAULT '',
  book_cover_type text NOT NULL DEFAULT '',
  image_url text NOT NULL DEFAULT '',
  position integer NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS order_items_order_idx ON order_items(order_id);

CREATE TABLE IF NOT EXISTS payments (
  id text PRIMARY KEY,
  transaction_id text NOT NULL UNIQUE,
  user_id text NOT NULL REFERENCES users(id),
  order_id text NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  amount numeric(12,2) NOT NULL,
  currency text NOT NULL DEFAULT 'XOF',
  payment_method text NOT NULL,
  provider text NOT NULL DEFAULT '',
  phone_number text NOT NULL DEFAULT '',
  status text NOT NULL,
  external_reference text NOT NULL DEFAULT '',
  failure_reason text NOT NULL DEFAULT '',
  created_at timestamptz NOT NULL DEFAULT now(),
  updated_at timestamptz NOT NULL DEFAULT now(),
  completed_at timestamptz
);
CREATE UNIQUE INDEX IF NOT EXISTS payments_pending_order_idx ON payments(order_id) WHERE status = 'PENDING';

CREATE TABLE IF NOT EXISTS printers (
  id text PRIMARY KEY,
  name text NOT NULL,
  email text NOT NULL,
  phone text NOT NULL DEFAULT '',
  address text NOT NULL DEFAULT '',
  standard_cost numeric(12,2) NOT NULL,
  medium_cost numeric(12,2) NOT NULL,
  premium_cost numeric(12,2) NOT NULL,
  active boolean NOT NULL DEFAULT true,
  created_at timestamptz NOT NULL DEFAULT now(),
  updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS printer_orders (
  id text PRIMARY KEY,
  printer_id text NOT NULL REFERENCES printers(id),
  book_id text NOT NULL REFERENCES books(id) ON DELETE CASCADE,
  order_id text REFERENCES orders(id) ON DELETE SET NULL,
  cost numeric(12,2) NOT NULL,
  status text NOT NULL,
  notes text NOT NULL DEFAULT '',
  created_at timestamptz NOT NULL DEFAULT now(),
  assigned_at timestamptz,
  completed_at timestamptz
);

CREATE TABLE IF NOT EXISTS notifications (
  id text PRIMARY KEY,
  user_id text REFERENCES users(id) ON DELETE CASCADE,
  order_id text REFERENCES orders(id) ON DELETE CASCADE,
  type text NOT NULL,
  title text NOT NULL DEFAULT '',
  message text NOT NULL,
  channel text NOT NULL DEFAULT '',
  recipient text NOT NULL DEFAULT '',
  status text NOT NULL DEFAULT '',
  metadata jsonb,
  created_at timestamptz NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the tables if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
