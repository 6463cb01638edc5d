package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"tchatsouvenir/bookshop/internal/model"
)

const paymentColumns = `id, transaction_id, user_id, order_id, amount, currency, payment_method, provider,
	phone_number, status, external_reference, failure_reason, created_at, updated_at, completed_at`

type PaymentRepository struct {
	db *DB
}

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(&p.ID, &p.TransactionID, &p.UserID, &p.OrderID, &p.Amount, &p.Currency, &p.PaymentMethod, &p.Provider,
		&p.PhoneNumber, &p.Status, &p.ExternalReference, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) Insert(ctx context.Context, p *model.Payment) error {
	err := r.db.executor(ctx).QueryRow(ctx, `
		INSERT INTO payments (id, transaction_id, user_id, order_id, amount, currency, payment_method, provider,
			phone_number, status, external_reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		p.ID, p.TransactionID, p.UserID, p.OrderID, p.Amount, p.Currency, p.PaymentMethod, p.Provider,
		p.PhoneNumber, p.Status, p.ExternalReference,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return wrapErr(err, "insert payment")
}

func (r *PaymentRepository) GetByTransactionID(ctx context.Context, txID string) (*model.Payment, error) {
	p, err := scanPayment(r.db.executor(ctx).QueryRow(ctx, "SELECT "+paymentColumns+" FROM payments WHERE transaction_id = $1", txID))
	return p, wrapErr(err, "get payment")
}

// GetByTransactionIDForUpdate locks the payment row so that concurrent
// provider callbacks are applied one at a time.
func (r *PaymentRepository) GetByTransactionIDForUpdate(ctx context.Context, txID string) (*model.Payment, error) {
	p, err := scanPayment(r.db.executor(ctx).QueryRow(ctx, "SELECT "+paymentColumns+" FROM payments WHERE transaction_id = $1 FOR UPDATE", txID))
	return p, wrapErr(err, "lock payment")
}

// PendingForOrder returns the order's payment still awaiting the provider.
func (r *PaymentRepository) PendingForOrder(ctx context.Context, orderID string) (*model.Payment, error) {
	p, err := scanPayment(r.db.executor(ctx).QueryRow(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE order_id = $1 AND status = 'PENDING' LIMIT 1", orderID))
	return p, wrapErr(err, "get pending payment")
}

func (r *PaymentRepository) Update(ctx context.Context, p *model.Payment) error {
	err := r.db.executor(ctx).QueryRow(ctx, `
		UPDATE payments SET status = $2, external_reference = $3, failure_reason = $4, completed_at = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Status, p.ExternalReference, p.FailureReason, p.CompletedAt,
	).Scan(&p.UpdatedAt)
	return wrapErr(err, "update payment")
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]model.Payment, error) {
	rows, err := r.db.executor(ctx).Query(ctx, "SELECT "+paymentColumns+" FROM payments WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, wrapErr(err, "list payments")
	}
	defer rows.Close()

	payments := []model.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, wrapErr(err, "scan payment")
		}
		payments = append(payments, *p)
	}
	return payments, wrapErr(rows.Err(), "list payments")
}

func (r *PaymentRepository) CountByStatus(ctx context.Context) (map[model.PaymentStatus]int, error) {
	rows, err := r.db.executor(ctx).Query(ctx, "SELECT status, count(*) FROM payments GROUP BY status")
	if err != nil {
		return nil, wrapErr(err, "count payments")
	}
	defer rows.Close()

	counts := make(map[model.PaymentStatus]int)
	for rows.Next() {
		var (
			status model.PaymentStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, wrapErr(err, "scan payment count")
		}
		counts[status] = n
	}
	return counts, wrapErr(rows.Err(), "count payments")
}
