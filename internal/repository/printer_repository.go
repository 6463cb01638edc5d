package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"tchatsouvenir/bookshop/internal/model"
)

const printerColumns = "id, name, email, phone, address, standard_cost, medium_cost, premium_cost, active, created_at, updated_at"

type PrinterRepository struct {
	db *DB
}

func NewPrinterRepository(db *DB) *PrinterRepository {
	return &PrinterRepository{db: db}
}

func scanPrinter(row pgx.Row) (*model.Printer, error) {
	var p model.Printer
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Address, &p.StandardCost, &p.MediumCost, &p.PremiumCost,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PrinterRepository) Insert(ctx context.Context, p *model.Printer) error {
	err := r.db.executor(ctx).QueryRow(ctx, `
		INSERT INTO printers (id, name, email, phone, address, standard_cost, medium_cost, premium_cost, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Email, p.Phone, p.Address, p.StandardCost, p.MediumCost, p.PremiumCost, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return wrapErr(err, "insert printer")
}

func (r *PrinterRepository) Get(ctx context.Context, id string) (*model.Printer, error) {
	p, err := scanPrinter(r.db.executor(ctx).QueryRow(ctx, "SELECT "+printerColumns+" FROM printers WHERE id = $1", id))
	return p, wrapErr(err, "get printer")
}

func (r *PrinterRepository) List(ctx context.Context, activeOnly bool) ([]model.Printer, error) {
	query := "SELECT " + printerColumns + " FROM printers"
	if activeOnly {
		query += " WHERE active"
	}
	rows, err := r.db.executor(ctx).Query(ctx, query+" ORDER BY name")
	if err != nil {
		return nil, wrapErr(err, "list printers")
	}
	defer rows.Close()

	printers := []model.Printer{}
	for rows.Next() {
		p, err := scanPrinter(rows)
		if err != nil {
			return nil, wrapErr(err, "scan printer")
		}
		printers = append(printers, *p)
	}
	return printers, wrapErr(rows.Err(), "list printers")
}

func (r *PrinterRepository) Update(ctx context.Context, p *model.Printer) error {
	err := r.db.executor(ctx).QueryRow(ctx, `
		UPDATE printers SET name = $2, email = $3, phone = $4, address = $5, standard_cost = $6,
			medium_cost = $7, premium_cost = $8, active = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.Email, p.Phone, p.Address, p.StandardCost, p.MediumCost, p.PremiumCost, p.Active,
	).Scan(&p.UpdatedAt)
	return wrapErr(err, "update printer")
}

const printerOrderColumns = "id, printer_id, book_id, order_id, cost, status, notes, created_at, assigned_at, completed_at"

type PrinterOrderRepository struct {
	db *DB
}

func NewPrinterOrderRepository(db *DB) *PrinterOrderRepository {
	return &PrinterOrderRepository{db: db}
}

func (r *PrinterOrderRepository) Insert(ctx context.Context, po *model.PrinterOrder) error {
	err := r.db.executor(ctx).QueryRow(ctx, `
		INSERT INTO printer_orders (id, printer_id, book_id, order_id, cost, status, notes, assigned_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		po.ID, po.PrinterID, po.BookID, po.OrderID, po.Cost, po.Status, po.Notes, po.AssignedAt, po.CompletedAt,
	).Scan(&po.CreatedAt)
	return wrapErr(err, "insert printer order")
}

func periodFilter(printerID string, from, to *time.Time) (string, []any) {
	where := []string{"printer_id = $1"}
	args := []any{printerID}
	if from != nil {
		args = append(args, *from)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	return strings.Join(where, " AND "), args
}

func (r *PrinterOrderRepository) ListByPrinter(ctx context.Context, printerID string, from, to *time.Time) ([]model.PrinterOrder, error) {
	where, args := periodFilter(printerID, from, to)
	rows, err := r.db.executor(ctx).Query(ctx, "SELECT "+printerOrderColumns+" FROM printer_orders WHERE "+where+" ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, wrapErr(err, "list printer orders")
	}
	defer rows.Close()

	orders := []model.PrinterOrder{}
	for rows.Next() {
		var po model.PrinterOrder
		if err := rows.Scan(&po.ID, &po.PrinterID, &po.BookID, &po.OrderID, &po.Cost, &po.Status, &po.Notes,
			&po.CreatedAt, &po.AssignedAt, &po.CompletedAt); err != nil {
			return nil, wrapErr(err, "scan printer order")
		}
		orders = append(orders, po)
	}
	return orders, wrapErr(rows.Err(), "list printer orders")
}

// TotalCost sums the cost of non-cancelled printer orders in the period.
func (r *PrinterOrderRepository) TotalCost(ctx context.Context, printerID string, from, to *time.Time) (decimal.Decimal, error) {
	where, args := periodFilter(printerID, from, to)
	var total decimal.Decimal
	err := r.db.executor(ctx).QueryRow(ctx,
		"SELECT coalesce(sum(cost), 0) FROM printer_orders WHERE "+where+" AND status <> 'CANCELLED'", args...,
	).Scan(&total)
	return total, wrapErr(err, "sum printer costs")
}
