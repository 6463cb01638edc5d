package model

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	DefaultStandardCost = decimal.NewFromInt(8000)
	DefaultMediumCost   = decimal.NewFromInt(10000)
	DefaultPremiumCost  = decimal.NewFromInt(15000)
)

type Printer struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone,omitempty"`
	Address      string          `json:"address,omitempty"`
	StandardCost decimal.Decimal `json:"standard_cost"`
	MediumCost   decimal.Decimal `json:"medium_cost"`
	PremiumCost  decimal.Decimal `json:"premium_cost"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ApplyDefaultCosts fills unset (zero) per-format costs.
func (p *Printer) ApplyDefaultCosts() {
	if p.StandardCost.IsZero() {
		p.StandardCost = DefaultStandardCost
	}
	if p.MediumCost.IsZero() {
		p.MediumCost = DefaultMediumCost
	}
	if p.PremiumCost.IsZero() {
		p.PremiumCost = DefaultPremiumCost
	}
}

func (p *Printer) CostFor(format BookFormat) decimal.Decimal {
	switch format {
	case FormatMedium:
		return p.MediumCost
	case FormatPremium:
		return p.PremiumCost
	default:
		return p.StandardCost
	}
}

type PrinterOrderStatus string

const (
	PrinterOrderPending    PrinterOrderStatus = "PENDING"
	PrinterOrderAssigned   PrinterOrderStatus = "ASSIGNED"
	PrinterOrderInProgress PrinterOrderStatus = "IN_PROGRESS"
	PrinterOrderCompleted  PrinterOrderStatus = "COMPLETED"
	PrinterOrderCancelled  PrinterOrderStatus = "CANCELLED"
)

type PrinterOrder struct {
	ID          string             `json:"id"`
	PrinterID   string             `json:"printer_id"`
	BookID      string             `json:"book_id"`
	OrderID     *string            `json:"order_id,omitempty"`
	Cost        decimal.Decimal    `json:"cost"`
	Status      PrinterOrderStatus `json:"status"`
	Notes       string             `json:"notes,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	AssignedAt  *time.Time         `json:"assigned_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

// SetStatus moves the printer order and stamps assigned/completed times once.
func (po *PrinterOrder) SetStatus(status PrinterOrderStatus, now time.Time) {
	po.Status = status
	if status == PrinterOrderAssigned && po.AssignedAt == nil {
		po.AssignedAt = &now
	}
	if status == PrinterOrderCompleted && po.CompletedAt == nil {
		po.CompletedAt = &now
	}
}
