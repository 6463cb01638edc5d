package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BookStatus string

const (
	BookStatusDraft             BookStatus = "DRAFT"
	BookStatusProcessing        BookStatus = "PROCESSING"
	BookStatusPendingReview     BookStatus = "PENDING_REVIEW"
	BookStatusApproved          BookStatus = "APPROVED"
	BookStatusRejected          BookStatus = "REJECTED"
	BookStatusAssignedToPrinter BookStatus = "ASSIGNED_TO_PRINTER"
	BookStatusInProduction      BookStatus = "IN_PRODUCTION"
	BookStatusCompleted         BookStatus = "COMPLETED"
	BookStatusOrdered           BookStatus = "ORDERED"
	BookStatusDeleted           BookStatus = "DELETED"
)

var BookStatuses = []BookStatus{
	BookStatusDraft,
	BookStatusProcessing,
	BookStatusPendingReview,
	BookStatusApproved,
	BookStatusRejected,
	BookStatusAssignedToPrinter,
	BookStatusInProduction,
	BookStatusCompleted,
	BookStatusOrdered,
	BookStatusDeleted,
}

func ParseBookStatus(s string) (BookStatus, bool) {
	st := BookStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range BookStatuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

type BookFormat string

const (
	FormatStandard BookFormat = "STANDARD"
	FormatMedium   BookFormat = "MEDIUM"
	FormatPremium  BookFormat = "PREMIUM"
)

func ParseBookFormat(s string) (BookFormat, bool) {
	f := BookFormat(strings.ToUpper(strings.TrimSpace(s)))
	switch f {
	case FormatStandard, FormatMedium, FormatPremium:
		return f, true
	}
	return "", false
}

type Book struct {
	ID                string              `json:"id"`
	UserID            string              `json:"user_id"`
	Title             string              `json:"title"`
	Subtitle          string              `json:"subtitle"`
	Status            BookStatus          `json:"status"`
	Format            BookFormat          `json:"format"`
	CoverImageURL     string              `json:"cover_image_url,omitempty"`
	Design            json.RawMessage     `json:"design,omitempty"`
	Content           json.RawMessage     `json:"content,omitempty"`
	FabricationCost   decimal.NullDecimal `json:"fabrication_cost"`
	SellingPrice      decimal.NullDecimal `json:"selling_price"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	DeletedAt         *time.Time          `json:"deleted_at,omitempty"`
	ProcessedAt       *time.Time          `json:"processed_at,omitempty"`
	AssignedPrinterID *string             `json:"assigned_printer_id,omitempty"`
	DownloadPath      string              `json:"download_path,omitempty"`
	IsDownloaded      bool                `json:"is_downloaded"`
}

func (b *Book) IsDeleted() bool {
	return b.DeletedAt != nil
}

// Margin is the selling price minus the fabrication cost, zero when either is unknown.
func (b *Book) Margin() decimal.Decimal {
	if !b.SellingPrice.Valid || !b.FabricationCost.Valid {
		return decimal.Zero
	}
	return b.SellingPrice.Decimal.Sub(b.FabricationCost.Decimal)
}

func (b *Book) MarginPercentage() decimal.Decimal {
	if !b.SellingPrice.Valid || !b.FabricationCost.Valid || !b.SellingPrice.Decimal.IsPositive() {
		return decimal.Zero
	}
	return b.Margin().Div(b.SellingPrice.Decimal).Mul(decimal.NewFromInt(100)).Round(2)
}

type BookFilter struct {
	UserID  string
	Status  BookStatus
	Format  BookFormat
	From    *time.Time
	To      *time.Time
	Deleted bool
}

type MarginStats struct {
	TotalMargin  decimal.Decimal    `json:"total_margin"`
	ActiveBooks  int                `json:"active_books"`
	ByStatus     map[BookStatus]int `json:"by_status"`
	PeriodMargin *decimal.Decimal   `json:"period_margin,omitempty"`
}
