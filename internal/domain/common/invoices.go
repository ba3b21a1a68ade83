package common

import (
	"time"

	"github.com/google/uuid"
)

type Invoice struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	Name          string        `json:"name" db:"name"`
	BillTo        *string       `json:"bill_to" db:"bill_to"`
	InvoiceDate   time.Time     `json:"invoice_date" db:"invoice_date"`
	InvoiceNumber string        `json:"invoice_number" db:"invoice_number"`
	Notes         *string       `json:"notes" db:"notes"`
	Total         float64       `json:"total" db:"total"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
	Items         []InvoiceItem `json:"items" db:"-"`
}

type InvoiceItem struct {
	ID       int64   `json:"id" db:"id"`
	Position int     `json:"position" db:"position"`
	Item     string  `json:"item" db:"item"`
	Quantity float64 `json:"quantity" db:"quantity"`
	Rate     float64 `json:"rate" db:"rate"`
	Amount   float64 `json:"amount" db:"amount"`
}

// InvoiceItemParams is one requested line; Quantity defaults to 1.
type InvoiceItemParams struct {
	Item     string   `json:"item"`
	Quantity *float64 `json:"quantity,omitempty"`
	Rate     float64  `json:"rate"`
}

type CreateInvoiceParams struct {
	Name          string              `json:"name"`
	BillTo        *string             `json:"bill_to,omitempty"`
	InvoiceDate   time.Time           `json:"invoice_date"`
	InvoiceNumber string              `json:"invoice_number,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	Items         []InvoiceItemParams `json:"items"`
}

// UpdateInvoiceParams only touches non-nil fields. A non-nil Items replaces
// every line of the invoice.
type UpdateInvoiceParams struct {
	Name          *string              `json:"name,omitempty"`
	BillTo        *string              `json:"bill_to,omitempty"`
	InvoiceDate   *time.Time           `json:"invoice_date,omitempty"`
	InvoiceNumber *string              `json:"invoice_number,omitempty"`
	Notes         *string              `json:"notes,omitempty"`
	Items         *[]InvoiceItemParams `json:"items,omitempty"`
}
