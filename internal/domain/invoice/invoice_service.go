package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/adspend-reports/internal/domain/common"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200

	maxNameLen   = 255
	maxNumberLen = 32
)

var _ InvoiceService = (*InvoiceServiceImpl)(nil)

// InvoiceService defines the business logic contract for invoices.
type InvoiceService interface {
	ListInvoices(ctx context.Context, limit, offset int) ([]common.Invoice, int64, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*common.Invoice, error)
	CreateInvoice(ctx context.Context, params common.CreateInvoiceParams) (*common.Invoice, error)
	UpdateInvoice(ctx context.Context, id uuid.UUID, params common.UpdateInvoiceParams) (*common.Invoice, error)
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
}

type InvoiceServiceImpl struct {
	logger *slog.Logger
	repo   InvoiceRepo
}

func NewInvoiceService(repo InvoiceRepo, logger *slog.Logger) *InvoiceServiceImpl {
	return &InvoiceServiceImpl{logger: logger, repo: repo}
}

// ListInvoices clamps the page to [1, MaxPageSize]; a non-positive limit means DefaultPageSize.
func (s *InvoiceServiceImpl) ListInvoices(ctx context.Context, limit, offset int) ([]common.Invoice, int64, error) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	invoices, total, err := s.repo.ListInvoices(ctx, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list invoices", slog.Any("error", err))
		return nil, 0, fmt.Errorf("error listing invoices: %w", err)
	}
	return invoices, total, nil
}

func (s *InvoiceServiceImpl) GetInvoice(ctx context.Context, id uuid.UUID) (*common.Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching invoice: %w", err)
	}
	return inv, nil
}

// CreateInvoice stores the invoice and its items in one transaction. Without
// an explicit number the invoice gets <year>-<seq> from its date's year.
func (s *InvoiceServiceImpl) CreateInvoice(ctx context.Context, params common.CreateInvoiceParams) (*common.Invoice, error) {
	l := s.logger.With(slog.String("method", "CreateInvoice"))

	name := strings.TrimSpace(params.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if params.InvoiceDate.IsZero() {
		return nil, fmt.Errorf("%w: invoice_date is required", common.ErrBadRequest)
	}
	number := strings.TrimSpace(params.InvoiceNumber)
	if len(number) > maxNumberLen {
		return nil, fmt.Errorf("%w: invoice_number exceeds %d characters", common.ErrBadRequest, maxNumberLen)
	}
	items, total, err := buildItems(params.Items)
	if err != nil {
		return nil, err
	}

	var created *common.Invoice
	err = s.repo.InTx(ctx, func(repo InvoiceRepo) error {
		if number == "" {
			year := params.InvoiceDate.Year()
			seq, err := repo.NextSequence(ctx, year)
			if err != nil {
				return err
			}
			number = FormatNumber(year, seq)
		}

		inv := &common.Invoice{
			ID:            uuid.New(),
			Name:          name,
			BillTo:        params.BillTo,
			InvoiceDate:   params.InvoiceDate,
			InvoiceNumber: number,
			Notes:         params.Notes,
			Total:         total,
		}
		if err := repo.CreateInvoice(ctx, inv); err != nil {
			return err
		}
		if err := repo.ReplaceItems(ctx, inv.ID, items); err != nil {
			return err
		}

		got, err := repo.GetInvoice(ctx, inv.ID)
		created = got
		return err
	})
	if err != nil {
		l.ErrorContext(ctx, "Failed to create invoice", slog.Any("error", err))
		return nil, fmt.Errorf("error creating invoice: %w", err)
	}

	l.InfoContext(ctx, "Invoice created",
		slog.String("id", created.ID.String()),
		slog.String("invoice_number", created.InvoiceNumber))
	return created, nil
}

// UpdateInvoice applies the non-nil fields. Replacing items recomputes the total.
func (s *InvoiceServiceImpl) UpdateInvoice(ctx context.Context, id uuid.UUID, params common.UpdateInvoiceParams) (*common.Invoice, error) {
	l := s.logger.With(slog.String("method", "UpdateInvoice"), slog.String("id", id.String()))

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		params.Name = &name
	}
	if params.InvoiceNumber != nil {
		number := strings.TrimSpace(*params.InvoiceNumber)
		if number == "" || len(number) > maxNumberLen {
			return nil, fmt.Errorf("%w: invoice_number must be 1-%d characters", common.ErrBadRequest, maxNumberLen)
		}
		params.InvoiceNumber = &number
	}
	if params.InvoiceDate != nil && params.InvoiceDate.IsZero() {
		return nil, fmt.Errorf("%w: invoice_date is required", common.ErrBadRequest)
	}

	var items []common.InvoiceItem
	var total *float64
	if params.Items != nil {
		built, sum, err := buildItems(*params.Items)
		if err != nil {
			return nil, err
		}
		items, total = built, &sum
	}

	var updated *common.Invoice
	err := s.repo.InTx(ctx, func(repo InvoiceRepo) error {
		if err := repo.UpdateInvoice(ctx, id, params, total); err != nil {
			return err
		}
		if params.Items != nil {
			if err := repo.ReplaceItems(ctx, id, items); err != nil {
				return err
			}
		}
		var err error
		updated, err = repo.GetInvoice(ctx, id)
		return err
	})
	if err != nil {
		l.ErrorContext(ctx, "Failed to update invoice", slog.Any("error", err))
		return nil, fmt.Errorf("error updating invoice: %w", err)
	}

	l.InfoContext(ctx, "Invoice updated")
	return updated, nil
}

func (s *InvoiceServiceImpl) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteInvoice(ctx, id); err != nil {
		return fmt.Errorf("error deleting invoice: %w", err)
	}
	s.logger.InfoContext(ctx, "Invoice deleted", slog.String("id", id.String()))
	return nil
}

// FormatNumber renders the default invoice number, e.g. 2025-0007.
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("%d-%04d", year, seq)
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", common.ErrBadRequest)
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("%w: name exceeds %d characters", common.ErrBadRequest, maxNameLen)
	}
	return nil
}

// buildItems prices each line as quantity × rate rounded to cents and sums
// the invoice total from the rounded amounts.
func buildItems(params []common.InvoiceItemParams) ([]common.InvoiceItem, float64, error) {
	items := make([]common.InvoiceItem, 0, len(params))
	total := decimal.Zero

	for i, p := range params {
		name := strings.TrimSpace(p.Item)
		if name == "" {
			return nil, 0, fmt.Errorf("%w: item %d has no description", common.ErrBadRequest, i+1)
		}
		if len(name) > maxNameLen {
			return nil, 0, fmt.Errorf("%w: item %d exceeds %d characters", common.ErrBadRequest, i+1, maxNameLen)
		}

		qty := decimal.NewFromInt(1)
		if p.Quantity != nil {
			qty = decimal.NewFromFloat(*p.Quantity).Round(2)
		}
		rate := decimal.NewFromFloat(p.Rate).Round(2)
		amount := qty.Mul(rate).Round(2)
		total = total.Add(amount)

		items = append(items, common.InvoiceItem{
			Position: i,
			Item:     name,
			Quantity: qty.InexactFloat64(),
			Rate:     rate.InexactFloat64(),
			Amount:   amount.InexactFloat64(),
		})
	}

	return items, total.InexactFloat64(), nil
}
