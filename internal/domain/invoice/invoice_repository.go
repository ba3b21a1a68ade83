package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/adspend-reports/internal/domain/common"
	"github.com/FACorreiaa/adspend-reports/pkg/db"
)

const (
	invoiceColumns = `id, name, bill_to, invoice_date, invoice_number, notes, total::float8 AS total, created_at, updated_at`

	listInvoicesQuery = `SELECT ` + invoiceColumns + `
		FROM invoices
		ORDER BY invoice_date DESC, invoice_number DESC
		LIMIT $1 OFFSET $2`

	countInvoicesQuery = `SELECT COUNT(*) FROM invoices`

	getInvoiceQuery = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

	listItemsQuery = `
		SELECT id, position, item, quantity::float8 AS quantity, rate::float8 AS rate, amount::float8 AS amount
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY position, id`

	createInvoiceQuery = `
		INSERT INTO invoices (id, name, bill_to, invoice_date, invoice_number, notes, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	deleteItemsQuery   = `DELETE FROM invoice_items WHERE invoice_id = $1`
	deleteInvoiceQuery = `DELETE FROM invoices WHERE id = $1`

	nextSequenceQuery = `
		INSERT INTO invoice_sequences (year, seq) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET seq = invoice_sequences.seq + 1
		RETURNING seq`

	uniqueViolation = "23505"
)

var itemColumns = []string{"invoice_id", "position", "item", "quantity", "rate", "amount"}

var _ InvoiceRepo = (*PostgresInvoiceRepo)(nil)

// InvoiceRepo defines the contract for invoice persistence.
type InvoiceRepo interface {
	// ListInvoices returns one page of invoices without items and the total count.
	ListInvoices(ctx context.Context, limit, offset int) ([]common.Invoice, int64, error)
	// GetInvoice returns the invoice with its items, or common.ErrNotFound.
	GetInvoice(ctx context.Context, id uuid.UUID) (*common.Invoice, error)
	// CreateInvoice inserts the header row and fills the timestamps.
	CreateInvoice(ctx context.Context, inv *common.Invoice) error
	// UpdateInvoice sets the non-nil header fields and, when given, the total.
	UpdateInvoice(ctx context.Context, id uuid.UUID, params common.UpdateInvoiceParams, total *float64) error
	ReplaceItems(ctx context.Context, id uuid.UUID, items []common.InvoiceItem) error
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
	// NextSequence allocates the next number of a year, starting at 1.
	NextSequence(ctx context.Context, year int) (int, error)
	InTx(ctx context.Context, fn func(repo InvoiceRepo) error) error
}

type PostgresInvoiceRepo struct {
	conn db.DBTX
	pool db.PgxPool
}

func NewPostgresInvoiceRepo(pool db.PgxPool) *PostgresInvoiceRepo {
	return &PostgresInvoiceRepo{conn: pool, pool: pool}
}

func (r *PostgresInvoiceRepo) InTx(ctx context.Context, fn func(repo InvoiceRepo) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&PostgresInvoiceRepo{conn: tx})
	})
}

func startSpan(ctx context.Context, name, operation, table string) (context.Context, trace.Span) {
	return otel.Tracer("InvoiceRepo").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", table),
	))
}

func (r *PostgresInvoiceRepo) ListInvoices(ctx context.Context, limit, offset int) ([]common.Invoice, int64, error) {
	ctx, span := startSpan(ctx, "ListInvoices", "SELECT", "invoices")
	defer span.End()

	var total int64
	if err := r.conn.QueryRow(ctx, countInvoicesQuery).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB COUNT failed")
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	rows, err := r.conn.Query(ctx, listInvoicesQuery, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, 0, fmt.Errorf("failed to query invoices: %w", err)
	}

	invoices, err := pgx.CollectRows(rows, pgx.RowToStructByName[common.Invoice])
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		return nil, 0, fmt.Errorf("failed to scan invoices: %w", err)
	}

	return invoices, total, nil
}

func (r *PostgresInvoiceRepo) GetInvoice(ctx context.Context, id uuid.UUID) (*common.Invoice, error) {
	ctx, span := startSpan(ctx, "GetInvoice", "SELECT", "invoices")
	defer span.End()
	span.SetAttributes(attribute.String("db.invoice.id", id.String()))

	rows, err := r.conn.Query(ctx, getInvoiceQuery, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query invoice: %w", err)
	}

	inv, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[common.Invoice])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice not found: %w", common.ErrNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}

	itemRows, err := r.conn.Query(ctx, listItemsQuery, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query invoice items: %w", err)
	}

	inv.Items, err = pgx.CollectRows(itemRows, pgx.RowToStructByName[common.InvoiceItem])
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to scan invoice items: %w", err)
	}

	return &inv, nil
}

func (r *PostgresInvoiceRepo) CreateInvoice(ctx context.Context, inv *common.Invoice) error {
	ctx, span := startSpan(ctx, "CreateInvoice", "INSERT", "invoices")
	defer span.End()

	err := r.conn.QueryRow(ctx, createInvoiceQuery,
		inv.ID, inv.Name, inv.BillTo, inv.InvoiceDate, inv.InvoiceNumber, inv.Notes, inv.Total,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return wrapWriteError("failed to create invoice", inv.InvoiceNumber, err)
	}

	return nil
}

func (r *PostgresInvoiceRepo) UpdateInvoice(ctx context.Context, id uuid.UUID, params common.UpdateInvoiceParams, total *float64) error {
	ctx, span := startSpan(ctx, "UpdateInvoice", "UPDATE", "invoices")
	defer span.End()

	var setClauses []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
		span.SetAttributes(attribute.Bool("update."+column, true))
	}

	if params.Name != nil {
		set("name", *params.Name)
	}
	if params.BillTo != nil {
		set("bill_to", *params.BillTo)
	}
	if params.InvoiceDate != nil {
		set("invoice_date", *params.InvoiceDate)
	}
	if params.InvoiceNumber != nil {
		set("invoice_number", *params.InvoiceNumber)
	}
	if params.Notes != nil {
		set("notes", *params.Notes)
	}
	if total != nil {
		set("total", *total)
	}
	set("updated_at", time.Now().UTC())

	args = append(args, id)
	query := fmt.Sprintf("UPDATE invoices SET %s WHERE id = $%d", strings.Join(setClauses, ", "), len(args))

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		number := ""
		if params.InvoiceNumber != nil {
			number = *params.InvoiceNumber
		}
		return wrapWriteError("failed to update invoice", number, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice not found for update: %w", common.ErrNotFound)
	}

	return nil
}

// ReplaceItems drops every line of the invoice and copies the given ones in.
func (r *PostgresInvoiceRepo) ReplaceItems(ctx context.Context, id uuid.UUID, items []common.InvoiceItem) error {
	ctx, span := startSpan(ctx, "ReplaceItems", "COPY", "invoice_items")
	defer span.End()
	span.SetAttributes(attribute.Int("db.rows", len(items)))

	if _, err := r.conn.Exec(ctx, deleteItemsQuery, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete invoice items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	_, err := r.conn.CopyFrom(ctx, pgx.Identifier{"invoice_items"}, itemColumns,
		pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
			it := items[i]
			return []any{id, it.Position, it.Item, it.Quantity, it.Rate, it.Amount}, nil
		}),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB COPY failed")
		return fmt.Errorf("failed to copy invoice items: %w", err)
	}

	return nil
}

func (r *PostgresInvoiceRepo) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	ctx, span := startSpan(ctx, "DeleteInvoice", "DELETE", "invoices")
	defer span.End()

	tag, err := r.conn.Exec(ctx, deleteInvoiceQuery, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice not found for delete: %w", common.ErrNotFound)
	}

	return nil
}

func (r *PostgresInvoiceRepo) NextSequence(ctx context.Context, year int) (int, error) {
	ctx, span := startSpan(ctx, "NextSequence", "UPSERT", "invoice_sequences")
	defer span.End()

	var seq int
	if err := r.conn.QueryRow(ctx, nextSequenceQuery, year).Scan(&seq); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to allocate invoice sequence for %d: %w", year, err)
	}

	return seq, nil
}

func wrapWriteError(msg, number string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("invoice number %q already exists: %w", number, common.ErrConflict)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
