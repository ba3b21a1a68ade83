package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/adspend-reports/internal/domain/common"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/source"
	"github.com/FACorreiaa/adspend-reports/pkg/db"
)

const (
	createUploadQuery = `
		INSERT INTO uploads (id, source_type, filename, checksum, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, source_type, filename, checksum, uploaded_at, created_at
	`

	batchesLimit = 20
)

// periodColumns lead every dataset insert.
var periodColumns = []string{"date_from", "date_to", "report_type", "upload_id"}

var _ Store = (*PostgresImportRepository)(nil)

var errNestedTx = errors.New("transaction already in progress")

// PostgresImportRepository implements Store using PostgreSQL
type PostgresImportRepository struct {
	conn db.DBTX
	pool db.PgxPool
}

// NewPostgresImportRepository creates a new PostgreSQL-backed import repository
func NewPostgresImportRepository(pool db.PgxPool) *PostgresImportRepository {
	return &PostgresImportRepository{conn: pool, pool: pool}
}

// InTx runs fn with a repository bound to a single transaction.
func (r *PostgresImportRepository) InTx(ctx context.Context, fn func(repo ImportRepository) error) error {
	if r.pool == nil {
		return errNestedTx
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&PostgresImportRepository{conn: tx})
	})
}

func startSpan(ctx context.Context, name, operation, table string) (context.Context, trace.Span) {
	return otel.Tracer("ImportRepo").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", table),
	))
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// CreateUpload records a new upload with a fresh id.
func (r *PostgresImportRepository) CreateUpload(ctx context.Context, src source.Source, filename, checksum string) (*Upload, error) {
	ctx, span := startSpan(ctx, "CreateUpload", "INSERT", "uploads")
	defer span.End()

	var sum *string
	if checksum != "" {
		sum = &checksum
	}

	rows, err := r.conn.Query(ctx, createUploadQuery, uuid.New(), src.String(), filename, sum, time.Now().UTC())
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("failed to create upload: %w", err)
	}

	upload, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Upload])
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("failed to read created upload: %w", err)
	}

	return &upload, nil
}

// InsertRows copies records into the source table in one COPY round trip.
func (r *PostgresImportRepository) InsertRows(ctx context.Context, src source.Source, period common.Period, uploadID uuid.UUID, records []source.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	ctx, span := startSpan(ctx, "InsertRows", "COPY", src.Table())
	defer span.End()
	span.SetAttributes(attribute.Int("db.rows", len(records)))

	columns := append(append([]string{}, periodColumns...), src.Columns()...)
	from, to := period.DateFrom, period.DateTo

	n, err := r.conn.CopyFrom(ctx,
		pgx.Identifier{src.Table()},
		columns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return append([]any{from, to, period.ReportType, uploadID}, records[i].Values()...), nil
		}),
	)
	if err != nil {
		fail(span, err)
		return 0, fmt.Errorf("failed to copy rows into %s: %w", src.Table(), err)
	}

	return n, nil
}

func listBatchesQuery(src source.Source) string {
	return fmt.Sprintf(`
		SELECT date_from, date_to, report_type, COUNT(*) AS count
		FROM %s
		GROUP BY date_from, date_to, report_type
		ORDER BY date_from DESC, date_to DESC, report_type
		LIMIT %d
	`, pgx.Identifier{src.Table()}.Sanitize(), batchesLimit)
}

func (r *PostgresImportRepository) ListBatches(ctx context.Context, src source.Source) ([]Batch, error) {
	ctx, span := startSpan(ctx, "ListBatches", "SELECT", src.Table())
	defer span.End()

	rows, err := r.conn.Query(ctx, listBatchesQuery(src))
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	batches, err := pgx.CollectRows(rows, pgx.RowToStructByName[Batch])
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("failed to scan batches: %w", err)
	}

	return batches, nil
}

// deleteRowsQuery builds the DELETE for a filter; placeholders follow the
// order of the returned args.
func deleteRowsQuery(src source.Source, filter DeleteFilter) (string, []any) {
	var where []string
	var args []any

	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		where = append(where, fmt.Sprintf("date_from = $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		where = append(where, fmt.Sprintf("date_to = $%d", len(args)))
	}
	if filter.ReportType != "" {
		args = append(args, filter.ReportType)
		where = append(where, fmt.Sprintf("report_type = $%d", len(args)))
	}

	query := "DELETE FROM " + pgx.Identifier{src.Table()}.Sanitize()
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query, args
}

// DeleteRows removes dataset rows matching the filter and returns how many went.
func (r *PostgresImportRepository) DeleteRows(ctx context.Context, src source.Source, filter DeleteFilter) (int64, error) {
	ctx, span := startSpan(ctx, "DeleteRows", "DELETE", src.Table())
	defer span.End()

	query, args := deleteRowsQuery(src, filter)
	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		fail(span, err)
		return 0, fmt.Errorf("failed to delete rows from %s: %w", src.Table(), err)
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}
