// Package repository reads per-period aggregates for reports.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/adspend-reports/internal/domain/common"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/source"
	"github.com/FACorreiaa/adspend-reports/internal/domain/report/reconcile"
)

// ReportRepository defines the data access interface for report aggregates.
type ReportRepository interface {
	SpendByKey(ctx context.Context, src source.Source, period common.Period) ([]reconcile.SpendAggregate, error)
	RevenueByKey(ctx context.Context, src source.Source, period common.Period) ([]reconcile.RevenueAggregate, error)
}

// Querier is the read surface of pgxpool.Pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// spendMeasures names the money column summed per spend source.
var spendMeasures = map[source.Source]string{
	source.Google: "cost",
	source.Rumble: "spend",
}

type PostgresReportRepository struct {
	pool Querier
}

func NewPostgresReportRepository(pool Querier) *PostgresReportRepository {
	return &PostgresReportRepository{pool: pool}
}

var _ ReportRepository = (*PostgresReportRepository)(nil)

type spendRow struct {
	Name  string  `db:"name"`
	Spend float64 `db:"spend"`
}

type revenueRow struct {
	Name    string  `db:"name"`
	Revenue float64 `db:"revenue"`
	Leads   int64   `db:"leads"`
}

// Groups come back in insertion order of their first row.
func spendQuery(src source.Source) (string, error) {
	measure, ok := spendMeasures[src]
	if !ok {
		return "", fmt.Errorf("%w: %s carries no spend", common.ErrInvalidSource, src)
	}
	key := pgx.Identifier{src.KeyColumn()}.Sanitize()
	return fmt.Sprintf(`
		SELECT COALESCE(%[1]s, '') AS name, COALESCE(SUM(%[2]s), 0)::float8 AS spend
		FROM %[3]s
		WHERE date_from = $1 AND date_to = $2 AND report_type = $3
		GROUP BY %[1]s
		ORDER BY MIN(id)
	`, key, pgx.Identifier{measure}.Sanitize(), pgx.Identifier{src.Table()}.Sanitize()), nil
}

func revenueQuery(src source.Source) string {
	return fmt.Sprintf(`
		SELECT COALESCE(name, '') AS name,
		       COALESCE(SUM(revenue), 0)::float8 AS revenue,
		       COALESCE(SUM(leads), 0)::bigint AS leads
		FROM %s
		WHERE date_from = $1 AND date_to = $2 AND report_type = $3
		GROUP BY name
		ORDER BY MIN(id)
	`, pgx.Identifier{src.Table()}.Sanitize())
}

func startSpan(ctx context.Context, name, table string) (context.Context, trace.Span) {
	return otel.Tracer("ReportRepo").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", table),
	))
}

// SpendByKey sums spend per raw campaign name for one period.
func (r *PostgresReportRepository) SpendByKey(ctx context.Context, src source.Source, period common.Period) ([]reconcile.SpendAggregate, error) {
	ctx, span := startSpan(ctx, "SpendByKey", src.Table())
	defer span.End()

	query, err := spendQuery(src)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, period.DateFrom, period.DateTo, period.ReportType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to aggregate spend from %s: %w", src.Table(), err)
	}

	scanned, err := pgx.CollectRows(rows, pgx.RowToStructByName[spendRow])
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		return nil, fmt.Errorf("failed to scan spend aggregates: %w", err)
	}

	out := make([]reconcile.SpendAggregate, len(scanned))
	for i, s := range scanned {
		out[i] = reconcile.SpendAggregate{Name: s.Name, Spend: s.Spend}
	}
	span.SetAttributes(attribute.Int("db.rows", len(out)))
	return out, nil
}

// RevenueByKey sums revenue and leads per raw tracker name for one period.
func (r *PostgresReportRepository) RevenueByKey(ctx context.Context, src source.Source, period common.Period) ([]reconcile.RevenueAggregate, error) {
	ctx, span := startSpan(ctx, "RevenueByKey", src.Table())
	defer span.End()

	rows, err := r.pool.Query(ctx, revenueQuery(src), period.DateFrom, period.DateTo, period.ReportType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to aggregate revenue from %s: %w", src.Table(), err)
	}

	scanned, err := pgx.CollectRows(rows, pgx.RowToStructByName[revenueRow])
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		return nil, fmt.Errorf("failed to scan revenue aggregates: %w", err)
	}

	out := make([]reconcile.RevenueAggregate, len(scanned))
	for i, s := range scanned {
		out[i] = reconcile.RevenueAggregate{Name: s.Name, Revenue: s.Revenue, Leads: s.Leads}
	}
	span.SetAttributes(attribute.Int("db.rows", len(out)))
	return out, nil
}
