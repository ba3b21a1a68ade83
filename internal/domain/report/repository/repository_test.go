package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/FACorreiaa/adspend-reports/internal/domain/common"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/source"
)

func testPeriod(t *testing.T) common.Period {
	t.Helper()
	p, err := common.ParsePeriod("2025-01-06", "2025-01-12", "weekly")
	if err != nil {
		t.Fatalf("ParsePeriod: %v", err)
	}
	return p
}

func TestSpendQuery(t *testing.T) {
	q, err := spendQuery(source.Rumble)
	if err != nil {
		t.Fatalf("spendQuery: %v", err)
	}
	for _, want := range []string{`SUM("spend")`, `FROM "rumble_data"`, `GROUP BY "campaign"`, "ORDER BY MIN(id)"} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q:\n%s", want, q)
		}
	}

	if _, err := spendQuery(source.BinomGoogle); !errors.Is(err, common.ErrInvalidSource) {
		t.Errorf("revenue source as spend: err = %v, want ErrInvalidSource", err)
	}
}

func TestPostgresReportRepository_SpendByKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	p := testPeriod(t)
	q, _ := spendQuery(source.Google)
	mock.ExpectQuery(regexp.QuoteMeta(q)).
		WithArgs(p.DateFrom, p.DateTo, "weekly").
		WillReturnRows(pgxmock.NewRows([]string{"name", "spend"}).
			AddRow("Summer Sale", 120.5).
			AddRow("Brand", 30.0))

	repo := NewPostgresReportRepository(mock)
	got, err := repo.SpendByKey(context.Background(), source.Google, p)
	if err != nil {
		t.Fatalf("SpendByKey: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Summer Sale" || got[0].Spend != 120.5 || got[1].Name != "Brand" {
		t.Fatalf("unexpected aggregates: %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresReportRepository_RevenueByKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	p := testPeriod(t)
	mock.ExpectQuery(regexp.QuoteMeta(revenueQuery(source.BinomGoogle))).
		WithArgs(p.DateFrom, p.DateTo, "weekly").
		WillReturnRows(pgxmock.NewRows([]string{"name", "revenue", "leads"}).
			AddRow("summer-sale", 300.0, int64(7)))

	repo := NewPostgresReportRepository(mock)
	got, err := repo.RevenueByKey(context.Background(), source.BinomGoogle, p)
	if err != nil {
		t.Fatalf("RevenueByKey: %v", err)
	}
	if len(got) != 1 || got[0].Revenue != 300 || got[0].Leads != 7 {
		t.Fatalf("unexpected aggregates: %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresReportRepository_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(revenueQuery(source.BinomRumble))).
		WillReturnError(errors.New("relation does not exist"))

	repo := NewPostgresReportRepository(mock)
	_, err = repo.RevenueByKey(context.Background(), source.BinomRumble, testPeriod(t))
	if err == nil || !strings.Contains(err.Error(), "binom_rumble_spent_data") {
		t.Fatalf("expected wrapped error naming the table, got %v", err)
	}
}
