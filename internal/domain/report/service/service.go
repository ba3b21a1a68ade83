// Package service builds reconciled spend/revenue reports.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FACorreiaa/adspend-reports/internal/domain/common"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/normalizer"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/source"
	"github.com/FACorreiaa/adspend-reports/internal/domain/report/reconcile"
	"github.com/FACorreiaa/adspend-reports/internal/domain/report/repository"
)

const (
	ROILastFull   = "full"
	ROILastCohort = "cohort"
)

// pairing names the spend and revenue sources one report joins.
type pairing struct {
	spend   source.Source
	revenue source.Source
}

var reports = map[string]pairing{
	"google-binom": {spend: source.Google, revenue: source.BinomGoogle},
	"rumble-binom": {spend: source.Rumble, revenue: source.BinomRumble},
}

// ReportRequest holds raw query parameters.
type ReportRequest struct {
	Report      string
	DateFrom    string
	DateTo      string
	ReportType  string
	ROILastMode string
}

type Report struct {
	Name        string
	Period      common.Period
	ROILastMode string
	Rows        []reconcile.Row
	Summary     reconcile.Summary
}

type ReportService struct {
	repo   repository.ReportRepository
	logger *slog.Logger
}

func NewReportService(repo repository.ReportRepository, logger *slog.Logger) *ReportService {
	return &ReportService{repo: repo, logger: logger}
}

// Build reconciles one period and attaches roi_last from the period before it.
func (s *ReportService) Build(ctx context.Context, req ReportRequest) (*Report, error) {
	l := s.logger.With(slog.String("method", "Build"), slog.String("report", req.Report))

	pair, ok := reports[req.Report]
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidReport, req.Report)
	}

	period, err := common.ParsePeriod(req.DateFrom, req.DateTo, req.ReportType)
	if err != nil {
		return nil, err
	}

	mode, err := parseROILastMode(req.ROILastMode)
	if err != nil {
		return nil, err
	}

	current, err := s.reconcile(ctx, pair, period, nil)
	if err != nil {
		l.ErrorContext(ctx, "failed to reconcile period", slog.Any("error", err))
		return nil, err
	}

	var cohort map[string]bool
	if mode == ROILastCohort {
		cohort = make(map[string]bool, len(current.Rows))
		for _, row := range current.Rows {
			cohort[row.Key] = true
		}
	}

	previous, err := s.reconcile(ctx, pair, period.Previous(), cohort)
	if err != nil {
		l.ErrorContext(ctx, "failed to reconcile previous period", slog.Any("error", err))
		return nil, err
	}
	current.Summary.ROILast = previous.Summary.ROI

	l.DebugContext(ctx, "report built",
		slog.String("date_from", period.From()),
		slog.String("date_to", period.To()),
		slog.Int("rows", len(current.Rows)))

	return &Report{
		Name:        req.Report,
		Period:      period,
		ROILastMode: mode,
		Rows:        current.Rows,
		Summary:     current.Summary,
	}, nil
}

// reconcile loads both sides of a period. A non-nil cohort keeps only
// aggregates whose key it contains.
func (s *ReportService) reconcile(ctx context.Context, pair pairing, period common.Period, cohort map[string]bool) (reconcile.Result, error) {
	spend, err := s.repo.SpendByKey(ctx, pair.spend, period)
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("failed to load spend: %w", err)
	}
	revenue, err := s.repo.RevenueByKey(ctx, pair.revenue, period)
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("failed to load revenue: %w", err)
	}

	if cohort != nil {
		spend = filter(spend, cohort, func(a reconcile.SpendAggregate) string { return a.Name })
		revenue = filter(revenue, cohort, func(a reconcile.RevenueAggregate) string { return a.Name })
	}

	return reconcile.Reconcile(spend, revenue), nil
}

func filter[T any](in []T, keys map[string]bool, name func(T) string) []T {
	out := in[:0:0]
	for _, v := range in {
		if keys[normalizer.NormalizeKey(name(v))] {
			out = append(out, v)
		}
	}
	return out
}

func parseROILastMode(raw string) (string, error) {
	switch mode := strings.ToLower(strings.TrimSpace(raw)); mode {
	case "":
		return ROILastFull, nil
	case ROILastFull, ROILastCohort:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrInvalidROIMode, raw)
	}
}
