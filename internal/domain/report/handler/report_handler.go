// Package handler exposes reports over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/adspend-reports/internal/domain/common"
	"github.com/FACorreiaa/adspend-reports/internal/domain/report/reconcile"
	"github.com/FACorreiaa/adspend-reports/internal/domain/report/service"
)

type ReportService interface {
	Build(ctx context.Context, req service.ReportRequest) (*service.Report, error)
}

type ReportHandler struct {
	svc    ReportService
	logger *slog.Logger
}

func NewReportHandler(svc ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, logger: logger}
}

func (h *ReportHandler) Routes(r chi.Router) {
	r.Get("/reports/{report}", h.GetReport)
}

type reportResponse struct {
	Report           string            `json:"report"`
	ReportType       string            `json:"report_type"`
	DateFrom         string            `json:"date_from"`
	DateTo           string            `json:"date_to"`
	ROILastMode      string            `json:"roi_last_mode"`
	Rows             []reconcile.Row   `json:"rows"`
	AccountSummaries []any             `json:"account_summaries"`
	Summary          reconcile.Summary `json:"summary"`
}

// GetReport handles GET /api/reports/{report}.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	rep, err := h.svc.Build(ctx, service.ReportRequest{
		Report:      chi.URLParam(r, "report"),
		DateFrom:    q.Get("date_from"),
		DateTo:      q.Get("date_to"),
		ReportType:  q.Get("report_type"),
		ROILastMode: q.Get("roi_last_mode"),
	})
	if err != nil {
		status := common.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "report failed", slog.Any("error", err))
		}
		common.WriteError(w, status, common.ErrorMessage(err, status))
		return
	}

	rows := rep.Rows
	if rows == nil {
		rows = []reconcile.Row{}
	}
	common.WriteJSON(w, http.StatusOK, reportResponse{
		Report:           rep.Name,
		ReportType:       rep.Period.ReportType,
		DateFrom:         rep.Period.From(),
		DateTo:           rep.Period.To(),
		ROILastMode:      rep.ROILastMode,
		Rows:             rows,
		AccountSummaries: []any{},
		Summary:          rep.Summary,
	})
}
