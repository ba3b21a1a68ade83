// Package handler exposes ingestion over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/adspend-reports/internal/domain/common"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/repository"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/service"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/source"
)

const multipartMemory = 32 << 20

// ImportService is the part of service.ImportService the handler needs.
type ImportService interface {
	Ingest(ctx context.Context, req service.IngestRequest) (*service.IngestResult, error)
	ListBatches(ctx context.Context, sourceID string) (source.Source, []repository.Batch, error)
	DeleteRows(ctx context.Context, sourceID, dateFrom, dateTo, reportType string) (int64, error)
}

type ImportHandler struct {
	svc            ImportService
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewImportHandler(svc ImportService, logger *slog.Logger, maxUploadBytes int64) *ImportHandler {
	return &ImportHandler{svc: svc, logger: logger, maxUploadBytes: maxUploadBytes}
}

// Routes mounts upload, batch listing and deletion endpoints. uploadMW wraps
// the upload route only.
func (h *ImportHandler) Routes(r chi.Router, uploadMW ...func(http.Handler) http.Handler) {
	r.With(uploadMW...).Post("/uploads/{source}", h.Upload)
	r.Get("/{source}/batches", h.ListBatches)
	r.Delete("/{source}", h.DeleteRows)
}

type uploadResponse struct {
	Status     string `json:"status"`
	Source     string `json:"source"`
	UploadID   string `json:"upload_id"`
	Inserted   int64  `json:"inserted"`
	DateFrom   string `json:"date_from"`
	DateTo     string `json:"date_to"`
	ReportType string `json:"report_type"`
}

type batchResponse struct {
	DateFrom   string `json:"date_from"`
	DateTo     string `json:"date_to"`
	ReportType string `json:"report_type"`
	Count      int64  `json:"count"`
}

// Upload handles POST /api/uploads/{source} (multipart: file, date_from,
// date_to, report_type).
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("method", "Upload"))

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.WriteError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			common.WriteError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
	}

	req := service.IngestRequest{
		Source:     chi.URLParam(r, "source"),
		DateFrom:   r.FormValue("date_from"),
		DateTo:     r.FormValue("date_to"),
		ReportType: r.FormValue("report_type"),
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		req.File = file
		req.Filename = header.Filename
	}

	result, err := h.svc.Ingest(ctx, req)
	if err != nil {
		status := common.HTTPStatus(err)
		resp := common.ErrorResponse{Error: common.ErrorMessage(err, status)}
		var mismatch *service.FormatMismatchError
		if errors.As(err, &mismatch) {
			resp.ExpectedFields = mismatch.Expected
		}
		if status >= http.StatusInternalServerError {
			l.ErrorContext(ctx, "upload failed", slog.Any("error", err))
		}
		common.WriteJSON(w, status, resp)
		return
	}

	status := http.StatusOK
	if result.Status == service.StatusAccepted {
		status = http.StatusAccepted
	}
	common.WriteJSON(w, status, uploadResponse{
		Status:     result.Status,
		Source:     result.Source.String(),
		UploadID:   result.UploadID.String(),
		Inserted:   result.Inserted,
		DateFrom:   result.Period.From(),
		DateTo:     result.Period.To(),
		ReportType: result.Period.ReportType,
	})
}

// ListBatches handles GET /api/{source}/batches.
func (h *ImportHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	src, batches, err := h.svc.ListBatches(r.Context(), chi.URLParam(r, "source"))
	if err != nil {
		status := common.HTTPStatus(err)
		common.WriteError(w, status, common.ErrorMessage(err, status))
		return
	}

	out := make([]batchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, batchResponse{
			DateFrom:   b.DateFrom.Format(common.DateLayout),
			DateTo:     b.DateTo.Format(common.DateLayout),
			ReportType: b.ReportType,
			Count:      b.Count,
		})
	}

	common.WriteJSON(w, http.StatusOK, map[string]any{
		"source":  src.String(),
		"batches": out,
	})
}

// DeleteRows handles DELETE /api/{source}?date_from&date_to&report_type.
func (h *ImportHandler) DeleteRows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, err := h.svc.DeleteRows(r.Context(), chi.URLParam(r, "source"), q.Get("date_from"), q.Get("date_to"), q.Get("report_type"))
	if err != nil {
		status := common.HTTPStatus(err)
		common.WriteError(w, status, common.ErrorMessage(err, status))
		return
	}

	common.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "deleted",
		"rows":   n,
	})
}
