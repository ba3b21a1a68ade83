// Package handler exposes the invoice store over HTTP.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/adspend-reports/internal/domain/common"
	"github.com/FACorreiaa/adspend-reports/internal/domain/invoice"
)

const maxBodyBytes = 1 << 20

type InvoiceHandler struct {
	svc    invoice.InvoiceService
	logger *slog.Logger
}

func NewInvoiceHandler(svc invoice.InvoiceService, logger *slog.Logger) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, logger: logger}
}

func (h *InvoiceHandler) Routes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/pdf", h.PDF)
	})
}

// invoiceRequest is shared by create and update; absent fields stay nil.
type invoiceRequest struct {
	Name          *string                     `json:"name"`
	BillTo        *string                     `json:"bill_to"`
	InvoiceDate   *string                     `json:"invoice_date"`
	InvoiceNumber *string                     `json:"invoice_number"`
	Notes         *string                     `json:"notes"`
	Items         *[]common.InvoiceItemParams `json:"items"`
}

type itemResponse struct {
	ID       int64   `json:"id"`
	Item     string  `json:"item"`
	Quantity float64 `json:"quantity"`
	Rate     float64 `json:"rate"`
	Amount   float64 `json:"amount"`
}

type invoiceResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	BillTo        *string        `json:"bill_to"`
	InvoiceDate   string         `json:"invoice_date"`
	InvoiceNumber string         `json:"invoice_number"`
	Notes         *string        `json:"notes"`
	Total         float64        `json:"total"`
	Items         []itemResponse `json:"items,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func toResponse(inv *common.Invoice, withItems bool) invoiceResponse {
	resp := invoiceResponse{
		ID:            inv.ID.String(),
		Name:          inv.Name,
		BillTo:        inv.BillTo,
		InvoiceDate:   inv.InvoiceDate.Format(common.DateLayout),
		InvoiceNumber: inv.InvoiceNumber,
		Notes:         inv.Notes,
		Total:         inv.Total,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
	if withItems {
		resp.Items = make([]itemResponse, 0, len(inv.Items))
		for _, it := range inv.Items {
			resp.Items = append(resp.Items, itemResponse{
				ID: it.ID, Item: it.Item, Quantity: it.Quantity, Rate: it.Rate, Amount: it.Amount,
			})
		}
	}
	return resp
}

func (h *InvoiceHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "invoice request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	common.WriteError(w, status, common.ErrorMessage(err, status))
}

func decode(w http.ResponseWriter, r *http.Request) (*invoiceRequest, error) {
	var req invoiceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON body", common.ErrBadRequest)
	}
	return &req, nil
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := time.Parse(common.DateLayout, *raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invoice_date %q", common.ErrInvalidDate, *raw)
	}
	return &t, nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid invoice id", common.ErrBadRequest)
	}
	return id, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", common.ErrBadRequest, key)
	}
	return n, nil
}

// List handles GET /api/invoices?limit&offset.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	invoices, total, err := h.svc.ListInvoices(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]invoiceResponse, 0, len(invoices))
	for i := range invoices {
		items = append(items, toResponse(&invoices[i], false))
	}
	common.WriteJSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	inv, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, toResponse(inv, true))
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := decode(w, r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	params := common.CreateInvoiceParams{BillTo: req.BillTo, Notes: req.Notes}
	if req.Name != nil {
		params.Name = *req.Name
	}
	if req.InvoiceNumber != nil {
		params.InvoiceNumber = *req.InvoiceNumber
	}
	if req.Items != nil {
		params.Items = *req.Items
	}
	date, err := parseDate(req.InvoiceDate)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if date != nil {
		params.InvoiceDate = *date
	}

	inv, err := h.svc.CreateInvoice(r.Context(), params)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, toResponse(inv, true))
}

// Update serves both PUT and PATCH: only the fields present in the body change.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	req, err := decode(w, r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	date, err := parseDate(req.InvoiceDate)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	inv, err := h.svc.UpdateInvoice(r.Context(), id, common.UpdateInvoiceParams{
		Name:          req.Name,
		BillTo:        req.BillTo,
		InvoiceDate:   date,
		InvoiceNumber: req.InvoiceNumber,
		Notes:         req.Notes,
		Items:         req.Items,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, toResponse(inv, true))
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.svc.DeleteInvoice(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id.String()})
}

// PDF handles GET /api/invoices/{id}/pdf. Rendering is not built; the route
// answers 501 for any well-formed id.
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusNotImplemented, map[string]string{"status": "not_implemented", "id": id.String()})
}
