package invoices

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shaid-7908/display-doctor-v2/internal/issues"
	"github.com/shaid-7908/display-doctor-v2/internal/platform/httpx"
	"github.com/shaid-7908/display-doctor-v2/internal/rbac"
	"github.com/shaid-7908/display-doctor-v2/internal/reports"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// Handler manages invoice endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	renderer  *PDFRenderer
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, renderer *PDFRenderer, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, renderer: renderer, validator: validator.New(), rbac: rbac}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermInvoiceView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/pdf", h.pdf)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermInvoiceCreate))
		r.Post("/", h.generate)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermInvoiceUpdate))
		r.Put("/{id}/status", h.updateStatus)
	})
}

type generateRequest struct {
	IssueID        int64   `json:"issue_id" validate:"required"`
	LabourCharge   float64 `json:"labour_charge" validate:"gte=0"`
	PartsCost      float64 `json:"parts_cost" validate:"gte=0"`
	VisitCharge    float64 `json:"visit_charge" validate:"gte=0"`
	Discount       float64 `json:"discount" validate:"gte=0"`
	WarrantyMonths int     `json:"warranty_months" validate:"gte=0"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Generate(r.Context(), GenerateInput{
		IssueID:        req.IssueID,
		LabourCharge:   req.LabourCharge,
		PartsCost:      req.PartsCost,
		VisitCharge:    req.VisitCharge,
		Discount:       req.Discount,
		WarrantyMonths: req.WarrantyMonths,
		CreatedByID:    shared.ActorIDFromContext(r.Context()),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.respondWorkflowError(w, "generate invoice", err)
		return
	}
	httpx.Created(w, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "id must be numeric")
		return
	}
	invoice, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := shared.PageParams(r, 50)
	items, total, err := h.service.List(r.Context(), Status(r.URL.Query().Get("status")), limit, offset)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=paid cancelled"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "id must be numeric")
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	invoice, err := h.service.UpdateStatus(r.Context(), id, Status(req.Status), shared.ActorIDFromContext(r.Context()))
	if err != nil {
		h.respondWorkflowError(w, "update invoice status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "PDF Unavailable", "pdf rendering is not configured")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "id must be numeric")
		return
	}
	pdf, err := h.renderer.Render(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, err)
			return
		}
		h.logger.Error("render invoice pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "PDF Render Failed", "upstream renderer error")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=invoice.pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) respondWorkflowError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvoiceAlreadyExists):
		httpx.Problem(w, http.StatusConflict, "Invoice Already Exists", err.Error())
	case errors.Is(err, reports.ErrReportNotFound):
		httpx.Problem(w, http.StatusNotFound, "Report Not Found", err.Error())
	case errors.Is(err, ErrSubtotalBelowQuotation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Subtotal Below Quotation", err.Error())
	case errors.Is(err, issues.ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
