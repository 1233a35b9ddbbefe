package reports

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
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// Handler manages report endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), rbac: rbac}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReportCreate))
		r.Post("/", h.create)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReportApprove))
		r.Patch("/{id}/approve", h.approve)
	})
}

type createReportRequest struct {
	IssueID          int64    `json:"issue_id" validate:"required"`
	TechnicianID     int64    `json:"technician_id"`
	Diagnosis        string   `json:"diagnosis" validate:"required"`
	WorkProposed     string   `json:"work_proposed"`
	RequiredParts    []string `json:"required_parts"`
	BudgetEstimate   float64  `json:"budget_estimate" validate:"gte=0"`
	InitialQuotation float64  `json:"initial_quotation" validate:"gte=0"`
	FinalQuotation   float64  `json:"final_quotation" validate:"gte=0"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), CreateReportInput{
		IssueID:          req.IssueID,
		TechnicianID:     req.TechnicianID,
		Diagnosis:        req.Diagnosis,
		WorkProposed:     req.WorkProposed,
		RequiredParts:    req.RequiredParts,
		BudgetEstimate:   req.BudgetEstimate,
		InitialQuotation: req.InitialQuotation,
		FinalQuotation:   req.FinalQuotation,
	})
	if err != nil {
		h.respondWorkflowError(w, "create report", err)
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
	report, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondWorkflowError(w, "get report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := shared.PageParams(r, 50)
	items, total, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list reports", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

type approveRequest struct {
	InitialQuotation float64 `json:"initial_quotation" validate:"gte=0"`
	FinalQuotation   float64 `json:"final_quotation" validate:"gte=0"`
	Note             string  `json:"note"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "id must be numeric")
		return
	}
	var req approveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	report, err := h.service.Approve(r.Context(), ApproveInput{
		ReportID:         id,
		InitialQuotation: req.InitialQuotation,
		FinalQuotation:   req.FinalQuotation,
		ActorID:          shared.ActorIDFromContext(r.Context()),
		Note:             req.Note,
	})
	if err != nil {
		h.respondWorkflowError(w, "approve report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) respondWorkflowError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrDuplicateReport):
		httpx.Problem(w, http.StatusConflict, "Duplicate Report", err.Error())
	case errors.Is(err, ErrReportNotFound):
		httpx.Problem(w, http.StatusNotFound, "Report Not Found", err.Error())
	case errors.Is(err, issues.ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
