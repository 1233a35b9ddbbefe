package technicians

import (
	"context"
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

// IssueSource resolves issues by code, implemented by the issues service.
type IssueSource interface {
	Get(ctx context.Context, code string) (*issues.Issue, error)
}

// Handler manages qualification endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	issues    IssueSource
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, issueSource IssueSource, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, issues: issueSource, validator: validator.New(), rbac: rbac}
}

// MountIssueRoutes registers the candidate lookup nested under the issues
// surface, at /issues/{code}/technicians.
func (h *Handler) MountIssueRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermIssueView, shared.PermTechnicianView))
		r.Get("/{code}/technicians", h.issueCandidates)
	})
}

// MountRoutes registers qualification routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermTechnicianView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/by-user/{userID}", h.byTechnician)
		r.Get("/candidates", h.candidates)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermTechnicianEdit))
		r.Post("/", h.qualify)
		r.Post("/{id}/revoke", h.revoke)
		r.Post("/{id}/reinstate", h.reinstate)
	})
}

type qualifyRequest struct {
	TechnicianID      int64   `json:"technician_id" validate:"required"`
	ServiceCategoryID int64   `json:"service_category_id" validate:"required"`
	SubCategoryIDs    []int64 `json:"sub_category_ids"`
}

func (h *Handler) qualify(w http.ResponseWriter, r *http.Request) {
	var req qualifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Qualify(r.Context(), QualifyInput{
		TechnicianID:      req.TechnicianID,
		ServiceCategoryID: req.ServiceCategoryID,
		SubCategoryIDs:    req.SubCategoryIDs,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyQualified) {
			httpx.Problem(w, http.StatusConflict, "Already Qualified", err.Error())
			return
		}
		h.logger.Error("qualify technician", slog.Any("error", err))
		httpx.RespondError(w, err)
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
	q, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var categoryID int64
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "category_id must be numeric")
			return
		}
		categoryID = parsed
	}
	items, err := h.service.List(r.Context(), categoryID)
	if err != nil {
		h.logger.Error("list qualifications", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) byTechnician(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "userID must be numeric")
		return
	}
	items, err := h.service.ByTechnician(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) candidates(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.ParseInt(r.URL.Query().Get("category_id"), 10, 64)
	if err != nil || categoryID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "category_id is required")
		return
	}
	items, err := h.service.Candidates(r.Context(), categoryID)
	if err != nil {
		h.logger.Error("list candidates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

// issueCandidates lists qualified active technicians for the category on the
// issue identified by code.
func (h *Handler) issueCandidates(w http.ResponseWriter, r *http.Request) {
	if h.issues == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "issue lookup not available")
		return
	}
	issue, err := h.issues.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if issue.ServiceCategoryID == 0 {
		httpx.JSON(w, http.StatusOK, map[string]any{"issue_code": issue.Code, "items": []Candidate{}})
		return
	}
	items, err := h.service.Candidates(r.Context(), issue.ServiceCategoryID)
	if err != nil {
		h.logger.Error("issue candidates", slog.String("code", issue.Code), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"issue_code": issue.Code, "items": items})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.service.Revoke)
}

func (h *Handler) reinstate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.service.Reinstate)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "id must be numeric")
		return
	}
	if err := op(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
