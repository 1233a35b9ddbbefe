package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shaid-7908/display-doctor-v2/internal/platform/httpx"
	"github.com/shaid-7908/display-doctor-v2/internal/rbac"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// Handler manages catalog endpoints.
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

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCatalogView))
		r.Get("/categories", h.listCategories)
		r.Get("/categories/{id}", h.getCategory)
		r.Get("/subcategories", h.listSubCategories)
		r.Get("/skills", h.listSkills)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermCatalogEdit))
		r.Post("/categories", h.createCategory)
		r.Put("/categories/{id}", h.updateCategory)
		r.Put("/categories/{id}/active", h.toggleCategory)
		r.Post("/subcategories", h.createSubCategory)
		r.Put("/subcategories/{id}/active", h.toggleSubCategory)
		r.Post("/skills", h.createSkill)
		r.Put("/skills/{id}/active", h.toggleSkill)
	})
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.CreateCategory(r.Context(), CategoryInput{Name: req.Name, Description: req.Description})
	if err != nil {
		h.respondCatalogError(w, "create category", err)
		return
	}
	httpx.Created(w, created)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	category, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, category)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	limit, offset := shared.PageParams(r, 50)
	items, total, err := h.service.ListCategories(r.Context(), ListFilters{
		Search:     r.URL.Query().Get("search"),
		ActiveOnly: r.URL.Query().Get("active") == "true",
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.UpdateCategory(r.Context(), id, CategoryInput{Name: req.Name, Description: req.Description}); err != nil {
		h.respondCatalogError(w, "update category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type toggleRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (h *Handler) toggleCategory(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.SetCategoryActive)
}

func (h *Handler) toggleSubCategory(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.SetSubCategoryActive)
}

func (h *Handler) toggleSkill(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.SetSkillActive)
}

type subCategoryRequest struct {
	CategoryID  int64   `json:"category_id" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	SkillIDs    []int64 `json:"skill_ids"`
}

func (h *Handler) createSubCategory(w http.ResponseWriter, r *http.Request) {
	var req subCategoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.CreateSubCategory(r.Context(), SubCategoryInput{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		SkillIDs:    req.SkillIDs,
	})
	if err != nil {
		h.respondCatalogError(w, "create sub-category", err)
		return
	}
	httpx.Created(w, created)
}

func (h *Handler) listSubCategories(w http.ResponseWriter, r *http.Request) {
	var categoryID int64
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "category_id must be numeric")
			return
		}
		categoryID = parsed
	}
	items, err := h.service.ListSubCategories(r.Context(), categoryID)
	if err != nil {
		h.logger.Error("list sub-categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

type skillRequest struct {
	Name                   string  `json:"name" validate:"required"`
	Description            string  `json:"description"`
	RecommendedCategoryIDs []int64 `json:"recommended_category_ids"`
}

func (h *Handler) createSkill(w http.ResponseWriter, r *http.Request) {
	var req skillRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.CreateSkill(r.Context(), SkillInput{
		Name:                   req.Name,
		Description:            req.Description,
		RecommendedCategoryIDs: req.RecommendedCategoryIDs,
	})
	if err != nil {
		h.respondCatalogError(w, "create skill", err)
		return
	}
	httpx.Created(w, created)
}

func (h *Handler) listSkills(w http.ResponseWriter, r *http.Request) {
	limit, offset := shared.PageParams(r, 50)
	items, total, err := h.service.ListSkills(r.Context(), ListFilters{
		Search:     r.URL.Query().Get("search"),
		ActiveOnly: r.URL.Query().Get("active") == "true",
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.logger.Error("list skills", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64, active bool) error) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := op(r.Context(), id, *req.Active); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "id must be numeric")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := httpx.DecodeJSON(r, req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondCatalogError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrNameTaken) {
		httpx.Problem(w, http.StatusConflict, "Name Taken", err.Error())
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
