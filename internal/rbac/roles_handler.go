package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shaid-7908/display-doctor-v2/internal/platform/httpx"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// RolesHandler manages role administration endpoints.
type RolesHandler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      Middleware
}

// NewRolesHandler builds RolesHandler instance.
func NewRolesHandler(logger *slog.Logger, service *Service, rbac Middleware) *RolesHandler {
	return &RolesHandler{logger: logger, service: service, validator: validator.New(), rbac: rbac}
}

// MountRoutes registers role routes.
func (h *RolesHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesView))
		r.Get("/", h.listRoles)
		r.Get("/{id}", h.getRole)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermRolesEdit))
		r.Post("/", h.createRole)
		r.Put("/{id}", h.updateRole)
		r.Delete("/{id}", h.deleteRole)
		r.Put("/{id}/permissions", h.setPermissions)
		r.Post("/{id}/users/{userID}", h.assignUser)
		r.Delete("/{id}/users/{userID}", h.removeUser)
	})
}

type roleRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *RolesHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": roles})
}

func (h *RolesHandler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.respondRoleError(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *RolesHandler) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		h.respondRoleError(w, "create role", err)
		return
	}
	httpx.Created(w, role)
}

func (h *RolesHandler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req roleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.respondRoleError(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *RolesHandler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		h.respondRoleError(w, "delete role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setPermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

func (h *RolesHandler) setPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req setPermissionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.SetRolePermissions(r.Context(), id, req.PermissionIDs); err != nil {
		h.respondRoleError(w, "set role permissions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RolesHandler) assignUser(w http.ResponseWriter, r *http.Request) {
	h.userRole(w, r, h.service.AssignRole)
}

func (h *RolesHandler) removeUser(w http.ResponseWriter, r *http.Request) {
	h.userRole(w, r, h.service.RemoveRole)
}

func (h *RolesHandler) userRole(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, roleID int64) error) {
	roleID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := op(r.Context(), userID, roleID); err != nil {
		h.respondRoleError(w, "user role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RolesHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", name+" must be numeric")
		return 0, false
	}
	return id, true
}

func (h *RolesHandler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
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

func (h *RolesHandler) respondRoleError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Role Not Found", err.Error())
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
