package issues

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shaid-7908/display-doctor-v2/internal/platform/httpx"
	"github.com/shaid-7908/display-doctor-v2/internal/rbac"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// Handler manages issue endpoints.
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

// MountRoutes registers issue routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermIssueView))
		r.Get("/", h.list)
		r.Get("/{code}", h.get)
		r.Get("/{code}/history", h.history)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermIssueCreate))
		r.Post("/", h.create)
		r.Post("/{code}/notes", h.addNote)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermIssueAssign))
		r.Post("/{code}/assign", h.assign)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermIssueSchedule))
		r.Post("/{code}/schedule", h.schedule)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermIssueTransition))
		r.Post("/{code}/transition", h.transition)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermIssueDelete))
		r.Delete("/{code}", h.remove)
	})
}

type createIssueRequest struct {
	CustomerID         int64    `json:"customer_id"`
	ContactName        string   `json:"contact_name" validate:"required"`
	ContactPhone       string   `json:"contact_phone" validate:"required"`
	ContactEmail       string   `json:"contact_email" validate:"omitempty,email"`
	Address            string   `json:"address" validate:"required"`
	Landmark           string   `json:"landmark"`
	City               string   `json:"city" validate:"required"`
	State              string   `json:"state" validate:"required"`
	PinCode            string   `json:"pin_code" validate:"required"`
	ServiceCategoryID  int64    `json:"service_category_id"`
	DeviceType         string   `json:"device_type" validate:"required"`
	DeviceBrand        string   `json:"device_brand"`
	DeviceModel        string   `json:"device_model"`
	DeviceSerial       string   `json:"device_serial"`
	WarrantyStatus     string   `json:"warranty_status"`
	ProblemDescription string   `json:"problem_description" validate:"required"`
	Photos             []string `json:"photos"`
	Source             string   `json:"source"`
	Priority           string   `json:"priority"`
	PreferredDate      string   `json:"preferred_date"`
	Window             string   `json:"window"`
	Note               string   `json:"note"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateIssueInput{
		CustomerID: req.CustomerID,
		Contact: Contact{
			Name: req.ContactName, Phone: req.ContactPhone, Email: req.ContactEmail,
			Address: req.Address, Landmark: req.Landmark,
			City: req.City, State: req.State, PinCode: req.PinCode,
		},
		ServiceCategoryID: req.ServiceCategoryID,
		Device: Device{
			Type: req.DeviceType, Brand: req.DeviceBrand, Model: req.DeviceModel,
			SerialNumber: req.DeviceSerial, WarrantyStatus: req.WarrantyStatus,
		},
		ProblemDescription: req.ProblemDescription,
		Photos:             req.Photos,
		Source:             Source(req.Source),
		Priority:           Priority(req.Priority),
		Window:             req.Window,
		CreatedByID:        shared.ActorIDFromContext(r.Context()),
		Note:               req.Note,
	}
	if req.PreferredDate != "" {
		d, err := time.Parse("2006-01-02", req.PreferredDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "preferred_date must be YYYY-MM-DD")
			return
		}
		input.PreferredDate = &d
	}

	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create issue", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	issue, err := h.service.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, issue)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ListIssuesRequest{
		Status:   Status(q.Get("status")),
		Priority: Priority(q.Get("priority")),
	}
	if v := q.Get("technician_id"); v != "" {
		req.TechnicianID, _ = strconv.ParseInt(v, 10, 64)
	}
	req.Limit, req.Offset = shared.PageParams(r, 50)

	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list issues", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

type assignRequest struct {
	TechnicianID int64  `json:"technician_id" validate:"required"`
	Notes        string `json:"notes"`
	Priority     string `json:"priority"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	issue, err := h.service.Assign(r.Context(), chi.URLParam(r, "code"), AssignInput{
		TechnicianID: req.TechnicianID,
		AssignedBy:   shared.ActorIDFromContext(r.Context()),
		Notes:        req.Notes,
		Priority:     Priority(req.Priority),
	})
	if err != nil {
		h.respondWorkflowError(w, "assign issue", err)
		return
	}
	httpx.JSON(w, http.StatusOK, issue)
}

type scheduleRequest struct {
	PreferredDate  string `json:"preferred_date"`
	Window         string `json:"window"`
	ScheduledStart string `json:"scheduled_start"`
	ScheduledEnd   string `json:"scheduled_end"`
}

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	var in ScheduleInput
	in.Window = req.Window
	parse := func(raw, layout string) (*time.Time, bool) {
		if raw == "" {
			return nil, true
		}
		t, err := time.Parse(layout, raw)
		if err != nil {
			return nil, false
		}
		return &t, true
	}
	var ok bool
	if in.PreferredDate, ok = parse(req.PreferredDate, "2006-01-02"); !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "preferred_date must be YYYY-MM-DD")
		return
	}
	if in.ScheduledStart, ok = parse(req.ScheduledStart, time.RFC3339); !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "scheduled_start must be RFC3339")
		return
	}
	if in.ScheduledEnd, ok = parse(req.ScheduledEnd, time.RFC3339); !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "scheduled_end must be RFC3339")
		return
	}

	issue, err := h.service.UpdateSchedule(r.Context(), chi.URLParam(r, "code"), in, shared.ActorIDFromContext(r.Context()))
	if err != nil {
		h.respondWorkflowError(w, "schedule issue", err)
		return
	}
	httpx.JSON(w, http.StatusOK, issue)
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	issue, err := h.service.Transition(r.Context(), chi.URLParam(r, "code"), Status(req.Status),
		shared.ActorIDFromContext(r.Context()), req.Note)
	if err != nil {
		h.respondWorkflowError(w, "transition issue", err)
		return
	}
	httpx.JSON(w, http.StatusOK, issue)
}

type noteRequest struct {
	Note string `json:"note" validate:"required"`
}

func (h *Handler) addNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	code := chi.URLParam(r, "code")
	if err := h.service.AddNote(r.Context(), code, req.Note, shared.ActorIDFromContext(r.Context())); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.History(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "code"), shared.ActorIDFromContext(r.Context())); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondWorkflowError maps lifecycle failures onto problem responses.
func (h *Handler) respondWorkflowError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrAssignmentRejected):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Assignment Rejected", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
