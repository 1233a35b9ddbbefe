package audithttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shaid-7908/display-doctor-v2/internal/audit"
	"github.com/shaid-7908/display-doctor-v2/internal/platform/httpx"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

const (
	defaultPageSize  = 20
	maxPageSize      = 50
	defaultDateRange = 7 * 24 * time.Hour
	maxDateRangeDays = 90
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// RBACService resolves permissions for the current user.
type RBACService interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// Handler serves the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	rbac    RBACService
	now     func() time.Time
}

// NewHandler builds an audit handler.
func NewHandler(logger *slog.Logger, service TimelineService, rbac RBACService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	if err := h.authorize(r.Context(), shared.PermAuditView); err != nil {
		h.respondAuthError(w, err)
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "load audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// handleIssueTimeline serves the timeline scoped to a single issue code,
// covering the issue's own events plus downstream report and invoice events.
func (h *Handler) handleIssueTimeline(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	if err := h.authorize(r.Context(), shared.PermAuditView); err != nil {
		h.respondAuthError(w, err)
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	filters.IssueCode = strings.TrimSpace(chi.URLParam(r, "code"))
	if filters.IssueCode == "" {
		h.handleFilterError(w, validationError{field: "code"})
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "load issue timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	if err := h.authorize(r.Context(), shared.PermAuditView); err != nil {
		h.respondAuthError(w, err)
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "export audit timeline", err)
		return
	}
	csvBytes, err := audit.WriteCSV(rows)
	if err != nil {
		h.handleServerError(w, "encode csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-timeline.csv\"")
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	now := h.now().UTC()
	toStr := strings.TrimSpace(r.URL.Query().Get("to"))
	if toStr == "" {
		toStr = now.Format("2006-01-02")
	}
	toTime, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return audit.TimelineFilters{}, validationError{field: "to"}
	}
	fromStr := strings.TrimSpace(r.URL.Query().Get("from"))
	if fromStr == "" {
		fromStr = toTime.Add(-defaultDateRange).Format("2006-01-02")
	}
	fromTime, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return audit.TimelineFilters{}, validationError{field: "from"}
	}
	if fromTime.After(toTime) {
		return audit.TimelineFilters{}, validationError{field: "range"}
	}
	if toTime.Sub(fromTime) > maxDateRangeDays*24*time.Hour {
		return audit.TimelineFilters{}, validationError{field: "range"}
	}

	var actorID int64
	if v := strings.TrimSpace(r.URL.Query().Get("actor_id")); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return audit.TimelineFilters{}, validationError{field: "actor_id"}
		}
		actorID = parsed
	}
	page := 1
	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.TimelineFilters{}, validationError{field: "page"}
		}
		page = parsed
	}
	pageSize := defaultPageSize
	if v := strings.TrimSpace(r.URL.Query().Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.TimelineFilters{}, validationError{field: "page_size"}
		}
		if parsed > maxPageSize {
			parsed = maxPageSize
		}
		pageSize = parsed
	}

	return audit.TimelineFilters{
		From:     fromTime,
		To:       toTime.Add(24*time.Hour - time.Nanosecond),
		ActorID:  actorID,
		Entity:   strings.TrimSpace(r.URL.Query().Get("entity")),
		EntityID: strings.TrimSpace(r.URL.Query().Get("entity_id")),
		Action:   strings.TrimSpace(r.URL.Query().Get("action")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (h *Handler) authorize(ctx context.Context, perm string) error {
	if h.rbac == nil {
		return errors.New("audit: rbac not configured")
	}
	userID := shared.ActorIDFromContext(ctx)
	if userID == 0 {
		return errPermissionDenied
	}
	perms, err := h.rbac.EffectivePermissions(ctx, userID)
	if err != nil {
		return err
	}
	for _, granted := range perms {
		if strings.EqualFold(granted, perm) {
			return nil
		}
	}
	return errPermissionDenied
}

func (h *Handler) respondAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, errPermissionDenied) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	h.handleServerError(w, "authorize", err)
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var v validationError
	if errors.As(err, &v) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid filter: "+v.field)
		return
	}
	h.handleServerError(w, "validate filters", err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

type validationError struct {
	field string
}

func (validationError) Error() string {
	return "validation failed"
}

var errPermissionDenied = errors.New("audit: permission denied")
