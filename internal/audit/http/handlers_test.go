package audithttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shaid-7908/display-doctor-v2/internal/audit"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

type stubTimelineService struct {
	result      audit.Result
	exportRows  []audit.TimelineRow
	lastFilters audit.TimelineFilters
}

func (s *stubTimelineService) Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.lastFilters = filters
	return s.result, nil
}

func (s *stubTimelineService) Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.lastFilters = filters
	return s.exportRows, nil
}

type stubAuditRBAC struct {
	perms []string
}

func (s stubAuditRBAC) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return s.perms, nil
}

func newAuditHandler(service *stubTimelineService, perms []string) *Handler {
	handler := NewHandler(nil, service, stubAuditRBAC{perms: perms})
	handler.now = func() time.Time { return time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC) }
	return handler
}

func withSession(req *http.Request, userID string) *http.Request {
	sess := &shared.Session{}
	sess.SetUser(userID)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestTimelineRequiresPermission(t *testing.T) {
	handler := newAuditHandler(&stubTimelineService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	rr := httptest.NewRecorder()
	handler.handleTimeline(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestTimelineReturnsRows(t *testing.T) {
	rows := []audit.TimelineRow{{
		At:        time.Date(2025, 9, 10, 10, 0, 0, 0, time.UTC),
		ActorID:   7,
		ActorName: "admin",
		Action:    "ISSUE_TRANSITION",
		Entity:    "issue",
		EntityID:  "1",
		IssueCode: "ISS2500001",
	}}
	service := &stubTimelineService{result: audit.Result{Rows: rows, Paging: audit.PagingInfo{Page: 1, PageSize: 20}}}
	handler := newAuditHandler(service, []string{shared.PermAuditView})
	req := withSession(httptest.NewRequest(http.MethodGet, "/audit?from=2025-09-01&to=2025-09-15", nil), "7")
	rr := httptest.NewRecorder()
	handler.handleTimeline(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "ISS2500001") {
		t.Fatalf("expected issue code in response: %s", body)
	}
	if service.lastFilters.From.Format("2006-01-02") != "2025-09-01" {
		t.Fatalf("unexpected filters: %+v", service.lastFilters)
	}
}

func TestTimelineRejectsOversizedRange(t *testing.T) {
	handler := newAuditHandler(&stubTimelineService{}, []string{shared.PermAuditView})
	req := withSession(httptest.NewRequest(http.MethodGet, "/audit?from=2024-01-01&to=2025-09-15", nil), "7")
	rr := httptest.NewRecorder()
	handler.handleTimeline(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestExportCSV(t *testing.T) {
	rows := []audit.TimelineRow{{ActorID: 7, ActorName: "admin", Action: "USER_CREATE", Entity: "user", EntityID: "2"}}
	service := &stubTimelineService{exportRows: rows}
	handler := newAuditHandler(service, []string{shared.PermAuditView})
	req := withSession(httptest.NewRequest(http.MethodGet, "/audit/export.csv?from=2025-09-01&to=2025-09-05", nil), "7")
	rr := httptest.NewRecorder()
	handler.handleExport(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ctype := rr.Header().Get("Content-Type"); !strings.Contains(ctype, "text/csv") {
		t.Fatalf("unexpected content-type: %s", ctype)
	}
	if !strings.Contains(rr.Body.String(), "USER_CREATE") {
		t.Fatalf("row missing from csv: %s", rr.Body.String())
	}
}

func TestIssueTimelineScopesByCode(t *testing.T) {
	service := &stubTimelineService{result: audit.Result{Paging: audit.PagingInfo{Page: 1, PageSize: 20}}}
	handler := newAuditHandler(service, []string{shared.PermAuditView})

	req := withSession(httptest.NewRequest(http.MethodGet, "/audit/timeline/ISS2500042", nil), "7")
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("code", "ISS2500042")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	handler.handleIssueTimeline(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if service.lastFilters.IssueCode != "ISS2500042" {
		t.Fatalf("issue code not applied: %+v", service.lastFilters)
	}
}
