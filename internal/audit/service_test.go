package audit

import (
	"context"
	"strings"
	"testing"
	"time"
)

type stubTimelineRepo struct {
	rows       []TimelineRow
	lastLimit  int
	lastOffset int
	lastFilter TimelineFilters
}

func (s *stubTimelineRepo) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	s.lastFilter = filters
	s.lastLimit = limit
	s.lastOffset = offset
	if limit > len(s.rows) {
		limit = len(s.rows)
	}
	return s.rows[:limit], nil
}

func (s *stubTimelineRepo) TimelineAll(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	s.lastFilter = filters
	return s.rows, nil
}

func mockRow(ts, action, entity, entityID, issueCode string) TimelineRow {
	at, _ := time.Parse(time.RFC3339, ts)
	return TimelineRow{At: at, ActorID: 1, ActorName: "admin", Action: action, Entity: entity, EntityID: entityID, IssueCode: issueCode}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{
		mockRow("2025-09-10T10:00:00Z", "ISSUE_TRANSITION", "issue", "1", "ISS2500001"),
		mockRow("2025-09-09T09:00:00Z", "REPORT_APPROVE", "issue_report", "2", ""),
		mockRow("2025-09-08T08:00:00Z", "INVOICE_CREATE", "invoice", "3", ""),
	}}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext {
		t.Fatalf("expected hasNext true")
	}
	if result.Paging.NextPage != 2 {
		t.Fatalf("expected nextPage 2, got %d", result.Paging.NextPage)
	}
	if repo.lastLimit != 3 {
		t.Fatalf("expected lookahead limit 3, got %d", repo.lastLimit)
	}
	if repo.lastOffset != 0 {
		t.Fatalf("expected offset 0, got %d", repo.lastOffset)
	}
}

func TestServiceTimelineCapsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)
	if _, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500}); err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if repo.lastLimit != maxPageSize+1 {
		t.Fatalf("expected limit %d, got %d", maxPageSize+1, repo.lastLimit)
	}
}

func TestServiceExportReturnsAllRows(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{
		mockRow("2025-09-10T10:00:00Z", "ISSUE_TRANSITION", "issue", "1", "ISS2500001"),
		mockRow("2025-09-09T09:00:00Z", "USER_CREATE", "user", "2", ""),
	}}
	svc := NewService(repo)
	rows, err := svc.Export(context.Background(), TimelineFilters{Entity: "issue"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if repo.lastFilter.Entity != "issue" {
		t.Fatalf("expected entity filter to pass through, got %q", repo.lastFilter.Entity)
	}
}

func TestWriteCSV(t *testing.T) {
	rows := []TimelineRow{
		{
			At:       time.Date(2025, 9, 10, 10, 0, 0, 0, time.UTC),
			ActorID:  1,
			Action:   "ISSUE_TRANSITION",
			Entity:   "issue",
			EntityID: "1",
			Meta:     map[string]any{"from": "new"},
		},
	}
	out, err := WriteCSV(rows)
	if err != nil {
		t.Fatalf("write csv: %v", err)
	}
	text := string(out)
	if !strings.HasPrefix(text, "at,actor_id,actor_name,action,entity,entity_id,issue_code,meta\r\n") {
		t.Fatalf("unexpected header: %q", text)
	}
	if !strings.Contains(text, "ISSUE_TRANSITION") {
		t.Fatalf("row missing from output: %q", text)
	}
	if !strings.Contains(text, `""from"":""new""`) && !strings.Contains(text, `"{""from"":""new""}"`) {
		t.Fatalf("meta not serialized: %q", text)
	}
}
