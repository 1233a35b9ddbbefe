package issues

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// TransitionObserver counts status moves for metrics.
type TransitionObserver interface {
	ObserveTransition(from, to string)
}

// Service handles the issue lifecycle.
type Service struct {
	repo     RepositoryPort
	resolver *AssignmentResolver
	audit    AuditPort
	metrics  TransitionObserver
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, resolver *AssignmentResolver, audit AuditPort, metrics TransitionObserver) *Service {
	return &Service{repo: repo, resolver: resolver, audit: audit, metrics: metrics}
}

// Create registers a new issue in status new with a created history entry.
func (s *Service) Create(ctx context.Context, input CreateIssueInput) (*Issue, error) {
	if input.Contact.Name == "" || input.Contact.Phone == "" {
		return nil, errors.New("contact name and phone required")
	}
	if input.Device.Type == "" {
		return nil, errors.New("device type required")
	}
	if input.ProblemDescription == "" {
		return nil, errors.New("problem description required")
	}
	if input.Priority == "" {
		input.Priority = PriorityNormal
	}
	if input.Source == "" {
		input.Source = SourceWebsite
	}
	created, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "ISSUE_CREATE", created.ID, map[string]any{"code": created.Code})
	return created, nil
}

// Get fetches an issue by code.
func (s *Service) Get(ctx context.Context, code string) (*Issue, error) {
	return s.repo.GetByCode(ctx, code)
}

// GetByID fetches an issue by internal id.
func (s *Service) GetByID(ctx context.Context, id int64) (*Issue, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns issues matching the filters plus the unpaged total.
func (s *Service) List(ctx context.Context, req ListIssuesRequest) ([]IssueWithDetails, int, error) {
	return s.repo.List(ctx, req)
}

// Transition moves the issue to the next status after checking the adjacency
// table. The repository write is conditional on the status observed here, so
// a concurrent move surfaces as shared.ErrConflict instead of a silent
// double-apply.
func (s *Service) Transition(ctx context.Context, code string, next Status, actorID int64, note string) (*Issue, error) {
	issue, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, issue, next, actorID, note)
}

// TransitionByID is Transition keyed on the internal id, used by the report
// and invoice workflows when they cascade status changes.
func (s *Service) TransitionByID(ctx context.Context, id int64, next Status, actorID int64, note string) (*Issue, error) {
	issue, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, issue, next, actorID, note)
}

func (s *Service) transition(ctx context.Context, issue *Issue, next Status, actorID int64, note string) (*Issue, error) {
	if !ValidStatus(next) || !CanTransition(issue.Status, next) {
		return nil, invalidTransition(issue.Status, next)
	}
	entry := HistoryEntry{
		By:     actorID,
		Action: ActionStatusChanged,
		From:   string(issue.Status),
		To:     string(next),
		Note:   note,
	}
	if err := s.repo.ApplyTransition(ctx, issue.ID, issue.Status, next, entry); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveTransition(string(issue.Status), string(next))
	}
	s.recordAudit(ctx, "ISSUE_TRANSITION", issue.ID, map[string]any{
		"code": issue.Code, "from": string(issue.Status), "to": string(next),
	})
	return s.repo.GetByID(ctx, issue.ID)
}

// AssignInput carries an assignment request.
type AssignInput struct {
	TechnicianID int64
	AssignedBy   int64
	Notes        string
	Priority     Priority
}

// Assign routes the issue to a technician after the resolver vets role,
// account status and category qualification. A first assignment also moves
// the status to assigned through the adjacency table; re-assignment keeps
// the status as is.
func (s *Service) Assign(ctx context.Context, code string, input AssignInput) (*Issue, error) {
	issue, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Resolve(ctx, input.TechnicianID, issue.ServiceCategoryID); err != nil {
		return nil, err
	}
	if issue.Status != StatusAssigned && !CanTransition(issue.Status, StatusAssigned) {
		return nil, invalidTransition(issue.Status, StatusAssigned)
	}
	a := Assignment{
		TechnicianID: input.TechnicianID,
		AssignedBy:   input.AssignedBy,
		AssignedAt:   time.Now(),
		Notes:        input.Notes,
	}
	entry := HistoryEntry{
		By:     input.AssignedBy,
		Action: ActionAssigned,
		From:   string(issue.Status),
		To:     string(StatusAssigned),
		Note:   input.Notes,
	}
	if err := s.repo.SetAssignment(ctx, issue.ID, a, input.Priority, issue.Status, entry); err != nil {
		return nil, err
	}
	if s.metrics != nil && issue.Status != StatusAssigned {
		s.metrics.ObserveTransition(string(issue.Status), string(StatusAssigned))
	}
	s.recordAudit(ctx, "ISSUE_ASSIGN", issue.ID, map[string]any{
		"code": issue.Code, "technician_id": input.TechnicianID,
	})
	return s.repo.GetByID(ctx, issue.ID)
}

// UpdateSchedule records a confirmed visit slot. Status changes stay with
// Transition; scheduling alone never moves the lifecycle.
func (s *Service) UpdateSchedule(ctx context.Context, code string, in ScheduleInput, actorID int64) (*Issue, error) {
	issue, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if IsTerminal(issue.Status) {
		return nil, fmt.Errorf("issue %s is %s: %w", issue.Code, issue.Status, shared.ErrConflict)
	}
	if in.ScheduledStart != nil && in.ScheduledEnd != nil && !in.ScheduledEnd.After(*in.ScheduledStart) {
		return nil, errors.New("scheduled_end must be after scheduled_start")
	}
	entry := HistoryEntry{By: actorID, Action: ActionScheduleUpdated}
	if err := s.repo.SetSchedule(ctx, issue.ID, in, entry); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "ISSUE_SCHEDULE", issue.ID, map[string]any{"code": issue.Code})
	return s.repo.GetByID(ctx, issue.ID)
}

// AddNote appends a free-form note to the trail.
func (s *Service) AddNote(ctx context.Context, code string, note string, actorID int64) error {
	if note == "" {
		return errors.New("note required")
	}
	issue, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	return s.repo.AppendHistory(ctx, issue.ID, HistoryEntry{By: actorID, Action: ActionNoteAdded, Note: note})
}

// History returns the full trail, oldest first.
func (s *Service) History(ctx context.Context, code string) ([]HistoryEntry, error) {
	issue, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, issue.ID)
}

// Delete soft-deletes the issue. The row and its trail stay in place for the
// audit timeline.
func (s *Service) Delete(ctx context.Context, code string, actorID int64) error {
	issue, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, issue.ID); err != nil {
		return err
	}
	s.recordAudit(ctx, "ISSUE_DELETE", issue.ID, map[string]any{"code": issue.Code})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorIDFromContext(ctx),
		Action:   action,
		Entity:   shared.AuditEntityIssue,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}
