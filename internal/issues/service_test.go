package issues

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

type memoryIssueRepo struct {
	issues        map[int64]*Issue
	history       map[int64][]HistoryEntry
	nextID        int64
	nextHistoryID int64
	seq           int

	// beforeApply runs inside ApplyTransition before the status check, to
	// simulate a concurrent writer.
	beforeApply func()
}

func newMemoryIssueRepo() *memoryIssueRepo {
	return &memoryIssueRepo{
		issues:  make(map[int64]*Issue),
		history: make(map[int64][]HistoryEntry),
	}
}

func (r *memoryIssueRepo) Create(ctx context.Context, input CreateIssueInput) (*Issue, error) {
	r.nextID++
	r.seq++
	now := time.Now()
	issue := &Issue{
		ID:                 r.nextID,
		Code:               fmt.Sprintf("ISS%s%05d", now.Format("06"), r.seq),
		CustomerID:         input.CustomerID,
		Contact:            input.Contact,
		ServiceCategoryID:  input.ServiceCategoryID,
		Device:             input.Device,
		ProblemDescription: input.ProblemDescription,
		Photos:             input.Photos,
		Source:             input.Source,
		Priority:           input.Priority,
		Status:             StatusNew,
		Schedule:           Schedule{PreferredDate: input.PreferredDate, Window: input.Window},
		CreatedByID:        input.CreatedByID,
		CreatedByRole:      input.CreatedByRole,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	r.issues[issue.ID] = issue
	r.append(issue.ID, HistoryEntry{By: input.CreatedByID, Action: ActionCreated, Note: input.Note})
	return copyIssue(issue), nil
}

func (r *memoryIssueRepo) GetByID(ctx context.Context, id int64) (*Issue, error) {
	issue, ok := r.issues[id]
	if !ok || issue.IsDeleted {
		return nil, shared.ErrNotFound
	}
	return copyIssue(issue), nil
}

func (r *memoryIssueRepo) GetByCode(ctx context.Context, code string) (*Issue, error) {
	for _, issue := range r.issues {
		if issue.Code == code && !issue.IsDeleted {
			return copyIssue(issue), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryIssueRepo) List(ctx context.Context, req ListIssuesRequest) ([]IssueWithDetails, int, error) {
	var out []IssueWithDetails
	for _, issue := range r.issues {
		if issue.IsDeleted {
			continue
		}
		if req.Status != "" && issue.Status != req.Status {
			continue
		}
		out = append(out, IssueWithDetails{Issue: *copyIssue(issue)})
	}
	return out, len(out), nil
}

func (r *memoryIssueRepo) ApplyTransition(ctx context.Context, issueID int64, from, to Status, entry HistoryEntry) error {
	if r.beforeApply != nil {
		hook := r.beforeApply
		r.beforeApply = nil
		hook()
	}
	issue, ok := r.issues[issueID]
	if !ok || issue.IsDeleted {
		return shared.ErrNotFound
	}
	if issue.Status != from {
		return shared.ErrConflict
	}
	issue.Status = to
	now := time.Now()
	if to == StatusInProgress && issue.Schedule.ArrivalAt == nil {
		issue.Schedule.ArrivalAt = &now
	}
	if to == StatusResolved && issue.Schedule.CompletedAt == nil {
		issue.Schedule.CompletedAt = &now
	}
	issue.UpdatedAt = now
	r.append(issueID, entry)
	return nil
}

func (r *memoryIssueRepo) SetAssignment(ctx context.Context, issueID int64, a Assignment, priority Priority, from Status, entry HistoryEntry) error {
	issue, ok := r.issues[issueID]
	if !ok || issue.IsDeleted {
		return shared.ErrNotFound
	}
	if issue.Status != from {
		return shared.ErrConflict
	}
	issue.Assignment = &a
	issue.Status = StatusAssigned
	if priority != "" {
		issue.Priority = priority
	}
	r.append(issueID, entry)
	return nil
}

func (r *memoryIssueRepo) SetSchedule(ctx context.Context, issueID int64, in ScheduleInput, entry HistoryEntry) error {
	issue, ok := r.issues[issueID]
	if !ok || issue.IsDeleted {
		return shared.ErrNotFound
	}
	if in.PreferredDate != nil {
		issue.Schedule.PreferredDate = in.PreferredDate
	}
	if in.Window != "" {
		issue.Schedule.Window = in.Window
	}
	if in.ScheduledStart != nil {
		issue.Schedule.ScheduledStart = in.ScheduledStart
	}
	if in.ScheduledEnd != nil {
		issue.Schedule.ScheduledEnd = in.ScheduledEnd
	}
	r.append(issueID, entry)
	return nil
}

func (r *memoryIssueRepo) AppendHistory(ctx context.Context, issueID int64, entry HistoryEntry) error {
	if _, ok := r.issues[issueID]; !ok {
		return shared.ErrNotFound
	}
	r.append(issueID, entry)
	return nil
}

func (r *memoryIssueRepo) ListHistory(ctx context.Context, issueID int64) ([]HistoryEntry, error) {
	return r.history[issueID], nil
}

func (r *memoryIssueRepo) SoftDelete(ctx context.Context, issueID int64) error {
	issue, ok := r.issues[issueID]
	if !ok || issue.IsDeleted {
		return shared.ErrNotFound
	}
	issue.IsDeleted = true
	return nil
}

func (r *memoryIssueRepo) append(issueID int64, entry HistoryEntry) {
	r.nextHistoryID++
	entry.ID = r.nextHistoryID
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	r.history[issueID] = append(r.history[issueID], entry)
}

func copyIssue(issue *Issue) *Issue {
	dup := *issue
	if issue.Assignment != nil {
		a := *issue.Assignment
		dup.Assignment = &a
	}
	return &dup
}

type fakeDirectory struct {
	techs map[int64]TechnicianInfo
}

func (d *fakeDirectory) Technician(ctx context.Context, id int64) (*TechnicianInfo, error) {
	tech, ok := d.techs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &tech, nil
}

type fakeQualifications struct {
	qualified map[string]bool
}

func (q *fakeQualifications) IsQualified(ctx context.Context, technicianID, categoryID int64) (bool, error) {
	return q.qualified[fmt.Sprintf("%d/%d", technicianID, categoryID)], nil
}

type transitionRecorder struct {
	moves []string
}

func (t *transitionRecorder) ObserveTransition(from, to string) {
	t.moves = append(t.moves, from+">"+to)
}

func newTestService(repo *memoryIssueRepo) (*Service, *transitionRecorder) {
	directory := &fakeDirectory{techs: map[int64]TechnicianInfo{
		7:  {ID: 7, Name: "Asha", Role: "technician", Status: "active"},
		8:  {ID: 8, Name: "Vikram", Role: "technician", Status: "inactive"},
		9:  {ID: 9, Name: "Meera", Role: "manager", Status: "active"},
		10: {ID: 10, Name: "Ravi", Role: "technician", Status: "active"},
	}}
	quals := &fakeQualifications{qualified: map[string]bool{"7/3": true, "10/3": true}}
	metrics := &transitionRecorder{}
	svc := NewService(repo, NewAssignmentResolver(directory, quals), nil, metrics)
	return svc, metrics
}

func seedIssue(t *testing.T, svc *Service) *Issue {
	t.Helper()
	issue, err := svc.Create(context.Background(), CreateIssueInput{
		Contact:            Contact{Name: "Rohit", Phone: "9999911111", Address: "12 MG Road", City: "Pune", State: "MH", PinCode: "411001"},
		ServiceCategoryID:  3,
		Device:             Device{Type: "tv", Brand: "Samsung"},
		ProblemDescription: "panel has vertical lines",
		Source:             SourceCallCenter,
		CreatedByID:        42,
	})
	require.NoError(t, err)
	return issue
}

func TestCreateIssueStartsInNew(t *testing.T) {
	repo := newMemoryIssueRepo()
	svc, _ := newTestService(repo)

	first := seedIssue(t, svc)
	second := seedIssue(t, svc)

	require.Equal(t, StatusNew, first.Status)
	yy := time.Now().Format("06")
	require.Equal(t, "ISS"+yy+"00001", first.Code)
	require.Equal(t, "ISS"+yy+"00002", second.Code)
	require.Equal(t, PriorityNormal, first.Priority)

	trail, err := svc.History(context.Background(), first.Code)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	require.Equal(t, ActionCreated, trail[0].Action)
}

func TestCreateIssueValidation(t *testing.T) {
	repo := newMemoryIssueRepo()
	svc, _ := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateIssueInput{
		Contact: Contact{Name: "Rohit"},
	})
	require.Error(t, err)
}

func TestTransitionAppendsExactlyOneEntry(t *testing.T) {
	repo := newMemoryIssueRepo()
	svc, metrics := newTestService(repo)
	issue := seedIssue(t, svc)

	updated, err := svc.Transition(context.Background(), issue.Code, StatusScreening, 42, "triaged")
	require.NoError(t, err)
	require.Equal(t, StatusScreening, updated.Status)

	trail, err := svc.History(context.Background(), issue.Code)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	last := trail[len(trail)-1]
	require.Equal(t, ActionStatusChanged, last.Action)
	require.Equal(t, "new", last.From)
	require.Equal(t, "screening", last.To)
	require.Equal(t, int64(42), last.By)
	require.Equal(t, "triaged", last.Note)
	require.Equal(t, []string{"new>screening"}, metrics.moves)
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	repo := newMemoryIssueRepo()
	svc, _ := newTestService(repo)
	issue := seedIssue(t, svc)

	_, err := svc.Transition(context.Background(), issue.Code, StatusInProgress, 42, "")
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Transition(context.Background(), issue.Code, Status("fixed"), 42, "")
	require.ErrorIs(t, err, ErrInvalidTransition)

	// failed attempts leave no trace
	got, err := svc.Get(context.Background(), issue.Code)
	require.NoError(t, err)
	require.Equal(t, StatusNew, got.Status)
	trail, err := svc.History(context.Background(), issue.Code)
	require.NoError(t, err)
	require.Len(t, trail, 1)
}

func TestTerminalIssueIsImmutable(t *testing.T) {
	repo := newMemoryIssueRepo()
	svc, _ := newTestService(repo)
	issue := seedIssue(t, svc)

	_, err := svc.Transition(context.Background(), issue.Code, StatusCancelled, 42, "customer withdrew")
	require.NoError(t, err)

	for _, next := range []Status{StatusNew, StatusScreening, StatusInProgress, StatusClosed} {
		_, err := svc.Transition(context.Background(), issue.Code, next, 42, "")
		require.ErrorIs(t, err, ErrInvalidTransition)
	}
}

func TestConcurrentTransitionConflicts(t *testing.T) {
	repo := newMemoryIssueRepo()
	svc, _ := newTestService(repo)
	issue := seedIssue(t, svc)

	repo.beforeApply = func() {
		repo.issues[issue.ID].Status = StatusCancelled
	}
	_, err := svc.Transition(context.Background(), issue.Code, StatusScreening, 42, "")
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, StatusCancelled, repo.issues[issue.ID].Status)
	require.Len(t, repo.history[issue.ID], 1) // just the creation entry
}

func TestMilestoneTimestampsSetOnce(t *testing.T) {
	repo := newMemoryIssueRepo()
	svc, _ := newTestService(repo)
	issue := seedIssue(t, svc)
	ctx := context.Background()

	_, err := svc.Assign(ctx, issue.Code, AssignInput{TechnicianID: 7, AssignedBy: 1})
	require.NoError(t, err)
	for _, next := range []Status{StatusEnRoute, StatusInProgress} {
		_, err = svc.Transition(ctx, issue.Code, next, 7, "")
		require.NoError(t, err)
	}
	got, err := svc.Get(ctx, issue.Code)
	require.NoError(t, err)
	require.NotNil(t, got.Schedule.ArrivalAt)
	firstArrival := *got.Schedule.ArrivalAt

	_, err = svc.Transition(ctx, issue.Code, StatusResolved, 7, "")
	require.NoError(t, err)
	got, err = svc.Get(ctx, issue.Code)
	require.NoError(t, err)
	require.NotNil(t, got.Schedule.CompletedAt)
	firstCompleted := *got.Schedule.CompletedAt

	// reopen and resolve again: both stamps keep their first value
	_, err = svc.Transition(ctx, issue.Code, StatusInProgress, 7, "customer called back")
	require.NoError(t, err)
	_, err = svc.Transition(ctx, issue.Code, StatusResolved, 7, "")
	require.NoError(t, err)

	got, err = svc.Get(ctx, issue.Code)
	require.NoError(t, err)
	require.Equal(t, firstArrival, *got.Schedule.ArrivalAt)
	require.Equal(t, firstCompleted, *got.Schedule.CompletedAt)
}

func TestAssignHappyPath(t *testing.T) {
	repo := newMemoryIssueRepo()
	svc, metrics := newTestService(repo)
	issue := seedIssue(t, svc)

	updated, err := svc.Assign(context.Background(), issue.Code, AssignInput{
		TechnicianID: 7, AssignedBy: 1, Notes: "carry spare panel", Priority: PriorityHigh,
	})
	require.NoError(t, err)
	require.Equal(t, StatusAssigned, updated.Status)
	require.NotNil(t, updated.Assignment)
	require.Equal(t, int64(7), updated.Assignment.TechnicianID)
	require.Equal(t, int64(1), updated.Assignment.AssignedBy)
	require.Equal(t, PriorityHigh, updated.Priority)
	require.Contains(t, metrics.moves, "new>assigned")

	trail, err := svc.History(context.Background(), issue.Code)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	require.Equal(t, ActionAssigned, trail[1].Action)
	require.Equal(t, "new", trail[1].From)
	require.Equal(t, "assigned", trail[1].To)
}

func TestAssignRejections(t *testing.T) {
	cases := []struct {
		name         string
		technicianID int64
	}{
		{"unknown user", 99},
		{"inactive technician", 8},
		{"wrong role", 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemoryIssueRepo()
			svc, _ := newTestService(repo)
			issue := seedIssue(t, svc)

			_, err := svc.Assign(context.Background(), issue.Code, AssignInput{TechnicianID: tc.technicianID, AssignedBy: 1})
			require.ErrorIs(t, err, ErrAssignmentRejected)

			got, err := svc.Get(context.Background(), issue.Code)
			require.NoError(t, err)
			require.Equal(t, StatusNew, got.Status)
			require.Nil(t, got.Assignment)
		})
	}
}

func TestAssignRequiresQualification(t *testing.T) {
	repo := newMemoryIssueRepo()
	svc, _ := newTestService(repo)
	issue := seedIssue(t, svc) // category 3; tech 10 qualified, tech 7 qualified

	quals := &fakeQualifications{qualified: map[string]bool{}}
	svc.resolver.qualifications = quals

	_, err := svc.Assign(context.Background(), issue.Code, AssignInput{TechnicianID: 7, AssignedBy: 1})
	require.ErrorIs(t, err, ErrAssignmentRejected)
}

func TestReassignmentKeepsAssignedStatus(t *testing.T) {
	repo := newMemoryIssueRepo()
	svc, _ := newTestService(repo)
	issue := seedIssue(t, svc)
	ctx := context.Background()

	_, err := svc.Assign(ctx, issue.Code, AssignInput{TechnicianID: 7, AssignedBy: 1})
	require.NoError(t, err)

	updated, err := svc.Assign(ctx, issue.Code, AssignInput{TechnicianID: 10, AssignedBy: 1})
	require.NoError(t, err)
	require.Equal(t, StatusAssigned, updated.Status)
	require.Equal(t, int64(10), updated.Assignment.TechnicianID)

	trail, err := svc.History(ctx, issue.Code)
	require.NoError(t, err)
	require.Len(t, trail, 3)
}

func TestAssignRejectedMidLifecycle(t *testing.T) {
	repo := newMemoryIssueRepo()
	svc, _ := newTestService(repo)
	issue := seedIssue(t, svc)
	ctx := context.Background()

	_, err := svc.Assign(ctx, issue.Code, AssignInput{TechnicianID: 7, AssignedBy: 1})
	require.NoError(t, err)
	for _, next := range []Status{StatusEnRoute, StatusInProgress} {
		_, err = svc.Transition(ctx, issue.Code, next, 7, "")
		require.NoError(t, err)
	}

	_, err = svc.Assign(ctx, issue.Code, AssignInput{TechnicianID: 10, AssignedBy: 1})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateScheduleRejectsTerminal(t *testing.T) {
	repo := newMemoryIssueRepo()
	svc, _ := newTestService(repo)
	issue := seedIssue(t, svc)
	ctx := context.Background()

	_, err := svc.Transition(ctx, issue.Code, StatusCancelled, 42, "")
	require.NoError(t, err)

	start := time.Now().Add(24 * time.Hour)
	end := start.Add(2 * time.Hour)
	_, err = svc.UpdateSchedule(ctx, issue.Code, ScheduleInput{ScheduledStart: &start, ScheduledEnd: &end}, 42)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdateScheduleValidatesWindow(t *testing.T) {
	repo := newMemoryIssueRepo()
	svc, _ := newTestService(repo)
	issue := seedIssue(t, svc)

	start := time.Now().Add(24 * time.Hour)
	end := start.Add(-time.Hour)
	_, err := svc.UpdateSchedule(context.Background(), issue.Code, ScheduleInput{ScheduledStart: &start, ScheduledEnd: &end}, 42)
	require.Error(t, err)
}

func TestSoftDeleteHidesIssue(t *testing.T) {
	repo := newMemoryIssueRepo()
	svc, _ := newTestService(repo)
	issue := seedIssue(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, issue.Code, 1))
	_, err := svc.Get(ctx, issue.Code)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, issue.Code, 1), shared.ErrNotFound)
}
