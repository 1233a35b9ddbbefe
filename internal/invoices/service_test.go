package invoices

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shaid-7908/display-doctor-v2/internal/issues"
	"github.com/shaid-7908/display-doctor-v2/internal/reports"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

type memoryInvoiceRepo struct {
	invoices map[int64]*Invoice
	byIssue  map[int64]int64
	nextID   int64
	seq      map[string]int

	// now is injectable so number-reset behaviour is testable across months.
	now func() time.Time
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{
		invoices: make(map[int64]*Invoice),
		byIssue:  make(map[int64]int64),
		seq:      make(map[string]int),
		now:      time.Now,
	}
}

func (r *memoryInvoiceRepo) Create(ctx context.Context, invoice *Invoice) (*Invoice, error) {
	if _, exists := r.byIssue[invoice.IssueID]; exists {
		return nil, ErrInvoiceAlreadyExists
	}
	period := r.now().Format("200601")
	r.seq[period]++
	r.nextID++
	invoice.ID = r.nextID
	invoice.Number = fmt.Sprintf("INV-%s-%03d", period, r.seq[period])
	invoice.Status = StatusPending
	invoice.CreatedAt = r.now()
	invoice.UpdatedAt = r.now()
	dup := *invoice
	r.invoices[invoice.ID] = &dup
	r.byIssue[invoice.IssueID] = invoice.ID
	return invoice, nil
}

func (r *memoryInvoiceRepo) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	invoice, ok := r.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	dup := *invoice
	return &dup, nil
}

func (r *memoryInvoiceRepo) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	for _, invoice := range r.invoices {
		if invoice.Number == number {
			dup := *invoice
			return &dup, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryInvoiceRepo) GetByIssueID(ctx context.Context, issueID int64) (*Invoice, error) {
	id, ok := r.byIssue[issueID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *memoryInvoiceRepo) List(ctx context.Context, status Status, limit, offset int) ([]Invoice, int, error) {
	var out []Invoice
	for _, invoice := range r.invoices {
		if status != "" && invoice.Status != status {
			continue
		}
		out = append(out, *invoice)
	}
	return out, len(out), nil
}

func (r *memoryInvoiceRepo) SetStatus(ctx context.Context, id int64, from, to Status) error {
	invoice, ok := r.invoices[id]
	if !ok {
		return shared.ErrNotFound
	}
	if invoice.Status != from {
		return shared.ErrConflict
	}
	invoice.Status = to
	return nil
}

type fakeIssuePort struct {
	issues map[int64]*issues.Issue
}

func (p *fakeIssuePort) GetByID(ctx context.Context, id int64) (*issues.Issue, error) {
	issue, ok := p.issues[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	dup := *issue
	return &dup, nil
}

func (p *fakeIssuePort) TransitionByID(ctx context.Context, id int64, next issues.Status, actorID int64, note string) (*issues.Issue, error) {
	issue, ok := p.issues[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if !issues.CanTransition(issue.Status, next) {
		return nil, issues.ErrInvalidTransition
	}
	issue.Status = next
	dup := *issue
	return &dup, nil
}

type fakeReportPort struct {
	reports map[int64]*reports.Report // keyed by issue id
}

func (p *fakeReportPort) GetByIssueID(ctx context.Context, issueID int64) (*reports.Report, error) {
	report, ok := p.reports[issueID]
	if !ok {
		return nil, reports.ErrReportNotFound
	}
	dup := *report
	return &dup, nil
}

func (p *fakeReportPort) MarkBillGenerated(ctx context.Context, id int64) error {
	return p.setStatus(id, reports.StatusBillGenerated)
}

func (p *fakeReportPort) Close(ctx context.Context, id int64) error {
	return p.setStatus(id, reports.StatusClosed)
}

func (p *fakeReportPort) setStatus(id int64, status reports.Status) error {
	for _, report := range p.reports {
		if report.ID == id {
			report.Status = status
			return nil
		}
	}
	return reports.ErrReportNotFound
}

type invoiceFixture struct {
	svc     *Service
	repo    *memoryInvoiceRepo
	issues  *fakeIssuePort
	reports *fakeReportPort
}

func newInvoiceFixture(finalQuotation float64) *invoiceFixture {
	issuePort := &fakeIssuePort{issues: map[int64]*issues.Issue{
		1: {
			ID: 1, Code: "ISS2500001", Status: issues.StatusInProgress,
			Contact: issues.Contact{Name: "Rohit", Phone: "9999911111", Address: "12 MG Road"},
			Device:  issues.Device{Type: "tv", Brand: "Samsung"},
		},
	}}
	reportPort := &fakeReportPort{reports: map[int64]*reports.Report{
		1: {
			ID: 11, IssueID: 1, IssueCode: "ISS2500001",
			FinalQuotation: finalQuotation, IsApproved: true,
			QuotationType: reports.QuotationFinal, Status: reports.StatusOpen,
		},
	}}
	repo := newMemoryInvoiceRepo()
	return &invoiceFixture{
		svc:     NewService(repo, issuePort, reportPort, nil, nil, nil),
		repo:    repo,
		issues:  issuePort,
		reports: reportPort,
	}
}

func TestTotals(t *testing.T) {
	subtotal, tax, final := Totals(3000, 1500, 500, 0)
	require.Equal(t, float64(5000), subtotal)
	require.Equal(t, float64(900), tax)
	require.Equal(t, float64(5900), final)

	// discount comes off before tax
	subtotal, tax, final = Totals(3000, 1500, 500, 500)
	require.Equal(t, float64(5000), subtotal)
	require.Equal(t, float64(810), tax)
	require.Equal(t, float64(5310), final)
}

func TestGenerateInvoice(t *testing.T) {
	f := newInvoiceFixture(4000)

	created, err := f.svc.Generate(context.Background(), GenerateInput{
		IssueID: 1, LabourCharge: 3000, PartsCost: 1500, VisitCharge: 500, WarrantyMonths: 3, CreatedByID: 2,
	})
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("INV-%s-001", time.Now().Format("200601")), created.Number)
	require.Equal(t, StatusPending, created.Status)
	require.Equal(t, float64(5000), created.Subtotal)
	require.Equal(t, float64(5900), created.FinalAmount)
	require.Equal(t, float64(4000), created.FinalQuotation)
	require.Equal(t, "Rohit", created.CustomerName)
	require.NotNil(t, created.WarrantyUntil)

	require.Equal(t, reports.StatusBillGenerated, f.reports.reports[1].Status)
	require.Equal(t, issues.StatusAwaitingPay, f.issues.issues[1].Status)
}

func TestGenerateRejectsSubtotalBelowQuotation(t *testing.T) {
	f := newInvoiceFixture(6000)

	_, err := f.svc.Generate(context.Background(), GenerateInput{
		IssueID: 1, LabourCharge: 3000, PartsCost: 1500, VisitCharge: 500,
	})
	require.ErrorIs(t, err, ErrSubtotalBelowQuotation)
	require.Equal(t, reports.StatusOpen, f.reports.reports[1].Status)
	require.Equal(t, issues.StatusInProgress, f.issues.issues[1].Status)
}

func TestGenerateRejectsSecondInvoice(t *testing.T) {
	f := newInvoiceFixture(4000)
	ctx := context.Background()
	input := GenerateInput{IssueID: 1, LabourCharge: 3000, PartsCost: 1500, VisitCharge: 500}

	_, err := f.svc.Generate(ctx, input)
	require.NoError(t, err)

	_, err = f.svc.Generate(ctx, input)
	require.ErrorIs(t, err, ErrInvoiceAlreadyExists)
}

func TestGenerateRejectsUnapprovedReport(t *testing.T) {
	f := newInvoiceFixture(4000)
	f.reports.reports[1].IsApproved = false

	_, err := f.svc.Generate(context.Background(), GenerateInput{
		IssueID: 1, LabourCharge: 3000, PartsCost: 1500, VisitCharge: 500,
	})
	require.ErrorIs(t, err, reports.ErrReportNotFound)
}

func TestGenerateRejectsZeroQuotation(t *testing.T) {
	f := newInvoiceFixture(0)

	_, err := f.svc.Generate(context.Background(), GenerateInput{
		IssueID: 1, LabourCharge: 3000, PartsCost: 1500, VisitCharge: 500,
	})
	require.ErrorIs(t, err, reports.ErrReportNotFound)
}

func TestGenerateChecksExistingInvoiceFirst(t *testing.T) {
	f := newInvoiceFixture(4000)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, GenerateInput{IssueID: 1, LabourCharge: 3000, PartsCost: 1500, VisitCharge: 500})
	require.NoError(t, err)

	// with the report now bill-generated and unapprovable, the existing
	// invoice must still be the failure reported
	f.reports.reports[1].IsApproved = false
	_, err = f.svc.Generate(ctx, GenerateInput{IssueID: 1})
	require.ErrorIs(t, err, ErrInvoiceAlreadyExists)
}

func TestInvoiceNumberResetsEachMonth(t *testing.T) {
	f := newInvoiceFixture(4000)
	ctx := context.Background()

	sept := time.Date(2025, time.September, 10, 12, 0, 0, 0, time.UTC)
	f.repo.now = func() time.Time { return sept }

	for i := int64(2); i <= 3; i++ {
		f.issues.issues[i] = &issues.Issue{
			ID: i, Code: fmt.Sprintf("ISS25%05d", i), Status: issues.StatusInProgress,
			Contact: issues.Contact{Name: "A", Phone: "1"}, Device: issues.Device{Type: "tv"},
		}
		f.reports.reports[i] = &reports.Report{
			ID: 10 + i, IssueID: i, FinalQuotation: 4000, IsApproved: true, Status: reports.StatusOpen,
		}
	}

	first, err := f.svc.Generate(ctx, GenerateInput{IssueID: 1, LabourCharge: 4000})
	require.NoError(t, err)
	second, err := f.svc.Generate(ctx, GenerateInput{IssueID: 2, LabourCharge: 4000})
	require.NoError(t, err)
	require.Equal(t, "INV-202509-001", first.Number)
	require.Equal(t, "INV-202509-002", second.Number)

	f.repo.now = func() time.Time { return sept.AddDate(0, 1, 0) }
	third, err := f.svc.Generate(ctx, GenerateInput{IssueID: 3, LabourCharge: 4000})
	require.NoError(t, err)
	require.Equal(t, "INV-202510-001", third.Number)
}

func TestPaidInvoiceCascades(t *testing.T) {
	f := newInvoiceFixture(4000)
	ctx := context.Background()

	created, err := f.svc.Generate(ctx, GenerateInput{IssueID: 1, LabourCharge: 4000})
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, created.ID, StatusPaid, 2)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, updated.Status)
	require.Equal(t, reports.StatusClosed, f.reports.reports[1].Status)
	require.Equal(t, issues.StatusResolved, f.issues.issues[1].Status)
}

func TestCancelledInvoiceDoesNotCascade(t *testing.T) {
	f := newInvoiceFixture(4000)
	ctx := context.Background()

	created, err := f.svc.Generate(ctx, GenerateInput{IssueID: 1, LabourCharge: 4000})
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, created.ID, StatusCancelled, 2)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, updated.Status)
	require.Equal(t, reports.StatusBillGenerated, f.reports.reports[1].Status)
	require.Equal(t, issues.StatusAwaitingPay, f.issues.issues[1].Status)
}

func TestUpdateStatusRejectsSettledInvoice(t *testing.T) {
	f := newInvoiceFixture(4000)
	ctx := context.Background()

	created, err := f.svc.Generate(ctx, GenerateInput{IssueID: 1, LabourCharge: 4000})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, created.ID, StatusPaid, 2)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, created.ID, StatusCancelled, 2)
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = f.svc.UpdateStatus(ctx, created.ID, StatusPending, 2)
	require.Error(t, err)
}

type fakeEnqueuer struct {
	pdfIDs []int64
	mails  []string
}

func (e *fakeEnqueuer) EnqueueInvoicePDF(ctx context.Context, invoiceID int64) error {
	e.pdfIDs = append(e.pdfIDs, invoiceID)
	return nil
}

func (e *fakeEnqueuer) EnqueueMail(ctx context.Context, to, subject, body string) error {
	e.mails = append(e.mails, to)
	return nil
}

func TestGenerateEnqueuesPDFAndMail(t *testing.T) {
	f := newInvoiceFixture(4000)
	f.issues.issues[1].Contact.Email = "rohit@example.com"
	enq := &fakeEnqueuer{}
	f.svc.enqueuer = enq

	created, err := f.svc.Generate(context.Background(), GenerateInput{
		IssueID: 1, LabourCharge: 3000, PartsCost: 1500, VisitCharge: 500, CreatedByID: 2,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{created.ID}, enq.pdfIDs)
	require.Equal(t, []string{"rohit@example.com"}, enq.mails)
}
