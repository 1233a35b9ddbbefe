package reports

import (
	"errors"
	"time"
)

// Workflow errors.
var (
	// ErrDuplicateReport indicates a second report for an issue that has one.
	ErrDuplicateReport = errors.New("reports: issue already has a report")
	// ErrReportNotFound indicates no report matched the lookup.
	ErrReportNotFound = errors.New("reports: report not found")
)

// Status enumerates report workflow states.
type Status string

const (
	StatusOpen          Status = "open"
	StatusClosed        Status = "closed"
	StatusBillGenerated Status = "bill-generated"
)

// QuotationType classifies the pricing stage of a report.
type QuotationType string

const (
	QuotationNone    QuotationType = "none"
	QuotationInitial QuotationType = "initial"
	QuotationFinal   QuotationType = "final"
)

// QuotationTypeFor derives the quotation type from the two amounts. A final
// amount wins over an initial one.
func QuotationTypeFor(initial, final float64) QuotationType {
	switch {
	case final > 0:
		return QuotationFinal
	case initial > 0:
		return QuotationInitial
	default:
		return QuotationNone
	}
}

// Report is a technician's diagnostic writeup and price proposal. At most one
// exists per issue.
type Report struct {
	ID               int64         `json:"id"`
	IssueID          int64         `json:"issue_id"`
	IssueCode        string        `json:"issue_code"`
	TechnicianID     int64         `json:"technician_id"`
	Diagnosis        string        `json:"diagnosis"`
	WorkProposed     string        `json:"work_proposed,omitempty"`
	RequiredParts    []string      `json:"required_parts,omitempty"`
	BudgetEstimate   float64       `json:"budget_estimate"`
	InitialQuotation float64       `json:"initial_quotation"`
	FinalQuotation   float64       `json:"final_quotation"`
	QuotationType    QuotationType `json:"quotation_type"`
	IsApproved       bool          `json:"is_approved"`
	Status           Status        `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// CreateReportInput carries validated report fields.
type CreateReportInput struct {
	IssueID          int64
	TechnicianID     int64
	Diagnosis        string
	WorkProposed     string
	RequiredParts    []string
	BudgetEstimate   float64
	InitialQuotation float64
	FinalQuotation   float64
}

// ApproveInput carries the admin's quotation decision.
type ApproveInput struct {
	ReportID         int64
	InitialQuotation float64
	FinalQuotation   float64
	ActorID          int64
	Note             string
}
