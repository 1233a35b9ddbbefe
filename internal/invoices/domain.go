package invoices

import (
	"errors"
	"time"
)

// Workflow errors, checked in the order the generator runs its preconditions.
var (
	// ErrInvoiceAlreadyExists indicates the issue is already billed.
	ErrInvoiceAlreadyExists = errors.New("invoices: invoice already exists for issue")
	// ErrSubtotalBelowQuotation indicates the itemized charges undercut the
	// approved final quotation.
	ErrSubtotalBelowQuotation = errors.New("invoices: subtotal below approved quotation")
)

// TaxRate is the GST applied on every invoice.
const TaxRate = 0.18

// Status enumerates invoice payment states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// ValidStatus reports whether s names a known payment state.
func ValidStatus(s Status) bool {
	return s == StatusPending || s == StatusPaid || s == StatusCancelled
}

// Invoice bills a repaired issue. Customer and device fields are snapshots
// taken at generation time so later issue edits never change a bill.
type Invoice struct {
	ID             int64      `json:"id"`
	Number         string     `json:"number"`
	IssueID        int64      `json:"issue_id"`
	IssueCode      string     `json:"issue_code"`
	ReportID       int64      `json:"report_id"`
	CustomerName   string     `json:"customer_name"`
	CustomerPhone  string     `json:"customer_phone"`
	CustomerAddr   string     `json:"customer_address"`
	DeviceType     string     `json:"device_type"`
	DeviceBrand    string     `json:"device_brand,omitempty"`
	DeviceModel    string     `json:"device_model,omitempty"`
	LabourCharge   float64    `json:"labour_charge"`
	PartsCost      float64    `json:"parts_cost"`
	VisitCharge    float64    `json:"visit_charge"`
	Discount       float64    `json:"discount"`
	FinalQuotation float64    `json:"final_quotation"`
	Subtotal       float64    `json:"subtotal"`
	TaxAmount      float64    `json:"tax_amount"`
	FinalAmount    float64    `json:"final_amount"`
	WarrantyMonths int        `json:"warranty_months"`
	WarrantyUntil  *time.Time `json:"warranty_until,omitempty"`
	Status         Status     `json:"status"`
	CreatedByID    int64      `json:"created_by_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// GenerateInput carries the itemized charges for invoice generation.
type GenerateInput struct {
	IssueID        int64
	LabourCharge   float64
	PartsCost      float64
	VisitCharge    float64
	Discount       float64
	WarrantyMonths int
	CreatedByID    int64
	IdempotencyKey string
}

// Totals derives the invoice arithmetic from itemized charges. The subtotal
// is gross of discount so the quotation guard compares like for like; the
// discount comes off before tax.
func Totals(labour, parts, visit, discount float64) (subtotal, tax, final float64) {
	subtotal = labour + parts + visit
	taxable := subtotal - discount
	if taxable < 0 {
		taxable = 0
	}
	tax = taxable * TaxRate
	return subtotal, tax, taxable + tax
}
