package shared

// Ticket workflow permissions.
const (
	PermIssueView       = "issues.view"
	PermIssueCreate     = "issues.create"
	PermIssueAssign     = "issues.assign"
	PermIssueSchedule   = "issues.schedule"
	PermIssueTransition = "issues.transition"
	PermIssueDelete     = "issues.delete"

	PermReportView    = "reports.view"
	PermReportCreate  = "reports.create"
	PermReportApprove = "reports.approve"

	PermInvoiceView   = "invoices.view"
	PermInvoiceCreate = "invoices.create"
	PermInvoiceUpdate = "invoices.update"

	PermCatalogView = "catalog.view"
	PermCatalogEdit = "catalog.edit"

	PermTechnicianView = "technicians.view"
	PermTechnicianEdit = "technicians.edit"

	PermAuditView = "audit.view"
)

// TicketScopes lists all permissions related to the repair workflow.
func TicketScopes() []string {
	return []string{
		PermIssueView,
		PermIssueCreate,
		PermIssueAssign,
		PermIssueSchedule,
		PermIssueTransition,
		PermIssueDelete,
		PermReportView,
		PermReportCreate,
		PermReportApprove,
		PermInvoiceView,
		PermInvoiceCreate,
		PermInvoiceUpdate,
		PermCatalogView,
		PermCatalogEdit,
		PermTechnicianView,
		PermTechnicianEdit,
		PermAuditView,
	}
}
