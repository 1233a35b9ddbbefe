package issues

import "time"

// Status enumerates issue lifecycle states.
type Status string

const (
	StatusNew            Status = "new"
	StatusScreening      Status = "screening"
	StatusScheduled      Status = "scheduled"
	StatusAssigned       Status = "assigned"
	StatusEnRoute        Status = "en_route"
	StatusInProgress     Status = "in_progress"
	StatusOnHoldParts    Status = "on_hold_parts"
	StatusOnHoldCustomer Status = "on_hold_customer"
	StatusAwaitingPay    Status = "awaiting_payment"
	StatusResolved       Status = "resolved"
	StatusClosed         Status = "closed"
	StatusCancelled      Status = "cancelled"
)

// Priority enumerates issue priorities.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Source enumerates intake channels.
type Source string

const (
	SourceCustomerPortal Source = "customer_portal"
	SourceCallCenter     Source = "call_center"
	SourceSocialAd       Source = "social_ad"
	SourceWebsite        Source = "website"
	SourceWhatsApp       Source = "whatsapp"
	SourceReferral       Source = "referral"
)

// HistoryAction enumerates audit trail entry kinds.
type HistoryAction string

const (
	ActionCreated         HistoryAction = "created"
	ActionStatusChanged   HistoryAction = "status_changed"
	ActionAssigned        HistoryAction = "assigned"
	ActionScheduleUpdated HistoryAction = "schedule_updated"
	ActionNoteAdded       HistoryAction = "note_added"
)

// Contact holds the customer contact details captured at intake.
type Contact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	Address  string `json:"address"`
	Landmark string `json:"landmark,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	PinCode  string `json:"pin_code"`
}

// Device holds the faulty device details.
type Device struct {
	Type           string `json:"type"`
	Brand          string `json:"brand,omitempty"`
	Model          string `json:"model,omitempty"`
	SerialNumber   string `json:"serial_number,omitempty"`
	WarrantyStatus string `json:"warranty_status,omitempty"`
}

// Assignment records which technician owns the issue.
type Assignment struct {
	TechnicianID int64     `json:"technician_id"`
	AssignedBy   int64     `json:"assigned_by"`
	AssignedAt   time.Time `json:"assigned_at"`
	Notes        string    `json:"notes,omitempty"`
}

// Schedule holds customer preference and the confirmed visit slot.
type Schedule struct {
	PreferredDate  *time.Time `json:"preferred_date,omitempty"`
	Window         string     `json:"window,omitempty"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	ArrivalAt      *time.Time `json:"arrival_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// HistoryEntry is one immutable line of the issue audit trail.
type HistoryEntry struct {
	ID     int64         `json:"id"`
	At     time.Time     `json:"at"`
	By     int64         `json:"by,omitempty"`
	Action HistoryAction `json:"action"`
	From   string        `json:"from,omitempty"`
	To     string        `json:"to,omitempty"`
	Note   string        `json:"note,omitempty"`
}

// Issue is a customer repair ticket, the root entity of the workflow.
type Issue struct {
	ID                 int64       `json:"id"`
	Code               string      `json:"code"`
	CustomerID         int64       `json:"customer_id,omitempty"`
	Contact            Contact     `json:"contact"`
	ServiceCategoryID  int64       `json:"service_category_id,omitempty"`
	Device             Device      `json:"device"`
	ProblemDescription string      `json:"problem_description"`
	Photos             []string    `json:"photos,omitempty"`
	Source             Source      `json:"source"`
	Priority           Priority    `json:"priority"`
	Status             Status      `json:"status"`
	Assignment         *Assignment `json:"assignment,omitempty"`
	Schedule           Schedule    `json:"schedule"`
	CreatedByID        int64       `json:"created_by_id"`
	CreatedByRole      string      `json:"created_by_role"`
	IsDeleted          bool        `json:"is_deleted"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// IssueWithDetails joins in the technician and category names for listings.
type IssueWithDetails struct {
	Issue
	TechnicianName  string `json:"technician_name,omitempty"`
	TechnicianPhone string `json:"technician_phone,omitempty"`
	CategoryName    string `json:"category_name,omitempty"`
	HasReport       bool   `json:"has_report"`
}

// CreateIssueInput carries validated intake fields.
type CreateIssueInput struct {
	CustomerID         int64
	Contact            Contact
	ServiceCategoryID  int64
	Device             Device
	ProblemDescription string
	Photos             []string
	Source             Source
	Priority           Priority
	PreferredDate      *time.Time
	Window             string
	CreatedByID        int64
	CreatedByRole      string
	Note               string
}

// ScheduleInput carries a confirmed visit slot update.
type ScheduleInput struct {
	PreferredDate  *time.Time
	Window         string
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
}

// ListIssuesRequest filters issue listings.
type ListIssuesRequest struct {
	Status       Status
	Priority     Priority
	TechnicianID int64
	DateFrom     *time.Time
	DateTo       *time.Time
	Limit        int
	Offset       int
}
