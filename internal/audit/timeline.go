package audit

import "time"

// TimelineFilters narrows the audit timeline query.
type TimelineFilters struct {
	From      time.Time
	To        time.Time
	ActorID   int64
	Entity    string
	EntityID  string
	IssueCode string
	Action    string
	Page      int
	PageSize  int
}

// TimelineRow is one event on the audit timeline. IssueCode is filled when
// the entity resolves to an issue so operators can follow a ticket across
// modules.
type TimelineRow struct {
	At        time.Time      `json:"at"`
	ActorID   int64          `json:"actor_id"`
	ActorName string         `json:"actor_name,omitempty"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id"`
	IssueCode string         `json:"issue_code,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// PagingInfo carries simple pagination metadata.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result bundles timeline rows with paging information.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}
