package audit

import "time"

// TimelineFilters narrows the audit timeline. To is inclusive of the whole day.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// Entry is one audit log record.
type Entry struct {
	ID       string         `json:"id"`
	At       time.Time      `json:"at"`
	ActorID  string         `json:"actorId"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entityId"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// PagingInfo carries window paging metadata.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
	PrevPage int  `json:"prevPage,omitempty"`
	NextPage int  `json:"nextPage,omitempty"`
}

// Result wraps a page of entries.
type Result struct {
	Rows   []Entry
	Paging PagingInfo
}
