package model

// Principal is the authenticated admin behind a request, reconstructed from
// the bearer token on every request. Nothing about it is stored server-side.
type Principal struct {
	ID    uint64 `json:"id"`
	Role  Role   `json:"role"`
	Phone string `json:"phone"`
}

// RequestMeta is the provenance recorded with each audit entry.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	RequestID string
}

// Pagination describes a page of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// NewPagination computes the page count for total rows.
func NewPagination(page, limit int, total int64) Pagination {
	p := Pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return p
}

// Offset returns the row offset of a 1-based page.
func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

// CountBy is a grouped count, e.g. users per role.
type CountBy struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Overview is the dashboard summary.
type Overview struct {
	Users struct {
		Total  int64     `json:"total"`
		Today  int64     `json:"today"`
		ByRole []CountBy `json:"byRole"`
	} `json:"users"`
	Events struct {
		Total    int64     `json:"total"`
		Today    int64     `json:"today"`
		Active   int64     `json:"active"`
		ByStatus []CountBy `json:"byStatus"`
	} `json:"events"`
}

// DailyCount is the number of rows created on one calendar day (UTC, as
// YYYY-MM-DD). Status is only set for per-status event series.
type DailyCount struct {
	Date   string `json:"date"`
	Status string `json:"status,omitempty"`
	Count  int64  `json:"count"`
}
