package approval

import (
	"net/url"
	"strings"
)

// RejectDTO is the optional body of PATCH /approvals/{id}/reject.
type RejectDTO struct {
	Reason *string `json:"reason,omitempty"`
}

// Normalize trims the reason and drops it when blank.
func (dto *RejectDTO) Normalize() {
	if dto.Reason == nil {
		return
	}
	r := strings.TrimSpace(*dto.Reason)
	if r == "" {
		dto.Reason = nil
		return
	}
	dto.Reason = &r
}

// ListQuery carries the query parameters of GET /approvals.
type ListQuery struct {
	Period string
	Status string
}

func ListQueryFromURL(q url.Values) ListQuery {
	lq := ListQuery{
		Period: strings.TrimSpace(q.Get("period")),
		Status: strings.TrimSpace(q.Get("status")),
	}
	if lq.Period == "" {
		lq.Period = "all-all"
	}
	if lq.Status == "" {
		lq.Status = "all"
	}
	return lq
}

// CacheKey identifies the rendered list view under RoutePath.
func (q ListQuery) CacheKey() string {
	v := url.Values{}
	v.Set("period", strings.ToLower(q.Period))
	v.Set("status", strings.ToUpper(q.Status))
	return RoutePath + "?" + v.Encode()
}
