package query

import (
	"github.com/yungbote/studentrisk-backend/internal/domain/student"
)

// Params selects a page. An empty OutcomeFilter matches every record.
type Params struct {
	Limit         int    `form:"limit" json:"limit"`
	Offset        int    `form:"offset" json:"offset"`
	OutcomeFilter string `form:"outcome_filter" json:"outcome_filter,omitempty"`
}

type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}

// Paginate filters and slices records in memory for storage that cannot do
// it server-side. Input order is preserved. Total counts filtered records.
// A non-positive limit returns everything as a single page.
func Paginate(all []*student.Record, p Params) Page[*student.Record] {
	filtered := Filter(all, p.OutcomeFilter)
	total := len(filtered)

	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	limit := p.Limit
	if limit <= 0 {
		page := Page[*student.Record]{Data: []*student.Record{}, Total: total, Page: 1}
		if total > 0 {
			page.TotalPages = 1
		}
		if offset < total {
			page.Data = filtered[offset:]
		}
		return page
	}

	page := Page[*student.Record]{
		Data:       []*student.Record{},
		Total:      total,
		Page:       offset/limit + 1,
		TotalPages: total / limit,
	}
	if total%limit != 0 {
		page.TotalPages++
	}
	if offset >= total {
		return page
	}
	// Compare against the remainder so a huge limit cannot overflow.
	end := total
	if limit < total-offset {
		end = offset + limit
	}
	page.Data = filtered[offset:end]
	return page
}

// Filter keeps records whose outcome equals filter exactly. The outcome is
// predicted_outcome, falling back to the legacy target column.
func Filter(all []*student.Record, filter string) []*student.Record {
	if filter == "" {
		return all
	}
	out := make([]*student.Record, 0, len(all))
	for _, r := range all {
		if r == nil {
			continue
		}
		outcome := r.PredictedOutcome
		if outcome == "" {
			outcome = r.Target
		}
		if outcome == filter {
			out = append(out, r)
		}
	}
	return out
}
