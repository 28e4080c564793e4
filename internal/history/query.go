package history

import (
	"slices"
	"strings"

	"go.klb.dev/copas/internal/model"
)

// DefaultPageSize applies when a query leaves PageSize unset.
const DefaultPageSize = 500

// Query selects entries for display.
type Query struct {
	Search   string // case-insensitive substring of content, label or category
	Tab      string // "" and "all" select everything; "links" is a virtual view
	Page     int    // 1-based
	PageSize int
	Vault    bool // select vault entries instead of the regular history
}

// Page is one page of query results. Total counts every match.
type Page struct {
	Items    []model.ClipItem `json:"items" yaml:"items"`
	Total    int              `json:"total" yaml:"total"`
	Page     int              `json:"page" yaml:"page"`
	PageSize int              `json:"pageSize" yaml:"pageSize"`
}

func (q Query) normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	q.Search = strings.ToLower(q.Search)
	return q
}

func (q Query) match(it model.ClipItem) bool {
	if it.InVault != q.Vault {
		return false
	}
	switch q.Tab {
	case "", model.TabAll:
	case model.TabLinks:
		if it.Category != model.CategoryLink && !it.InTab(model.TabLinks) {
			return false
		}
	default:
		if !it.InTab(q.Tab) {
			return false
		}
	}
	if q.Search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(it.Text()), q.Search) ||
		strings.Contains(strings.ToLower(it.Label), q.Search) ||
		strings.Contains(strings.ToLower(string(it.Category)), q.Search)
}

// Sort orders entries for display: pinned first, then newest first. Ties
// keep their storage order.
func Sort(items []model.ClipItem) {
	slices.SortStableFunc(items, func(a, b model.ClipItem) int {
		if a.Pinned != b.Pinned {
			if a.Pinned {
				return -1
			}
			return 1
		}
		return b.Timestamp.Compare(a.Timestamp)
	})
}

// Query returns the requested page of matching entries.
func (s *Store) Query(q Query) Page {
	q = q.normalize()

	s.mu.Lock()
	var hits []model.ClipItem
	for _, it := range s.st.Items {
		if q.match(it) {
			hits = append(hits, it.Clone())
		}
	}
	s.mu.Unlock()

	Sort(hits)

	pages := len(hits) / q.PageSize
	if len(hits)%q.PageSize != 0 {
		pages++
	}
	start := len(hits)
	if q.Page <= pages {
		start = (q.Page - 1) * q.PageSize
	}
	end := start + min(q.PageSize, len(hits)-start)
	items := hits[start:end:end]
	if items == nil {
		items = []model.ClipItem{}
	}
	return Page{
		Items:    items,
		Total:    len(hits),
		Page:     q.Page,
		PageSize: q.PageSize,
	}
}
