// Package group filters, pages and summarizes the LearnUpon groups loaded by the dashboard.
package group

import (
	"fmt"
	"strings"

	"github.com/alrightylabs/lutranscript/core"
	"github.com/alrightylabs/lutranscript/core/lms"
)

// DefaultPageSize is the number of groups per page when none is configured.
const DefaultPageSize = 10

// Filter keeps the groups whose name, description or id contains term, ignoring case.
// Surrounding whitespace in term is ignored; a blank term returns groups as they are.
func Filter(groups []lms.Group, term string) []lms.Group {
	term = core.CleanString(term, true /* lower */)
	if term == "" {
		return groups
	}
	out := make([]lms.Group, 0, len(groups))
	for _, g := range groups {
		if matches(g, term) {
			out = append(out, g)
		}
	}
	return out
}

func matches(g lms.Group, term string) bool {
	return strings.Contains(strings.ToLower(g.Name), term) ||
		strings.Contains(strings.ToLower(g.Description), term) ||
		strings.Contains(strings.ToLower(g.ID.String()), term)
}

// Paginate returns the page-th (1-indexed) slice of size items. Out of range pages are empty.
func Paginate[T any](items []T, page, size int) []T {
	if page < 1 || size < 1 {
		return []T{}
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func TotalPages(n, size int) int {
	if n <= 0 || size < 1 {
		return 0
	}
	return (n + size - 1) / size
}

// PageInfo describes a page of a filtered collection.
type PageInfo struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	Total      int `json:"total"`
	From       int `json:"from"`
	To         int `json:"to"`
}

func NewPageInfo(total, page, size int) PageInfo {
	info := PageInfo{Page: page, PageSize: size, TotalPages: TotalPages(total, size), Total: total}
	if page >= 1 && size >= 1 {
		if start := (page - 1) * size; start < total {
			info.From = start + 1
			info.To = min(start+size, total)
		}
	}
	return info
}

func (p PageInfo) HasPrev() bool { return p.Page > 1 }
func (p PageInfo) HasNext() bool { return p.Page < p.TotalPages }

// String renders p as "Page 2 of 3 (11-20 of 25)".
func (p PageInfo) String() string {
	return fmt.Sprintf("Page %d of %d (%d-%d of %d)", p.Page, p.TotalPages, p.From, p.To, p.Total)
}

type Stats struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	TotalMembers int `json:"total_members"`
}

func StatsOf(groups []lms.Group) Stats {
	st := Stats{Total: len(groups)}
	for _, g := range groups {
		if g.IsActive() {
			st.Active++
		}
		st.TotalMembers += g.MemberCount
	}
	return st
}
