// Package blog filters and pages the blog post list.
package blog

import (
	"strings"
	"time"

	"ehub/internal/models"
)

// DefaultPageSize is the number of posts on one blog page.
const DefaultPageSize = 6

type TimeFilter string

const (
	TimeAll       TimeFilter = "all"
	TimeToday     TimeFilter = "today"
	TimeThisWeek  TimeFilter = "thisWeek"
	TimeThisMonth TimeFilter = "thisMonth"
	TimeThisYear  TimeFilter = "thisYear"
)

// TimeFilters lists the selector options in display order.
var TimeFilters = []TimeFilter{TimeAll, TimeToday, TimeThisWeek, TimeThisMonth, TimeThisYear}

// ParseTimeFilter maps unknown or empty input to TimeAll.
func ParseTimeFilter(s string) TimeFilter {
	for _, f := range TimeFilters {
		if string(f) == s {
			return f
		}
	}
	return TimeAll
}

func (f TimeFilter) Label() string {
	switch f {
	case TimeToday:
		return "Today"
	case TimeThisWeek:
		return "This Week"
	case TimeThisMonth:
		return "This Month"
	case TimeThisYear:
		return "This Year"
	default:
		return "All Time"
	}
}

// Query is the user's current search, filter and paging selection.
// An empty Category means all categories.
type Query struct {
	Search   string
	Category string
	Time     TimeFilter
	Page     int
	PageSize int
}

type Result struct {
	Posts     []models.Post
	Page      int
	PageSize  int
	Total     int
	PageCount int
}

func (r Result) HasPrev() bool { return r.Page > 1 }
func (r Result) HasNext() bool { return r.Page < r.PageCount }

// Pages returns 1..PageCount for the pager.
func (r Result) Pages() []int {
	pages := make([]int, r.PageCount)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// Filter returns the posts matching q in their original order. now is
// the reference instant for the time window and its location decides
// calendar boundaries.
func Filter(posts []models.Post, q Query, now time.Time) []models.Post {
	search := strings.ToLower(q.Search)
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if !inWindow(p.CreatedAt, q.Time, now) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func inWindow(t time.Time, f TimeFilter, now time.Time) bool {
	t = t.In(now.Location())
	switch f {
	case TimeToday:
		return sameDay(t, now)
	case TimeThisWeek:
		return sameDay(startOfWeek(t), startOfWeek(now))
	case TimeThisMonth:
		return t.Year() == now.Year() && t.Month() == now.Month()
	case TimeThisYear:
		return t.Year() == now.Year()
	default:
		return true
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// startOfWeek returns midnight of the Sunday that starts t's week.
func startOfWeek(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d-int(t.Weekday()), 0, 0, 0, 0, t.Location())
}

// Paginate returns the half-open slice [(page-1)*pageSize, page*pageSize).
// A page past the end yields an empty slice.
func Paginate(posts []models.Post, page, pageSize int) []models.Post {
	page, pageSize = normalize(page, pageSize)
	// compare in page units so large page numbers cannot overflow
	if len(posts) == 0 || page-1 > (len(posts)-1)/pageSize {
		return []models.Post{}
	}
	start := (page - 1) * pageSize
	end := start + min(pageSize, len(posts)-start)
	return posts[start:end]
}

// PageCount is ceil(n / pageSize).
func PageCount(n, pageSize int) int {
	_, pageSize = normalize(1, pageSize)
	count := n / pageSize
	if n%pageSize != 0 {
		count++
	}
	return count
}

// Apply filters posts and cuts out the requested page.
func Apply(posts []models.Post, q Query, now time.Time) Result {
	page, pageSize := normalize(q.Page, q.PageSize)
	matched := Filter(posts, q, now)
	return Result{
		Posts:     Paginate(matched, page, pageSize),
		Page:      page,
		PageSize:  pageSize,
		Total:     len(matched),
		PageCount: PageCount(len(matched), pageSize),
	}
}

// Categories returns the distinct categories in first-seen order.
func Categories(posts []models.Post) []string {
	seen := make(map[string]bool, len(posts))
	var out []string
	for _, p := range posts {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}

func normalize(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}
