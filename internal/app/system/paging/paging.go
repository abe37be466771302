// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/loanadmin/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultPageSize is the page size a list starts with.
const DefaultPageSize = 10

// PageSizes are the page sizes offered in the per-page selector.
var PageSizes = []int{5, 10, 20, 50, 100}

// windowRadius is how many pages either side of the current page get a
// numbered button.
const windowRadius = 2

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// ParseInt extracts a positive integer query/form parameter.
// Returns 0 if not present or invalid.
func ParseInt(r *http.Request, key string) int {
	s := query.Get(r, key)
	if s == "" {
		s = r.PostFormValue(key)
	}
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// Pages returns the numbered pages shown for current/last: every page
// within windowRadius of current, plus the first and last page, in order
// and without duplicates.
func Pages(current, last int) []int {
	if last < 1 {
		return nil
	}
	if current < 1 {
		current = 1
	}
	if current > last {
		current = last
	}

	out := make([]int, 0, 2*windowRadius+3)
	for p := 1; p <= last; p++ {
		d := p - current
		if d < 0 {
			d = -d
		}
		if d <= windowRadius || p == 1 || p == last {
			out = append(out, p)
		}
	}
	return out
}

// Accept reports whether selecting target should change the page: it must
// differ from current and lie within [1, last].
func Accept(target, current, last int) bool {
	if last < 1 {
		last = 1
	}
	return target != current && target >= 1 && target <= last
}

// Control is one button in the pager.
type Control struct {
	Label    string
	Page     int
	Disabled bool
	Current  bool
}

// Window is the full control set rendered under a list.
type Window struct {
	First Control
	Prev  Control
	Pages []Control
	Next  Control
	Last  Control
}

// Build renders the pager for current/last.
func Build(current, last int) Window {
	if last < 1 {
		last = 1
	}
	atStart := current <= 1
	atEnd := current >= last

	w := Window{
		First: Control{Label: "First", Page: 1, Disabled: atStart},
		Prev:  Control{Label: "Prev", Page: current - 1, Disabled: atStart},
		Next:  Control{Label: "Next", Page: current + 1, Disabled: atEnd},
		Last:  Control{Label: "Last", Page: last, Disabled: atEnd},
	}
	for _, p := range Pages(current, last) {
		w.Pages = append(w.Pages, Control{
			Label:   strconv.Itoa(p),
			Page:    p,
			Current: p == current,
		})
	}
	return w
}

// Range holds the "Showing X to Y of Z" summary.
type Range struct {
	Shown bool
	From  int
	To    int
	Total int
}

// ComputeRange derives the summary from a page descriptor. A nil
// descriptor, or one with no results, yields Shown=false.
func ComputeRange(meta *models.PageMeta) Range {
	if meta == nil || meta.Total == 0 || meta.From == nil || meta.To == nil {
		return Range{}
	}
	return Range{Shown: true, From: *meta.From, To: *meta.To, Total: meta.Total}
}
