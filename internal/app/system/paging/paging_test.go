package paging

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dalemusser/loanadmin/internal/domain/models"
)

func TestPages(t *testing.T) {
	tests := []struct {
		name    string
		current int
		last    int
		want    []int
	}{
		{name: "single page", current: 1, last: 1, want: []int{1}},
		{name: "first of many", current: 1, last: 10, want: []int{1, 2, 3, 10}},
		{name: "middle", current: 5, last: 10, want: []int{1, 3, 4, 5, 6, 7, 10}},
		{name: "near end", current: 9, last: 10, want: []int{1, 7, 8, 9, 10}},
		{name: "small set", current: 2, last: 4, want: []int{1, 2, 3, 4}},
		{name: "empty", current: 1, last: 0, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pages(tt.current, tt.last)
			if len(got) != len(tt.want) {
				t.Fatalf("Pages(%d, %d) = %v, want %v", tt.current, tt.last, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Pages(%d, %d) = %v, want %v", tt.current, tt.last, got, tt.want)
				}
			}
		})
	}
}

// Every valid (current, last) pair shows 1, last, and every page within
// two of current, with no duplicates.
func TestPages_WindowProperty(t *testing.T) {
	for last := 1; last <= 30; last++ {
		for current := 1; current <= last; current++ {
			got := Pages(current, last)
			seen := map[int]bool{}
			for _, p := range got {
				if seen[p] {
					t.Fatalf("Pages(%d, %d) duplicate %d in %v", current, last, p, got)
				}
				seen[p] = true
			}
			if !seen[1] || !seen[last] {
				t.Fatalf("Pages(%d, %d) = %v missing first or last", current, last, got)
			}
			for p := current - 2; p <= current+2; p++ {
				if p >= 1 && p <= last && !seen[p] {
					t.Fatalf("Pages(%d, %d) = %v missing %d", current, last, got, p)
				}
			}
			if len(got) > 7 {
				t.Fatalf("Pages(%d, %d) = %v has more than 7 buttons", current, last, got)
			}
		}
	}
}

func TestBuild_DisabledEnds(t *testing.T) {
	w := Build(1, 10)
	if !w.First.Disabled || !w.Prev.Disabled {
		t.Errorf("First/Prev should be disabled on page 1")
	}
	if w.Next.Disabled || w.Last.Disabled {
		t.Errorf("Next/Last should be enabled on page 1 of 10")
	}

	w = Build(10, 10)
	if w.First.Disabled || w.Prev.Disabled {
		t.Errorf("First/Prev should be enabled on last page")
	}
	if !w.Next.Disabled || !w.Last.Disabled {
		t.Errorf("Next/Last should be disabled on last page")
	}
	if w.Prev.Page != 9 || w.Last.Page != 10 {
		t.Errorf("Prev.Page = %d, Last.Page = %d", w.Prev.Page, w.Last.Page)
	}

	w = Build(1, 1)
	if !w.First.Disabled || !w.Next.Disabled {
		t.Errorf("single page: everything should be disabled")
	}
}

func TestBuild_MarksCurrent(t *testing.T) {
	w := Build(5, 10)
	var current []int
	for _, c := range w.Pages {
		if c.Current {
			current = append(current, c.Page)
		}
	}
	if len(current) != 1 || current[0] != 5 {
		t.Errorf("current pages = %v, want [5]", current)
	}
}

func TestAccept(t *testing.T) {
	tests := []struct {
		target, current, last int
		want                  bool
	}{
		{2, 1, 10, true},
		{1, 1, 10, false},
		{0, 1, 10, false},
		{11, 1, 10, false},
		{10, 9, 10, true},
		{1, 2, 0, true},
		{2, 1, 0, false},
	}
	for _, tt := range tests {
		if got := Accept(tt.target, tt.current, tt.last); got != tt.want {
			t.Errorf("Accept(%d, %d, %d) = %v, want %v", tt.target, tt.current, tt.last, got, tt.want)
		}
	}
}

func TestComputeRange(t *testing.T) {
	from, to := 41, 50
	meta := models.PageMeta{CurrentPage: 5, Total: 95, LastPage: 10, PerPage: 10, From: &from, To: &to}
	r := ComputeRange(&meta)
	want := Range{Shown: true, From: 41, To: 50, Total: 95}
	if r != want {
		t.Errorf("ComputeRange = %+v, want %+v", r, want)
	}

	empty := models.PageMeta{CurrentPage: 1, LastPage: 1, PerPage: 10}
	if ComputeRange(&empty).Shown {
		t.Errorf("empty result should not show a range")
	}
	if ComputeRange(nil) != (Range{}) {
		t.Errorf("nil meta should yield zero Range")
	}
}

func TestValidPageSize(t *testing.T) {
	for _, n := range PageSizes {
		if !ValidPageSize(n) {
			t.Errorf("ValidPageSize(%d) = false", n)
		}
	}
	for _, n := range []int{0, 3, 25, 1000} {
		if ValidPageSize(n) {
			t.Errorf("ValidPageSize(%d) = true", n)
		}
	}
}

func TestParseInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&bad=x&neg=-2", nil)
	if got := ParseInt(req, "page"); got != 3 {
		t.Errorf("query page = %d, want 3", got)
	}
	for _, key := range []string{"bad", "neg", "missing"} {
		if got := ParseInt(req, key); got != 0 {
			t.Errorf("ParseInt(%q) = %d, want 0", key, got)
		}
	}

	form := url.Values{"size": {" 20 "}}
	post := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	post.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if got := ParseInt(post, "size"); got != 20 {
		t.Errorf("form size = %d, want 20", got)
	}
}
