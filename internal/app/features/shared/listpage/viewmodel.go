// internal/app/features/shared/listpage/viewmodel.go
package listpage

import (
	"net/http"

	"github.com/dalemusser/loanadmin/internal/app/system/boards"
	"github.com/dalemusser/loanadmin/internal/app/system/expansion"
	"github.com/dalemusser/loanadmin/internal/app/system/listctl"
	"github.com/dalemusser/loanadmin/internal/app/system/mutation"
	"github.com/dalemusser/loanadmin/internal/app/system/paging"
	"github.com/dalemusser/loanadmin/internal/app/system/viewdata"
	"github.com/dalemusser/loanadmin/internal/domain/models"
	"github.com/gorilla/csrf"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// PageVM is the data for a full list page.
type PageVM[T models.Entity] struct {
	viewdata.BaseVM
	Table TableVM[T]
	Extra any
}

// TableVM is the data for the table fragment.
type TableVM[T models.Entity] struct {
	List      string
	Base      string
	CSRFToken string

	Rows    []Row[T]
	Filters listctl.Filters
	Loading bool
	Fetched bool
	Version uint64

	Range     paging.Range
	Pager     paging.Window
	ShowPager bool
	PageSize  int
	PageSizes []int

	Extra any
}

// Row is one entity plus its UI state.
type Row[T models.Entity] struct {
	Item      T
	ID        int64
	Base      string
	CSRFToken string
	Busy      bool
	Notice    *mutation.Notice

	open expansion.State
	page *boards.Page
}

// Open reports whether a detail section is expanded.
func (r Row[T]) Open(section string) bool { return r.open.IsOpen(r.ID, section) }

// Staged returns the operator's last input for an action field.
func (r Row[T]) Staged(action, field string) string {
	if r.page == nil {
		return ""
	}
	return r.page.Staged(r.ID, action).Get(field)
}

// ToggleVM feeds the row_toggle partial.
type ToggleVM struct {
	Base      string
	CSRFToken string
	ID        int64
	Section   string
	Label     string
}

// Toggle builds the toggle button for a section.
func (r Row[T]) Toggle(section, label string) ToggleVM {
	return ToggleVM{Base: r.Base, CSRFToken: r.CSRFToken, ID: r.ID, Section: section, Label: label}
}

func (h *Handler[T]) tableVM(r *http.Request, b *boards.Board, c *listctl.Controller[T]) TableVM[T] {
	snap := c.Snapshot()
	page := b.Page(h.Key)
	open := page.Expansion()
	token := csrf.Token(r)

	notices := map[int64]mutation.Notice{}
	for _, n := range page.Notices() {
		notices[n.Entity] = n
	}

	rows := make([]Row[T], 0, len(snap.Items))
	for _, it := range snap.Items {
		id := it.EntityID()
		row := Row[T]{
			Item:      it,
			ID:        id,
			Base:      h.Base,
			CSRFToken: token,
			Busy:      page.Pending.Busy(id),
			open:      open,
			page:      page,
		}
		if n, ok := notices[id]; ok {
			row.Notice = &n
		}
		rows = append(rows, row)
	}

	vm := TableVM[T]{
		List:      h.Key,
		Base:      h.Base,
		CSRFToken: token,
		Rows:      rows,
		Filters:   snap.Filters,
		Loading:   snap.Loading,
		Fetched:   snap.Fetched,
		Version:   snap.Version,
		Range:     paging.ComputeRange(snap.Meta),
		PageSize:  snap.PageSize,
		PageSizes: c.PageSizes(),
	}
	if snap.Meta != nil {
		vm.Pager = paging.Build(snap.Meta.CurrentPage, snap.Meta.LastPage)
		vm.ShowPager = snap.Meta.Total > 0
	}
	if h.Extra != nil {
		vm.Extra = h.Extra(r, b)
	}
	return vm
}

func (h *Handler[T]) pageVM(r *http.Request, b *boards.Board, c *listctl.Controller[T]) PageVM[T] {
	t := h.tableVM(r, b, c)
	return PageVM[T]{
		BaseVM: viewdata.NewBaseVM(r, h.Title, "/"),
		Table:  t,
		Extra:  t.Extra,
	}
}
