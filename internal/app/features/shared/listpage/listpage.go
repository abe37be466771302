// internal/app/features/shared/listpage/listpage.go
//
// Package listpage serves the endpoints every dashboard list page shares:
// the full page, the table fragment, filter/paging/size changes, detail
// toggles, notice dismissal, the live channel and mutation actions. A
// feature supplies which controller to drive and how to render it.
package listpage

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	uierrors "github.com/dalemusser/loanadmin/internal/app/features/errors"
	"github.com/dalemusser/loanadmin/internal/app/system/apiclient"
	"github.com/dalemusser/loanadmin/internal/app/system/auth"
	"github.com/dalemusser/loanadmin/internal/app/system/boards"
	"github.com/dalemusser/loanadmin/internal/app/system/limits"
	"github.com/dalemusser/loanadmin/internal/app/system/listctl"
	"github.com/dalemusser/loanadmin/internal/app/system/livepush"
	"github.com/dalemusser/loanadmin/internal/app/system/metrics"
	"github.com/dalemusser/loanadmin/internal/app/system/mutation"
	"github.com/dalemusser/loanadmin/internal/app/system/navstate"
	"github.com/dalemusser/loanadmin/internal/app/system/paging"
	"github.com/dalemusser/loanadmin/internal/app/system/timeouts"
	"github.com/dalemusser/loanadmin/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Renderer writes a full page or a table fragment. Features pass
// templates.Render / templates.RenderSnippet wrappers; tests pass fakes.
type Renderer func(w http.ResponseWriter, r *http.Request, name string, data any)

// Handler drives one list page.
type Handler[T models.Entity] struct {
	Key   string // navstate key
	Base  string // mount path of the page's endpoints
	Title string

	PageTemplate  string
	TableTemplate string

	// Sections are the detail sections a row can expand; /toggle rejects
	// any other name.
	Sections []string

	// List picks the page's controller from the session board.
	List func(*boards.Board) *listctl.Controller[T]

	// Extra adds page data (e.g. the category picker). Optional.
	Extra func(r *http.Request, b *boards.Board) any

	// Default to the waffle template engine when nil.
	RenderPage  Renderer
	RenderTable Renderer

	// EndSession signs the browser out before a login redirect, so the
	// login page shows its form instead of bouncing back. Optional.
	EndSession func(w http.ResponseWriter, r *http.Request)

	ErrLog  *uierrors.ErrorLogger
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

// Mount registers the shared endpoints on r. Feature routes add their
// actions next to them.
func (h *Handler[T]) Mount(r chi.Router) {
	if h.RenderPage == nil {
		h.RenderPage = RenderPage
	}
	if h.RenderTable == nil {
		h.RenderTable = RenderTable
	}
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	r.Get("/", h.ServePage)
	r.Get("/table", h.ServeTable)
	r.Get("/live", h.ServeLive)
	r.Post("/filters", h.HandleFilter)
	r.Post("/apply", h.HandleApply)
	r.Post("/clear", h.HandleClear)
	r.Post("/refresh", h.HandleRefresh)
	r.Post("/page", h.HandlePage)
	r.Post("/size", h.HandleSize)
	r.Post("/toggle", h.HandleToggle)
	r.Post("/dismiss", h.HandleDismiss)
}

// board returns the session board or answers with a login redirect.
func (h *Handler[T]) board(w http.ResponseWriter, r *http.Request) (*boards.Board, bool) {
	b, ok := boards.FromContext(r.Context())
	if !ok {
		auth.RedirectToLogin(w, r)
		return nil, false
	}
	return b, true
}

// redirected answers with a login redirect when a fetch asked for one.
func (h *Handler[T]) redirected(w http.ResponseWriter, r *http.Request, b *boards.Board) bool {
	kind, ok := b.TakeRedirect()
	if !ok {
		return false
	}
	h.toLogin(w, r, kind)
	return true
}

// toLogin ends the session and sends the browser to the login page.
func (h *Handler[T]) toLogin(w http.ResponseWriter, r *http.Request, kind apiclient.Kind) {
	h.Log.Info("sending browser to login", zap.String("list", h.Key), zap.Stringer("kind", kind))
	if h.EndSession != nil {
		h.EndSession(w, r)
	}
	auth.RedirectToLogin(w, r)
}

// waitIdle gives an in-flight fetch a chance to land before rendering.
func (h *Handler[T]) waitIdle(ctx context.Context, c *listctl.Controller[T]) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Lookup())
	defer cancel()
	_ = c.Wait(ctx)
}

// ServePage renders the full page.
// GET {base}/
func (h *Handler[T]) ServePage(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	b.Start(h.Key)
	c := h.List(b)
	h.waitIdle(r.Context(), c)
	if h.redirected(w, r, b) {
		return
	}
	h.RenderPage(w, r, h.PageTemplate, h.pageVM(r, b, c))
}

// ServeTable renders the table fragment the live channel refetches.
// GET {base}/table
func (h *Handler[T]) ServeTable(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	c := h.List(b)
	if r.URL.Query().Get("wait") == "1" {
		h.waitIdle(r.Context(), c)
	}
	if h.redirected(w, r, b) {
		return
	}
	h.RenderTable(w, r, h.TableTemplate, h.tableVM(r, b, c))
}

// ServeLive upgrades to the page's websocket channel.
// GET {base}/live
func (h *Handler[T]) ServeLive(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	err := livepush.Serve(r.Context(), w, r, b.Hub, livepush.Options{
		List:    h.Key,
		OnOpen:  h.Metrics.LiveOpened,
		OnClose: h.Metrics.LiveClosed,
		Logger:  h.Log,
	})
	if err != nil {
		h.Log.Debug("live channel ended", zap.String("list", h.Key), zap.Error(err))
	}
}

// HandleFilter records one filter keystroke; the fetch is debounced.
// POST {base}/filters with field, value
func (h *Handler[T]) HandleFilter(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxActionForm)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.HTMXLogBadRequest(w, r, "parse filter form failed", err, "Invalid form data.")
		return
	}
	field := r.PostForm.Get("field")
	if err := h.List(b).SetFilter(field, r.PostForm.Get("value")); err != nil {
		h.ErrLog.HTMXLogBadRequest(w, r, "unknown filter field", err, "Unknown filter.")
		return
	}
	h.done(w, r, b)
}

// HandleApply searches now. Filter fields present in the form are taken
// first, so the filter form works without the script.
// POST {base}/apply
func (h *Handler[T]) HandleApply(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxActionForm)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.HTMXLogBadRequest(w, r, "parse filter form failed", err, "Invalid form data.")
		return
	}
	c := h.List(b)
	for _, f := range c.Fields() {
		if vals, present := r.PostForm[f]; present {
			// Field names come from the controller, so SetFilter cannot fail.
			_ = c.SetFilter(f, strings.Join(vals, ""))
		}
	}
	c.Apply()
	h.done(w, r, b)
}

// HandleClear resets every filter and searches.
// POST {base}/clear
func (h *Handler[T]) HandleClear(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	h.List(b).ClearFilters()
	h.done(w, r, b)
}

// HandleRefresh refetches the current page with the current filters.
// POST {base}/refresh
func (h *Handler[T]) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	h.List(b).Refresh()
	h.done(w, r, b)
}

// HandlePage moves to another page. Selecting the current or an
// out-of-range page changes nothing.
// POST {base}/page with page
func (h *Handler[T]) HandlePage(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxActionForm)
	n := paging.ParseInt(r, "page")
	if n == 0 {
		h.ErrLog.HTMXLogBadRequest(w, r, "bad page number", nil, "Invalid page.")
		return
	}
	h.List(b).SetPage(n)
	h.done(w, r, b)
}

// HandleSize changes the page size.
// POST {base}/size with size
func (h *Handler[T]) HandleSize(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxActionForm)
	if err := h.List(b).SetPageSize(paging.ParseInt(r, "size")); err != nil {
		h.ErrLog.HTMXLogBadRequest(w, r, "bad page size", err, "Invalid page size.")
		return
	}
	h.done(w, r, b)
}

// HandleToggle opens or closes a detail section of one row.
// POST {base}/toggle with id, section
func (h *Handler[T]) HandleToggle(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	id, err := entityID(r)
	section := strings.TrimSpace(r.PostFormValue("section"))
	if err != nil || !slices.Contains(h.Sections, section) {
		h.ErrLog.HTMXLogBadRequest(w, r, "bad toggle request", err, "Invalid request.")
		return
	}
	b.Page(h.Key).Toggle(id, section)
	h.done(w, r, b)
}

// HandleDismiss removes a row's notice.
// POST {base}/dismiss with id
func (h *Handler[T]) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	id, err := entityID(r)
	if err != nil {
		h.ErrLog.HTMXLogBadRequest(w, r, "bad dismiss request", err, "Invalid request.")
		return
	}
	b.Page(h.Key).Dismiss(id)
	h.done(w, r, b)
}

// Action runs a mutation for the row named by the form's id. build gets
// the parsed form, which has already been staged for the row.
func (h *Handler[T]) Action(name string, build func(r *http.Request, b *boards.Board, id int64) mutation.Action[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := h.board(w, r)
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limits.MaxActionForm)
		if err := r.ParseMultipartForm(limits.MaxActionForm); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			h.ErrLog.HTMXLogBadRequest(w, r, "parse action form failed", err, "Invalid form data.")
			return
		}
		id, err := entityID(r)
		if err != nil {
			h.ErrLog.HTMXLogBadRequest(w, r, "bad entity id", err, "Invalid request.")
			return
		}

		page := b.Page(h.Key)
		page.Stage(id, name, r.PostForm)

		a := build(r, b, id)
		a.Name = name
		if a.Logger == nil {
			a.Logger = h.Log
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Mutation())
		defer cancel()
		out := mutation.Run[T](ctx, id, &page.Pending, h.List(b), page, a)
		h.Metrics.ObserveMutation(h.Key+"."+name, out.Status.String())

		switch out.Status {
		case mutation.NotFound:
			h.ErrLog.HTMXLogBadRequest(w, r, "action on unknown row", nil, "That record is no longer listed.")
			return
		case mutation.Busy:
			w.WriteHeader(http.StatusConflict)
			return
		}
		if out.Kind == apiclient.KindMissingCredential || out.Kind == apiclient.KindUnauthorized {
			h.toLogin(w, r, out.Kind)
			return
		}
		h.done(w, r, b)
	}
}

// done ends a state-changing request. Script requests get 204 and learn
// about the change over the live channel; plain form posts go back to the
// page.
func (h *Handler[T]) done(w http.ResponseWriter, r *http.Request, b *boards.Board) {
	if h.redirected(w, r, b) {
		return
	}
	if r.Header.Get("HX-Request") == "true" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, h.pagePath(), http.StatusSeeOther)
}

func (h *Handler[T]) pagePath() string {
	if rt, ok := navstate.Lookup(h.Key); ok {
		return rt.Path
	}
	return h.Base
}

func entityID(r *http.Request) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(r.FormValue("id")), 10, 64)
}
