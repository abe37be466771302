// internal/app/features/navigate/navigate.go
package navigate

import (
	"net/http"
	"net/url"

	"github.com/dalemusser/loanadmin/internal/app/system/auth"
	"github.com/dalemusser/loanadmin/internal/app/system/boards"
	"github.com/dalemusser/loanadmin/internal/app/system/navstate"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the sidebar links. Following a link marks the target as
// loading on the session's board, so every open view of the board shows
// the spinner until the target page has rendered.
type Handler struct {
	Log *zap.Logger
}

// NewHandler constructs a navigate Handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

// Routes mounts GET /{key}.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/{key}", h.ServeGo)
	return r
}

// ServeGo handles GET /go/{key}?from=/current/path.
func (h *Handler) ServeGo(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rt, ok := navstate.Lookup(key)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if b, ok := boards.FromContext(r.Context()); ok {
		if _, moved := b.Nav.Click(key, currentPath(r)); moved {
			h.Log.Debug("navigation started", zap.String("board", b.ID), zap.String("to", rt.Path))
		}
	}
	http.Redirect(w, r, rt.Path, http.StatusSeeOther)
}

// currentPath is the page the link was followed from: the from parameter
// when given, otherwise the Referer's path.
func currentPath(r *http.Request) string {
	if from := query.Get(r, "from"); from != "" {
		return from
	}
	if ref, err := url.Parse(r.Referer()); err == nil {
		return ref.Path
	}
	return ""
}
