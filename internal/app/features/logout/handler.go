// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/loanadmin/internal/app/system/auth"
	"github.com/dalemusser/loanadmin/internal/app/system/boards"
	"go.uber.org/zap"
)

// Boards is the part of the board registry logout needs.
type Boards interface {
	Remove(id string)
}

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Boards     Boards // optional
}

func NewHandler(sessionMgr *auth.SessionManager, reg Boards, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Boards:     reg,
	}
}

// ServeLogout handles GET and POST /logout.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	h.EndSession(w, r)

	// HTMX handling: use HX-Redirect to force a client-side navigation.
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// EndSession closes the session's board, which cancels its in-flight
// fetches and closes its live connections, then deletes the session
// cookie. It writes headers only, so the caller still owns the response.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if h.Boards != nil {
		if b, ok := boards.FromContext(r.Context()); ok {
			h.Boards.Remove(b.ID)
		} else if u, ok := auth.CurrentUser(r); ok && u.BoardID != "" {
			h.Boards.Remove(u.BoardID)
		}
	}

	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("end session: save session", zap.Error(err))
	}
}
