// internal/app/features/loans/routes.go
package loans

import (
	"github.com/dalemusser/loanadmin/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the loans subrouter, mounted at Base.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		h.List.Mount(pr)

		pr.Group(func(ar chi.Router) {
			if h.RateLimit != nil {
				ar.Use(h.RateLimit)
			}
			ar.Post("/approve", h.HandleApprove)
		})
	})
	return r
}
