// internal/app/system/boards/middleware.go
package boards

import (
	"context"
	"net/http"

	"github.com/dalemusser/loanadmin/internal/app/system/apiclient"
	"go.uber.org/zap"
)

// Sessions is what Attach needs from the session layer.
type Sessions interface {
	// Credential returns the signed-in credential and the stored board id.
	Credential(r *http.Request) (cred apiclient.Session, boardID string, ok bool)
	SetBoardID(w http.ResponseWriter, r *http.Request, id string) error
}

type ctxKey struct{}

// FromContext returns the board attached to ctx.
func FromContext(ctx context.Context) (*Board, bool) {
	b, ok := ctx.Value(ctxKey{}).(*Board)
	return b, ok
}

// WithBoard returns ctx carrying b.
func WithBoard(ctx context.Context, b *Board) context.Context {
	return context.WithValue(ctx, ctxKey{}, b)
}

// Attach puts the session's board into the request context, creating one
// when the session has none, its board was swept, or it was built for a
// different credential. Requests without a signed-in session pass through.
func (r *Registry) Attach(ss Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			cred, id, ok := ss.Credential(req)
			if !ok {
				next.ServeHTTP(w, req)
				return
			}

			b, found := r.Get(id)
			if found && b.Session().Token != cred.Token {
				r.Remove(id)
				found = false
			}
			if !found {
				b = r.Create(cred)
				if err := ss.SetBoardID(w, req, b.ID); err != nil {
					r.log.Warn("could not store board id", zap.Error(err))
				}
			}
			next.ServeHTTP(w, req.WithContext(WithBoard(req.Context(), b)))
		})
	}
}
