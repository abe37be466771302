// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/loanadmin/internal/app/system/apiclient"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	tokenKey   = "api_token"
	loginKey   = "login"
	boardKey   = "board_id"
	signedInAt = "signed_in_at"
)

// SessionUser is what a signed-in request carries in its context.
type SessionUser struct {
	Login   string
	Token   string
	BoardID string
}

// Credential returns the backend credential for API calls.
func (u *SessionUser) Credential() apiclient.Session {
	return apiclient.Session{Token: u.Token}
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser returns r carrying u, as LoadSessionUser would.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| SessionManager                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager owns the cookie store holding the bearer token and the
// session's board id. Cookies are signed and encrypted.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
	log   *zap.Logger
}

// NewSessionManager builds a SessionManager. The encryption key is derived
// from sessionKey. In production (secure=true) cookies are Secure with
// SameSite=Lax; in local dev over http they are not Secure.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if name == "" {
		return nil, fmt.Errorf("session name is empty")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	block := sha256.Sum256([]byte("enc:" + sessionKey))
	store := sessions.NewCookieStore([]byte(sessionKey), block[:])
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(int(maxAge.Seconds()))

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// Store exposes the underlying cookie store.
func (sm *SessionManager) Store() *sessions.CookieStore { return sm.store }

// Name is the cookie name.
func (sm *SessionManager) Name() string { return sm.name }

// GetSession returns the request's session. On a decode failure a fresh
// session is returned alongside the error.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return sm.store.Get(r, sm.name)
}

// SignIn stores the credential and clears any previous board id.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, login string, cred apiclient.Session) error {
	sess, _ := sm.GetSession(r)
	sess.Values[tokenKey] = cred.Token
	sess.Values[loginKey] = login
	sess.Values[signedInAt] = time.Now().Unix()
	delete(sess.Values, boardKey)
	return sess.Save(r, w)
}

// SignOut deletes the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		sm.log.Warn("session decode failed during sign-out", zap.Error(err))
	}
	opts := *sm.store.Options
	sess.Options = &opts
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// SetBoardID records the board the session is using.
func (sm *SessionManager) SetBoardID(w http.ResponseWriter, r *http.Request, id string) error {
	sess, _ := sm.GetSession(r)
	sess.Values[boardKey] = id
	return sess.Save(r, w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadSessionUser injects the user into context when the session holds a
// token.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.GetSession(r)
		if err != nil {
			sm.logDecodeError(err)
		}
		if tok := getString(sess, tokenKey); strings.TrimSpace(tok) != "" {
			r = withUser(r, &SessionUser{
				Login:   getString(sess, loginKey),
				Token:   tok,
				BoardID: getString(sess, boardKey),
			})
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized with a plain error body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		RedirectToLogin(w, r)
	})
}

// RedirectToLogin sends the browser to the login page, preserving the
// current location for GET requests.
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	dest := "/login"
	if r.Method == http.MethodGet {
		dest += "?return=" + url.QueryEscape(currentURI(r))
	}

	// HTMX and the live-refresh shim: full-page client redirect.
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", dest)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if wantsHTML(r) {
		http.Redirect(w, r, dest, http.StatusSeeOther)
		return
	}

	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// helpers

// logDecodeError logs a cookie that could not be read. Expired, rotated-key
// or tampered cookies are routine; anything else is worth a warning.
func (sm *SessionManager) logDecodeError(err error) {
	var se securecookie.Error
	if errors.As(err, &se) && se.IsDecode() {
		sm.log.Debug("session cookie rejected", zap.Error(err))
		return
	}
	sm.log.Warn("session decode failed", zap.Error(err))
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if s == nil {
		return ""
	}
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func currentURI(r *http.Request) string {
	u := *r.URL
	return u.RequestURI()
}

// Credential returns the signed-in credential and board id of the request.
// It requires LoadSessionUser to have run.
func (sm *SessionManager) Credential(r *http.Request) (apiclient.Session, string, bool) {
	u, ok := CurrentUser(r)
	if !ok {
		return apiclient.Session{}, "", false
	}
	return u.Credential(), u.BoardID, true
}
