// internal/app/features/login/handler.go
package login

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/loanadmin/internal/app/features/errors"
	"github.com/dalemusser/loanadmin/internal/app/system/apiclient"
	"github.com/dalemusser/loanadmin/internal/app/system/auth"
	"github.com/dalemusser/loanadmin/internal/app/system/htmlsanitize"
	"github.com/dalemusser/loanadmin/internal/app/system/limits"
	"github.com/dalemusser/loanadmin/internal/app/system/navigation"
	"github.com/dalemusser/loanadmin/internal/app/system/ratelimit"
	"github.com/dalemusser/loanadmin/internal/app/system/timeouts"
	"github.com/dalemusser/loanadmin/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Authenticator exchanges operator credentials for a backend session.
// *apiclient.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, login, password string) (apiclient.Session, error)
}

type Handler struct {
	API        Authenticator
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter // nil allows every attempt
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger

	// Render draws the form. Defaults to the "login" template.
	Render func(w http.ResponseWriter, r *http.Request, data FormData)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// FormData is the login form's view model.
type FormData struct {
	viewdata.BaseVM
	Error     string
	LoginID   string // what the operator typed
	ReturnURL string
}

func NewHandler(api Authenticator, sessionMgr *auth.SessionManager, limiter *ratelimit.LoginLimiter, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		API:        api,
		SessionMgr: sessionMgr,
		Limiter:    limiter,
		ErrLog:     errLog,
		Log:        logger,
		Render: func(w http.ResponseWriter, r *http.Request, data FormData) {
			templates.Render(w, r, "login", data)
		},
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeLogin shows the sign-in form. A signed-in operator is sent on to
// the return URL.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, navigation.SafeBackURL(r, navigation.LoginReturn), http.StatusSeeOther)
		return
	}
	h.Render(w, r, FormData{
		BaseVM:    viewdata.NewBaseVM(r, "Sign in", "/"),
		ReturnURL: query.Get(r, "return"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleLoginPost authenticates against the backend and stores the bearer
// token in the session cookie.
func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxLoginForm)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse login form", err, "The form could not be read.", "/login")
		return
	}
	loginID := strings.TrimSpace(r.FormValue("login"))
	password := r.FormValue("password")

	if loginID == "" || password == "" {
		h.renderFormWithError(w, r, http.StatusBadRequest, "Enter your login and password.", loginID)
		return
	}

	if !h.Limiter.Allow(w, r, loginID) {
		h.Log.Warn("login rate limited", zap.String("login", loginID), zap.String("ip", r.RemoteAddr))
		h.renderFormWithError(w, r, http.StatusTooManyRequests,
			"Too many sign-in attempts for this account. Please wait a few minutes.", loginID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Mutation())
	defer cancel()

	sess, err := h.API.Login(ctx, loginID, password)
	if err != nil {
		switch apiclient.KindOf(err) {
		case apiclient.KindUnauthorized, apiclient.KindValidationEmpty:
			h.Log.Info("login rejected", zap.String("login", loginID), zap.Error(err))
			h.renderFormWithError(w, r, http.StatusUnauthorized, "Invalid login or password.", loginID)
		default:
			h.Log.Error("login failed", zap.String("login", loginID), zap.Error(err))
			msg := htmlsanitize.Message(apiclient.MessageOf(err), "Sign in failed. Please try again.")
			h.renderFormWithError(w, r, http.StatusBadGateway, msg, loginID)
		}
		return
	}

	if err := h.SessionMgr.SignIn(w, r, loginID, sess); err != nil {
		h.ErrLog.LogServerError(w, r, "save session", err, "Could not start your session.", "/login")
		return
	}

	h.Log.Info("operator signed in", zap.String("login", loginID))
	http.Redirect(w, r, navigation.SafeBackURL(r, navigation.LoginReturn), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| helper: render the form with an error                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, status int, msg, loginID string) {
	// From POST, "return" will be in the form; from GET, we might rely on the query.
	ret := strings.TrimSpace(r.FormValue("return"))
	if ret == "" {
		ret = query.Get(r, "return")
	}

	w.WriteHeader(status)
	h.Render(w, r, FormData{
		BaseVM:    viewdata.NewBaseVM(r, "Sign in", "/"),
		Error:     msg,
		LoginID:   loginID,
		ReturnURL: ret,
	})
}
