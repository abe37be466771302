package login_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	uierrors "github.com/dalemusser/loanadmin/internal/app/features/errors"
	"github.com/dalemusser/loanadmin/internal/app/features/login"
	"github.com/dalemusser/loanadmin/internal/app/system/apiclient"
	"github.com/dalemusser/loanadmin/internal/app/system/auth"
	"github.com/dalemusser/loanadmin/internal/app/system/ratelimit"
	"github.com/dalemusser/loanadmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAPI struct {
	calls int
	sess  apiclient.Session
	err   error
}

func (f *fakeAPI) Login(_ context.Context, login, password string) (apiclient.Session, error) {
	f.calls++
	return f.sess, f.err
}

type rendered struct {
	calls int
	last  login.FormData
}

func newTestHandler(t *testing.T, api login.Authenticator, limiter *ratelimit.LoginLimiter) (*login.Handler, *rendered) {
	t.Helper()
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", 24*time.Hour, false, logger)
	require.NoError(t, err)

	h := login.NewHandler(api, sm, limiter, uierrors.NewErrorLogger(logger), logger)
	out := &rendered{}
	h.Render = func(w http.ResponseWriter, r *http.Request, data login.FormData) {
		out.calls++
		out.last = data
	}
	return h, out
}

func postLogin(h *login.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleLoginPost(rec, req)
	return rec
}

func hasSessionCookie(rec *httptest.ResponseRecorder) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" && c.MaxAge >= 0 {
			return true
		}
	}
	return false
}

func TestHandleLoginPost_Success(t *testing.T) {
	api := &fakeAPI{sess: apiclient.Session{Token: "tok"}}
	h, _ := newTestHandler(t, api, nil)

	rec := postLogin(h, url.Values{"login": {"ops"}, "password": {"pw"}})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.True(t, hasSessionCookie(rec), "expected session cookie to be set")
}

func TestHandleLoginPost_WithReturnURL(t *testing.T) {
	h, _ := newTestHandler(t, &fakeAPI{sess: apiclient.Session{Token: "tok"}}, nil)

	rec := postLogin(h, url.Values{"login": {"ops"}, "password": {"pw"}, "return": {"/products"}})
	assert.Equal(t, "/products", rec.Header().Get("Location"))

	rec = postLogin(h, url.Values{"login": {"ops"}, "password": {"pw"}, "return": {"https://evil.example/"}})
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestHandleLoginPost_AgainstBackend(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.JSON("POST /api/v1/login", http.StatusOK, `{"data":{"token":"abc"}}`)
	h, _ := newTestHandler(t, backend.Client(), nil)

	rec := postLogin(h, url.Values{"login": {"ops"}, "password": {"pw"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	calls := backend.Calls("/api/v1/login")
	require.Len(t, calls, 1)
	assert.Equal(t, "ops", calls[0].Form.Get("login"))
	assert.Equal(t, "pw", calls[0].Form.Get("password"))
}

func TestHandleLoginPost_MissingFields(t *testing.T) {
	api := &fakeAPI{}
	h, out := newTestHandler(t, api, nil)

	rec := postLogin(h, url.Values{"login": {"ops"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, api.calls)
	assert.Equal(t, "Enter your login and password.", out.last.Error)
	assert.Equal(t, "ops", out.last.LoginID)
}

func TestHandleLoginPost_Rejected(t *testing.T) {
	api := &fakeAPI{err: &apiclient.Error{Kind: apiclient.KindUnauthorized, Status: 401}}
	h, out := newTestHandler(t, api, nil)

	rec := postLogin(h, url.Values{"login": {"ops"}, "password": {"bad"}, "return": {"/users"}})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid login or password.", out.last.Error)
	assert.Equal(t, "/users", out.last.ReturnURL)
	assert.False(t, hasSessionCookie(rec))
}

func TestHandleLoginPost_BackendDown(t *testing.T) {
	api := &fakeAPI{err: &apiclient.Error{Kind: apiclient.KindTransport, Op: "auth.login"}}
	h, out := newTestHandler(t, api, nil)

	rec := postLogin(h, url.Values{"login": {"ops"}, "password": {"pw"}})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Sign in failed. Please try again.", out.last.Error)
}

func TestHandleLoginPost_RateLimitedPerAccount(t *testing.T) {
	api := &fakeAPI{err: &apiclient.Error{Kind: apiclient.KindUnauthorized, Status: 401}}
	h, out := newTestHandler(t, api, ratelimit.NewLoginLimiter(2, time.Minute))

	for i := 0; i < 2; i++ {
		postLogin(h, url.Values{"login": {"ops"}, "password": {"bad"}})
	}
	rec := postLogin(h, url.Values{"login": {"ops"}, "password": {"bad"}})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 2, api.calls)
	assert.Contains(t, out.last.Error, "Too many sign-in attempts")
}

func TestServeLogin_RendersForm(t *testing.T) {
	h, out := newTestHandler(t, &fakeAPI{}, nil)

	rec := httptest.NewRecorder()
	h.ServeLogin(rec, httptest.NewRequest(http.MethodGet, "/login?return=%2Fusers", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, out.calls)
	assert.Equal(t, "/users", out.last.ReturnURL)
	assert.False(t, out.last.IsLoggedIn)
}

func TestServeLogin_SignedInRedirects(t *testing.T) {
	h, out := newTestHandler(t, &fakeAPI{}, nil)

	req := auth.WithTestUser(httptest.NewRequest(http.MethodGet, "/login?return=%2Fproducts", nil),
		&auth.SessionUser{Login: "ops", Token: "tok"})
	rec := httptest.NewRecorder()
	h.ServeLogin(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/products", rec.Header().Get("Location"))
	assert.Equal(t, 0, out.calls)
}

func TestRoutes_LimitGuardsPost(t *testing.T) {
	h, _ := newTestHandler(t, &fakeAPI{sess: apiclient.Session{Token: "tok"}}, nil)
	router := login.Routes(h, ratelimit.ByIP(1, time.Minute))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("login=ops&password=pw"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusSeeOther, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}
