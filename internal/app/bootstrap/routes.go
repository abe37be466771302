// internal/app/bootstrap/routes.go
package bootstrap

import (
	"crypto/sha256"
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/loanadmin/internal/app/features/errors"
	healthfeature "github.com/dalemusser/loanadmin/internal/app/features/health"
	loanusersfeature "github.com/dalemusser/loanadmin/internal/app/features/loanusers"
	loansfeature "github.com/dalemusser/loanadmin/internal/app/features/loans"
	loginfeature "github.com/dalemusser/loanadmin/internal/app/features/login"
	logoutfeature "github.com/dalemusser/loanadmin/internal/app/features/logout"
	navigatefeature "github.com/dalemusser/loanadmin/internal/app/features/navigate"
	productsfeature "github.com/dalemusser/loanadmin/internal/app/features/products"
	usersfeature "github.com/dalemusser/loanadmin/internal/app/features/users"
	"github.com/dalemusser/loanadmin/internal/app/system/auth"
	"github.com/dalemusser/loanadmin/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, backend clients, schema setup, and
// the Startup hook have completed. It boots the template engine, installs
// the middleware stack (request ids, recovery, security headers, metrics,
// CSRF, sessions) and mounts the dashboard pages. Every page and action
// route runs with the session's board attached to the request context.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps BackendDeps, logger *zap.Logger) (http.Handler, error) {
	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	prod := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, prod, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !prod,
	})

	csrfMiddleware := csrf.Protect(csrfKey(appCfg),
		csrf.Secure(prod),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.CookieName(appCfg.SessionName+"-csrf"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("csrf validation failed",
				zap.String("path", r.URL.Path), zap.Error(csrf.FailureReason(r)))
			errorsfeature.RenderForbidden(w, r, "Your form expired. Reload the page and try again.", "")
		})),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(secureMiddleware.Handler)
	r.Use(deps.Metrics.Middleware)
	r.Use(csrfMiddleware)

	// Global auth middleware: loads SessionUser into context if logged in.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.API, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", deps.Metrics.Handler())

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Authentication
	loginHandler := loginfeature.NewHandler(deps.API, sessionMgr,
		ratelimit.NewLoginLimiter(appCfg.LoginRateLimit, time.Minute), errLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler, ratelimit.ByIP(appCfg.LoginRateLimit, time.Minute)))

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)
	r.NotFound(errorsHandler.NotFound)

	// Row actions are limited per session.
	actionLimit := ratelimit.BySession(appCfg.MutationRateLimit, time.Minute)

	loansHandler := loansfeature.NewHandler(errLog, deps.Metrics, actionLimit, logger)
	loanUsersHandler := loanusersfeature.NewHandler(errLog, deps.Metrics, actionLimit, logger)
	productsHandler := productsfeature.NewHandler(errLog, deps.Metrics, actionLimit, logger)
	usersHandler := usersfeature.NewHandler(errLog, deps.Metrics, actionLimit, logger)

	// A login redirect from a list page ends the session first.
	logoutHandler := logoutfeature.NewHandler(sessionMgr, deps.Boards, logger)
	loansHandler.List.EndSession = logoutHandler.EndSession
	loanUsersHandler.List.EndSession = logoutHandler.EndSession
	productsHandler.List.EndSession = logoutHandler.EndSession
	usersHandler.List.EndSession = logoutHandler.EndSession

	// Everything below runs with the session's board in the context.
	r.Group(func(br chi.Router) {
		br.Use(deps.Boards.Attach(sessionMgr))

		br.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

		navigateHandler := navigatefeature.NewHandler(logger)
		br.Mount("/go", navigatefeature.Routes(navigateHandler, sessionMgr))

		// The loans page is the landing page; its endpoints live under /loans.
		br.With(sessionMgr.RequireSignedIn).Get("/", loansHandler.List.ServePage)
		br.Mount(loansfeature.Base, loansfeature.Routes(loansHandler, sessionMgr))
		br.Mount(loanusersfeature.Base, loanusersfeature.Routes(loanUsersHandler, sessionMgr))
		br.Mount(productsfeature.Base, productsfeature.Routes(productsHandler, sessionMgr))
		br.Mount(usersfeature.Base, usersfeature.Routes(usersHandler, sessionMgr))
	})

	return r, nil
}

// csrfKey returns the configured CSRF key, or one derived from the session
// key so a single secret is enough to run the app.
func csrfKey(appCfg AppConfig) []byte {
	if appCfg.CSRFKey != "" {
		return []byte(appCfg.CSRFKey)
	}
	sum := sha256.Sum256([]byte("csrf:" + appCfg.SessionKey))
	return sum[:]
}
