// internal/app/features/users/handler.go
package users

import (
	"net/http"
	"time"

	uierrors "github.com/dalemusser/loanadmin/internal/app/features/errors"
	"github.com/dalemusser/loanadmin/internal/app/features/shared/listpage"
	"github.com/dalemusser/loanadmin/internal/app/system/boards"
	"github.com/dalemusser/loanadmin/internal/app/system/listctl"
	"github.com/dalemusser/loanadmin/internal/app/system/metrics"
	"github.com/dalemusser/loanadmin/internal/app/system/navstate"
	"github.com/dalemusser/loanadmin/internal/domain/models"
	"go.uber.org/zap"
)

// Base is where the page's endpoints are mounted.
const Base = "/users"

// SectionDetails is the expandable panel with the user's relations.
const SectionDetails = "details"

// ApplyNoticeTTL is how long the apply-for-loan success notice stays up.
const ApplyNoticeTTL = 5 * time.Second

// Handler serves the users page.
type Handler struct {
	List *listpage.Handler[models.User]

	// RateLimit guards the apply-for-loan action. Optional.
	RateLimit func(http.Handler) http.Handler

	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

// NewHandler constructs the users Handler.
func NewHandler(errLog *uierrors.ErrorLogger, m *metrics.Metrics, rateLimit func(http.Handler) http.Handler, logger *zap.Logger) *Handler {
	return &Handler{
		List: &listpage.Handler[models.User]{
			Key:           navstate.Users,
			Base:          Base,
			Title:         "Users",
			PageTemplate:  "users_page",
			TableTemplate: "users_table",
			Sections:      []string{SectionDetails},
			List:          func(b *boards.Board) *listctl.Controller[models.User] { return b.Users },
			ErrLog:        errLog,
			Metrics:       m,
			Log:           logger,
		},
		RateLimit: rateLimit,
		ErrLog:    errLog,
		Log:       logger,
	}
}
