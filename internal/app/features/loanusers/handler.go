// internal/app/features/loanusers/handler.go
package loanusers

import (
	"net/http"

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
const Base = "/loan-users"

// Detail sections a loan-user row can expand.
const (
	SectionUser    = "user"
	SectionApprove = "approve"
)

// Handler serves the loan users page.
type Handler struct {
	List *listpage.Handler[models.LoanUser]

	// RateLimit guards the approve action. Optional.
	RateLimit func(http.Handler) http.Handler

	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

// NewHandler constructs the loan users Handler.
func NewHandler(errLog *uierrors.ErrorLogger, m *metrics.Metrics, rateLimit func(http.Handler) http.Handler, logger *zap.Logger) *Handler {
	return &Handler{
		List: &listpage.Handler[models.LoanUser]{
			Key:           navstate.LoanUsers,
			Base:          Base,
			Title:         "Loan Users",
			PageTemplate:  "loan_users_page",
			TableTemplate: "loan_users_table",
			Sections:      []string{SectionUser, SectionApprove},
			List:          func(b *boards.Board) *listctl.Controller[models.LoanUser] { return b.LoanUsers },
			ErrLog:        errLog,
			Metrics:       m,
			Log:           logger,
		},
		RateLimit: rateLimit,
		ErrLog:    errLog,
		Log:       logger,
	}
}
