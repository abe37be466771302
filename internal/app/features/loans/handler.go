// internal/app/features/loans/handler.go
package loans

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

// Base is where the page's endpoints are mounted. The page itself is also
// served at "/".
const Base = "/loans"

// Detail sections a loan row can expand.
const (
	SectionUser         = "user"
	SectionTransactions = "transactions"
	SectionApprove      = "approve"
)

// Handler serves the loans page.
type Handler struct {
	List *listpage.Handler[models.Loan]

	// RateLimit guards the approve action. Optional.
	RateLimit func(http.Handler) http.Handler

	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

// NewHandler constructs the loans Handler.
func NewHandler(errLog *uierrors.ErrorLogger, m *metrics.Metrics, rateLimit func(http.Handler) http.Handler, logger *zap.Logger) *Handler {
	return &Handler{
		List: &listpage.Handler[models.Loan]{
			Key:           navstate.Loans,
			Base:          Base,
			Title:         "Loans",
			PageTemplate:  "loans_page",
			TableTemplate: "loans_table",
			Sections:      []string{SectionUser, SectionTransactions, SectionApprove},
			List:          func(b *boards.Board) *listctl.Controller[models.Loan] { return b.Loans },
			ErrLog:        errLog,
			Metrics:       m,
			Log:           logger,
		},
		RateLimit: rateLimit,
		ErrLog:    errLog,
		Log:       logger,
	}
}
