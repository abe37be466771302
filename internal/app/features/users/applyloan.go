// internal/app/features/users/applyloan.go
package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dalemusser/loanadmin/internal/app/system/boards"
	"github.com/dalemusser/loanadmin/internal/app/system/mutation"
	"github.com/dalemusser/loanadmin/internal/domain/models"
)

// ActionApplyLoan is the staged-input key of the apply-for-loan action.
const ActionApplyLoan = "apply_loan"

// appendLoan adds the loan the backend created to the user's loans.
func appendLoan(u models.User, server json.RawMessage) (models.User, error) {
	var loan models.Loan
	if err := json.Unmarshal(server, &loan); err != nil {
		return u, fmt.Errorf("decode new loan: %w", err)
	}
	loans := make([]models.Loan, 0, len(u.Loans)+1)
	loans = append(loans, u.Loans...)
	u.Loans = append(loans, loan)
	return u, nil
}

func applyLoanAction(r *http.Request, b *boards.Board, id int64) mutation.Action[models.User] {
	return mutation.Action[models.User]{
		Success:   "Loan applied successfully!",
		Failure:   "Failed to apply for loan.",
		NoticeTTL: ApplyNoticeTTL,
		Submit: func(ctx context.Context) (json.RawMessage, error) {
			conn, err := b.Conn()
			if err != nil {
				return nil, err
			}
			return conn.ApplyForLoan(ctx, id)
		},
		Apply: appendLoan,
	}
}

// HandleApplyLoan opens a loan on the user's behalf.
// POST /users/apply-loan with id
func (h *Handler) HandleApplyLoan(w http.ResponseWriter, r *http.Request) {
	h.List.Action(ActionApplyLoan, applyLoanAction)(w, r)
}
