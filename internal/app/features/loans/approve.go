// internal/app/features/loans/approve.go
package loans

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/loanadmin/internal/app/system/apiclient"
	"github.com/dalemusser/loanadmin/internal/app/system/boards"
	"github.com/dalemusser/loanadmin/internal/app/system/inputval"
	"github.com/dalemusser/loanadmin/internal/app/system/mutation"
	"github.com/dalemusser/loanadmin/internal/domain/models"
)

// approveInput is the approval form. Amounts stay strings so they reach
// the backend exactly as typed.
type approveInput struct {
	LoanAmount  string `validate:"required,positive" label:"Loan amount"`
	TermMonths  string `validate:"required,posint" label:"Term (months)"`
	LoanCap     string `validate:"required,positive" label:"Loan cap"`
	Description string `validate:"max=500" label:"Description"`
}

func approveInputFrom(r *http.Request) approveInput {
	return approveInput{
		LoanAmount:  strings.TrimSpace(r.PostFormValue("loan_amount")),
		TermMonths:  strings.TrimSpace(r.PostFormValue("term_months")),
		LoanCap:     strings.TrimSpace(r.PostFormValue("loan_cap")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
	}
}

func validateApprove(in approveInput) inputval.Result {
	return inputval.Validate(in)
}

// approveAction builds the approve mutation for one loan.
func approveAction(r *http.Request, b *boards.Board, id int64) mutation.Action[models.Loan] {
	in := approveInputFrom(r)
	return mutation.Action[models.Loan]{
		Section:  SectionApprove,
		Success:  "Loan approved.",
		Failure:  "Failed to approve loan.",
		Validate: func() inputval.Result { return validateApprove(in) },
		Submit: func(ctx context.Context) (json.RawMessage, error) {
			conn, err := b.Conn()
			if err != nil {
				return nil, err
			}
			// Validate has passed, so the term parses.
			term, _ := inputval.PositiveInt(in.TermMonths)
			return conn.ApproveLoan(ctx, id, apiclient.LoanApproval{
				LoanAmount:  in.LoanAmount,
				TermMonths:  strconv.Itoa(term),
				Description: in.Description,
				LoanCap:     in.LoanCap,
			})
		},
	}
}

// HandleApprove approves a loan with the submitted terms.
// POST /loans/approve with id, loan_amount, term_months, loan_cap, description
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.List.Action(SectionApprove, approveAction)(w, r)
}
