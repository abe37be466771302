// internal/app/features/loanusers/approve.go
package loanusers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/loanadmin/internal/app/system/boards"
	"github.com/dalemusser/loanadmin/internal/app/system/inputval"
	"github.com/dalemusser/loanadmin/internal/app/system/mutation"
	"github.com/dalemusser/loanadmin/internal/domain/models"
)

type approveInput struct {
	LoanCap string `validate:"required,positive" label:"Loan cap"`
}

func approveInputFrom(r *http.Request) approveInput {
	return approveInput{LoanCap: strings.TrimSpace(r.PostFormValue("loan_cap"))}
}

// applyApproval folds the approve response into the row. The endpoint
// answers with the user, not the loan-user record, so the user relation is
// replaced and the approval fields are taken from the user's loan_user
// relation when the backend includes it.
func applyApproval(cur models.LoanUser, server json.RawMessage) (models.LoanUser, error) {
	var u models.User
	if err := json.Unmarshal(server, &u); err != nil {
		return cur, fmt.Errorf("decode approved user: %w", err)
	}
	if u.ID != 0 {
		u.LoanUser = nil
		cur.User = &u
	}
	var rel struct {
		LoanUser *models.LoanUser `json:"loan_user"`
	}
	if err := json.Unmarshal(server, &rel); err == nil && rel.LoanUser != nil && rel.LoanUser.ID == cur.ID {
		cur.IsApproved = rel.LoanUser.IsApproved
		cur.LoanCap = rel.LoanUser.LoanCap
		cur.LoanBalance = rel.LoanUser.LoanBalance
		cur.ApprovedDate = rel.LoanUser.ApprovedDate
	}
	return cur, nil
}

func approveAction(r *http.Request, b *boards.Board, id int64) mutation.Action[models.LoanUser] {
	in := approveInputFrom(r)
	return mutation.Action[models.LoanUser]{
		Section:  SectionApprove,
		Success:  "Loan user approved.",
		Failure:  "Failed to approve loan user.",
		Validate: func() inputval.Result { return inputval.Validate(in) },
		Submit: func(ctx context.Context) (json.RawMessage, error) {
			conn, err := b.Conn()
			if err != nil {
				return nil, err
			}
			return conn.ApproveLoanUser(ctx, id, in.LoanCap)
		},
		Local: func(cur models.LoanUser) models.LoanUser {
			cur.IsApproved = true
			cur.LoanCap = models.Number{Raw: in.LoanCap, Valid: true}
			return cur
		},
		Apply: applyApproval,
	}
}

// HandleApprove approves a loan user with the granted cap.
// POST /loan-users/approve with id, loan_cap
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.List.Action(SectionApprove, approveAction)(w, r)
}
