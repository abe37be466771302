// internal/app/features/products/eligibility.go
package products

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/loanadmin/internal/app/system/boards"
	"github.com/dalemusser/loanadmin/internal/app/system/mutation"
	"github.com/dalemusser/loanadmin/internal/domain/models"
)

// ActionEligibility is the staged-input key of the toggle.
const ActionEligibility = "eligibility"

// eligibilityAction flips a product's loan eligibility to the opposite of
// the listed row's flag.
func eligibilityAction(r *http.Request, b *boards.Board, id int64) mutation.Action[models.Product] {
	cur, _ := b.Products.Find(id)
	want := !bool(cur.IsLoanEligible)

	success := "Product is no longer loan eligible."
	if want {
		success = "Product is now loan eligible."
	}
	return mutation.Action[models.Product]{
		Success: success,
		Failure: "Failed to update loan eligibility.",
		Submit: func(ctx context.Context) (json.RawMessage, error) {
			conn, err := b.Conn()
			if err != nil {
				return nil, err
			}
			return conn.UpdateLoanEligibility(ctx, id, want)
		},
		Local: func(p models.Product) models.Product {
			p.IsLoanEligible = models.Flag(want)
			return p
		},
	}
}

// HandleEligibility toggles loan eligibility.
// POST /products/eligibility with id
func (h *Handler) HandleEligibility(w http.ResponseWriter, r *http.Request) {
	h.List.Action(ActionEligibility, eligibilityAction)(w, r)
}
