package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dalemusser/loanadmin/internal/domain/models"
)

// Filter keys with special handling on the products endpoint.
const (
	FilterCategory = "category_id" // selects /categories/{id}/products
	FilterTrashed  = "trashed"     // "only" or "with"
)

// ListQuery is the pagination and filter state of one list request.
// Filter keys are sent verbatim as query parameters; blank values are
// omitted.
type ListQuery struct {
	Page    int
	PerPage int
	Filters map[string]string
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	for k, val := range q.Filters {
		if strings.TrimSpace(val) == "" {
			continue
		}
		v.Set(k, val)
	}
	return v
}

// list fetches one page of T from path.
func list[T any](ctx context.Context, c *Conn, op, path string, q url.Values) (models.Page[T], error) {
	var page models.Page[T]

	env, err := c.c.do(ctx, c.http, request{op: op, method: http.MethodGet, path: path, query: q})
	if err != nil {
		return page, err
	}
	if err := decodeData(op, env, &page.Items); err != nil {
		return models.Page[T]{}, err
	}
	if len(env.Meta) > 0 && string(env.Meta) != "null" {
		var meta models.PageMeta
		if err := json.Unmarshal(env.Meta, &meta); err != nil {
			return models.Page[T]{}, &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("decode meta: %w", err)}
		}
		page.Meta = &meta
	}
	return page, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Loans                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// ListLoans calls GET /api/v1/loans.
func (c *Conn) ListLoans(ctx context.Context, q ListQuery) (models.Page[models.Loan], error) {
	return list[models.Loan](ctx, c, "loans.list", "/api/v1/loans", q.values())
}

// LoanApproval is the approval form for one loan. Values are already
// validated; they are sent as typed by the operator.
type LoanApproval struct {
	LoanAmount  string
	TermMonths  string
	Description string
	LoanCap     string
}

// ApproveLoan calls POST /api/v1/loans/{id}/approve-loan (PUT override) and
// returns the updated loan JSON.
func (c *Conn) ApproveLoan(ctx context.Context, id int64, a LoanApproval) (json.RawMessage, error) {
	form := url.Values{
		"loan_amount": {a.LoanAmount},
		"term_months": {a.TermMonths},
		"loan_cap":    {a.LoanCap},
	}
	if a.Description != "" {
		form.Set("description", a.Description)
	}
	env, err := c.c.do(ctx, c.http, request{
		op:     "loans.approve",
		method: http.MethodPost,
		path:   fmt.Sprintf("/api/v1/loans/%d/approve-loan", id),
		form:   methodOverride(form, http.MethodPut),
	})
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ApplyForLoan calls POST /api/v1/loans to open a loan for userID.
func (c *Conn) ApplyForLoan(ctx context.Context, userID int64) (json.RawMessage, error) {
	env, err := c.c.do(ctx, c.http, request{
		op:     "loans.apply",
		method: http.MethodPost,
		path:   "/api/v1/loans",
		form:   url.Values{"user_id": {strconv.FormatInt(userID, 10)}},
	})
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 {
		return nil, &Error{Kind: KindTransport, Op: "loans.apply", Message: "response has no loan"}
	}
	return env.Data, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Loan users                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// ListLoanUsers calls GET /api/v1/loan-users.
func (c *Conn) ListLoanUsers(ctx context.Context, q ListQuery) (models.Page[models.LoanUser], error) {
	return list[models.LoanUser](ctx, c, "loan_users.list", "/api/v1/loan-users", q.values())
}

// ApproveLoanUser calls POST /api/v1/loan-users/{id}/approve with the
// granted loan cap.
func (c *Conn) ApproveLoanUser(ctx context.Context, id int64, loanCap string) (json.RawMessage, error) {
	env, err := c.c.do(ctx, c.http, request{
		op:     "loan_users.approve",
		method: http.MethodPost,
		path:   fmt.Sprintf("/api/v1/loan-users/%d/approve", id),
		form:   url.Values{"loan_cap": {loanCap}},
	})
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Users                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// ListUsersForLoan calls GET /api/v1/users/index-users-for-loan.
func (c *Conn) ListUsersForLoan(ctx context.Context, q ListQuery) (models.Page[models.User], error) {
	return list[models.User](ctx, c, "users.list", "/api/v1/users/index-users-for-loan", q.values())
}

/*─────────────────────────────────────────────────────────────────────────────*
| Catalog                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// ListCategories calls GET /api/v1/categories, consulting the category
// cache first when one is configured.
func (c *Conn) ListCategories(ctx context.Context) ([]models.Category, error) {
	if cc := c.c.categories; cc != nil {
		if cats, ok := cc.Get(ctx); ok {
			return cats, nil
		}
	}

	env, err := c.c.do(ctx, c.http, request{op: "categories.list", method: http.MethodGet, path: "/api/v1/categories"})
	if err != nil {
		return nil, err
	}
	var cats []models.Category
	if err := decodeData("categories.list", env, &cats); err != nil {
		return nil, err
	}
	if cc := c.c.categories; cc != nil {
		cc.Put(ctx, cats)
	}
	return cats, nil
}

// ListProducts lists products, scoped to a category when the
// FilterCategory filter is set. The products endpoint takes its page size
// as "paginate" and trashed visibility as only_trashed / with_trashed.
func (c *Conn) ListProducts(ctx context.Context, q ListQuery) (models.Page[models.Product], error) {
	filters := make(map[string]string, len(q.Filters))
	for k, v := range q.Filters {
		filters[k] = v
	}

	path := "/api/v1/products"
	if cat := strings.TrimSpace(filters[FilterCategory]); cat != "" {
		path = "/api/v1/categories/" + url.PathEscape(cat) + "/products"
	}
	trashed := filters[FilterTrashed]
	delete(filters, FilterCategory)
	delete(filters, FilterTrashed)

	v := ListQuery{Page: q.Page, Filters: filters}.values()
	if q.PerPage > 0 {
		v.Set("paginate", strconv.Itoa(q.PerPage))
	}
	switch trashed {
	case "only":
		v.Set("only_trashed", "1")
	case "with":
		v.Set("with_trashed", "1")
	}
	return list[models.Product](ctx, c, "products.list", path, v)
}

// UpdateLoanEligibility calls POST /api/v1/products/{id}/update-loan-eligibility
// (PUT override). The backend answers 200 with or without a body.
func (c *Conn) UpdateLoanEligibility(ctx context.Context, id int64, eligible bool) (json.RawMessage, error) {
	flag := "0"
	if eligible {
		flag = "1"
	}
	env, err := c.c.do(ctx, c.http, request{
		op:     "products.loan_eligibility",
		method: http.MethodPost,
		path:   fmt.Sprintf("/api/v1/products/%d/update-loan-eligibility", id),
		form:   methodOverride(url.Values{"is_loan_eligible": {flag}}, http.MethodPut),
	})
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}
