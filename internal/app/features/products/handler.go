// internal/app/features/products/handler.go
package products

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/loanadmin/internal/app/features/errors"
	"github.com/dalemusser/loanadmin/internal/app/features/shared/listpage"
	"github.com/dalemusser/loanadmin/internal/app/system/apiclient"
	"github.com/dalemusser/loanadmin/internal/app/system/boards"
	"github.com/dalemusser/loanadmin/internal/app/system/listctl"
	"github.com/dalemusser/loanadmin/internal/app/system/metrics"
	"github.com/dalemusser/loanadmin/internal/app/system/navstate"
	"github.com/dalemusser/loanadmin/internal/app/system/timeouts"
	"github.com/dalemusser/loanadmin/internal/domain/models"
	"go.uber.org/zap"
)

// Base is where the page's endpoints are mounted.
const Base = "/products"

// Handler serves the products page.
type Handler struct {
	List *listpage.Handler[models.Product]

	// RateLimit guards the eligibility toggle. Optional.
	RateLimit func(http.Handler) http.Handler

	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

// NewHandler constructs the products Handler.
func NewHandler(errLog *uierrors.ErrorLogger, m *metrics.Metrics, rateLimit func(http.Handler) http.Handler, logger *zap.Logger) *Handler {
	h := &Handler{
		RateLimit: rateLimit,
		ErrLog:    errLog,
		Log:       logger,
	}
	h.List = &listpage.Handler[models.Product]{
		Key:           navstate.Products,
		Base:          Base,
		Title:         "Products",
		PageTemplate:  "products_page",
		TableTemplate: "products_table",
		List:          func(b *boards.Board) *listctl.Controller[models.Product] { return b.Products },
		Extra:         h.pickerData,
		ErrLog:        errLog,
		Metrics:       m,
		Log:           logger,
	}
	return h
}

// categoryPicker is the category strip above the product list.
type categoryPicker struct {
	Categories []models.Category
	Selected   string
	Error      string
}

func (h *Handler) pickerData(r *http.Request, b *boards.Board) any {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Lookup())
	defer cancel()

	p := categoryPicker{Selected: b.Products.Snapshot().Filters.Get(apiclient.FilterCategory)}
	cats, err := b.Categories(ctx)
	if err != nil {
		h.Log.Warn("load categories failed", zap.Error(err))
		p.Error = "Failed to load categories."
		return p
	}
	p.Categories = cats
	return p
}
