package apiclient

import (
	"context"

	"github.com/dalemusser/loanadmin/internal/domain/models"
)

// CategoryCache stores the category list between requests. Implementations
// must treat failures as misses.
type CategoryCache interface {
	Get(ctx context.Context) ([]models.Category, bool)
	Put(ctx context.Context, cats []models.Category)
}
