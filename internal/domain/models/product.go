// internal/domain/models/product.go
package models

// Category groups products in the catalog.
type Category struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	NameAm        string  `json:"name_am"`
	IsActive      Flag    `json:"is_active"`
	ProductsCount int     `json:"products_count"`
	ImagePath     *string `json:"image_path"`
	CreatedAt     string  `json:"created_at"`
	DeletedAt     *string `json:"deleted_at"`
}

// Product is a catalog item. IsLoanEligible is the only field this
// dashboard changes.
type Product struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	NameAm         *string `json:"name_am"`
	Brand          *string `json:"brand"`
	SupplierName   *string `json:"supplier_name"`
	CategoryID     *int64  `json:"category_id"`
	Price          Number  `json:"price"`
	Quantity       *Number `json:"quantity"`
	IsLoanEligible Flag    `json:"is_loan_eligible"`
	IsActive       Flag    `json:"is_active"`
	ImagePath      *string `json:"image_path"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	DeletedAt      *string `json:"deleted_at"`
}

func (p Product) EntityID() int64 { return p.ID }

// Trashed reports whether the product is soft-deleted.
func (p Product) Trashed() bool { return p.DeletedAt != nil && *p.DeletedAt != "" }
