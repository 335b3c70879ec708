package repositories

import "tokoadmin/internal/models"

// ProductFilter narrows, sorts and pages a product listing. Category is an
// exact match; the caller resolves the "all" sentinel to an empty string
// before it gets here. SortBy outside the supported set falls back to name
// ascending.
type ProductFilter struct {
	Search    string
	Category  string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	Find(filter ProductFilter) ([]models.Product, int64, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
	CountByCategory(name string) (int64, error)
}
