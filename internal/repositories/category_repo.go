package repositories

import "tokoadmin/internal/models"

// CategoryFilter narrows and pages a category listing.
type CategoryFilter struct {
	Search string // case-insensitive substring on name
	Page   int
	Limit  int
}

// CategoryRepository defines the interface for category data access.
// Find returns the page of matches ordered by name ascending, plus the
// total match count before paging.
type CategoryRepository interface {
	Find(filter CategoryFilter) ([]models.Category, int64, error)
	GetByID(id string) (*models.Category, error)
	GetByName(name string) (*models.Category, error)
	Create(category *models.Category) error
	Update(category *models.Category) error
	Delete(id string) error
}
