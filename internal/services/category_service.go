package services

import (
	"fmt"
	"strings"

	"tokoadmin/internal/models"
	"tokoadmin/internal/repositories"

	"github.com/go-playground/validator/v10"
)

// DefaultCategoryPageSize is the listing page size when the caller does not
// supply one.
const DefaultCategoryPageSize = 10

// CategoryService handles business logic for categories, including the
// uniqueness and in-use guards.
type CategoryService struct {
	categoryRepo repositories.CategoryRepository
	productRepo  repositories.ProductRepository
	validate     *validator.Validate
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(categoryRepo repositories.CategoryRepository, productRepo repositories.ProductRepository) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		validate:     validator.New(),
	}
}

// List returns a page of categories matching the optional search term,
// ordered by name ascending, plus the total match count.
func (s *CategoryService) List(search string, page, limit int) ([]models.Category, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultCategoryPageSize
	}
	return s.categoryRepo.Find(repositories.CategoryFilter{
		Search: search,
		Page:   page,
		Limit:  limit,
	})
}

// Create validates and stores a new category.
func (s *CategoryService) Create(name string) (*models.Category, error) {
	category := &models.Category{Name: strings.TrimSpace(name)}
	if err := s.validateName(category.Name); err != nil {
		return nil, err
	}
	if existing, err := s.categoryRepo.GetByName(category.Name); err == nil && existing != nil {
		return nil, ErrDuplicateName
	}
	if err := s.categoryRepo.Create(category); err != nil {
		// The unique index backstops the check above under concurrency.
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// Update renames an existing category. Renames do not cascade to products;
// the stored category string on a product keeps the old name.
func (s *CategoryService) Update(id, name string) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	trimmed := strings.TrimSpace(name)
	if err := s.validateName(trimmed); err != nil {
		return nil, err
	}
	if existing, err := s.categoryRepo.GetByName(trimmed); err == nil && existing != nil && existing.ID != id {
		return nil, ErrDuplicateName
	}

	category.Name = trimmed
	if err := s.categoryRepo.Update(category); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

// Delete removes a category unless any product still references its name.
func (s *CategoryService) Delete(id string) error {
	category, err := s.categoryRepo.GetByID(id)
	if err != nil {
		return ErrNotFound
	}

	count, err := s.productRepo.CountByCategory(category.Name)
	if err != nil {
		return fmt.Errorf("failed to check category usage: %w", err)
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	if err := s.categoryRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

func (s *CategoryService) validateName(name string) error {
	err := s.validate.Var(name, "required,min=2,max=100")
	if err == nil {
		return nil
	}
	return &ValidationError{Fields: map[string]string{
		"name": "name must be between 2 and 100 characters",
	}}
}

// isUniqueViolation sniffs driver-specific unique constraint failures.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
