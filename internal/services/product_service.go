package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"strings"

	"tokoadmin/internal/models"
	"tokoadmin/internal/repositories"

	"github.com/go-playground/validator/v10"
)

// DefaultProductPageSize is the listing page size when the caller does not
// supply one. It intentionally differs from the category default.
const DefaultProductPageSize = 5

// CategoryAllSentinel is the category filter value meaning "no filter".
const CategoryAllSentinel = "all"

// ProductInput carries the scalar fields of a create or update request.
// Nil fields were absent from the request; on update they are left unchanged.
type ProductInput struct {
	Name     *string
	Price    *float64
	Category *string
	Stock    *int
}

type productCreateRules struct {
	Name     string  `validate:"required,min=2,max=200"`
	Price    float64 `validate:"gt=0"`
	Category string  `validate:"required"`
	Stock    int     `validate:"gte=0"`
}

type productPatchRules struct {
	Name     *string  `validate:"omitempty,min=2,max=200"`
	Price    *float64 `validate:"omitempty,gt=0"`
	Category *string  `validate:"omitempty,min=1"`
	Stock    *int     `validate:"omitempty,gte=0"`
}

// ProductService implements the product query/update engine: filtered,
// sorted, paginated listings, referential checks against categories, and
// reconciliation of the product image list against the three request shapes.
type ProductService struct {
	productRepo  repositories.ProductRepository
	categoryRepo repositories.CategoryRepository
	media        MediaUploader
	events       EventPublisher
	validate     *validator.Validate
}

// NewProductService creates a new ProductService. events may be nil, which
// disables lifecycle event publishing.
func NewProductService(productRepo repositories.ProductRepository, categoryRepo repositories.CategoryRepository, media MediaUploader, events EventPublisher) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		media:        media,
		events:       events,
		validate:     validator.New(),
	}
}

// List returns a page of products plus the total match count. The "all"
// category sentinel disables the category filter; unknown sort keys fall
// back to name ascending in the repository.
func (s *ProductService) List(filter repositories.ProductFilter) ([]models.Product, int64, error) {
	if filter.Category == CategoryAllSentinel {
		filter.Category = ""
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultProductPageSize
	}
	return s.productRepo.Find(filter)
}

// GetByID retrieves a single product.
func (s *ProductService) GetByID(id string) (*models.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return product, nil
}

// Create validates the fields, verifies the category exists (before any
// upload, so a doomed request wastes none), uploads the new files, merges
// recognized pre-existing references, and persists the product.
func (s *ProductService) Create(input ProductInput, images ImageInput) (*models.Product, []UploadWarning, error) {
	rules := productCreateRules{}
	if input.Name != nil {
		rules.Name = strings.TrimSpace(*input.Name)
	}
	if input.Price != nil {
		rules.Price = *input.Price
	}
	if input.Category != nil {
		rules.Category = strings.TrimSpace(*input.Category)
	}
	if input.Stock != nil {
		rules.Stock = *input.Stock
	}
	if err := s.validate.Struct(rules); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return nil, nil, newValidationError(verrs)
		}
		return nil, nil, fmt.Errorf("failed to validate product: %w", err)
	}

	if _, err := s.categoryRepo.GetByName(rules.Category); err != nil {
		return nil, nil, ErrInvalidCategory
	}

	// Caller-supplied references keep their submitted order; fresh uploads
	// are appended after them.
	candidate := s.ownedRefs(images.Keep)
	uploaded, warnings := s.uploadFiles(images.Files)
	candidate = append(candidate, uploaded...)
	if len(candidate) > models.MaxProductImages {
		return nil, warnings, &ValidationError{Fields: map[string]string{
			"images": fmt.Sprintf("a product may carry at most %d images", models.MaxProductImages),
		}}
	}

	product := &models.Product{
		Name:     rules.Name,
		Price:    rules.Price,
		Category: rules.Category,
		Stock:    rules.Stock,
		Images:   models.ImageList(candidate),
	}
	if err := s.productRepo.Create(product); err != nil {
		return nil, warnings, fmt.Errorf("failed to create product: %w", err)
	}

	s.publishEvent("product.created", product)
	return product, warnings, nil
}

// Update applies a partial update: only supplied fields are validated and
// changed, the category is re-verified when supplied, and the image list is
// reconciled per reconcileImages.
func (s *ProductService) Update(id string, input ProductInput, images ImageInput) (*models.Product, []UploadWarning, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, nil, ErrNotFound
	}

	rules := productPatchRules(input)
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		rules.Name = &trimmed
	}
	if input.Category != nil {
		trimmed := strings.TrimSpace(*input.Category)
		rules.Category = &trimmed
	}
	if err := s.validate.Struct(rules); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return nil, nil, newValidationError(verrs)
		}
		return nil, nil, fmt.Errorf("failed to validate product: %w", err)
	}

	if rules.Category != nil {
		if _, err := s.categoryRepo.GetByName(*rules.Category); err != nil {
			return nil, nil, ErrInvalidCategory
		}
		product.Category = *rules.Category
	}
	if rules.Name != nil {
		product.Name = *rules.Name
	}
	if rules.Price != nil {
		product.Price = *rules.Price
	}
	if rules.Stock != nil {
		product.Stock = *rules.Stock
	}

	reconciled, warnings, apply := s.reconcileImages(product.Images, images)
	if apply {
		if len(reconciled) > models.MaxProductImages {
			return nil, warnings, &ValidationError{Fields: map[string]string{
				"images": fmt.Sprintf("a product may carry at most %d images", models.MaxProductImages),
			}}
		}
		product.Images = models.ImageList(reconciled)
	}

	if err := s.productRepo.Update(product); err != nil {
		return nil, warnings, fmt.Errorf("failed to update product: %w", err)
	}

	s.publishEvent("product.updated", product)
	return product, warnings, nil
}

// Delete removes a product and best-effort deletes each of its media
// references. A media host outage never blocks removing the record.
func (s *ProductService) Delete(id string) error {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return ErrNotFound
	}

	for _, ref := range product.Images {
		if err := s.media.Delete(ref); err != nil {
			log.Printf("Failed to delete media %s for product %s: %v", ref, id, err)
		}
	}

	if err := s.productRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.publishEvent("product.deleted", product)
	return nil
}

// reconcileImages collapses the image input shapes into one authoritative
// list. The returned bool reports whether the list should replace the stored
// one; false means "no image-related input at all, carry the stored list
// forward".
func (s *ProductService) reconcileImages(existing models.ImageList, in ImageInput) ([]string, []UploadWarning, bool) {
	// Legacy flat-URL path, only reachable without file uploads: the list
	// replaces everything. Foreign absolute URLs are re-hosted first.
	if in.ReplaceSupplied && len(in.Files) == 0 {
		var out []string
		var warnings []UploadWarning
		for _, src := range in.Replace {
			if s.media.Owns(src) {
				out = append(out, src)
				continue
			}
			ref, err := s.media.UploadRemote(src)
			if err != nil {
				log.Printf("Failed to re-host image %s: %v", src, err)
				warnings = append(warnings, UploadWarning{Name: src, Reason: err.Error()})
				continue
			}
			out = append(out, ref)
		}
		return out, warnings, true
	}

	candidate, warnings := s.uploadFiles(in.Files)
	candidate = append(candidate, s.ownedRefs(in.Keep)...)

	// Nothing image-related was submitted: keep the stored list untouched so
	// an update of unrelated fields never nulls out the images.
	apply := len(in.Files) > 0 || in.KeepSupplied || len(candidate) > 0
	if !apply {
		return existing, warnings, false
	}
	return candidate, warnings, true
}

// uploadFiles uploads each file part, silently skipping non-image mime
// types. A failed upload is logged and recorded as a warning; it never
// aborts the rest.
func (s *ProductService) uploadFiles(files []*multipart.FileHeader) ([]string, []UploadWarning) {
	var refs []string
	var warnings []UploadWarning
	for _, fh := range files {
		contentType := fh.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			continue
		}
		data, err := readFilePart(fh)
		if err != nil {
			log.Printf("Failed to read upload %s: %v", fh.Filename, err)
			warnings = append(warnings, UploadWarning{Name: fh.Filename, Reason: err.Error()})
			continue
		}
		ref, err := s.media.UploadFile(fh.Filename, contentType, data)
		if err != nil {
			log.Printf("Failed to upload %s: %v", fh.Filename, err)
			warnings = append(warnings, UploadWarning{Name: fh.Filename, Reason: err.Error()})
			continue
		}
		refs = append(refs, ref)
	}
	return refs, warnings
}

// ownedRefs filters caller-supplied references down to those belonging to
// the media host, preserving submission order.
func (s *ProductService) ownedRefs(refs []string) []string {
	var owned []string
	for _, ref := range refs {
		if s.media.Owns(ref) {
			owned = append(owned, ref)
		}
	}
	return owned
}

func readFilePart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// publishEvent emits a catalog lifecycle event, best effort.
func (s *ProductService) publishEvent(event string, product *models.Product) {
	if s.events == nil {
		return
	}
	body, err := json.Marshal(map[string]interface{}{
		"event":    event,
		"id":       product.ID,
		"name":     product.Name,
		"category": product.Category,
	})
	if err != nil {
		log.Printf("Failed to marshal %s event for product %s: %v", event, product.ID, err)
		return
	}
	if err := s.events.Publish(event, body); err != nil {
		log.Printf("Warning: failed to publish %s event for product %s: %v", event, product.ID, err)
	}
}
