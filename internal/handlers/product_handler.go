package handlers

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"

	"tokoadmin/internal/models"
	"tokoadmin/internal/repositories"
	"tokoadmin/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for products. Create and update
// accept two body shapes: multipart/form-data (file parts under "images"
// plus an "existingImages" JSON-array field carrying the keep list) and
// plain JSON (an "images" string array).
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service: service,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleList)
	productRoutes.Get("/:id", h.HandleGetByID)
	productRoutes.Post("/", h.HandleCreate)
	productRoutes.Put("/:id", h.HandleUpdate)
	productRoutes.Delete("/:id", h.HandleDelete)
}

// HandleList lists products with search, category filter, sorting and
// pagination.
func (h *ProductHandler) HandleList(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", services.DefaultProductPageSize)
	filter := repositories.ProductFilter{
		Search:    c.Query("search"),
		Category:  c.Query("category"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Page:      page,
		Limit:     limit,
	}

	products, total, err := h.service.List(filter)
	if err != nil {
		log.Printf("Error listing products: %v", err)
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"products":   products,
		"pagination": models.NewPagination(page, limit, total),
	})
}

// HandleGetByID returns a single product.
func (h *ProductHandler) HandleGetByID(c *fiber.Ctx) error {
	product, err := h.service.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// HandleCreate creates a new product from either body shape.
func (h *ProductHandler) HandleCreate(c *fiber.Ctx) error {
	input, images, err := h.parseProductRequest(c, false)
	if err != nil {
		return respondError(c, err)
	}

	product, warnings, err := h.service.Create(input, images)
	if err != nil {
		log.Printf("Error creating product: %v", err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(productResponse(product, warnings))
}

// HandleUpdate partially updates an existing product.
func (h *ProductHandler) HandleUpdate(c *fiber.Ctx) error {
	input, images, err := h.parseProductRequest(c, true)
	if err != nil {
		return respondError(c, err)
	}

	product, warnings, err := h.service.Update(c.Params("id"), input, images)
	if err != nil {
		log.Printf("Error updating product %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}

	return c.JSON(productResponse(product, warnings))
}

// HandleDelete removes a product; its media references are deleted best
// effort inside the service.
func (h *ProductHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Params("id")); err != nil {
		log.Printf("Error deleting product %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Product deleted",
	})
}

// productJSONBody is the JSON body shape. Pointers distinguish absent fields
// from zero values; Images, when present, is the legacy flat replace list on
// update and the pre-existing reference list on create.
type productJSONBody struct {
	Name     *string   `json:"name"`
	Price    *float64  `json:"price"`
	Category *string   `json:"category"`
	Stock    *int      `json:"stock"`
	Images   *[]string `json:"images"`
}

// parseProductRequest collapses both body shapes into the service inputs.
// Malformed input surfaces as a ValidationError for respondError to map.
func (h *ProductHandler) parseProductRequest(c *fiber.Ctx, isUpdate bool) (services.ProductInput, services.ImageInput, error) {
	var input services.ProductInput
	var images services.ImageInput

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			log.Printf("Error parsing multipart form: %v", err)
			return input, images, &services.ValidationError{Fields: map[string]string{
				"body": "invalid multipart form",
			}}
		}

		fields := make(map[string]string)
		if v, ok := formValue(form.Value, "name"); ok {
			input.Name = &v
		}
		if v, ok := formValue(form.Value, "category"); ok {
			input.Category = &v
		}
		if v, ok := formValue(form.Value, "price"); ok {
			price, err := strconv.ParseFloat(v, 64)
			if err != nil {
				fields["price"] = "price must be a number"
			} else {
				input.Price = &price
			}
		}
		if v, ok := formValue(form.Value, "stock"); ok {
			stock, err := strconv.Atoi(v)
			if err != nil {
				fields["stock"] = "stock must be an integer"
			} else {
				input.Stock = &stock
			}
		}
		if v, ok := formValue(form.Value, "existingImages"); ok {
			var keep []string
			if err := json.Unmarshal([]byte(v), &keep); err != nil {
				fields["existingImages"] = "existingImages must be a JSON string array"
			} else {
				images.Keep = keep
				images.KeepSupplied = true
			}
		}
		if len(fields) > 0 {
			return input, images, &services.ValidationError{Fields: fields}
		}
		images.Files = form.File["images"]
		return input, images, nil
	}

	var body productJSONBody
	if err := c.BodyParser(&body); err != nil {
		log.Printf("Error parsing product request body: %v", err)
		return input, images, &services.ValidationError{Fields: map[string]string{
			"body": "invalid request body",
		}}
	}
	input.Name = body.Name
	input.Price = body.Price
	input.Category = body.Category
	input.Stock = body.Stock
	if body.Images != nil {
		if isUpdate {
			images.Replace = *body.Images
			images.ReplaceSupplied = true
		} else {
			images.Keep = *body.Images
			images.KeepSupplied = true
		}
	}
	return input, images, nil
}

// formValue reads a single multipart field, reporting presence.
func formValue(values map[string][]string, key string) (string, bool) {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// productResponse attaches the upload warnings, when any, to a product body.
func productResponse(product *models.Product, warnings []services.UploadWarning) fiber.Map {
	resp := fiber.Map{
		"product": product,
	}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	return resp
}
