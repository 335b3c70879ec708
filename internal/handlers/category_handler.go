package handlers

import (
	"log"

	"tokoadmin/internal/models"
	"tokoadmin/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CategoryHandler handles HTTP requests for categories.
type CategoryHandler struct {
	service *services.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(service *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		service: service,
	}
}

// RegisterRoutes registers the category routes with the Fiber app.
func (h *CategoryHandler) RegisterRoutes(router fiber.Router) {
	categoryRoutes := router.Group("/categories")
	categoryRoutes.Get("/", h.HandleList)
	categoryRoutes.Post("/", h.HandleCreate)
	categoryRoutes.Put("/:id", h.HandleUpdate)
	categoryRoutes.Delete("/:id", h.HandleDelete)
}

// HandleList lists categories with optional search and pagination.
func (h *CategoryHandler) HandleList(c *fiber.Ctx) error {
	search := c.Query("search")
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", services.DefaultCategoryPageSize)

	categories, total, err := h.service.List(search, page, limit)
	if err != nil {
		log.Printf("Error listing categories: %v", err)
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"categories": categories,
		"pagination": models.NewPagination(page, limit, total),
	})
}

// categoryRequest is the body for create and update.
type categoryRequest struct {
	Name string `json:"name"`
}

// HandleCreate creates a new category.
func (h *CategoryHandler) HandleCreate(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing category request body: %v", err)
		return badRequest(c, "body", "invalid request body")
	}

	category, err := h.service.Create(req.Name)
	if err != nil {
		log.Printf("Error creating category %q: %v", req.Name, err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(category)
}

// HandleUpdate renames an existing category.
func (h *CategoryHandler) HandleUpdate(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing category request body: %v", err)
		return badRequest(c, "body", "invalid request body")
	}

	category, err := h.service.Update(c.Params("id"), req.Name)
	if err != nil {
		log.Printf("Error updating category %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}

	return c.JSON(category)
}

// HandleDelete removes a category unless products still reference it.
func (h *CategoryHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Params("id")); err != nil {
		log.Printf("Error deleting category %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Category deleted",
	})
}
