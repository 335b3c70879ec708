package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"tokoadmin/internal/handlers"
	"tokoadmin/internal/middleware"
	"tokoadmin/internal/models"
	"tokoadmin/internal/repositories"
	"tokoadmin/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const mediaBase = "https://media.example.com"

// stubUploader stands in for the media host during integration tests.
type stubUploader struct {
	uploadCalls int
}

func (s *stubUploader) UploadFile(filename, contentType string, data []byte) (string, error) {
	s.uploadCalls++
	return mediaBase + "/images/" + filename, nil
}

func (s *stubUploader) UploadRemote(srcURL string) (string, error) {
	s.uploadCalls++
	return mediaBase + "/images/rehosted-" + srcURL[strings.LastIndex(srcURL, "/")+1:], nil
}

func (s *stubUploader) Delete(refURL string) error { return nil }

func (s *stubUploader) Owns(refURL string) bool {
	return strings.HasPrefix(refURL, mediaBase+"/")
}

type testEnv struct {
	app          *fiber.App
	token        string
	productRepo  repositories.ProductRepository
	categoryRepo repositories.CategoryRepository
	uploader     *stubUploader
}

// setupEnv builds the full app against a fresh in-memory SQLite database,
// seeds the admin account, and logs in.
func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.User{}, &models.Category{}, &models.Product{}))

	userRepo := repositories.NewGORMUserRepository(db)
	categoryRepo := repositories.NewGORMCategoryRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	assert.NoError(t, err)
	assert.NoError(t, userRepo.Create(&models.User{
		Username: "admin",
		Email:    "admin@example.com",
		Name:     "Administrator",
		Password: string(hash),
	}))

	uploader := &stubUploader{}
	authService := services.NewAuthService(userRepo, jwtSecret, 0)
	categoryService := services.NewCategoryService(categoryRepo, productRepo)
	productService := services.NewProductService(productRepo, categoryRepo, uploader, nil)

	app := fiber.New()
	api := app.Group("/api")

	authHandler := handlers.NewAuthHandler(authService)
	authHandler.RegisterPublicRoutes(api)

	protected := api.Group("", middleware.AuthRequired(authService))
	authHandler.RegisterProtectedRoutes(protected)
	handlers.NewCategoryHandler(categoryService).RegisterRoutes(protected)
	handlers.NewProductHandler(productService).RegisterRoutes(protected)

	env := &testEnv{
		app:          app,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		uploader:     uploader,
	}
	env.token = login(t, app, "admin", "password123")
	return env
}

// TestMain suppresses request logging for cleaner output.
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func login(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.Token)
	return out.Token
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+e.token)
	resp, err := e.app.Test(req, -1)
	assert.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestLoginAndCurrentUser(t *testing.T) {
	env := setupEnv(t)

	// Invalid credentials
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var errBody struct {
		Code string `json:"code"`
	}
	decode(t, resp, &errBody)
	assert.Equal(t, handlers.CodeInvalidCredentials, errBody.Code)

	// Missing fields
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte(`{"username":"admin"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err = env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Current user
	resp = env.do(t, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var me struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	decode(t, resp, &me)
	assert.Equal(t, "admin", me.Username)
	assert.Equal(t, "admin@example.com", me.Email)

	// Logout has no server-side effect; the token keeps working afterwards
	resp = env.do(t, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := setupEnv(t)

	for _, header := range []string{"", "Bearer tampered.token.value", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := env.app.Test(req, -1)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var errBody struct {
			Code string `json:"code"`
		}
		decode(t, resp, &errBody)
		assert.Equal(t, handlers.CodeUnauthorized, errBody.Code)
	}
}

func TestCategoryCRUD(t *testing.T) {
	env := setupEnv(t)

	// Create
	resp := env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Books"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Category
	decode(t, resp, &created)
	assert.Equal(t, "Books", created.Name)
	assert.NotEmpty(t, created.ID)

	// Duplicate
	resp = env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Books"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var dup struct {
		Code string `json:"code"`
	}
	decode(t, resp, &dup)
	assert.Equal(t, handlers.CodeDuplicateCategory, dup.Code)

	// Too short after trimming
	resp = env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": " B "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Search listing
	resp = env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Games"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/categories?search=boo", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Categories []models.Category `json:"categories"`
		Pagination models.Pagination `json:"pagination"`
	}
	decode(t, resp, &listing)
	assert.Len(t, listing.Categories, 1)
	assert.Equal(t, "Books", listing.Categories[0].Name)
	assert.Equal(t, int64(1), listing.Pagination.TotalItems)

	// Update
	resp = env.do(t, http.MethodPut, "/api/categories/"+created.ID, map[string]string{"name": "Novels"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var renamed models.Category
	decode(t, resp, &renamed)
	assert.Equal(t, "Novels", renamed.Name)

	// Update a missing record
	resp = env.do(t, http.MethodPut, "/api/categories/"+uuid.New().String(), map[string]string{"name": "Whatever"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Delete
	resp = env.do(t, http.MethodDelete, "/api/categories/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, http.MethodDelete, "/api/categories/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type productEnvelope struct {
	Product  models.Product `json:"product"`
	Warnings []services.UploadWarning
}

func TestProductRoundTrip(t *testing.T) {
	env := setupEnv(t)

	// Category first
	resp := env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Electronics"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var category models.Category
	decode(t, resp, &category)

	// Product referencing it
	resp = env.do(t, http.MethodPost, "/api/products", map[string]interface{}{
		"name":     "Laptop",
		"price":    1200.5,
		"category": "Electronics",
		"stock":    10,
		"images":   []string{mediaBase + "/images/seed.png"},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created productEnvelope
	decode(t, resp, &created)
	assert.Equal(t, "Laptop", created.Product.Name)
	assert.Equal(t, 1200.5, created.Product.Price)
	assert.Equal(t, 10, created.Product.Stock)
	assert.Equal(t, models.ImageList{mediaBase + "/images/seed.png"}, created.Product.Images)

	// Category deletion is blocked while the product references it
	resp = env.do(t, http.MethodDelete, "/api/categories/"+category.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var inUse struct {
		Code string `json:"code"`
	}
	decode(t, resp, &inUse)
	assert.Equal(t, handlers.CodeCategoryInUse, inUse.Code)

	// Partial update touches only the supplied field and leaves images alone
	resp = env.do(t, http.MethodPut, "/api/products/"+created.Product.ID, map[string]interface{}{
		"price": 999.0,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated productEnvelope
	decode(t, resp, &updated)
	assert.Equal(t, 999.0, updated.Product.Price)
	assert.Equal(t, "Laptop", updated.Product.Name)
	assert.Equal(t, created.Product.Images, updated.Product.Images)

	// Delete the product, then the category succeeds
	resp = env.do(t, http.MethodDelete, "/api/products/"+created.Product.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, http.MethodDelete, "/api/categories/"+category.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// And the product is gone
	resp = env.do(t, http.MethodDelete, "/api/products/"+created.Product.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProductCreateValidation(t *testing.T) {
	env := setupEnv(t)

	resp := env.do(t, http.MethodPost, "/api/products", map[string]interface{}{
		"name":     "Laptop",
		"price":    0,
		"category": "Electronics",
		"stock":    -1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errBody struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	}
	decode(t, resp, &errBody)
	assert.Equal(t, handlers.CodeValidationError, errBody.Code)
	assert.Contains(t, errBody.Fields, "price")
	assert.Contains(t, errBody.Fields, "stock")

	// Unknown category
	resp = env.do(t, http.MethodPost, "/api/products", map[string]interface{}{
		"name":     "Laptop",
		"price":    10,
		"category": "Ghost",
		"stock":    1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var invalid struct {
		Code string `json:"code"`
	}
	decode(t, resp, &invalid)
	assert.Equal(t, handlers.CodeInvalidCategory, invalid.Code)
	assert.Zero(t, env.uploader.uploadCalls)
}

func TestProductListPagination(t *testing.T) {
	env := setupEnv(t)

	assert.NoError(t, env.categoryRepo.Create(&models.Category{Name: "Bulk"}))
	for i := 1; i <= 12; i++ {
		assert.NoError(t, env.productRepo.Create(&models.Product{
			Name:     fmt.Sprintf("Product %02d", i),
			Price:    float64(i),
			Category: "Bulk",
			Stock:    i,
		}))
	}

	resp := env.do(t, http.MethodGet, "/api/products?page=2&limit=5&sortBy=name&sortOrder=asc", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Products   []models.Product  `json:"products"`
		Pagination models.Pagination `json:"pagination"`
	}
	decode(t, resp, &listing)
	assert.Len(t, listing.Products, 5)
	assert.Equal(t, "Product 06", listing.Products[0].Name)
	assert.Equal(t, "Product 10", listing.Products[4].Name)
	assert.Equal(t, 2, listing.Pagination.CurrentPage)
	assert.Equal(t, 3, listing.Pagination.TotalPages)
	assert.Equal(t, int64(12), listing.Pagination.TotalItems)
	assert.Equal(t, 5, listing.Pagination.ItemsPerPage)

	// Category filter and price sort
	resp = env.do(t, http.MethodGet, "/api/products?category=Bulk&sortBy=price&sortOrder=desc&limit=1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &listing)
	assert.Len(t, listing.Products, 1)
	assert.Equal(t, "Product 12", listing.Products[0].Name)
}

// multipartBody builds a product form with file parts and the keep-list
// side-channel the frontend submits.
func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		assert.NoError(t, w.WriteField(key, value))
	}
	for name, content := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, name))
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		assert.NoError(t, err)
		_, err = part.Write(content)
		assert.NoError(t, err)
	}
	assert.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestProductMultipartCreateAndImageUpdate(t *testing.T) {
	env := setupEnv(t)

	resp := env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Cameras"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body, contentType := multipartBody(t, map[string]string{
		"name":           "Camera",
		"price":          "450",
		"category":       "Cameras",
		"stock":          "4",
		"existingImages": fmt.Sprintf(`["%s/images/old.png"]`, mediaBase),
	}, map[string][]byte{
		"front.png": []byte("png-bytes"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+env.token)
	httpResp, err := env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, httpResp.StatusCode)

	var created productEnvelope
	decode(t, httpResp, &created)
	assert.Equal(t, "Camera", created.Product.Name)
	assert.Equal(t, 450.0, created.Product.Price)
	assert.Equal(t, models.ImageList{
		mediaBase + "/images/old.png",
		mediaBase + "/images/front.png",
	}, created.Product.Images)

	// Multipart update keeping only one image drops the other
	body, contentType = multipartBody(t, map[string]string{
		"existingImages": fmt.Sprintf(`["%s/images/front.png"]`, mediaBase),
	}, nil)
	req = httptest.NewRequest(http.MethodPut, "/api/products/"+created.Product.ID, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+env.token)
	httpResp, err = env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, httpResp.StatusCode)

	var updated productEnvelope
	decode(t, httpResp, &updated)
	assert.Equal(t, models.ImageList{mediaBase + "/images/front.png"}, updated.Product.Images)
	assert.Equal(t, "Camera", updated.Product.Name)
}
