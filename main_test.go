package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tokoadmin/internal/services"

	"github.com/stretchr/testify/assert"
)

type noopUploader struct{}

func (noopUploader) UploadFile(filename, contentType string, data []byte) (string, error) {
	return "https://media.example.com/images/" + filename, nil
}
func (noopUploader) UploadRemote(srcURL string) (string, error) { return srcURL, nil }
func (noopUploader) Delete(refURL string) error                 { return nil }
func (noopUploader) Owns(refURL string) bool {
	return strings.HasPrefix(refURL, "https://media.example.com/")
}

func TestNewAppServesHealthAndGatesAPI(t *testing.T) {
	userRepo, categoryRepo, productRepo, err := buildRepositories("")
	assert.NoError(t, err)

	authService := services.NewAuthService(userRepo, "test_jwt_secret", 0)
	categoryService := services.NewCategoryService(categoryRepo, productRepo)
	productService := services.NewProductService(productRepo, categoryRepo, noopUploader{}, nil)

	app := newApp(authService, categoryService, productService)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/products", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/categories", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
