package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageListRoundTrip(t *testing.T) {
	list := ImageList{"https://media.example.com/images/a.png", "https://media.example.com/images/b.png"}

	value, err := list.Value()
	assert.NoError(t, err)

	var decoded ImageList
	assert.NoError(t, decoded.Scan(value))
	assert.Equal(t, list, decoded)
}

func TestImageListScanEmpty(t *testing.T) {
	var list ImageList
	assert.NoError(t, list.Scan(nil))
	assert.Empty(t, list)

	assert.NoError(t, list.Scan([]byte("")))
	assert.Empty(t, list)

	assert.Error(t, list.Scan(42))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 5, 12)
	assert.Equal(t, 2, p.CurrentPage)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, int64(12), p.TotalItems)
	assert.Equal(t, 5, p.ItemsPerPage)

	// Exact multiple
	assert.Equal(t, 2, NewPagination(1, 6, 12).TotalPages)

	// Empty set
	assert.Equal(t, 0, NewPagination(1, 10, 0).TotalPages)

	// Degenerate inputs are clamped
	p = NewPagination(0, 0, 3)
	assert.Equal(t, 1, p.CurrentPage)
	assert.Equal(t, 1, p.ItemsPerPage)
	assert.Equal(t, 3, p.TotalPages)
}
