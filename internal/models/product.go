package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MaxProductImages caps the number of media references a product may carry.
const MaxProductImages = 10

// ImageList is an ordered list of media reference URLs, stored as a JSON
// text column.
type ImageList []string

// Value implements driver.Valuer.
func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		l = ImageList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *ImageList) Scan(value interface{}) error {
	if value == nil {
		*l = ImageList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported image list column type %T", value)
	}
	if len(data) == 0 {
		*l = ImageList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

// Product is a catalog entry. Category holds a Category.Name verbatim
// (denormalized); Images holds media host reference URLs in display order.
type Product struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name      string    `json:"name" gorm:"type:varchar(200);index" validate:"required,min=2,max=200"`
	Price     float64   `json:"price" validate:"gt=0"`
	Category  string    `json:"category" gorm:"type:varchar(100);index" validate:"required"`
	Stock     int       `json:"stock" validate:"gte=0"`
	Images    ImageList `json:"images" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
