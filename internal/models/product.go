package models

import (
	"math"
	"time"
)

// Product represents an inventory item.
// There is no soft delete: removing a product removes the row.
type Product struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Name      string    `json:"nome" gorm:"uniqueIndex;type:varchar(255);not null" bson:"nome"`
	Quantity  int       `json:"quantidade" gorm:"not null;check:quantity >= 0" bson:"quantidade"`
	Image     string    `json:"imagem,omitempty" gorm:"type:varchar(512)" bson:"imagem,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// ProductInput is a validated create/update payload.
type ProductInput struct {
	Name     string `json:"nome"`
	Quantity int    `json:"quantidade"`
	Image    string `json:"imagem,omitempty"`
}

// ProductFilter narrows and pages a product listing.
type ProductFilter struct {
	Name        string
	MinQuantity int
	Page        int
	Limit       int
}

// Offset returns the number of rows skipped before the current page. A page
// too large to address yields math.MaxInt, which is past the end of any list.
func (f ProductFilter) Offset() int {
	if f.Page < 1 || f.Limit < 1 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	Products []Product `json:"produtos"`
}
