package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents one inventory record held at a physical store.
// Serialized products (phones) represent a single unit identified by IMEI.
type Product struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Brand     string          `json:"brand" db:"brand"`
	Model     string          `json:"model" db:"model"`
	Category  string          `json:"category" db:"category"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Cost      decimal.Decimal `json:"cost" db:"cost"`
	Stock     int             `json:"stock" db:"stock"`
	Store     string          `json:"store" db:"store"`
	IMEI      string          `json:"imei,omitempty" db:"imei"`
	Barcode   string          `json:"barcode,omitempty" db:"barcode"`
	Version   int64           `json:"version" db:"version"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// SameItem reports whether two records describe the same catalog item,
// regardless of the store holding them.
func (p *Product) SameItem(other *Product) bool {
	return strings.EqualFold(p.Name, other.Name) &&
		strings.EqualFold(p.Brand, other.Brand) &&
		strings.EqualFold(p.Model, other.Model) &&
		strings.EqualFold(p.Category, other.Category)
}

// Category represents a product category. Serialized categories hold
// individually identified units that are removed from inventory at zero stock.
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Serialized  bool      `json:"serialized" db:"serialized"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
