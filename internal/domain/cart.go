package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one line of an in-progress transaction. It snapshots the
// product fields at add time; Price may be overridden by the operator and
// a zero price marks a gift line.
type CartLine struct {
	ProductID    uuid.UUID       `json:"product_id" validate:"required"`
	Name         string          `json:"name"`
	Brand        string          `json:"brand,omitempty"`
	Model        string          `json:"model,omitempty"`
	Category     string          `json:"category"`
	Quantity     int             `json:"quantity" validate:"gt=0"`
	Price        decimal.Decimal `json:"price"`
	Cost         decimal.Decimal `json:"cost"`
	Store        string          `json:"store"`
	IMEI         string          `json:"imei,omitempty"`
	Barcode      string          `json:"barcode,omitempty"`
	Gift         bool            `json:"gift"`
	BundleRuleID *uuid.UUID      `json:"bundle_rule_id,omitempty"`
}

// NewCartLine snapshots a product into a cart line at its catalog price.
func NewCartLine(p *Product, quantity int) CartLine {
	return CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Brand:     p.Brand,
		Model:     p.Model,
		Category:  p.Category,
		Quantity:  quantity,
		Price:     p.Price,
		Cost:      p.Cost,
		Store:     p.Store,
		IMEI:      p.IMEI,
		Barcode:   p.Barcode,
	}
}

// IsGift reports whether the line carries no revenue.
func (l CartLine) IsGift() bool {
	return l.Gift || l.Price.IsZero()
}

// Cart is the ephemeral list of lines submitted with a transaction.
type Cart struct {
	Store string     `json:"store"`
	Lines []CartLine `json:"lines"`
}

// QuantityOf sums the quantity of every line for productID.
func (c *Cart) QuantityOf(productID uuid.UUID) int {
	total := 0
	for _, line := range c.Lines {
		if line.ProductID == productID {
			total += line.Quantity
		}
	}
	return total
}

// ResolveStore returns the store shared by every line. The cart's explicit
// store wins; otherwise the first line fixes it.
func (c *Cart) ResolveStore() (string, error) {
	store := c.Store
	for _, line := range c.Lines {
		if store == "" {
			store = line.Store
		}
		if line.Store != store {
			return "", &StoreMismatchError{ProductID: line.ProductID, Expected: store, Actual: line.Store}
		}
	}
	if store == "" {
		return "", &ValidationError{Field: "store", Message: "store could not be resolved"}
	}
	return store, nil
}
