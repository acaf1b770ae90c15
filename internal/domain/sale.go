package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency codes recorded on sale items.
const (
	CurrencyUSD = "USD"
	CurrencyARS = "ARS"
)

// Payment methods. Split payments must declare a breakdown.
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
	PaymentMultiple = "multiple"
)

// SaleItem is an immutable line of a committed sale.
type SaleItem struct {
	ProductID      uuid.UUID       `json:"product_id"`
	Name           string          `json:"name"`
	Brand          string          `json:"brand,omitempty"`
	Model          string          `json:"model,omitempty"`
	Category       string          `json:"category"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	OriginalPrice  decimal.Decimal `json:"original_price"`
	OriginCurrency string          `json:"origin_currency"`
	Cost           decimal.Decimal `json:"cost"`
	IMEI           string          `json:"imei,omitempty"`
	Gift           bool            `json:"gift"`
}

// PaymentPart is one method's share of a split payment.
type PaymentPart struct {
	Method string          `json:"method" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// Payment declares how a sale was paid.
type Payment struct {
	Method    string        `json:"method" validate:"required"`
	Breakdown []PaymentPart `json:"breakdown,omitempty" validate:"dive"`
	// RedeemPoints asks the loyalty ledger to spend available points.
	RedeemPoints bool `json:"redeem_points"`
}

// IsSplit reports whether the payment must be reconciled against its breakdown.
func (p Payment) IsSplit() bool {
	return p.Method == PaymentMultiple || len(p.Breakdown) > 1
}

// TradeIn is a used device accepted as partial payment.
type TradeIn struct {
	Name      string          `json:"name" validate:"required"`
	Brand     string          `json:"brand,omitempty"`
	Model     string          `json:"model,omitempty"`
	Category  string          `json:"category" validate:"required"`
	IMEI      string          `json:"imei,omitempty"`
	Value     decimal.Decimal `json:"value"`
	ProductID *uuid.UUID      `json:"product_id,omitempty"`
}

// Sale is written once and never modified.
type Sale struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	ReceiptNumber     string           `json:"receipt_number" db:"receipt_number"`
	Customer          CustomerSnapshot `json:"customer" db:"customer"`
	Items             []SaleItem       `json:"items" db:"items"`
	PaymentMethod     string           `json:"payment_method" db:"payment_method"`
	PaymentBreakdown  []PaymentPart    `json:"payment_breakdown,omitempty" db:"payment_breakdown"`
	Subtotal          decimal.Decimal  `json:"subtotal" db:"subtotal"`
	PointsDiscount    decimal.Decimal  `json:"points_discount" db:"points_discount"`
	TradeInValue      decimal.Decimal  `json:"trade_in_value" db:"trade_in_value"`
	TotalAmount       decimal.Decimal  `json:"total_amount" db:"total_amount"`
	AmountDue         decimal.Decimal  `json:"amount_due" db:"amount_due"`
	TradeIn           *TradeIn         `json:"trade_in,omitempty" db:"trade_in"`
	PointsUsed        int              `json:"points_used" db:"points_used"`
	PointsEarned      int              `json:"points_earned" db:"points_earned"`
	PointsAccumulated int              `json:"points_accumulated" db:"points_accumulated"`
	ReserveID         *uuid.UUID       `json:"reserve_id,omitempty" db:"reserve_id"`
	Store             string           `json:"store" db:"store"`
	ExchangeRate      decimal.Decimal  `json:"exchange_rate" db:"exchange_rate"`
	OperatorID        string           `json:"operator_id,omitempty" db:"operator_id"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
}
