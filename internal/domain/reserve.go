package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReserveStatus is the lifecycle state of a reservation.
type ReserveStatus string

const (
	ReserveStatusReserved  ReserveStatus = "reserved"
	ReserveStatusCompleted ReserveStatus = "completed"
	ReserveStatusCancelled ReserveStatus = "cancelled"
)

// IsTerminal reports whether no further stock or points effects may occur.
func (s ReserveStatus) IsTerminal() bool {
	return s == ReserveStatusCompleted || s == ReserveStatusCancelled
}

// Reserve holds units for a customer against a down payment. The stock
// debit happens when the reserve is created. ExpirationDate is advisory.
type Reserve struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	ReceiptNumber   string           `json:"receipt_number" db:"receipt_number"`
	Customer        CustomerSnapshot `json:"customer" db:"customer"`
	ProductID       uuid.UUID        `json:"product_id" db:"product_id"`
	ProductName     string           `json:"product_name" db:"product_name"`
	Quantity        int              `json:"quantity" db:"quantity"`
	Store           string           `json:"store" db:"store"`
	DownPayment     decimal.Decimal  `json:"down_payment" db:"down_payment"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount" db:"remaining_amount"`
	PriceUSD        decimal.Decimal  `json:"price_usd" db:"price_usd"`
	PriceARS        decimal.Decimal  `json:"price_ars" db:"price_ars"`
	DownPaymentUSD  decimal.Decimal  `json:"down_payment_usd" db:"down_payment_usd"`
	DownPaymentARS  decimal.Decimal  `json:"down_payment_ars" db:"down_payment_ars"`
	RemainingUSD    decimal.Decimal  `json:"remaining_usd" db:"remaining_usd"`
	RemainingARS    decimal.Decimal  `json:"remaining_ars" db:"remaining_ars"`
	ExchangeRate    decimal.Decimal  `json:"exchange_rate" db:"exchange_rate"`
	Status          ReserveStatus    `json:"status" db:"status"`
	ExpirationDate  time.Time        `json:"expiration_date" db:"expiration_date"`
	SaleID          *uuid.UUID       `json:"sale_id,omitempty" db:"sale_id"`
	OperatorID      string           `json:"operator_id,omitempty" db:"operator_id"`
	Version         int64            `json:"version" db:"version"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}
