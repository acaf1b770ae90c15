package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer is looked up by DNI and created on its first transaction.
type Customer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	DNI       string    `json:"dni" db:"dni"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Email     string    `json:"email" db:"email"`
	Points    int       `json:"points" db:"points"`
	Version   int64     `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CustomerSnapshot is the copy of customer data stored on a sale or reserve.
type CustomerSnapshot struct {
	ID    uuid.UUID `json:"id,omitempty"`
	DNI   string    `json:"dni" validate:"required"`
	Name  string    `json:"name" validate:"required"`
	Phone string    `json:"phone,omitempty"`
	Email string    `json:"email,omitempty" validate:"omitempty,email"`
}

// Snapshot copies the customer fields recorded on transactions.
func (c *Customer) Snapshot() CustomerSnapshot {
	return CustomerSnapshot{
		ID:    c.ID,
		DNI:   c.DNI,
		Name:  c.Name,
		Phone: c.Phone,
		Email: c.Email,
	}
}
