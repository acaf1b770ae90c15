package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"phone-pos/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrCustomerAlreadyExists = errors.New("customer with this dni already exists")
)

// CustomerRepository defines the interface for customer data access
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	FindByDNI(ctx context.Context, dni string) (*domain.Customer, error)
	UpdatePoints(ctx context.Context, id uuid.UUID, expectedVersion int64, points int) error
}

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new instance of CustomerRepository
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

const customerColumns = `id, dni, name, phone, email, points, version, created_at, updated_at`

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	c := &domain.Customer{}
	if err := row.Scan(&c.ID, &c.DNI, &c.Name, &c.Phone, &c.Email, &c.Points, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new customer into the database using parameterized queries
func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	if customer.Version == 0 {
		customer.Version = 1
	}
	now := time.Now()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	query := `
		INSERT INTO customers (` + customerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		customer.ID,
		customer.DNI,
		customer.Name,
		customer.Phone,
		customer.Email,
		customer.Points,
		customer.Version,
		customer.CreatedAt,
		customer.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCustomerAlreadyExists
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

// FindByID retrieves a customer by ID using parameterized queries
func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return r.findOne(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
}

// FindByDNI retrieves a customer by national ID number
func (r *customerRepository) FindByDNI(ctx context.Context, dni string) (*domain.Customer, error) {
	return r.findOne(ctx, `SELECT `+customerColumns+` FROM customers WHERE dni = $1`, dni)
}

func (r *customerRepository) findOne(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	customer, err := scanCustomer(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return customer, nil
}

// UpdatePoints replaces the point balance if the customer is still at expectedVersion.
func (r *customerRepository) UpdatePoints(ctx context.Context, id uuid.UUID, expectedVersion int64, points int) error {
	if points < 0 {
		return fmt.Errorf("failed to update points: negative balance %d", points)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE customers
		SET points = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`, id, expectedVersion, points)
	if err != nil {
		return fmt.Errorf("failed to update points: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	return checkAffected(rowsAffected, func() (bool, error) {
		var exists bool
		err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists)
		return exists, err
	}, ErrCustomerNotFound)
}
