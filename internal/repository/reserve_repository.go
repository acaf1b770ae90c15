package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"phone-pos/internal/domain"

	"github.com/google/uuid"
)

var ErrReserveNotFound = errors.New("reserve not found")

// ReserveRepository defines the interface for reservation data access
type ReserveRepository interface {
	Create(ctx context.Context, reserve *domain.Reserve) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Reserve, error)
	// Complete flips a reserve to completed, zeroes its remaining balance
	// and links the sale, provided it is still at expectedVersion.
	Complete(ctx context.Context, id uuid.UUID, expectedVersion int64, saleID uuid.UUID) error
	// Reopen returns a completed reserve to the reserved state recorded in
	// before, provided it is still at expectedVersion.
	Reopen(ctx context.Context, before *domain.Reserve, expectedVersion int64) error
}

type reserveRepository struct {
	db *sql.DB
}

// NewReserveRepository creates a new instance of ReserveRepository
func NewReserveRepository(db *sql.DB) ReserveRepository {
	return &reserveRepository{db: db}
}

const reserveColumns = `id, receipt_number, customer, product_id, product_name, quantity, store,
	down_payment, remaining_amount, price_usd, price_ars, down_payment_usd, down_payment_ars,
	remaining_usd, remaining_ars, exchange_rate, status, expiration_date, sale_id, operator_id,
	version, created_at, updated_at`

// Create inserts a new reserve into the database using parameterized queries
func (r *reserveRepository) Create(ctx context.Context, reserve *domain.Reserve) error {
	if reserve.Version == 0 {
		reserve.Version = 1
	}
	if reserve.Status == "" {
		reserve.Status = domain.ReserveStatusReserved
	}
	now := time.Now()
	reserve.CreatedAt = now
	reserve.UpdatedAt = now

	customer, err := json.Marshal(reserve.Customer)
	if err != nil {
		return fmt.Errorf("failed to encode reserve customer: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO reserves (`+reserveColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`,
		reserve.ID,
		reserve.ReceiptNumber,
		string(customer),
		reserve.ProductID,
		reserve.ProductName,
		reserve.Quantity,
		reserve.Store,
		reserve.DownPayment,
		reserve.RemainingAmount,
		reserve.PriceUSD,
		reserve.PriceARS,
		reserve.DownPaymentUSD,
		reserve.DownPaymentARS,
		reserve.RemainingUSD,
		reserve.RemainingARS,
		reserve.ExchangeRate,
		string(reserve.Status),
		reserve.ExpirationDate,
		reserve.SaleID,
		reserve.OperatorID,
		reserve.Version,
		reserve.CreatedAt,
		reserve.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reserve: %w", err)
	}

	return nil
}

// FindByID retrieves a reserve by ID using parameterized queries
func (r *reserveRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Reserve, error) {
	var (
		reserve  domain.Reserve
		customer []byte
		status   string
		saleID   uuid.NullUUID
	)

	err := r.db.QueryRowContext(ctx, `SELECT `+reserveColumns+` FROM reserves WHERE id = $1`, id).Scan(
		&reserve.ID,
		&reserve.ReceiptNumber,
		&customer,
		&reserve.ProductID,
		&reserve.ProductName,
		&reserve.Quantity,
		&reserve.Store,
		&reserve.DownPayment,
		&reserve.RemainingAmount,
		&reserve.PriceUSD,
		&reserve.PriceARS,
		&reserve.DownPaymentUSD,
		&reserve.DownPaymentARS,
		&reserve.RemainingUSD,
		&reserve.RemainingARS,
		&reserve.ExchangeRate,
		&status,
		&reserve.ExpirationDate,
		&saleID,
		&reserve.OperatorID,
		&reserve.Version,
		&reserve.CreatedAt,
		&reserve.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReserveNotFound
		}
		return nil, fmt.Errorf("failed to find reserve by ID: %w", err)
	}

	if err := json.Unmarshal(customer, &reserve.Customer); err != nil {
		return nil, fmt.Errorf("failed to decode reserve customer: %w", err)
	}
	reserve.Status = domain.ReserveStatus(status)
	if saleID.Valid {
		id := saleID.UUID
		reserve.SaleID = &id
	}

	return &reserve, nil
}

func (r *reserveRepository) Complete(ctx context.Context, id uuid.UUID, expectedVersion int64, saleID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reserves
		SET status = 'completed', remaining_amount = 0, remaining_usd = 0, remaining_ars = 0,
		    sale_id = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND status = 'reserved'
	`, id, expectedVersion, saleID)
	if err != nil {
		return fmt.Errorf("failed to complete reserve: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	return checkAffected(rowsAffected, func() (bool, error) {
		var exists bool
		err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM reserves WHERE id = $1)`, id).Scan(&exists)
		return exists, err
	}, ErrReserveNotFound)
}

func (r *reserveRepository) Reopen(ctx context.Context, before *domain.Reserve, expectedVersion int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reserves
		SET status = 'reserved', remaining_amount = $3, remaining_usd = $4, remaining_ars = $5,
		    sale_id = NULL, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND status = 'completed'
	`, before.ID, expectedVersion, before.RemainingAmount, before.RemainingUSD, before.RemainingARS)
	if err != nil {
		return fmt.Errorf("failed to reopen reserve: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	return checkAffected(rowsAffected, func() (bool, error) {
		var exists bool
		err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM reserves WHERE id = $1)`, before.ID).Scan(&exists)
		return exists, err
	}, ErrReserveNotFound)
}
