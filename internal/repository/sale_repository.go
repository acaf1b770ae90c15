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

var (
	ErrSaleNotFound      = errors.New("sale not found")
	ErrSaleAlreadyExists = errors.New("sale with this receipt number already exists")
)

// SaleRepository defines the interface for sale data access. Sales are
// append-only.
type SaleRepository interface {
	Create(ctx context.Context, sale *domain.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new instance of SaleRepository
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

const saleColumns = `id, receipt_number, customer, items, payment_method, payment_breakdown,
	subtotal, points_discount, trade_in_value, total_amount, amount_due, trade_in,
	points_used, points_earned, points_accumulated, reserve_id, store, exchange_rate,
	operator_id, created_at`

// Create inserts a new sale into the database using parameterized queries
func (r *saleRepository) Create(ctx context.Context, sale *domain.Sale) error {
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}

	customer, err := json.Marshal(sale.Customer)
	if err != nil {
		return fmt.Errorf("failed to encode sale customer: %w", err)
	}
	items, err := json.Marshal(sale.Items)
	if err != nil {
		return fmt.Errorf("failed to encode sale items: %w", err)
	}
	breakdown := sale.PaymentBreakdown
	if breakdown == nil {
		breakdown = []domain.PaymentPart{}
	}
	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("failed to encode payment breakdown: %w", err)
	}
	var tradeIn *string
	if sale.TradeIn != nil {
		b, err := json.Marshal(sale.TradeIn)
		if err != nil {
			return fmt.Errorf("failed to encode trade-in: %w", err)
		}
		s := string(b)
		tradeIn = &s
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sales (`+saleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`,
		sale.ID,
		sale.ReceiptNumber,
		string(customer),
		string(items),
		sale.PaymentMethod,
		string(breakdownJSON),
		sale.Subtotal,
		sale.PointsDiscount,
		sale.TradeInValue,
		sale.TotalAmount,
		sale.AmountDue,
		tradeIn,
		sale.PointsUsed,
		sale.PointsEarned,
		sale.PointsAccumulated,
		sale.ReserveID,
		sale.Store,
		sale.ExchangeRate,
		sale.OperatorID,
		sale.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSaleAlreadyExists
		}
		return fmt.Errorf("failed to create sale: %w", err)
	}

	return nil
}

// FindByID retrieves a sale by ID using parameterized queries
func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	var (
		sale      domain.Sale
		customer  []byte
		items     []byte
		breakdown []byte
		tradeIn   []byte
		reserveID uuid.NullUUID
	)

	err := r.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id).Scan(
		&sale.ID,
		&sale.ReceiptNumber,
		&customer,
		&items,
		&sale.PaymentMethod,
		&breakdown,
		&sale.Subtotal,
		&sale.PointsDiscount,
		&sale.TradeInValue,
		&sale.TotalAmount,
		&sale.AmountDue,
		&tradeIn,
		&sale.PointsUsed,
		&sale.PointsEarned,
		&sale.PointsAccumulated,
		&reserveID,
		&sale.Store,
		&sale.ExchangeRate,
		&sale.OperatorID,
		&sale.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to find sale by ID: %w", err)
	}

	if err := json.Unmarshal(customer, &sale.Customer); err != nil {
		return nil, fmt.Errorf("failed to decode sale customer: %w", err)
	}
	if err := json.Unmarshal(items, &sale.Items); err != nil {
		return nil, fmt.Errorf("failed to decode sale items: %w", err)
	}
	if err := json.Unmarshal(breakdown, &sale.PaymentBreakdown); err != nil {
		return nil, fmt.Errorf("failed to decode payment breakdown: %w", err)
	}
	if len(tradeIn) > 0 {
		sale.TradeIn = &domain.TradeIn{}
		if err := json.Unmarshal(tradeIn, sale.TradeIn); err != nil {
			return nil, fmt.Errorf("failed to decode trade-in: %w", err)
		}
	}
	if reserveID.Valid {
		id := reserveID.UUID
		sale.ReserveID = &id
	}

	return &sale, nil
}
