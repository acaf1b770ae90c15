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
	ErrProductNotFound      = errors.New("product not found")
	ErrProductAlreadyExists = errors.New("product already exists")
)

// ProductRepository defines the interface for product data access. Every
// mutation after creation is a compare-and-swap on the version column and
// bumps it by one.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error)
	FindIdentical(ctx context.Context, product *domain.Product, store string) (*domain.Product, error)
	List(ctx context.Context, store string) ([]domain.Product, error)
	UpdateStock(ctx context.Context, id uuid.UUID, expectedVersion int64, stock int) error
	MoveStore(ctx context.Context, id uuid.UUID, expectedVersion int64, store string) error
	Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, brand, model, category, price, cost, stock, store, imei, barcode, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Brand,
		&p.Model,
		&p.Category,
		&p.Price,
		&p.Cost,
		&p.Stock,
		&p.Store,
		&p.IMEI,
		&p.Barcode,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a product. A zero version is stored as 1 and negative stock as 0.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	if product.Version == 0 {
		product.Version = 1
	}
	if product.Stock < 0 {
		product.Stock = 0
	}
	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Brand,
		product.Model,
		product.Category,
		product.Price,
		product.Cost,
		product.Stock,
		product.Store,
		product.IMEI,
		product.Barcode,
		product.Version,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductAlreadyExists
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindByIDs returns the products that exist among ids; missing ids are omitted.
func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]string, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1::uuid[])`
	return r.queryProducts(ctx, query, args)
}

// FindIdentical looks for a record in store describing the same catalog
// item as product, excluding product itself.
func (r *productRepository) FindIdentical(ctx context.Context, product *domain.Product, store string) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE store = $1
		  AND id <> $2
		  AND LOWER(name) = LOWER($3)
		  AND LOWER(brand) = LOWER($4)
		  AND LOWER(model) = LOWER($5)
		  AND LOWER(category) = LOWER($6)
		ORDER BY created_at ASC
		LIMIT 1
	`

	found, err := scanProduct(r.db.QueryRowContext(ctx, query,
		store, product.ID, product.Name, product.Brand, product.Model, product.Category))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find identical product: %w", err)
	}

	return found, nil
}

// List returns products ordered by name, optionally filtered by store.
func (r *productRepository) List(ctx context.Context, store string) ([]domain.Product, error) {
	if store == "" {
		return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY name ASC`)
	}
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE store = $1 ORDER BY name ASC`, store)
}

func (r *productRepository) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// UpdateStock sets a product's stock if it is still at expectedVersion
func (r *productRepository) UpdateStock(ctx context.Context, id uuid.UUID, expectedVersion int64, stock int) error {
	if stock < 0 {
		return fmt.Errorf("failed to update stock: negative stock %d", stock)
	}

	query := `
		UPDATE products
		SET stock = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`
	return r.casExec(ctx, "update stock", id, query, id, expectedVersion, stock)
}

// MoveStore reassigns a product to another store if it is still at expectedVersion
func (r *productRepository) MoveStore(ctx context.Context, id uuid.UUID, expectedVersion int64, store string) error {
	query := `
		UPDATE products
		SET store = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`
	return r.casExec(ctx, "move product", id, query, id, expectedVersion, store)
}

// Delete removes a product from the database if it is still at expectedVersion
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	query := `DELETE FROM products WHERE id = $1 AND version = $2`
	return r.casExec(ctx, "delete product", id, query, id, expectedVersion)
}

func (r *productRepository) casExec(ctx context.Context, op string, id uuid.UUID, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	return checkAffected(rowsAffected, func() (bool, error) {
		var exists bool
		err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
		return exists, err
	}, ErrProductNotFound)
}
