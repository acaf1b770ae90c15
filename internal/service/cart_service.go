package service

import (
	"context"
	"fmt"

	"phone-pos/internal/bundle"
	"phone-pos/internal/domain"
	"phone-pos/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartResult is the updated cart plus any bundle messages for the operator.
type CartResult struct {
	Cart    domain.Cart           `json:"cart"`
	Notices []domain.BundleNotice `json:"notices"`
}

// CartService builds carts line by line before checkout.
type CartService interface {
	AddToCart(ctx context.Context, cart domain.Cart, productID uuid.UUID, quantity int) (*CartResult, error)
}

type cartService struct {
	products repository.ProductRepository
	rules    repository.BundleRuleRepository
	logger   *zap.Logger
}

// NewCartService creates a new instance of CartService
func NewCartService(products repository.ProductRepository, rules repository.BundleRuleRepository, logger *zap.Logger) CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cartService{products: products, rules: rules, logger: logger}
}

// AddToCart appends a product, pins the cart to the product's store, and
// attaches any bundle gifts the product triggers. Adding a product already in
// the cart raises its quantity instead of adding a second line.
func (s *cartService) AddToCart(ctx context.Context, cart domain.Cart, productID uuid.UUID, quantity int) (*CartResult, error) {
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "must be greater than zero")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	store := product.Store
	if cart.Store != "" || len(cart.Lines) > 0 {
		if store, err = cart.ResolveStore(); err != nil {
			return nil, err
		}
	}
	if product.Store != store {
		return nil, &domain.StoreMismatchError{ProductID: product.ID, Expected: store, Actual: product.Store}
	}

	lines := make([]domain.CartLine, len(cart.Lines))
	copy(lines, cart.Lines)

	requested := quantity
	index := -1
	for i, line := range lines {
		if line.ProductID == product.ID && !line.Gift {
			index = i
			requested += line.Quantity
			break
		}
	}
	if requested > product.Stock {
		return nil, &domain.InsufficientStockError{ProductID: product.ID, Name: product.Name, Requested: requested, Available: product.Stock}
	}

	var added domain.CartLine
	if index >= 0 {
		lines[index].Quantity = requested
		added = lines[index]
	} else {
		added = domain.NewCartLine(product, quantity)
		lines = append(lines, added)
	}

	gifts, notices, err := s.resolveBundles(ctx, added, lines, store)
	if err != nil {
		return nil, err
	}
	lines = append(lines, gifts...)

	for _, n := range notices {
		s.logger.Warn("Bundle accessory skipped",
			zap.String("level", string(n.Level)),
			zap.String("rule_id", n.RuleID.String()),
			zap.String("accessory_id", n.AccessoryID.String()),
			zap.String("message", n.Message),
		)
	}

	return &CartResult{
		Cart:    domain.Cart{Store: store, Lines: lines},
		Notices: notices,
	}, nil
}

func (s *cartService) resolveBundles(ctx context.Context, added domain.CartLine, lines []domain.CartLine, store string) ([]domain.CartLine, []domain.BundleNotice, error) {
	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load bundle rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, nil, nil
	}

	var ids []uuid.UUID
	for _, rule := range rules {
		ids = append(ids, rule.Accessories...)
	}
	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load bundle accessories: %w", err)
	}

	gifts, notices := bundle.Resolve(added, lines, catalog, rules, store)
	return gifts, notices, nil
}
