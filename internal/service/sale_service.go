package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"phone-pos/internal/cas"
	"phone-pos/internal/domain"
	"phone-pos/internal/metrics"
	"phone-pos/internal/pricing"
	"phone-pos/internal/repository"
	"phone-pos/internal/stock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReceiptMinter issues receipt numbers for a series.
type ReceiptMinter interface {
	NextReceipt(ctx context.Context, series string) (string, error)
}

// Repositories groups the data access the orchestrator needs.
type Repositories struct {
	Products    repository.ProductRepository
	Categories  repository.CategoryRepository
	Customers   repository.CustomerRepository
	BundleRules repository.BundleRuleRepository
	Reserves    repository.ReserveRepository
	Sales       repository.SaleRepository
	Settings    repository.SettingsRepository
}

// Options tunes the orchestrator.
type Options struct {
	PaymentEpsilon decimal.Decimal
	Stores         []string
	Policy         cas.Policy
}

// SellRequest is a checkout: a cart, who buys it and how it is paid.
type SellRequest struct {
	Cart       domain.Cart
	Customer   domain.CustomerSnapshot
	Payment    domain.Payment
	TradeIn    *domain.TradeIn
	OperatorID string
}

// ReserveRequest holds one product against a down payment.
type ReserveRequest struct {
	Cart           domain.Cart
	Customer       domain.CustomerSnapshot
	DownPayment    decimal.Decimal
	ExpirationDate time.Time
	OperatorID     string
}

// SaleService turns carts into committed sales and reservations.
type SaleService interface {
	Sell(ctx context.Context, req SellRequest) (*domain.Sale, error)
	Reserve(ctx context.Context, req ReserveRequest) (*domain.Reserve, error)
	CompleteReservation(ctx context.Context, reserveID uuid.UUID, req SellRequest) (*domain.Sale, error)
	Transfer(ctx context.Context, productID uuid.UUID, quantity int, targetStore string) (*stock.TransferResult, error)
	GetSale(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	GetReserve(ctx context.Context, id uuid.UUID) (*domain.Reserve, error)
}

type saleService struct {
	repos    Repositories
	stock    *stock.Manager
	receipts ReceiptMinter
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// NewSaleService creates a new instance of SaleService
func NewSaleService(repos Repositories, stockManager *stock.Manager, receipts ReceiptMinter, opts Options, logger *zap.Logger) SaleService {
	if opts.PaymentEpsilon.IsZero() {
		opts.PaymentEpsilon = decimal.RequireFromString("0.01")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &saleService{
		repos:    repos,
		stock:    stockManager,
		receipts: receipts,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *saleService) Sell(ctx context.Context, req SellRequest) (*domain.Sale, error) {
	return s.sell(ctx, req, nil)
}

func (s *saleService) CompleteReservation(ctx context.Context, reserveID uuid.UUID, req SellRequest) (*domain.Sale, error) {
	reserve, err := s.repos.Reserves.FindByID(ctx, reserveID)
	if err != nil {
		return nil, err
	}
	if reserve.Status.IsTerminal() {
		return nil, domain.NewValidationError("reserve", fmt.Sprintf("reserve %s is already %s", reserve.ReceiptNumber, reserve.Status))
	}
	if req.Cart.QuantityOf(reserve.ProductID) < reserve.Quantity {
		return nil, domain.NewValidationError("cart", fmt.Sprintf("cart must include the %d reserved unit(s) of %s", reserve.Quantity, reserve.ProductName))
	}
	return s.sell(ctx, req, reserve)
}

// sell validates and prices everything up front, then commits stock and
// the remaining records in order. Once stock is committed any failure runs
// the undo stack before the error is returned.
func (s *saleService) sell(ctx context.Context, req SellRequest, reserve *domain.Reserve) (*domain.Sale, error) {
	store, err := validateCart(req.Cart)
	if err != nil {
		return nil, err
	}
	if err := validateCustomer(req.Customer); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Payment.Method) == "" {
		return nil, domain.NewValidationError("payment.method", "is required")
	}
	if reserve != nil && reserve.Store != store {
		return nil, &domain.StoreMismatchError{ProductID: reserve.ProductID, Expected: store, Actual: reserve.Store}
	}

	rate, settings, err := s.currentRate(ctx)
	if err != nil {
		return nil, err
	}

	items, subtotal := buildItems(req.Cart.Lines, rate)

	tradeInValue := decimal.Zero
	if req.TradeIn != nil {
		if err := validateTradeIn(req.TradeIn); err != nil {
			return nil, err
		}
		tradeInValue = req.TradeIn.Value
	}

	existing, err := s.repos.Customers.FindByDNI(ctx, req.Customer.DNI)
	if err != nil && !errors.Is(err, repository.ErrCustomerNotFound) {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}
	available := 0
	if existing != nil {
		available = existing.Points
	}

	ledger := pricing.ComputeLedger(pricing.LedgerInput{
		Subtotal:        subtotal,
		AvailablePoints: available,
		Redeem:          req.Payment.RedeemPoints,
		PointValue:      settings.PointValue,
		EarnRate:        settings.EarnRate,
		Paused:          settings.PointsPaused,
	})

	total := nonNegative(ledger.FinalTotal.Sub(tradeInValue))
	amountDue := total
	if reserve != nil {
		amountDue = nonNegative(total.Sub(reserve.DownPayment))
	}

	if err := s.checkPayment(req.Payment, amountDue); err != nil {
		return nil, err
	}

	deltas := make([]stock.Delta, 0, len(req.Cart.Lines))
	for _, line := range req.Cart.Lines {
		deltas = append(deltas, stock.Delta{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	if reserve != nil {
		deltas = stock.SubtractReserved(deltas, reserve.ProductID, reserve.Quantity)
	}

	// Writes start here.
	applied, err := s.debit(ctx, store, deltas, req.Cart.Lines)
	if err != nil {
		return nil, err
	}

	var undo undoStack
	undo.push("stock", func(ctx context.Context) error { return s.stock.Revert(ctx, applied) })

	fail := func(step string, err error) (*domain.Sale, error) {
		s.logger.Error("Sale failed after stock commit, compensating",
			zap.String("step", step),
			zap.String("store", store),
			zap.Error(err),
		)
		undo.run(ctx, s.logger)
		return nil, err
	}

	customer, err := s.upsertCustomer(ctx, req.Customer)
	if err != nil {
		return fail("customer", err)
	}

	if req.TradeIn != nil {
		if err := s.intakeTradeIn(ctx, req.TradeIn, store); err != nil {
			return fail("trade_in", err)
		}
	}

	receipt, err := s.receipts.NextReceipt(ctx, domain.SeriesSale)
	if err != nil {
		return fail("receipt", err)
	}

	balance, err := s.applyPoints(ctx, customer.ID, ledger)
	if err != nil {
		return fail("points", err)
	}
	if ledger.PointsUsed > 0 || ledger.PointsEarned > 0 {
		undo.push("points", func(ctx context.Context) error {
			return s.adjustPoints(ctx, customer.ID, ledger.PointsUsed-ledger.PointsEarned)
		})
	}

	saleID := uuid.New()
	if reserve != nil {
		if err := s.repos.Reserves.Complete(ctx, reserve.ID, reserve.Version, saleID); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				err = domain.NewValidationError("reserve", "reserve was modified or completed concurrently")
			}
			return fail("reserve", err)
		}
		completedVersion := reserve.Version + 1
		undo.push("reserve", func(ctx context.Context) error {
			return s.repos.Reserves.Reopen(ctx, reserve, completedVersion)
		})
	}

	sale := &domain.Sale{
		ID:                saleID,
		ReceiptNumber:     receipt,
		Customer:          customer.Snapshot(),
		Items:             items,
		PaymentMethod:     req.Payment.Method,
		PaymentBreakdown:  req.Payment.Breakdown,
		Subtotal:          subtotal,
		PointsDiscount:    ledger.Discount,
		TradeInValue:      tradeInValue,
		TotalAmount:       total,
		AmountDue:         amountDue,
		TradeIn:           req.TradeIn,
		PointsUsed:        ledger.PointsUsed,
		PointsEarned:      ledger.PointsEarned,
		PointsAccumulated: balance,
		Store:             store,
		ExchangeRate:      rate,
		OperatorID:        req.OperatorID,
		CreatedAt:         s.now(),
	}
	if reserve != nil {
		reserveID := reserve.ID
		sale.ReserveID = &reserveID
	}

	if err := s.repos.Sales.Create(ctx, sale); err != nil {
		return fail("persist", err)
	}

	metrics.SalesCommitted.WithLabelValues(store, strconv.FormatBool(reserve != nil)).Inc()
	s.logger.Info("Sale committed",
		zap.String("receipt", sale.ReceiptNumber),
		zap.String("store", store),
		zap.String("total", total.String()),
		zap.Int("points_earned", ledger.PointsEarned),
	)

	return sale, nil
}

func (s *saleService) Reserve(ctx context.Context, req ReserveRequest) (*domain.Reserve, error) {
	store, err := validateCart(req.Cart)
	if err != nil {
		return nil, err
	}
	if len(req.Cart.Lines) != 1 {
		return nil, domain.NewValidationError("cart", "a reservation holds exactly one product")
	}
	if err := validateCustomer(req.Customer); err != nil {
		return nil, err
	}
	if !req.DownPayment.IsPositive() {
		return nil, domain.NewValidationError("down_payment", "must be greater than zero")
	}
	if !req.ExpirationDate.After(s.now()) {
		return nil, domain.NewValidationError("expiration_date", "must be in the future")
	}

	rate, _, err := s.currentRate(ctx)
	if err != nil {
		return nil, err
	}

	line := req.Cart.Lines[0]
	lineTotal := pricing.ToDisplayCurrency(line.Price, rate).Mul(decimal.NewFromInt(int64(line.Quantity)))
	if req.DownPayment.GreaterThan(lineTotal) {
		return nil, domain.NewValidationError("down_payment", "exceeds the product price")
	}
	remaining := lineTotal.Sub(req.DownPayment)

	applied, err := s.debit(ctx, store, []stock.Delta{{ProductID: line.ProductID, Quantity: line.Quantity}}, req.Cart.Lines)
	if err != nil {
		return nil, err
	}

	var undo undoStack
	undo.push("stock", func(ctx context.Context) error { return s.stock.Revert(ctx, applied) })

	fail := func(step string, err error) (*domain.Reserve, error) {
		s.logger.Error("Reserve failed after stock commit, compensating",
			zap.String("step", step),
			zap.String("store", store),
			zap.Error(err),
		)
		undo.run(ctx, s.logger)
		return nil, err
	}

	customer, err := s.upsertCustomer(ctx, req.Customer)
	if err != nil {
		return fail("customer", err)
	}

	receipt, err := s.receipts.NextReceipt(ctx, domain.SeriesReserve)
	if err != nil {
		return fail("receipt", err)
	}

	reserve := &domain.Reserve{
		ID:              uuid.New(),
		ReceiptNumber:   receipt,
		Customer:        customer.Snapshot(),
		ProductID:       line.ProductID,
		ProductName:     line.Name,
		Quantity:        line.Quantity,
		Store:           store,
		DownPayment:     req.DownPayment,
		RemainingAmount: remaining,
		PriceUSD:        pricing.ToUSD(lineTotal, rate),
		PriceARS:        lineTotal,
		DownPaymentUSD:  pricing.ToUSD(req.DownPayment, rate),
		DownPaymentARS:  req.DownPayment,
		RemainingUSD:    pricing.ToUSD(remaining, rate),
		RemainingARS:    remaining,
		ExchangeRate:    rate,
		Status:          domain.ReserveStatusReserved,
		ExpirationDate:  req.ExpirationDate,
		OperatorID:      req.OperatorID,
	}

	if err := s.repos.Reserves.Create(ctx, reserve); err != nil {
		return fail("persist", err)
	}

	metrics.ReservesCommitted.WithLabelValues(store).Inc()
	s.logger.Info("Reserve committed",
		zap.String("receipt", reserve.ReceiptNumber),
		zap.String("store", store),
		zap.String("down_payment", req.DownPayment.String()),
	)

	return reserve, nil
}

func (s *saleService) Transfer(ctx context.Context, productID uuid.UUID, quantity int, targetStore string) (*stock.TransferResult, error) {
	if !s.knownStore(targetStore) {
		return nil, domain.NewValidationError("target_store", fmt.Sprintf("unknown store %q", targetStore))
	}
	return s.stock.Transfer(ctx, productID, quantity, targetStore)
}

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	return s.repos.Sales.FindByID(ctx, id)
}

func (s *saleService) GetReserve(ctx context.Context, id uuid.UUID) (*domain.Reserve, error) {
	return s.repos.Reserves.FindByID(ctx, id)
}

func (s *saleService) knownStore(name string) bool {
	if len(s.opts.Stores) == 0 {
		return name != ""
	}
	for _, store := range s.opts.Stores {
		if store == name {
			return true
		}
	}
	return false
}

// currentRate reads settings and rejects a rate that cannot price USD items.
func (s *saleService) currentRate(ctx context.Context) (decimal.Decimal, *domain.Settings, error) {
	settings, err := s.repos.Settings.Get(ctx)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if !settings.ExchangeRate.IsPositive() {
		return decimal.Zero, nil, domain.NewValidationError("exchange_rate", "price unavailable: exchange rate is not set")
	}
	return settings.ExchangeRate, settings, nil
}

func (s *saleService) checkPayment(payment domain.Payment, amountDue decimal.Decimal) error {
	if !payment.IsSplit() {
		return nil
	}
	if len(payment.Breakdown) == 0 {
		return domain.NewValidationError("payment.breakdown", "split payments require a breakdown")
	}

	sum := decimal.Zero
	for _, part := range payment.Breakdown {
		if part.Amount.IsNegative() {
			return domain.NewValidationError("payment.breakdown", "amounts must not be negative")
		}
		sum = sum.Add(part.Amount)
	}

	if sum.Sub(amountDue).Abs().GreaterThan(s.opts.PaymentEpsilon) {
		return domain.NewValidationError("payment.breakdown",
			fmt.Sprintf("breakdown totals %s but %s is due", sum.StringFixed(2), amountDue.StringFixed(2)))
	}
	return nil
}

func (s *saleService) intakeTradeIn(ctx context.Context, t *domain.TradeIn, store string) error {
	p := &domain.Product{
		ID:       uuid.New(),
		Name:     t.Name,
		Brand:    t.Brand,
		Model:    t.Model,
		Category: t.Category,
		Price:    t.Value,
		Cost:     t.Value,
		Stock:    1,
		Store:    store,
		IMEI:     t.IMEI,
	}
	if err := s.stock.Intake(ctx, p); err != nil {
		return err
	}
	t.ProductID = &p.ID
	return nil
}

func buildItems(lines []domain.CartLine, rate decimal.Decimal) ([]domain.SaleItem, decimal.Decimal) {
	items := make([]domain.SaleItem, 0, len(lines))
	subtotal := decimal.Zero

	for _, line := range lines {
		unit := pricing.ToDisplayCurrency(line.Price, rate)
		subtotal = subtotal.Add(unit.Mul(decimal.NewFromInt(int64(line.Quantity))))

		items = append(items, domain.SaleItem{
			ProductID:      line.ProductID,
			Name:           line.Name,
			Brand:          line.Brand,
			Model:          line.Model,
			Category:       line.Category,
			Quantity:       line.Quantity,
			UnitPrice:      unit,
			OriginalPrice:  line.Price,
			OriginCurrency: pricing.OriginCurrency(line.Price),
			Cost:           line.Cost,
			IMEI:           line.IMEI,
			Gift:           line.IsGift(),
		})
	}

	return items, subtotal
}

func validateCart(cart domain.Cart) (string, error) {
	if len(cart.Lines) == 0 {
		return "", domain.NewValidationError("cart", "cart is empty")
	}
	for _, line := range cart.Lines {
		if line.ProductID == uuid.Nil {
			return "", domain.NewValidationError("cart", "every line needs a product")
		}
		if line.Quantity <= 0 {
			return "", domain.NewValidationError("quantity", fmt.Sprintf("quantity for %q must be greater than zero", line.Name))
		}
		if line.Price.IsNegative() {
			return "", domain.NewValidationError("price", fmt.Sprintf("price for %q must not be negative", line.Name))
		}
	}
	return cart.ResolveStore()
}

func validateCustomer(c domain.CustomerSnapshot) error {
	if strings.TrimSpace(c.DNI) == "" {
		return domain.NewValidationError("customer.dni", "is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return domain.NewValidationError("customer.name", "is required")
	}
	return nil
}

func validateTradeIn(t *domain.TradeIn) error {
	if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.Category) == "" {
		return domain.NewValidationError("trade_in", "name and category are required")
	}
	if t.Value.IsNegative() {
		return domain.NewValidationError("trade_in.value", "must not be negative")
	}
	return nil
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// debit commits stock for a transaction. Cart lines point at records that
// existed when they were added, so a record missing now was sold out from
// under the cart (serialized units are deleted at zero) and is reported as
// insufficient stock.
func (s *saleService) debit(ctx context.Context, store string, deltas []stock.Delta, lines []domain.CartLine) ([]stock.Applied, error) {
	applied, err := s.stock.Debit(ctx, store, deltas)
	if err == nil || !errors.Is(err, repository.ErrProductNotFound) {
		return applied, err
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	found, lookupErr := s.repos.Products.FindByIDs(ctx, ids)
	if lookupErr != nil {
		return nil, err
	}
	present := make(map[uuid.UUID]bool, len(found))
	for _, p := range found {
		present[p.ID] = true
	}
	for _, line := range lines {
		if !present[line.ProductID] {
			return nil, &domain.InsufficientStockError{ProductID: line.ProductID, Name: line.Name, Requested: line.Quantity, Available: 0}
		}
	}
	return nil, err
}
