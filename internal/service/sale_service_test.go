package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"phone-pos/internal/cas"
	"phone-pos/internal/domain"
	"phone-pos/internal/repository"
	"phone-pos/internal/repository/memory"
	"phone-pos/internal/sequence"
	"phone-pos/internal/stock"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var testPolicy = cas.Policy{Retries: 3, Base: time.Millisecond}

type saleFixture struct {
	store    *memory.Store
	service  SaleService
	phone    *domain.Product
	charger  *domain.Product
	funda    *domain.Product
	minter   ReceiptMinter
	stockMgr *stock.Manager
}

func newSaleFixture(t *testing.T) *saleFixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, s.Categories().Create(ctx, &domain.Category{ID: uuid.New(), Name: "Celulares", Serialized: true}))
	require.NoError(t, s.Categories().Create(ctx, &domain.Category{ID: uuid.New(), Name: "Accesorios"}))

	settings, err := s.Settings().Get(ctx)
	require.NoError(t, err)
	settings.ExchangeRate = decimal.NewFromInt(1000)
	settings.PointValue = decimal.NewFromInt(50000)
	settings.EarnRate = decimal.NewFromInt(100000)
	require.NoError(t, s.Settings().Update(ctx, settings))

	f := &saleFixture{store: s}
	f.phone = f.addProduct(t, "iPhone 13", "Celulares", 780, 1)
	f.charger = f.addProduct(t, "Cargador 20W", "Accesorios", 25000, 10)
	f.funda = f.addProduct(t, "Funda", "Accesorios", 15, 5)

	f.stockMgr = stock.NewManager(s.Products(), s.Categories(), testPolicy, nil)
	f.minter = sequence.NewGenerator(s.Counters(), testPolicy, nil)
	f.service = f.build(f.minter)
	return f
}

func (f *saleFixture) build(minter ReceiptMinter) SaleService {
	return NewSaleService(f.repos(), f.stockMgr, minter, Options{
		PaymentEpsilon: decimal.RequireFromString("0.01"),
		Stores:         []string{"central", "sucursal"},
		Policy:         testPolicy,
	}, nil)
}

func (f *saleFixture) repos() Repositories {
	return Repositories{
		Products:    f.store.Products(),
		Categories:  f.store.Categories(),
		Customers:   f.store.Customers(),
		BundleRules: f.store.BundleRules(),
		Reserves:    f.store.Reserves(),
		Sales:       f.store.Sales(),
		Settings:    f.store.Settings(),
	}
}

func (f *saleFixture) addProduct(t *testing.T, name, category string, price int64, qty int) *domain.Product {
	t.Helper()
	p := &domain.Product{ID: uuid.New(), Name: name, Brand: "Apple", Category: category,
		Price: decimal.NewFromInt(price), Cost: decimal.NewFromInt(price / 2), Stock: qty, Store: "central"}
	require.NoError(t, f.store.Products().Create(context.Background(), p))
	return p
}

func (f *saleFixture) stockOf(t *testing.T, id uuid.UUID) (int, bool) {
	t.Helper()
	p, err := f.store.Products().FindByID(context.Background(), id)
	if errors.Is(err, repository.ErrProductNotFound) {
		return 0, false
	}
	require.NoError(t, err)
	return p.Stock, true
}

func cartOf(lines ...domain.CartLine) domain.Cart {
	return domain.Cart{Lines: lines}
}

func line(p *domain.Product, qty int) domain.CartLine {
	return domain.NewCartLine(p, qty)
}

var buyer = domain.CustomerSnapshot{DNI: "30111222", Name: "Ana Gomez", Phone: "1155550000"}

func TestSell_CommitsSale(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()

	sale, err := f.service.Sell(ctx, SellRequest{
		Cart:     cartOf(line(f.phone, 1), line(f.charger, 1)),
		Customer: buyer,
		Payment:  domain.Payment{Method: domain.PaymentCash},
	})
	require.NoError(t, err)

	assert.Equal(t, "V-00001", sale.ReceiptNumber)
	assert.Equal(t, "central", sale.Store)
	assert.True(t, decimal.NewFromInt(805000).Equal(sale.Subtotal), sale.Subtotal.String())
	assert.True(t, sale.TotalAmount.Equal(sale.Subtotal))
	assert.Equal(t, 8, sale.PointsEarned)
	assert.Equal(t, 8, sale.PointsAccumulated)
	require.Len(t, sale.Items, 2)
	assert.Equal(t, domain.CurrencyUSD, sale.Items[0].OriginCurrency)
	assert.Equal(t, domain.CurrencyARS, sale.Items[1].OriginCurrency)

	_, exists := f.stockOf(t, f.phone.ID)
	assert.False(t, exists, "last serialized unit is removed")
	s, _ := f.stockOf(t, f.charger.ID)
	assert.Equal(t, 9, s)

	customer, err := f.store.Customers().FindByDNI(ctx, buyer.DNI)
	require.NoError(t, err)
	assert.Equal(t, 8, customer.Points)
	assert.Equal(t, customer.ID, sale.Customer.ID)

	stored, err := f.service.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.ReceiptNumber, stored.ReceiptNumber)

	second, err := f.service.Sell(ctx, SellRequest{
		Cart:     cartOf(line(f.charger, 1)),
		Customer: buyer,
		Payment:  domain.Payment{Method: domain.PaymentCard},
	})
	require.NoError(t, err)
	assert.Equal(t, "V-00002", second.ReceiptNumber)
}

func TestSell_RedeemsPoints(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Customers().Create(ctx, &domain.Customer{ID: uuid.New(), DNI: buyer.DNI, Name: buyer.Name, Points: 5}))

	sale, err := f.service.Sell(ctx, SellRequest{
		Cart:     cartOf(line(f.phone, 1), line(f.charger, 1)),
		Customer: buyer,
		Payment:  domain.Payment{Method: domain.PaymentCash, RedeemPoints: true},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, sale.PointsUsed)
	assert.True(t, decimal.NewFromInt(250000).Equal(sale.PointsDiscount))
	assert.True(t, decimal.NewFromInt(555000).Equal(sale.TotalAmount))
	assert.Equal(t, 5, sale.PointsEarned)
	assert.Equal(t, 5, sale.PointsAccumulated)
}

func TestSell_SplitPaymentMustMatchAmountDue(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()

	req := SellRequest{
		Cart:     cartOf(line(f.charger, 2)),
		Customer: buyer,
		Payment: domain.Payment{Method: domain.PaymentMultiple, Breakdown: []domain.PaymentPart{
			{Method: domain.PaymentCash, Amount: decimal.NewFromInt(20000)},
			{Method: domain.PaymentCard, Amount: decimal.NewFromInt(20000)},
		}},
	}

	_, err := f.service.Sell(ctx, req)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "payment.breakdown", verr.Field)

	s, _ := f.stockOf(t, f.charger.ID)
	assert.Equal(t, 10, s, "rejected sale must not touch stock")

	req.Payment.Breakdown[1].Amount = decimal.RequireFromString("30000.005")
	sale, err := f.service.Sell(ctx, req)
	require.NoError(t, err)
	assert.Len(t, sale.PaymentBreakdown, 2)
}

func TestSell_TradeInReducesTotalAndEntersStock(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()

	sale, err := f.service.Sell(ctx, SellRequest{
		Cart:     cartOf(line(f.phone, 1)),
		Customer: buyer,
		Payment:  domain.Payment{Method: domain.PaymentTransfer},
		TradeIn:  &domain.TradeIn{Name: "iPhone 11", Brand: "Apple", Category: "Celulares", IMEI: "351111111111111", Value: decimal.NewFromInt(200000)},
	})
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(200000).Equal(sale.TradeInValue))
	assert.True(t, decimal.NewFromInt(580000).Equal(sale.TotalAmount))
	require.NotNil(t, sale.TradeIn)
	require.NotNil(t, sale.TradeIn.ProductID)

	s, exists := f.stockOf(t, *sale.TradeIn.ProductID)
	assert.True(t, exists)
	assert.Equal(t, 1, s)
}

func TestSell_TradeInLargerThanTotalFloorsAtZero(t *testing.T) {
	f := newSaleFixture(t)

	sale, err := f.service.Sell(context.Background(), SellRequest{
		Cart:     cartOf(line(f.charger, 1)),
		Customer: buyer,
		Payment:  domain.Payment{Method: domain.PaymentCash},
		TradeIn:  &domain.TradeIn{Name: "Galaxy S10", Category: "Celulares", Value: decimal.NewFromInt(90000)},
	})
	require.NoError(t, err)
	assert.True(t, sale.TotalAmount.IsZero())
}

func TestSell_Validation(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()

	other := &domain.Product{ID: uuid.New(), Name: "Funda", Category: "Accesorios", Price: decimal.NewFromInt(10), Stock: 3, Store: "sucursal"}
	require.NoError(t, f.store.Products().Create(ctx, other))

	tests := []struct {
		name string
		req  SellRequest
		want any
	}{
		{
			name: "empty cart",
			req:  SellRequest{Customer: buyer, Payment: domain.Payment{Method: domain.PaymentCash}},
			want: &domain.ValidationError{},
		},
		{
			name: "missing dni",
			req:  SellRequest{Cart: cartOf(line(f.charger, 1)), Customer: domain.CustomerSnapshot{Name: "Ana"}, Payment: domain.Payment{Method: domain.PaymentCash}},
			want: &domain.ValidationError{},
		},
		{
			name: "missing payment method",
			req:  SellRequest{Cart: cartOf(line(f.charger, 1)), Customer: buyer},
			want: &domain.ValidationError{},
		},
		{
			name: "mixed stores",
			req:  SellRequest{Cart: cartOf(line(f.charger, 1), line(other, 1)), Customer: buyer, Payment: domain.Payment{Method: domain.PaymentCash}},
			want: &domain.StoreMismatchError{},
		},
		{
			name: "insufficient stock",
			req:  SellRequest{Cart: cartOf(line(f.phone, 2)), Customer: buyer, Payment: domain.Payment{Method: domain.PaymentCash}},
			want: &domain.InsufficientStockError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Sell(ctx, tt.req)
			require.Error(t, err)
			switch tt.want.(type) {
			case *domain.ValidationError:
				var target *domain.ValidationError
				assert.ErrorAs(t, err, &target)
			case *domain.StoreMismatchError:
				var target *domain.StoreMismatchError
				assert.ErrorAs(t, err, &target)
			case *domain.InsufficientStockError:
				var target *domain.InsufficientStockError
				assert.ErrorAs(t, err, &target)
			}
		})
	}

	_, err := f.store.Customers().FindByDNI(ctx, buyer.DNI)
	assert.ErrorIs(t, err, repository.ErrCustomerNotFound, "failed sales must not create customers")
}

func TestSell_RequiresExchangeRate(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()

	settings, err := f.store.Settings().Get(ctx)
	require.NoError(t, err)
	settings.ExchangeRate = decimal.Zero
	require.NoError(t, f.store.Settings().Update(ctx, settings))

	_, err = f.service.Sell(ctx, SellRequest{Cart: cartOf(line(f.phone, 1)), Customer: buyer, Payment: domain.Payment{Method: domain.PaymentCash}})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "exchange_rate", verr.Field)
}

type failingMinter struct{}

func (failingMinter) NextReceipt(_ context.Context, series string) (string, error) {
	return "", &domain.CounterCommitError{Series: series, Err: repository.ErrVersionConflict}
}

func TestSell_ReceiptFailureRevertsStock(t *testing.T) {
	f := newSaleFixture(t)
	svc := f.build(failingMinter{})

	_, err := svc.Sell(context.Background(), SellRequest{
		Cart:     cartOf(line(f.phone, 1), line(f.charger, 3)),
		Customer: buyer,
		Payment:  domain.Payment{Method: domain.PaymentCash},
	})

	var commitErr *domain.CounterCommitError
	require.ErrorAs(t, err, &commitErr)

	s, exists := f.stockOf(t, f.phone.ID)
	assert.True(t, exists)
	assert.Equal(t, 1, s)
	s, _ = f.stockOf(t, f.charger.ID)
	assert.Equal(t, 10, s)
}

// failingSales rejects every sale insert.
type failingSales struct {
	repository.SaleRepository
}

func (failingSales) Create(context.Context, *domain.Sale) error {
	return errors.New("insert failed")
}

func TestSell_PersistFailureRevertsStockAndPoints(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Customers().Create(ctx, &domain.Customer{ID: uuid.New(), DNI: buyer.DNI, Name: buyer.Name, Points: 3}))

	repos := f.repos()
	repos.Sales = failingSales{}
	svc := NewSaleService(repos, f.stockMgr, f.minter, Options{Policy: testPolicy}, nil)

	_, err := svc.Sell(ctx, SellRequest{
		Cart:     cartOf(line(f.charger, 4)),
		Customer: buyer,
		Payment:  domain.Payment{Method: domain.PaymentCash, RedeemPoints: true},
	})
	require.Error(t, err)

	s, _ := f.stockOf(t, f.charger.ID)
	assert.Equal(t, 10, s)

	customer, err := f.store.Customers().FindByDNI(ctx, buyer.DNI)
	require.NoError(t, err)
	assert.Equal(t, 3, customer.Points)
}

func TestCompleteReservation_PersistFailureReopensReserve(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()

	reserve, err := f.service.Reserve(ctx, ReserveRequest{
		Cart:           cartOf(line(f.phone, 1)),
		Customer:       buyer,
		DownPayment:    decimal.NewFromInt(100000),
		ExpirationDate: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	repos := f.repos()
	repos.Sales = failingSales{}
	svc := NewSaleService(repos, f.stockMgr, f.minter, Options{Policy: testPolicy}, nil)

	completion := SellRequest{
		Cart:     cartOf(line(f.phone, 1), line(f.funda, 1)),
		Customer: buyer,
		Payment:  domain.Payment{Method: domain.PaymentCash},
	}
	_, err = svc.CompleteReservation(ctx, reserve.ID, completion)
	require.Error(t, err)

	reopened, err := f.service.GetReserve(ctx, reserve.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReserveStatusReserved, reopened.Status)
	assert.Nil(t, reopened.SaleID)
	assert.True(t, reserve.RemainingAmount.Equal(reopened.RemainingAmount))

	s, _ := f.stockOf(t, f.funda.ID)
	assert.Equal(t, 5, s)

	sale, err := f.service.CompleteReservation(ctx, reserve.ID, completion)
	require.NoError(t, err)

	completed, err := f.service.GetReserve(ctx, reserve.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReserveStatusCompleted, completed.Status)
	require.NotNil(t, completed.SaleID)
	assert.Equal(t, sale.ID, *completed.SaleID)
}

func TestSell_ConcurrentSalesOfLastUnit(t *testing.T) {
	const buyers = 8

	f := newSaleFixture(t)
	ctx := context.Background()

	var (
		mu   sync.Mutex
		sold []*domain.Sale
		errs []error
	)
	var g errgroup.Group
	for i := 0; i < buyers; i++ {
		g.Go(func() error {
			sale, err := f.service.Sell(ctx, SellRequest{
				Cart:     cartOf(line(f.phone, 1)),
				Customer: buyer,
				Payment:  domain.Payment{Method: domain.PaymentCash},
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			sold = append(sold, sale)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Len(t, sold, 1, "only one buyer gets the last unit")
	require.Len(t, errs, buyers-1)
	for _, err := range errs {
		var insufficient *domain.InsufficientStockError
		assert.ErrorAs(t, err, &insufficient)
	}

	_, exists := f.stockOf(t, f.phone.ID)
	assert.False(t, exists)
}

func TestSell_ConcurrentPointsForOneCustomer(t *testing.T) {
	const sales = 10

	f := newSaleFixture(t)
	ctx := context.Background()
	tablet := f.addProduct(t, "iPad 9", "Accesorios", 100, 20)

	require.NoError(t, f.store.Customers().Create(ctx, &domain.Customer{ID: uuid.New(), DNI: buyer.DNI, Name: buyer.Name, Points: 3}))

	contended := cas.Policy{Retries: 200, Base: 100 * time.Microsecond}
	svc := NewSaleService(f.repos(),
		stock.NewManager(f.store.Products(), f.store.Categories(), contended, nil),
		sequence.NewGenerator(f.store.Counters(), contended, nil),
		Options{Policy: contended}, nil)

	var (
		mu   sync.Mutex
		sold []*domain.Sale
	)
	var g errgroup.Group
	for i := 0; i < sales; i++ {
		g.Go(func() error {
			sale, err := svc.Sell(ctx, SellRequest{
				Cart:     cartOf(line(tablet, 1)),
				Customer: buyer,
				Payment:  domain.Payment{Method: domain.PaymentCash, RedeemPoints: i%2 == 0},
			})
			if err != nil {
				return nil
			}
			mu.Lock()
			sold = append(sold, sale)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.NotEmpty(t, sold)

	expected := 3
	for _, sale := range sold {
		expected += sale.PointsEarned - sale.PointsUsed
		assert.GreaterOrEqual(t, sale.PointsAccumulated, 0)
	}

	customer, err := f.store.Customers().FindByDNI(ctx, buyer.DNI)
	require.NoError(t, err)
	assert.Equal(t, expected, customer.Points, "every committed sale's points delta lands exactly once")
	assert.GreaterOrEqual(t, customer.Points, 0)

	s, _ := f.stockOf(t, tablet.ID)
	assert.Equal(t, 20-len(sold), s, "failed sales return their stock")
}

func TestReserve_HoldsStockAndSnapshotsAmounts(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()

	reserve, err := f.service.Reserve(ctx, ReserveRequest{
		Cart:           cartOf(line(f.phone, 1)),
		Customer:       buyer,
		DownPayment:    decimal.NewFromInt(100000),
		ExpirationDate: time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, "R-00001", reserve.ReceiptNumber)
	assert.Equal(t, domain.ReserveStatusReserved, reserve.Status)
	assert.True(t, decimal.NewFromInt(780000).Equal(reserve.PriceARS))
	assert.True(t, decimal.NewFromInt(780).Equal(reserve.PriceUSD))
	assert.True(t, decimal.NewFromInt(680000).Equal(reserve.RemainingAmount))
	assert.True(t, decimal.NewFromInt(100).Equal(reserve.DownPaymentUSD))

	_, exists := f.stockOf(t, f.phone.ID)
	assert.False(t, exists)

	got, err := f.service.GetReserve(ctx, reserve.ID)
	require.NoError(t, err)
	assert.Equal(t, reserve.ReceiptNumber, got.ReceiptNumber)
}

func TestReserve_Validation(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()
	later := time.Now().Add(time.Hour)

	tests := []struct {
		name  string
		req   ReserveRequest
		field string
	}{
		{"two lines", ReserveRequest{Cart: cartOf(line(f.phone, 1), line(f.charger, 1)), Customer: buyer, DownPayment: decimal.NewFromInt(1), ExpirationDate: later}, "cart"},
		{"zero down payment", ReserveRequest{Cart: cartOf(line(f.phone, 1)), Customer: buyer, ExpirationDate: later}, "down_payment"},
		{"down payment above price", ReserveRequest{Cart: cartOf(line(f.phone, 1)), Customer: buyer, DownPayment: decimal.NewFromInt(900000), ExpirationDate: later}, "down_payment"},
		{"expired", ReserveRequest{Cart: cartOf(line(f.phone, 1)), Customer: buyer, DownPayment: decimal.NewFromInt(1), ExpirationDate: time.Now().Add(-time.Hour)}, "expiration_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Reserve(ctx, tt.req)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	s, _ := f.stockOf(t, f.phone.ID)
	assert.Equal(t, 1, s)
}

func TestCompleteReservation_DebitsOnlyUnreservedLines(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()

	reserve, err := f.service.Reserve(ctx, ReserveRequest{
		Cart:           cartOf(line(f.phone, 1)),
		Customer:       buyer,
		DownPayment:    decimal.NewFromInt(100000),
		ExpirationDate: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	sale, err := f.service.CompleteReservation(ctx, reserve.ID, SellRequest{
		Cart:     cartOf(line(f.phone, 1), line(f.funda, 1)),
		Customer: buyer,
		Payment:  domain.Payment{Method: domain.PaymentCash},
	})
	require.NoError(t, err)

	assert.Equal(t, "V-00001", sale.ReceiptNumber)
	require.NotNil(t, sale.ReserveID)
	assert.Equal(t, reserve.ID, *sale.ReserveID)
	assert.True(t, decimal.NewFromInt(795000).Equal(sale.TotalAmount))
	assert.True(t, decimal.NewFromInt(695000).Equal(sale.AmountDue))

	s, _ := f.stockOf(t, f.funda.ID)
	assert.Equal(t, 4, s)

	completed, err := f.service.GetReserve(ctx, reserve.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReserveStatusCompleted, completed.Status)
	require.NotNil(t, completed.SaleID)
	assert.Equal(t, sale.ID, *completed.SaleID)

	_, err = f.service.CompleteReservation(ctx, reserve.ID, SellRequest{
		Cart:     cartOf(line(f.phone, 1)),
		Customer: buyer,
		Payment:  domain.Payment{Method: domain.PaymentCash},
	})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCompleteReservation_CartMustIncludeReservedProduct(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()

	reserve, err := f.service.Reserve(ctx, ReserveRequest{
		Cart:           cartOf(line(f.phone, 1)),
		Customer:       buyer,
		DownPayment:    decimal.NewFromInt(1000),
		ExpirationDate: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = f.service.CompleteReservation(ctx, reserve.ID, SellRequest{
		Cart:     cartOf(line(f.funda, 1)),
		Customer: buyer,
		Payment:  domain.Payment{Method: domain.PaymentCash},
	})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.service.CompleteReservation(ctx, uuid.New(), SellRequest{})
	assert.ErrorIs(t, err, repository.ErrReserveNotFound)
}

func TestCompleteReservation_CartBelowReservedQuantity(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()

	reserve, err := f.service.Reserve(ctx, ReserveRequest{
		Cart:           cartOf(line(f.charger, 3)),
		Customer:       buyer,
		DownPayment:    decimal.NewFromInt(1000),
		ExpirationDate: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = f.service.CompleteReservation(ctx, reserve.ID, SellRequest{
		Cart:     cartOf(line(f.charger, 2)),
		Customer: buyer,
		Payment:  domain.Payment{Method: domain.PaymentCash},
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cart", verr.Field)

	s, _ := f.stockOf(t, f.charger.ID)
	assert.Equal(t, 7, s)

	stillOpen, err := f.service.GetReserve(ctx, reserve.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReserveStatusReserved, stillOpen.Status)
}

func TestTransfer_RejectsUnknownStore(t *testing.T) {
	f := newSaleFixture(t)

	_, err := f.service.Transfer(context.Background(), f.charger.ID, 1, "deposito")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	res, err := f.service.Transfer(context.Background(), f.charger.ID, 4, "sucursal")
	require.NoError(t, err)
	assert.Equal(t, stock.TransferSplit, res.Strategy)
}

// Feature: phone-pos, Property 5: Completing a reservation never debits the reserved units twice
func TestProperty_CompleteReservationDebitsOnce(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("stock after completion equals stock minus the reserved quantity", prop.ForAll(
		func(initial int, reserved int) bool {
			if reserved > initial {
				reserved = initial
			}
			f := newSaleFixture(t)
			ctx := context.Background()
			item := f.addProduct(t, "Auriculares", "Accesorios", 40, initial)

			reserve, err := f.service.Reserve(ctx, ReserveRequest{
				Cart:           cartOf(line(item, reserved)),
				Customer:       buyer,
				DownPayment:    decimal.NewFromInt(1000),
				ExpirationDate: time.Now().Add(time.Hour),
			})
			if err != nil {
				return false
			}

			_, err = f.service.CompleteReservation(ctx, reserve.ID, SellRequest{
				Cart:     cartOf(line(item, reserved)),
				Customer: buyer,
				Payment:  domain.Payment{Method: domain.PaymentCash},
			})
			if err != nil {
				return false
			}

			s, _ := f.stockOf(t, item.ID)
			return s == initial-reserved
		},
		gen.IntRange(1, 10),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
