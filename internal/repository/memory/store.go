// Package memory is an in-process backend implementing every repository
// interface. It is used for development runs and service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"phone-pos/internal/domain"
	"phone-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu          sync.RWMutex
	products    map[uuid.UUID]domain.Product
	categories  map[string]domain.Category // keyed by lower-cased name
	customers   map[uuid.UUID]domain.Customer
	rules       []domain.BundleRule
	reserves    map[uuid.UUID]domain.Reserve
	sales       map[uuid.UUID]domain.Sale
	saleNumbers map[string]bool
	counters    map[string]domain.Counter
	settings    domain.Settings
}

// New returns an empty store with the receipt series seeded at zero.
func New() *Store {
	s := &Store{
		products:    map[uuid.UUID]domain.Product{},
		categories:  map[string]domain.Category{},
		customers:   map[uuid.UUID]domain.Customer{},
		reserves:    map[uuid.UUID]domain.Reserve{},
		sales:       map[uuid.UUID]domain.Sale{},
		saleNumbers: map[string]bool{},
		counters:    map[string]domain.Counter{},
		settings:    domain.Settings{Version: 1, UpdatedAt: time.Now()},
	}
	for _, c := range []domain.Counter{
		{Series: domain.SeriesSale, Prefix: "V-"},
		{Series: domain.SeriesReserve, Prefix: "R-"},
		{Series: domain.SeriesRepair, Prefix: "S-"},
		{Series: domain.SeriesDelivery, Prefix: "E-"},
	} {
		s.counters[c.Series] = c
	}
	return s
}

func (s *Store) Products() repository.ProductRepository       { return productStore{s} }
func (s *Store) Categories() repository.CategoryRepository    { return categoryStore{s} }
func (s *Store) Customers() repository.CustomerRepository     { return customerStore{s} }
func (s *Store) BundleRules() repository.BundleRuleRepository { return ruleStore{s} }
func (s *Store) Reserves() repository.ReserveRepository       { return reserveStore{s} }
func (s *Store) Sales() repository.SaleRepository             { return saleStore{s} }
func (s *Store) Counters() repository.CounterStore            { return counterStore{s} }
func (s *Store) Settings() repository.SettingsRepository      { return settingsStore{s} }

// products

type productStore struct{ s *Store }

func (r productStore) Create(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[p.ID]; ok {
		return repository.ErrProductAlreadyExists
	}
	if p.Version == 0 {
		p.Version = 1
	}
	if p.Stock < 0 {
		p.Stock = 0
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.s.products[p.ID] = *p
	return nil
}

func (r productStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (r productStore) FindByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r productStore) FindIdentical(_ context.Context, product *domain.Product, store string) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var match *domain.Product
	for _, p := range r.s.products {
		if p.ID == product.ID || p.Store != store || !p.SameItem(product) {
			continue
		}
		if match == nil || p.CreatedAt.Before(match.CreatedAt) {
			candidate := p
			match = &candidate
		}
	}
	if match == nil {
		return nil, repository.ErrProductNotFound
	}
	return match, nil
}

func (r productStore) List(_ context.Context, store string) ([]domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Product{}
	for _, p := range r.s.products {
		if store == "" || p.Store == store {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r productStore) UpdateStock(_ context.Context, id uuid.UUID, expectedVersion int64, stock int) error {
	if stock < 0 {
		return domain.NewValidationError("stock", "must not be negative")
	}
	return r.swap(id, expectedVersion, func(p *domain.Product) { p.Stock = stock })
}

func (r productStore) MoveStore(_ context.Context, id uuid.UUID, expectedVersion int64, store string) error {
	return r.swap(id, expectedVersion, func(p *domain.Product) { p.Store = store })
}

func (r productStore) Delete(_ context.Context, id uuid.UUID, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	if p.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	delete(r.s.products, id)
	return nil
}

func (r productStore) swap(id uuid.UUID, expectedVersion int64, mutate func(*domain.Product)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	if p.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	mutate(&p)
	p.Version++
	p.UpdatedAt = time.Now()
	r.s.products[id] = p
	return nil
}

// categories

type categoryStore struct{ s *Store }

func (r categoryStore) Create(_ context.Context, c *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := strings.ToLower(c.Name)
	if _, ok := r.s.categories[key]; ok {
		return repository.ErrCategoryAlreadyExists
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	r.s.categories[key] = *c
	return nil
}

func (r categoryStore) List(_ context.Context) ([]domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r categoryStore) FindByName(_ context.Context, name string) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.categories[strings.ToLower(name)]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return &c, nil
}

// customers

type customerStore struct{ s *Store }

func (r customerStore) Create(_ context.Context, c *domain.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.customers {
		if existing.DNI == c.DNI {
			return repository.ErrCustomerAlreadyExists
		}
	}
	if c.Version == 0 {
		c.Version = 1
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	r.s.customers[c.ID] = *c
	return nil
}

func (r customerStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.customers[id]
	if !ok {
		return nil, repository.ErrCustomerNotFound
	}
	return &c, nil
}

func (r customerStore) FindByDNI(_ context.Context, dni string) (*domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.customers {
		if c.DNI == dni {
			found := c
			return &found, nil
		}
	}
	return nil, repository.ErrCustomerNotFound
}

func (r customerStore) UpdatePoints(_ context.Context, id uuid.UUID, expectedVersion int64, points int) error {
	if points < 0 {
		return domain.NewValidationError("points", "must not be negative")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.customers[id]
	if !ok {
		return repository.ErrCustomerNotFound
	}
	if c.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	c.Points = points
	c.Version++
	c.UpdatedAt = time.Now()
	r.s.customers[id] = c
	return nil
}

// bundle rules

type ruleStore struct{ s *Store }

func (r ruleStore) Create(_ context.Context, rule *domain.BundleRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	copied := *rule
	copied.Accessories = append([]uuid.UUID(nil), rule.Accessories...)
	r.s.rules = append(r.s.rules, copied)
	return nil
}

func (r ruleStore) ListActive(_ context.Context) ([]domain.BundleRule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.BundleRule{}
	for _, rule := range r.s.rules {
		if rule.Active {
			out = append(out, rule)
		}
	}
	return out, nil
}

// reserves

type reserveStore struct{ s *Store }

func (r reserveStore) Create(_ context.Context, reserve *domain.Reserve) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if reserve.Version == 0 {
		reserve.Version = 1
	}
	if reserve.Status == "" {
		reserve.Status = domain.ReserveStatusReserved
	}
	now := time.Now()
	reserve.CreatedAt = now
	reserve.UpdatedAt = now
	r.s.reserves[reserve.ID] = *reserve
	return nil
}

func (r reserveStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Reserve, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	reserve, ok := r.s.reserves[id]
	if !ok {
		return nil, repository.ErrReserveNotFound
	}
	return &reserve, nil
}

func (r reserveStore) Complete(_ context.Context, id uuid.UUID, expectedVersion int64, saleID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reserve, ok := r.s.reserves[id]
	if !ok {
		return repository.ErrReserveNotFound
	}
	if reserve.Version != expectedVersion || reserve.Status != domain.ReserveStatusReserved {
		return repository.ErrVersionConflict
	}
	reserve.Status = domain.ReserveStatusCompleted
	reserve.RemainingAmount = decimal.Zero
	reserve.RemainingUSD = decimal.Zero
	reserve.RemainingARS = decimal.Zero
	reserve.SaleID = &saleID
	reserve.Version++
	reserve.UpdatedAt = time.Now()
	r.s.reserves[id] = reserve
	return nil
}

func (r reserveStore) Reopen(_ context.Context, before *domain.Reserve, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reserve, ok := r.s.reserves[before.ID]
	if !ok {
		return repository.ErrReserveNotFound
	}
	if reserve.Version != expectedVersion || reserve.Status != domain.ReserveStatusCompleted {
		return repository.ErrVersionConflict
	}
	reserve.Status = domain.ReserveStatusReserved
	reserve.RemainingAmount = before.RemainingAmount
	reserve.RemainingUSD = before.RemainingUSD
	reserve.RemainingARS = before.RemainingARS
	reserve.SaleID = nil
	reserve.Version++
	reserve.UpdatedAt = time.Now()
	r.s.reserves[before.ID] = reserve
	return nil
}

// sales

type saleStore struct{ s *Store }

func (r saleStore) Create(_ context.Context, sale *domain.Sale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.saleNumbers[sale.ReceiptNumber] {
		return repository.ErrSaleAlreadyExists
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}
	r.s.sales[sale.ID] = *sale
	r.s.saleNumbers[sale.ReceiptNumber] = true
	return nil
}

func (r saleStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Sale, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sale, ok := r.s.sales[id]
	if !ok {
		return nil, repository.ErrSaleNotFound
	}
	return &sale, nil
}

// counters

type counterStore struct{ s *Store }

func (r counterStore) Get(_ context.Context, series string) (*domain.Counter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.counters[series]
	if !ok {
		return nil, repository.ErrCounterNotFound
	}
	return &c, nil
}

func (r counterStore) CompareAndSwap(_ context.Context, series string, old, new int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.counters[series]
	if !ok {
		return repository.ErrCounterNotFound
	}
	if c.Value != old {
		return repository.ErrVersionConflict
	}
	c.Value = new
	r.s.counters[series] = c
	return nil
}

// settings

type settingsStore struct{ s *Store }

func (r settingsStore) Get(_ context.Context) (*domain.Settings, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	settings := r.s.settings
	return &settings, nil
}

func (r settingsStore) Update(_ context.Context, settings *domain.Settings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if settings.Version != r.s.settings.Version {
		return repository.ErrVersionConflict
	}
	settings.Version++
	settings.UpdatedAt = time.Now()
	r.s.settings = *settings
	return nil
}
