package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tokokita/backend/internal/domain"
	"tokokita/backend/internal/store"
	"tokokita/backend/internal/xid"
)

// Store keeps all state in process memory. It is the demo-mode backend and
// plays the role the device-local key-value storage played in the original
// mobile app: load on start, mutate in memory, nothing survives a restart.
type Store struct {
	mu              sync.RWMutex
	productsBySKU   map[string]domain.Product
	activities      []domain.StockActivity
	salesByID       map[string]*domain.Sale
	salesByIdem     map[string]*domain.Sale
	paymentsBySale  map[string][]domain.CreditPayment
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used and a
// warning is logged. These credentials only exist in demo mode; with
// DATABASE_URL set the postgres user table is authoritative.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	seed := []domain.Product{
		{SKU: "SKU-MIE-01", Name: "Mie Goreng Instan", Category: "grocery", PriceCents: 3500, CostPriceCents: 2700, StockLevel: 120, LowStockThreshold: 30, ReorderPoint: 40},
		{SKU: "SKU-TELUR-01", Name: "Telur 10 Butir", Category: "grocery", PriceCents: 26500, CostPriceCents: 23000, StockLevel: 80, LowStockThreshold: 20, ReorderPoint: 30},
		{SKU: "SKU-SUSU-01", Name: "Susu UHT 1L", Category: "dairy", PriceCents: 18900, CostPriceCents: 13600, StockLevel: 60, LowStockThreshold: 15, ReorderPoint: 25},
		{SKU: "SKU-ROTI-01", Name: "Roti Tawar", Category: "bakery", PriceCents: 17800, CostPriceCents: 12400, StockLevel: 40, LowStockThreshold: 10, ReorderPoint: 15},
		{SKU: "SKU-KOPI-01", Name: "Kopi Sachet", Category: "beverage", PriceCents: 2600, CostPriceCents: 1700, StockLevel: 200, LowStockThreshold: 50, ReorderPoint: 60},
		{SKU: "SKU-GULA-01", Name: "Gula 1kg", Category: "grocery", PriceCents: 17400, CostPriceCents: 15300, StockLevel: 90, LowStockThreshold: 25, ReorderPoint: 35},
		{SKU: "SKU-TEH-01", Name: "Teh Celup", Category: "beverage", PriceCents: 9800, CostPriceCents: 7200, StockLevel: 70, LowStockThreshold: 20, ReorderPoint: 25},
		{SKU: "SKU-AIR-01", Name: "Air Mineral 600ml", Category: "beverage", PriceCents: 3900, CostPriceCents: 3200, StockLevel: 150, LowStockThreshold: 40, ReorderPoint: 50},
		{SKU: "SKU-KERIPIK-01", Name: "Keripik Singkong", Category: "snack", PriceCents: 12800, CostPriceCents: 8000, StockLevel: 50, LowStockThreshold: 15, ReorderPoint: 20},
		{SKU: "SKU-COKLAT-01", Name: "Coklat Batang", Category: "snack", PriceCents: 8600, CostPriceCents: 5600, StockLevel: 65, LowStockThreshold: 15, ReorderPoint: 20},
		{SKU: "SKU-SABUN-01", Name: "Sabun Mandi", Category: "household", PriceCents: 7400, CostPriceCents: 5000, StockLevel: 45, LowStockThreshold: 12, ReorderPoint: 18},
		{SKU: "SKU-SHAMPOO-01", Name: "Shampoo Sachet", Category: "household", PriceCents: 3200, CostPriceCents: 2100, StockLevel: 110, LowStockThreshold: 30, ReorderPoint: 40},
	}

	now := time.Now().UTC()
	products := make(map[string]domain.Product, len(seed))
	for _, p := range seed {
		p.ID = xid.New("prod")
		p.Active = true
		p.CreatedAt = now
		p.UpdatedAt = now
		products[p.SKU] = p
	}

	return &Store{
		productsBySKU:   products,
		activities:      make([]domain.StockActivity, 0, 256),
		salesByID:       make(map[string]*domain.Sale),
		salesByIdem:     make(map[string]*domain.Sale),
		paymentsBySale:  make(map[string][]domain.CreditPayment),
		usersByUsername: seedUsers(),
	}
}

func (s *Store) ListProducts(_ context.Context, includeInactive bool) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsBySKU))
	for _, p := range s.productsBySKU {
		if !includeInactive && !p.Active {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsBySKU[product.SKU]; exists {
		return nil, store.ErrInvalidInput
	}

	now := time.Now().UTC()
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	product.Active = true

	s.productsBySKU[product.SKU] = product
	created := product
	return &created, nil
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.productsBySKU[sku]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.productsBySKU[product.SKU]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Stock level is owned by the activity ledger; updates never touch it.
	product.ID = existing.ID
	product.StockLevel = existing.StockLevel
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()

	s.productsBySKU[product.SKU] = product
	updated := product
	return &updated, nil
}

func (s *Store) ApplyStockChange(_ context.Context, activity domain.StockActivity) (*domain.Product, error) {
	if activity.Quantity < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.productsBySKU[activity.SKU]
	if !exists {
		return nil, store.ErrNotFound
	}

	next := product.StockLevel
	switch activity.Type {
	case domain.StockActivityAdd:
		if activity.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		next += activity.Quantity
	case domain.StockActivityRemove:
		if activity.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		next -= activity.Quantity
		if next < 0 {
			return nil, store.ErrInsufficientStock
		}
	case domain.StockActivityAdjust:
		next = activity.Quantity
	default:
		return nil, store.ErrInvalidInput
	}

	product.StockLevel = next
	product.UpdatedAt = time.Now().UTC()
	s.productsBySKU[activity.SKU] = product

	if activity.ID == "" {
		activity.ID = xid.New("act")
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	activity.ProductID = product.ID
	activity.ResultingStock = next
	s.activities = append(s.activities, activity)

	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) ListStockActivities(_ context.Context, sku string, limit int) ([]domain.StockActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}

	result := make([]domain.StockActivity, 0, limit)
	for _, entry := range s.activities {
		if sku != "" && entry.SKU != sku {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.StockActivity) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.IdempotencyKey == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if existing, ok := s.salesByIdem[sale.IdempotencyKey]; ok {
		return cloneSale(existing), nil
	}

	// Recompute the snapshot from the catalog so totals cannot drift from
	// the stored products, then check stock for every line before touching
	// anything.
	total := int64(0)
	items := make([]domain.SaleItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		if item.Qty < 1 {
			return nil, store.ErrInvalidInput
		}
		product, exists := s.productsBySKU[item.SKU]
		if !exists || !product.Active {
			return nil, fmt.Errorf("%w: sku %s unavailable", store.ErrInvalidInput, item.SKU)
		}
		if product.StockLevel < item.Qty {
			return nil, store.ErrInsufficientStock
		}
		subtotal := int64(item.Qty) * product.PriceCents
		items = append(items, domain.SaleItem{
			ProductID:      product.ID,
			SKU:            product.SKU,
			Name:           product.Name,
			UnitPriceCents: product.PriceCents,
			Qty:            item.Qty,
			SubtotalCents:  subtotal,
		})
		total += subtotal
	}

	if sale.PaidCents < 0 || sale.PaidCents > total {
		return nil, store.ErrInvalidInput
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.Items = items
	sale.TotalCents = total
	sale.BalanceCents = total - sale.PaidCents
	sale.PaymentStatus = domain.DerivePaymentStatus(total, sale.BalanceCents)

	for _, item := range sale.Items {
		product := s.productsBySKU[item.SKU]
		product.StockLevel -= item.Qty
		product.UpdatedAt = sale.CreatedAt
		s.productsBySKU[item.SKU] = product

		s.activities = append(s.activities, domain.StockActivity{
			ID:             xid.New("act"),
			ProductID:      product.ID,
			SKU:            product.SKU,
			Type:           domain.StockActivityRemove,
			Quantity:       item.Qty,
			ResultingStock: product.StockLevel,
			PerformedBy:    sale.CreatedBy,
			Note:           "sale " + sale.ID,
			CreatedAt:      sale.CreatedAt,
		})
	}

	saleCopy := cloneSale(&sale)
	s.salesByID[sale.ID] = saleCopy
	s.salesByIdem[sale.IdempotencyKey] = saleCopy

	return cloneSale(saleCopy), nil
}

func (s *Store) FindSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) FindSaleByIdempotency(_ context.Context, key string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByIdem[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) ListSales(_ context.Context, from time.Time, to time.Time, paymentStatus string, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}

	result := make([]domain.Sale, 0, 64)
	for _, sale := range s.salesByID {
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		if paymentStatus != "" && sale.PaymentStatus != paymentStatus {
			continue
		}
		result = append(result, *cloneSale(sale))
	}

	sortSalesNewestFirst(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListOutstandingSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}

	result := make([]domain.Sale, 0, 64)
	for _, sale := range s.salesByID {
		if sale.BalanceCents < 1 {
			continue
		}
		result = append(result, *cloneSale(sale))
	}

	sortSalesNewestFirst(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateCreditPayment(_ context.Context, payment domain.CreditPayment) (*domain.CreditPayment, *domain.Sale, error) {
	if payment.AmountCents < 1 {
		return nil, nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.salesByID[payment.SaleID]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	if sale.BalanceCents < 1 {
		return nil, nil, fmt.Errorf("%w: sale already settled", store.ErrInvalidInput)
	}
	if payment.AmountCents > sale.BalanceCents {
		return nil, nil, fmt.Errorf("%w: amount exceeds balance", store.ErrInvalidInput)
	}

	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}

	sale.PaidCents += payment.AmountCents
	sale.BalanceCents = sale.TotalCents - sale.PaidCents
	sale.PaymentStatus = domain.DerivePaymentStatus(sale.TotalCents, sale.BalanceCents)

	s.paymentsBySale[sale.ID] = append(s.paymentsBySale[sale.ID], payment)

	createdPayment := payment
	return &createdPayment, cloneSale(sale), nil
}

func (s *Store) ListCreditPayments(_ context.Context, saleID string) ([]domain.CreditPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.salesByID[saleID]; !ok {
		return nil, store.ErrNotFound
	}

	payments := s.paymentsBySale[saleID]
	result := make([]domain.CreditPayment, len(payments))
	copy(result, payments)
	slices.SortFunc(result, func(a, b domain.CreditPayment) int {
		if a.PaidAt.Equal(b.PaidAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.PaidAt.Before(b.PaidAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) GetInventorySummary(_ context.Context) (domain.InventorySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.InventorySummary{}
	for _, p := range s.productsBySKU {
		if !p.Active {
			continue
		}
		summary.TotalProducts++
		summary.TotalUnits += p.StockLevel
		summary.StockValueCents += int64(p.StockLevel) * p.CostPriceCents
		summary.RetailValueCents += int64(p.StockLevel) * p.PriceCents
		if p.StockLevel == 0 {
			summary.OutOfStockCount++
		}
		if p.StockLevel <= p.LowStockThreshold {
			summary.LowStockCount++
		}
	}
	return summary, nil
}

func (s *Store) GetDailySalesSummary(_ context.Context, from time.Time, to time.Time) (domain.DailySalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.DailySalesSummary{
		ByStatus: make([]domain.DailySalesStatus, 0, 3),
	}
	byStatus := map[string]*domain.DailySalesStatus{}

	for _, sale := range s.salesByID {
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		summary.Sales++
		summary.GrossCents += sale.TotalCents
		summary.CollectedCents += sale.PaidCents
		summary.OutstandingCents += sale.BalanceCents

		entry := byStatus[sale.PaymentStatus]
		if entry == nil {
			entry = &domain.DailySalesStatus{PaymentStatus: sale.PaymentStatus}
			byStatus[sale.PaymentStatus] = entry
		}
		entry.Sales++
		entry.TotalCents += sale.TotalCents
	}

	for _, entry := range byStatus {
		summary.ByStatus = append(summary.ByStatus, *entry)
	}
	slices.SortFunc(summary.ByStatus, func(a, b domain.DailySalesStatus) int {
		return cmpString(a.PaymentStatus, b.PaymentStatus)
	})

	return summary, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func validateProduct(product domain.Product) error {
	if product.SKU == "" || product.Name == "" || product.Category == "" {
		return store.ErrInvalidInput
	}
	if product.PriceCents < 1 || product.CostPriceCents < 0 {
		return store.ErrInvalidInput
	}
	if product.StockLevel < 0 || product.LowStockThreshold < 0 || product.ReorderPoint < 0 {
		return store.ErrInvalidInput
	}
	return nil
}

func sortSalesNewestFirst(sales []domain.Sale) {
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneSale(src *domain.Sale) *domain.Sale {
	if src == nil {
		return nil
	}
	dup := *src
	items := make([]domain.SaleItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	return &dup
}
