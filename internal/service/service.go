package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"tokokita/backend/internal/cache"
	"tokokita/backend/internal/domain"
	"tokokita/backend/internal/store"
	"tokokita/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const summaryCacheKey = "reports:inventory-summary"

type Service struct {
	repo       store.Repository
	summaries  cache.SummaryCache
	summaryTTL time.Duration
}

func New(repo store.Repository, summaries cache.SummaryCache, summaryTTL time.Duration) *Service {
	if summaries == nil {
		summaries = cache.NoopSummaryCache{}
	}
	if summaryTTL <= 0 {
		summaryTTL = 30 * time.Second
	}

	return &Service{
		repo:       repo,
		summaries:  summaries,
		summaryTTL: summaryTTL,
	}
}

func (s *Service) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	if includeInactive {
		actor, ok := ActorFromContext(ctx)
		if !ok || actor.Role != domain.RoleAdmin {
			includeInactive = false
		}
	}
	return s.repo.ListProducts(ctx, includeInactive)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)

	if req.SKU == "" || req.Name == "" || req.Category == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.PriceCents < 1 || req.CostPriceCents < 0 || req.InitialStock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.LowStockThreshold < 0 || req.ReorderPoint < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	product := domain.Product{
		SKU:               req.SKU,
		Name:              req.Name,
		Category:          req.Category,
		PriceCents:        req.PriceCents,
		CostPriceCents:    req.CostPriceCents,
		LowStockThreshold: req.LowStockThreshold,
		ReorderPoint:      req.ReorderPoint,
		Active:            true,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	if req.InitialStock > 0 {
		updated, err := s.repo.ApplyStockChange(ctx, domain.StockActivity{
			ID:          xid.New("act"),
			SKU:         created.SKU,
			Type:        domain.StockActivityAdd,
			Quantity:    req.InitialStock,
			PerformedBy: actor.Username,
			Note:        "initial stock",
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			return domain.Product{}, err
		}
		created = updated
	}

	return *created, nil
}

func (s *Service) GetProduct(ctx context.Context, sku string) (domain.Product, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	product, err := s.repo.GetProductBySKU(ctx, sku)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, sku string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return domain.Product{}, store.ErrInvalidInput
	}

	existing, err := s.repo.GetProductBySKU(ctx, sku)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Category = category
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.CostPriceCents != nil {
		if *req.CostPriceCents < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.CostPriceCents = *req.CostPriceCents
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.LowStockThreshold = *req.LowStockThreshold
	}
	if req.ReorderPoint != nil {
		if *req.ReorderPoint < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.ReorderPoint = *req.ReorderPoint
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	return *saved, nil
}

// DeactivateProduct is the soft delete: the product disappears from the
// default catalog listing but its sales history and ledger rows survive.
func (s *Service) DeactivateProduct(ctx context.Context, sku string) (domain.Product, error) {
	inactive := false
	return s.UpdateProduct(ctx, sku, domain.ProductUpdateRequest{Active: &inactive})
}

func (s *Service) AdjustStock(ctx context.Context, req domain.StockAdjustRequest) (domain.StockAdjustResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.StockAdjustResponse{}, fmt.Errorf("admin role required")
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))
	req.Note = strings.TrimSpace(req.Note)
	if req.SKU == "" {
		return domain.StockAdjustResponse{}, store.ErrInvalidInput
	}

	switch req.Type {
	case domain.StockActivityAdd, domain.StockActivityRemove:
		if req.Quantity < 1 {
			return domain.StockAdjustResponse{}, store.ErrInvalidInput
		}
	case domain.StockActivityAdjust:
		if req.Quantity < 0 {
			return domain.StockAdjustResponse{}, store.ErrInvalidInput
		}
	default:
		return domain.StockAdjustResponse{}, store.ErrInvalidInput
	}

	activity := domain.StockActivity{
		ID:          xid.New("act"),
		SKU:         req.SKU,
		Type:        req.Type,
		Quantity:    req.Quantity,
		PerformedBy: actor.Username,
		Note:        req.Note,
		CreatedAt:   time.Now().UTC(),
	}

	product, err := s.repo.ApplyStockChange(ctx, activity)
	if err != nil {
		return domain.StockAdjustResponse{}, err
	}

	activity.ProductID = product.ID
	activity.ResultingStock = product.StockLevel

	return domain.StockAdjustResponse{Product: *product, Activity: activity}, nil
}

func (s *Service) ListStockActivities(ctx context.Context, sku string, limit int) (domain.StockActivityListResponse, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if limit < 1 {
		limit = 100
	}

	activities, err := s.repo.ListStockActivities(ctx, sku, limit)
	if err != nil {
		return domain.StockActivityListResponse{}, err
	}
	return domain.StockActivityListResponse{Activities: activities}, nil
}

func (s *Service) LowStockReport(ctx context.Context) (domain.LowStockResponse, error) {
	products, err := s.repo.ListProducts(ctx, false)
	if err != nil {
		return domain.LowStockResponse{}, err
	}

	items := make([]domain.LowStockItem, 0, 24)
	for _, product := range products {
		if product.StockLevel > product.LowStockThreshold {
			continue
		}
		targetStock := product.ReorderPoint * 2
		suggested := targetStock - product.StockLevel
		if suggested < 0 {
			suggested = 0
		}
		items = append(items, domain.LowStockItem{
			ProductID:         product.ID,
			SKU:               product.SKU,
			Name:              product.Name,
			Category:          product.Category,
			StockLevel:        product.StockLevel,
			LowStockThreshold: product.LowStockThreshold,
			ReorderPoint:      product.ReorderPoint,
			SuggestedOrderQty: suggested,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].StockLevel == items[j].StockLevel {
			return items[i].SKU < items[j].SKU
		}
		return items[i].StockLevel < items[j].StockLevel
	})

	return domain.LowStockResponse{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Items:       items,
	}, nil
}

func (s *Service) RecordSale(ctx context.Context, req domain.SaleCreateRequest) (domain.SaleResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.SaleResponse{}, fmt.Errorf("authenticated user required")
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = xid.New("idem")
	}
	if req.PaidCents < 0 {
		return domain.SaleResponse{}, store.ErrInvalidInput
	}

	normalized := normalizeLines(req.Items)
	if len(normalized) == 0 {
		return domain.SaleResponse{}, store.ErrInvalidInput
	}

	if existing, err := s.repo.FindSaleByIdempotency(ctx, req.IdempotencyKey); err == nil {
		return domain.SaleResponse{Sale: *existing, Duplicate: true}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.SaleResponse{}, err
	}

	items := make([]domain.SaleItem, 0, len(normalized))
	for _, line := range normalized {
		items = append(items, domain.SaleItem{SKU: line.SKU, Qty: line.Qty})
	}

	sale := domain.Sale{
		ID:             xid.New("sale"),
		Items:          items,
		PaidCents:      req.PaidCents,
		CustomerName:   strings.TrimSpace(req.CustomerName),
		IdempotencyKey: req.IdempotencyKey,
		CreatedBy:      actor.Username,
		CreatedAt:      time.Now().UTC(),
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	s.invalidateSummary(ctx)

	return domain.SaleResponse{Sale: *created, Duplicate: false}, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Sale{}, store.ErrInvalidInput
	}
	sale, err := s.repo.FindSaleByID(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, date string, paymentStatus string, limit int) (domain.SaleListResponse, error) {
	paymentStatus = strings.ToUpper(strings.TrimSpace(paymentStatus))
	switch paymentStatus {
	case "", domain.PaymentStatusPaid, domain.PaymentStatusPartial, domain.PaymentStatusCredit:
	default:
		return domain.SaleListResponse{}, store.ErrInvalidInput
	}
	if limit < 1 {
		limit = 100
	}

	from, to, err := dayWindow(date)
	if err != nil {
		return domain.SaleListResponse{}, err
	}

	sales, err := s.repo.ListSales(ctx, from, to, paymentStatus, limit)
	if err != nil {
		return domain.SaleListResponse{}, err
	}
	return domain.SaleListResponse{Sales: sales}, nil
}

func (s *Service) RecordCreditPayment(ctx context.Context, saleID string, req domain.CreditPaymentRequest) (domain.CreditPaymentResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.CreditPaymentResponse{}, fmt.Errorf("authenticated user required")
	}

	saleID = strings.TrimSpace(saleID)
	if saleID == "" || req.AmountCents < 1 {
		return domain.CreditPaymentResponse{}, store.ErrInvalidInput
	}

	payment := domain.CreditPayment{
		ID:          xid.New("pay"),
		SaleID:      saleID,
		AmountCents: req.AmountCents,
		Note:        strings.TrimSpace(req.Note),
		RecordedBy:  actor.Username,
		PaidAt:      time.Now().UTC(),
	}

	created, sale, err := s.repo.CreateCreditPayment(ctx, payment)
	if err != nil {
		return domain.CreditPaymentResponse{}, err
	}

	return domain.CreditPaymentResponse{Payment: *created, Sale: *sale}, nil
}

func (s *Service) ListCreditPayments(ctx context.Context, saleID string) (domain.CreditPaymentListResponse, error) {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return domain.CreditPaymentListResponse{}, store.ErrInvalidInput
	}

	payments, err := s.repo.ListCreditPayments(ctx, saleID)
	if err != nil {
		return domain.CreditPaymentListResponse{}, err
	}
	return domain.CreditPaymentListResponse{Payments: payments}, nil
}

func (s *Service) OutstandingSales(ctx context.Context, limit int) (domain.OutstandingSalesResponse, error) {
	if limit < 1 {
		limit = 100
	}

	sales, err := s.repo.ListOutstandingSales(ctx, limit)
	if err != nil {
		return domain.OutstandingSalesResponse{}, err
	}

	outstanding := int64(0)
	for _, sale := range sales {
		outstanding += sale.BalanceCents
	}

	return domain.OutstandingSalesResponse{Sales: sales, OutstandingCents: outstanding}, nil
}

func (s *Service) InventorySummary(ctx context.Context) (domain.InventorySummary, error) {
	if cached, found, err := s.summaries.Get(ctx, summaryCacheKey); err != nil {
		log.Printf("[service] WARN: summary cache read failed: %v", err)
	} else if found {
		return *cached, nil
	}

	summary, err := s.repo.GetInventorySummary(ctx)
	if err != nil {
		return domain.InventorySummary{}, err
	}
	summary.GeneratedAt = time.Now().UTC().Format(time.RFC3339)

	if err := s.summaries.Set(ctx, summaryCacheKey, &summary, s.summaryTTL); err != nil {
		log.Printf("[service] WARN: summary cache write failed: %v", err)
	}

	return summary, nil
}

func (s *Service) DailySales(ctx context.Context, date string) (domain.DailySalesSummary, error) {
	var day time.Time
	if strings.TrimSpace(date) == "" {
		now := time.Now().UTC()
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return domain.DailySalesSummary{}, store.ErrInvalidInput
		}
		day = parsed.UTC()
	}
	from := day
	to := from.Add(24 * time.Hour)

	summary, err := s.repo.GetDailySalesSummary(ctx, from, to)
	if err != nil {
		return domain.DailySalesSummary{}, err
	}
	summary.Date = from.Format("2006-01-02")
	return summary, nil
}

// invalidateSummary overwrites the cached inventory summary with a fresh one
// after stock levels change. Failures only cost cache freshness, so they are
// logged and swallowed.
func (s *Service) invalidateSummary(ctx context.Context) {
	summary, err := s.repo.GetInventorySummary(ctx)
	if err != nil {
		log.Printf("[service] WARN: summary refresh failed: %v", err)
		return
	}
	summary.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	if err := s.summaries.Set(ctx, summaryCacheKey, &summary, s.summaryTTL); err != nil {
		log.Printf("[service] WARN: summary cache write failed: %v", err)
	}
}

func normalizeLines(lines []domain.SaleLine) []domain.SaleLine {
	agg := make(map[string]int, len(lines))
	order := make([]string, 0, len(lines))
	for _, line := range lines {
		sku := strings.ToUpper(strings.TrimSpace(line.SKU))
		if sku == "" || line.Qty < 1 {
			continue
		}
		if _, seen := agg[sku]; !seen {
			order = append(order, sku)
		}
		agg[sku] += line.Qty
	}

	normalized := make([]domain.SaleLine, 0, len(agg))
	for _, sku := range order {
		normalized = append(normalized, domain.SaleLine{SKU: sku, Qty: agg[sku]})
	}
	return normalized
}

func dayWindow(date string) (time.Time, time.Time, error) {
	if strings.TrimSpace(date) == "" {
		to := time.Now().UTC().Add(time.Minute)
		return time.Time{}, to, nil
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, time.Time{}, store.ErrInvalidInput
	}
	from := parsed.UTC()
	return from, from.Add(24 * time.Hour), nil
}
