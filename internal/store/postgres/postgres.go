package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tokokita/backend/internal/domain"
	"tokokita/backend/internal/store"
	"tokokita/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, name, category, price_cents, cost_price_cents, stock_level,
			low_stock_threshold, reorder_point, active, created_at, updated_at
		FROM products
		WHERE ($1 OR active = true)
		ORDER BY category, name
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows.Scan, &p); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	product.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, sku, name, category, price_cents, cost_price_cents, stock_level,
			low_stock_threshold, reorder_point, active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, product.ID, product.SKU, product.Name, product.Category, product.PriceCents, product.CostPriceCents,
		product.StockLevel, product.LowStockThreshold, product.ReorderPoint, product.Active, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	var product domain.Product
	err := scanProduct(s.db.QueryRowContext(ctx, `
		SELECT id, sku, name, category, price_cents, cost_price_cents, stock_level,
			low_stock_threshold, reorder_point, active, created_at, updated_at
		FROM products
		WHERE sku = $1
	`, sku).Scan, &product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	// stock_level is deliberately absent: only the activity ledger moves it.
	var updated domain.Product
	err := scanProduct(s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, price_cents = $4, cost_price_cents = $5,
			low_stock_threshold = $6, reorder_point = $7, active = $8, updated_at = now()
		WHERE sku = $1
		RETURNING id, sku, name, category, price_cents, cost_price_cents, stock_level,
			low_stock_threshold, reorder_point, active, created_at, updated_at
	`, product.SKU, product.Name, product.Category, product.PriceCents, product.CostPriceCents,
		product.LowStockThreshold, product.ReorderPoint, product.Active).Scan, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) ApplyStockChange(ctx context.Context, activity domain.StockActivity) (*domain.Product, error) {
	if activity.Quantity < 0 {
		return nil, store.ErrInvalidInput
	}
	switch activity.Type {
	case domain.StockActivityAdd, domain.StockActivityRemove:
		if activity.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
	case domain.StockActivityAdjust:
	default:
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var product domain.Product
	err = scanProduct(tx.QueryRowContext(ctx, `
		SELECT id, sku, name, category, price_cents, cost_price_cents, stock_level,
			low_stock_threshold, reorder_point, active, created_at, updated_at
		FROM products
		WHERE sku = $1
		FOR UPDATE
	`, activity.SKU).Scan, &product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	next := product.StockLevel
	switch activity.Type {
	case domain.StockActivityAdd:
		next += activity.Quantity
	case domain.StockActivityRemove:
		next -= activity.Quantity
		if next < 0 {
			return nil, store.ErrInsufficientStock
		}
	case domain.StockActivityAdjust:
		next = activity.Quantity
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET stock_level = $2, updated_at = now()
		WHERE sku = $1
	`, activity.SKU, next)
	if err != nil {
		return nil, err
	}

	if activity.ID == "" {
		activity.ID = xid.New("act")
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	activity.ProductID = product.ID
	activity.ResultingStock = next

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_activities (
			id, product_id, sku, type, quantity, resulting_stock, performed_by, note, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, activity.ID, activity.ProductID, activity.SKU, activity.Type, activity.Quantity,
		activity.ResultingStock, activity.PerformedBy, activity.Note, activity.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	product.StockLevel = next
	product.UpdatedAt = time.Now().UTC()
	return &product, nil
}

func (s *Store) ListStockActivities(ctx context.Context, sku string, limit int) ([]domain.StockActivity, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, sku, type, quantity, resulting_stock, performed_by, note, created_at
		FROM stock_activities
		WHERE ($1 = '' OR sku = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, sku, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]domain.StockActivity, 0, limit)
	for rows.Next() {
		var entry domain.StockActivity
		if err := rows.Scan(&entry.ID, &entry.ProductID, &entry.SKU, &entry.Type, &entry.Quantity,
			&entry.ResultingStock, &entry.PerformedBy, &entry.Note, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		activities = append(activities, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return activities, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.IdempotencyKey == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	skus := uniqueSKUs(sale.Items)
	if len(skus) == 0 {
		return nil, store.ErrInvalidInput
	}

	productRows, err := pgTx.QueryContext(ctx, `
		SELECT id, sku, name, price_cents, stock_level
		FROM products
		WHERE active = true AND sku = ANY($1)
		FOR UPDATE
	`, skus)
	if err != nil {
		return nil, err
	}
	type productState struct {
		id         string
		name       string
		priceCents int64
		stock      int
	}
	productMap := make(map[string]productState, len(skus))
	for productRows.Next() {
		var state productState
		var sku string
		if err := productRows.Scan(&state.id, &sku, &state.name, &state.priceCents, &state.stock); err != nil {
			_ = productRows.Close()
			return nil, err
		}
		productMap[sku] = state
	}
	if err := productRows.Err(); err != nil {
		_ = productRows.Close()
		return nil, err
	}
	_ = productRows.Close()

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	totalCents := int64(0)
	recomputedItems := make([]domain.SaleItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		if item.Qty < 1 {
			return nil, store.ErrInvalidInput
		}

		product, exists := productMap[item.SKU]
		if !exists {
			return nil, fmt.Errorf("%w: sku %s unavailable", store.ErrInvalidInput, item.SKU)
		}
		if product.stock < item.Qty {
			return nil, store.ErrInsufficientStock
		}

		remaining := product.stock - item.Qty
		_, err = pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock_level = $2, updated_at = now()
			WHERE sku = $1
		`, item.SKU, remaining)
		if err != nil {
			return nil, err
		}

		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO stock_activities (
				id, product_id, sku, type, quantity, resulting_stock, performed_by, note, created_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, xid.New("act"), product.id, item.SKU, domain.StockActivityRemove, item.Qty,
			remaining, sale.CreatedBy, "sale "+sale.ID, sale.CreatedAt)
		if err != nil {
			return nil, err
		}

		product.stock = remaining
		productMap[item.SKU] = product

		subtotal := product.priceCents * int64(item.Qty)
		recomputedItems = append(recomputedItems, domain.SaleItem{
			ProductID:      product.id,
			SKU:            item.SKU,
			Name:           product.name,
			UnitPriceCents: product.priceCents,
			Qty:            item.Qty,
			SubtotalCents:  subtotal,
		})
		totalCents += subtotal
	}

	if sale.PaidCents < 0 || sale.PaidCents > totalCents {
		return nil, store.ErrInvalidInput
	}

	sale.Items = recomputedItems
	sale.TotalCents = totalCents
	sale.BalanceCents = totalCents - sale.PaidCents
	sale.PaymentStatus = domain.DerivePaymentStatus(totalCents, sale.BalanceCents)

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO sales (
			id, idempotency_key, total_cents, paid_cents, balance_cents,
			payment_status, customer_name, created_by, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, sale.ID, sale.IdempotencyKey, sale.TotalCents, sale.PaidCents, sale.BalanceCents,
		sale.PaymentStatus, nullIfEmpty(sale.CustomerName), sale.CreatedBy, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := s.FindSaleByIdempotency(ctx, sale.IdempotencyKey)
			if lookupErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	for _, item := range sale.Items {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, sku, name, unit_price_cents, qty, subtotal_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, sale.ID, item.ProductID, item.SKU, item.Name, item.UnitPriceCents, item.Qty, item.SubtotalCents)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return &sale, nil
}

func (s *Store) FindSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	return s.findSale(ctx, "id", id)
}

func (s *Store) FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error) {
	return s.findSale(ctx, "idempotency_key", key)
}

func (s *Store) findSale(ctx context.Context, column string, value string) (*domain.Sale, error) {
	if column != "id" && column != "idempotency_key" {
		return nil, fmt.Errorf("unsupported lookup column")
	}

	var sale domain.Sale
	var customerName sql.NullString

	query := fmt.Sprintf(`
		SELECT id, idempotency_key, total_cents, paid_cents, balance_cents,
			payment_status, customer_name, created_by, created_at
		FROM sales
		WHERE %s = $1
	`, column)

	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&sale.ID,
		&sale.IdempotencyKey,
		&sale.TotalCents,
		&sale.PaidCents,
		&sale.BalanceCents,
		&sale.PaymentStatus,
		&customerName,
		&sale.CreatedBy,
		&sale.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if customerName.Valid {
		sale.CustomerName = customerName.String
	}
	sale.CreatedAt = sale.CreatedAt.UTC()

	items, err := s.loadSaleItems(ctx, []string{sale.ID})
	if err != nil {
		return nil, err
	}
	sale.Items = items[sale.ID]

	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time, paymentStatus string, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, idempotency_key, total_cents, paid_cents, balance_cents,
			payment_status, customer_name, created_by, created_at
		FROM sales
		WHERE created_at >= $1
			AND created_at < $2
			AND ($3 = '' OR payment_status = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, from, to, paymentStatus, limit)
	if err != nil {
		return nil, err
	}

	return s.collectSales(ctx, rows)
}

func (s *Store) ListOutstandingSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, idempotency_key, total_cents, paid_cents, balance_cents,
			payment_status, customer_name, created_by, created_at
		FROM sales
		WHERE balance_cents > 0
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}

	return s.collectSales(ctx, rows)
}

func (s *Store) collectSales(ctx context.Context, rows *sql.Rows) ([]domain.Sale, error) {
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	ids := make([]string, 0, 64)
	for rows.Next() {
		var sale domain.Sale
		var customerName sql.NullString
		if err := rows.Scan(&sale.ID, &sale.IdempotencyKey, &sale.TotalCents, &sale.PaidCents,
			&sale.BalanceCents, &sale.PaymentStatus, &customerName, &sale.CreatedBy, &sale.CreatedAt); err != nil {
			return nil, err
		}
		if customerName.Valid {
			sale.CustomerName = customerName.String
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return sales, nil
	}

	itemMap, err := s.loadSaleItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i].Items = itemMap[sales[i].ID]
	}
	return sales, nil
}

func (s *Store) loadSaleItems(ctx context.Context, saleIDs []string) (map[string][]domain.SaleItem, error) {
	itemMap := make(map[string][]domain.SaleItem, len(saleIDs))
	if len(saleIDs) == 0 {
		return itemMap, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, product_id, sku, name, unit_price_cents, qty, subtotal_cents
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY id ASC
	`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var saleID string
		var item domain.SaleItem
		if err := rows.Scan(&saleID, &item.ProductID, &item.SKU, &item.Name, &item.UnitPriceCents, &item.Qty, &item.SubtotalCents); err != nil {
			return nil, err
		}
		itemMap[saleID] = append(itemMap[saleID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return itemMap, nil
}

func (s *Store) CreateCreditPayment(ctx context.Context, payment domain.CreditPayment) (*domain.CreditPayment, *domain.Sale, error) {
	if payment.AmountCents < 1 {
		return nil, nil, store.ErrInvalidInput
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var totalCents, paidCents, balanceCents int64
	err = pgTx.QueryRowContext(ctx, `
		SELECT total_cents, paid_cents, balance_cents
		FROM sales
		WHERE id = $1
		FOR UPDATE
	`, payment.SaleID).Scan(&totalCents, &paidCents, &balanceCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, err
	}
	if balanceCents < 1 {
		return nil, nil, fmt.Errorf("%w: sale already settled", store.ErrInvalidInput)
	}
	if payment.AmountCents > balanceCents {
		return nil, nil, fmt.Errorf("%w: amount exceeds balance", store.ErrInvalidInput)
	}

	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO credit_payments (id, sale_id, amount_cents, note, recorded_by, paid_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, payment.ID, payment.SaleID, payment.AmountCents, payment.Note, payment.RecordedBy, payment.PaidAt)
	if err != nil {
		return nil, nil, err
	}

	newPaid := paidCents + payment.AmountCents
	newBalance := totalCents - newPaid
	newStatus := domain.DerivePaymentStatus(totalCents, newBalance)

	_, err = pgTx.ExecContext(ctx, `
		UPDATE sales
		SET paid_cents = $2, balance_cents = $3, payment_status = $4
		WHERE id = $1
	`, payment.SaleID, newPaid, newBalance, newStatus)
	if err != nil {
		return nil, nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, nil, err
	}

	sale, err := s.FindSaleByID(ctx, payment.SaleID)
	if err != nil {
		return nil, nil, err
	}
	return &payment, sale, nil
}

func (s *Store) ListCreditPayments(ctx context.Context, saleID string) ([]domain.CreditPayment, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM sales WHERE id = $1)
	`, saleID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, amount_cents, note, recorded_by, paid_at
		FROM credit_payments
		WHERE sale_id = $1
		ORDER BY paid_at ASC, id ASC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.CreditPayment, 0, 8)
	for rows.Next() {
		var payment domain.CreditPayment
		if err := rows.Scan(&payment.ID, &payment.SaleID, &payment.AmountCents, &payment.Note, &payment.RecordedBy, &payment.PaidAt); err != nil {
			return nil, err
		}
		payment.PaidAt = payment.PaidAt.UTC()
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) GetInventorySummary(ctx context.Context) (domain.InventorySummary, error) {
	var summary domain.InventorySummary
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*)::int,
			COALESCE(SUM(stock_level),0)::int,
			COALESCE(SUM(stock_level::bigint * cost_price_cents),0)::bigint,
			COALESCE(SUM(stock_level::bigint * price_cents),0)::bigint,
			COALESCE(SUM(CASE WHEN stock_level <= low_stock_threshold THEN 1 ELSE 0 END),0)::int,
			COALESCE(SUM(CASE WHEN stock_level = 0 THEN 1 ELSE 0 END),0)::int
		FROM products
		WHERE active = true
	`).Scan(
		&summary.TotalProducts,
		&summary.TotalUnits,
		&summary.StockValueCents,
		&summary.RetailValueCents,
		&summary.LowStockCount,
		&summary.OutOfStockCount,
	)
	if err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Store) GetDailySalesSummary(ctx context.Context, from time.Time, to time.Time) (domain.DailySalesSummary, error) {
	summary := domain.DailySalesSummary{
		ByStatus: make([]domain.DailySalesStatus, 0, 3),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*)::bigint,
			COALESCE(SUM(total_cents),0)::bigint,
			COALESCE(SUM(paid_cents),0)::bigint,
			COALESCE(SUM(balance_cents),0)::bigint
		FROM sales
		WHERE created_at >= $1
			AND created_at < $2
	`, from, to).Scan(
		&summary.Sales,
		&summary.GrossCents,
		&summary.CollectedCents,
		&summary.OutstandingCents,
	)
	if err != nil {
		return summary, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_status, COUNT(*)::bigint, COALESCE(SUM(total_cents),0)::bigint
		FROM sales
		WHERE created_at >= $1
			AND created_at < $2
		GROUP BY payment_status
		ORDER BY payment_status
	`, from, to)
	if err != nil {
		return summary, err
	}
	defer rows.Close()

	for rows.Next() {
		var row domain.DailySalesStatus
		if err := rows.Scan(&row.PaymentStatus, &row.Sales, &row.TotalCents); err != nil {
			return summary, err
		}
		summary.ByStatus = append(summary.ByStatus, row)
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}

	return summary, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanProduct(scan func(dest ...any) error, p *domain.Product) error {
	if err := scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.PriceCents, &p.CostPriceCents,
		&p.StockLevel, &p.LowStockThreshold, &p.ReorderPoint, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
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

func uniqueSKUs(items []domain.SaleItem) []string {
	if len(items) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.SKU == "" {
			continue
		}
		set[item.SKU] = struct{}{}
	}

	skus := make([]string, 0, len(set))
	for sku := range set {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
