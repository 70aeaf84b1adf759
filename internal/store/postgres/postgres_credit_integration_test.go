package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"tokokita/backend/internal/domain"
)

func TestCreditSaleSettlementAgainstPostgres(t *testing.T) {
	databaseURL := os.Getenv("TOKOKITA_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set TOKOKITA_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	sku := fmt.Sprintf("SKU-CREDIT-IT-%d", stamp)
	idempotencyKey := fmt.Sprintf("idem-credit-it-%d", stamp)

	product, err := s.CreateProduct(ctx, domain.Product{
		SKU:               sku,
		Name:              "Produk Kredit IT",
		Category:          "snack",
		PriceCents:        12000,
		CostPriceCents:    8000,
		LowStockThreshold: 2,
		ReorderPoint:      4,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if !product.Active || product.StockLevel != 0 {
		t.Fatalf("unexpected created product: %+v", product)
	}

	var saleID string
	t.Cleanup(func() {
		if saleID != "" {
			_, _ = s.db.ExecContext(ctx, `DELETE FROM credit_payments WHERE sale_id = $1`, saleID)
			_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID)
			_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
		}
		_, _ = s.db.ExecContext(ctx, `DELETE FROM stock_activities WHERE sku = $1`, sku)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE sku = $1`, sku)
	})

	if _, err := s.ApplyStockChange(ctx, domain.StockActivity{
		SKU:         sku,
		Type:        domain.StockActivityAdd,
		Quantity:    10,
		PerformedBy: "integration-test",
		Note:        "initial stock",
	}); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	sale, err := s.CreateSale(ctx, domain.Sale{
		Items:          []domain.SaleItem{{SKU: sku, Qty: 3}},
		PaidCents:      10000,
		CustomerName:   "Pelanggan IT",
		IdempotencyKey: idempotencyKey,
		CreatedBy:      "integration-test",
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	saleID = sale.ID

	if sale.TotalCents != 36000 || sale.BalanceCents != 26000 {
		t.Fatalf("unexpected sale totals: %+v", sale)
	}
	if sale.PaymentStatus != domain.PaymentStatusPartial {
		t.Fatalf("expected PARTIAL, got %s", sale.PaymentStatus)
	}

	// Replaying the same idempotency key must not move stock again.
	replay, err := s.CreateSale(ctx, domain.Sale{
		Items:          []domain.SaleItem{{SKU: sku, Qty: 3}},
		PaidCents:      10000,
		IdempotencyKey: idempotencyKey,
		CreatedBy:      "integration-test",
	})
	if err != nil {
		t.Fatalf("replay sale: %v", err)
	}
	if replay.ID != sale.ID {
		t.Fatalf("replay produced a new sale: %s vs %s", replay.ID, sale.ID)
	}

	after, err := s.GetProductBySKU(ctx, sku)
	if err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if after.StockLevel != 7 {
		t.Fatalf("expected stock 7 after single decrement, got %d", after.StockLevel)
	}

	payment, settled, err := s.CreateCreditPayment(ctx, domain.CreditPayment{
		SaleID:      sale.ID,
		AmountCents: 26000,
		Note:        "pelunasan",
		RecordedBy:  "integration-test",
	})
	if err != nil {
		t.Fatalf("credit payment: %v", err)
	}
	if payment.AmountCents != 26000 {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if settled.BalanceCents != 0 || settled.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected settled sale, got %+v", settled)
	}

	if _, _, err := s.CreateCreditPayment(ctx, domain.CreditPayment{
		SaleID:      sale.ID,
		AmountCents: 100,
		RecordedBy:  "integration-test",
	}); err == nil {
		t.Fatal("expected payment against settled sale to fail")
	}
}
