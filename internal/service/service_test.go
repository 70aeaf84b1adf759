package service

import (
	"context"
	"errors"
	"testing"

	"tokokita/backend/internal/domain"
	"tokokita/backend/internal/store"
	"tokokita/backend/internal/store/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(memory.NewSeeded(), nil, 0)
}

func adminContext() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin})
}

func cashierContext() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: domain.RoleCashier})
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateProduct(cashierContext(), domain.ProductCreateRequest{
		SKU: "SKU-NEW-01", Name: "Minyak Goreng 1L", Category: "grocery", PriceCents: 21500,
	})
	if err == nil {
		t.Fatal("expected cashier product creation to be rejected")
	}

	created, err := svc.CreateProduct(adminContext(), domain.ProductCreateRequest{
		SKU: "sku-new-01", Name: "Minyak Goreng 1L", Category: "grocery",
		PriceCents: 21500, CostPriceCents: 18000, InitialStock: 24,
		LowStockThreshold: 6, ReorderPoint: 10,
	})
	if err != nil {
		t.Fatalf("admin create failed: %v", err)
	}
	if created.SKU != "SKU-NEW-01" {
		t.Fatalf("expected sku uppercased, got %q", created.SKU)
	}
	if created.StockLevel != 24 {
		t.Fatalf("expected initial stock 24, got %d", created.StockLevel)
	}

	resp, err := svc.ListStockActivities(adminContext(), "SKU-NEW-01", 10)
	if err != nil {
		t.Fatalf("list activities failed: %v", err)
	}
	if len(resp.Activities) != 1 || resp.Activities[0].Type != domain.StockActivityAdd {
		t.Fatalf("expected one ADD activity for initial stock, got %+v", resp.Activities)
	}
}

func TestUpdateProductNeverTouchesStockLevel(t *testing.T) {
	svc := newTestService(t)

	before, err := svc.GetProduct(adminContext(), "SKU-MIE-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}

	newPrice := int64(3900)
	updated, err := svc.UpdateProduct(adminContext(), "SKU-MIE-01", domain.ProductUpdateRequest{PriceCents: &newPrice})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.PriceCents != 3900 {
		t.Fatalf("expected price 3900, got %d", updated.PriceCents)
	}
	if updated.StockLevel != before.StockLevel {
		t.Fatalf("stock level changed via product update: %d -> %d", before.StockLevel, updated.StockLevel)
	}
}

func TestDeactivateProductHidesFromDefaultListing(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.DeactivateProduct(adminContext(), "SKU-MIE-01"); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	products, err := svc.ListProducts(cashierContext(), false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, p := range products {
		if p.SKU == "SKU-MIE-01" {
			t.Fatal("deactivated product still in default listing")
		}
	}

	// A cashier asking for inactive products is quietly downgraded.
	products, err = svc.ListProducts(cashierContext(), true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, p := range products {
		if !p.Active {
			t.Fatal("cashier listing included inactive products")
		}
	}

	products, err = svc.ListProducts(adminContext(), true)
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	found := false
	for _, p := range products {
		if p.SKU == "SKU-MIE-01" && !p.Active {
			found = true
		}
	}
	if !found {
		t.Fatal("admin listing with include_inactive missed the deactivated product")
	}
}

func TestAdjustStockSemantics(t *testing.T) {
	svc := newTestService(t)
	ctx := adminContext()

	before, _ := svc.GetProduct(ctx, "SKU-ROTI-01")

	resp, err := svc.AdjustStock(ctx, domain.StockAdjustRequest{SKU: "SKU-ROTI-01", Type: "ADD", Quantity: 10, Note: "restock"})
	if err != nil {
		t.Fatalf("ADD failed: %v", err)
	}
	if resp.Product.StockLevel != before.StockLevel+10 {
		t.Fatalf("ADD: expected %d, got %d", before.StockLevel+10, resp.Product.StockLevel)
	}
	if resp.Activity.ResultingStock != resp.Product.StockLevel {
		t.Fatalf("activity resulting stock %d does not match product %d", resp.Activity.ResultingStock, resp.Product.StockLevel)
	}

	resp, err = svc.AdjustStock(ctx, domain.StockAdjustRequest{SKU: "SKU-ROTI-01", Type: "ADJUST", Quantity: 7, Note: "stock opname"})
	if err != nil {
		t.Fatalf("ADJUST failed: %v", err)
	}
	if resp.Product.StockLevel != 7 {
		t.Fatalf("ADJUST: expected absolute level 7, got %d", resp.Product.StockLevel)
	}

	_, err = svc.AdjustStock(ctx, domain.StockAdjustRequest{SKU: "SKU-ROTI-01", Type: "REMOVE", Quantity: 8})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock removing 8 of 7, got %v", err)
	}

	// Rejected removal must not have moved the level.
	after, _ := svc.GetProduct(ctx, "SKU-ROTI-01")
	if after.StockLevel != 7 {
		t.Fatalf("stock moved after rejected removal: %d", after.StockLevel)
	}
}

func TestAdjustStockValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := adminContext()

	cases := []domain.StockAdjustRequest{
		{SKU: "SKU-ROTI-01", Type: "ADD", Quantity: 0},
		{SKU: "SKU-ROTI-01", Type: "REMOVE", Quantity: -3},
		{SKU: "SKU-ROTI-01", Type: "ADJUST", Quantity: -1},
		{SKU: "SKU-ROTI-01", Type: "TRANSFER", Quantity: 5},
		{SKU: "", Type: "ADD", Quantity: 5},
	}
	for _, req := range cases {
		if _, err := svc.AdjustStock(ctx, req); !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", req, err)
		}
	}

	if _, err := svc.AdjustStock(cashierContext(), domain.StockAdjustRequest{SKU: "SKU-ROTI-01", Type: "ADD", Quantity: 1}); err == nil {
		t.Fatal("expected cashier stock adjustment to be rejected")
	}
}

func TestRecordSaleDerivesBalanceAndStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := cashierContext()

	// Two units of Mie Goreng at 3500 each: total 7000.
	full, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		Items:     []domain.SaleLine{{SKU: "SKU-MIE-01", Qty: 2}},
		PaidCents: 7000,
	})
	if err != nil {
		t.Fatalf("paid sale failed: %v", err)
	}
	if full.Sale.TotalCents != 7000 || full.Sale.BalanceCents != 0 || full.Sale.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("unexpected paid sale: %+v", full.Sale)
	}

	partial, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		Items:        []domain.SaleLine{{SKU: "SKU-MIE-01", Qty: 2}},
		PaidCents:    3000,
		CustomerName: "Bu Sari",
	})
	if err != nil {
		t.Fatalf("partial sale failed: %v", err)
	}
	if partial.Sale.BalanceCents != 4000 || partial.Sale.PaymentStatus != domain.PaymentStatusPartial {
		t.Fatalf("unexpected partial sale: %+v", partial.Sale)
	}

	credit, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		Items:     []domain.SaleLine{{SKU: "SKU-MIE-01", Qty: 1}},
		PaidCents: 0,
	})
	if err != nil {
		t.Fatalf("credit sale failed: %v", err)
	}
	if credit.Sale.BalanceCents != 3500 || credit.Sale.PaymentStatus != domain.PaymentStatusCredit {
		t.Fatalf("unexpected credit sale: %+v", credit.Sale)
	}
}

func TestRecordSaleDecrementsStockAndLogsActivity(t *testing.T) {
	svc := newTestService(t)
	ctx := cashierContext()

	before, _ := svc.GetProduct(ctx, "SKU-KOPI-01")

	resp, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		Items:     []domain.SaleLine{{SKU: "sku-kopi-01", Qty: 5}},
		PaidCents: 13000,
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	after, _ := svc.GetProduct(ctx, "SKU-KOPI-01")
	if after.StockLevel != before.StockLevel-5 {
		t.Fatalf("expected stock %d, got %d", before.StockLevel-5, after.StockLevel)
	}

	activities, err := svc.ListStockActivities(ctx, "SKU-KOPI-01", 10)
	if err != nil {
		t.Fatalf("list activities failed: %v", err)
	}
	if len(activities.Activities) != 1 {
		t.Fatalf("expected one REMOVE activity, got %d", len(activities.Activities))
	}
	entry := activities.Activities[0]
	if entry.Type != domain.StockActivityRemove || entry.Quantity != 5 {
		t.Fatalf("unexpected activity: %+v", entry)
	}
	if entry.Note != "sale "+resp.Sale.ID {
		t.Fatalf("expected sale reference in note, got %q", entry.Note)
	}
}

func TestRecordSaleRejectsOverselling(t *testing.T) {
	svc := newTestService(t)
	ctx := cashierContext()

	before, _ := svc.GetProduct(ctx, "SKU-SABUN-01")

	_, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		Items:     []domain.SaleLine{{SKU: "SKU-SABUN-01", Qty: before.StockLevel + 1}},
		PaidCents: 0,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	after, _ := svc.GetProduct(ctx, "SKU-SABUN-01")
	if after.StockLevel != before.StockLevel {
		t.Fatalf("stock moved after rejected sale: %d -> %d", before.StockLevel, after.StockLevel)
	}
}

func TestRecordSaleRejectsOverpayment(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RecordSale(cashierContext(), domain.SaleCreateRequest{
		Items:     []domain.SaleLine{{SKU: "SKU-MIE-01", Qty: 1}},
		PaidCents: 9999,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for paid > total, got %v", err)
	}
}

func TestRecordSaleIdempotentReplay(t *testing.T) {
	svc := newTestService(t)
	ctx := cashierContext()

	req := domain.SaleCreateRequest{
		Items:          []domain.SaleLine{{SKU: "SKU-TEH-01", Qty: 3}},
		PaidCents:      29400,
		IdempotencyKey: "pos-device-7:txn-42",
	}

	first, err := svc.RecordSale(ctx, req)
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if first.Duplicate {
		t.Fatal("first submit flagged as duplicate")
	}

	second, err := svc.RecordSale(ctx, req)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !second.Duplicate {
		t.Fatal("replay not flagged as duplicate")
	}
	if second.Sale.ID != first.Sale.ID {
		t.Fatalf("replay returned a different sale: %s vs %s", second.Sale.ID, first.Sale.ID)
	}

	// Stock must only have moved once.
	product, _ := svc.GetProduct(ctx, "SKU-TEH-01")
	if product.StockLevel != 70-3 {
		t.Fatalf("expected stock 67 after single decrement, got %d", product.StockLevel)
	}
}

func TestRecordSaleMergesDuplicateLines(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.RecordSale(cashierContext(), domain.SaleCreateRequest{
		Items: []domain.SaleLine{
			{SKU: "SKU-AIR-01", Qty: 2},
			{SKU: "sku-air-01", Qty: 3},
		},
		PaidCents: 19500,
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if len(resp.Sale.Items) != 1 {
		t.Fatalf("expected merged single line, got %d", len(resp.Sale.Items))
	}
	if resp.Sale.Items[0].Qty != 5 {
		t.Fatalf("expected merged qty 5, got %d", resp.Sale.Items[0].Qty)
	}
}

func TestCreditPaymentReducesBalanceUntilSettled(t *testing.T) {
	svc := newTestService(t)
	ctx := cashierContext()

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		Items:        []domain.SaleLine{{SKU: "SKU-SUSU-01", Qty: 2}},
		PaidCents:    0,
		CustomerName: "Pak Budi",
	})
	if err != nil {
		t.Fatalf("credit sale failed: %v", err)
	}
	if sale.Sale.BalanceCents != 37800 {
		t.Fatalf("unexpected balance: %d", sale.Sale.BalanceCents)
	}

	first, err := svc.RecordCreditPayment(ctx, sale.Sale.ID, domain.CreditPaymentRequest{AmountCents: 20000, Note: "cicilan pertama"})
	if err != nil {
		t.Fatalf("first payment failed: %v", err)
	}
	if first.Sale.BalanceCents != 17800 || first.Sale.PaymentStatus != domain.PaymentStatusPartial {
		t.Fatalf("unexpected sale after first payment: %+v", first.Sale)
	}

	_, err = svc.RecordCreditPayment(ctx, sale.Sale.ID, domain.CreditPaymentRequest{AmountCents: 17801})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected overpayment rejection, got %v", err)
	}

	second, err := svc.RecordCreditPayment(ctx, sale.Sale.ID, domain.CreditPaymentRequest{AmountCents: 17800})
	if err != nil {
		t.Fatalf("settling payment failed: %v", err)
	}
	if second.Sale.BalanceCents != 0 || second.Sale.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("unexpected sale after settlement: %+v", second.Sale)
	}

	_, err = svc.RecordCreditPayment(ctx, sale.Sale.ID, domain.CreditPaymentRequest{AmountCents: 100})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected payment against settled sale to fail, got %v", err)
	}

	payments, err := svc.ListCreditPayments(ctx, sale.Sale.ID)
	if err != nil {
		t.Fatalf("list payments failed: %v", err)
	}
	if len(payments.Payments) != 2 {
		t.Fatalf("expected 2 recorded payments, got %d", len(payments.Payments))
	}
}

func TestOutstandingSalesTotalsBalances(t *testing.T) {
	svc := newTestService(t)
	ctx := cashierContext()

	if _, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleLine{{SKU: "SKU-MIE-01", Qty: 2}}, PaidCents: 7000,
	}); err != nil {
		t.Fatalf("paid sale failed: %v", err)
	}
	if _, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleLine{{SKU: "SKU-MIE-01", Qty: 2}}, PaidCents: 3000,
	}); err != nil {
		t.Fatalf("partial sale failed: %v", err)
	}
	if _, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleLine{{SKU: "SKU-MIE-01", Qty: 1}}, PaidCents: 0,
	}); err != nil {
		t.Fatalf("credit sale failed: %v", err)
	}

	resp, err := svc.OutstandingSales(ctx, 50)
	if err != nil {
		t.Fatalf("outstanding failed: %v", err)
	}
	if len(resp.Sales) != 2 {
		t.Fatalf("expected 2 outstanding sales, got %d", len(resp.Sales))
	}
	if resp.OutstandingCents != 4000+3500 {
		t.Fatalf("expected outstanding 7500, got %d", resp.OutstandingCents)
	}
}

func TestListSalesRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ListSales(cashierContext(), "", "REFUNDED", 10)
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown status, got %v", err)
	}
}

func TestLowStockReportSuggestsReorderQty(t *testing.T) {
	svc := newTestService(t)
	ctx := adminContext()

	// Drop Roti Tawar (threshold 10, reorder point 15) to 4 units.
	if _, err := svc.AdjustStock(ctx, domain.StockAdjustRequest{SKU: "SKU-ROTI-01", Type: "ADJUST", Quantity: 4}); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	// And Sabun Mandi (threshold 12, reorder point 18) to zero.
	if _, err := svc.AdjustStock(ctx, domain.StockAdjustRequest{SKU: "SKU-SABUN-01", Type: "ADJUST", Quantity: 0}); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}

	report, err := svc.LowStockReport(ctx)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if len(report.Items) != 2 {
		t.Fatalf("expected 2 low stock items, got %d: %+v", len(report.Items), report.Items)
	}

	// Sorted by stock level ascending, so the zeroed item comes first.
	if report.Items[0].SKU != "SKU-SABUN-01" || report.Items[0].SuggestedOrderQty != 36 {
		t.Fatalf("unexpected first item: %+v", report.Items[0])
	}
	if report.Items[1].SKU != "SKU-ROTI-01" || report.Items[1].SuggestedOrderQty != 26 {
		t.Fatalf("unexpected second item: %+v", report.Items[1])
	}
}

func TestInventorySummaryCountsActiveProducts(t *testing.T) {
	svc := newTestService(t)
	ctx := adminContext()

	summary, err := svc.InventorySummary(ctx)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.TotalProducts != 12 {
		t.Fatalf("expected 12 seeded products, got %d", summary.TotalProducts)
	}
	if summary.OutOfStockCount != 0 || summary.LowStockCount != 0 {
		t.Fatalf("seed catalog should have no low or out-of-stock items: %+v", summary)
	}
	if summary.GeneratedAt == "" {
		t.Fatal("missing generated_at timestamp")
	}
}

func TestDailySalesSummaryBreaksDownByStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := cashierContext()

	if _, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleLine{{SKU: "SKU-MIE-01", Qty: 2}}, PaidCents: 7000,
	}); err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if _, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleLine{{SKU: "SKU-MIE-01", Qty: 1}}, PaidCents: 0,
	}); err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	summary, err := svc.DailySales(ctx, "")
	if err != nil {
		t.Fatalf("daily summary failed: %v", err)
	}
	if summary.Sales != 2 {
		t.Fatalf("expected 2 sales, got %d", summary.Sales)
	}
	if summary.GrossCents != 10500 || summary.CollectedCents != 7000 || summary.OutstandingCents != 3500 {
		t.Fatalf("unexpected totals: %+v", summary)
	}
	if len(summary.ByStatus) != 2 {
		t.Fatalf("expected 2 status buckets, got %+v", summary.ByStatus)
	}

	if _, err := svc.DailySales(ctx, "26-08-2026"); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for malformed date, got %v", err)
	}
}

func TestRecordSaleRequiresActor(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RecordSale(context.Background(), domain.SaleCreateRequest{
		Items: []domain.SaleLine{{SKU: "SKU-MIE-01", Qty: 1}},
	})
	if err == nil {
		t.Fatal("expected sale without actor to fail")
	}
}
