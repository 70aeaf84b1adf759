package domain

import "time"

type Product struct {
	ID                string    `json:"id"`
	SKU               string    `json:"sku"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	PriceCents        int64     `json:"price_cents"`
	CostPriceCents    int64     `json:"cost_price_cents"`
	StockLevel        int       `json:"stock_level"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	ReorderPoint      int       `json:"reorder_point"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	PriceCents        int64  `json:"price_cents"`
	CostPriceCents    int64  `json:"cost_price_cents"`
	InitialStock      int    `json:"initial_stock"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	ReorderPoint      int    `json:"reorder_point"`
}

type ProductUpdateRequest struct {
	Name              *string `json:"name,omitempty"`
	Category          *string `json:"category,omitempty"`
	PriceCents        *int64  `json:"price_cents,omitempty"`
	CostPriceCents    *int64  `json:"cost_price_cents,omitempty"`
	LowStockThreshold *int    `json:"low_stock_threshold,omitempty"`
	ReorderPoint      *int    `json:"reorder_point,omitempty"`
	Active            *bool   `json:"active,omitempty"`
}

// StockActivity is an immutable ledger row. Every stock mutation (manual
// adjustment or sale decrement) appends exactly one entry.
type StockActivity struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	SKU            string    `json:"sku"`
	Type           string    `json:"type"`
	Quantity       int       `json:"quantity"`
	ResultingStock int       `json:"resulting_stock"`
	PerformedBy    string    `json:"performed_by"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type StockAdjustRequest struct {
	SKU      string `json:"sku"`
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

type StockAdjustResponse struct {
	Product  Product       `json:"product"`
	Activity StockActivity `json:"activity"`
}

type StockActivityListResponse struct {
	Activities []StockActivity `json:"activities"`
}

type SaleItem struct {
	ProductID      string `json:"product_id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Qty            int    `json:"qty"`
	SubtotalCents  int64  `json:"subtotal_cents"`
}

type Sale struct {
	ID             string     `json:"id"`
	Items          []SaleItem `json:"items"`
	TotalCents     int64      `json:"total_cents"`
	PaidCents      int64      `json:"paid_cents"`
	BalanceCents   int64      `json:"balance_cents"`
	PaymentStatus  string     `json:"payment_status"`
	CustomerName   string     `json:"customer_name,omitempty"`
	IdempotencyKey string     `json:"-"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
}

type SaleLine struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type SaleCreateRequest struct {
	Items          []SaleLine `json:"items"`
	PaidCents      int64      `json:"paid_cents"`
	CustomerName   string     `json:"customer_name"`
	IdempotencyKey string     `json:"idempotency_key"`
}

type SaleResponse struct {
	Sale      Sale `json:"sale"`
	Duplicate bool `json:"duplicate"`
}

type SaleListResponse struct {
	Sales []Sale `json:"sales"`
}

type CreditPayment struct {
	ID          string    `json:"id"`
	SaleID      string    `json:"sale_id"`
	AmountCents int64     `json:"amount_cents"`
	Note        string    `json:"note,omitempty"`
	RecordedBy  string    `json:"recorded_by"`
	PaidAt      time.Time `json:"paid_at"`
}

type CreditPaymentRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Note        string `json:"note"`
}

type CreditPaymentResponse struct {
	Payment CreditPayment `json:"payment"`
	Sale    Sale          `json:"sale"`
}

type CreditPaymentListResponse struct {
	Payments []CreditPayment `json:"payments"`
}

type OutstandingSalesResponse struct {
	Sales            []Sale `json:"sales"`
	OutstandingCents int64  `json:"outstanding_cents"`
}

type LowStockItem struct {
	ProductID         string `json:"product_id"`
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	StockLevel        int    `json:"stock_level"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	ReorderPoint      int    `json:"reorder_point"`
	SuggestedOrderQty int    `json:"suggested_order_qty"`
}

type LowStockResponse struct {
	GeneratedAt string         `json:"generated_at"`
	Items       []LowStockItem `json:"items"`
}

type InventorySummary struct {
	TotalProducts    int    `json:"total_products"`
	TotalUnits       int    `json:"total_units"`
	StockValueCents  int64  `json:"stock_value_cents"`
	RetailValueCents int64  `json:"retail_value_cents"`
	LowStockCount    int    `json:"low_stock_count"`
	OutOfStockCount  int    `json:"out_of_stock_count"`
	GeneratedAt      string `json:"generated_at"`
}

type DailySalesStatus struct {
	PaymentStatus string `json:"payment_status"`
	Sales         int64  `json:"sales"`
	TotalCents    int64  `json:"total_cents"`
}

type DailySalesSummary struct {
	Date             string             `json:"date"`
	Sales            int64              `json:"sales"`
	GrossCents       int64              `json:"gross_cents"`
	CollectedCents   int64              `json:"collected_cents"`
	OutstandingCents int64              `json:"outstanding_cents"`
	ByStatus         []DailySalesStatus `json:"by_status"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	ExpiresAt   string   `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	StockActivityAdd    = "ADD"
	StockActivityRemove = "REMOVE"
	StockActivityAdjust = "ADJUST"
)

const (
	PaymentStatusPaid    = "PAID"
	PaymentStatusPartial = "PARTIAL"
	PaymentStatusCredit  = "CREDIT"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// PermissionsForRole returns the static permission set attached to a role.
// The demo auth scheme has no per-user grants; the set is fixed at login.
func PermissionsForRole(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			"products.read", "products.write",
			"stock.adjust", "stock.read",
			"sales.create", "sales.read",
			"credit.record", "credit.read",
			"reports.read", "users.manage",
		}
	case RoleCashier:
		return []string{
			"products.read",
			"stock.read",
			"sales.create", "sales.read",
			"credit.record", "credit.read",
		}
	default:
		return nil
	}
}

// DerivePaymentStatus applies the balance rule: a zero balance is PAID, a
// balance equal to the total is CREDIT, anything in between is PARTIAL.
func DerivePaymentStatus(totalCents int64, balanceCents int64) string {
	switch {
	case balanceCents <= 0:
		return PaymentStatusPaid
	case balanceCents >= totalCents:
		return PaymentStatusCredit
	default:
		return PaymentStatusPartial
	}
}
