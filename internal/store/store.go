package store

import (
	"context"
	"errors"
	"time"

	"tokokita/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
)

type Repository interface {
	ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	ApplyStockChange(ctx context.Context, activity domain.StockActivity) (*domain.Product, error)
	ListStockActivities(ctx context.Context, sku string, limit int) ([]domain.StockActivity, error)
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	FindSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error)
	ListSales(ctx context.Context, from time.Time, to time.Time, paymentStatus string, limit int) ([]domain.Sale, error)
	ListOutstandingSales(ctx context.Context, limit int) ([]domain.Sale, error)
	CreateCreditPayment(ctx context.Context, payment domain.CreditPayment) (*domain.CreditPayment, *domain.Sale, error)
	ListCreditPayments(ctx context.Context, saleID string) ([]domain.CreditPayment, error)
	GetInventorySummary(ctx context.Context) (domain.InventorySummary, error)
	GetDailySalesSummary(ctx context.Context, from time.Time, to time.Time) (domain.DailySalesSummary, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
