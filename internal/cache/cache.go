package cache

import (
	"context"
	"time"

	"tokokita/backend/internal/domain"
)

// SummaryCache holds precomputed inventory summaries so the report endpoint
// does not hit the store on every request.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.InventorySummary, bool, error)
	Set(ctx context.Context, key string, value *domain.InventorySummary, ttl time.Duration) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.InventorySummary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.InventorySummary, _ time.Duration) error {
	return nil
}
