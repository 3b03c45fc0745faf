package repository

import (
	"context"
	"errors"

	"whitelist-bot/internal/domain"
)

// ErrNotFound is returned when a tenant has not been configured yet.
var ErrNotFound = errors.New("tenant config not found")

type TenantConfigRepository interface {
	Get(ctx context.Context, tenantID string) (*domain.TenantConfig, error)
	Save(ctx context.Context, cfg *domain.TenantConfig) error
	List(ctx context.Context) ([]domain.TenantConfig, error)
}
