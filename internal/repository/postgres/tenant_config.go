package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"whitelist-bot/internal/domain"
	"whitelist-bot/internal/logger"
	"whitelist-bot/internal/repository"
)

const tenantConfigColumns = `tenant_id, request_channel_id, staff_role_id, valid_request_role_id, valid_wl_role_id,
	default_role_id, cat_new_requests, cat_pending, cat_approved, cat_rejected, cat_completed, locale,
	updated_at, updated_by`

type tenantConfigRepository struct {
	db *sql.DB
}

func NewTenantConfigRepository(db *sql.DB) repository.TenantConfigRepository {
	return &tenantConfigRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenantConfig(row rowScanner) (*domain.TenantConfig, error) {
	cfg := &domain.TenantConfig{}
	var defaultRole sql.NullString
	err := row.Scan(
		&cfg.TenantID, &cfg.RequestChannelID, &cfg.StaffRoleID, &cfg.ValidRequestRoleID, &cfg.ValidWlRoleID,
		&defaultRole, &cfg.Categories.NewRequests, &cfg.Categories.Pending, &cfg.Categories.Approved,
		&cfg.Categories.Rejected, &cfg.Categories.Completed, &cfg.Locale, &cfg.UpdatedAt, &cfg.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	cfg.DefaultRoleID = defaultRole.String
	return cfg, nil
}

func (r *tenantConfigRepository) Get(ctx context.Context, tenantID string) (*domain.TenantConfig, error) {
	query := `SELECT ` + tenantConfigColumns + ` FROM tenant_configs WHERE tenant_id = $1`
	cfg, err := scanTenantConfig(r.db.QueryRowContext(ctx, query, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	logger.StoreCall("get", tenantID, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant config: %w", err)
	}
	return cfg, nil
}

func (r *tenantConfigRepository) Save(ctx context.Context, cfg *domain.TenantConfig) error {
	c := cfg.WithDefaults()
	query := `INSERT INTO tenant_configs (` + tenantConfigColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	          ON CONFLICT (tenant_id) DO UPDATE SET
	              request_channel_id = EXCLUDED.request_channel_id,
	              staff_role_id = EXCLUDED.staff_role_id,
	              valid_request_role_id = EXCLUDED.valid_request_role_id,
	              valid_wl_role_id = EXCLUDED.valid_wl_role_id,
	              default_role_id = EXCLUDED.default_role_id,
	              cat_new_requests = EXCLUDED.cat_new_requests,
	              cat_pending = EXCLUDED.cat_pending,
	              cat_approved = EXCLUDED.cat_approved,
	              cat_rejected = EXCLUDED.cat_rejected,
	              cat_completed = EXCLUDED.cat_completed,
	              locale = EXCLUDED.locale,
	              updated_at = EXCLUDED.updated_at,
	              updated_by = EXCLUDED.updated_by`
	defaultRole := sql.NullString{String: c.DefaultRoleID, Valid: c.DefaultRoleID != ""}
	_, err := r.db.ExecContext(ctx, query,
		c.TenantID, c.RequestChannelID, c.StaffRoleID, c.ValidRequestRoleID, c.ValidWlRoleID,
		defaultRole, c.Categories.NewRequests, c.Categories.Pending, c.Categories.Approved,
		c.Categories.Rejected, c.Categories.Completed, c.Locale, c.UpdatedAt, c.UpdatedBy,
	)
	logger.StoreCall("save", c.TenantID, err)
	if err != nil {
		return fmt.Errorf("failed to save tenant config: %w", err)
	}
	return nil
}

func (r *tenantConfigRepository) List(ctx context.Context) ([]domain.TenantConfig, error) {
	query := `SELECT ` + tenantConfigColumns + ` FROM tenant_configs ORDER BY tenant_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant configs: %w", err)
	}
	defer rows.Close()

	var cfgs []domain.TenantConfig
	for rows.Next() {
		cfg, err := scanTenantConfig(rows)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, *cfg)
	}
	return cfgs, rows.Err()
}
