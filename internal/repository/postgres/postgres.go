package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"whitelist-bot/internal/repository"

	_ "github.com/lib/pq"
)

const schema = `CREATE TABLE IF NOT EXISTS tenant_configs (
	tenant_id              TEXT PRIMARY KEY,
	request_channel_id     TEXT NOT NULL,
	staff_role_id          TEXT NOT NULL,
	valid_request_role_id  TEXT NOT NULL,
	valid_wl_role_id       TEXT NOT NULL,
	default_role_id        TEXT,
	cat_new_requests       TEXT NOT NULL,
	cat_pending            TEXT NOT NULL,
	cat_approved           TEXT NOT NULL,
	cat_rejected           TEXT NOT NULL,
	cat_completed          TEXT NOT NULL,
	locale                 TEXT NOT NULL,
	updated_at             TIMESTAMPTZ NOT NULL,
	updated_by             TEXT NOT NULL
)`

type Store struct {
	db *sql.DB
	repository.TenantConfigRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		TenantConfigRepository: NewTenantConfigRepository(db),
	}
}

// Migrate creates the tables the store needs when they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tenant_configs table: %w", err)
	}
	return nil
}
