// Package file stores tenant configurations as one YAML document per tenant.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"whitelist-bot/internal/domain"
	"whitelist-bot/internal/logger"
	"whitelist-bot/internal/repository"

	"gopkg.in/yaml.v3"
)

const (
	filePrefix = "config_"
	fileSuffix = ".yaml"
)

type tenantConfigRepository struct {
	dir string
	mu  sync.RWMutex
}

func NewTenantConfigRepository(dir string) (repository.TenantConfigRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	return &tenantConfigRepository{dir: dir}, nil
}

func (r *tenantConfigRepository) path(tenantID string) string {
	return filepath.Join(r.dir, filePrefix+tenantID+fileSuffix)
}

func (r *tenantConfigRepository) Get(ctx context.Context, tenantID string) (*domain.TenantConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path(tenantID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, repository.ErrNotFound
	}
	logger.StoreCall("get", tenantID, err)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant config: %w", err)
	}

	var cfg domain.TenantConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse tenant config: %w", err)
	}
	cfg.TenantID = tenantID
	return &cfg, nil
}

// Save writes to a temporary file and renames it so readers never see a partial document.
func (r *tenantConfigRepository) Save(ctx context.Context, cfg *domain.TenantConfig) error {
	if cfg.TenantID == "" {
		return fmt.Errorf("failed to save tenant config: tenant id is required")
	}
	c := cfg.WithDefaults()
	data, err := yaml.Marshal(&c)
	if err != nil {
		return fmt.Errorf("failed to encode tenant config: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp, err := os.CreateTemp(r.dir, filePrefix+c.TenantID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to save tenant config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save tenant config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save tenant config: %w", err)
	}
	err = os.Rename(tmp.Name(), r.path(c.TenantID))
	logger.StoreCall("save", c.TenantID, err)
	if err != nil {
		return fmt.Errorf("failed to save tenant config: %w", err)
	}
	return nil
}

func (r *tenantConfigRepository) List(ctx context.Context) ([]domain.TenantConfig, error) {
	r.mu.RLock()
	entries, err := os.ReadDir(r.dir)
	r.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant configs: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
	}
	sort.Strings(ids)

	cfgs := make([]domain.TenantConfig, 0, len(ids))
	for _, id := range ids {
		cfg, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, *cfg)
	}
	return cfgs, nil
}
