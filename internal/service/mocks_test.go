package service

import (
	"context"
	"time"

	"whitelist-bot/internal/domain"
	"whitelist-bot/internal/platform"
	"whitelist-bot/internal/repository"
	"whitelist-bot/internal/workflow"

	"github.com/stretchr/testify/mock"
)

// MockTenantConfigRepo
type MockTenantConfigRepo struct {
	mock.Mock
}

func (m *MockTenantConfigRepo) Get(ctx context.Context, tenantID string) (*domain.TenantConfig, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TenantConfig), args.Error(1)
}
func (m *MockTenantConfigRepo) Save(ctx context.Context, cfg *domain.TenantConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}
func (m *MockTenantConfigRepo) List(ctx context.Context) ([]domain.TenantConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.TenantConfig), args.Error(1)
}

// MockTenantService
type MockTenantService struct {
	mock.Mock
}

func (m *MockTenantService) Configure(ctx context.Context, actor domain.Actor, cfg domain.TenantConfig) (*domain.TenantConfig, error) {
	args := m.Called(ctx, actor, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TenantConfig), args.Error(1)
}
func (m *MockTenantService) GetConfig(ctx context.Context, tenantID string) (*domain.TenantConfig, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TenantConfig), args.Error(1)
}
func (m *MockTenantService) NotifyConfigured(ctx context.Context, cfg domain.TenantConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}
func (m *MockTenantService) Greet(ctx context.Context, channelID, tenantName string) error {
	args := m.Called(ctx, channelID, tenantName)
	return args.Error(0)
}

const tenant = "g1"

func testRoles() []domain.Role {
	return []domain.Role{
		{ID: tenant, Name: "@everyone", Position: 0},
		{ID: "default", Name: "Nouveau", Position: 1},
		{ID: "vr", Name: "Formulaire validé", Position: 2},
		{ID: "vw", Name: "Whitelisté", Position: 3},
		{ID: "staff", Name: "Douanier", Position: 5},
		{ID: "bot", Name: "Bot", Position: 6, Permissions: domain.PermissionManageRoles},
		{ID: "admin", Name: "Admin", Position: 7},
		{ID: "top", Name: "Fondateur", Position: 9},
	}
}

func testConfig() *domain.TenantConfig {
	return &domain.TenantConfig{
		TenantID:           tenant,
		RequestChannelID:   "requests",
		StaffRoleID:        "staff",
		ValidRequestRoleID: "vr",
		ValidWlRoleID:      "vw",
		DefaultRoleID:      "default",
		Locale:             "fr",
	}
}

func aliceActor() domain.Actor {
	return domain.Actor{ID: "alice", Name: "Alice", RoleIDs: []string{"default"}}
}

func staffActor() domain.Actor {
	return domain.Actor{ID: "staff-user", Name: "Staff", RoleIDs: []string{"staff"}}
}

func adminActor() domain.Actor {
	return domain.Actor{ID: "admin-user", Name: "Admin", RoleIDs: []string{"admin"}, IsAdmin: true}
}

func newTestMemory() *platform.Memory {
	mem := platform.NewMemory()
	mem.AddTenant(tenant, domain.Member{ID: "bot-user", RoleIDs: []string{"bot"}}, testRoles()...)
	mem.AddMember(tenant, domain.Member{ID: "alice", Name: "Alice", RoleIDs: []string{"default"}})
	mem.AddMember(tenant, domain.Member{ID: "bob", Name: "Bob"})
	mem.AddMember(tenant, domain.Member{ID: "staff-user", RoleIDs: []string{"staff"}})
	return mem
}

func configuredRepo(cfg *domain.TenantConfig) *MockTenantConfigRepo {
	repo := new(MockTenantConfigRepo)
	repo.On("Get", mock.Anything, cfg.TenantID).Return(cfg, nil)
	return repo
}

func unconfiguredRepo() *MockTenantConfigRepo {
	repo := new(MockTenantConfigRepo)
	repo.On("Get", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	return repo
}

type fixture struct {
	mem      *platform.Memory
	drafts   *workflow.CaseStore
	engine   *workflow.Engine
	executor *workflow.Executor
	tenants  TenantService
	svc      OnboardingService
}

func newFixture(repo repository.TenantConfigRepository) *fixture {
	mem := newTestMemory()
	executor := workflow.NewExecutor(mem, workflow.ExecutorOptions{CallTimeout: time.Second, RetryWait: time.Millisecond})
	drafts := workflow.NewCaseStore()
	engine := workflow.NewEngine(repo, executor, drafts, workflow.NewRegistry())
	tenants := NewTenantService(repo, mem, executor)
	return &fixture{
		mem:      mem,
		drafts:   drafts,
		engine:   engine,
		executor: executor,
		tenants:  tenants,
		svc:      NewOnboardingService(engine, executor, tenants),
	}
}
