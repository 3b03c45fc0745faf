package workflow

import (
	"context"

	"whitelist-bot/internal/domain"
	"whitelist-bot/internal/platform"
	"whitelist-bot/internal/prompt"

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

// MockPlatform
type MockPlatform struct {
	mock.Mock
}

func (m *MockPlatform) Categories(ctx context.Context, tenantID string) ([]platform.Category, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]platform.Category), args.Error(1)
}
func (m *MockPlatform) CreateCategory(ctx context.Context, tenantID, name string, access platform.Access) (platform.Category, error) {
	args := m.Called(ctx, tenantID, name, access)
	return args.Get(0).(platform.Category), args.Error(1)
}
func (m *MockPlatform) CreateTextChannel(ctx context.Context, tenantID, name, parentID string, access platform.Access) (platform.Channel, error) {
	args := m.Called(ctx, tenantID, name, parentID, access)
	return args.Get(0).(platform.Channel), args.Error(1)
}
func (m *MockPlatform) MoveChannel(ctx context.Context, channelID, parentID string) error {
	args := m.Called(ctx, channelID, parentID)
	return args.Error(0)
}
func (m *MockPlatform) GrantRole(ctx context.Context, tenantID, memberID, roleID string) error {
	args := m.Called(ctx, tenantID, memberID, roleID)
	return args.Error(0)
}
func (m *MockPlatform) RevokeRole(ctx context.Context, tenantID, memberID, roleID string) error {
	args := m.Called(ctx, tenantID, memberID, roleID)
	return args.Error(0)
}
func (m *MockPlatform) SendMessage(ctx context.Context, channelID string, msg prompt.Message) error {
	args := m.Called(ctx, channelID, msg)
	return args.Error(0)
}
func (m *MockPlatform) FetchMember(ctx context.Context, tenantID, memberID string) (domain.Member, error) {
	args := m.Called(ctx, tenantID, memberID)
	return args.Get(0).(domain.Member), args.Error(1)
}
func (m *MockPlatform) Roles(ctx context.Context, tenantID string) ([]domain.Role, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]domain.Role), args.Error(1)
}
func (m *MockPlatform) Self(ctx context.Context, tenantID string) (domain.Member, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(domain.Member), args.Error(1)
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

func staffActor() domain.Actor {
	return domain.Actor{ID: "staff-user", RoleIDs: []string{"staff"}}
}

func newTestMemory() *platform.Memory {
	mem := platform.NewMemory()
	mem.AddTenant(tenant, domain.Member{ID: "bot-user", RoleIDs: []string{"bot"}}, testRoles()...)
	mem.AddMember(tenant, domain.Member{ID: "alice", Name: "Alice", RoleIDs: []string{"default"}})
	mem.AddMember(tenant, domain.Member{ID: "staff-user", RoleIDs: []string{"staff"}})
	return mem
}

func configuredRepo(cfg *domain.TenantConfig) *MockTenantConfigRepo {
	repo := new(MockTenantConfigRepo)
	repo.On("Get", mock.Anything, cfg.TenantID).Return(cfg, nil)
	return repo
}
