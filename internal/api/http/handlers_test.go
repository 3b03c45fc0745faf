package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"whitelist-bot/internal/domain"
	apperrors "whitelist-bot/internal/errors"
	"whitelist-bot/internal/platform"
	"whitelist-bot/internal/prompt"
	"whitelist-bot/internal/security"
	"whitelist-bot/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// MockOnboardingService
type MockOnboardingService struct {
	mock.Mock
}

func (m *MockOnboardingService) HandleInteraction(ctx context.Context, in service.Interaction) service.Response {
	args := m.Called(ctx, in)
	return args.Get(0).(service.Response)
}
func (m *MockOnboardingService) MemberJoined(ctx context.Context, tenantID, memberID string) error {
	args := m.Called(ctx, tenantID, memberID)
	return args.Error(0)
}
func (m *MockOnboardingService) ListCases(ctx context.Context, tenantID string, actor domain.Actor) ([]domain.ApplicationCase, error) {
	args := m.Called(ctx, tenantID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ApplicationCase), args.Error(1)
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

// MockMemberSource
type MockMemberSource struct {
	mock.Mock
}

func (m *MockMemberSource) FetchMember(ctx context.Context, tenantID, memberID string) (domain.Member, error) {
	args := m.Called(ctx, tenantID, memberID)
	return args.Get(0).(domain.Member), args.Error(1)
}

type testServer struct {
	onboarding *MockOnboardingService
	tenants    *MockTenantService
	members    *MockMemberSource
	tokens     security.TokenManager
	router     http.Handler
}

func newTestServer() *testServer {
	s := &testServer{
		onboarding: new(MockOnboardingService),
		tenants:    new(MockTenantService),
		members:    new(MockMemberSource),
		tokens:     security.NewTokenManager(testSecret),
	}
	s.router = NewRouter(NewHandler(s.onboarding, s.tenants, s.members), NewAuthMiddleware(s.tokens))
	return s
}

func (s *testServer) token(t *testing.T, scope security.Scope, tenantID string) string {
	t.Helper()
	token, err := s.tokens.GenerateToken(scope, tenantID, "admin-user", []string{"staff"}, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	rec := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	s := newTestServer()

	t.Run("Missing token", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/v1/tenants/g1/cases", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Invalid token", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/v1/tenants/g1/cases", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Gateway token on admin route", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/v1/tenants/g1/cases", s.token(t, security.ScopeGateway, ""), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Token for another tenant", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/v1/tenants/g1/cases", s.token(t, security.ScopeAdmin, "g2"), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
	})

	s.onboarding.AssertNotCalled(t, "ListCases", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleInteraction(t *testing.T) {
	s := newTestServer()
	in := service.Interaction{
		Kind:     service.InteractionComponent,
		TenantID: "g1",
		Actor:    domain.Actor{ID: "alice", Name: "Alice"},
		CustomID: "request_wl",
	}
	s.members.On("FetchMember", mock.Anything, "g1", "alice").Return(domain.Member{ID: "alice", Name: "Alice", RoleIDs: []string{"default"}}, nil)
	resolved := in
	resolved.Actor.RoleIDs = []string{"default"}
	s.onboarding.On("HandleInteraction", mock.Anything, resolved).Return(service.Response{
		Kind:    service.ResponseMessage,
		Message: prompt.Message{Content: "created", Ephemeral: true},
	})

	rec := s.do(http.MethodPost, "/v1/interactions", s.token(t, security.ScopeGateway, ""), in)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp service.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, service.ResponseMessage, resp.Kind)
	assert.Equal(t, "created", resp.Message.Content)
	s.onboarding.AssertExpectations(t)

	t.Run("Malformed body", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/v1/interactions", s.token(t, security.ScopeGateway, ""), map[string]string{"bogus": "x"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Tenant outside token", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/v1/interactions", s.token(t, security.ScopeGateway, "g2"), in)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHandleInteraction_ClaimedRightsAreIgnored(t *testing.T) {
	s := newTestServer()
	in := service.Interaction{
		Kind:     service.InteractionComponent,
		TenantID: "g1",
		Actor:    domain.Actor{ID: "mallory", Name: "Mallory", RoleIDs: []string{"staff", "admin"}, IsAdmin: true},
		CustomID: "validate_wl_alice",
	}
	s.members.On("FetchMember", mock.Anything, "g1", "mallory").Return(domain.Member{ID: "mallory", RoleIDs: []string{"default"}}, nil)
	s.onboarding.On("HandleInteraction", mock.Anything, mock.MatchedBy(func(got service.Interaction) bool {
		return !got.Actor.IsAdmin && assert.ObjectsAreEqual([]string{"default"}, got.Actor.RoleIDs)
	})).Return(service.Response{Kind: service.ResponseMessage})

	rec := s.do(http.MethodPost, "/v1/interactions", s.token(t, security.ScopeGateway, ""), in)
	assert.Equal(t, http.StatusOK, rec.Code)
	s.onboarding.AssertExpectations(t)
}

func TestHandleInteraction_UnknownMember(t *testing.T) {
	s := newTestServer()
	in := service.Interaction{Kind: service.InteractionComponent, TenantID: "g1", Actor: domain.Actor{ID: "ghost"}, CustomID: "request_wl"}

	s.members.On("FetchMember", mock.Anything, "g1", "ghost").
		Return(domain.Member{}, &platform.Error{Op: "fetch_member", Code: platform.CodeNotFound, Message: "unknown member"}).Once()
	rec := s.do(http.MethodPost, "/v1/interactions", s.token(t, security.ScopeGateway, ""), in)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s.members.On("FetchMember", mock.Anything, "g1", "ghost").
		Return(domain.Member{}, &platform.Error{Op: "fetch_member", Code: platform.CodeUnavailable, Message: "gateway down"}).Once()
	rec = s.do(http.MethodPost, "/v1/interactions", s.token(t, security.ScopeGateway, ""), in)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	s.onboarding.AssertNotCalled(t, "HandleInteraction", mock.Anything, mock.Anything)
}

func TestPutConfig(t *testing.T) {
	body := domain.TenantConfig{
		RequestChannelID:   "c1",
		StaffRoleID:        "staff",
		ValidRequestRoleID: "vr",
		ValidWlRoleID:      "vw",
	}
	want := body
	want.TenantID = "g1"

	t.Run("Success", func(t *testing.T) {
		s := newTestServer()
		saved := want.WithDefaults()
		s.tenants.On("Configure", mock.Anything, mock.MatchedBy(func(a domain.Actor) bool {
			return a.ID == "admin-user" && a.IsAdmin
		}), want).Return(&saved, nil)
		s.tenants.On("NotifyConfigured", mock.Anything, saved).Return(nil)

		rec := s.do(http.MethodPut, "/v1/tenants/g1/config", s.token(t, security.ScopeAdmin, "g1"), body)
		require.Equal(t, http.StatusOK, rec.Code)
		var got domain.TenantConfig
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, domain.DefaultCategoryNewRequests, got.Categories.NewRequests)
		s.tenants.AssertExpectations(t)
	})

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"Role missing", apperrors.WithMetadata(apperrors.CodeRoleMissing, "role not found", map[string]string{"role": "vr"}), http.StatusUnprocessableEntity, "ROLE_MISSING"},
		{"Hierarchy", apperrors.New(apperrors.CodeRoleHierarchyViolation, "above bot"), http.StatusUnprocessableEntity, "ROLE_HIERARCHY_VIOLATION"},
		{"Not admin", apperrors.New(apperrors.CodeUnauthorized, "admin only"), http.StatusForbidden, "UNAUTHORIZED"},
		{"Unexpected", apperrors.New(apperrors.CodeUnknown, "boom"), http.StatusInternalServerError, "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			s.tenants.On("Configure", mock.Anything, mock.Anything, want).Return(nil, tt.err)

			rec := s.do(http.MethodPut, "/v1/tenants/g1/config", s.token(t, security.ScopeAdmin, ""), body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
			s.tenants.AssertNotCalled(t, "NotifyConfigured", mock.Anything, mock.Anything)
		})
	}

	t.Run("Notification failure", func(t *testing.T) {
		s := newTestServer()
		saved := want.WithDefaults()
		s.tenants.On("Configure", mock.Anything, mock.Anything, want).Return(&saved, nil)
		s.tenants.On("NotifyConfigured", mock.Anything, saved).Return(apperrors.New(apperrors.CodeSendFailed, "denied"))

		rec := s.do(http.MethodPut, "/v1/tenants/g1/config", s.token(t, security.ScopeAdmin, ""), body)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestGetConfig(t *testing.T) {
	s := newTestServer()
	s.tenants.On("GetConfig", mock.Anything, "g1").Return(nil, apperrors.New(apperrors.CodeConfigMissing, "not configured"))

	rec := s.do(http.MethodGet, "/v1/tenants/g1/config", s.token(t, security.ScopeAdmin, "g1"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CONFIG_MISSING", decodeError(t, rec).Code)
}

func TestListCases(t *testing.T) {
	s := newTestServer()
	s.onboarding.On("ListCases", mock.Anything, "g1", mock.Anything).Return([]domain.ApplicationCase{
		{ID: "ab12c", TenantID: "g1", Applicant: domain.Applicant{ID: "alice"}, Stage: domain.StageAwaitingForm},
	}, nil).Once()

	rec := s.do(http.MethodGet, "/v1/tenants/g1/cases", s.token(t, security.ScopeAdmin, "g1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Cases []domain.ApplicationCase `json:"cases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Cases, 1)
	assert.Equal(t, "ab12c", body.Cases[0].ID)

	s.onboarding.On("ListCases", mock.Anything, "g1", mock.Anything).Return(nil, nil).Once()
	rec = s.do(http.MethodGet, "/v1/tenants/g1/cases", s.token(t, security.ScopeAdmin, "g1"), nil)
	assert.JSONEq(t, `{"cases":[]}`, rec.Body.String())
}
