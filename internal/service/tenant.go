package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"whitelist-bot/internal/domain"
	apperrors "whitelist-bot/internal/errors"
	"whitelist-bot/internal/i18n"
	"whitelist-bot/internal/logger"
	"whitelist-bot/internal/platform"
	"whitelist-bot/internal/prompt"
	"whitelist-bot/internal/repository"
	"whitelist-bot/internal/workflow"
)

// Option names of the /config command.
const (
	OptionRequestChannel = "request_channel"
	OptionStaffRole      = "staff_wl_role"
	OptionValidRequest   = "valid_request"
	OptionValidWl        = "valid_wl"
	OptionDefaultRole    = "default_role"
	OptionCatNewRequests = "cat_new_requests"
	OptionCatPending     = "cat_pending"
	OptionCatApproved    = "cat_approved"
	OptionCatRejected    = "cat_rejected"
	OptionCatCompleted   = "cat_completed"
	OptionLocale         = "locale"
)

// ConfigFromOptions maps /config command options onto a tenant configuration.
func ConfigFromOptions(tenantID string, opts map[string]string) domain.TenantConfig {
	return domain.TenantConfig{
		TenantID:           tenantID,
		RequestChannelID:   opts[OptionRequestChannel],
		StaffRoleID:        opts[OptionStaffRole],
		ValidRequestRoleID: opts[OptionValidRequest],
		ValidWlRoleID:      opts[OptionValidWl],
		DefaultRoleID:      opts[OptionDefaultRole],
		Categories: domain.Categories{
			NewRequests: opts[OptionCatNewRequests],
			Pending:     opts[OptionCatPending],
			Approved:    opts[OptionCatApproved],
			Rejected:    opts[OptionCatRejected],
			Completed:   opts[OptionCatCompleted],
		},
		Locale: opts[OptionLocale],
	}
}

type tenantService struct {
	configs  repository.TenantConfigRepository
	platform platform.Platform
	executor *workflow.Executor
	now      func() time.Time
}

func NewTenantService(configs repository.TenantConfigRepository, p platform.Platform, executor *workflow.Executor) TenantService {
	return &tenantService{
		configs:  configs,
		platform: p,
		executor: executor,
		now:      time.Now,
	}
}

func (s *tenantService) GetConfig(ctx context.Context, tenantID string) (*domain.TenantConfig, error) {
	cfg, err := s.configs.Get(ctx, tenantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.WithMetadata(apperrors.CodeConfigMissing, "tenant is not configured",
			map[string]string{"tenant_id": tenantID})
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnknown, "failed to load tenant config", err)
	}
	withDefaults := cfg.WithDefaults()
	return &withDefaults, nil
}

func (s *tenantService) Configure(ctx context.Context, actor domain.Actor, cfg domain.TenantConfig) (*domain.TenantConfig, error) {
	if !actor.IsAdmin {
		return nil, apperrors.WithMetadata(apperrors.CodeUnauthorized, "actor is not an administrator",
			map[string]string{"scope": "admin"})
	}
	if err := requireFields(cfg); err != nil {
		return nil, err
	}
	if cfg.Locale != "" && !slices.Contains(i18n.Supported(), cfg.Locale) {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidInput, "unsupported locale",
			map[string]string{"field": OptionLocale})
	}
	if err := s.checkRoles(ctx, cfg); err != nil {
		return nil, err
	}

	saved := cfg.WithDefaults()
	saved.UpdatedAt = s.now()
	saved.UpdatedBy = actor.ID
	if err := s.configs.Save(ctx, &saved); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnknown, "failed to save tenant config", err)
	}
	logger.WithTenant(saved.TenantID).Info("Tenant configured", "actor_id", actor.ID)
	return &saved, nil
}

func requireFields(cfg domain.TenantConfig) error {
	required := []struct{ field, value string }{
		{OptionRequestChannel, cfg.RequestChannelID},
		{OptionStaffRole, cfg.StaffRoleID},
		{OptionValidRequest, cfg.ValidRequestRoleID},
		{OptionValidWl, cfg.ValidWlRoleID},
	}
	for _, r := range required {
		if r.value == "" {
			return apperrors.WithMetadata(apperrors.CodeInvalidInput, "required option is missing",
				map[string]string{"field": r.field})
		}
	}
	if cfg.TenantID == "" {
		return apperrors.WithMetadata(apperrors.CodeInvalidInput, "tenant id is missing",
			map[string]string{"field": "tenant_id"})
	}
	return nil
}

// checkRoles verifies every configured role exists and every granted role sits below the bot.
func (s *tenantService) checkRoles(ctx context.Context, cfg domain.TenantConfig) error {
	roles, err := s.executor.Roles(ctx, cfg.TenantID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, "failed to list roles", err)
	}
	self, err := s.platform.Self(ctx, cfg.TenantID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, "failed to fetch bot member", err)
	}
	h := domain.NewHierarchy(cfg.TenantID, roles)

	ids := append([]string{cfg.StaffRoleID}, cfg.GrantedRoleIDs()...)
	for _, id := range ids {
		if _, ok := h.Role(id); !ok {
			return apperrors.WithMetadata(apperrors.CodeRoleMissing, "configured role does not exist",
				map[string]string{"role": id})
		}
	}
	for _, id := range cfg.GrantedRoleIDs() {
		if !h.CanManage(self.RoleIDs, id) {
			role, _ := h.Role(id)
			return apperrors.WithMetadata(apperrors.CodeRoleHierarchyViolation, "granted role is not below the bot",
				map[string]string{"role": id, "role_name": role.Name})
		}
	}
	return nil
}

func (s *tenantService) NotifyConfigured(ctx context.Context, cfg domain.TenantConfig) error {
	cfg = cfg.WithDefaults()
	if err := s.executor.EnsureCategories(ctx, cfg); err != nil {
		logger.WithTenant(cfg.TenantID).Error("Failed to ensure categories", "error", err)
		return err
	}
	return s.executor.Send(ctx, cfg.RequestChannelID, prompt.RequestPrompt(i18n.For(cfg.Locale)))
}

func (s *tenantService) Greet(ctx context.Context, channelID, tenantName string) error {
	return s.executor.Send(ctx, channelID, prompt.GuildHello(i18n.For(domain.DefaultLocale), tenantName))
}
