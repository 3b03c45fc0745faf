package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"whitelist-bot/internal/domain"
	apperrors "whitelist-bot/internal/errors"
	"whitelist-bot/internal/i18n"
	"whitelist-bot/internal/logger"
	"whitelist-bot/internal/platform"
	"whitelist-bot/internal/prompt"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// EffectOutcome reports what happened to one side effect.
type EffectOutcome struct {
	Effect  domain.SideEffect
	Err     error
	Skipped bool
}

// ExecutorOptions bounds every platform call.
type ExecutorOptions struct {
	CallTimeout time.Duration
	Retries     uint
	RetryWait   time.Duration
}

// Executor performs the platform mutations that follow a committed transition.
type Executor struct {
	platform platform.Platform
	opts     ExecutorOptions

	mu         sync.Mutex
	categories map[string]map[string]string // tenant id to category name to id
	group      singleflight.Group
}

func NewExecutor(p platform.Platform, opts ExecutorOptions) *Executor {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 500 * time.Millisecond
	}
	return &Executor{platform: p, opts: opts, categories: map[string]map[string]string{}}
}

// call runs op under the per-call timeout, retrying temporary platform errors.
func call[T any](ctx context.Context, x *Executor, name string, op func(ctx context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = x.opts.RetryWait
	return backoff.Retry(ctx, func() (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, x.opts.CallTimeout)
		defer cancel()
		logger.PlatformCall(name)
		v, err := op(callCtx)
		logger.PlatformResult(name, err)
		if err != nil && !platform.IsTemporary(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(x.opts.Retries+1))
}

func do(ctx context.Context, x *Executor, name string, op func(ctx context.Context) error) error {
	_, err := call(ctx, x, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Send posts a message with the executor's timeout and retry policy.
func (x *Executor) Send(ctx context.Context, channelID string, msg prompt.Message) error {
	err := do(ctx, x, "send_message", func(ctx context.Context) error {
		return x.platform.SendMessage(ctx, channelID, msg)
	})
	if err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeSendFailed, "failed to send message",
			map[string]string{"channel": channelID}, err)
	}
	return nil
}

// Roles lists the tenant roles with the executor's timeout and retry policy.
func (x *Executor) Roles(ctx context.Context, tenantID string) ([]domain.Role, error) {
	return call(ctx, x, "roles", func(ctx context.Context) ([]domain.Role, error) {
		return x.platform.Roles(ctx, tenantID)
	})
}

func (x *Executor) cachedCategory(tenantID, name string) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	id, ok := x.categories[tenantID][name]
	return id, ok
}

func (x *Executor) rememberCategory(tenantID, name, id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.categories[tenantID] == nil {
		x.categories[tenantID] = map[string]string{}
	}
	x.categories[tenantID][name] = id
}

func (x *Executor) forgetCategory(tenantID, name string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.categories[tenantID], name)
}

// staffAccess is the staff role and every role ranked above it.
func (x *Executor) staffAccess(ctx context.Context, cfg domain.TenantConfig) (platform.Access, error) {
	roles, err := x.Roles(ctx, cfg.TenantID)
	if err != nil {
		return platform.Access{}, err
	}
	return platform.Access{RoleIDs: domain.NewHierarchy(cfg.TenantID, roles).AtOrAbove(cfg.StaffRoleID)}, nil
}

// EnsureCategory finds a category by exact name or creates it. Lookups are
// memoized per tenant and concurrent creations of the same name collapse.
func (x *Executor) EnsureCategory(ctx context.Context, cfg domain.TenantConfig, name string) (string, error) {
	if id, ok := x.cachedCategory(cfg.TenantID, name); ok {
		return id, nil
	}
	v, err, _ := x.group.Do(cfg.TenantID+"\x00"+name, func() (any, error) {
		if id, ok := x.cachedCategory(cfg.TenantID, name); ok {
			return id, nil
		}
		existing, err := call(ctx, x, "categories", func(ctx context.Context) ([]platform.Category, error) {
			return x.platform.Categories(ctx, cfg.TenantID)
		})
		if err != nil {
			return "", err
		}
		for _, c := range existing {
			if c.Name == name {
				x.rememberCategory(cfg.TenantID, name, c.ID)
				return c.ID, nil
			}
		}

		access, err := x.staffAccess(ctx, cfg)
		if err != nil {
			return "", err
		}
		created, err := call(ctx, x, "create_category", func(ctx context.Context) (platform.Category, error) {
			return x.platform.CreateCategory(ctx, cfg.TenantID, name, access)
		})
		if err != nil {
			return "", err
		}
		logger.WithTenant(cfg.TenantID).Info("Category created", "category", name, "category_id", created.ID)
		x.rememberCategory(cfg.TenantID, name, created.ID)
		return created.ID, nil
	})
	if err != nil {
		return "", apperrors.WrapWithMetadata(apperrors.CodeCategoryCreateFailed, "failed to find or create category",
			map[string]string{"category": name}, err)
	}
	return v.(string), nil
}

// EnsureCategories find-or-creates every configured category.
func (x *Executor) EnsureCategories(ctx context.Context, cfg domain.TenantConfig) error {
	var errs []error
	for _, name := range cfg.AllCategoryNames() {
		if _, err := x.EnsureCategory(ctx, cfg, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ChannelName builds a case channel name: a random five character prefix, then the applicant name.
func ChannelName(applicantName string) string {
	prefix := uuid.NewString()[:5]
	name := strings.ToLower(strings.Join(strings.Fields(applicantName), "-"))
	if name == "" {
		name = "member"
	}
	return prefix + "-wl-" + name
}

// CreateCaseChannel provisions the private channel of a case in the new requests category.
func (x *Executor) CreateCaseChannel(ctx context.Context, cfg domain.TenantConfig, applicant domain.Applicant) (platform.Channel, error) {
	parentID, err := x.EnsureCategory(ctx, cfg, cfg.CategoryName(domain.CategoryNewRequests))
	if err != nil {
		return platform.Channel{}, err
	}
	access, err := x.staffAccess(ctx, cfg)
	if err != nil {
		return platform.Channel{}, apperrors.Wrap(apperrors.CodeChannelCreateFailed, "failed to list roles", err)
	}
	access.MemberIDs = []string{applicant.ID}

	name := ChannelName(applicant.Name)
	ch, err := call(ctx, x, "create_channel", func(ctx context.Context) (platform.Channel, error) {
		return x.platform.CreateTextChannel(ctx, cfg.TenantID, name, parentID, access)
	})
	if err != nil {
		return platform.Channel{}, apperrors.WrapWithMetadata(apperrors.CodeChannelCreateFailed, "failed to create case channel",
			map[string]string{"channel_name": name}, err)
	}
	return ch, nil
}

// roleCheck loads the tenant hierarchy and the bot membership once per execution.
type roleCheck struct {
	x        *Executor
	tenantID string
	loaded   bool
	h        domain.Hierarchy
	self     domain.Member
	err      error
}

func (rc *roleCheck) load(ctx context.Context) error {
	if rc.loaded {
		return rc.err
	}
	rc.loaded = true
	roles, err := rc.x.Roles(ctx, rc.tenantID)
	if err != nil {
		rc.err = err
		return err
	}
	self, err := call(ctx, rc.x, "self", func(ctx context.Context) (domain.Member, error) {
		return rc.x.platform.Self(ctx, rc.tenantID)
	})
	if err != nil {
		rc.err = err
		return err
	}
	rc.h = domain.NewHierarchy(rc.tenantID, roles)
	rc.self = self
	return nil
}

// verify checks, before any mutation, that the role exists and that the bot
// may manage it.
func (rc *roleCheck) verify(ctx context.Context, roleID string) error {
	if err := rc.load(ctx); err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, "failed to load role hierarchy", err)
	}
	role, ok := rc.h.Role(roleID)
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeRoleNotFound, "role does not exist",
			map[string]string{"role": roleID})
	}
	if !rc.h.CanManage(rc.self.RoleIDs, roleID) {
		return apperrors.WithMetadata(apperrors.CodeRoleHierarchyViolation, "role is at or above the bot",
			map[string]string{"role": roleID, "role_name": role.Name})
	}
	if !rc.h.CanManageRoles(rc.self.RoleIDs) {
		return apperrors.WithMetadata(apperrors.CodeMissingManageRolesPermission, "bot cannot manage roles",
			map[string]string{"role": roleID})
	}
	return nil
}

func (x *Executor) grant(ctx context.Context, rc *roleCheck, memberID, roleID string) error {
	if err := rc.verify(ctx, roleID); err != nil {
		return err
	}
	err := do(ctx, x, "grant_role", func(ctx context.Context) error {
		return x.platform.GrantRole(ctx, rc.tenantID, memberID, roleID)
	})
	if err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeUnknown, "failed to grant role",
			map[string]string{"role": roleID}, err)
	}
	return nil
}

func (x *Executor) revoke(ctx context.Context, rc *roleCheck, memberID, roleID string) error {
	if err := rc.verify(ctx, roleID); err != nil {
		return err
	}
	err := do(ctx, x, "revoke_role", func(ctx context.Context) error {
		return x.platform.RevokeRole(ctx, rc.tenantID, memberID, roleID)
	})
	if err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeUnknown, "failed to revoke role",
			map[string]string{"role": roleID}, err)
	}
	return nil
}

// GrantRole grants one role to a member after the usual role checks.
func (x *Executor) GrantRole(ctx context.Context, tenantID, memberID, roleID string) error {
	return x.grant(ctx, &roleCheck{x: x, tenantID: tenantID}, memberID, roleID)
}

func (x *Executor) move(ctx context.Context, cfg domain.TenantConfig, channelID string, kind domain.CategoryKind) error {
	name := cfg.CategoryName(kind)
	for attempt := 0; ; attempt++ {
		parentID, err := x.EnsureCategory(ctx, cfg, name)
		if err != nil {
			return err
		}
		err = do(ctx, x, "move_channel", func(ctx context.Context) error {
			return x.platform.MoveChannel(ctx, channelID, parentID)
		})
		if err == nil {
			return nil
		}
		// The memoized category may have been deleted by hand.
		if platform.IsCode(err, platform.CodeNotFound) && attempt == 0 {
			x.forgetCategory(cfg.TenantID, name)
			continue
		}
		return apperrors.WrapWithMetadata(apperrors.CodeMoveFailed, "failed to move channel",
			map[string]string{"category": name, "channel": channelID}, err)
	}
}

func (x *Executor) apply(ctx context.Context, cfg domain.TenantConfig, c domain.ApplicationCase, rc *roleCheck, e domain.SideEffect) error {
	switch e.Kind {
	case domain.EffectMoveToCategory:
		return x.move(ctx, cfg, c.ChannelID, e.Category)
	case domain.EffectGrantRole:
		if len(e.RoleIDs) == 0 || e.RoleIDs[0] == "" {
			return apperrors.WithMetadata(apperrors.CodeRoleNotFound, "role is not configured", map[string]string{"role": ""})
		}
		return x.grant(ctx, rc, c.Applicant.ID, e.RoleIDs[0])
	case domain.EffectRevokeRole:
		var errs []error
		for _, roleID := range e.RoleIDs {
			if err := x.revoke(ctx, rc, c.Applicant.ID, roleID); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	case domain.EffectPostMessage:
		return x.Send(ctx, c.ChannelID, prompt.Notice(i18n.For(cfg.Locale), e.Notice, c.Applicant.ID, cfg))
	default:
		return fmt.Errorf("unknown side effect %s", e.Kind)
	}
}

// Execute performs effects in order. A failed effect aborts only itself: it is
// logged and a warning is posted into the case channel. Guarded effects are
// skipped when the effect before them failed.
func (x *Executor) Execute(ctx context.Context, cfg domain.TenantConfig, c domain.ApplicationCase, effects []domain.SideEffect) []EffectOutcome {
	log := logger.WithCase(c.TenantID, c.Applicant.ID, c.ID)
	catalog := i18n.For(cfg.Locale)
	rc := &roleCheck{x: x, tenantID: c.TenantID}

	outcomes := make([]EffectOutcome, 0, len(effects))
	prevFailed := false
	for _, e := range effects {
		if e.Guarded && prevFailed {
			log.Warn("Side effect skipped", "effect", e.String())
			outcomes = append(outcomes, EffectOutcome{Effect: e, Skipped: true})
			continue
		}
		err := x.apply(ctx, cfg, c, rc, e)
		prevFailed = err != nil
		outcomes = append(outcomes, EffectOutcome{Effect: e, Err: err})
		if err == nil {
			log.Debug("Side effect applied", "effect", e.String())
			continue
		}

		log.Error("Side effect failed", "effect", e.String(), "code", apperrors.CodeOf(err), "error", err)
		if apperrors.HasCode(err, apperrors.CodeSendFailed) {
			continue
		}
		for _, w := range splitJoined(err) {
			if werr := x.Send(ctx, c.ChannelID, prompt.Warning(catalog, w)); werr != nil {
				log.Error("Failed to post side effect warning", "error", werr)
			}
		}
	}
	return outcomes
}

func splitJoined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
