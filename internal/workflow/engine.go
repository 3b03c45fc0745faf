// Package workflow implements the whitelist stage machine, its case and draft
// stores, and the executor of the platform side effects that follow a transition.
package workflow

import (
	"context"
	"errors"
	"slices"
	"time"

	"whitelist-bot/internal/domain"
	apperrors "whitelist-bot/internal/errors"
	"whitelist-bot/internal/logger"
	"whitelist-bot/internal/repository"

	"github.com/google/uuid"
)

// RoleSource lists the roles of a tenant for rank checks.
type RoleSource interface {
	Roles(ctx context.Context, tenantID string) ([]domain.Role, error)
}

// TransitionResult is a committed transition.
type TransitionResult struct {
	Case    domain.ApplicationCase
	Config  domain.TenantConfig
	From    domain.Stage
	To      domain.Stage
	Effects []domain.SideEffect
}

// Changed reports whether the stage moved.
func (r *TransitionResult) Changed() bool {
	return r.From != r.To
}

type transitionRule struct {
	event    domain.EventKind
	decision domain.Decision
	from     []domain.Stage
	to       domain.Stage
	effects  func(cfg domain.TenantConfig) []domain.SideEffect
}

var transitionTable = []transitionRule{
	{
		event: domain.EventFormFilled,
		from:  []domain.Stage{domain.StageRequested, domain.StageAwaitingForm},
		to:    domain.StageAwaitingForm,
	},
	{
		event: domain.EventFormSubmitted,
		from:  []domain.Stage{domain.StageRequested, domain.StageAwaitingForm},
		to:    domain.StageAwaitingLegalStatus,
		effects: func(domain.TenantConfig) []domain.SideEffect {
			return []domain.SideEffect{domain.PostMessage(domain.NoticeLegalStatusPrompt)}
		},
	},
	{
		event: domain.EventLegalStatusChosen,
		from:  []domain.Stage{domain.StageAwaitingLegalStatus},
		to:    domain.StageAwaitingFormReview,
		effects: func(domain.TenantConfig) []domain.SideEffect {
			return []domain.SideEffect{domain.MoveToCategory(domain.CategoryPending)}
		},
	},
	{
		event:    domain.EventStaffDecidesForm,
		decision: domain.DecisionApprove,
		from:     []domain.Stage{domain.StageAwaitingFormReview},
		to:       domain.StageAwaitingInterview,
		effects: func(cfg domain.TenantConfig) []domain.SideEffect {
			return []domain.SideEffect{
				domain.MoveToCategory(domain.CategoryApproved),
				domain.PostMessage(domain.NoticeFormApproved),
				domain.GrantRole(cfg.ValidRequestRoleID),
			}
		},
	},
	{
		event:    domain.EventStaffDecidesForm,
		decision: domain.DecisionReject,
		from:     []domain.Stage{domain.StageAwaitingFormReview},
		to:       domain.StageRejected,
		effects: func(domain.TenantConfig) []domain.SideEffect {
			return []domain.SideEffect{
				domain.MoveToCategory(domain.CategoryRejected),
				domain.PostMessage(domain.NoticeFormRejected),
			}
		},
	},
	{
		event:    domain.EventStaffDecidesInterview,
		decision: domain.DecisionApprove,
		from:     []domain.Stage{domain.StageAwaitingInterview},
		to:       domain.StageApproved,
		effects: func(cfg domain.TenantConfig) []domain.SideEffect {
			return []domain.SideEffect{
				domain.GrantRole(cfg.ValidWlRoleID),
				domain.RevokeRole(cfg.DefaultRoleID, cfg.ValidRequestRoleID).AfterSuccess(),
				domain.MoveToCategory(domain.CategoryCompleted),
				domain.PostMessage(domain.NoticeInterviewApproved),
			}
		},
	},
	{
		event:    domain.EventStaffDecidesInterview,
		decision: domain.DecisionReject,
		from:     []domain.Stage{domain.StageAwaitingInterview},
		to:       domain.StageRejected,
		effects: func(domain.TenantConfig) []domain.SideEffect {
			return []domain.SideEffect{
				domain.PostMessage(domain.NoticeInterviewRejected),
				domain.MoveToCategory(domain.CategoryRejected),
			}
		},
	},
}

func findRule(ev domain.Event) (transitionRule, bool) {
	for _, r := range transitionTable {
		if r.event == ev.Kind && r.decision == ev.Decision {
			return r, true
		}
	}
	return transitionRule{}, false
}

// stagePath returns the stages walked from one stage to another along legal
// edges, excluding the start. It is empty when from == to.
func stagePath(from, to domain.Stage) ([]domain.Stage, bool) {
	if from == to {
		return nil, true
	}
	prev := map[domain.Stage]domain.Stage{from: ""}
	queue := []domain.Stage{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range domain.StageTransitions[string(cur)] {
			n := domain.Stage(next)
			if _, seen := prev[n]; seen {
				continue
			}
			prev[n] = cur
			if n == to {
				var path []domain.Stage
				for s := n; s != from; s = prev[s] {
					path = append([]domain.Stage{s}, path...)
				}
				return path, true
			}
			queue = append(queue, n)
		}
	}
	return nil, false
}

// Engine validates and commits stage transitions.
type Engine struct {
	configs repository.TenantConfigRepository
	roles   RoleSource
	drafts  *CaseStore
	cases   *Registry
	now     func() time.Time
}

func NewEngine(configs repository.TenantConfigRepository, roles RoleSource, drafts *CaseStore, cases *Registry) *Engine {
	return &Engine{configs: configs, roles: roles, drafts: drafts, cases: cases, now: time.Now}
}

// Config loads the tenant configuration, mapping absence to CONFIG_MISSING.
func (e *Engine) Config(ctx context.Context, tenantID string) (domain.TenantConfig, error) {
	cfg, err := e.configs.Get(ctx, tenantID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.TenantConfig{}, apperrors.WithMetadata(apperrors.CodeConfigMissing, "tenant is not configured",
			map[string]string{"tenant_id": tenantID})
	}
	if err != nil {
		return domain.TenantConfig{}, apperrors.Wrap(apperrors.CodeUnknown, "failed to load tenant config", err)
	}
	return cfg.WithDefaults(), nil
}

// OpenCase registers a new case in the Requested stage.
func (e *Engine) OpenCase(ctx context.Context, tenantID string, applicant domain.Applicant) (*domain.ApplicationCase, error) {
	if _, err := e.Config(ctx, tenantID); err != nil {
		return nil, err
	}
	now := e.now()
	c := domain.ApplicationCase{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Applicant: applicant,
		Stage:     domain.StageRequested,
		OpenedAt:  now,
		UpdatedAt: now,
	}
	if _, err := e.cases.open(c); err != nil {
		return nil, err
	}
	logger.WithCase(tenantID, applicant.ID, c.ID).Info("Case opened", "stage", c.Stage)
	return &c, nil
}

// AttachChannel records the case channel once it is provisioned.
func (e *Engine) AttachChannel(tenantID, applicantID, channelID string) error {
	entry, err := e.lockCase(tenantID, applicantID)
	if err != nil {
		return err
	}
	defer entry.mu.Unlock()
	entry.c.ChannelID = channelID
	entry.c.UpdatedAt = e.now()
	return nil
}

// Discard drops a case, used when its channel or welcome prompt could not be provisioned.
func (e *Engine) Discard(tenantID, applicantID string) {
	entry, err := e.lockCase(tenantID, applicantID)
	if err != nil {
		return
	}
	defer entry.mu.Unlock()
	e.cases.close(entry)
	e.drafts.Remove(tenantID, applicantID)
	logger.WithCase(tenantID, applicantID, entry.c.ID).Info("Case discarded")
}

// Case returns a snapshot of an active case.
func (e *Engine) Case(tenantID, applicantID string) (domain.ApplicationCase, bool) {
	return e.cases.Get(tenantID, applicantID)
}

// Cases lists the active cases of a tenant.
func (e *Engine) Cases(tenantID string) []domain.ApplicationCase {
	return e.cases.List(tenantID)
}

// lockCase returns the entry with its lock held.
func (e *Engine) lockCase(tenantID, applicantID string) (*caseEntry, error) {
	entry, ok := e.cases.lookup(tenantID, applicantID)
	if ok {
		entry.mu.Lock()
		if !entry.closed {
			return entry, nil
		}
		entry.mu.Unlock()
	}
	return nil, apperrors.WithMetadata(apperrors.CodeCaseNotFound, "no active case",
		map[string]string{"applicant": applicantID})
}

// AttemptTransition validates ev against the case and commits the next stage.
// The stage is committed before any side effect runs; the returned effects are
// for the caller to execute after the case lock is released.
func (e *Engine) AttemptTransition(ctx context.Context, tenantID, applicantID string, ev domain.Event, actor domain.Actor) (*TransitionResult, error) {
	cfg, err := e.Config(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	rule, ok := findRule(ev)
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidInput, "unsupported event",
			map[string]string{"field": string(ev.Kind)})
	}
	if ev.IsStaffDecision() {
		if err := e.authorizeStaff(ctx, cfg, actor); err != nil {
			return nil, err
		}
	}

	entry, err := e.lockCase(tenantID, applicantID)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	c := &entry.c
	log := logger.WithCase(tenantID, applicantID, c.ID)

	if ev.ExpectedStage != "" && ev.ExpectedStage != c.Stage {
		return nil, wrongStage(c.Stage, ev)
	}
	if !slices.Contains(rule.from, c.Stage) {
		return nil, wrongStage(c.Stage, ev)
	}
	if !ev.IsStaffDecision() && actor.ID != c.Applicant.ID {
		return nil, apperrors.WithMetadata(apperrors.CodeUnauthorized, "actor is not the applicant",
			map[string]string{"scope": "applicant"})
	}

	var submission *domain.Submission
	switch ev.Kind {
	case domain.EventFormSubmitted:
		if ev.Draft == nil {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidInput, "form submission without fields",
				map[string]string{"field": "form"})
		}
	case domain.EventLegalStatusChosen:
		if !ev.LegalStatus.Valid() {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidInput, "unknown legal status",
				map[string]string{"field": "legal_status"})
		}
		draft, ok := e.drafts.Get(tenantID, applicantID)
		if !ok {
			// Without the draft the case cannot advance; drop it so the applicant can request again.
			e.cases.close(entry)
			log.Warn("Case dropped after losing its form draft", "stage", c.Stage, "channel_id", c.ChannelID)
			return nil, apperrors.WithMetadata(apperrors.CodeCaseDataLost, "form draft is missing",
				map[string]string{"channel": c.ChannelID})
		}
		submission = &domain.Submission{
			LastName:      draft.LastName,
			FirstName:     draft.FirstName,
			BackgroundURL: draft.BackgroundURL,
			LegalStatus:   ev.LegalStatus,
			SubmittedAt:   e.now(),
		}
	}

	path, ok := stagePath(c.Stage, rule.to)
	if !ok {
		return nil, wrongStage(c.Stage, ev)
	}
	from := c.Stage
	for _, next := range path {
		if err := entry.machine.Transition(string(next)); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUnknown, "stage machine refused a legal edge", err)
		}
	}
	c.Stage = domain.Stage(entry.machine.GetState())
	c.UpdatedAt = e.now()

	switch ev.Kind {
	case domain.EventFormSubmitted:
		d := *ev.Draft
		d.ChannelID = c.ChannelID
		d.CreatedAt = time.Time{}
		e.drafts.Put(tenantID, applicantID, d)
	case domain.EventLegalStatusChosen:
		c.Submission = submission
		e.drafts.Remove(tenantID, applicantID)
	}

	result := &TransitionResult{Config: cfg, From: from, To: c.Stage}
	if rule.effects != nil {
		result.Effects = rule.effects(cfg)
	}
	result.Case = entry.snapshot()

	if c.Stage.IsTerminal() {
		e.cases.close(entry)
		e.drafts.Remove(tenantID, applicantID)
	}
	log.Info("Stage transition committed", "event", ev.Kind, "from", from, "to", c.Stage, "actor_id", actor.ID)
	return result, nil
}

// AuthorizeStaff checks that actor ranks at or above the staff role of the tenant.
func (e *Engine) AuthorizeStaff(ctx context.Context, tenantID string, actor domain.Actor) error {
	cfg, err := e.Config(ctx, tenantID)
	if err != nil {
		return err
	}
	return e.authorizeStaff(ctx, cfg, actor)
}

func (e *Engine) authorizeStaff(ctx context.Context, cfg domain.TenantConfig, actor domain.Actor) error {
	roles, err := e.roles.Roles(ctx, cfg.TenantID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, "failed to list roles", err)
	}
	h := domain.NewHierarchy(cfg.TenantID, roles)
	if _, ok := h.Role(cfg.StaffRoleID); !ok {
		return apperrors.WithMetadata(apperrors.CodeRoleMissing, "staff role does not exist",
			map[string]string{"role": cfg.StaffRoleID})
	}
	if !h.Outranks(actor.RoleIDs, cfg.StaffRoleID) {
		return apperrors.WithMetadata(apperrors.CodeUnauthorized, "actor is below the staff role",
			map[string]string{"scope": "staff"})
	}
	return nil
}

func wrongStage(current domain.Stage, ev domain.Event) error {
	return apperrors.WithMetadata(apperrors.CodeWrongStage, "event does not apply to the current stage",
		map[string]string{"stage": string(current), "event": string(ev.Kind)})
}
