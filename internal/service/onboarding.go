package service

import (
	"context"
	"strings"

	"whitelist-bot/internal/dispatch"
	"whitelist-bot/internal/domain"
	apperrors "whitelist-bot/internal/errors"
	"whitelist-bot/internal/i18n"
	"whitelist-bot/internal/logger"
	"whitelist-bot/internal/prompt"
	"whitelist-bot/internal/workflow"
)

type onboardingService struct {
	engine   *workflow.Engine
	executor *workflow.Executor
	tenants  TenantService
}

func NewOnboardingService(engine *workflow.Engine, executor *workflow.Executor, tenants TenantService) OnboardingService {
	return &onboardingService{
		engine:   engine,
		executor: executor,
		tenants:  tenants,
	}
}

func (s *onboardingService) HandleInteraction(ctx context.Context, in Interaction) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithTenant(in.TenantID).Error("Recovered from panic in interaction handler",
				"panic", r, "custom_id", in.CustomID, "command", in.Command)
			resp = s.fail(ctx, in, apperrors.New(apperrors.CodeUnknown, "interaction handler panicked"))
		}
	}()

	var err error
	switch in.Kind {
	case InteractionCommand:
		resp, err = s.handleCommand(ctx, in)
	case InteractionComponent, InteractionModal:
		action, ok := dispatch.Decode(in.CustomID)
		if !ok {
			logger.Debug("Ignoring unknown action", "tenant_id", in.TenantID, "custom_id", in.CustomID)
			return Response{Kind: ResponseNone}
		}
		resp, err = s.handleAction(ctx, in, action)
	default:
		err = apperrors.WithMetadata(apperrors.CodeInvalidInput, "unknown interaction kind",
			map[string]string{"field": "kind"})
	}
	if err != nil {
		return s.fail(ctx, in, err)
	}
	return resp
}

func (s *onboardingService) handleAction(ctx context.Context, in Interaction, action dispatch.Action) (Response, error) {
	switch action.Verb {
	case dispatch.VerbRequest:
		return s.requestWhitelist(ctx, in)
	case dispatch.VerbFillForm:
		return s.fillForm(ctx, in, action)
	case dispatch.VerbSubmitForm:
		return s.submitForm(ctx, in, action)
	case dispatch.VerbLegalStatus:
		return s.chooseLegalStatus(ctx, in, action)
	case dispatch.VerbApproveForm, dispatch.VerbRejectForm:
		return s.decideForm(ctx, in, action)
	case dispatch.VerbApproveInterview, dispatch.VerbRejectInterview:
		return s.decideInterview(ctx, in, action)
	default:
		return Response{Kind: ResponseNone}, nil
	}
}

// requestWhitelist opens a case and provisions its private channel.
func (s *onboardingService) requestWhitelist(ctx context.Context, in Interaction) (Response, error) {
	cfg, err := s.engine.Config(ctx, in.TenantID)
	if err != nil {
		return Response{}, err
	}
	applicant := domain.Applicant{ID: in.Actor.ID, Name: in.Actor.Name}
	c, err := s.engine.OpenCase(ctx, in.TenantID, applicant)
	if err != nil {
		return Response{}, err
	}
	log := logger.WithCase(in.TenantID, applicant.ID, c.ID)

	ch, err := s.executor.CreateCaseChannel(ctx, cfg, applicant)
	if err != nil {
		s.engine.Discard(in.TenantID, applicant.ID)
		return Response{}, err
	}
	if err := s.engine.AttachChannel(in.TenantID, applicant.ID, ch.ID); err != nil {
		return Response{}, err
	}

	catalog := i18n.For(cfg.Locale)
	if err := s.executor.Send(ctx, ch.ID, prompt.CaseWelcome(catalog, applicant)); err != nil {
		// The welcome carries the only "Fill form" button of the case.
		log.Error("Failed to post case welcome", "channel_id", ch.ID, "error", err)
		s.engine.Discard(in.TenantID, applicant.ID)
		return Response{}, err
	}
	log.Info("Case channel created", "channel_id", ch.ID)
	return Response{Kind: ResponseMessage, Message: prompt.CaseCreated(catalog, ch.ID)}, nil
}

func (s *onboardingService) fillForm(ctx context.Context, in Interaction, action dispatch.Action) (Response, error) {
	res, err := s.engine.AttemptTransition(ctx, in.TenantID, action.ApplicantID, domain.FormFilled(), in.Actor)
	if err != nil {
		return Response{}, err
	}
	modal := prompt.FormModal(i18n.For(res.Config.Locale), action.ApplicantID)
	return Response{Kind: ResponseModal, Modal: &modal}, nil
}

func (s *onboardingService) submitForm(ctx context.Context, in Interaction, action dispatch.Action) (Response, error) {
	draft := domain.Draft{
		LastName:      strings.TrimSpace(in.Fields[dispatch.FieldLastName]),
		FirstName:     strings.TrimSpace(in.Fields[dispatch.FieldFirstName]),
		BackgroundURL: strings.TrimSpace(in.Fields[dispatch.FieldBackgroundURL]),
	}
	for field, value := range map[string]string{
		dispatch.FieldLastName:      draft.LastName,
		dispatch.FieldFirstName:     draft.FirstName,
		dispatch.FieldBackgroundURL: draft.BackgroundURL,
	} {
		if value == "" {
			return Response{}, apperrors.WithMetadata(apperrors.CodeInvalidInput, "form field is empty",
				map[string]string{"field": field})
		}
	}

	res, err := s.engine.AttemptTransition(ctx, in.TenantID, action.ApplicantID, domain.FormSubmitted(draft), in.Actor)
	if err != nil {
		return Response{}, err
	}
	s.executor.Execute(ctx, res.Config, res.Case, res.Effects)
	return Response{Kind: ResponseMessage, Message: prompt.FormAccepted(i18n.For(res.Config.Locale))}, nil
}

func (s *onboardingService) chooseLegalStatus(ctx context.Context, in Interaction, action dispatch.Action) (Response, error) {
	if len(in.Values) == 0 {
		return Response{}, apperrors.WithMetadata(apperrors.CodeInvalidInput, "no legal status selected",
			map[string]string{"field": "legal_status"})
	}
	ev := domain.LegalStatusChosen(domain.LegalStatus(in.Values[0]))
	res, err := s.engine.AttemptTransition(ctx, in.TenantID, action.ApplicantID, ev, in.Actor)
	if err != nil {
		return Response{}, err
	}
	s.executor.Execute(ctx, res.Config, res.Case, res.Effects)
	msg := prompt.FormReview(i18n.For(res.Config.Locale), action.ApplicantID, *res.Case.Submission)
	return Response{Kind: ResponseUpdate, Message: msg}, nil
}

func (s *onboardingService) decideForm(ctx context.Context, in Interaction, action dispatch.Action) (Response, error) {
	d := decision(action)
	res, err := s.engine.AttemptTransition(ctx, in.TenantID, action.ApplicantID, domain.StaffDecidesForm(d), in.Actor)
	if err != nil {
		return Response{}, err
	}
	s.executor.Execute(ctx, res.Config, res.Case, res.Effects)
	msg := prompt.FormDecision(i18n.For(res.Config.Locale), action.ApplicantID, in.Actor.ID, d)
	return Response{Kind: ResponseUpdate, Message: msg}, nil
}

func (s *onboardingService) decideInterview(ctx context.Context, in Interaction, action dispatch.Action) (Response, error) {
	d := decision(action)
	res, err := s.engine.AttemptTransition(ctx, in.TenantID, action.ApplicantID, domain.StaffDecidesInterview(d), in.Actor)
	if err != nil {
		return Response{}, err
	}
	s.executor.Execute(ctx, res.Config, res.Case, res.Effects)
	msg := prompt.InterviewDecision(i18n.For(res.Config.Locale), in.Actor.ID, d)
	return Response{Kind: ResponseUpdate, Message: msg}, nil
}

func decision(action dispatch.Action) domain.Decision {
	if action.Approves() {
		return domain.DecisionApprove
	}
	return domain.DecisionReject
}

func (s *onboardingService) handleCommand(ctx context.Context, in Interaction) (Response, error) {
	switch in.Command {
	case CommandConfig:
		return s.configure(ctx, in)
	case CommandCases:
		cases, err := s.ListCases(ctx, in.TenantID, in.Actor)
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: ResponseMessage, Message: prompt.CaseList(s.catalog(ctx, in.TenantID), cases)}, nil
	default:
		return Response{}, apperrors.WithMetadata(apperrors.CodeInvalidInput, "unknown command",
			map[string]string{"field": in.Command})
	}
}

func (s *onboardingService) configure(ctx context.Context, in Interaction) (Response, error) {
	saved, err := s.tenants.Configure(ctx, in.Actor, ConfigFromOptions(in.TenantID, in.Options))
	if err != nil {
		return Response{}, err
	}
	catalog := i18n.For(saved.Locale)
	msg := prompt.ConfigSummary(catalog, *saved)
	if err := s.tenants.NotifyConfigured(ctx, *saved); err != nil {
		if apperrors.HasCode(err, apperrors.CodeSendFailed) {
			msg.Content = prompt.SendDenied(catalog, saved.RequestChannelID).Content
		} else {
			msg.Content = prompt.Warning(catalog, err).Content
		}
	}
	return Response{Kind: ResponseMessage, Message: msg}, nil
}

func (s *onboardingService) MemberJoined(ctx context.Context, tenantID, memberID string) error {
	cfg, err := s.engine.Config(ctx, tenantID)
	if apperrors.HasCode(err, apperrors.CodeConfigMissing) {
		return nil
	}
	if err != nil {
		return err
	}
	if cfg.DefaultRoleID == "" {
		return nil
	}
	if err := s.executor.GrantRole(ctx, tenantID, memberID, cfg.DefaultRoleID); err != nil {
		logger.WithTenant(tenantID).Error("Failed to grant default role",
			"member_id", memberID, "role_id", cfg.DefaultRoleID, "code", apperrors.CodeOf(err), "error", err)
		return err
	}
	logger.WithTenant(tenantID).Info("Default role granted", "member_id", memberID, "role_id", cfg.DefaultRoleID)
	return nil
}

func (s *onboardingService) ListCases(ctx context.Context, tenantID string, actor domain.Actor) ([]domain.ApplicationCase, error) {
	if err := s.engine.AuthorizeStaff(ctx, tenantID, actor); err != nil {
		return nil, err
	}
	return s.engine.Cases(tenantID), nil
}

// fail renders err as the ephemeral failure reply in the tenant's locale.
func (s *onboardingService) fail(ctx context.Context, in Interaction, err error) Response {
	code := apperrors.CodeOf(err)
	log := logger.WithTenant(in.TenantID)
	if code.IsPrecondition() {
		log.Info("Interaction rejected", "custom_id", in.CustomID, "command", in.Command, "actor_id", in.Actor.ID, "code", code)
	} else {
		log.Error("Interaction failed", "custom_id", in.CustomID, "command", in.Command, "actor_id", in.Actor.ID, "code", code, "error", err)
	}
	return Response{Kind: ResponseMessage, Message: prompt.Failure(s.catalog(ctx, in.TenantID), err)}
}

func (s *onboardingService) catalog(ctx context.Context, tenantID string) *i18n.Catalog {
	cfg, err := s.engine.Config(ctx, tenantID)
	if err != nil {
		return i18n.For(domain.DefaultLocale)
	}
	return i18n.For(cfg.Locale)
}
