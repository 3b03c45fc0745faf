package service

import (
	"context"
	"testing"
	"time"

	"whitelist-bot/internal/dispatch"
	"whitelist-bot/internal/domain"
	apperrors "whitelist-bot/internal/errors"
	"whitelist-bot/internal/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func component(customID string, actor domain.Actor, values ...string) Interaction {
	return Interaction{Kind: InteractionComponent, TenantID: tenant, ChannelID: "case", Actor: actor, CustomID: customID, Values: values}
}

func formSubmit(applicantID string, actor domain.Actor) Interaction {
	return Interaction{
		Kind:     InteractionModal,
		TenantID: tenant,
		Actor:    actor,
		CustomID: dispatch.Encode(dispatch.VerbSubmitForm, applicantID),
		Fields: map[string]string{
			dispatch.FieldLastName:      "Dupont",
			dispatch.FieldFirstName:     "Jean",
			dispatch.FieldBackgroundURL: "https://docs.example/bg",
		},
	}
}

func TestOnboardingService_FullApproval(t *testing.T) {
	repo := configuredRepo(testConfig())
	f := newFixture(repo)
	ctx := context.Background()

	resp := f.svc.HandleInteraction(ctx, component(string(dispatch.VerbRequest), aliceActor()))
	require.Equal(t, ResponseMessage, resp.Kind)
	assert.True(t, resp.Message.Ephemeral)
	c, ok := f.engine.Case(tenant, "alice")
	require.True(t, ok)
	require.NotEmpty(t, c.ChannelID)
	assert.Contains(t, resp.Message.Content, "<#"+c.ChannelID+">")
	welcome := f.mem.Messages(c.ChannelID)
	require.Len(t, welcome, 1)
	assert.Equal(t, []string{"fill_form_alice"}, welcome[0].CustomIDs())

	resp = f.svc.HandleInteraction(ctx, component("fill_form_alice", aliceActor()))
	require.Equal(t, ResponseModal, resp.Kind)
	require.NotNil(t, resp.Modal)
	assert.Equal(t, "wl_form_modal_alice", resp.Modal.CustomID)

	resp = f.svc.HandleInteraction(ctx, formSubmit("alice", aliceActor()))
	require.Equal(t, ResponseMessage, resp.Kind)
	assert.Contains(t, resp.Message.Content, "Formulaire soumis")
	msgs := f.mem.Messages(c.ChannelID)
	assert.Equal(t, []string{"legal_status_alice"}, msgs[len(msgs)-1].CustomIDs())

	resp = f.svc.HandleInteraction(ctx, component("legal_status_alice", aliceActor(), "illegal"))
	require.Equal(t, ResponseUpdate, resp.Kind)
	assert.Equal(t, []string{"validate_wl_alice", "reject_wl_alice"}, resp.Message.CustomIDs())
	assert.Equal(t, domain.DefaultCategoryPending, f.mem.CategoryName(c.ChannelID))

	resp = f.svc.HandleInteraction(ctx, component("validate_wl_alice", staffActor()))
	require.Equal(t, ResponseUpdate, resp.Kind)
	assert.Equal(t, []string{"validate_interview_alice", "reject_interview_alice"}, resp.Message.CustomIDs())
	assert.ElementsMatch(t, []string{"default", "vr"}, f.mem.MemberRoles(tenant, "alice"))

	resp = f.svc.HandleInteraction(ctx, component("validate_interview_alice", staffActor()))
	require.Equal(t, ResponseUpdate, resp.Kind)
	assert.Empty(t, resp.Message.CustomIDs())
	assert.Equal(t, []string{"vw"}, f.mem.MemberRoles(tenant, "alice"))
	assert.Equal(t, domain.DefaultCategoryCompleted, f.mem.CategoryName(c.ChannelID))

	_, ok = f.engine.Case(tenant, "alice")
	assert.False(t, ok)
}

func TestOnboardingService_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown action is ignored", func(t *testing.T) {
		f := newFixture(configuredRepo(testConfig()))
		resp := f.svc.HandleInteraction(ctx, component("something_else", aliceActor()))
		assert.Equal(t, ResponseNone, resp.Kind)
	})

	t.Run("Unconfigured tenant", func(t *testing.T) {
		f := newFixture(unconfiguredRepo())
		resp := f.svc.HandleInteraction(ctx, component(string(dispatch.VerbRequest), aliceActor()))
		assert.Equal(t, ResponseMessage, resp.Kind)
		assert.True(t, resp.Message.Ephemeral)
		assert.Contains(t, resp.Message.Content, "/config")
		assert.Equal(t, 0, f.mem.Calls("create_channel"))
	})

	t.Run("Second request while a case is open", func(t *testing.T) {
		f := newFixture(configuredRepo(testConfig()))
		f.svc.HandleInteraction(ctx, component(string(dispatch.VerbRequest), aliceActor()))
		resp := f.svc.HandleInteraction(ctx, component(string(dispatch.VerbRequest), aliceActor()))
		c, _ := f.engine.Case(tenant, "alice")
		assert.Contains(t, resp.Message.Content, "déjà une demande")
		assert.Contains(t, resp.Message.Content, c.ChannelID)
		assert.Equal(t, 1, f.mem.Calls("create_channel"))
	})

	t.Run("Other member presses the applicant's button", func(t *testing.T) {
		f := newFixture(configuredRepo(testConfig()))
		f.svc.HandleInteraction(ctx, component(string(dispatch.VerbRequest), aliceActor()))
		resp := f.svc.HandleInteraction(ctx, component("fill_form_alice", domain.Actor{ID: "bob"}))
		assert.Equal(t, ResponseMessage, resp.Kind)
		assert.Contains(t, resp.Message.Content, "pas destiné")
		c, _ := f.engine.Case(tenant, "alice")
		assert.Equal(t, domain.StageRequested, c.Stage)
	})

	t.Run("Member below staff cannot decide", func(t *testing.T) {
		f := newFixture(configuredRepo(testConfig()))
		f.svc.HandleInteraction(ctx, component(string(dispatch.VerbRequest), aliceActor()))
		f.svc.HandleInteraction(ctx, formSubmit("alice", aliceActor()))
		f.svc.HandleInteraction(ctx, component("legal_status_alice", aliceActor(), "legal"))

		resp := f.svc.HandleInteraction(ctx, component("validate_wl_alice", aliceActor()))
		assert.Contains(t, resp.Message.Content, "modérateurs")
		c, _ := f.engine.Case(tenant, "alice")
		assert.Equal(t, domain.StageAwaitingFormReview, c.Stage)
		assert.Equal(t, []string{"default"}, f.mem.MemberRoles(tenant, "alice"))
	})

	t.Run("Empty form field", func(t *testing.T) {
		f := newFixture(configuredRepo(testConfig()))
		f.svc.HandleInteraction(ctx, component(string(dispatch.VerbRequest), aliceActor()))
		in := formSubmit("alice", aliceActor())
		in.Fields[dispatch.FieldFirstName] = "  "
		resp := f.svc.HandleInteraction(ctx, in)
		assert.Contains(t, resp.Message.Content, dispatch.FieldFirstName)
		c, _ := f.engine.Case(tenant, "alice")
		assert.Equal(t, domain.StageRequested, c.Stage)
	})
}

func TestOnboardingService_ChannelFailureDiscardsCase(t *testing.T) {
	f := newFixture(configuredRepo(testConfig()))
	ctx := context.Background()
	f.mem.Fail("create_channel", platform.CodeForbidden)

	resp := f.svc.HandleInteraction(ctx, component(string(dispatch.VerbRequest), aliceActor()))
	assert.Contains(t, resp.Message.Content, "Impossible de créer le canal")
	_, ok := f.engine.Case(tenant, "alice")
	assert.False(t, ok)

	f.mem.Recover("create_channel")
	resp = f.svc.HandleInteraction(ctx, component(string(dispatch.VerbRequest), aliceActor()))
	_, ok = f.engine.Case(tenant, "alice")
	assert.True(t, ok, resp.Message.Content)
}

func TestOnboardingService_WelcomeFailureDiscardsCase(t *testing.T) {
	f := newFixture(configuredRepo(testConfig()))
	ctx := context.Background()
	f.mem.Fail("send_message", platform.CodeForbidden)

	resp := f.svc.HandleInteraction(ctx, component(string(dispatch.VerbRequest), aliceActor()))
	assert.True(t, resp.Message.Ephemeral)
	assert.Contains(t, resp.Message.Content, "Impossible d'envoyer le message")
	_, ok := f.engine.Case(tenant, "alice")
	assert.False(t, ok)

	f.mem.Recover("send_message")
	f.svc.HandleInteraction(ctx, component(string(dispatch.VerbRequest), aliceActor()))
	c, ok := f.engine.Case(tenant, "alice")
	require.True(t, ok)
	welcome := f.mem.Messages(c.ChannelID)
	require.Len(t, welcome, 1)
	assert.Equal(t, []string{"fill_form_alice"}, welcome[0].CustomIDs())
}

func TestOnboardingService_ExpiredDraftAllowsNewRequest(t *testing.T) {
	f := newFixture(configuredRepo(testConfig()))
	ctx := context.Background()

	f.svc.HandleInteraction(ctx, component(string(dispatch.VerbRequest), aliceActor()))
	f.svc.HandleInteraction(ctx, component("fill_form_alice", aliceActor()))
	f.svc.HandleInteraction(ctx, formSubmit("alice", aliceActor()))
	c, ok := f.engine.Case(tenant, "alice")
	require.True(t, ok)
	require.Equal(t, domain.StageAwaitingLegalStatus, c.Stage)
	require.Equal(t, 1, f.drafts.EvictOlderThan(time.Now().Add(time.Minute)))

	resp := f.svc.HandleInteraction(ctx, component("legal_status_alice", aliceActor(), "legal"))
	assert.True(t, resp.Message.Ephemeral)
	assert.Contains(t, resp.Message.Content, "Demandez votre whitelist")
	_, ok = f.engine.Case(tenant, "alice")
	assert.False(t, ok)

	resp = f.svc.HandleInteraction(ctx, component(string(dispatch.VerbRequest), aliceActor()))
	reopened, ok := f.engine.Case(tenant, "alice")
	require.True(t, ok, resp.Message.Content)
	assert.Equal(t, domain.StageRequested, reopened.Stage)
	assert.NotEqual(t, c.ID, reopened.ID)
}

func TestOnboardingService_PanicIsRecovered(t *testing.T) {
	repo := configuredRepo(testConfig())
	f := newFixture(repo)
	tenants := new(MockTenantService)
	tenants.On("Configure", mock.Anything, mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("boom")
	})
	svc := NewOnboardingService(f.engine, f.executor, tenants)

	resp := svc.HandleInteraction(context.Background(), Interaction{Kind: InteractionCommand, TenantID: tenant, Command: CommandConfig, Actor: adminActor()})
	assert.Equal(t, ResponseMessage, resp.Kind)
	assert.True(t, resp.Message.Ephemeral)
	assert.Contains(t, resp.Message.Content, "une erreur s'est produite")
	tenants.AssertExpectations(t)
}

func TestOnboardingService_ConfigCommand(t *testing.T) {
	cfg := testConfig()
	f := newFixture(configuredRepo(cfg))
	tenants := new(MockTenantService)
	svc := NewOnboardingService(f.engine, f.executor, tenants)
	ctx := context.Background()

	in := Interaction{Kind: InteractionCommand, TenantID: tenant, Command: CommandConfig, Actor: adminActor(), Options: map[string]string{
		OptionRequestChannel: "requests",
		OptionStaffRole:      "staff",
		OptionValidRequest:   "vr",
		OptionValidWl:        "vw",
	}}
	saved := cfg.WithDefaults()
	tenants.On("Configure", mock.Anything, adminActor(), ConfigFromOptions(tenant, in.Options)).Return(&saved, nil)
	tenants.On("NotifyConfigured", mock.Anything, saved).Return(nil).Once()

	resp := svc.HandleInteraction(ctx, in)
	require.Equal(t, ResponseMessage, resp.Kind)
	require.Len(t, resp.Message.Embeds, 1)
	assert.Contains(t, resp.Message.Embeds[0].Title, "Configuration enregistrée")
	assert.Empty(t, resp.Message.Content)

	t.Run("Request channel not writable", func(t *testing.T) {
		sendErr := apperrors.WithMetadata(apperrors.CodeSendFailed, "failed to send message", map[string]string{"channel": "requests"})
		tenants.On("NotifyConfigured", mock.Anything, saved).Return(sendErr).Once()
		resp := svc.HandleInteraction(ctx, in)
		require.Len(t, resp.Message.Embeds, 1)
		assert.Contains(t, resp.Message.Content, "<#requests>")
	})
	tenants.AssertExpectations(t)
}

func TestOnboardingService_CasesCommand(t *testing.T) {
	f := newFixture(configuredRepo(testConfig()))
	ctx := context.Background()
	f.svc.HandleInteraction(ctx, component(string(dispatch.VerbRequest), aliceActor()))

	resp := f.svc.HandleInteraction(ctx, Interaction{Kind: InteractionCommand, TenantID: tenant, Command: CommandCases, Actor: staffActor()})
	require.Len(t, resp.Message.Embeds, 1)
	assert.Contains(t, resp.Message.Embeds[0].Description, "<@alice>")
	assert.Contains(t, resp.Message.Embeds[0].Description, string(domain.StageRequested))

	resp = f.svc.HandleInteraction(ctx, Interaction{Kind: InteractionCommand, TenantID: tenant, Command: CommandCases, Actor: aliceActor()})
	assert.Empty(t, resp.Message.Embeds)
	assert.Contains(t, resp.Message.Content, "modérateurs")
}

func TestOnboardingService_MemberJoined(t *testing.T) {
	ctx := context.Background()

	t.Run("Grants the default role", func(t *testing.T) {
		f := newFixture(configuredRepo(testConfig()))
		require.NoError(t, f.svc.MemberJoined(ctx, tenant, "bob"))
		assert.Equal(t, []string{"default"}, f.mem.MemberRoles(tenant, "bob"))
	})

	t.Run("No default role configured", func(t *testing.T) {
		cfg := testConfig()
		cfg.DefaultRoleID = ""
		f := newFixture(configuredRepo(cfg))
		require.NoError(t, f.svc.MemberJoined(ctx, tenant, "bob"))
		assert.Equal(t, 0, f.mem.Calls("grant_role"))
	})

	t.Run("Unconfigured tenant", func(t *testing.T) {
		f := newFixture(unconfiguredRepo())
		assert.NoError(t, f.svc.MemberJoined(ctx, tenant, "bob"))
		assert.Equal(t, 0, f.mem.Calls("grant_role"))
	})

	t.Run("Default role above the bot", func(t *testing.T) {
		cfg := testConfig()
		cfg.DefaultRoleID = "admin"
		f := newFixture(configuredRepo(cfg))
		err := f.svc.MemberJoined(ctx, tenant, "bob")
		assert.Error(t, err)
		assert.Equal(t, 0, f.mem.Calls("grant_role"))
	})
}
