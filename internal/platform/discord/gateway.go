package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"whitelist-bot/internal/dispatch"
	"whitelist-bot/internal/domain"
	"whitelist-bot/internal/logger"
	"whitelist-bot/internal/service"

	"github.com/bwmarrin/discordgo"
)

// Commands returns the guild slash commands.
func Commands() []*discordgo.ApplicationCommand {
	admin := int64(discordgo.PermissionAdministrator)
	category := func(name, description string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: name, Description: description}
	}
	role := func(name, description string, required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionRole, Name: name, Description: description, Required: required}
	}
	return []*discordgo.ApplicationCommand{
		{
			Name:                     service.CommandConfig,
			Description:              "Configurer le module de whitelist",
			DefaultMemberPermissions: &admin,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         service.OptionRequestChannel,
					Description:  "Canal où les membres demandent leur whitelist",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
				role(service.OptionStaffRole, "Rôle des douaniers qui valident les demandes", true),
				role(service.OptionValidRequest, "Rôle attribué après validation du formulaire", true),
				role(service.OptionValidWl, "Rôle attribué après l'entretien", true),
				role(service.OptionDefaultRole, "Rôle attribué à chaque nouveau membre", false),
				category(service.OptionCatNewRequests, "Catégorie des nouvelles demandes"),
				category(service.OptionCatPending, "Catégorie des demandes en attente de validation"),
				category(service.OptionCatApproved, "Catégorie des formulaires validés"),
				category(service.OptionCatRejected, "Catégorie des demandes refusées"),
				category(service.OptionCatCompleted, "Catégorie des whitelists complètes"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        service.OptionLocale,
					Description: "Langue des messages",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Français", Value: "fr"},
						{Name: "English", Value: "en"},
					},
				},
			},
		},
		{
			Name:        service.CommandCases,
			Description: "Lister les demandes de whitelist en cours",
		},
	}
}

// ack is how an interaction is acknowledged before the handler runs.
type ack int

const (
	// ackNone answers directly; used when the reply may be a modal.
	ackNone ack = iota
	// ackUpdate defers an edit of the message carrying the component.
	ackUpdate
	// ackEphemeral defers an ephemeral reply.
	ackEphemeral
)

func ackFor(in service.Interaction) ack {
	switch in.Kind {
	case service.InteractionCommand, service.InteractionModal:
		return ackEphemeral
	}
	action, ok := dispatch.Decode(in.CustomID)
	switch {
	case !ok, action.Verb == dispatch.VerbFillForm:
		return ackNone
	case action.Verb == dispatch.VerbRequest:
		return ackEphemeral
	default:
		return ackUpdate
	}
}

// Gateway routes gateway events to the services.
type Gateway struct {
	session    *discordgo.Session
	appID      string
	onboarding service.OnboardingService
	tenants    service.TenantService
	timeout    time.Duration

	mu    sync.Mutex
	known map[string]bool // guilds present at startup or already greeted
}

func NewGateway(s *discordgo.Session, appID string, onboarding service.OnboardingService, tenants service.TenantService) *Gateway {
	return &Gateway{
		session:    s,
		appID:      appID,
		onboarding: onboarding,
		tenants:    tenants,
		timeout:    2 * time.Minute,
		known:      map[string]bool{},
	}
}

// Open registers the handlers and connects to the gateway.
func (g *Gateway) Open() error {
	g.session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	g.session.AddHandler(g.onReady)
	g.session.AddHandler(g.onGuildCreate)
	g.session.AddHandler(g.onMemberAdd)
	g.session.AddHandler(g.onInteraction)
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}
	return nil
}

func (g *Gateway) Close() error {
	return g.session.Close()
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	g.mu.Lock()
	for _, guild := range r.Guilds {
		g.known[guild.ID] = true
	}
	g.mu.Unlock()
	logger.Info("Connected to gateway", "user", r.User.Username, "guilds", len(r.Guilds))
}

func (g *Gateway) onGuildCreate(s *discordgo.Session, gc *discordgo.GuildCreate) {
	if gc.Unavailable {
		return
	}
	log := logger.WithTenant(gc.ID)
	if _, err := s.ApplicationCommandBulkOverwrite(g.appID, gc.ID, Commands()); err != nil {
		log.Error("Failed to register commands", "error", err)
		return
	}
	log.Info("Commands registered", "guild", gc.Name)

	g.mu.Lock()
	joined := !g.known[gc.ID]
	g.known[gc.ID] = true
	g.mu.Unlock()
	if !joined {
		return
	}

	channelID := greetingChannel(gc.Guild)
	if channelID == "" {
		log.Warn("No channel to greet the guild in")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	if err := g.tenants.Greet(ctx, channelID, gc.Name); err != nil {
		log.Error("Failed to greet guild", "channel_id", channelID, "error", err)
	}
}

// greetingChannel picks the system channel, then a channel named general, then the first text channel.
func greetingChannel(g *discordgo.Guild) string {
	if g.SystemChannelID != "" {
		return g.SystemChannelID
	}
	var first string
	for _, ch := range g.Channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		name := strings.ToLower(ch.Name)
		if strings.Contains(name, "général") || strings.Contains(name, "general") {
			return ch.ID
		}
		if first == "" {
			first = ch.ID
		}
	}
	return first
}

func (g *Gateway) onMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil || m.User.Bot {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	// Failures are logged by the service.
	_ = g.onboarding.MemberJoined(ctx, m.GuildID, m.User.ID)
}

func (g *Gateway) onInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	in, ok := toInteraction(ic.Interaction)
	if !ok {
		return
	}
	log := logger.WithTenant(in.TenantID)
	mode := ackFor(in)
	switch mode {
	case ackUpdate:
		if err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}); err != nil {
			log.Error("Failed to acknowledge interaction", "custom_id", in.CustomID, "error", err)
			return
		}
	case ackEphemeral:
		if err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
		}); err != nil {
			log.Error("Failed to acknowledge interaction", "custom_id", in.CustomID, "command", in.Command, "error", err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	resp := g.onboarding.HandleInteraction(ctx, in)
	if err := deliver(s, ic.Interaction, mode, resp); err != nil {
		log.Error("Failed to deliver interaction response", "custom_id", in.CustomID, "command", in.Command, "error", err)
	}
}

// responder is the subset of *discordgo.Session used to answer interactions.
type responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

func deliver(r responder, i *discordgo.Interaction, mode ack, resp service.Response) error {
	if resp.Kind == service.ResponseNone {
		return nil
	}
	switch mode {
	case ackNone:
		switch resp.Kind {
		case service.ResponseModal:
			return r.InteractionRespond(i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseModal, Data: modalData(*resp.Modal)})
		case service.ResponseUpdate:
			return r.InteractionRespond(i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseUpdateMessage, Data: responseData(resp.Message)})
		default:
			return r.InteractionRespond(i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseChannelMessageWithSource, Data: responseData(resp.Message)})
		}
	case ackUpdate:
		if resp.Kind == service.ResponseUpdate {
			_, err := r.InteractionResponseEdit(i, webhookEdit(resp.Message))
			return err
		}
		msg := resp.Message
		msg.Ephemeral = true
		_, err := r.FollowupMessageCreate(i, true, followup(msg))
		return err
	default:
		if resp.Kind == service.ResponseModal {
			return fmt.Errorf("modal cannot follow a deferred reply")
		}
		_, err := r.InteractionResponseEdit(i, webhookEdit(resp.Message))
		return err
	}
}

func toInteraction(i *discordgo.Interaction) (service.Interaction, bool) {
	// Interactions outside a guild are ignored.
	if i == nil || i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return service.Interaction{}, false
	}
	in := service.Interaction{
		TenantID:  i.GuildID,
		ChannelID: i.ChannelID,
		Actor: domain.Actor{
			ID:      i.Member.User.ID,
			Name:    displayName(i.Member.Nick, i.Member.User),
			RoleIDs: append([]string(nil), i.Member.Roles...),
			IsAdmin: i.Member.Permissions&discordgo.PermissionAdministrator != 0,
		},
	}
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		in.Kind = service.InteractionComponent
		in.CustomID = data.CustomID
		in.Values = data.Values
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		in.Kind = service.InteractionModal
		in.CustomID = data.CustomID
		in.Fields = modalFields(data.Components)
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		in.Kind = service.InteractionCommand
		in.Command = data.Name
		in.Options = commandOptions(data.Options)
	default:
		return service.Interaction{}, false
	}
	return in, true
}

func modalFields(rows []discordgo.MessageComponent) map[string]string {
	fields := map[string]string{}
	for _, c := range rows {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				fields[input.CustomID] = input.Value
			}
		}
	}
	return fields
}

func commandOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	out := make(map[string]string, len(opts))
	for _, o := range opts {
		if s, ok := o.Value.(string); ok {
			out[o.Name] = s
			continue
		}
		out[o.Name] = fmt.Sprint(o.Value)
	}
	return out
}
