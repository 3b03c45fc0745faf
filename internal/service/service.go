package service

import (
	"context"

	"whitelist-bot/internal/domain"
	"whitelist-bot/internal/prompt"
)

// InteractionKind is the shape of an inbound interaction.
type InteractionKind string

const (
	InteractionComponent InteractionKind = "component"
	InteractionModal     InteractionKind = "modal"
	InteractionCommand   InteractionKind = "command"
)

// Interaction is a platform-neutral inbound user action.
type Interaction struct {
	Kind      InteractionKind   `json:"kind"`
	TenantID  string            `json:"tenant_id"`
	ChannelID string            `json:"channel_id"`
	Actor     domain.Actor      `json:"actor"`
	CustomID  string            `json:"custom_id,omitempty"`
	Values    []string          `json:"values,omitempty"`  // select menu choices
	Fields    map[string]string `json:"fields,omitempty"`  // modal inputs
	Command   string            `json:"command,omitempty"` // slash command name
	Options   map[string]string `json:"options,omitempty"` // slash command options
}

// ResponseKind is how the reply is delivered.
type ResponseKind string

const (
	ResponseNone    ResponseKind = "none"
	ResponseMessage ResponseKind = "message"
	ResponseUpdate  ResponseKind = "update"
	ResponseModal   ResponseKind = "modal"
)

// Response is the reply to an interaction.
type Response struct {
	Kind    ResponseKind   `json:"kind"`
	Message prompt.Message `json:"message"`
	Modal   *prompt.Modal  `json:"modal,omitempty"`
}

// Slash command names.
const (
	CommandConfig = "config"
	CommandCases  = "cases"
)

type OnboardingService interface {
	// HandleInteraction never fails: every error is rendered into the response.
	HandleInteraction(ctx context.Context, in Interaction) Response
	MemberJoined(ctx context.Context, tenantID, memberID string) error
	ListCases(ctx context.Context, tenantID string, actor domain.Actor) ([]domain.ApplicationCase, error)
}

type TenantService interface {
	Configure(ctx context.Context, actor domain.Actor, cfg domain.TenantConfig) (*domain.TenantConfig, error)
	GetConfig(ctx context.Context, tenantID string) (*domain.TenantConfig, error)
	// NotifyConfigured ensures the categories exist and posts the request prompt. Safe to repeat.
	NotifyConfigured(ctx context.Context, cfg domain.TenantConfig) error
	Greet(ctx context.Context, channelID, tenantName string) error
}
