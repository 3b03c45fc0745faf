// Package discord implements the platform boundary and the gateway handlers on
// top of discordgo.
package discord

import (
	"context"
	"errors"
	"net/http"

	"whitelist-bot/internal/domain"
	"whitelist-bot/internal/platform"
	"whitelist-bot/internal/prompt"

	"github.com/bwmarrin/discordgo"
)

// restAPI is the subset of *discordgo.Session the client calls.
type restAPI interface {
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelEdit(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
}

// Client is the Discord implementation of platform.Platform.
type Client struct {
	api    restAPI
	selfID func() string
}

var _ platform.Platform = (*Client)(nil)

// NewClient wraps an open session. The bot user id is read from the session
// state once the gateway is ready.
func NewClient(s *discordgo.Session) *Client {
	return &Client{
		api: s,
		selfID: func() string {
			if s.State == nil || s.State.User == nil {
				return ""
			}
			return s.State.User.ID
		},
	}
}

func (c *Client) Categories(ctx context.Context, tenantID string) ([]platform.Category, error) {
	channels, err := c.api.GuildChannels(tenantID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError("categories", err)
	}
	var out []platform.Category
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory {
			out = append(out, platform.Category{ID: ch.ID, Name: ch.Name})
		}
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, tenantID, name string, access platform.Access) (platform.Category, error) {
	ch, err := c.api.GuildChannelCreateComplex(tenantID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildCategory,
		PermissionOverwrites: overwrites(tenantID, c.selfID(), access),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return platform.Category{}, mapError("create_category", err)
	}
	return platform.Category{ID: ch.ID, Name: ch.Name}, nil
}

func (c *Client) CreateTextChannel(ctx context.Context, tenantID, name, parentID string, access platform.Access) (platform.Channel, error) {
	ch, err := c.api.GuildChannelCreateComplex(tenantID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             parentID,
		PermissionOverwrites: overwrites(tenantID, c.selfID(), access),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return platform.Channel{}, mapError("create_channel", err)
	}
	return platform.Channel{ID: ch.ID, Name: ch.Name, ParentID: ch.ParentID}, nil
}

func (c *Client) MoveChannel(ctx context.Context, channelID, parentID string) error {
	_, err := c.api.ChannelEdit(channelID, &discordgo.ChannelEdit{ParentID: parentID}, discordgo.WithContext(ctx))
	return mapError("move_channel", err)
}

func (c *Client) GrantRole(ctx context.Context, tenantID, memberID, roleID string) error {
	return mapError("grant_role", c.api.GuildMemberRoleAdd(tenantID, memberID, roleID, discordgo.WithContext(ctx)))
}

func (c *Client) RevokeRole(ctx context.Context, tenantID, memberID, roleID string) error {
	return mapError("revoke_role", c.api.GuildMemberRoleRemove(tenantID, memberID, roleID, discordgo.WithContext(ctx)))
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg prompt.Message) error {
	_, err := c.api.ChannelMessageSendComplex(channelID, messageSend(msg), discordgo.WithContext(ctx))
	return mapError("send_message", err)
}

func (c *Client) FetchMember(ctx context.Context, tenantID, memberID string) (domain.Member, error) {
	m, err := c.api.GuildMember(tenantID, memberID, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Member{}, mapError("fetch_member", err)
	}
	return toMember(m), nil
}

func (c *Client) Roles(ctx context.Context, tenantID string) ([]domain.Role, error) {
	roles, err := c.api.GuildRoles(tenantID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError("roles", err)
	}
	out := make([]domain.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, domain.Role{ID: r.ID, Name: r.Name, Position: r.Position, Permissions: r.Permissions})
	}
	return out, nil
}

func (c *Client) Self(ctx context.Context, tenantID string) (domain.Member, error) {
	id := c.selfID()
	if id == "" {
		return domain.Member{}, &platform.Error{Op: "self", Code: platform.CodeUnavailable, Message: "gateway is not ready"}
	}
	return c.FetchMember(ctx, tenantID, id)
}

func toMember(m *discordgo.Member) domain.Member {
	out := domain.Member{RoleIDs: append([]string(nil), m.Roles...)}
	if m.User != nil {
		out.ID = m.User.ID
		out.Name = displayName(m.Nick, m.User)
	}
	return out
}

func displayName(nick string, u *discordgo.User) string {
	switch {
	case nick != "":
		return nick
	case u.GlobalName != "":
		return u.GlobalName
	default:
		return u.Username
	}
}

// mapError converts a discordgo failure into a platform error.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		msg := string(rest.ResponseBody)
		if rest.Message != nil && rest.Message.Message != "" {
			msg = rest.Message.Message
		}
		return &platform.Error{Op: op, Code: statusCode(rest.Response.StatusCode), Message: msg}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &platform.Error{Op: op, Code: platform.CodeTimeout, Message: err.Error()}
	}
	if errors.Is(err, context.Canceled) {
		return &platform.Error{Op: op, Code: platform.CodeInvalidOperation, Message: err.Error()}
	}
	return &platform.Error{Op: op, Code: platform.CodeUnavailable, Message: err.Error()}
}

func statusCode(status int) string {
	switch {
	case status == http.StatusNotFound:
		return platform.CodeNotFound
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return platform.CodeForbidden
	case status == http.StatusTooManyRequests:
		return platform.CodeRateLimited
	case status == http.StatusGatewayTimeout:
		return platform.CodeTimeout
	case status >= 500:
		return platform.CodeUnavailable
	default:
		return platform.CodeInvalidOperation
	}
}
