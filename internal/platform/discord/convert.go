package discord

import (
	"whitelist-bot/internal/platform"
	"whitelist-bot/internal/prompt"

	"github.com/bwmarrin/discordgo"
)

var buttonStyles = map[prompt.ButtonStyle]discordgo.ButtonStyle{
	prompt.StylePrimary:   discordgo.PrimaryButton,
	prompt.StyleSecondary: discordgo.SecondaryButton,
	prompt.StyleSuccess:   discordgo.SuccessButton,
	prompt.StyleDanger:    discordgo.DangerButton,
}

func componentEmoji(name string) *discordgo.ComponentEmoji {
	if name == "" {
		return nil
	}
	return &discordgo.ComponentEmoji{Name: name}
}

func components(rows []prompt.Row) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		var items []discordgo.MessageComponent
		for _, b := range row.Buttons {
			style, ok := buttonStyles[b.Style]
			if !ok {
				style = discordgo.SecondaryButton
			}
			items = append(items, discordgo.Button{
				CustomID: b.CustomID,
				Label:    b.Label,
				Style:    style,
				Emoji:    componentEmoji(b.Emoji),
			})
		}
		if s := row.Select; s != nil {
			options := make([]discordgo.SelectMenuOption, 0, len(s.Options))
			for _, o := range s.Options {
				options = append(options, discordgo.SelectMenuOption{
					Label:       o.Label,
					Value:       o.Value,
					Description: o.Description,
					Emoji:       componentEmoji(o.Emoji),
				})
			}
			items = append(items, discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    s.CustomID,
				Placeholder: s.Placeholder,
				Options:     options,
			})
		}
		if len(items) > 0 {
			out = append(out, discordgo.ActionsRow{Components: items})
		}
	}
	return out
}

func embeds(in []prompt.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(in))
	for _, e := range in {
		fields := make([]*discordgo.MessageEmbedField, 0, len(e.Fields))
		for _, f := range e.Fields {
			fields = append(fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		out = append(out, &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
			Fields:      fields,
		})
	}
	return out
}

func messageSend(msg prompt.Message) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     embeds(msg.Embeds),
		Components: components(msg.Rows),
	}
}

func flags(msg prompt.Message) discordgo.MessageFlags {
	if msg.Ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

func responseData(msg prompt.Message) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Content:    msg.Content,
		Embeds:     embeds(msg.Embeds),
		Components: components(msg.Rows),
		Flags:      flags(msg),
	}
}

func modalData(m prompt.Modal) *discordgo.InteractionResponseData {
	rows := make([]discordgo.MessageComponent, 0, len(m.Fields))
	for _, f := range m.Fields {
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    f.CustomID,
				Label:       f.Label,
				Style:       discordgo.TextInputShort,
				Placeholder: f.Placeholder,
				Required:    f.Required,
			},
		}})
	}
	return &discordgo.InteractionResponseData{CustomID: m.CustomID, Title: m.Title, Components: rows}
}

// webhookEdit replaces the whole deferred reply, clearing components the message no longer carries.
func webhookEdit(msg prompt.Message) *discordgo.WebhookEdit {
	content := msg.Content
	e := embeds(msg.Embeds)
	c := components(msg.Rows)
	return &discordgo.WebhookEdit{Content: &content, Embeds: &e, Components: &c}
}

func followup(msg prompt.Message) *discordgo.WebhookParams {
	return &discordgo.WebhookParams{
		Content:    msg.Content,
		Embeds:     embeds(msg.Embeds),
		Components: components(msg.Rows),
		Flags:      flags(msg),
	}
}

const viewAndSend = int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory)

// overwrites hides a channel from everyone except the bot and the given members and roles.
// The everyone role of a guild has the guild id.
func overwrites(guildID, botID string, access platform.Access) []*discordgo.PermissionOverwrite {
	out := []*discordgo.PermissionOverwrite{{
		ID:   guildID,
		Type: discordgo.PermissionOverwriteTypeRole,
		Deny: int64(discordgo.PermissionViewChannel),
	}}
	if botID != "" {
		out = append(out, &discordgo.PermissionOverwrite{ID: botID, Type: discordgo.PermissionOverwriteTypeMember, Allow: viewAndSend})
	}
	for _, id := range access.MemberIDs {
		out = append(out, &discordgo.PermissionOverwrite{ID: id, Type: discordgo.PermissionOverwriteTypeMember, Allow: viewAndSend})
	}
	for _, id := range access.RoleIDs {
		out = append(out, &discordgo.PermissionOverwrite{ID: id, Type: discordgo.PermissionOverwriteTypeRole, Allow: viewAndSend})
	}
	return out
}
