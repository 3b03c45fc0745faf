package prompt

import (
	"strings"

	"whitelist-bot/internal/dispatch"
	"whitelist-bot/internal/domain"
	apperrors "whitelist-bot/internal/errors"
	"whitelist-bot/internal/i18n"
)

// RequestPrompt is the message posted in the request channel.
func RequestPrompt(c *i18n.Catalog) Message {
	return Message{
		Embeds: []Embed{{
			Title:       c.Text("request.title", nil),
			Description: c.Text("request.description", nil),
			Color:       ColorGreen,
			Fields: []EmbedField{
				{Name: c.Text("request.step_form.name", nil), Value: c.Text("request.step_form.value", nil)},
				{Name: c.Text("request.step_review.name", nil), Value: c.Text("request.step_review.value", nil)},
				{Name: c.Text("request.step_interview.name", nil), Value: c.Text("request.step_interview.value", nil)},
			},
		}},
		Rows: []Row{{Buttons: []Button{{
			CustomID: dispatch.Encode(dispatch.VerbRequest, ""),
			Label:    c.Text("request.button", nil),
			Emoji:    "✅",
			Style:    StylePrimary,
		}}}},
	}
}

// CaseCreated is the ephemeral reply pointing the applicant to the case channel.
func CaseCreated(c *i18n.Catalog, channelID string) Message {
	return Message{Content: c.T("case.created", "channel", channelID), Ephemeral: true}
}

// CaseWelcome is the first message of a case channel.
func CaseWelcome(c *i18n.Catalog, applicant domain.Applicant) Message {
	return Message{
		Content: c.T("welcome.content", "applicant", applicant.ID),
		Embeds: []Embed{{
			Title:       c.Text("welcome.title", nil),
			Description: c.T("welcome.description", "applicant", applicant.ID),
			Color:       ColorBlue,
			Fields: []EmbedField{
				{Name: c.Text("welcome.instructions.name", nil), Value: c.Text("welcome.instructions.value", nil)},
			},
		}},
		Rows: []Row{{Buttons: []Button{{
			CustomID: dispatch.Encode(dispatch.VerbFillForm, applicant.ID),
			Label:    c.Text("welcome.button", nil),
			Emoji:    "📝",
			Style:    StyleSuccess,
		}}}},
	}
}

// FormModal is the whitelist form. The background link is not validated.
func FormModal(c *i18n.Catalog, applicantID string) Modal {
	return Modal{
		CustomID: dispatch.Encode(dispatch.VerbSubmitForm, applicantID),
		Title:    c.Text("form.title", nil),
		Fields: []TextField{
			{CustomID: dispatch.FieldLastName, Label: c.Text("form.last_name", nil), Required: true},
			{CustomID: dispatch.FieldFirstName, Label: c.Text("form.first_name", nil), Required: true},
			{CustomID: dispatch.FieldBackgroundURL, Label: c.Text("form.background", nil), Placeholder: "https://", Required: true},
		},
	}
}

// FormAccepted acknowledges a submitted form.
func FormAccepted(c *i18n.Catalog) Message {
	return Message{Content: c.Text("form.submitted", nil), Ephemeral: true}
}

// LegalStatusSelect asks the applicant to pick a legal status.
func LegalStatusSelect(c *i18n.Catalog, applicantID string) Message {
	return Message{
		Content: c.T("legal.prompt", "applicant", applicantID),
		Rows: []Row{{Select: &Select{
			CustomID:    dispatch.Encode(dispatch.VerbLegalStatus, applicantID),
			Placeholder: c.Text("legal.placeholder", nil),
			Options: []SelectOption{
				{Label: c.Text("legal.legal.label", nil), Value: string(domain.LegalStatusLegal), Description: c.Text("legal.legal.description", nil), Emoji: "👮"},
				{Label: c.Text("legal.illegal.label", nil), Value: string(domain.LegalStatusIllegal), Description: c.Text("legal.illegal.description", nil), Emoji: "🦹"},
			},
		}}},
	}
}

// FormReview summarises a submission for staff with Approve/Reject buttons.
func FormReview(c *i18n.Catalog, applicantID string, s domain.Submission) Message {
	color, status := ColorGreen, c.Text("review.status.legal", nil)
	if s.LegalStatus == domain.LegalStatusIllegal {
		color, status = ColorRed, c.Text("review.status.illegal", nil)
	}
	return Message{
		Content: c.T("review.submitted", "applicant", applicantID),
		Embeds: []Embed{{
			Title: c.Text("review.title", nil),
			Color: color,
			Fields: []EmbedField{
				{Name: c.Text("review.field.last_name", nil), Value: s.LastName, Inline: true},
				{Name: c.Text("review.field.first_name", nil), Value: s.FirstName, Inline: true},
				{Name: c.Text("review.field.status", nil), Value: status, Inline: true},
				{Name: c.Text("review.field.background", nil), Value: c.T("review.background_link", "url", s.BackgroundURL)},
			},
		}},
		Rows: []Row{{Buttons: []Button{
			{CustomID: dispatch.Encode(dispatch.VerbApproveForm, applicantID), Label: c.Text("review.approve", nil), Emoji: "✅", Style: StyleSuccess},
			{CustomID: dispatch.Encode(dispatch.VerbRejectForm, applicantID), Label: c.Text("review.reject", nil), Emoji: "❌", Style: StyleDanger},
		}}},
	}
}

// FormDecision replaces the review buttons with the verdict. An approval
// carries the interview buttons.
func FormDecision(c *i18n.Catalog, applicantID, actorID string, d domain.Decision) Message {
	m := Message{Embeds: []Embed{decisionEmbed(c, "form", actorID, d)}}
	if d == domain.DecisionApprove {
		m.Rows = []Row{{Buttons: []Button{
			{CustomID: dispatch.Encode(dispatch.VerbApproveInterview, applicantID), Label: c.Text("interview.approve", nil), Emoji: "✅", Style: StyleSuccess},
			{CustomID: dispatch.Encode(dispatch.VerbRejectInterview, applicantID), Label: c.Text("interview.reject", nil), Emoji: "❌", Style: StyleDanger},
		}}}
	}
	return m
}

// InterviewDecision replaces the interview buttons with the verdict.
func InterviewDecision(c *i18n.Catalog, actorID string, d domain.Decision) Message {
	return Message{Embeds: []Embed{decisionEmbed(c, "interview", actorID, d)}}
}

func decisionEmbed(c *i18n.Catalog, step, actorID string, d domain.Decision) Embed {
	color := ColorGreen
	if d == domain.DecisionReject {
		color = ColorRed
	}
	prefix := "decision." + step + "." + string(d)
	return Embed{
		Title:       c.Text(prefix+".title", nil),
		Description: c.T(prefix+".description", "actor", actorID),
		Color:       color,
	}
}

// Notice renders a message posted by a side effect.
func Notice(c *i18n.Catalog, n domain.Notice, applicantID string, cfg domain.TenantConfig) Message {
	switch n {
	case domain.NoticeLegalStatusPrompt:
		return LegalStatusSelect(c, applicantID)
	case domain.NoticeInterviewApproved:
		return Message{Content: c.T("notice.interview_approved", "applicant", applicantID, "role", cfg.ValidWlRoleID)}
	default:
		return Message{Content: c.T("notice."+string(n), "applicant", applicantID)}
	}
}

// Warning describes a failed side effect for staff to remediate.
func Warning(c *i18n.Catalog, err error) Message {
	return Message{Content: c.T("warning.effect", "message", c.Error(err), "code", string(apperrors.CodeOf(err)))}
}

// Failure is the ephemeral reply for a rejected or failed action.
func Failure(c *i18n.Catalog, err error) Message {
	return Message{Content: c.Error(err), Ephemeral: true}
}

// ConfigSummary is the ephemeral reply to a saved configuration.
func ConfigSummary(c *i18n.Catalog, cfg domain.TenantConfig) Message {
	cfg = cfg.WithDefaults()
	defaultRole := c.Text("config.saved.none", nil)
	if cfg.DefaultRoleID != "" {
		defaultRole = "<@&" + cfg.DefaultRoleID + ">"
	}
	return Message{
		Ephemeral: true,
		Embeds: []Embed{{
			Title: c.Text("config.saved.title", nil),
			Color: ColorGreen,
			Fields: []EmbedField{
				{Name: c.Text("config.saved.request_channel", nil), Value: "<#" + cfg.RequestChannelID + ">"},
				{Name: c.Text("config.saved.staff_role", nil), Value: "<@&" + cfg.StaffRoleID + ">"},
				{Name: c.Text("config.saved.valid_request_role", nil), Value: "<@&" + cfg.ValidRequestRoleID + ">"},
				{Name: c.Text("config.saved.valid_wl_role", nil), Value: "<@&" + cfg.ValidWlRoleID + ">"},
				{Name: c.Text("config.saved.default_role", nil), Value: defaultRole},
				{Name: c.Text("config.saved.categories", nil), Value: strings.Join(cfg.AllCategoryNames(), "\n")},
			},
		}},
	}
}

// SendDenied warns an administrator that the request prompt could not be posted.
func SendDenied(c *i18n.Catalog, channelID string) Message {
	return Message{Content: c.T("config.send_denied", "channel", channelID)}
}

// GuildHello is posted when the bot joins a community.
func GuildHello(c *i18n.Catalog, guildName string) Message {
	return Message{Embeds: []Embed{{
		Title:       c.Text("guild.hello.title", nil),
		Description: c.T("guild.hello.description", "guild", guildName),
		Color:       ColorBlue,
		Fields: []EmbedField{
			{Name: c.Text("guild.hello.setup.name", nil), Value: c.Text("guild.hello.setup.value", nil)},
		},
	}}}
}

// CaseList is the ephemeral reply listing the open cases of a tenant.
func CaseList(c *i18n.Catalog, cases []domain.ApplicationCase) Message {
	if len(cases) == 0 {
		return Message{Content: c.Text("cases.empty", nil), Ephemeral: true}
	}
	lines := make([]string, 0, len(cases))
	for _, cs := range cases {
		lines = append(lines, c.T("cases.line", "applicant", cs.Applicant.ID, "stage", string(cs.Stage), "channel", cs.ChannelID))
	}
	return Message{
		Ephemeral: true,
		Embeds: []Embed{{
			Title:       c.Text("cases.title", nil),
			Description: strings.Join(lines, "\n"),
			Color:       ColorBlue,
		}},
	}
}
