package domain

import "strings"

// EffectKind is the platform mutation a side effect performs.
type EffectKind string

const (
	EffectMoveToCategory EffectKind = "MOVE_TO_CATEGORY"
	EffectGrantRole      EffectKind = "GRANT_ROLE"
	EffectRevokeRole     EffectKind = "REVOKE_ROLE"
	EffectPostMessage    EffectKind = "POST_MESSAGE"
)

// Notice names a message posted into a case channel.
type Notice string

const (
	NoticeLegalStatusPrompt Notice = "legal_status_prompt"
	NoticeFormApproved      Notice = "form_approved"
	NoticeFormRejected      Notice = "form_rejected"
	NoticeInterviewApproved Notice = "interview_approved"
	NoticeInterviewRejected Notice = "interview_rejected"
)

// SideEffect describes one platform mutation that follows a committed transition.
type SideEffect struct {
	Kind     EffectKind
	Category CategoryKind // MoveToCategory
	RoleIDs  []string     // GrantRole (first id), RevokeRole (all ids)
	Notice   Notice       // PostMessage
	// Guarded effects are skipped when the effect just before them failed.
	Guarded bool
}

// MoveToCategory re-parents the case channel.
func MoveToCategory(kind CategoryKind) SideEffect {
	return SideEffect{Kind: EffectMoveToCategory, Category: kind}
}

// GrantRole grants one role to the applicant.
func GrantRole(roleID string) SideEffect {
	return SideEffect{Kind: EffectGrantRole, RoleIDs: []string{roleID}}
}

// RevokeRole revokes every listed role from the applicant. Empty ids are dropped.
func RevokeRole(roleIDs ...string) SideEffect {
	ids := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return SideEffect{Kind: EffectRevokeRole, RoleIDs: ids}
}

// PostMessage posts a notice into the case channel.
func PostMessage(n Notice) SideEffect {
	return SideEffect{Kind: EffectPostMessage, Notice: n}
}

// AfterSuccess marks the effect as guarded by the one before it.
func (e SideEffect) AfterSuccess() SideEffect {
	e.Guarded = true
	return e
}

func (e SideEffect) String() string {
	switch e.Kind {
	case EffectMoveToCategory:
		return string(e.Kind) + "(" + string(e.Category) + ")"
	case EffectGrantRole, EffectRevokeRole:
		return string(e.Kind) + "(" + strings.Join(e.RoleIDs, ",") + ")"
	case EffectPostMessage:
		return string(e.Kind) + "(" + string(e.Notice) + ")"
	default:
		return string(e.Kind)
	}
}
