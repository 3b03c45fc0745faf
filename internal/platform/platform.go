// Package platform is the boundary to the community platform hosting the tenants.
package platform

import (
	"context"
	"errors"

	"whitelist-bot/internal/domain"
	"whitelist-bot/internal/prompt"
)

// Error codes reported by platform implementations.
const (
	CodeNotFound         = "not_found"
	CodeForbidden        = "forbidden"
	CodeRateLimited      = "rate_limited"
	CodeTimeout          = "timeout"
	CodeUnavailable      = "unavailable"
	CodeInvalidOperation = "invalid_operation"
)

// Error is a failed platform call.
type Error struct {
	Op      string
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Code + ": " + e.Message
}

// Temporary reports whether retrying the call may succeed.
func (e *Error) Temporary() bool {
	return e.Code == CodeRateLimited || e.Code == CodeTimeout || e.Code == CodeUnavailable
}

// IsTemporary reports whether err is a retryable platform error.
func IsTemporary(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Temporary()
}

// IsCode reports whether err is a platform error with the given code.
func IsCode(err error, code string) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Code == code
}

// Category is a channel group.
type Category struct {
	ID   string
	Name string
}

// Channel is a text channel.
type Channel struct {
	ID       string
	Name     string
	ParentID string
}

// Access lists who may see a private channel besides the bot. Everyone else is denied.
type Access struct {
	MemberIDs []string
	RoleIDs   []string
}

// Platform is everything the workflow needs from the hosting platform.
type Platform interface {
	Categories(ctx context.Context, tenantID string) ([]Category, error)
	CreateCategory(ctx context.Context, tenantID, name string, access Access) (Category, error)
	CreateTextChannel(ctx context.Context, tenantID, name, parentID string, access Access) (Channel, error)
	MoveChannel(ctx context.Context, channelID, parentID string) error
	GrantRole(ctx context.Context, tenantID, memberID, roleID string) error
	RevokeRole(ctx context.Context, tenantID, memberID, roleID string) error
	SendMessage(ctx context.Context, channelID string, msg prompt.Message) error
	FetchMember(ctx context.Context, tenantID, memberID string) (domain.Member, error)
	Roles(ctx context.Context, tenantID string) ([]domain.Role, error)
	// Self returns the bot's own membership in the tenant.
	Self(ctx context.Context, tenantID string) (domain.Member, error)
}
