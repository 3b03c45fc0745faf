package domain

import "time"

// Default category names, used when a tenant leaves one unset.
const (
	DefaultCategoryNewRequests = "🔍 Demande de Whitelist"
	DefaultCategoryPending     = "⏳ WL en attente de validation"
	DefaultCategoryApproved    = "✅ WL validée"
	DefaultCategoryRejected    = "❌ WL refusée"
	DefaultCategoryCompleted   = "🌟 WL Complète"

	DefaultLocale = "fr"
)

// CategoryKind names one of the channel groups a case moves through.
type CategoryKind string

const (
	CategoryNewRequests CategoryKind = "new_requests"
	CategoryPending     CategoryKind = "pending"
	CategoryApproved    CategoryKind = "approved"
	CategoryRejected    CategoryKind = "rejected"
	CategoryCompleted   CategoryKind = "completed"
)

// Categories holds the display names of the case channel groups.
type Categories struct {
	NewRequests string `json:"new_requests" yaml:"new_requests"`
	Pending     string `json:"pending" yaml:"pending"`
	Approved    string `json:"approved" yaml:"approved"`
	Rejected    string `json:"rejected" yaml:"rejected"`
	Completed   string `json:"completed" yaml:"completed"`
}

// TenantConfig is the per-community configuration written by an administrator.
type TenantConfig struct {
	TenantID           string     `json:"tenant_id" yaml:"tenant_id"`
	RequestChannelID   string     `json:"request_channel_id" yaml:"request_channel_id"`
	StaffRoleID        string     `json:"staff_role_id" yaml:"staff_role_id"`
	ValidRequestRoleID string     `json:"valid_request_role_id" yaml:"valid_request_role_id"`
	ValidWlRoleID      string     `json:"valid_wl_role_id" yaml:"valid_wl_role_id"`
	DefaultRoleID      string     `json:"default_role_id,omitempty" yaml:"default_role_id,omitempty"`
	Categories         Categories `json:"categories" yaml:"categories"`
	Locale             string     `json:"locale,omitempty" yaml:"locale,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at" yaml:"updated_at"`
	UpdatedBy          string     `json:"updated_by" yaml:"updated_by"`
}

// WithDefaults returns a copy with every unset category name and the locale filled in.
func (c TenantConfig) WithDefaults() TenantConfig {
	if c.Categories.NewRequests == "" {
		c.Categories.NewRequests = DefaultCategoryNewRequests
	}
	if c.Categories.Pending == "" {
		c.Categories.Pending = DefaultCategoryPending
	}
	if c.Categories.Approved == "" {
		c.Categories.Approved = DefaultCategoryApproved
	}
	if c.Categories.Rejected == "" {
		c.Categories.Rejected = DefaultCategoryRejected
	}
	if c.Categories.Completed == "" {
		c.Categories.Completed = DefaultCategoryCompleted
	}
	if c.Locale == "" {
		c.Locale = DefaultLocale
	}
	return c
}

// CategoryName resolves a category kind to its configured display name.
func (c TenantConfig) CategoryName(kind CategoryKind) string {
	cats := c.WithDefaults().Categories
	switch kind {
	case CategoryNewRequests:
		return cats.NewRequests
	case CategoryPending:
		return cats.Pending
	case CategoryApproved:
		return cats.Approved
	case CategoryRejected:
		return cats.Rejected
	case CategoryCompleted:
		return cats.Completed
	default:
		return ""
	}
}

// AllCategoryNames lists every configured category in workflow order.
func (c TenantConfig) AllCategoryNames() []string {
	cats := c.WithDefaults().Categories
	return []string{cats.NewRequests, cats.Pending, cats.Approved, cats.Rejected, cats.Completed}
}

// GrantedRoleIDs lists the roles the bot may grant or revoke for this tenant.
func (c TenantConfig) GrantedRoleIDs() []string {
	ids := []string{c.ValidRequestRoleID, c.ValidWlRoleID}
	if c.DefaultRoleID != "" {
		ids = append(ids, c.DefaultRoleID)
	}
	return ids
}
