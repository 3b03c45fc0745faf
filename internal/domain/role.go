package domain

import "sort"

// Permission bits the workflow inspects, matching the platform's bit layout.
const (
	PermissionAdministrator int64 = 1 << 3
	PermissionManageRoles   int64 = 1 << 28
)

// Role is one rank of a tenant's role hierarchy.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
	Permissions int64  `json:"permissions"`
}

// Member is a tenant member with the roles it holds.
type Member struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	RoleIDs []string `json:"role_ids"`
}

// Hierarchy indexes a tenant's roles for rank comparisons.
type Hierarchy struct {
	tenantID string
	roles    map[string]Role
}

// NewHierarchy builds a hierarchy. The role whose id equals the tenant id is the
// implicit everyone role every member holds.
func NewHierarchy(tenantID string, roles []Role) Hierarchy {
	h := Hierarchy{tenantID: tenantID, roles: make(map[string]Role, len(roles))}
	for _, r := range roles {
		h.roles[r.ID] = r
	}
	return h
}

// Role looks up a role by id.
func (h Hierarchy) Role(id string) (Role, bool) {
	r, ok := h.roles[id]
	return r, ok
}

// HighestPosition returns the highest position among the given roles, or -1
// when none of them exist. The everyone role counts for every member.
func (h Hierarchy) HighestPosition(roleIDs []string) int {
	highest := -1
	if r, ok := h.roles[h.tenantID]; ok {
		highest = r.Position
	}
	for _, id := range roleIDs {
		if r, ok := h.roles[id]; ok && r.Position > highest {
			highest = r.Position
		}
	}
	return highest
}

// Outranks reports whether roleIDs hold a rank at or above the target role.
// Comparison is by position, so any higher role qualifies.
func (h Hierarchy) Outranks(roleIDs []string, targetID string) bool {
	target, ok := h.roles[targetID]
	if !ok {
		return false
	}
	return h.HighestPosition(roleIDs) >= target.Position
}

// CanManage reports whether roleIDs sit strictly above the target role, the
// condition for granting or revoking it.
func (h Hierarchy) CanManage(roleIDs []string, targetID string) bool {
	target, ok := h.roles[targetID]
	if !ok {
		return false
	}
	return h.HighestPosition(roleIDs) > target.Position
}

// Permissions combines the permission bits of the given roles and the everyone role.
func (h Hierarchy) Permissions(roleIDs []string) int64 {
	var perms int64
	if r, ok := h.roles[h.tenantID]; ok {
		perms |= r.Permissions
	}
	for _, id := range roleIDs {
		if r, ok := h.roles[id]; ok {
			perms |= r.Permissions
		}
	}
	return perms
}

// CanManageRoles reports whether the roles carry role management rights.
func (h Hierarchy) CanManageRoles(roleIDs []string) bool {
	perms := h.Permissions(roleIDs)
	return perms&PermissionAdministrator != 0 || perms&PermissionManageRoles != 0
}

// AtOrAbove lists the roles ranked at or above the target role, highest first.
// It returns nil when the target is unknown.
func (h Hierarchy) AtOrAbove(targetID string) []string {
	target, ok := h.roles[targetID]
	if !ok {
		return nil
	}
	var ranked []Role
	for _, r := range h.roles {
		if r.ID != h.tenantID && r.Position >= target.Position {
			ranked = append(ranked, r)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Position != ranked[j].Position {
			return ranked[i].Position > ranked[j].Position
		}
		return ranked[i].ID < ranked[j].ID
	})
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
	}
	return ids
}
