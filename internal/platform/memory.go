package platform

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"whitelist-bot/internal/domain"
	"whitelist-bot/internal/prompt"
)

type memoryTenant struct {
	roles   []domain.Role
	members map[string]*domain.Member
	selfID  string
}

// Memory is an in-process Platform used for dry runs and tests.
type Memory struct {
	mu        sync.Mutex
	nextID    int
	tenants   map[string]*memoryTenant
	channels  map[string]*Channel
	owners    map[string]string // channel id to tenant id
	isGroup   map[string]bool
	access    map[string]Access
	messages  map[string][]prompt.Message
	failures  map[string]*Error
	callCount map[string]int
}

// NewMemory returns an empty in-memory platform.
func NewMemory() *Memory {
	return &Memory{
		tenants:   map[string]*memoryTenant{},
		channels:  map[string]*Channel{},
		owners:    map[string]string{},
		isGroup:   map[string]bool{},
		access:    map[string]Access{},
		messages:  map[string][]prompt.Message{},
		failures:  map[string]*Error{},
		callCount: map[string]int{},
	}
}

// AddTenant registers a tenant with its roles and the bot member.
func (m *Memory) AddTenant(tenantID string, self domain.Member, roles ...domain.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &memoryTenant{roles: roles, members: map[string]*domain.Member{}, selfID: self.ID}
	t.members[self.ID] = &self
	m.tenants[tenantID] = t
}

// AddMember adds or replaces a member of a tenant.
func (m *Memory) AddMember(tenantID string, member domain.Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tenants[tenantID]; ok {
		t.members[member.ID] = &member
	}
}

// Fail makes every later call of op fail with code until Recover is called.
func (m *Memory) Fail(op, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = &Error{Op: op, Code: code, Message: "injected failure"}
}

// Recover clears an injected failure.
func (m *Memory) Recover(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, op)
}

// Calls returns how many times op was attempted.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount[op]
}

// Messages returns the messages posted in a channel.
func (m *Memory) Messages(channelID string) []prompt.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.messages[channelID])
}

// Channel returns a channel or category by id.
func (m *Memory) Channel(id string) (Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.channels[id]
	if !ok {
		return Channel{}, false
	}
	return *c, true
}

// AccessOf returns the access list a channel or category was created with.
func (m *Memory) AccessOf(id string) Access {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access[id]
}

// CategoryName returns the name of the category a channel sits in.
func (m *Memory) CategoryName(channelID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.channels[channelID]
	if !ok {
		return ""
	}
	if parent, ok := m.channels[c.ParentID]; ok {
		return parent.Name
	}
	return ""
}

// MemberRoles returns the role ids a member holds.
func (m *Memory) MemberRoles(tenantID, memberID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tenants[tenantID]; ok {
		if mem, ok := t.members[memberID]; ok {
			return slices.Clone(mem.RoleIDs)
		}
	}
	return nil
}

func (m *Memory) begin(op string) error {
	m.callCount[op]++
	if f, ok := m.failures[op]; ok {
		return f
	}
	return nil
}

func (m *Memory) tenant(op, tenantID string) (*memoryTenant, error) {
	t, ok := m.tenants[tenantID]
	if !ok {
		return nil, &Error{Op: op, Code: CodeNotFound, Message: "unknown tenant " + tenantID}
	}
	return t, nil
}

func (m *Memory) newID() string {
	m.nextID++
	return fmt.Sprintf("%d", 1000+m.nextID)
}

func (m *Memory) Categories(ctx context.Context, tenantID string) ([]Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("categories"); err != nil {
		return nil, err
	}
	if _, err := m.tenant("categories", tenantID); err != nil {
		return nil, err
	}
	var out []Category
	for id, c := range m.channels {
		if m.isGroup[id] && m.owners[id] == tenantID {
			out = append(out, Category{ID: c.ID, Name: c.Name})
		}
	}
	slices.SortFunc(out, func(a, b Category) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *Memory) CreateCategory(ctx context.Context, tenantID, name string, access Access) (Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("create_category"); err != nil {
		return Category{}, err
	}
	if _, err := m.tenant("create_category", tenantID); err != nil {
		return Category{}, err
	}
	id := m.newID()
	m.channels[id] = &Channel{ID: id, Name: name}
	m.owners[id] = tenantID
	m.isGroup[id] = true
	m.access[id] = access
	return Category{ID: id, Name: name}, nil
}

func (m *Memory) CreateTextChannel(ctx context.Context, tenantID, name, parentID string, access Access) (Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("create_channel"); err != nil {
		return Channel{}, err
	}
	if _, err := m.tenant("create_channel", tenantID); err != nil {
		return Channel{}, err
	}
	id := m.newID()
	c := &Channel{ID: id, Name: name, ParentID: parentID}
	m.channels[id] = c
	m.owners[id] = tenantID
	m.access[id] = access
	return *c, nil
}

func (m *Memory) MoveChannel(ctx context.Context, channelID, parentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("move_channel"); err != nil {
		return err
	}
	c, ok := m.channels[channelID]
	if !ok || m.isGroup[channelID] {
		return &Error{Op: "move_channel", Code: CodeNotFound, Message: "unknown channel " + channelID}
	}
	if !m.isGroup[parentID] {
		return &Error{Op: "move_channel", Code: CodeNotFound, Message: "unknown category " + parentID}
	}
	c.ParentID = parentID
	return nil
}

func (m *Memory) member(op, tenantID, memberID string) (*memoryTenant, *domain.Member, error) {
	t, err := m.tenant(op, tenantID)
	if err != nil {
		return nil, nil, err
	}
	mem, ok := t.members[memberID]
	if !ok {
		return nil, nil, &Error{Op: op, Code: CodeNotFound, Message: "unknown member " + memberID}
	}
	return t, mem, nil
}

func (m *Memory) GrantRole(ctx context.Context, tenantID, memberID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("grant_role"); err != nil {
		return err
	}
	t, mem, err := m.member("grant_role", tenantID, memberID)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(t.roles, func(r domain.Role) bool { return r.ID == roleID }) {
		return &Error{Op: "grant_role", Code: CodeNotFound, Message: "unknown role " + roleID}
	}
	if !slices.Contains(mem.RoleIDs, roleID) {
		mem.RoleIDs = append(mem.RoleIDs, roleID)
	}
	return nil
}

func (m *Memory) RevokeRole(ctx context.Context, tenantID, memberID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("revoke_role"); err != nil {
		return err
	}
	_, mem, err := m.member("revoke_role", tenantID, memberID)
	if err != nil {
		return err
	}
	mem.RoleIDs = slices.DeleteFunc(mem.RoleIDs, func(id string) bool { return id == roleID })
	return nil
}

func (m *Memory) SendMessage(ctx context.Context, channelID string, msg prompt.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("send_message"); err != nil {
		return err
	}
	if _, ok := m.channels[channelID]; !ok {
		// Request channels are configured by id and may never have been created here.
		m.channels[channelID] = &Channel{ID: channelID}
	}
	m.messages[channelID] = append(m.messages[channelID], msg)
	return nil
}

func (m *Memory) FetchMember(ctx context.Context, tenantID, memberID string) (domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("fetch_member"); err != nil {
		return domain.Member{}, err
	}
	_, mem, err := m.member("fetch_member", tenantID, memberID)
	if err != nil {
		return domain.Member{}, err
	}
	out := *mem
	out.RoleIDs = slices.Clone(mem.RoleIDs)
	return out, nil
}

func (m *Memory) Roles(ctx context.Context, tenantID string) ([]domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("roles"); err != nil {
		return nil, err
	}
	t, err := m.tenant("roles", tenantID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(t.roles), nil
}

func (m *Memory) Self(ctx context.Context, tenantID string) (domain.Member, error) {
	m.mu.Lock()
	t, ok := m.tenants[tenantID]
	m.mu.Unlock()
	if !ok {
		return domain.Member{}, &Error{Op: "self", Code: CodeNotFound, Message: "unknown tenant " + tenantID}
	}
	return m.FetchMember(ctx, tenantID, t.selfID)
}
