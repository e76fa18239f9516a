package preference

import (
	"slices"
	"sync"

	"github.com/nhle/notification-engine/internal/model"
)

type permissionKey struct {
	role     model.Role
	category model.Category
}

// Permissions is the (role, category) capability table. It is reference
// data that changes rarely.
type Permissions struct {
	mu      sync.RWMutex
	entries map[permissionKey]model.Permission
}

// NewPermissions creates a table seeded with the given entries.
func NewPermissions(seed []model.Permission) *Permissions {
	p := &Permissions{}
	p.Replace(seed)
	return p
}

// Get returns the permission for the pair or nil.
func (p *Permissions) Get(role model.Role, category model.Category) *model.Permission {
	p.mu.RLock()
	defer p.mu.RUnlock()

	perm, ok := p.entries[permissionKey{role, category}]
	if !ok {
		return nil
	}
	c := perm.Clone()
	return &c
}

// Update shallow-merges patch into the pair's entry, creating an entry
// with no capabilities first if none exists.
func (p *Permissions) Update(role model.Role, category model.Category, patch model.PermissionPatch) model.Permission {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := permissionKey{role, category}
	perm, ok := p.entries[key]
	if !ok {
		perm = model.Permission{Role: role, Category: category}
	}
	perm = patch.Apply(perm.Clone())
	perm.Role = role
	perm.Category = category

	p.entries[key] = perm
	return perm.Clone()
}

// All returns every entry ordered by role then category.
func (p *Permissions) All() []model.Permission {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]model.Permission, 0, len(p.entries))
	for _, perm := range p.entries {
		out = append(out, perm.Clone())
	}
	slices.SortFunc(out, func(a, b model.Permission) int {
		if a.Role != b.Role {
			return slices.Index(model.Roles, a.Role) - slices.Index(model.Roles, b.Role)
		}
		return categoryIndex(a.Category) - categoryIndex(b.Category)
	})
	return out
}

// Replace swaps the whole table.
func (p *Permissions) Replace(entries []model.Permission) {
	next := make(map[permissionKey]model.Permission, len(entries))
	for _, perm := range entries {
		next[permissionKey{perm.Role, perm.Category}] = perm.Clone()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = next
}

// DefaultPermissions returns the seeded role table.
func DefaultPermissions() []model.Permission {
	var out []model.Permission
	for _, role := range model.Roles {
		for _, cat := range model.Categories {
			out = append(out, defaultPermission(role, cat))
		}
	}
	return out
}

func defaultPermission(role model.Role, cat model.Category) model.Permission {
	p := model.Permission{Role: role, Category: cat}
	work := cat == model.CategoryChat || cat == model.CategoryProject || cat == model.CategoryTask

	switch role {
	case model.RoleAdmin:
		p.CanReceive, p.CanConfigure, p.CanSend, p.CanManage = true, true, true, true
	case model.RoleManager:
		p.CanReceive, p.CanConfigure, p.CanSend = true, true, true
		p.CanManage = cat == model.CategoryProject || cat == model.CategoryTask
	case model.RoleEmployee:
		p.CanReceive, p.CanConfigure = true, true
		p.CanSend = work
	case model.RoleContractor:
		p.CanReceive, p.CanConfigure = work, work
		p.Restrictions = []string{"external"}
	case model.RoleClient:
		receive := cat == model.CategoryChat || cat == model.CategoryProject || cat == model.CategoryBilling
		p.CanReceive, p.CanConfigure = receive, receive
		p.Restrictions = []string{"external"}
	}
	return p
}
