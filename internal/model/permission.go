package model

// Role is a user's organizational role.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleEmployee   Role = "employee"
	RoleContractor Role = "contractor"
	RoleClient     Role = "client"
)

// Roles lists the known roles.
var Roles = []Role{RoleAdmin, RoleManager, RoleEmployee, RoleContractor, RoleClient}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Permission holds the capabilities of a role for one category.
type Permission struct {
	Role         Role     `json:"role"`
	Category     Category `json:"category"`
	CanReceive   bool     `json:"can_receive"`
	CanConfigure bool     `json:"can_configure"`
	CanSend      bool     `json:"can_send"`
	CanManage    bool     `json:"can_manage"`
	Restrictions []string `json:"restrictions,omitempty"`
}

// Clone returns a copy that shares no slices with p.
func (p Permission) Clone() Permission {
	c := p
	if p.Restrictions != nil {
		c.Restrictions = append([]string{}, p.Restrictions...)
	}
	return c
}

// PermissionPatch is a shallow update; nil fields are left untouched.
type PermissionPatch struct {
	CanReceive   *bool     `json:"can_receive,omitempty"`
	CanConfigure *bool     `json:"can_configure,omitempty"`
	CanSend      *bool     `json:"can_send,omitempty"`
	CanManage    *bool     `json:"can_manage,omitempty"`
	Restrictions *[]string `json:"restrictions,omitempty"`
}

// Apply merges the non-nil fields of p into perm and returns the result.
func (p PermissionPatch) Apply(perm Permission) Permission {
	if p.CanReceive != nil {
		perm.CanReceive = *p.CanReceive
	}
	if p.CanConfigure != nil {
		perm.CanConfigure = *p.CanConfigure
	}
	if p.CanSend != nil {
		perm.CanSend = *p.CanSend
	}
	if p.CanManage != nil {
		perm.CanManage = *p.CanManage
	}
	if p.Restrictions != nil {
		perm.Restrictions = append([]string{}, (*p.Restrictions)...)
	}
	return perm
}
