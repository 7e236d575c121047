package models

import "strings"

// AllPermissionsToken grants every capability.
const AllPermissionsToken = "*"

// PermissionUsersManage allows creating accounts with a chosen role.
const PermissionUsersManage = "users:manage"

// Permissions is either "all" or an explicit capability set.
// The zero value grants nothing.
type Permissions struct {
	all   bool
	caps  map[string]struct{}
	order []string
}

func AllPermissions() Permissions {
	return Permissions{all: true}
}

func ExplicitPermissions(caps ...string) Permissions {
	p := Permissions{caps: make(map[string]struct{}, len(caps))}
	for _, c := range caps {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if c == AllPermissionsToken {
			return AllPermissions()
		}
		if _, dup := p.caps[c]; dup {
			continue
		}
		p.caps[c] = struct{}{}
		p.order = append(p.order, c)
	}
	return p
}

// ParsePermissions reads the stored comma-separated form.
func ParsePermissions(raw string) Permissions {
	if strings.TrimSpace(raw) == AllPermissionsToken {
		return AllPermissions()
	}
	return ExplicitPermissions(strings.Split(raw, ",")...)
}

func (p Permissions) IsAll() bool { return p.all }

// Grants reports whether capability is allowed.
func (p Permissions) Grants(capability string) bool {
	if p.all {
		return true
	}
	_, ok := p.caps[capability]
	return ok
}

// List returns ["*"] for all permissions, otherwise the capabilities in
// their original order.
func (p Permissions) List() []string {
	if p.all {
		return []string{AllPermissionsToken}
	}
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// String is the stored form.
func (p Permissions) String() string {
	return strings.Join(p.List(), ",")
}
