// Package plugin implements the consumer boundary permission model.
package plugin

import (
	"fmt"
	"strings"
)

// Permission is an access level granted to a consumer. ReadOnly covers
// aggregated stats and active views; ReadWriteDerived additionally allows
// proposing derived views. Nothing grants direct writes to events or
// concepts through this boundary.
type Permission string

const (
	PermissionReadOnly         Permission = "read_only"
	PermissionReadWriteDerived Permission = "read_write_derived"
)

// Allows reports whether the held permission covers the required one
func (p Permission) Allows(required Permission) bool {
	switch required {
	case PermissionReadOnly:
		return p == PermissionReadOnly || p == PermissionReadWriteDerived
	case PermissionReadWriteDerived:
		return p == PermissionReadWriteDerived
	default:
		return false
	}
}

// Registry maps consumer ids to their granted permission
type Registry struct {
	grants map[string]Permission
}

// NewRegistry parses grants of the form "consumer:permission,consumer:permission"
func NewRegistry(grants []string) (*Registry, error) {
	r := &Registry{grants: make(map[string]Permission)}
	for _, grant := range grants {
		grant = strings.TrimSpace(grant)
		if grant == "" {
			continue
		}
		parts := strings.SplitN(grant, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid consumer grant %q", grant)
		}
		perm := Permission(parts[1])
		if perm != PermissionReadOnly && perm != PermissionReadWriteDerived {
			return nil, fmt.Errorf("unknown permission %q for consumer %q", parts[1], parts[0])
		}
		r.grants[parts[0]] = perm
	}
	return r, nil
}

// Lookup returns the permission granted to a consumer
func (r *Registry) Lookup(consumerID string) (Permission, bool) {
	perm, ok := r.grants[consumerID]
	return perm, ok
}
