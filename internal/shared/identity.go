package shared

import (
	"context"
	"strings"
)

// Caller is the resolved identity attached to each request.
type Caller struct {
	ID          int64    `json:"id"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether the caller holds the named permission.
// Matching is case-insensitive, following the RBAC store convention.
func (c *Caller) HasPermission(name string) bool {
	if c == nil {
		return false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range c.Permissions {
		if strings.ToLower(p) == name {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether the caller holds at least one of the
// named permissions.
func (c *Caller) HasAnyPermission(names ...string) bool {
	for _, n := range names {
		if c.HasPermission(n) {
			return true
		}
	}
	return false
}

type callerContextKey struct{}

// ContextWithCaller stores the caller in context.
func ContextWithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext extracts the caller from context, nil when absent.
func CallerFromContext(ctx context.Context) *Caller {
	caller, _ := ctx.Value(callerContextKey{}).(*Caller)
	return caller
}
