package app

import (
	"context"

	"ebrr-results-service/internal/domain"
)

type tokenKey struct{}

// WithToken attaches the caller's bearer token to the context for the
// identity resolver to pick up.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext extracts the bearer token attached by WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// Identity is the resolved caller: who they are and what they may do.
type Identity struct {
	UserID   string
	Name     string
	Role     domain.Role
	SchoolID string
	Active   bool
}

// IdentityResolver is implemented by the host's identity service. Resolve
// returns domain.ErrUnauthenticated when no identity is attached to ctx and
// domain.ErrProfileNotFound when the identity has no staff profile.
type IdentityResolver interface {
	Resolve(ctx context.Context) (Identity, error)
}

// RoleGate authorizes operations against the role policy table. It fails
// closed: operations without a policy entry are denied.
type RoleGate struct {
	resolver IdentityResolver
}

func NewRoleGate(resolver IdentityResolver) *RoleGate {
	return &RoleGate{resolver: resolver}
}

// Require resolves the caller and checks the operation's minimum role.
func (g *RoleGate) Require(ctx context.Context, op domain.Operation) (Identity, error) {
	id, err := g.resolver.Resolve(ctx)
	if err != nil {
		return Identity{}, err
	}
	if !id.Active {
		return Identity{}, domain.ErrAccountInactive
	}
	min, ok := domain.MinimumRole(op)
	if !ok || !id.Role.AtLeast(min) {
		return Identity{}, domain.ErrForbidden
	}
	return id, nil
}
