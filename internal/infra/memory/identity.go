package memory

import (
	"context"
	"sync"

	"ebrr-results-service/internal/app"
	"ebrr-results-service/internal/domain"
)

// IdentityDirectory is a token-to-profile map standing in for the external
// identity service. The host deployment replaces this with its own resolver;
// tests and demo mode seed it directly.
type IdentityDirectory struct {
	mu       sync.RWMutex
	profiles map[string]app.Identity
}

var _ app.IdentityResolver = (*IdentityDirectory)(nil)

func NewIdentityDirectory() *IdentityDirectory {
	return &IdentityDirectory{profiles: make(map[string]app.Identity)}
}

// Register maps a bearer token to an identity.
func (d *IdentityDirectory) Register(token string, id app.Identity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[token] = id
}

// Resolve fails closed: no token means unauthenticated, an unknown token
// means no profile.
func (d *IdentityDirectory) Resolve(ctx context.Context) (app.Identity, error) {
	token, ok := app.TokenFromContext(ctx)
	if !ok {
		return app.Identity{}, domain.ErrUnauthenticated
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.profiles[token]
	if !ok {
		return app.Identity{}, domain.ErrProfileNotFound
	}
	return id, nil
}
