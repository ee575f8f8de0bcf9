// Package auth is the boundary to the identity provider. Components ask a
// Provider for the current user before touching the store.
package auth

import (
	"context"

	"github.com/agrosync/fieldops/internal/apperr"
	"github.com/agrosync/fieldops/pkg/core"
)

// Provider returns the current user, or nil when nobody is signed in.
type Provider interface {
	CurrentUser(ctx context.Context) (*core.User, error)
}

type ctxKey struct{}

// WithUser returns a context carrying u as the signed-in user.
func WithUser(ctx context.Context, u *core.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the user stored by WithUser, if any.
func UserFromContext(ctx context.Context) (*core.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*core.User)
	return u, ok && u != nil
}

// ContextProvider reads the identity placed on the request context.
type ContextProvider struct{}

// CurrentUser implements Provider.
func (ContextProvider) CurrentUser(ctx context.Context) (*core.User, error) {
	u, _ := UserFromContext(ctx)
	return u, nil
}

// StaticProvider always answers with the same user (CLI usage).
type StaticProvider struct {
	User *core.User
}

// CurrentUser implements Provider.
func (p StaticProvider) CurrentUser(context.Context) (*core.User, error) {
	return p.User, nil
}

// Require resolves the current user for op and fails with an AuthError when
// there is none. An empty user id counts as no identity.
func Require(ctx context.Context, p Provider, op string) (*core.User, error) {
	if p == nil {
		return nil, apperr.NotAuthenticated(op)
	}
	u, err := p.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil || u.ID == "" {
		return nil, apperr.NotAuthenticated(op)
	}
	return u, nil
}
