package auth

import (
	"context"
	"fmt"
)

// Provider validates bearer tokens and resolves them to account identities.
// The relay consumes this interface; it never sees tokens or users directly.
type Provider interface {
	Validate(ctx context.Context, token string) (Identity, error)
}

// JWTProvider validates HS256 access tokens against the user store.
type JWTProvider struct {
	users  UserRepository
	secret string
}

// NewJWTProvider builds a Provider backed by users and signing secret.
func NewJWTProvider(users UserRepository, secret string) *JWTProvider {
	return &JWTProvider{users: users, secret: secret}
}

// Validate parses token and confirms the subject still exists.
func (p *JWTProvider) Validate(ctx context.Context, token string) (Identity, error) {
	claims, err := ParseToken(token, p.secret)
	if err != nil {
		return Identity{}, err
	}

	user, err := p.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: unknown subject", ErrTokenInvalid)
	}
	return user.Identity(), nil
}
