package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type TokenSource interface {
	// BearerToken returns the current access token, ok is false when signed out
	BearerToken() (token string, ok bool)
}

// IdentityProvider is the external sign-in service as seen by the storefront.
type IdentityProvider interface {
	TokenSource

	CurrentUser() *domain.User
	SignIn(ctx context.Context, email, password string) (*domain.User, error)
	SignUp(ctx context.Context, email, password string, role domain.Role) (*domain.User, error)
	SignOut(ctx context.Context) error
}

type TokenVerifier interface {
	// VerifyToken resolves a bearer token to its user, or domain.ErrNotAuthenticated
	VerifyToken(ctx context.Context, token string) (domain.User, error)
}
