package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// Session couples the identity provider with the cart: whenever the signed-in
// user changes, the cart is swapped for that user's.
type Session struct {
	provider port.IdentityProvider
	cart     *CartStore
	logger   *zap.Logger
}

func NewSession(ctx context.Context, provider port.IdentityProvider, cart *CartStore, logger *zap.Logger) *Session {
	s := &Session{provider: provider, cart: cart, logger: logger}
	s.syncCart(ctx)
	return s
}

func (s *Session) CurrentUser() *domain.User {
	return s.provider.CurrentUser()
}

func (s *Session) IsAuthenticated() bool {
	return s.provider.CurrentUser() != nil
}

// Role defaults to domain.RoleUser, also when signed out.
func (s *Session) Role() domain.Role {
	if u := s.provider.CurrentUser(); u != nil && u.Role != "" {
		return u.Role
	}
	return domain.RoleUser
}

func (s *Session) IsAdmin() bool {
	return s.Role() == domain.RoleAdmin
}

func (s *Session) BearerToken() (string, bool) {
	return s.provider.BearerToken()
}

// SignIn keeps the provider's error categories intact, so callers can tell
// domain.ErrInvalidCredentials from domain.ErrEmailNotConfirmed.
func (s *Session) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		s.logger.Info("sign in failed", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("sign in: %w", err)
	}
	s.syncCart(ctx)
	return user, nil
}

// SignUp registers a user. The cart switches only when the provider opened a
// session straight away (accounts that need email confirmation do not).
func (s *Session) SignUp(ctx context.Context, email, password string, role domain.Role) (*domain.User, error) {
	user, err := s.provider.SignUp(ctx, email, password, role)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	s.syncCart(ctx)
	return user, nil
}

// SignOut always lands on the guest cart, even if the provider call failed.
func (s *Session) SignOut(ctx context.Context) error {
	err := s.provider.SignOut(ctx)
	s.cart.SwitchIdentity(ctx, domain.GuestIdentity)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (s *Session) syncCart(ctx context.Context) {
	s.cart.SwitchIdentity(ctx, domain.IdentityKeyFor(s.provider.CurrentUser()))
}
