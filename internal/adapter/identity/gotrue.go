// Package identity adapts a GoTrue-compatible auth service to the storefront's
// identity ports.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const defaultTimeout = 10 * time.Second

var (
	_ port.IdentityProvider = (*GoTrue)(nil)
	_ port.TokenVerifier    = (*GoTrue)(nil)
)

type remoteUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		Role string `json:"role"`
	} `json:"user_metadata"`
}

func (u remoteUser) toDomain() domain.User {
	return domain.User{ID: u.ID, Email: u.Email, Role: domain.ParseRole(u.UserMetadata.Role)}
}

// tokenResponse covers both the password grant and signup. Signup without
// auto-confirm answers with the bare user and no access token.
type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	User        *remoteUser `json:"user"`
	remoteUser
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	ErrorCode   string `json:"error_code"`
	Msg         string `json:"msg"`
	Message     string `json:"message"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.Msg, e.Description, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// GoTrue holds the session of one signed-in user. It also verifies bearer
// tokens for the API server, which never signs in itself.
type GoTrue struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
	user  *domain.User
}

func New(baseURL, apiKey string, httpClient *http.Client, logger *zap.Logger) *GoTrue {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &GoTrue{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
		logger:  logger,
	}
}

func (g *GoTrue) BearerToken() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token, g.token != ""
}

func (g *GoTrue) CurrentUser() *domain.User {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.user == nil {
		return nil
	}
	u := *g.user
	return &u
}

// SignIn uses the password grant. Wrong credentials and an unconfirmed email
// address come back as domain.ErrInvalidCredentials and
// domain.ErrEmailNotConfirmed.
func (g *GoTrue) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	body := map[string]string{"email": email, "password": password}

	var resp tokenResponse
	status, errBody, err := g.call(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, signInError(status, errBody)
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, fmt.Errorf("sign in: response without session")
	}

	user := resp.User.toDomain()
	g.setSession(resp.AccessToken, &user)
	g.logger.Info("signed in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &user, nil
}

// SignUp registers the user with role in its metadata. When the service
// requires email confirmation no session is started and the returned user is
// not yet current.
func (g *GoTrue) SignUp(ctx context.Context, email, password string, role domain.Role) (*domain.User, error) {
	if role == "" {
		role = domain.RoleUser
	}
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"role": string(role)},
	}

	var resp tokenResponse
	status, errBody, err := g.call(ctx, http.MethodPost, "/auth/v1/signup", "", body, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("sign up: %d %s", status, errBody.text())
	}

	remote := resp.remoteUser
	if resp.User != nil {
		remote = *resp.User
	}
	user := remote.toDomain()
	if resp.AccessToken != "" {
		g.setSession(resp.AccessToken, &user)
	}
	return &user, nil
}

// SignOut ends the local session even when the service cannot be reached.
func (g *GoTrue) SignOut(ctx context.Context) error {
	token, ok := g.BearerToken()
	g.setSession("", nil)
	if !ok {
		return nil
	}

	status, errBody, err := g.call(ctx, http.MethodPost, "/auth/v1/logout", token, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusOK && status != http.StatusUnauthorized {
		return fmt.Errorf("sign out: %d %s", status, errBody.text())
	}
	return nil
}

// VerifyToken resolves token through the user endpoint.
func (g *GoTrue) VerifyToken(ctx context.Context, token string) (domain.User, error) {
	var resp remoteUser
	status, errBody, err := g.call(ctx, http.MethodGet, "/auth/v1/user", token, nil, &resp)
	if err != nil {
		return domain.User{}, err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.User{}, domain.ErrNotAuthenticated
	case status != http.StatusOK:
		return domain.User{}, fmt.Errorf("verify token: %d %s", status, errBody.text())
	case resp.ID == "":
		return domain.User{}, domain.ErrNotAuthenticated
	}
	return resp.toDomain(), nil
}

func (g *GoTrue) setSession(token string, user *domain.User) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = token
	g.user = user
}

// call decodes a 2xx body into out and any other body into errorResponse.
func (g *GoTrue) call(ctx context.Context, method, path, token string, in, out any) (int, errorResponse, error) {
	var errBody errorResponse

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, errBody, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return 0, errBody, err
	}
	req.Header.Set("apikey", g.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return 0, errBody, fmt.Errorf("identity %s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		if out != nil && resp.StatusCode != http.StatusNoContent {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return resp.StatusCode, errBody, fmt.Errorf("identity %s %s: decode: %w", method, req.URL.Path, err)
			}
		}
		return resp.StatusCode, errBody, nil
	}

	_ = json.NewDecoder(resp.Body).Decode(&errBody)
	return resp.StatusCode, errBody, nil
}

func signInError(status int, body errorResponse) error {
	text := body.text()
	switch {
	case body.ErrorCode == "email_not_confirmed" || strings.Contains(text, "Email not confirmed"):
		return domain.ErrEmailNotConfirmed
	case body.ErrorCode == "invalid_credentials" || body.Error == "invalid_grant":
		return domain.ErrInvalidCredentials
	}
	return fmt.Errorf("sign in: %d %s", status, text)
}
