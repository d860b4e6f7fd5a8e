package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
)

const testAPIKey = "anon-key"

type fakeGoTrue struct {
	t         *testing.T
	logouts   atomic.Int32
	confirmed bool
}

func (f *fakeGoTrue) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("apikey") != testAPIKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	writeJSON := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		require.NoError(f.t, json.NewEncoder(w).Encode(v))
	}

	switch r.URL.Path {
	case "/auth/v1/token":
		var body map[string]string
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(f.t, "password", r.URL.Query().Get("grant_type"))
		switch {
		case body["email"] == "new@example.com":
			writeJSON(http.StatusBadRequest, map[string]any{"code": 400, "error_code": "email_not_confirmed", "msg": "Email not confirmed"})
		case body["password"] != "secret":
			writeJSON(http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "Invalid login credentials"})
		default:
			writeJSON(http.StatusOK, map[string]any{
				"access_token": "tok-" + body["email"],
				"user": map[string]any{
					"id": "u-1", "email": body["email"],
					"user_metadata": map[string]any{"role": "admin"},
				},
			})
		}
	case "/auth/v1/signup":
		var body struct {
			Email string            `json:"email"`
			Data  map[string]string `json:"data"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		user := map[string]any{"id": "u-2", "email": body.Email, "user_metadata": body.Data}
		if f.confirmed {
			writeJSON(http.StatusOK, map[string]any{"access_token": "tok-new", "user": user})
			return
		}
		writeJSON(http.StatusOK, user)
	case "/auth/v1/logout":
		f.logouts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	case "/auth/v1/user":
		if r.Header.Get("Authorization") != "Bearer good" {
			writeJSON(http.StatusUnauthorized, map[string]any{"msg": "invalid JWT"})
			return
		}
		writeJSON(http.StatusOK, map[string]any{"id": "u-3", "email": "c@example.com", "user_metadata": map[string]any{}})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestGoTrue(t *testing.T, fake *fakeGoTrue) *GoTrue {
	t.Helper()
	fake.t = t
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return New(srv.URL, testAPIKey, srv.Client(), zap.NewNop())
}

func TestSignIn_Success(t *testing.T) {
	g := newTestGoTrue(t, &fakeGoTrue{})

	user, err := g.SignIn(context.Background(), "a@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: "u-1", Email: "a@example.com", Role: domain.RoleAdmin}, *user)

	token, ok := g.BearerToken()
	assert.True(t, ok)
	assert.Equal(t, "tok-a@example.com", token)
	require.NotNil(t, g.CurrentUser())
	assert.True(t, g.CurrentUser().IsAdmin())
}

func TestSignIn_ErrorCategories(t *testing.T) {
	g := newTestGoTrue(t, &fakeGoTrue{})

	_, err := g.SignIn(context.Background(), "a@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = g.SignIn(context.Background(), "new@example.com", "secret")
	assert.ErrorIs(t, err, domain.ErrEmailNotConfirmed)

	assert.Nil(t, g.CurrentUser())
	_, ok := g.BearerToken()
	assert.False(t, ok)
}

func TestSignUp_RequiresConfirmation(t *testing.T) {
	g := newTestGoTrue(t, &fakeGoTrue{})

	user, err := g.SignUp(context.Background(), "b@example.com", "secret", "")
	require.NoError(t, err)
	assert.Equal(t, "u-2", user.ID)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Nil(t, g.CurrentUser())
}

func TestSignUp_AutoConfirmed(t *testing.T) {
	g := newTestGoTrue(t, &fakeGoTrue{confirmed: true})

	user, err := g.SignUp(context.Background(), "b@example.com", "secret", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)

	token, ok := g.BearerToken()
	assert.True(t, ok)
	assert.Equal(t, "tok-new", token)
}

func TestSignOut(t *testing.T) {
	fake := &fakeGoTrue{}
	g := newTestGoTrue(t, fake)

	require.NoError(t, g.SignOut(context.Background()))
	assert.Equal(t, int32(0), fake.logouts.Load())

	_, err := g.SignIn(context.Background(), "a@example.com", "secret")
	require.NoError(t, err)
	require.NoError(t, g.SignOut(context.Background()))
	assert.Equal(t, int32(1), fake.logouts.Load())
	assert.Nil(t, g.CurrentUser())
}

func TestVerifyToken(t *testing.T) {
	g := newTestGoTrue(t, &fakeGoTrue{})

	user, err := g.VerifyToken(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: "u-3", Email: "c@example.com", Role: domain.RoleUser}, user)

	_, err = g.VerifyToken(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}
