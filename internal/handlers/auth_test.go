package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openmart/shopcart/internal/models"
	"github.com/openmart/shopcart/internal/session"
)

func authCookie(t *testing.T, rec interface{ Result() *http.Response }) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == testCookieName {
			return ck
		}
	}
	t.Fatal("auth cookie not set")
	return nil
}

func TestRegisterSetsCookie(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "new@example.com",
		"name":     "New User",
		"password": "password123",
	})
	require.NoError(t, env.A.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	ck := authCookie(t, rec)
	require.True(t, env.Tokens.Verify(ck.Value))
	require.True(t, ck.HttpOnly)

	// password hash must never leak into the response
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "new@example.com", body["email"])
	require.NotContains(t, body, "password_hash")
	require.NotContains(t, body, "PasswordHash")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("dup@example.com")

	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "dup@example.com",
		"password": "password123",
	})
	require.NoError(t, env.A.Register(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterMissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "nopassword@example.com",
	})
	require.NoError(t, env.A.Register(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("login@example.com")

	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "login@example.com",
		"password": "password123",
	})
	require.NoError(t, env.A.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	ck := authCookie(t, rec)
	require.True(t, env.Tokens.Verify(ck.Value))
}

func TestLoginBadPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("badpw@example.com")

	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "badpw@example.com",
		"password": "wrong",
	})
	require.NoError(t, env.A.Login(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "password123",
	})
	require.NoError(t, env.A.Login(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/logout", nil)
	require.NoError(t, env.A.Logout(c))
	require.Equal(t, http.StatusOK, rec.Code)

	ck := authCookie(t, rec)
	require.Empty(t, ck.Value)
	require.Negative(t, ck.MaxAge)
}

func TestMeRequiresIdentity(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/auth/me", nil)
	require.NoError(t, env.A.Me(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestMeThroughSessionGate runs the full middleware-plus-handler path the way
// the router wires it.
func TestMeThroughSessionGate(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser("me@example.com")

	raw, err := env.Tokens.Issue(user.ID, user.Email)
	require.NoError(t, err)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/auth/me", nil,
		&http.Cookie{Name: testCookieName, Value: raw})

	gate := session.Middleware(env.Tokens, testCookieName, testLogger())
	require.NoError(t, gate(env.A.Me)(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, "me@example.com", got.Email)
}
