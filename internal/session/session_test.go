package session

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/openmart/shopcart/internal/token"
)

const cookieName = "authToken"

func newGateContext(t *testing.T, cookies ...*http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func testTokens() *token.Service {
	return token.NewService([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
}

func TestMiddlewareNoCookie(t *testing.T) {
	c, _ := newGateContext(t)
	mw := Middleware(testTokens(), cookieName, slog.Default())

	called := false
	err := mw(func(c echo.Context) error {
		called = true
		_, ok := UserID(c)
		require.False(t, ok)
		return nil
	})(c)
	require.NoError(t, err)
	require.True(t, called)
}

func TestMiddlewareInvalidToken(t *testing.T) {
	c, _ := newGateContext(t, &http.Cookie{Name: cookieName, Value: "garbage"})
	mw := Middleware(testTokens(), cookieName, slog.Default())

	called := false
	err := mw(func(c echo.Context) error {
		called = true
		_, ok := UserID(c)
		require.False(t, ok)
		return nil
	})(c)
	require.NoError(t, err)
	require.True(t, called)
}

func TestMiddlewareValidToken(t *testing.T) {
	tokens := testTokens()
	raw, err := tokens.Issue(42, "user@example.com")
	require.NoError(t, err)

	c, _ := newGateContext(t, &http.Cookie{Name: cookieName, Value: raw})
	mw := Middleware(tokens, cookieName, slog.Default())

	err = mw(func(c echo.Context) error {
		userID, ok := UserID(c)
		require.True(t, ok)
		require.Equal(t, uint(42), userID)

		email, ok := Email(c)
		require.True(t, ok)
		require.Equal(t, "user@example.com", email)
		return nil
	})(c)
	require.NoError(t, err)
}

func TestRequire(t *testing.T) {
	c, _ := newGateContext(t)
	err := Require(func(c echo.Context) error { return nil })(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusUnauthorized, he.Code)

	c2, _ := newGateContext(t)
	c2.Set(ctxUserID, uint(1))
	require.NoError(t, Require(func(c echo.Context) error { return nil })(c2))
}

func TestNewCookieAttributes(t *testing.T) {
	ck := NewCookie(cookieName, "v", 24*time.Hour, false)
	require.Equal(t, cookieName, ck.Name)
	require.Equal(t, "/", ck.Path)
	require.Equal(t, 86400, ck.MaxAge)
	require.True(t, ck.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, ck.SameSite)

	secure := NewCookie(cookieName, "v", time.Hour, true)
	require.True(t, secure.Secure)
	require.Equal(t, http.SameSiteNoneMode, secure.SameSite)
}
