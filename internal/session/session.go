// Package session resolves the request identity from the auth cookie. The
// middleware never rejects a request itself: endpoints that need an identity
// check UserID and answer 401 on their own.
package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openmart/shopcart/internal/token"
)

const (
	ctxUserID = "session.userID"
	ctxEmail  = "session.email"
)

// Middleware verifies the cookie token once per request and attaches the
// decoded identity to the echo context. Missing or invalid tokens leave the
// request unauthenticated.
func Middleware(tokens *token.Service, cookieName string, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(cookieName)
			if err != nil || ck.Value == "" {
				return next(c)
			}
			userID, email, err := tokens.Parse(ck.Value)
			if err != nil {
				log.Debug("session_token_rejected", "path", c.Path())
				return next(c)
			}
			c.Set(ctxUserID, userID)
			c.Set(ctxEmail, email)
			return next(c)
		}
	}
}

func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(ctxUserID).(uint)
	return id, ok
}

func Email(c echo.Context) (string, bool) {
	email, ok := c.Get(ctxEmail).(string)
	return email, ok
}

// Require guards endpoints that cannot serve anonymous requests.
func Require(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := UserID(c); !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		return next(c)
	}
}

// NewCookie builds the auth cookie the way both login and logout need it:
// logout passes an empty value and a negative TTL to clear it.
func NewCookie(name, value string, ttl time.Duration, secure bool) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		// cross-site frontends need SameSite=None, which browsers only
		// accept together with Secure
		ck.SameSite = http.SameSiteNoneMode
	}
	return ck
}
