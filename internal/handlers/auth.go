package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/openmart/shopcart/internal/apperr"
	"github.com/openmart/shopcart/internal/hash"
	"github.com/openmart/shopcart/internal/logging"
	"github.com/openmart/shopcart/internal/models"
	"github.com/openmart/shopcart/internal/mykafka"
	"github.com/openmart/shopcart/internal/session"
	"github.com/openmart/shopcart/internal/token"
)

type AuthHandler struct {
	DB           *gorm.DB
	Tokens       *token.Service
	Producer     *mykafka.Producer
	CookieName   string
	CookieSecure bool
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_failed", "status", 400, "error", err)
		return fail(c, fmt.Errorf("invalid body: %w", apperr.ErrValidation))
	}
	if req.Email == "" || req.Password == "" {
		l.Warn("register_failed", "status", 400, "reason", "missing_fields")
		return fail(c, fmt.Errorf("email and password are required: %w", apperr.ErrValidation))
	}

	var existing models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l.Error("register_failed", "status", 500, "reason", "db_error", "error", err)
			return fail(c, err)
		}
	} else {
		l.Warn("register_failed", "status", 400, "reason", "email_taken")
		return fail(c, fmt.Errorf("email already registered: %w", apperr.ErrValidation))
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "hash_error", "error", err)
		return fail(c, err)
	}

	user := models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: pwHash,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		l.Error("register_failed", "status", 500, "reason", "db_error", "error", err)
		return fail(c, err)
	}

	if err := h.setAuthCookie(c, &user); err != nil {
		l.Error("register_failed", "status", 500, "reason", "token_error", "error", err)
		return fail(c, err)
	}

	h.publish(c, map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	l.Info("register_success", "status", 201, "userID", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_failed", "status", 401, "error", err)
		return fail(c, fmt.Errorf("invalid body: %w", apperr.ErrUnauthenticated))
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		l.Warn("login_failed", "status", 401, "reason", "unknown_email")
		return fail(c, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthenticated))
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "bad_password", "userID", user.ID)
		return fail(c, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthenticated))
	}

	if err := h.setAuthCookie(c, &user); err != nil {
		l.Error("login_failed", "status", 500, "reason", "token_error", "error", err)
		return fail(c, err)
	}

	h.publish(c, map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
		"email":  user.Email,
	})

	l.Info("login_success", "status", 200, "userID", user.ID)
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(session.NewCookie(h.CookieName, "", -time.Hour, h.CookieSecure))
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me answers with the authenticated user resolved by the session gate; the
// gate itself never rejects, so the 401 decision lives here.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := session.UserID(c)
	if !ok {
		return fail(c, fmt.Errorf("no identity in session: %w", apperr.ErrUnauthenticated))
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound))
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) setAuthCookie(c echo.Context, user *models.User) error {
	raw, err := h.Tokens.Issue(user.ID, user.Email)
	if err != nil {
		return err
	}
	c.SetCookie(session.NewCookie(h.CookieName, raw, h.Tokens.TTL, h.CookieSecure))
	return nil
}

func (h *AuthHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}
