package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openmart/shopcart/internal/models"
	"github.com/openmart/shopcart/internal/service"
	"github.com/openmart/shopcart/internal/token"
)

const testCookieName = "authToken"

type testEnv struct {
	T      *testing.T
	E      *echo.Echo
	DB     *gorm.DB
	Tokens *token.Service
	A      *AuthHandler
	C      *CartHandler
	O      *OrderHandler
	P      *ProductHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	))

	tokens := token.NewService([]byte("0123456789abcdef0123456789abcdef"), time.Hour)

	env := &testEnv{
		T:      t,
		E:      echo.New(),
		DB:     db,
		Tokens: tokens,
		A: &AuthHandler{
			DB:         db,
			Tokens:     tokens,
			CookieName: testCookieName,
		},
		C: &CartHandler{Carts: &service.CartService{DB: db}},
		O: &OrderHandler{Orders: &service.OrderService{DB: db}},
		P: &ProductHandler{DB: db},
	}
	return env
}

func testLogger() *slog.Logger { return slog.Default() }

func (env *testEnv) ctx() context.Context { return context.Background() }

func (env *testEnv) doJSONRequest(method, path string, body interface{}, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) seedUser(email string) *models.User {
	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    email,
		"name":     "Test User",
		"password": "password123",
	})
	require.NoError(env.T, env.A.Register(c))
	require.Equal(env.T, http.StatusCreated, rec.Code)

	var user models.User
	require.NoError(env.T, json.Unmarshal(rec.Body.Bytes(), &user))
	return &user
}

func (env *testEnv) seedProduct(name, price string) *models.Product {
	product := models.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
	}
	require.NoError(env.T, env.DB.Create(&product).Error)
	return &product
}
