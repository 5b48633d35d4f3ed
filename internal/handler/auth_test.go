package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booktable/internal/config"
	"github.com/iliyamo/booktable/internal/middleware"
	"github.com/iliyamo/booktable/internal/model"
	"github.com/iliyamo/booktable/internal/utils"
)

type memUsers struct {
	mu   sync.Mutex
	byID map[uint64]model.User
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == u.Email {
			return model.Conflict("email already exists")
		}
	}
	u.ID = uint64(len(m.byID) + 1)
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == email {
			return &x, nil
		}
	}
	return nil, model.NotFound("user not found")
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, model.NotFound("user not found")
	}
	return &u, nil
}

type memToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type memTokens struct {
	mu     sync.Mutex
	byHash map[string]*memToken
}

func (m *memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byHash[hash] = &memToken{userID: userID, exp: exp}
	return nil
}

func (m *memTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.byHash[hash]
	if !ok || tok.revoked || time.Now().After(tok.exp) {
		return 0, assert.AnError
	}
	return tok.userID, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok, ok := m.byHash[hash]; ok {
		tok.revoked = true
	}
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tok := range m.byHash {
		if tok.userID == userID {
			tok.revoked = true
		}
	}
	return nil
}

func authServer(t *testing.T) (*echo.Echo, *memTokens) {
	t.Helper()
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	users := &memUsers{byID: map[uint64]model.User{}}
	tokens := &memTokens{byHash: map[string]*memToken{}}
	h := NewAuthHandler(cfg, users, tokens, zerolog.Nop())

	e := echo.New()
	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)
	e.POST("/auth/refresh", h.Refresh)
	e.POST("/auth/logout", h.Logout)
	e.GET("/me", h.Me, middleware.JWTAuth(secret))
	return e, tokens
}

func decodeAuth(t *testing.T, body []byte) authResp {
	t.Helper()
	var out authResp
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestRegisterLoginMe(t *testing.T) {
	e, _ := authServer(t)

	rec := call(e, http.MethodPost, "/auth/register", "",
		`{"email":" Ann@Example.com ","password":"correct-horse","full_name":"Ann Lee"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decodeAuth(t, rec.Body.Bytes())
	assert.Equal(t, "ann@example.com", reg.User.Email)
	assert.Equal(t, model.RoleCustomer, reg.User.Role)
	assert.NotEmpty(t, reg.Access.Token)
	assert.NotEmpty(t, reg.Refresh.Token)

	claims, err := utils.ParseAccessToken(secret, reg.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, claims.Role)
	assert.Equal(t, "ann@example.com", claims.Email)

	rec = call(e, http.MethodPost, "/auth/register", "",
		`{"email":"ann@example.com","password":"another-pass","full_name":"Ann Two"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(e, http.MethodPost, "/auth/login", "", `{"email":"ANN@example.com","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid credentials"}`, rec.Body.String())

	rec = call(e, http.MethodPost, "/auth/login", "", `{"email":"nobody@example.com","password":"whatever1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(e, http.MethodPost, "/auth/login", "", `{"email":"ANN@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeAuth(t, rec.Body.Bytes())

	rec = call(e, http.MethodGet, "/me", "Bearer "+login.Access.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"email":"ann@example.com","full_name":"Ann Lee","role":"Customer"}`, rec.Body.String())
}

func TestRegisterRoles(t *testing.T) {
	e, _ := authServer(t)

	rec := call(e, http.MethodPost, "/auth/register", "",
		`{"email":"mgr@example.com","password":"manager-pass","full_name":"Mia Manager","role":"restaurantmanager"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, model.RoleRestaurantManager, decodeAuth(t, rec.Body.Bytes()).User.Role)

	rec = call(e, http.MethodPost, "/auth/register", "",
		`{"email":"root@example.com","password":"admin-pass1","full_name":"Root","role":"Admin"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, model.RoleCustomer, decodeAuth(t, rec.Body.Bytes()).User.Role)
}

func TestRegisterValidation(t *testing.T) {
	e, _ := authServer(t)
	cases := map[string]string{
		`{"email":"a@example.com","password":"longenough"}`:                                      "email, password and full_name required",
		`{"email":"not-an-email","password":"longenough","full_name":"A"}`:                       "invalid email",
		`{"email":"a@example.com","password":"short","full_name":"A"}`:                           "password must be at least 8 characters",
		`{"email":"a@example.com","password":"longenough","full_name":"   "}`:                    "email, password and full_name required",
		`{"email":"a@example.com","password":"` + strings.Repeat("p", 73) + `","full_name":"A"}`: "password must be at most 72 bytes",
	}
	for body, msg := range cases {
		rec := call(e, http.MethodPost, "/auth/register", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"error":"`+msg+`"}`, rec.Body.String(), body)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	e, _ := authServer(t)

	rec := call(e, http.MethodPost, "/auth/register", "",
		`{"email":"ann@example.com","password":"correct-horse","full_name":"Ann Lee"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decodeAuth(t, rec.Body.Bytes())

	rec = call(e, http.MethodPost, "/auth/refresh", "", `{"refresh_token":"`+first.Refresh.Token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeAuth(t, rec.Body.Bytes())
	assert.NotEqual(t, first.Refresh.Token, second.Refresh.Token)

	rec = call(e, http.MethodPost, "/auth/refresh", "", `{"refresh_token":"`+first.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(e, http.MethodPost, "/auth/refresh", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout(t *testing.T) {
	e, tokens := authServer(t)

	rec := call(e, http.MethodPost, "/auth/register", "",
		`{"email":"ann@example.com","password":"correct-horse","full_name":"Ann Lee"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	a := decodeAuth(t, rec.Body.Bytes())

	rec = call(e, http.MethodPost, "/auth/logout", "", `{"refresh_token":"`+a.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = call(e, http.MethodPost, "/auth/logout", "", `{"refresh_token":"`+a.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(e, http.MethodPost, "/auth/login", "", `{"email":"ann@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	b := decodeAuth(t, rec.Body.Bytes())

	rec = call(e, http.MethodPost, "/auth/logout", "Bearer "+b.Access.Token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	for _, tok := range tokens.byHash {
		assert.True(t, tok.revoked)
	}

	rec = call(e, http.MethodPost, "/auth/logout", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
