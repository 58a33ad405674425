package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fitdesk/fitdesk-api/internal/models"
	"github.com/fitdesk/fitdesk-api/internal/service"
)

type stubUserRepo struct {
	user          *models.User
	refreshTokens map[string]*models.RefreshToken
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *stubUserRepo) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	return s.user != nil && (s.user.Email == email || s.user.Username == username), nil
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	s.user = user
	return nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (s *stubUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return nil
}

func (s *stubUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (s *stubUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if s.refreshTokens == nil {
		s.refreshTokens = make(map[string]*models.RefreshToken)
	}
	s.refreshTokens[token.Token] = token
	return nil
}

func (s *stubUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := s.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (s *stubUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, rt := range s.refreshTokens {
		if rt.ID == id {
			rt.Revoked = true
		}
	}
	return nil
}

func (s *stubUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

func newAuthHandler(t *testing.T) (*AuthHandler, *stubUserRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubUserRepo{user: &models.User{
		ID:           "22222222-2222-4222-8222-222222222222",
		Email:        "trainer@example.com",
		Username:     "trainer",
		PasswordHash: string(hash),
		FullName:     "Test Trainer",
		Role:         models.RoleTrainer,
		Active:       true,
	}}
	svc := service.NewAuthService(repo, validator.New(), zap.NewNop(), service.AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 30 * 24 * time.Hour,
	})
	return NewAuthHandler(svc), repo
}

func postJSON(t *testing.T, handlerFn gin.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	handlerFn(c)
	return rec
}

func TestAuthHandlerLoginSuccess(t *testing.T) {
	handler, _ := newAuthHandler(t)

	rec := postJSON(t, handler.Login, "/api/v1/auth/login", gin.H{
		"email":    "trainer@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.NotEmpty(t, envelope.Data.RefreshToken)
	assert.Equal(t, "trainer@example.com", envelope.Data.Email)
	assert.Equal(t, int64(3600), envelope.Data.ExpiresIn)
}

func TestAuthHandlerLoginBadPayload(t *testing.T) {
	handler, _ := newAuthHandler(t)

	rec := postJSON(t, handler.Login, "/api/v1/auth/login", gin.H{"email": "trainer@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	handler, _ := newAuthHandler(t)

	rec := postJSON(t, handler.Login, "/api/v1/auth/login", gin.H{
		"email":    "trainer@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INVALID_CREDENTIALS", envelope.Error.Code)
}

func TestAuthHandlerRegisterConflict(t *testing.T) {
	handler, _ := newAuthHandler(t)

	rec := postJSON(t, handler.Register, "/api/v1/auth/register", gin.H{
		"email":     "trainer@example.com",
		"username":  "trainer",
		"password":  "password123",
		"full_name": "Dup Trainer",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthHandlerRefreshRotation(t *testing.T) {
	handler, _ := newAuthHandler(t)

	login := postJSON(t, handler.Login, "/api/v1/auth/login", gin.H{
		"email":    "trainer@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, login.Code)

	var loginEnvelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &loginEnvelope))

	refresh := postJSON(t, handler.Refresh, "/api/v1/auth/refresh", gin.H{
		"refresh_token": loginEnvelope.Data.RefreshToken,
	})
	assert.Equal(t, http.StatusOK, refresh.Code)

	var refreshEnvelope struct {
		Data models.RefreshTokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(refresh.Body.Bytes(), &refreshEnvelope))
	assert.NotEqual(t, loginEnvelope.Data.RefreshToken, refreshEnvelope.Data.RefreshToken)

	// replay of the consumed token must be rejected
	replay := postJSON(t, handler.Refresh, "/api/v1/auth/refresh", gin.H{
		"refresh_token": loginEnvelope.Data.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

func TestAuthHandlerMeRequiresClaims(t *testing.T) {
	handler, _ := newAuthHandler(t)

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)

	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
