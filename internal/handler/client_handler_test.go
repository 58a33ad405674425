package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fitdesk/fitdesk-api/internal/middleware"
	"github.com/fitdesk/fitdesk-api/internal/models"
	"github.com/fitdesk/fitdesk-api/internal/service"
)

const clientTestTrainer = "33333333-3333-4333-8333-333333333333"

type stubClientRepo struct {
	clients map[string]*models.Client
	nextID  string
}

func (s *stubClientRepo) List(ctx context.Context, filter models.ClientFilter) ([]models.Client, int, error) {
	out := make([]models.Client, 0, len(s.clients))
	for _, c := range s.clients {
		if filter.TrainerID != "" && c.TrainerID != filter.TrainerID {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (s *stubClientRepo) FindByID(ctx context.Context, id string) (*models.Client, error) {
	c, ok := s.clients[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (s *stubClientRepo) Create(ctx context.Context, client *models.Client) error {
	if s.clients == nil {
		s.clients = make(map[string]*models.Client)
	}
	if s.nextID == "" {
		s.nextID = "client-1"
	}
	client.ID = s.nextID
	s.clients[client.ID] = client
	return nil
}

func (s *stubClientRepo) Update(ctx context.Context, client *models.Client) error {
	s.clients[client.ID] = client
	return nil
}

func (s *stubClientRepo) Deactivate(ctx context.Context, id string) error {
	if c, ok := s.clients[id]; ok {
		c.Active = false
	}
	return nil
}

func newClientHandler(repo *stubClientRepo) *ClientHandler {
	svc := service.NewClientService(repo, nil, validator.New(), zap.NewNop())
	return NewClientHandler(svc)
}

func authedRequest(method, path, body string) (*httptest.ResponseRecorder, *gin.Context) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: clientTestTrainer, Role: models.RoleTrainer})
	return rec, c
}

func TestClientHandlerCreate(t *testing.T) {
	repo := &stubClientRepo{}
	handler := newClientHandler(repo)

	rec, c := authedRequest(http.MethodPost, "/api/v1/clients", `{"full_name":"Client One","goal":"strength"}`)
	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope struct {
		Data models.Client `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Client One", envelope.Data.FullName)
	assert.Equal(t, clientTestTrainer, envelope.Data.TrainerID)
	assert.True(t, envelope.Data.Active)
}

func TestClientHandlerCreateInvalidPayload(t *testing.T) {
	handler := newClientHandler(&stubClientRepo{})

	rec, c := authedRequest(http.MethodPost, "/api/v1/clients", `{"goal":"strength"}`)
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClientHandlerGetForeignClient(t *testing.T) {
	repo := &stubClientRepo{clients: map[string]*models.Client{
		"client-1": {ID: "client-1", TrainerID: "other-trainer", FullName: "Not Yours"},
	}}
	handler := newClientHandler(repo)

	rec, c := authedRequest(http.MethodGet, "/api/v1/clients/client-1", "")
	c.Params = gin.Params{{Key: "id", Value: "client-1"}}
	handler.Get(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestClientHandlerGetMissingClient(t *testing.T) {
	handler := newClientHandler(&stubClientRepo{})

	rec, c := authedRequest(http.MethodGet, "/api/v1/clients/nope", "")
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClientHandlerListScopedToTrainer(t *testing.T) {
	repo := &stubClientRepo{clients: map[string]*models.Client{
		"client-1": {ID: "client-1", TrainerID: clientTestTrainer, FullName: "Mine", Active: true},
		"client-2": {ID: "client-2", TrainerID: "other-trainer", FullName: "Theirs", Active: true},
	}}
	handler := newClientHandler(repo)

	rec, c := authedRequest(http.MethodGet, "/api/v1/clients", "")
	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data       []models.Client    `json:"data"`
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "Mine", envelope.Data[0].FullName)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestClientHandlerDeactivate(t *testing.T) {
	repo := &stubClientRepo{clients: map[string]*models.Client{
		"client-1": {ID: "client-1", TrainerID: clientTestTrainer, FullName: "Mine", Active: true},
	}}
	handler := newClientHandler(repo)

	rec, c := authedRequest(http.MethodDelete, "/api/v1/clients/client-1", "")
	c.Params = gin.Params{{Key: "id", Value: "client-1"}}
	handler.Deactivate(c)
	// c.Status defers the write until the engine flushes; force it here
	// since the handler is invoked without one.
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, repo.clients["client-1"].Active)
}

func TestClientHandlerExportCSV(t *testing.T) {
	repo := &stubClientRepo{clients: map[string]*models.Client{
		"client-1": {ID: "client-1", TrainerID: clientTestTrainer, FullName: "Mine", Active: true},
	}}
	handler := newClientHandler(repo)

	rec, c := authedRequest(http.MethodGet, "/api/v1/clients/export", "")
	handler.ExportCSV(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rec.Body.String(), "Mine"))
}
