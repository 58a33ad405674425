package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fitdesk/fitdesk-api/internal/models"
	"github.com/fitdesk/fitdesk-api/internal/service"
	"github.com/fitdesk/fitdesk-api/pkg/storage"
)

func newDownloadHandler(t *testing.T, repo *stubClientRepo) *DownloadHandler {
	t.Helper()
	archive, err := storage.NewExportArchive(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewDownloadSigner("test-secret", time.Hour)
	downloads := service.NewDownloadService(archive, signer, time.Hour, zap.NewNop())
	clients := service.NewClientService(repo, nil, validator.New(), zap.NewNop())
	return NewDownloadHandler(clients, nil, downloads)
}

func TestDownloadHandlerRosterLinkRoundTrip(t *testing.T) {
	repo := &stubClientRepo{clients: map[string]*models.Client{
		"client-1": {ID: "client-1", TrainerID: clientTestTrainer, FullName: "Mine", Active: true},
	}}
	handler := newDownloadHandler(t, repo)

	rec, c := authedRequest(http.MethodGet, "/api/v1/clients/export/link", "")
	handler.ClientRosterLink(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.ExportLink `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.Token)
	assert.True(t, strings.HasPrefix(envelope.Data.URL, "/api/v1/downloads/"))
	assert.True(t, envelope.Data.ExpiresAt.After(time.Now()))

	rec2, c2 := authedRequest(http.MethodGet, envelope.Data.URL, "")
	c2.Params = gin.Params{{Key: "token", Value: envelope.Data.Token}}
	handler.Fetch(c2)

	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, "text/csv", rec2.Header().Get("Content-Type"))
	assert.Contains(t, rec2.Body.String(), "Mine")
}

func TestDownloadHandlerFetchRejectsForgedToken(t *testing.T) {
	handler := newDownloadHandler(t, &stubClientRepo{})

	rec, c := authedRequest(http.MethodGet, "/api/v1/downloads/forged", "")
	c.Params = gin.Params{{Key: "token", Value: "forged"}}
	handler.Fetch(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadHandlerRosterLinkRequiresAuth(t *testing.T) {
	handler := newDownloadHandler(t, &stubClientRepo{})

	gin.SetMode(gin.TestMode)
	rec, c := authedRequest(http.MethodGet, "/api/v1/clients/export/link", "")
	c.Keys = nil
	handler.ClientRosterLink(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
