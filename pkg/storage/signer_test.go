package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadSignerRoundTrip(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)

	token, expiresAt, err := signer.Sign("clients/t-1/roster.csv")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	path, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "clients/t-1/roster.csv", path)
}

func TestDownloadSignerRejectsTampering(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)

	token, _, err := signer.Sign("plans/p-1.pdf")
	require.NoError(t, err)

	_, err = signer.Verify(token + "x")
	assert.Error(t, err)

	other := NewDownloadSigner("other-secret", time.Hour)
	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestDownloadSignerRejectsExpired(t *testing.T) {
	signer := &DownloadSigner{secret: []byte("secret"), ttl: -time.Minute}

	token, _, err := signer.Sign("plans/p-1.pdf")
	require.NoError(t, err)

	_, err = signer.Verify(token)
	assert.ErrorContains(t, err, "expired")
}

func TestDownloadSignerRequiresSecret(t *testing.T) {
	signer := NewDownloadSigner("", time.Hour)
	_, _, err := signer.Sign("plans/p-1.pdf")
	assert.Error(t, err)
}
