package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitdesk/fitdesk-api/internal/models"
)

func TestHasOverlap(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM training_sessions WHERE trainer_id = $1 AND status = 'SCHEDULED' AND starts_at < $3 AND ends_at > $2 AND id <> $4")).
		WithArgs("t1", start, end, "").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	overlap, err := repo.HasOverlap(context.Background(), "t1", start, end, "")
	require.NoError(t, err)
	assert.True(t, overlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSession(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO training_sessions").WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.TrainingSession{
		TrainerID: "t1",
		ClientID:  "c1",
		StartsAt:  time.Now().Add(24 * time.Hour),
		EndsAt:    time.Now().Add(25 * time.Hour),
		Status:    models.SessionScheduled,
	}
	err := repo.Create(context.Background(), session)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountInRange(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM training_sessions WHERE trainer_id = $1 AND starts_at >= $2 AND starts_at < $3")).
		WithArgs("t1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountInRange(context.Background(), "t1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
