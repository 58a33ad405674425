package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitdesk/fitdesk-api/internal/models"
	appErrors "github.com/fitdesk/fitdesk-api/pkg/errors"
)

const testExerciseID = "cccccccc-cccc-4ccc-8ccc-cccccccccccc"

type mockProgramRepo struct {
	programs map[string]*models.Program
	entries  map[string][]models.ProgramEntry
	nextID   string
}

func (m *mockProgramRepo) List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, int, error) {
	out := make([]models.Program, 0, len(m.programs))
	for _, p := range m.programs {
		if filter.TrainerID != "" && p.TrainerID != filter.TrainerID {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockProgramRepo) FindByID(ctx context.Context, id string) (*models.Program, error) {
	p, ok := m.programs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (m *mockProgramRepo) ListEntries(ctx context.Context, programID string) ([]models.ProgramEntryDetail, error) {
	details := make([]models.ProgramEntryDetail, 0, len(m.entries[programID]))
	for _, e := range m.entries[programID] {
		details = append(details, models.ProgramEntryDetail{ProgramEntry: e})
	}
	return details, nil
}

func (m *mockProgramRepo) Create(ctx context.Context, program *models.Program) error {
	if m.programs == nil {
		m.programs = make(map[string]*models.Program)
	}
	if m.nextID == "" {
		m.nextID = "program-1"
	}
	program.ID = m.nextID
	m.programs[program.ID] = program
	return nil
}

func (m *mockProgramRepo) Update(ctx context.Context, program *models.Program) error {
	m.programs[program.ID] = program
	return nil
}

func (m *mockProgramRepo) ReplaceEntries(ctx context.Context, programID string, entries []models.ProgramEntry) error {
	if m.entries == nil {
		m.entries = make(map[string][]models.ProgramEntry)
	}
	m.entries[programID] = entries
	return nil
}

func (m *mockProgramRepo) Deactivate(ctx context.Context, id string) error {
	if p, ok := m.programs[id]; ok {
		p.Active = false
	}
	return nil
}

func programFixture(repo *mockProgramRepo) (*ProgramService, *mockNotifier) {
	notifier := &mockNotifier{}
	clients := &mockClientReader{clients: map[string]*models.Client{
		testClientID: {ID: testClientID, TrainerID: testTrainerID, FullName: "Jamie Soto", Active: true},
	}}
	return NewProgramService(repo, clients, notifier, nil, nil), notifier
}

func TestProgramCreateAssignsEntriesAndNotifies(t *testing.T) {
	repo := &mockProgramRepo{}
	svc, notifier := programFixture(repo)

	clientID := testClientID
	detail, err := svc.Create(context.Background(), testTrainerID, CreateProgramRequest{
		Name:     "Strength Block A",
		ClientID: &clientID,
		Weeks:    8,
		Entries: []ProgramEntryRequest{
			{ExerciseID: testExerciseID, Day: 1, Sets: 5, Reps: "5", RestSeconds: 180},
			{ExerciseID: testExerciseID, Day: 3, Sets: 3, Reps: "8-10", RestSeconds: 120},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Strength Block A", detail.Name)
	assert.True(t, detail.Active)
	require.Len(t, detail.Entries, 2)
	// entries without an explicit position get their request order
	assert.Equal(t, 1, detail.Entries[1].Position)
	assert.Equal(t, []string{"Program assigned"}, notifier.published)
}

func TestProgramCreateUnassignedSkipsNotification(t *testing.T) {
	svc, notifier := programFixture(&mockProgramRepo{})

	_, err := svc.Create(context.Background(), testTrainerID, CreateProgramRequest{
		Name:  "Template",
		Weeks: 4,
	})
	require.NoError(t, err)
	assert.Empty(t, notifier.published)
}

func TestProgramCreateRejectsForeignClient(t *testing.T) {
	repo := &mockProgramRepo{}
	notifier := &mockNotifier{}
	clients := &mockClientReader{clients: map[string]*models.Client{
		testClientID: {ID: testClientID, TrainerID: "someone-else", FullName: "Not Yours"},
	}}
	svc := NewProgramService(repo, clients, notifier, nil, nil)

	clientID := testClientID
	_, err := svc.Create(context.Background(), testTrainerID, CreateProgramRequest{
		Name:     "Strength Block A",
		ClientID: &clientID,
		Weeks:    8,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestProgramUpdateNotifiesOnlyOnReassignment(t *testing.T) {
	clientID := testClientID
	repo := &mockProgramRepo{programs: map[string]*models.Program{
		"program-1": {ID: "program-1", TrainerID: testTrainerID, Name: "Block A", Weeks: 8, Active: true},
	}}
	svc, notifier := programFixture(repo)

	// same (nil) assignment keeps quiet
	_, err := svc.Update(context.Background(), "program-1", testTrainerID, CreateProgramRequest{Name: "Block A", Weeks: 8})
	require.NoError(t, err)
	assert.Empty(t, notifier.published)

	// assigning a client publishes
	_, err = svc.Update(context.Background(), "program-1", testTrainerID, CreateProgramRequest{Name: "Block A", ClientID: &clientID, Weeks: 8})
	require.NoError(t, err)
	assert.Len(t, notifier.published, 1)

	// re-saving with the same client stays quiet
	_, err = svc.Update(context.Background(), "program-1", testTrainerID, CreateProgramRequest{Name: "Block B", ClientID: &clientID, Weeks: 8})
	require.NoError(t, err)
	assert.Len(t, notifier.published, 1)
}

func TestProgramGetForeignProgram(t *testing.T) {
	repo := &mockProgramRepo{programs: map[string]*models.Program{
		"program-1": {ID: "program-1", TrainerID: "someone-else", Name: "Block A"},
	}}
	svc, _ := programFixture(repo)

	_, err := svc.Get(context.Background(), "program-1", testTrainerID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestProgramDeactivate(t *testing.T) {
	repo := &mockProgramRepo{programs: map[string]*models.Program{
		"program-1": {ID: "program-1", TrainerID: testTrainerID, Name: "Block A", Active: true},
	}}
	svc, _ := programFixture(repo)

	require.NoError(t, svc.Deactivate(context.Background(), "program-1", testTrainerID))
	assert.False(t, repo.programs["program-1"].Active)
}
