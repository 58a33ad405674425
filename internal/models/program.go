package models

import "time"

// Program is a training plan owned by a trainer, optionally assigned to a client.
type Program struct {
	ID          string    `db:"id" json:"id"`
	TrainerID   string    `db:"trainer_id" json:"trainer_id"`
	ClientID    *string   `db:"client_id" json:"client_id,omitempty"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Weeks       int       `db:"weeks" json:"weeks"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ProgramEntry is one prescribed exercise inside a program day.
type ProgramEntry struct {
	ID          string  `db:"id" json:"id"`
	ProgramID   string  `db:"program_id" json:"program_id"`
	ExerciseID  string  `db:"exercise_id" json:"exercise_id"`
	Day         int     `db:"day" json:"day"`
	Position    int     `db:"position" json:"position"`
	Sets        int     `db:"sets" json:"sets"`
	Reps        string  `db:"reps" json:"reps"`
	RestSeconds int     `db:"rest_seconds" json:"rest_seconds"`
	Notes       *string `db:"notes" json:"notes,omitempty"`
}

// ProgramEntryDetail joins an entry with its exercise metadata.
type ProgramEntryDetail struct {
	ProgramEntry
	ExerciseName string `db:"exercise_name" json:"exercise_name"`
	MuscleGroup  string `db:"muscle_group" json:"muscle_group"`
}

// ProgramDetail bundles a program with its ordered entries.
type ProgramDetail struct {
	Program
	Entries []ProgramEntryDetail `json:"entries"`
}

// ProgramFilter captures filtering criteria for listing programs.
type ProgramFilter struct {
	TrainerID string
	ClientID  string
	Active    *bool
	Page      int
	PageSize  int
}
