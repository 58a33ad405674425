package models

import "time"

// Exercise represents an entry in the shared exercise library.
type Exercise struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	MuscleGroup string    `db:"muscle_group" json:"muscle_group"`
	Equipment   *string   `db:"equipment" json:"equipment,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	VideoURL    *string   `db:"video_url" json:"video_url,omitempty"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ExerciseFilter captures filtering criteria for the exercise library.
type ExerciseFilter struct {
	MuscleGroup string
	Search      string
	Page        int
	PageSize    int
}
