package models

import "time"

// Client represents a coached client belonging to a trainer.
type Client struct {
	ID        string     `db:"id" json:"id"`
	TrainerID string     `db:"trainer_id" json:"trainer_id"`
	FullName  string     `db:"full_name" json:"full_name"`
	Email     *string    `db:"email" json:"email,omitempty"`
	Phone     *string    `db:"phone" json:"phone,omitempty"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Goal      *string    `db:"goal" json:"goal,omitempty"`
	Notes     *string    `db:"notes" json:"notes,omitempty"`
	Active    bool       `db:"active" json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// ClientFilter captures filtering criteria for listing clients.
type ClientFilter struct {
	TrainerID string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
