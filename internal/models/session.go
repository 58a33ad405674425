package models

import "time"

// SessionStatus is the lifecycle state of a scheduled training session.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "SCHEDULED"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionCancelled SessionStatus = "CANCELLED"
	SessionNoShow    SessionStatus = "NO_SHOW"
)

// TrainingSession is a scheduled appointment between a trainer and a client.
type TrainingSession struct {
	ID        string        `db:"id" json:"id"`
	TrainerID string        `db:"trainer_id" json:"trainer_id"`
	ClientID  string        `db:"client_id" json:"client_id"`
	StartsAt  time.Time     `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time     `db:"ends_at" json:"ends_at"`
	Status    SessionStatus `db:"status" json:"status"`
	Location  *string       `db:"location" json:"location,omitempty"`
	Notes     *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// SessionFilter captures filtering criteria for listing sessions.
type SessionFilter struct {
	TrainerID string
	ClientID  string
	Status    *SessionStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
