package models

import "time"

// PortalAccess stores the hashed PIN gating a client's read-only portal.
type PortalAccess struct {
	ClientID  string    `db:"client_id" json:"client_id"`
	PINHash   string    `db:"pin_hash" json:"-"`
	IssuedBy  string    `db:"issued_by" json:"issued_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PortalView is the read-only payload returned after a successful PIN check.
type PortalView struct {
	Client           Client            `json:"client"`
	Program          *ProgramDetail    `json:"program,omitempty"`
	MealPlan         *MealPlanDetail   `json:"meal_plan,omitempty"`
	UpcomingSessions []TrainingSession `json:"upcoming_sessions"`
}
