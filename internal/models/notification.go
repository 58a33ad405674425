package models

import "time"

// NotificationKind classifies notifications for client-side rendering.
type NotificationKind string

const (
	NotificationSession  NotificationKind = "SESSION"
	NotificationProgram  NotificationKind = "PROGRAM"
	NotificationMealPlan NotificationKind = "MEAL_PLAN"
	NotificationSystem   NotificationKind = "SYSTEM"
)

// Notification is a per-user message shown in the dashboard bell menu.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Kind      NotificationKind `db:"kind" json:"kind"`
	Title     string           `db:"title" json:"title"`
	Body      string           `db:"body" json:"body"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter captures filtering criteria for listing notifications.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
