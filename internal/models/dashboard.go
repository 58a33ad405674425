package models

// DashboardSummary aggregates headline counts for the trainer dashboard.
type DashboardSummary struct {
	ActiveClients       int `json:"active_clients"`
	SessionsThisWeek    int `json:"sessions_this_week"`
	ActivePrograms      int `json:"active_programs"`
	UnreadNotifications int `json:"unread_notifications"`
}
