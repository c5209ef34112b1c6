package domain

import "time"

// BucketStats aggregates resolution numbers for one agent or department.
type BucketStats struct {
	ID                 *int64
	Name               string
	TotalTickets       int
	ResolvedTickets    int
	AvgResolutionHours *float64
}

// DailyStats is one point of a report time series.
type DailyStats struct {
	Date       string
	Created    int
	Resolved   int
	ByPriority map[TicketPriority]int
}

// TicketReport is the admin report over a created_at window.
type TicketReport struct {
	StartDate   time.Time
	EndDate     time.Time
	Total       int
	ByStatus    map[TicketStatus]int
	ByPriority  map[TicketPriority]int
	Daily       []DailyStats
	Agents      []BucketStats
	Departments []BucketStats
}

// DashboardMetrics is the caller-scoped snapshot shown on the dashboard.
type DashboardMetrics struct {
	Total               int
	ByStatus            map[TicketStatus]int
	ByPriority          map[TicketPriority]int
	Unassigned          int
	AssignedToMe        int
	AvgResolutionHours  *float64
	UnreadNotifications int64
}
