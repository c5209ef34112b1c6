package dto

import "github.com/spec-kit/helpdesk-service/internal/domain"

type BucketResponse struct {
	ID                 *int64   `json:"id"`
	Name               string   `json:"name"`
	TotalTickets       int      `json:"total_tickets"`
	ResolvedTickets    int      `json:"resolved_tickets"`
	AvgResolutionHours *float64 `json:"avg_resolution_hours"`
}

type DailyResponse struct {
	Date       string                        `json:"date"`
	Created    int                           `json:"created"`
	Resolved   int                           `json:"resolved"`
	ByPriority map[domain.TicketPriority]int `json:"by_priority"`
}

type ReportResponse struct {
	StartDate   string                        `json:"start_date"`
	EndDate     string                        `json:"end_date"`
	Total       int                           `json:"total"`
	ByStatus    map[domain.TicketStatus]int   `json:"by_status"`
	ByPriority  map[domain.TicketPriority]int `json:"by_priority"`
	Daily       []DailyResponse               `json:"daily"`
	Agents      []BucketResponse              `json:"agents"`
	Departments []BucketResponse              `json:"departments"`
}

type DashboardResponse struct {
	Total               int                           `json:"total"`
	ByStatus            map[domain.TicketStatus]int   `json:"by_status"`
	ByPriority          map[domain.TicketPriority]int `json:"by_priority"`
	Unassigned          int                           `json:"unassigned"`
	AssignedToMe        int                           `json:"assigned_to_me"`
	AvgResolutionHours  *float64                      `json:"avg_resolution_hours"`
	UnreadNotifications int64                         `json:"unread_notifications"`
}

// NewReportResponse maps a ticket report.
func NewReportResponse(report *domain.TicketReport) ReportResponse {
	resp := ReportResponse{
		StartDate:   report.StartDate.Format("2006-01-02"),
		EndDate:     report.EndDate.Format("2006-01-02"),
		Total:       report.Total,
		ByStatus:    report.ByStatus,
		ByPriority:  report.ByPriority,
		Daily:       make([]DailyResponse, 0, len(report.Daily)),
		Agents:      newBucketResponses(report.Agents),
		Departments: newBucketResponses(report.Departments),
	}
	for _, day := range report.Daily {
		resp.Daily = append(resp.Daily, DailyResponse(day))
	}
	return resp
}

// NewDashboardResponse maps dashboard metrics.
func NewDashboardResponse(m *domain.DashboardMetrics) DashboardResponse {
	return DashboardResponse(*m)
}

func newBucketResponses(buckets []domain.BucketStats) []BucketResponse {
	out := make([]BucketResponse, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, BucketResponse(b))
	}
	return out
}
