package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// ReportsHandler serves the activity feed, the admin report and the dashboard.
type ReportsHandler struct {
	reports  *service.ReportService
	activity *service.ActivityService
}

// NewReportsHandler constructs the handler.
func NewReportsHandler(reports *service.ReportService, activity *service.ActivityService) *ReportsHandler {
	return &ReportsHandler{reports: reports, activity: activity}
}

// Activity handles GET /api/activity-logs.
func (h *ReportsHandler) Activity(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	entries, err := h.activity.List(c.UserContext(), a, limit)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewActivityLogResponses(entries))
}

// Report handles GET /api/admin/reports.
func (h *ReportsHandler) Report(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var rng service.ReportRange
	if rng.StartDate, err = queryDate(c, "startDate"); err != nil {
		return err
	}
	if rng.EndDate, err = queryDate(c, "endDate"); err != nil {
		return err
	}
	report, err := h.reports.Report(c.UserContext(), a, rng)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewReportResponse(report))
}

// Dashboard handles GET /api/dashboard/metrics.
func (h *ReportsHandler) Dashboard(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	metrics, err := h.reports.Dashboard(c.UserContext(), a)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewDashboardResponse(metrics))
}
