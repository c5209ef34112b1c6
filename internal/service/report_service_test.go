package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func bucketNamed(t *testing.T, buckets []domain.BucketStats, name string) domain.BucketStats {
	t.Helper()
	for _, b := range buckets {
		if b.Name == name {
			return b
		}
	}
	t.Fatalf("bucket %q not found", name)
	return domain.BucketStats{}
}

// seedReportTickets creates two tickets for agentx resolved after 4h and 8h, plus an
// unassigned network ticket two days later.
func seedReportTickets(t *testing.T, f *fixture) {
	t.Helper()
	first := f.createTicket(t, "Printer broken", &f.support.ID)
	second := f.createTicket(t, "Password reset", nil)
	for _, id := range []int64{first.ID, second.ID} {
		_, err := f.tickets.UpdateTicket(f.ctx, f.admin, id, TicketPatch{AssignedToUserID: SetID(&f.agent.ID)})
		require.NoError(t, err)
	}

	f.clock.Advance(4 * time.Hour)
	_, err := f.tickets.UpdateTicket(f.ctx, f.agent, first.ID, TicketPatch{Status: statusPtr(domain.TicketStatusResolved)})
	require.NoError(t, err)
	f.clock.Advance(4 * time.Hour)
	_, err = f.tickets.UpdateTicket(f.ctx, f.agent, second.ID, TicketPatch{Status: statusPtr(domain.TicketStatusClosed)})
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	f.createTicket(t, "Switch offline", &f.network.ID)
}

func TestReportAggregates(t *testing.T) {
	f := newFixture(t)
	seedReportTickets(t, f)

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	report, err := f.reports.Report(f.ctx, f.admin, ReportRange{StartDate: &day, EndDate: &day})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.ByStatus[domain.TicketStatusResolved])
	assert.Equal(t, 1, report.ByStatus[domain.TicketStatusClosed])
	assert.Equal(t, 0, report.ByStatus[domain.TicketStatusOpen])
	assert.Equal(t, 2, report.ByPriority[domain.TicketPriorityHigh])

	require.Len(t, report.Daily, 1)
	assert.Equal(t, "2024-03-10", report.Daily[0].Date)
	assert.Equal(t, 2, report.Daily[0].Created)
	assert.Equal(t, 2, report.Daily[0].Resolved)

	agent := bucketNamed(t, report.Agents, "agentx")
	assert.Equal(t, 2, agent.TotalTickets)
	assert.Equal(t, 2, agent.ResolvedTickets)
	require.NotNil(t, agent.AvgResolutionHours)
	assert.InDelta(t, 6.0, *agent.AvgResolutionHours, 0.001)

	idle := bucketNamed(t, report.Agents, "agenty")
	assert.Zero(t, idle.ResolvedTickets)
	assert.Nil(t, idle.AvgResolutionHours)
	assert.Nil(t, bucketNamed(t, report.Agents, "admin").AvgResolutionHours)
	for _, b := range report.Agents {
		assert.NotEqual(t, "carol", b.Name)
	}

	support := bucketNamed(t, report.Departments, "Support")
	require.NotNil(t, support.AvgResolutionHours)
	assert.InDelta(t, 4.0, *support.AvgResolutionHours, 0.001)
	assert.Nil(t, bucketNamed(t, report.Departments, "Network").AvgResolutionHours)
	unassigned := bucketNamed(t, report.Departments, "Unassigned")
	assert.Nil(t, unassigned.ID)
	assert.Equal(t, 1, unassigned.TotalTickets)
	require.NotNil(t, unassigned.AvgResolutionHours)
	assert.InDelta(t, 8.0, *unassigned.AvgResolutionHours, 0.001)
}

func TestReportDefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	seedReportTickets(t, f)

	report, err := f.reports.Report(f.ctx, f.admin, ReportRange{})
	require.NoError(t, err)
	assert.Len(t, report.Daily, 30)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, "2024-03-12", report.Daily[len(report.Daily)-1].Date)

	start := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.reports.Report(f.ctx, f.admin, ReportRange{StartDate: &start, EndDate: &end})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	// 2023-01-01..2024-01-01 is 366 days inclusive; one more day is too long.
	yearStart := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	longest := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	report, err = f.reports.Report(f.ctx, f.admin, ReportRange{StartDate: &yearStart, EndDate: &longest})
	require.NoError(t, err)
	assert.Len(t, report.Daily, 366)
	tooLong := longest.AddDate(0, 0, 1)
	_, err = f.reports.Report(f.ctx, f.admin, ReportRange{StartDate: &yearStart, EndDate: &tooLong})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = f.reports.Report(f.ctx, f.agent, ReportRange{})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestDashboardIsScoped(t *testing.T) {
	f := newFixture(t)
	seedReportTickets(t, f)

	admin, err := f.reports.Dashboard(f.ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 3, admin.Total)
	assert.Equal(t, 1, admin.Unassigned)
	assert.Equal(t, 1, admin.ByStatus[domain.TicketStatusOpen])

	agent, err := f.reports.Dashboard(f.ctx, f.agent)
	require.NoError(t, err)
	assert.Equal(t, 2, agent.Total)
	assert.Equal(t, 2, agent.AssignedToMe)
	assert.Zero(t, agent.Unassigned)
	require.NotNil(t, agent.AvgResolutionHours)
	assert.InDelta(t, 6.0, *agent.AvgResolutionHours, 0.001)

	other, err := f.reports.Dashboard(f.ctx, f.otherAgent)
	require.NoError(t, err)
	assert.Equal(t, 1, other.Total)
	assert.Nil(t, other.AvgResolutionHours)

	client, err := f.reports.Dashboard(f.ctx, f.client)
	require.NoError(t, err)
	assert.Equal(t, 3, client.Total)
	assert.Equal(t, int64(len(f.notificationsFor(t, f.client.ID))), client.UnreadNotifications)

	stranger, err := f.reports.Dashboard(f.ctx, f.otherClient)
	require.NoError(t, err)
	assert.Zero(t, stranger.Total)
	assert.Zero(t, stranger.UnreadNotifications)
}
