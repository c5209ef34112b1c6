package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const (
	defaultReportDays = 30
	maxReportDays     = 366
	staffPageSize     = 500
	dayLayout         = "2006-01-02"
)

// ReportService runs the read-only aggregations behind the admin report and the dashboard.
type ReportService struct {
	store         repository.Store
	gate          *auth.Gate
	notifications *NotificationService
	now           func() time.Time
}

// ReportRange selects tickets by created_at. Both ends are calendar days and inclusive.
type ReportRange struct {
	StartDate *time.Time
	EndDate   *time.Time
}

// NewReportService constructs the service. A nil clock uses UTC wall time.
func NewReportService(store repository.Store, gate *auth.Gate, notifications *NotificationService, clock func() time.Time) *ReportService {
	if clock == nil {
		clock = utcNow
	}
	return &ReportService{store: store, gate: gate, notifications: notifications, now: clock}
}

// Report aggregates tickets created inside the range. Without dates it covers the last 30 days.
func (s *ReportService) Report(ctx context.Context, actor domain.Actor, rng ReportRange) (*domain.TicketReport, error) {
	if err := s.gate.Authorize(actor, auth.ResourceReport, auth.ActionRead); err != nil {
		return nil, err
	}
	start, end, err := s.resolveRange(rng)
	if err != nil {
		return nil, err
	}

	repos := s.store.Repos()
	until := end.AddDate(0, 0, 1)
	tickets, err := repos.Tickets.ListAll(ctx, repository.TicketFilter{CreatedFrom: &start, CreatedTo: &until})
	if err != nil {
		return nil, mapRepoError(err, "ticket")
	}
	staff, err := listStaff(ctx, repos)
	if err != nil {
		return nil, err
	}
	departments, err := repos.Departments.List(ctx)
	if err != nil {
		return nil, mapRepoError(err, "department")
	}

	report := &domain.TicketReport{
		StartDate:  start,
		EndDate:    end,
		Total:      len(tickets),
		ByStatus:   statusCounts(tickets),
		ByPriority: priorityCounts(tickets),
		Daily:      dailySeries(tickets, start, end),
	}

	agentBuckets := make(map[int64]*bucket, len(staff))
	for _, user := range staff {
		agentBuckets[user.ID] = &bucket{}
	}
	deptBuckets := make(map[int64]*bucket, len(departments))
	for _, dept := range departments {
		deptBuckets[dept.ID] = &bucket{}
	}
	unassigned := &bucket{}
	for i := range tickets {
		ticket := &tickets[i]
		if ticket.AssignedToUserID != nil {
			if b, ok := agentBuckets[*ticket.AssignedToUserID]; ok {
				b.add(ticket)
			}
		}
		if ticket.DepartmentID == nil {
			unassigned.add(ticket)
		} else if b, ok := deptBuckets[*ticket.DepartmentID]; ok {
			b.add(ticket)
		}
	}

	report.Agents = make([]domain.BucketStats, 0, len(staff))
	for _, user := range staff {
		report.Agents = append(report.Agents, agentBuckets[user.ID].stats(user.ID, user.Username))
	}
	report.Departments = make([]domain.BucketStats, 0, len(departments)+1)
	for _, dept := range departments {
		report.Departments = append(report.Departments, deptBuckets[dept.ID].stats(dept.ID, dept.Name))
	}
	noDepartment := unassigned.stats(0, "Unassigned")
	noDepartment.ID = nil
	report.Departments = append(report.Departments, noDepartment)
	return report, nil
}

func (s *ReportService) resolveRange(rng ReportRange) (time.Time, time.Time, error) {
	today := truncateDay(s.now())
	end := today
	if rng.EndDate != nil {
		end = truncateDay(*rng.EndDate)
	}
	start := end.AddDate(0, 0, -(defaultReportDays - 1))
	if rng.StartDate != nil {
		start = truncateDay(*rng.StartDate)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("startDate must not be after endDate", map[string]any{
			"startDate": start.Format(dayLayout),
			"endDate":   end.Format(dayLayout),
		})
	}
	if days := int(end.Sub(start)/(24*time.Hour)) + 1; days > maxReportDays {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("report range is too long", map[string]any{"max_days": maxReportDays})
	}
	return start, end, nil
}

// Dashboard summarizes the tickets the actor can see plus their unread notification count.
func (s *ReportService) Dashboard(ctx context.Context, actor domain.Actor) (*domain.DashboardMetrics, error) {
	if err := s.gate.Authorize(actor, auth.ResourceDashboard, auth.ActionRead); err != nil {
		return nil, err
	}
	metrics := &domain.DashboardMetrics{
		ByStatus:   statusCounts(nil),
		ByPriority: priorityCounts(nil),
	}

	if scopes := s.gate.GrantedScopes(actor.Role, auth.ResourceTicket, auth.ActionList); len(scopes) > 0 {
		var filter repository.TicketFilter
		visibilityFilter(actor, scopes, &filter)
		tickets, err := s.store.Repos().Tickets.ListAll(ctx, filter)
		if err != nil {
			return nil, mapRepoError(err, "ticket")
		}

		var resolved bucket
		for i := range tickets {
			ticket := &tickets[i]
			metrics.ByStatus[ticket.Status]++
			metrics.ByPriority[ticket.Priority]++
			switch {
			case ticket.AssignedToUserID == nil:
				metrics.Unassigned++
			case *ticket.AssignedToUserID == actor.ID:
				metrics.AssignedToMe++
			}
			resolved.add(ticket)
		}
		metrics.Total = len(tickets)
		metrics.AvgResolutionHours = resolved.average()
	}

	if s.notifications != nil {
		unread, err := s.notifications.UnreadCount(ctx, actor)
		if err != nil {
			return nil, err
		}
		metrics.UnreadNotifications = unread
	}
	return metrics, nil
}

// bucket accumulates resolution figures; tickets without closed_at never count towards the
// average.
type bucket struct {
	total    int
	resolved int
	hours    float64
}

func (b *bucket) add(ticket *domain.Ticket) {
	b.total++
	if ticket.ClosedAt == nil {
		return
	}
	b.resolved++
	b.hours += ticket.ClosedAt.Sub(ticket.CreatedAt).Hours()
}

func (b *bucket) average() *float64 {
	if b.resolved == 0 {
		return nil
	}
	avg := math.Round(b.hours/float64(b.resolved)*100) / 100
	return &avg
}

func (b *bucket) stats(id int64, name string) domain.BucketStats {
	bucketID := id
	return domain.BucketStats{
		ID:                 &bucketID,
		Name:               name,
		TotalTickets:       b.total,
		ResolvedTickets:    b.resolved,
		AvgResolutionHours: b.average(),
	}
}

func statusCounts(tickets []domain.Ticket) map[domain.TicketStatus]int {
	counts := make(map[domain.TicketStatus]int, len(domain.TicketStatuses))
	for _, status := range domain.TicketStatuses {
		counts[status] = 0
	}
	for _, ticket := range tickets {
		counts[ticket.Status]++
	}
	return counts
}

func priorityCounts(tickets []domain.Ticket) map[domain.TicketPriority]int {
	counts := make(map[domain.TicketPriority]int, len(domain.TicketPriorities))
	for _, priority := range domain.TicketPriorities {
		counts[priority] = 0
	}
	for _, ticket := range tickets {
		counts[ticket.Priority]++
	}
	return counts
}

// dailySeries emits one point per calendar day, including empty days. Resolved counts the
// tickets of the window whose closed_at falls on that day.
func dailySeries(tickets []domain.Ticket, start, end time.Time) []domain.DailyStats {
	var (
		series []domain.DailyStats
		index  = make(map[string]int)
	)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dayLayout)
		index[key] = len(series)
		series = append(series, domain.DailyStats{Date: key, ByPriority: priorityCounts(nil)})
	}
	for _, ticket := range tickets {
		if i, ok := index[ticket.CreatedAt.UTC().Format(dayLayout)]; ok {
			series[i].Created++
			series[i].ByPriority[ticket.Priority]++
		}
		if ticket.ClosedAt == nil {
			continue
		}
		if i, ok := index[ticket.ClosedAt.UTC().Format(dayLayout)]; ok {
			series[i].Resolved++
		}
	}
	return series
}

// listStaff pages through agents and admins ordered by username.
func listStaff(ctx context.Context, repos repository.Repositories) ([]domain.User, error) {
	var staff []domain.User
	for offset := 0; ; offset += staffPageSize {
		page, err := repos.Users.List(ctx, repository.UserFilter{
			Roles:  []domain.Role{domain.RoleAgent, domain.RoleAdmin},
			Limit:  staffPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, mapRepoError(err, "user")
		}
		staff = append(staff, page...)
		if len(page) < staffPageSize {
			break
		}
	}
	sort.SliceStable(staff, func(i, j int) bool { return staff[i].Username < staff[j].Username })
	return staff, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
