package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func validTicket() TicketCreateInput {
	return TicketCreateInput{
		Type:        domain.IssueTypeHardware,
		Category:    "Printer",
		Subcategory: "Paper jam",
		Description: "The printer on floor 3 keeps jamming",
	}
}

func createTicket(t *testing.T, h *harness) *domain.Ticket {
	t.Helper()
	ticket, err := h.ticketSvc.CreateTicket(context.Background(), h.employee, validTicket())
	require.NoError(t, err)
	return ticket
}

func TestCreateTicketDefaults(t *testing.T) {
	h := newHarness(t)

	ticket := createTicket(t, h)

	assert.Equal(t, "TKT-000001", ticket.TicketCode)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.PriorityMedium, ticket.Priority)
	require.Len(t, ticket.Timeline, 1)
	assert.Equal(t, domain.TimelineCreated, ticket.Timeline[0].Event)
	assert.Equal(t, "Medium", ticket.Timeline[0].NewValue)
	assert.Equal(t, "Erin", ticket.Timeline[0].PerformedByName)
	assert.Equal(t, "2024-06-01 09:30:00 UTC", ticket.Timeline[0].Timestamp)
	assert.Empty(t, ticket.Comments)

	created := h.dispatcher.ofType(events.EventCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "erin@example.com", created[0].Recipient.Email)
	assert.NotEmpty(t, created[0].ID)

	second := createTicket(t, h)
	assert.Equal(t, "TKT-000002", second.TicketCode)
}

func TestCreateTicketValidation(t *testing.T) {
	h := newHarness(t)

	input := validTicket()
	input.Description = "too short"
	input.Type = "Furniture"
	input.Category = " "
	_, err := h.ticketSvc.CreateTicket(context.Background(), h.employee, input)
	requireCode(t, err, apperrors.CodeValidation)

	details := apperrors.ToDomainError(err).Details
	assert.Contains(t, details, "description")
	assert.Contains(t, details, "type")
	assert.Contains(t, details, "category")
	assert.Empty(t, h.tickets.tickets)
}

func TestCreateTicketRejectsInactiveActor(t *testing.T) {
	h := newHarness(t)
	inactive := *h.employee
	inactive.IsActive = false

	_, err := h.ticketSvc.CreateTicket(context.Background(), &inactive, validTicket())
	requireCode(t, err, apperrors.CodeAccountDeactivated)
}

func TestTimelineUsesConfiguredZone(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	h := newHarness(t, func(o *LifecycleOptions) { o.Location = loc })

	ticket := createTicket(t, h)
	assert.Equal(t, "2024-06-01 15:00:00 IST", ticket.Timeline[0].Timestamp)
}

func TestAgentAccessGate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := createTicket(t, h)

	_, err := h.ticketSvc.GetTicket(ctx, h.agent, ticket.ID)
	requireCode(t, err, apperrors.CodeAccessDenied)
	_, err = h.ticketSvc.UpdateTicket(ctx, h.agent, ticket.ID, TicketUpdateInput{Status: ptr(domain.TicketStatusInProgress)})
	requireCode(t, err, apperrors.CodeAccessDenied)
	_, err = h.ticketSvc.AddComment(ctx, h.agent, ticket.ID, "looking", nil)
	requireCode(t, err, apperrors.CodeAccessDenied)
	_, err = h.ticketSvc.AssignTicket(ctx, h.agent, ticket.ID, h.agent.ID)
	requireCode(t, err, apperrors.CodeAccessDenied)
	_, err = h.ticketSvc.MarkResolved(ctx, h.agent, ticket.ID)
	requireCode(t, err, apperrors.CodeAccessDenied)

	_, err = h.ticketSvc.AssignTicket(ctx, h.admin, ticket.ID, h.agent2.ID)
	require.NoError(t, err)
	_, err = h.ticketSvc.GetTicket(ctx, h.agent, ticket.ID)
	requireCode(t, err, apperrors.CodeAccessDenied)

	_, err = h.ticketSvc.GetTicket(ctx, h.other, ticket.ID)
	requireCode(t, err, apperrors.CodeAccessDenied)

	_, err = h.ticketSvc.GetTicket(ctx, h.admin, "missing")
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestScenarioAssignmentUnlocksAgent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := createTicket(t, h)

	_, err := h.ticketSvc.GetTicket(ctx, h.agent, ticket.ID)
	requireCode(t, err, apperrors.CodeAccessDenied)

	assigned, err := h.ticketSvc.AssignTicket(ctx, h.admin, ticket.ID, h.agent.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, h.agent.ID, *assigned.AssignedTo)
	last := assigned.Timeline[len(assigned.Timeline)-1]
	assert.Equal(t, domain.TimelineAssigned, last.Event)
	assert.Equal(t, "Assigned to Ada", last.Details)
	assert.Equal(t, h.agent.ID, last.NewValue)

	notices := h.dispatcher.ofType(events.EventAssigned)
	require.Len(t, notices, 1)
	assert.Equal(t, "ada@example.com", notices[0].Recipient.Email)

	_, err = h.ticketSvc.GetTicket(ctx, h.agent, ticket.ID)
	require.NoError(t, err)
	_, err = h.ticketSvc.AddComment(ctx, h.agent, ticket.ID, "On my way", nil)
	require.NoError(t, err)
	_, err = h.ticketSvc.UpdateTicket(ctx, h.agent, ticket.ID, TicketUpdateInput{Status: ptr(domain.TicketStatusInProgress)})
	require.NoError(t, err)
	final, err := h.ticketSvc.UpdateTicket(ctx, h.agent, ticket.ID, TicketUpdateInput{Status: ptr(domain.TicketStatusResolved)})
	require.NoError(t, err)

	changes := h.dispatcher.ofType(events.EventStatusChanged)
	require.Len(t, changes, 2)
	for _, change := range changes {
		assert.Equal(t, h.employee.ID, change.Recipient.UserID)
		assert.Equal(t, "erin@example.com", change.Recipient.Email)
	}
	assert.Equal(t, events.StatusChangedPayload{OldStatus: "In Progress", NewStatus: "Resolved"}, changes[1].Payload)

	kinds := make([]domain.TimelineEventType, len(final.Timeline))
	for i, e := range final.Timeline {
		kinds[i] = e.Event
	}
	assert.Equal(t, []domain.TimelineEventType{
		domain.TimelineCreated,
		domain.TimelineAssigned,
		domain.TimelineCommented,
		domain.TimelineStatusChanged,
		domain.TimelineResolved,
	}, kinds)
	assert.Equal(t, "Status changed from In Progress to Resolved", final.Timeline[4].Details)
}

func TestReassignmentRecordsPreviousAgent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := createTicket(t, h)

	_, err := h.ticketSvc.AssignTicket(ctx, h.admin, ticket.ID, h.agent.ID)
	require.NoError(t, err)
	updated, err := h.ticketSvc.AssignTicket(ctx, h.agent, ticket.ID, h.agent2.ID)
	require.NoError(t, err)

	last := updated.Timeline[len(updated.Timeline)-1]
	assert.Equal(t, domain.TimelineReassigned, last.Event)
	assert.Equal(t, "Reassigned from Ada to Bo", last.Details)
	assert.Equal(t, h.agent.ID, last.OldValue)
	assert.Equal(t, h.agent2.ID, last.NewValue)

	notices := h.dispatcher.ofType(events.EventAssigned)
	require.Len(t, notices, 2)
	payload := notices[1].Payload.(events.AssignedPayload)
	require.NotNil(t, payload.PreviousAssignee)
	assert.Equal(t, h.agent.ID, *payload.PreviousAssignee)
}

func TestAssignValidatesTarget(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := createTicket(t, h)

	_, err := h.ticketSvc.AssignTicket(ctx, h.admin, ticket.ID, "nobody")
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = h.ticketSvc.AssignTicket(ctx, h.admin, ticket.ID, h.other.ID)
	requireCode(t, err, apperrors.CodeValidation)

	h.users.users[h.agent2.ID].IsActive = false
	_, err = h.ticketSvc.AssignTicket(ctx, h.admin, ticket.ID, h.agent2.ID)
	requireCode(t, err, apperrors.CodeValidation)

	_, err = h.ticketSvc.AssignTicket(ctx, h.employee, ticket.ID, h.agent.ID)
	requireCode(t, err, apperrors.CodeForbidden)
}

func TestAssignSameAgentIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := createTicket(t, h)

	_, err := h.ticketSvc.AssignTicket(ctx, h.admin, ticket.ID, h.agent.ID)
	require.NoError(t, err)
	again, err := h.ticketSvc.AssignTicket(ctx, h.admin, ticket.ID, h.agent.ID)
	require.NoError(t, err)

	assert.Len(t, again.Timeline, 2)
	assert.Len(t, h.dispatcher.ofType(events.EventAssigned), 1)
}

func TestSameStatusUpdateIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := createTicket(t, h)

	updated, err := h.ticketSvc.UpdateTicket(ctx, h.employee, ticket.ID, TicketUpdateInput{Status: ptr(domain.TicketStatusOpen)})
	require.NoError(t, err)

	assert.Len(t, updated.Timeline, 1)
	assert.Empty(t, h.dispatcher.ofType(events.EventStatusChanged))
	assert.Zero(t, h.tickets.updates)
}

func TestPriorityChangeHasNoTimelineEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := createTicket(t, h)

	updated, err := h.ticketSvc.UpdateTicket(ctx, h.employee, ticket.ID, TicketUpdateInput{Priority: ptr(domain.PriorityCritical)})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityCritical, updated.Priority)
	assert.Len(t, updated.Timeline, 1)
}

func TestResolvedAtIsSetOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := createTicket(t, h)

	first, err := h.ticketSvc.UpdateTicket(ctx, h.admin, ticket.ID, TicketUpdateInput{Status: ptr(domain.TicketStatusResolved)})
	require.NoError(t, err)
	require.NotNil(t, first.ResolvedAt)
	resolvedAt := *first.ResolvedAt

	h.ticketSvc.now = func() time.Time { return fixedNow.Add(time.Hour) }
	_, err = h.ticketSvc.UpdateTicket(ctx, h.admin, ticket.ID, TicketUpdateInput{Status: ptr(domain.TicketStatusInProgress)})
	require.NoError(t, err)
	second, err := h.ticketSvc.UpdateTicket(ctx, h.admin, ticket.ID, TicketUpdateInput{Status: ptr(domain.TicketStatusResolved)})
	require.NoError(t, err)

	assert.Equal(t, resolvedAt, *second.ResolvedAt)
	assert.Equal(t, domain.TimelineResolved, second.Timeline[len(second.Timeline)-1].Event)
}

func TestStrictTransitions(t *testing.T) {
	h := newHarness(t, func(o *LifecycleOptions) { o.StrictTransitions = true })
	ctx := context.Background()
	ticket := createTicket(t, h)

	_, err := h.ticketSvc.UpdateTicket(ctx, h.admin, ticket.ID, TicketUpdateInput{Status: ptr(domain.TicketStatusClosed)})
	require.NoError(t, err)
	_, err = h.ticketSvc.UpdateTicket(ctx, h.admin, ticket.ID, TicketUpdateInput{Status: ptr(domain.TicketStatusOpen)})
	requireCode(t, err, apperrors.CodeInvalidTransition)
}

func TestClosedStatusUsesClosedEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := createTicket(t, h)

	updated, err := h.ticketSvc.UpdateTicket(ctx, h.admin, ticket.ID, TicketUpdateInput{Status: ptr(domain.TicketStatusClosed)})
	require.NoError(t, err)
	last := updated.Timeline[len(updated.Timeline)-1]
	assert.Equal(t, domain.TimelineClosed, last.Event)
	assert.Equal(t, "Open", last.OldValue)
	assert.Equal(t, "Closed", last.NewValue)
}

func TestAddCommentWithAttachments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := createTicket(t, h)

	_, err := h.ticketSvc.AddComment(ctx, h.employee, ticket.ID, "  ", nil)
	requireCode(t, err, apperrors.CodeValidation)

	updated, err := h.ticketSvc.AddComment(ctx, h.employee, ticket.ID, "Photo attached", []domain.Attachment{
		{FileName: "jam.jpg", URL: "https://files.example.com/jam.jpg"},
	})
	require.NoError(t, err)
	require.Len(t, updated.Comments, 1)
	assert.Equal(t, "Erin", updated.Comments[0].AuthorName)
	assert.NotEmpty(t, updated.Comments[0].ID)
	assert.Equal(t, "Comment added with 1 attachment(s)", updated.Timeline[len(updated.Timeline)-1].Details)
}

func TestMarkResolved(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := createTicket(t, h)

	resolved, err := h.ticketSvc.MarkResolved(ctx, h.employee, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	last := resolved.Timeline[len(resolved.Timeline)-1]
	assert.Equal(t, "Ticket marked as resolved", last.Details)
	assert.Len(t, h.dispatcher.ofType(events.EventStatusChanged), 1)

	again, err := h.ticketSvc.MarkResolved(ctx, h.employee, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, again.Timeline, len(resolved.Timeline))
	assert.Len(t, h.dispatcher.ofType(events.EventStatusChanged), 1)
}

func TestListMineIsScopedToCreator(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	createTicket(t, h)
	createTicket(t, h)
	_, err := h.ticketSvc.CreateTicket(ctx, h.other, validTicket())
	require.NoError(t, err)

	page, err := h.ticketSvc.ListTickets(ctx, h.employee, TicketListInput{
		Scope:      ScopeMine,
		Statuses:   []domain.TicketStatus{domain.TicketStatusOpen},
		AssignedTo: ptr(h.other.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	for _, ticket := range page.Items {
		assert.Equal(t, h.employee.ID, ticket.CreatedBy)
	}
}

func TestListScopesRequireRole(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ticketSvc.ListTickets(ctx, h.employee, TicketListInput{Scope: ScopeAssigned})
	requireCode(t, err, apperrors.CodeForbidden)
	_, err = h.ticketSvc.ListTickets(ctx, h.agent, TicketListInput{Scope: ScopeAll})
	requireCode(t, err, apperrors.CodeForbidden)

	createTicket(t, h)
	page, err := h.ticketSvc.ListTickets(ctx, h.agent, TicketListInput{Scope: ScopeAssigned})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	page, err = h.ticketSvc.ListTickets(ctx, h.admin, TicketListInput{Scope: ScopeAll, Unassigned: true})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestListPagination(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	empty, err := h.ticketSvc.ListTickets(ctx, h.employee, TicketListInput{PageRequest: PageRequest{Page: 1}})
	require.NoError(t, err)
	assert.Zero(t, empty.TotalPages)
	assert.NotNil(t, empty.Items)

	for i := 0; i < 105; i++ {
		createTicket(t, h)
	}
	page, err := h.ticketSvc.ListTickets(ctx, h.employee, TicketListInput{PageRequest: PageRequest{Page: 0, Limit: 500}})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.Limit)
	assert.Len(t, page.Items, 100)
	assert.Equal(t, 2, page.TotalPages)

	page, err = h.ticketSvc.ListTickets(ctx, h.employee, TicketListInput{PageRequest: PageRequest{Page: 2}})
	require.NoError(t, err)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 11, page.TotalPages)
}

func TestPageRequestClampsHugePage(t *testing.T) {
	page, limit, bounds := PageRequest{Page: math.MaxInt, Limit: 100}.normalize()
	assert.Equal(t, maxPage, page)
	assert.Equal(t, 100, limit)
	assert.Positive(t, bounds.Offset)

	h := newHarness(t)
	createTicket(t, h)
	result, err := h.ticketSvc.ListTickets(context.Background(), h.employee,
		TicketListInput{PageRequest: PageRequest{Page: math.MaxInt}})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, 1, result.Total)
}

func TestTicketStatsScopedByRole(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := createTicket(t, h)
	_, err := h.ticketSvc.CreateTicket(ctx, h.other, validTicket())
	require.NoError(t, err)
	_, err = h.ticketSvc.AssignTicket(ctx, h.admin, ticket.ID, h.agent.ID)
	require.NoError(t, err)

	stats, err := h.ticketSvc.Stats(ctx, h.admin)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)

	stats, err = h.ticketSvc.Stats(ctx, h.agent)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByStatus["Open"])
	assert.Equal(t, 0, stats.ByStatus["Closed"])

	stats, err = h.ticketSvc.Stats(ctx, h.other)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestUpdateWithRejectedAssigneeWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := createTicket(t, h)

	_, err := h.ticketSvc.UpdateTicket(ctx, h.employee, ticket.ID, TicketUpdateInput{
		Status:     ptr(domain.TicketStatusClosed),
		AssignedTo: ptr(h.agent.ID),
	})
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = h.ticketSvc.UpdateTicket(ctx, h.admin, ticket.ID, TicketUpdateInput{
		Status:     ptr(domain.TicketStatusInProgress),
		AssignedTo: ptr(h.other.ID),
	})
	requireCode(t, err, apperrors.CodeValidation)

	stored, err := h.ticketSvc.GetTicket(ctx, h.admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Nil(t, stored.AssignedTo)
	assert.Len(t, stored.Timeline, 1)
	assert.Zero(t, h.tickets.updates)
	assert.Empty(t, h.dispatcher.ofType(events.EventStatusChanged))
}
