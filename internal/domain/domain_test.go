package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleAgent))
	assert.True(t, RoleAgent.AtLeast(RoleAgent))
	assert.False(t, RoleEmployee.AtLeast(RoleAgent))
	assert.True(t, RoleEmployee.AtLeast(RoleEmployee))
	assert.False(t, Role("root").AtLeast(RoleEmployee))
}

func TestRoleCanWork(t *testing.T) {
	assert.True(t, RoleAgent.CanWork())
	assert.True(t, RoleAdmin.CanWork())
	assert.False(t, RoleEmployee.CanWork())
}

func TestEnumsValidate(t *testing.T) {
	assert.True(t, TicketStatus("In Progress").Valid())
	assert.False(t, TicketStatus("Pending").Valid())
	assert.True(t, RequestStatus("Pending").Valid())
	assert.False(t, RequestStatus("Open").Valid())
	assert.True(t, PriorityCritical.Valid())
	assert.False(t, Priority("Urgent").Valid())
	assert.True(t, IssueType("Hardware").Valid())
	assert.False(t, IssueType("hardware").Valid())
}

func TestTicketTransitionTable(t *testing.T) {
	assert.True(t, IsAdvisedTicketTransition(TicketStatusOpen, TicketStatusInProgress))
	assert.True(t, IsAdvisedTicketTransition(TicketStatusResolved, TicketStatusClosed))
	assert.False(t, IsAdvisedTicketTransition(TicketStatusClosed, TicketStatusOpen))
	assert.False(t, IsAdvisedTicketTransition(TicketStatusResolved, TicketStatusInProgress))
}

func TestRequestTransitionTable(t *testing.T) {
	assert.True(t, IsAdvisedRequestTransition(RequestStatusPending, RequestStatusApproved))
	assert.False(t, IsAdvisedRequestTransition(RequestStatusPending, RequestStatusCompleted))
	assert.False(t, IsAdvisedRequestTransition(RequestStatusRejected, RequestStatusPending))
}

func TestCategoryHasSubcategory(t *testing.T) {
	c := &Category{Subcategories: []string{"Laser", "Inkjet"}}
	assert.True(t, c.HasSubcategory("Laser"))
	assert.False(t, c.HasSubcategory("laser"))
}

func TestNewStatsSeedsKeys(t *testing.T) {
	stats := NewStats([]string{"Open", "Closed"})
	assert.Equal(t, 0, stats.ByStatus["Open"])
	assert.Len(t, stats.ByStatus, 2)
	assert.Len(t, stats.ByPriority, len(Priorities))
}

func TestIsAssignedTo(t *testing.T) {
	agent := "agent-1"
	ticket := &Ticket{}
	assert.False(t, ticket.IsAssignedTo(agent))
	ticket.AssignedTo = &agent
	assert.True(t, ticket.IsAssignedTo("agent-1"))
	assert.False(t, ticket.IsAssignedTo("agent-2"))
}
