package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

type harness struct {
	users       *fakeUserRepo
	tickets     *fakeTicketRepo
	requests    *fakeServiceRequestRepo
	sequence    *fakeSequence
	dispatcher  *recordingDispatcher
	assignments *AssignmentService
	ticketSvc   *TicketService
	requestSvc  *ServiceRequestService

	employee *domain.User
	other    *domain.User
	agent    *domain.User
	agent2   *domain.User
	admin    *domain.User
}

func newHarness(t *testing.T, opts ...func(*LifecycleOptions)) *harness {
	t.Helper()
	h := &harness{
		employee: &domain.User{ID: "emp", Name: "Erin", Email: "erin@example.com", Role: domain.RoleEmployee, IsActive: true},
		other:    &domain.User{ID: "emp2", Name: "Omar", Email: "omar@example.com", Role: domain.RoleEmployee, IsActive: true},
		agent:    &domain.User{ID: "agt", Name: "Ada", Email: "ada@example.com", Role: domain.RoleAgent, IsActive: true},
		agent2:   &domain.User{ID: "agt2", Name: "Bo", Email: "bo@example.com", Role: domain.RoleAgent, IsActive: true},
		admin:    &domain.User{ID: "adm", Name: "Root", Email: "root@example.com", Role: domain.RoleAdmin, IsActive: true},
	}
	h.users = newFakeUserRepo(h.employee, h.other, h.agent, h.agent2, h.admin)
	h.tickets = newFakeTicketRepo(h.users)
	h.requests = newFakeServiceRequestRepo(h.users)
	h.sequence = newFakeSequence()
	h.dispatcher = &recordingDispatcher{}

	options := LifecycleOptions{Now: func() time.Time { return fixedNow }}
	for _, opt := range opts {
		opt(&options)
	}
	logger := zap.NewNop()
	h.assignments = NewAssignmentService(AssignmentDependencies{
		TicketRepo:         h.tickets,
		ServiceRequestRepo: h.requests,
		UserRepo:           h.users,
		Dispatcher:         h.dispatcher,
		Logger:             logger,
		Options:            options,
	})
	h.ticketSvc = NewTicketService(TicketDependencies{
		TicketRepo:  h.tickets,
		Sequence:    h.sequence,
		Assignments: h.assignments,
		Dispatcher:  h.dispatcher,
		Logger:      logger,
		Options:     options,
	})
	h.requestSvc = NewServiceRequestService(ServiceRequestDependencies{
		ServiceRequestRepo: h.requests,
		Sequence:           h.sequence,
		Assignments:        h.assignments,
		Dispatcher:         h.dispatcher,
		Logger:             logger,
		Options:            options,
	})
	return h
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func ptr[T any](v T) *T {
	return &v
}
