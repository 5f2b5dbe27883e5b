package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	seq   int
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[string]*domain.User{}}
	for _, u := range users {
		copied := *u
		repo.users[u.ID] = &copied
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, user := range r.users {
		if len(filter.Roles) > 0 && !slices.Contains(filter.Roles, user.Role) {
			continue
		}
		if filter.IsActive != nil && user.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, *user)
	}
	slices.SortFunc(out, func(a, b domain.User) int { return strings.Compare(a.ID, b.ID) })
	return out, len(out), nil
}

func (r *fakeUserRepo) name(id *string) (*string, *string) {
	if id == nil {
		return nil, nil
	}
	user, ok := r.users[*id]
	if !ok {
		return nil, nil
	}
	name, email := user.Name, user.Email
	return &name, &email
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	users   *fakeUserRepo
	tickets map[string]*domain.Ticket
	seq     int
	updates int
}

func newFakeTicketRepo(users *fakeUserRepo) *fakeTicketRepo {
	return &fakeTicketRepo{users: users, tickets: map[string]*domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, id string, changes repository.TicketChanges) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.updates++
	if changes.Status != nil {
		ticket.Status = *changes.Status
	}
	if changes.Priority != nil {
		ticket.Priority = *changes.Priority
	}
	if changes.AssignedTo != nil {
		assignee := *changes.AssignedTo
		ticket.AssignedTo = &assignee
	}
	if changes.ResolvedAt != nil && ticket.ResolvedAt == nil {
		resolvedAt := *changes.ResolvedAt
		ticket.ResolvedAt = &resolvedAt
	}
	ticket.Comments = append(slices.Clone(ticket.Comments), changes.Comments...)
	ticket.Timeline = append(slices.Clone(ticket.Timeline), changes.Timeline...)
	ticket.UpdatedAt = time.Now()
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.populate(ticket), nil
}

func (r *fakeTicketRepo) populate(ticket *domain.Ticket) *domain.Ticket {
	copied := *ticket
	copied.Comments = slices.Clone(ticket.Comments)
	copied.Timeline = slices.Clone(ticket.Timeline)
	if creator, ok := r.users.users[ticket.CreatedBy]; ok {
		copied.CreatedByName = creator.Name
		copied.CreatedByEmail = creator.Email
	}
	copied.AssignedToName, copied.AssignedToEmail = r.users.name(ticket.AssignedTo)
	return &copied
}

func (r *fakeTicketRepo) matching(filter repository.TicketFilter) []domain.Ticket {
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.AssignedTo != nil && !ticket.IsAssignedTo(*filter.AssignedTo) {
			continue
		}
		if filter.AssignedTo == nil && filter.Unassigned && ticket.AssignedTo != nil {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !slices.Contains(filter.Priorities, ticket.Priority) {
			continue
		}
		out = append(out, *r.populate(ticket))
	}
	slices.SortFunc(out, func(a, b domain.Ticket) int { return strings.Compare(a.TicketCode, b.TicketCode) })
	return out
}

func (r *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.matching(filter)
	return window(all, filter.Page), len(all), nil
}

func (r *fakeTicketRepo) Stats(_ context.Context, filter repository.TicketFilter) (*domain.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	statuses := make([]string, len(domain.TicketStatuses))
	for i, s := range domain.TicketStatuses {
		statuses[i] = string(s)
	}
	stats := domain.NewStats(statuses)
	for _, ticket := range r.matching(filter) {
		stats.Total++
		stats.ByStatus[string(ticket.Status)]++
		stats.ByPriority[string(ticket.Priority)]++
	}
	return stats, nil
}

type fakeServiceRequestRepo struct {
	mu       sync.Mutex
	users    *fakeUserRepo
	requests map[string]*domain.ServiceRequest
	seq      int
	creates  int
}

func newFakeServiceRequestRepo(users *fakeUserRepo) *fakeServiceRequestRepo {
	return &fakeServiceRequestRepo{users: users, requests: map[string]*domain.ServiceRequest{}}
}

func (r *fakeServiceRequestRepo) Create(_ context.Context, req *domain.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.creates++
	req.ID = fmt.Sprintf("sr-%d", r.seq)
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	copied := *req
	r.requests[req.ID] = &copied
	return nil
}

func (r *fakeServiceRequestRepo) Update(_ context.Context, id string, changes repository.ServiceRequestChanges) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	if changes.Status != nil {
		req.Status = *changes.Status
	}
	if changes.Priority != nil {
		req.Priority = *changes.Priority
	}
	if changes.AssignedTo != nil {
		assignee := *changes.AssignedTo
		req.AssignedTo = &assignee
	}
	req.Comments = append(slices.Clone(req.Comments), changes.Comments...)
	req.Timeline = append(slices.Clone(req.Timeline), changes.Timeline...)
	return nil
}

func (r *fakeServiceRequestRepo) GetByID(_ context.Context, id string) (*domain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.populate(req), nil
}

func (r *fakeServiceRequestRepo) populate(req *domain.ServiceRequest) *domain.ServiceRequest {
	copied := *req
	copied.Comments = slices.Clone(req.Comments)
	copied.Timeline = slices.Clone(req.Timeline)
	if creator, ok := r.users.users[req.CreatedBy]; ok {
		copied.CreatedByName = creator.Name
		copied.CreatedByEmail = creator.Email
	}
	copied.AssignedToName, copied.AssignedToEmail = r.users.name(req.AssignedTo)
	return &copied
}

func (r *fakeServiceRequestRepo) matching(filter repository.ServiceRequestFilter) []domain.ServiceRequest {
	var out []domain.ServiceRequest
	for _, req := range r.requests {
		if filter.CreatedBy != nil && req.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.AssignedTo != nil && !req.IsAssignedTo(*filter.AssignedTo) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, req.Status) {
			continue
		}
		out = append(out, *r.populate(req))
	}
	slices.SortFunc(out, func(a, b domain.ServiceRequest) int { return strings.Compare(a.RequestCode, b.RequestCode) })
	return out
}

func (r *fakeServiceRequestRepo) List(_ context.Context, filter repository.ServiceRequestFilter) ([]domain.ServiceRequest, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.matching(filter)
	return window(all, filter.Page), len(all), nil
}

func (r *fakeServiceRequestRepo) Stats(_ context.Context, filter repository.ServiceRequestFilter) (*domain.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	statuses := make([]string, len(domain.RequestStatuses))
	for i, s := range domain.RequestStatuses {
		statuses[i] = string(s)
	}
	stats := domain.NewStats(statuses)
	for _, req := range r.matching(filter) {
		stats.Total++
		stats.ByStatus[string(req.Status)]++
		stats.ByPriority[string(req.Priority)]++
	}
	return stats, nil
}

type fakeCategoryRepo struct {
	mu         sync.Mutex
	categories map[string]*domain.Category
	seq        int
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: map[string]*domain.Category{}}
}

func (r *fakeCategoryRepo) Create(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	category.ID = fmt.Sprintf("cat-%d", r.seq)
	copied := *category
	copied.Subcategories = slices.Clone(category.Subcategories)
	r.categories[category.ID] = &copied
	return nil
}

func (r *fakeCategoryRepo) Update(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[category.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *category
	copied.Subcategories = slices.Clone(category.Subcategories)
	r.categories[category.ID] = &copied
	return nil
}

func (r *fakeCategoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.categories, id)
	return nil
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	category, ok := r.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *category
	copied.Subcategories = slices.Clone(category.Subcategories)
	return &copied, nil
}

func (r *fakeCategoryRepo) GetByNameAndType(_ context.Context, name string, issueType domain.IssueType) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, category := range r.categories {
		if category.Name == name && category.Type == issueType {
			copied := *category
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCategoryRepo) List(_ context.Context, filter repository.CategoryFilter) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Category
	for _, category := range r.categories {
		if !filter.IncludeInactive && !category.IsActive {
			continue
		}
		if filter.Type != nil && category.Type != *filter.Type {
			continue
		}
		out = append(out, *category)
	}
	slices.SortFunc(out, func(a, b domain.Category) int {
		if c := strings.Compare(string(a.Type), string(b.Type)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (r *fakeCategoryRepo) AddSubcategory(_ context.Context, id, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	category, ok := r.categories[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !category.HasSubcategory(name) {
		category.Subcategories = append(category.Subcategories, name)
	}
	return nil
}

func (r *fakeCategoryRepo) RemoveSubcategory(_ context.Context, id, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	category, ok := r.categories[id]
	if !ok {
		return repository.ErrNotFound
	}
	category.Subcategories = slices.DeleteFunc(category.Subcategories, func(s string) bool { return s == name })
	return nil
}

type fakeSequence struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newFakeSequence() *fakeSequence {
	return &fakeSequence{counters: map[string]int64{}}
}

func (s *fakeSequence) Next(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name]++
	return s.counters[name], nil
}

type fakeResetRepo struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: map[string]string{}}
}

func (r *fakeResetRepo) Save(_ context.Context, token, userID string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = userID
	return nil
}

func (r *fakeResetRepo) Consume(_ context.Context, token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.tokens[token]
	if !ok {
		return "", repository.ErrNotFound
	}
	delete(r.tokens, token)
	return userID, nil
}

// recordingDispatcher captures published events synchronously.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) Close(context.Context) error { return nil }

func (d *recordingDispatcher) ofType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func window[T any](items []T, page repository.Page) []T {
	if page.Offset >= len(items) {
		return nil
	}
	end := len(items)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	return items[page.Offset:end]
}
