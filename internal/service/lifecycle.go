package service

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const (
	defaultPageLimit     = 10
	maxPageLimit         = 100
	maxPage              = 1_000_000
	minDescriptionLength = 10
)

// LifecycleOptions tunes timeline rendering and transition enforcement.
type LifecycleOptions struct {
	// Location renders timeline timestamps; nil means UTC.
	Location *time.Location
	// StrictTransitions rejects status changes outside the advised tables.
	StrictTransitions bool
	Now               func() time.Time
}

// lifecycle holds what both engines share: the clock, timeline rendering,
// the transition policy, logging and metrics.
type lifecycle struct {
	now      func() time.Time
	location *time.Location
	strict   bool
	logger   *zap.Logger
	metrics  *observability.Metrics
}

func newLifecycle(opts LifecycleOptions, logger *zap.Logger, metrics *observability.Metrics) lifecycle {
	l := lifecycle{
		now:      opts.Now,
		location: opts.Location,
		strict:   opts.StrictTransitions,
		logger:   logger,
		metrics:  metrics,
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.location == nil {
		l.location = time.UTC
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	return l
}

// event builds a timeline entry with a snapshot of the actor's name.
func (l lifecycle) event(actor *domain.User, kind domain.TimelineEventType, details, oldValue, newValue string) domain.TimelineEvent {
	return domain.TimelineEvent{
		Event:           kind,
		PerformedBy:     actor.ID,
		PerformedByName: actor.Name,
		Timestamp:       l.now().In(l.location).Format(domain.TimelineTimeLayout),
		Details:         details,
		OldValue:        oldValue,
		NewValue:        newValue,
	}
}

func (l lifecycle) comment(actor *domain.User, text string, attachments []domain.Attachment) domain.Comment {
	return domain.Comment{
		ID:          uuid.NewString(),
		Author:      actor.ID,
		AuthorName:  actor.Name,
		Text:        text,
		Attachments: attachments,
		Timestamp:   l.now().UTC(),
	}
}

func commentDetails(attachments int) string {
	if attachments == 0 {
		return "Comment added"
	}
	return fmt.Sprintf("Comment added with %d attachment(s)", attachments)
}

func statusChangeDetails(from, to string) string {
	return fmt.Sprintf("Status changed from %s to %s", from, to)
}

// checkTransition applies the transition policy. Unadvised moves are logged
// and allowed unless strict mode is on.
func (l lifecycle) checkTransition(entity, id, from, to string, advised bool) error {
	if advised {
		return nil
	}
	if l.strict {
		return apperrors.NewInvalidTransition(from, to)
	}
	l.logger.Warn("unadvised status transition",
		zap.String("entity", entity),
		zap.String("id", id),
		zap.String("from", from),
		zap.String("to", to))
	return nil
}

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// PageRequest carries the caller's pagination input.
type PageRequest struct {
	Page  int
	Limit int
}

func (r PageRequest) normalize() (int, int, repository.Page) {
	page, limit := r.Page, r.Limit
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit, repository.Page{Limit: limit, Offset: (page - 1) * limit}
}

func newPage[T any](items []T, page, limit, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

// ListScope selects which records a listing may return.
type ListScope string

const (
	ScopeMine     ListScope = "mine"
	ScopeAssigned ListScope = "assigned"
	ScopeAll      ListScope = "all"
)

func sortDescending(order string) bool {
	return order != "asc"
}
