package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketFilter captures ticket search parameters.
type TicketFilter struct {
	CreatedBy   *string
	AssignedTo  *string
	Unassigned  bool
	Statuses    []domain.TicketStatus
	Priorities  []domain.Priority
	Type        *domain.IssueType
	SearchTerm  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SortBy      string
	SortDesc    bool
	Page
}

// TicketChanges is a partial update applied in a single statement. Comments
// and Timeline are appended to the stored arrays, never replacing them.
type TicketChanges struct {
	Status     *domain.TicketStatus
	Priority   *domain.Priority
	AssignedTo *string
	ResolvedAt *time.Time
	Comments   []domain.Comment
	Timeline   []domain.TimelineEvent
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, id string, changes TicketChanges) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	Stats(ctx context.Context, filter TicketFilter) (*domain.Stats, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketSelect = `
        SELECT t.id, t.ticket_code, t.type, t.category, t.subcategory, t.description, t.priority, t.status,
               t.created_by, t.assigned_to, t.attachments, t.comments, t.timeline, t.resolved_at,
               t.created_at, t.updated_at, cu.name, cu.email, au.name, au.email
        FROM tickets t
        JOIN users cu ON cu.id = t.created_by
        LEFT JOIN users au ON au.id = t.assigned_to`

var ticketSortColumns = map[string]string{
	"createdAt": "t.created_at",
	"updatedAt": "t.updated_at",
	"priority":  "array_position(ARRAY['Low','Medium','High','Critical'], t.priority)",
	"status":    "t.status",
	"ticketId":  "t.ticket_code",
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_code, type, category, subcategory, description, priority, status,
                             created_by, assigned_to, attachments, comments, timeline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10::jsonb,$11::jsonb,$12::jsonb)
        RETURNING id, created_at, updated_at`

	attachments, err := encodeJSONList(ticket.Attachments)
	if err != nil {
		return err
	}
	comments, err := encodeJSONList(ticket.Comments)
	if err != nil {
		return err
	}
	timeline, err := encodeJSONList(ticket.Timeline)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, query,
		ticket.TicketCode,
		ticket.Type,
		ticket.Category,
		ticket.Subcategory,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.CreatedBy,
		ticket.AssignedTo,
		attachments,
		comments,
		timeline,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return translateError(err)
}

func (r *ticketRepository) Update(ctx context.Context, id string, changes TicketChanges) error {
	sets := &setBuilder{}
	if changes.Status != nil {
		sets.set("status", *changes.Status)
	}
	if changes.Priority != nil {
		sets.set("priority", *changes.Priority)
	}
	if changes.AssignedTo != nil {
		sets.set("assigned_to", *changes.AssignedTo)
	}
	if changes.ResolvedAt != nil {
		sets.setOnce("resolved_at", *changes.ResolvedAt)
	}
	if len(changes.Comments) > 0 {
		encoded, err := encodeJSONList(changes.Comments)
		if err != nil {
			return err
		}
		sets.appendJSON("comments", encoded)
	}
	if len(changes.Timeline) > 0 {
		encoded, err := encodeJSONList(changes.Timeline)
		if err != nil {
			return err
		}
		sets.appendJSON("timeline", encoded)
	}
	if sets.empty() {
		return nil
	}

	query, args := sets.statement("tickets", id)
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, ticketSelect+` WHERE t.id=$1`, id))
	if err != nil {
		return nil, translateError(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	where := ticketWhere(filter)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets t`+where.sql(), where.args...).Scan(&total); err != nil {
		return nil, 0, translateError(err)
	}

	column, ok := ticketSortColumns[filter.SortBy]
	if !ok {
		column = ticketSortColumns["createdAt"]
	}
	query := fmt.Sprintf(`%s%s ORDER BY %s %s, t.id LIMIT %d OFFSET %d`,
		ticketSelect, where.sql(), column, orderDirection(filter.SortDesc), filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, translateError(err)
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *ticket)
	}
	return result, total, rows.Err()
}

func (r *ticketRepository) Stats(ctx context.Context, filter TicketFilter) (*domain.Stats, error) {
	statuses := make([]string, len(domain.TicketStatuses))
	for i, status := range domain.TicketStatuses {
		statuses[i] = string(status)
	}
	where := ticketWhere(filter)
	return aggregateStats(ctx, r.db, "tickets t", where, domain.NewStats(statuses))
}

func ticketWhere(filter TicketFilter) *whereBuilder {
	where := &whereBuilder{}
	if filter.CreatedBy != nil {
		where.add("t.created_by=%s", *filter.CreatedBy)
	}
	if filter.AssignedTo != nil {
		where.add("t.assigned_to=%s", *filter.AssignedTo)
	} else if filter.Unassigned {
		where.clauses = append(where.clauses, "t.assigned_to IS NULL")
	}
	statuses := make([]string, len(filter.Statuses))
	for i, status := range filter.Statuses {
		statuses[i] = string(status)
	}
	where.addIn("t.status", statuses)
	priorities := make([]string, len(filter.Priorities))
	for i, priority := range filter.Priorities {
		priorities[i] = string(priority)
	}
	where.addIn("t.priority", priorities)
	if filter.Type != nil {
		where.add("t.type=%s", *filter.Type)
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		pattern := "%" + term + "%"
		where.add("(t.ticket_code ILIKE %s OR t.description ILIKE %s)", pattern, pattern)
	}
	if filter.CreatedFrom != nil {
		where.add("t.created_at >= %s", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		where.add("t.created_at <= %s", *filter.CreatedTo)
	}
	return where
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket                          domain.Ticket
		attachments, comments, timeline []byte
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketCode,
		&ticket.Type,
		&ticket.Category,
		&ticket.Subcategory,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&attachments,
		&comments,
		&timeline,
		&ticket.ResolvedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.CreatedByName,
		&ticket.CreatedByEmail,
		&ticket.AssignedToName,
		&ticket.AssignedToEmail,
	); err != nil {
		return nil, err
	}
	if err := decodeJSONList(attachments, &ticket.Attachments); err != nil {
		return nil, err
	}
	if err := decodeJSONList(comments, &ticket.Comments); err != nil {
		return nil, err
	}
	if err := decodeJSONList(timeline, &ticket.Timeline); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func aggregateStats(ctx context.Context, db DBTX, from string, where *whereBuilder, stats *domain.Stats) (*domain.Stats, error) {
	groups := []struct {
		column string
		into   map[string]int
	}{
		{column: "status", into: stats.ByStatus},
		{column: "priority", into: stats.ByPriority},
	}
	for i, group := range groups {
		query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM %s%s GROUP BY %s`, group.column, from, where.sql(), group.column)
		rows, err := db.Query(ctx, query, where.args...)
		if err != nil {
			return nil, translateError(err)
		}
		for rows.Next() {
			var (
				key   string
				count int
			)
			if err := rows.Scan(&key, &count); err != nil {
				rows.Close()
				return nil, err
			}
			group.into[key] = count
			if i == 0 {
				stats.Total += count
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func encodeJSONList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode jsonb: %w", err)
	}
	return string(encoded), nil
}

func decodeJSONList[T any](raw []byte, dst *[]T) error {
	if len(raw) == 0 {
		*dst = []T{}
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode jsonb: %w", err)
	}
	if *dst == nil {
		*dst = []T{}
	}
	return nil
}
