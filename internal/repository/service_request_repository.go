package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ServiceRequestFilter captures service request search parameters.
type ServiceRequestFilter struct {
	CreatedBy   *string
	AssignedTo  *string
	Unassigned  bool
	Statuses    []domain.RequestStatus
	Priorities  []domain.Priority
	ServiceType string
	SearchTerm  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SortBy      string
	SortDesc    bool
	Page
}

// ServiceRequestChanges is a partial update applied in a single statement.
type ServiceRequestChanges struct {
	Status     *domain.RequestStatus
	Priority   *domain.Priority
	AssignedTo *string
	Comments   []domain.Comment
	Timeline   []domain.TimelineEvent
}

// ServiceRequestRepository encapsulates service request persistence.
type ServiceRequestRepository interface {
	Create(ctx context.Context, req *domain.ServiceRequest) error
	Update(ctx context.Context, id string, changes ServiceRequestChanges) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	List(ctx context.Context, filter ServiceRequestFilter) ([]domain.ServiceRequest, int, error)
	Stats(ctx context.Context, filter ServiceRequestFilter) (*domain.Stats, error)
}

type serviceRequestRepository struct {
	db DBTX
}

// NewServiceRequestRepository instantiates repository.
func NewServiceRequestRepository(db DBTX) ServiceRequestRepository {
	return &serviceRequestRepository{db: db}
}

const serviceRequestSelect = `
        SELECT s.id, s.request_code, s.service_type, s.type_of_service, s.description, s.priority,
               s.date_from, s.date_to, s.duration, s.location, s.status, s.created_by, s.assigned_to,
               s.comments, s.timeline, s.created_at, s.updated_at, cu.name, cu.email, au.name, au.email
        FROM service_requests s
        JOIN users cu ON cu.id = s.created_by
        LEFT JOIN users au ON au.id = s.assigned_to`

var serviceRequestSortColumns = map[string]string{
	"createdAt": "s.created_at",
	"updatedAt": "s.updated_at",
	"dateFrom":  "s.date_from",
	"priority":  "array_position(ARRAY['Low','Medium','High','Critical'], s.priority)",
	"status":    "s.status",
	"requestId": "s.request_code",
}

func (r *serviceRequestRepository) Create(ctx context.Context, req *domain.ServiceRequest) error {
	const query = `
        INSERT INTO service_requests (request_code, service_type, type_of_service, description, priority,
                                      date_from, date_to, duration, location, status, created_by, assigned_to,
                                      comments, timeline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13::jsonb,$14::jsonb)
        RETURNING id, created_at, updated_at`

	comments, err := encodeJSONList(req.Comments)
	if err != nil {
		return err
	}
	timeline, err := encodeJSONList(req.Timeline)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, query,
		req.RequestCode,
		req.ServiceType,
		req.TypeOfService,
		req.Description,
		req.Priority,
		req.DateFrom,
		req.DateTo,
		req.Duration,
		req.Location,
		req.Status,
		req.CreatedBy,
		req.AssignedTo,
		comments,
		timeline,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	return translateError(err)
}

func (r *serviceRequestRepository) Update(ctx context.Context, id string, changes ServiceRequestChanges) error {
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

	query, args := sets.statement("service_requests", id)
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *serviceRequestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	req, err := scanServiceRequest(r.db.QueryRow(ctx, serviceRequestSelect+` WHERE s.id=$1`, id))
	if err != nil {
		return nil, translateError(err)
	}
	return req, nil
}

func (r *serviceRequestRepository) List(ctx context.Context, filter ServiceRequestFilter) ([]domain.ServiceRequest, int, error) {
	where := serviceRequestWhere(filter)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM service_requests s`+where.sql(), where.args...).Scan(&total); err != nil {
		return nil, 0, translateError(err)
	}

	column, ok := serviceRequestSortColumns[filter.SortBy]
	if !ok {
		column = serviceRequestSortColumns["createdAt"]
	}
	query := fmt.Sprintf(`%s%s ORDER BY %s %s, s.id LIMIT %d OFFSET %d`,
		serviceRequestSelect, where.sql(), column, orderDirection(filter.SortDesc), filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, translateError(err)
	}
	defer rows.Close()

	var result []domain.ServiceRequest
	for rows.Next() {
		req, err := scanServiceRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *req)
	}
	return result, total, rows.Err()
}

func (r *serviceRequestRepository) Stats(ctx context.Context, filter ServiceRequestFilter) (*domain.Stats, error) {
	statuses := make([]string, len(domain.RequestStatuses))
	for i, status := range domain.RequestStatuses {
		statuses[i] = string(status)
	}
	where := serviceRequestWhere(filter)
	return aggregateStats(ctx, r.db, "service_requests s", where, domain.NewStats(statuses))
}

func serviceRequestWhere(filter ServiceRequestFilter) *whereBuilder {
	where := &whereBuilder{}
	if filter.CreatedBy != nil {
		where.add("s.created_by=%s", *filter.CreatedBy)
	}
	if filter.AssignedTo != nil {
		where.add("s.assigned_to=%s", *filter.AssignedTo)
	} else if filter.Unassigned {
		where.clauses = append(where.clauses, "s.assigned_to IS NULL")
	}
	statuses := make([]string, len(filter.Statuses))
	for i, status := range filter.Statuses {
		statuses[i] = string(status)
	}
	where.addIn("s.status", statuses)
	priorities := make([]string, len(filter.Priorities))
	for i, priority := range filter.Priorities {
		priorities[i] = string(priority)
	}
	where.addIn("s.priority", priorities)
	if filter.ServiceType != "" {
		where.add("s.service_type=%s", filter.ServiceType)
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		pattern := "%" + term + "%"
		where.add("(s.request_code ILIKE %s OR s.description ILIKE %s)", pattern, pattern)
	}
	if filter.CreatedFrom != nil {
		where.add("s.created_at >= %s", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		where.add("s.created_at <= %s", *filter.CreatedTo)
	}
	return where
}

func scanServiceRequest(row pgx.Row) (*domain.ServiceRequest, error) {
	var (
		req                domain.ServiceRequest
		comments, timeline []byte
	)
	if err := row.Scan(
		&req.ID,
		&req.RequestCode,
		&req.ServiceType,
		&req.TypeOfService,
		&req.Description,
		&req.Priority,
		&req.DateFrom,
		&req.DateTo,
		&req.Duration,
		&req.Location,
		&req.Status,
		&req.CreatedBy,
		&req.AssignedTo,
		&comments,
		&timeline,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.CreatedByName,
		&req.CreatedByEmail,
		&req.AssignedToName,
		&req.AssignedToEmail,
	); err != nil {
		return nil, err
	}
	if err := decodeJSONList(comments, &req.Comments); err != nil {
		return nil, err
	}
	if err := decodeJSONList(timeline, &req.Timeline); err != nil {
		return nil, err
	}
	return &req, nil
}
