package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestServiceRequestRepositoryCreate(t *testing.T) {
	mock := newMockPool(t)
	repo := NewServiceRequestRepository(mock)
	now := time.Now()
	from := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)

	req := &domain.ServiceRequest{
		RequestCode:   "SR-000007",
		ServiceType:   "Event Support",
		TypeOfService: "Projector setup",
		Description:   "Town hall in the main auditorium",
		Priority:      domain.PriorityLow,
		DateFrom:      from,
		DateTo:        to,
		Duration:      "2 days",
		Status:        domain.RequestStatusPending,
		CreatedBy:     "user-1",
	}

	mock.ExpectQuery("INSERT INTO service_requests").
		WithArgs("SR-000007", "Event Support", "Projector setup", "Town hall in the main auditorium",
			domain.PriorityLow, from, to, "2 days", "", domain.RequestStatusPending, "user-1", (*string)(nil),
			"[]", "[]").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("sr-1", now, now))

	require.NoError(t, repo.Create(context.Background(), req))
	assert.Equal(t, "sr-1", req.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRequestRepositoryUpdateAppendsComment(t *testing.T) {
	mock := newMockPool(t)
	repo := NewServiceRequestRepository(mock)

	expected := "UPDATE service_requests SET comments=comments || $1::jsonb, timeline=timeline || $2::jsonb, updated_at=NOW() WHERE id=$3"
	mock.ExpectExec(regexp.QuoteMeta(expected)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "sr-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Update(context.Background(), "sr-1", ServiceRequestChanges{
		Comments: []domain.Comment{{ID: "c1", Text: "Need HDMI"}},
		Timeline: []domain.TimelineEvent{{Event: domain.TimelineCommented}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRequestRepositoryListUnassigned(t *testing.T) {
	mock := newMockPool(t)
	repo := NewServiceRequestRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM service_requests s WHERE s.assigned_to IS NULL AND (s.request_code ILIKE $1 OR s.description ILIKE $2)`)).
		WithArgs("%projector%", "%projector%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY s.date_from ASC, s.id LIMIT 10 OFFSET 0`)).
		WithArgs("%projector%", "%projector%").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	items, total, err := repo.List(context.Background(), ServiceRequestFilter{
		Unassigned: true,
		SearchTerm: " projector ",
		SortBy:     "dateFrom",
		Page:       Page{Limit: 10},
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}
