package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Sequence names for human-readable codes.
const (
	SequenceTicket         = "ticket"
	SequenceServiceRequest = "service_request"
)

// SequenceGenerator hands out monotonically increasing numbers per sequence.
type SequenceGenerator interface {
	Next(ctx context.Context, name string) (int64, error)
}

type redisSequence struct {
	client *redis.Client
	prefix string
}

// NewRedisSequence allocates numbers with INCR on "<prefix>:seq:<name>".
func NewRedisSequence(client *redis.Client, prefix string) SequenceGenerator {
	return &redisSequence{client: client, prefix: prefix}
}

func (s *redisSequence) Next(ctx context.Context, name string) (int64, error) {
	n, err := s.client.Incr(ctx, fmt.Sprintf("%s:seq:%s", s.prefix, name)).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate %s sequence: %w", name, err)
	}
	return n, nil
}

var postgresSequences = map[string]string{
	SequenceTicket:         "ticket_code_seq",
	SequenceServiceRequest: "service_request_code_seq",
}

type postgresSequence struct {
	db DBTX
}

// NewPostgresSequence allocates numbers from database sequences.
func NewPostgresSequence(db DBTX) SequenceGenerator {
	return &postgresSequence{db: db}
}

func (s *postgresSequence) Next(ctx context.Context, name string) (int64, error) {
	seq, ok := postgresSequences[name]
	if !ok {
		return 0, fmt.Errorf("unknown sequence %q", name)
	}
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT nextval($1::regclass)`, seq).Scan(&n); err != nil {
		return 0, fmt.Errorf("allocate %s sequence: %w", name, err)
	}
	return n, nil
}

// FormatCode renders a sequence number as e.g. TKT-000042.
func FormatCode(prefix string, n int64) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}
