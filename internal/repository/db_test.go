package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))
	assert.ErrorIs(t, translateError(pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, translateError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}), ErrDuplicate)
	assert.ErrorIs(t, translateError(&pgconn.PgError{Code: "22P02"}), ErrNotFound)

	boom := errors.New("boom")
	assert.Equal(t, boom, translateError(boom))
}

func TestWhereBuilderNumbersPlaceholders(t *testing.T) {
	where := &whereBuilder{}
	assert.Equal(t, "", where.sql())

	where.add("t.created_by=%s", "u1")
	where.addIn("t.status", []string{"Open", "Closed"})
	where.addIn("t.priority", nil)
	where.add("(t.ticket_code ILIKE %s OR t.description ILIKE %s)", "%x%", "%x%")

	assert.Equal(t,
		" WHERE t.created_by=$1 AND t.status IN ($2,$3) AND (t.ticket_code ILIKE $4 OR t.description ILIKE $5)",
		where.sql())
	assert.Equal(t, []any{"u1", "Open", "Closed", "%x%", "%x%"}, where.args)
}

func TestSetBuilderStatement(t *testing.T) {
	sets := &setBuilder{}
	assert.True(t, sets.empty())

	sets.set("status", "Resolved")
	sets.setOnce("resolved_at", "now")
	sets.appendJSON("timeline", `[{}]`)

	query, args := sets.statement("tickets", "t1")
	assert.Equal(t,
		"UPDATE tickets SET status=$1, resolved_at=COALESCE(resolved_at, $2), timeline=timeline || $3::jsonb, updated_at=NOW() WHERE id=$4",
		query)
	assert.Equal(t, []any{"Resolved", "now", `[{}]`, "t1"}, args)
}

func TestEncodeDecodeJSONListNeverNil(t *testing.T) {
	encoded, err := encodeJSONList[string](nil)
	assert.NoError(t, err)
	assert.Equal(t, "[]", encoded)

	var out []string
	assert.NoError(t, decodeJSONList([]byte("null"), &out))
	assert.NotNil(t, out)
	assert.Empty(t, out)

	assert.Error(t, decodeJSONList([]byte("{"), &out))
}
