package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, models.ErrNotFound},
		{"duplicate email", &pq.Error{Code: "23505", Constraint: "users_email_lower_idx"}, models.ErrDuplicateEmail},
		{"duplicate bank", &pq.Error{Code: "23505", Constraint: "banks_user_name_idx"}, models.ErrDuplicateName},
		{"missing parent", &pq.Error{Code: "23503"}, models.ErrNotFound},
		{"check", &pq.Error{Code: "23514", Constraint: "categories_spent_check"}, models.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError("op", tt.err), tt.want)
		})
	}

	other := errors.New("connection reset")
	err := mapError("list banks", other)
	assert.ErrorIs(t, err, other)
	assert.Contains(t, err.Error(), "failed to list banks")
}

func TestLikePattern(t *testing.T) {
	tests := map[string]string{
		"Cine":      "%cine%",
		"50%":       `%50\%%`,
		"mi_cuenta": `%mi\_cuenta%`,
		`a\b`:       `%a\\b%`,
	}
	for in, want := range tests {
		assert.Equal(t, want, likePattern(in), in)
	}
}

func TestTransactionQuery(t *testing.T) {
	bank := int64(3)
	query, args := transactionQuery(7, models.TransactionFilter{
		Type:   models.TypeExpense,
		BankID: &bank,
		Search: "50%",
		Limit:  10,
	})
	assert.Contains(t, query, "type = $2")
	assert.Contains(t, query, "bank_id = $3")
	assert.Contains(t, query, `lower(description) LIKE $4 ESCAPE '\'`)
	assert.True(t, strings.HasSuffix(query, "ORDER BY date DESC, id DESC LIMIT $5"), query)
	assert.Equal(t, []any{int64(7), models.TypeExpense, int64(3), `%50\%%`, 10}, args)
}

func TestLockUserByEmailQuery(t *testing.T) {
	assert.True(t, strings.HasSuffix(lockUserByEmailQuery, " FOR UPDATE"))
	assert.True(t, strings.HasPrefix(lockUserByEmailQuery, userByEmailQuery))

	_, err := (&Repository{}).LockUserByEmail(context.Background(), "juan@test.com")
	assert.ErrorContains(t, err, "no transaction")
}
