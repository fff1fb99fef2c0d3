package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	uniqueErr := &pgconn.PgError{Code: "23505", ConstraintName: "votes_poll_session_key"}

	require.True(t, IsUniqueViolation(uniqueErr, "votes_poll_session_key"))
	require.True(t, IsUniqueViolation(uniqueErr, ""))
	require.False(t, IsUniqueViolation(uniqueErr, "polls_single_active"))

	// Wrapped errors still match.
	wrapped := fmt.Errorf("insert vote: %w", uniqueErr)
	require.True(t, IsUniqueViolation(wrapped, "votes_poll_session_key"))

	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	require.False(t, IsUniqueViolation(errors.New("plain"), ""))
	require.False(t, IsUniqueViolation(nil, ""))
}
