package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func TestClassifyErrorSerializationFailure(t *testing.T) {
	err := ClassifyError(&pgconn.PgError{Code: "40001"})
	require.Equal(t, shared.KindConflict, shared.KindOf(err))

	err = ClassifyError(&pgconn.PgError{Code: "40P01"})
	require.Equal(t, shared.KindConflict, shared.KindOf(err))
}

func TestClassifyErrorUniqueViolation(t *testing.T) {
	err := ClassifyError(&pgconn.PgError{Code: "23505"})
	require.Equal(t, shared.KindConflict, shared.KindOf(err))
}

func TestClassifyErrorNoRows(t *testing.T) {
	err := ClassifyError(pgx.ErrNoRows)
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestClassifyErrorPassesThroughDomainErrors(t *testing.T) {
	domain := shared.NewBusinessRule("insufficient stock")
	require.Same(t, domain, ClassifyError(domain))

	wrapped := ClassifyError(&shared.Error{Kind: shared.KindBusinessRule, Message: "outer", Err: errors.New("inner")})
	require.Equal(t, shared.KindBusinessRule, shared.KindOf(wrapped))
}

func TestClassifyErrorUnknownIsInfrastructure(t *testing.T) {
	err := ClassifyError(errors.New("connection reset"))
	require.Equal(t, shared.KindInfrastructure, shared.KindOf(err))
}

func TestClassifyErrorNil(t *testing.T) {
	require.NoError(t, ClassifyError(nil))
}
