package auth_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	auth "github.com/goliatone/go-report-auth"
)

func newUsersWithMock(t *testing.T) (auth.Users, sqlmock.Sqlmock) {
	t.Helper()

	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	return auth.NewUsersRepository(db), mock
}

func TestUsersRepository_DriverErrors(t *testing.T) {
	t.Run("get by email", func(t *testing.T) {
		users, mock := newUsersWithMock(t)
		mock.ExpectQuery(`(?s)^SELECT .* FROM "users"`).WillReturnError(errors.New("db down"))

		_, err := users.GetByEmail(context.Background(), "ana@example.com")
		require.Error(t, err)
		assert.False(t, auth.IsUserNotFound(err))

		status, _ := auth.ErrorResponse(err, "Erro ao fazer login.")
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get by id", func(t *testing.T) {
		users, mock := newUsersWithMock(t)
		mock.ExpectQuery(`(?s)^SELECT .* FROM "users"`).WillReturnError(errors.New("db down"))

		_, err := users.GetByID(context.Background(), uuid.New())
		require.Error(t, err)
		assert.False(t, auth.IsUserNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update fails", func(t *testing.T) {
		users, mock := newUsersWithMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`(?s)^UPDATE "users"`).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, err := users.UpdateProfile(context.Background(), uuid.New(), auth.ProfileEdit{FirstName: "Ana"})
		require.Error(t, err)
		assert.False(t, auth.IsUserNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update matches nothing", func(t *testing.T) {
		users, mock := newUsersWithMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`(?s)^UPDATE "users"`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := users.UpdateProfile(context.Background(), uuid.New(), auth.ProfileEdit{FirstName: "Ana"})
		assert.True(t, auth.IsUserNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
