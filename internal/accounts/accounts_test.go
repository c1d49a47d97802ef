package accounts

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/01moynul/storefront-golang/internal/apperr"
	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	usernameTaken = regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)")
	emailTaken    = regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)")
)

func newService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, zap.NewNop()), mock
}

func exists(v bool) *sqlmock.Rows { return sqlmock.NewRows([]string{"e"}).AddRow(v) }

func TestCreateAccount(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(usernameTaken).WithArgs("ada").WillReturnRows(exists(false))
	mock.ExpectQuery(emailTaken).WithArgs("ada@example.com").WillReturnRows(exists(false))
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec("INSERT INTO user_profiles").
		WithArgs(int64(3), models.DefaultProfilePicture).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	user, err := svc.CreateAccount(context.Background(), Registration{
		Username: "ada", Email: "Ada@Example.com", Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	require.NotNil(t, user.Profile)
	assert.Equal(t, models.DefaultProfilePicture, user.Profile.ProfilePicture)
	assert.NotEqual(t, "correct horse", user.PasswordHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountTaken(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(usernameTaken).WillReturnRows(exists(true))
	mock.ExpectQuery(emailTaken).WillReturnRows(exists(true))
	mock.ExpectRollback()

	_, err := svc.CreateAccount(context.Background(), Registration{Username: "ada", Email: "ada@example.com", Password: "correct horse"})
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "username")
	assert.Contains(t, ve.Fields, "email")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountRace(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(usernameTaken).WillReturnRows(exists(false))
	mock.ExpectQuery(emailTaken).WillReturnRows(exists(false))
	mock.ExpectExec("INSERT INTO users").WillReturnError(&mysql.MySQLError{Number: 1062})
	mock.ExpectRollback()

	_, err := svc.CreateAccount(context.Background(), Registration{Username: "ada", Email: "ada@example.com", Password: "correct horse"})
	assert.True(t, apperr.IsValidation(err))
}

func TestAuthenticate(t *testing.T) {
	var pw models.Password
	require.NoError(t, pw.Set("correct horse"))
	cols := []string{"id", "username", "email", "password_hash", "created_at"}

	t.Run("by email", func(t *testing.T) {
		svc, mock := newService(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).WithArgs("ada@example.com").
			WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "ada", "ada@example.com", pw.Hash, time.Now()))

		user, err := svc.Authenticate(context.Background(), "ADA@example.com", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, int64(3), user.ID)
	})

	t.Run("by username, wrong password", func(t *testing.T) {
		svc, mock := newService(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = ?")).WithArgs("ada").
			WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "ada", "ada@example.com", pw.Hash, time.Now()))

		_, err := svc.Authenticate(context.Background(), "ada", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown login", func(t *testing.T) {
		svc, mock := newService(t)
		mock.ExpectQuery("FROM users").WillReturnRows(sqlmock.NewRows(cols))

		_, err := svc.Authenticate(context.Background(), "nobody", "x")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
